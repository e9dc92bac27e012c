// Package push sends device notifications through Firebase Cloud Messaging.
package push

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Message is one outbound push
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Client sends a message to a set of device tokens and returns the tokens
// the provider rejected as no longer registered.
type Client interface {
	Send(ctx context.Context, tokens []string, msg Message) (stale []string, err error)
}

// FCMClient implements Client over firebase messaging
type FCMClient struct {
	messaging *messaging.Client
}

// NewFCMClient initializes the firebase app from a service account file
func NewFCMClient(ctx context.Context, credentialsPath string) (*FCMClient, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("firebase credentials path not provided")
	}
	if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("firebase credentials file not found at %s", credentialsPath)
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase messaging client: %w", err)
	}
	return &FCMClient{messaging: client}, nil
}

// Send multicasts msg to tokens
func (c *FCMClient) Send(ctx context.Context, tokens []string, msg Message) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	resp, err := c.messaging.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("error sending push notification: %w", err)
	}

	var stale []string
	for i, r := range resp.Responses {
		if r.Success || r.Error == nil {
			continue
		}
		if messaging.IsUnregistered(r.Error) || messaging.IsInvalidArgument(r.Error) {
			stale = append(stale, tokens[i])
		}
	}
	if resp.FailureCount > 0 && resp.FailureCount > len(stale) {
		return stale, fmt.Errorf("%d of %d push deliveries failed", resp.FailureCount, len(tokens))
	}
	return stale, nil
}
