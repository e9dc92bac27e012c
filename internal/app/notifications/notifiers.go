package notifications

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/pkg/email"
	"github.com/yigit/communityhub/internal/pkg/push"
)

// UserReader loads the recipient and actor of a notification
type UserReader interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// TokenStore lists and prunes push device tokens
type TokenStore interface {
	TokensForUser(ctx context.Context, userID int64) ([]string, error)
	DeleteTokens(ctx context.Context, tokens []string) error
}

var verbText = map[models.Verb]string{
	models.VerbMention:      "%s mentioned you",
	models.VerbFollowedUser: "%s published something new",
	models.VerbFollowedTag:  "%s posted under a tag you follow",
	models.VerbReshare:      "%s reshared your post",
	models.VerbEdit:         "%s edited your post",
	models.VerbDelete:       "%s removed your post",
	models.VerbVote:         "%s voted in your poll",
	models.VerbFlag:         "%s flagged a post",
	models.VerbNewFollower:  "%s started following you",
	models.VerbNewMember:    "%s joined the community",
	models.VerbNewComment:   "%s commented on your post",
	models.VerbReply:        "%s replied to you",
	models.VerbNewSibling:   "%s also commented on a post you commented on",
	models.VerbSend:         "%s sent you a message",
	models.VerbFollowUp:     "%s followed up on their message",
}

// Describe renders the one-line summary and in-app link of a notification
func Describe(n models.Notification, actorName string) (text, link string) {
	format, ok := verbText[n.Verb]
	if !ok {
		format = "%s sent you a notification"
	}
	text = fmt.Sprintf(format, actorName)
	switch n.ObjectType {
	case models.ObjectTypeUser:
		link = fmt.Sprintf("/users/%d", n.ObjectID)
	case models.ObjectTypeComment:
		link = fmt.Sprintf("/comments/%d", n.ObjectID)
	case models.ObjectTypeMessage:
		link = fmt.Sprintf("/messages/%d", n.ObjectID)
	default:
		link = fmt.Sprintf("/activities/%s/%d", n.ObjectType, n.ObjectID)
	}
	return text, link
}

func displayName(u *models.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// EmailNotifier mails notifications to recipients with an address on file
type EmailNotifier struct {
	users  UserReader
	mailer email.EmailService
	logger zerolog.Logger
}

// NewEmailNotifier creates an EmailNotifier
func NewEmailNotifier(users UserReader, mailer email.EmailService, logger zerolog.Logger) *EmailNotifier {
	return &EmailNotifier{users: users, mailer: mailer, logger: logger}
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) Send(ctx context.Context, n models.Notification) error {
	recipient, err := e.users.GetUserByID(ctx, n.RecipientID)
	if err != nil {
		return fmt.Errorf("error loading recipient: %w", err)
	}
	if recipient.Email == "" || !recipient.IsActive {
		return nil
	}
	actor, err := e.users.GetUserByID(ctx, n.ActorID)
	if err != nil {
		return fmt.Errorf("error loading actor: %w", err)
	}

	text, link := Describe(n, displayName(actor))
	return e.mailer.SendNotificationEmail(recipient.Email, displayName(recipient), text, text, link)
}

// PushNotifier sends notifications to the recipient's registered devices
type PushNotifier struct {
	users  UserReader
	tokens TokenStore
	client push.Client
	logger zerolog.Logger
}

// NewPushNotifier creates a PushNotifier
func NewPushNotifier(users UserReader, tokens TokenStore, client push.Client, logger zerolog.Logger) *PushNotifier {
	return &PushNotifier{users: users, tokens: tokens, client: client, logger: logger}
}

func (p *PushNotifier) Name() string { return "push" }

func (p *PushNotifier) Send(ctx context.Context, n models.Notification) error {
	tokens, err := p.tokens.TokensForUser(ctx, n.RecipientID)
	if err != nil {
		return fmt.Errorf("error loading push tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}
	actor, err := p.users.GetUserByID(ctx, n.ActorID)
	if err != nil {
		return fmt.Errorf("error loading actor: %w", err)
	}

	text, link := Describe(n, displayName(actor))
	stale, sendErr := p.client.Send(ctx, tokens, push.Message{
		Title: text,
		Body:  text,
		Data: map[string]string{
			"verb": string(n.Verb),
			"link": link,
		},
	})
	if len(stale) > 0 {
		if err := p.tokens.DeleteTokens(ctx, stale); err != nil {
			p.logger.Warn().Err(err).Int("tokens", len(stale)).Msg("Failed to prune stale push tokens")
		}
	}
	return sendErr
}
