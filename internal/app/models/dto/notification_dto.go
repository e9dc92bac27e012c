package dto

import (
	"time"

	"github.com/yigit/communityhub/internal/app/models"
)

// NotificationResponse represents one inbox entry
type NotificationResponse struct {
	ID         int64     `json:"id" example:"5"`
	ActorID    int64     `json:"actorId" example:"2"`
	Verb       string    `json:"verb" example:"mention"`
	ObjectType string    `json:"objectType" example:"post"`
	ObjectID   int64     `json:"objectId" example:"42"`
	IsRead     bool      `json:"isRead" example:"false"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NotificationListResponse is one page of an inbox
type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Pagination    PaginationInfo         `json:"pagination"`
}

// UnreadCountResponse carries the unread inbox size
type UnreadCountResponse struct {
	Unread int `json:"unread" example:"3"`
}

// AffectedResponse reports how many rows a bulk operation changed
type AffectedResponse struct {
	Affected int64 `json:"affected" example:"7"`
}

// FromNotifications converts notifications to responses
func FromNotifications(ns []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(ns))
	for _, n := range ns {
		out = append(out, NotificationResponse{
			ID:         n.ID,
			ActorID:    n.ActorID,
			Verb:       string(n.Verb),
			ObjectType: n.ObjectType,
			ObjectID:   n.ObjectID,
			IsRead:     n.IsRead,
			CreatedAt:  n.CreatedAt,
		})
	}
	return out
}
