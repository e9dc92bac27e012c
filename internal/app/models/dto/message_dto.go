package dto

import (
	"time"

	"github.com/yigit/communityhub/internal/app/models"
)

// SendMessageRequest starts a conversation with another member
type SendMessageRequest struct {
	RecipientID int64  `json:"recipientId" binding:"required,min=1" example:"2"`
	Message     string `json:"message" binding:"required,max=5000" example:"Are you coming on Tuesday?"`
}

// ReplyMessageRequest answers a message
type ReplyMessageRequest struct {
	Message string `json:"message" binding:"required,max=5000" example:"Yes, see you there"`
}

// MessageResponse represents a private message
type MessageResponse struct {
	ID          int64      `json:"id" example:"5"`
	CommunityID int64      `json:"communityId" example:"1"`
	SenderID    int64      `json:"senderId" example:"3"`
	RecipientID int64      `json:"recipientId" example:"2"`
	ParentID    *int64     `json:"parentId,omitempty" example:"4"`
	Message     string     `json:"message" example:"Are you coming on Tuesday?"`
	CreatedAt   time.Time  `json:"createdAt"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
}

// FromMessage converts a message to its response
func FromMessage(m *models.Message) MessageResponse {
	return MessageResponse{
		ID:          m.ID,
		CommunityID: m.CommunityID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		ParentID:    m.ParentID,
		Message:     m.Message,
		CreatedAt:   m.CreatedAt,
		ReadAt:      m.ReadAt,
	}
}
