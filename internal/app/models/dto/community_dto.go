package dto

import (
	"time"

	"github.com/yigit/communityhub/internal/app/models"
)

// CreateCommunityRequest represents community creation data
type CreateCommunityRequest struct {
	Name        string `json:"name" binding:"required,max=100" example:"Gophers"`
	Domain      string `json:"domain" binding:"required,max=255,communitydomain" example:"gophers.example.org"`
	Description string `json:"description" binding:"max=2000"`
}

// CommunityResponse represents basic community information
type CommunityResponse struct {
	ID          int64     `json:"id" example:"1"`
	Name        string    `json:"name" example:"Gophers"`
	Domain      string    `json:"domain" example:"gophers.example.org"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FromCommunity converts a models.Community
func FromCommunity(c *models.Community) CommunityResponse {
	return CommunityResponse{
		ID:          c.ID,
		Name:        c.Name,
		Domain:      c.Domain,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
	}
}

// MembershipResponse represents a user's place in a community
type MembershipResponse struct {
	CommunityID int64     `json:"communityId" example:"1"`
	UserID      int64     `json:"userId" example:"7"`
	Role        string    `json:"role" example:"member"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// FromMembership converts a models.Membership
func FromMembership(m *models.Membership) MembershipResponse {
	return MembershipResponse{
		CommunityID: m.CommunityID,
		UserID:      m.UserID,
		Role:        string(m.Role),
		JoinedAt:    m.JoinedAt,
	}
}
