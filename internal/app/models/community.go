package models

import "time"

// Community is the tenant every activity and notification belongs to
type Community struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Domain      string    `json:"domain" db:"domain"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Membership places a user in a community with a role
type Membership struct {
	ID          int64      `json:"id" db:"id"`
	CommunityID int64      `json:"communityId" db:"community_id"`
	UserID      int64      `json:"userId" db:"user_id"`
	Role        MemberRole `json:"role" db:"role"`
	JoinedAt    time.Time  `json:"joinedAt" db:"joined_at"`
}
