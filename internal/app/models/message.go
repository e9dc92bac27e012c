package models

import "time"

// Message is a private message between two members of a community. Each side
// hides it independently; the row is removed once both sides did.
type Message struct {
	ID                 int64      `json:"id" db:"id"`
	CommunityID        int64      `json:"communityId" db:"community_id"`
	SenderID           int64      `json:"senderId" db:"sender_id"`
	RecipientID        int64      `json:"recipientId" db:"recipient_id"`
	ParentID           *int64     `json:"parentId,omitempty" db:"parent_id"`
	Message            string     `json:"message" db:"message"`
	CreatedAt          time.Time  `json:"createdAt" db:"created_at"`
	ReadAt             *time.Time `json:"readAt,omitempty" db:"read_at"`
	SenderDeletedAt    *time.Time `json:"-" db:"sender_deleted_at"`
	RecipientDeletedAt *time.Time `json:"-" db:"recipient_deleted_at"`
}

// AccessibleTo reports whether userID is a party to the message and has not hidden it
func (m *Message) AccessibleTo(userID int64) bool {
	return (m.SenderID == userID && m.SenderDeletedAt == nil) ||
		(m.RecipientID == userID && m.RecipientDeletedAt == nil)
}

// OtherParty returns the recipient when userID sent the message, otherwise the sender
func (m *Message) OtherParty(userID int64) int64 {
	if userID == m.SenderID {
		return m.RecipientID
	}
	return m.SenderID
}
