package models

import "time"

// Verb names the reason a notification was sent
type Verb string

const (
	VerbMention      Verb = "mention"
	VerbFollowedUser Verb = "followed_user"
	VerbFollowedTag  Verb = "followed_tag"
	VerbReshare      Verb = "reshare"
	VerbEdit         Verb = "edit"
	VerbDelete       Verb = "delete"
	VerbVote         Verb = "vote"
	VerbFlag         Verb = "flag"
	VerbNewFollower  Verb = "new_follower"
	VerbNewMember    Verb = "new_member"
	VerbNewComment   Verb = "new_comment"
	VerbReply        Verb = "reply"
	VerbNewSibling   Verb = "new_sibling"
	VerbSend         Verb = "send"
	VerbFollowUp     Verb = "follow_up"
)

// Content object types that are not activities
const (
	ObjectTypeUser    = "user"
	ObjectTypeComment = "comment"
	ObjectTypeMessage = "message"
)

// Notification is one persisted inbox entry
type Notification struct {
	ID          int64     `json:"id" db:"id"`
	RecipientID int64     `json:"recipientId" db:"recipient_id"`
	ActorID     int64     `json:"actorId" db:"actor_id"`
	CommunityID int64     `json:"communityId" db:"community_id"`
	Verb        Verb      `json:"verb" db:"verb"`
	ObjectType  string    `json:"objectType" db:"object_type"`
	ObjectID    int64     `json:"objectId" db:"object_id"`
	IsRead      bool      `json:"isRead" db:"is_read"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// InboxRef names one unread counter: a recipient's inbox in a community
type InboxRef struct {
	RecipientID int64
	CommunityID int64
}

// PushSubscription is a device token registered for push delivery
type PushSubscription struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	Platform  string    `json:"platform" db:"platform"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
