package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/yigit/communityhub/internal/pkg/markup"
)

// ActivityType discriminates the concrete content kind of an activity
type ActivityType string

const (
	ActivityTypePost  ActivityType = "post"
	ActivityTypeEvent ActivityType = "event"
	ActivityTypePhoto ActivityType = "photo"
	ActivityTypePoll  ActivityType = "poll"
)

// ActivityTypes lists every content kind sharing the activity lifecycle
var ActivityTypes = []ActivityType{
	ActivityTypePost,
	ActivityTypeEvent,
	ActivityTypePhoto,
	ActivityTypePoll,
}

// ParseActivityType validates a type tag coming from a request path
func ParseActivityType(s string) (ActivityType, error) {
	t := ActivityType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown activity type %q", s)
	}
	return t, nil
}

// Valid reports whether t is one of the known content kinds
func (t ActivityType) Valid() bool {
	for _, known := range ActivityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Table returns the table holding activities of this kind
func (t ActivityType) Table() string {
	return string(t) + "s"
}

// ActivityState is derived from the lifecycle timestamps
type ActivityState string

const (
	StateDraft     ActivityState = "draft"
	StatePublished ActivityState = "published"
	StateDeleted   ActivityState = "deleted"
)

// ActivityRef identifies an activity across kinds
type ActivityRef struct {
	Type ActivityType `json:"type"`
	ID   int64        `json:"id"`
}

func (r ActivityRef) String() string {
	return fmt.Sprintf("%s:%d", r.Type, r.ID)
}

// Activity holds the fields shared by every content kind. Kind specific fields
// live in Details.
type Activity struct {
	ID          int64        `json:"id" db:"id"`
	Type        ActivityType `json:"type" db:"-"`
	OwnerID     int64        `json:"ownerId" db:"owner_id"`
	EditorID    *int64       `json:"editorId,omitempty" db:"editor_id"`
	CommunityID int64        `json:"communityId" db:"community_id"`

	Title       string  `json:"title" db:"title"`
	Description string  `json:"description" db:"description"`
	Hashtags    string  `json:"hashtags" db:"hashtags"`
	Mentions    string  `json:"mentions" db:"mentions"`
	Details     Details `json:"details,omitempty" db:"details"`

	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	EditedAt    *time.Time `json:"editedAt,omitempty" db:"edited_at"`
	PublishedAt *time.Time `json:"publishedAt,omitempty" db:"published_at"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`

	ParentID  *int64 `json:"parentId,omitempty" db:"parent_id"`
	IsReshare bool   `json:"isReshare" db:"is_reshare"`
	IsPinned  bool   `json:"isPinned" db:"is_pinned"`

	// Loaded alongside the row, never written
	ParentOwnerID *int64         `json:"parentOwnerId,omitempty" db:"-"`
	Answers       []PollAnswer   `json:"answers,omitempty" db:"-"`
	Stats         *ActivityStats `json:"stats,omitempty" db:"-"`
}

// ActivityStats holds aggregates computed at read time
type ActivityStats struct {
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Reshares int `json:"reshares"`
}

// Ref returns the cross-kind identity of the activity
func (a *Activity) Ref() ActivityRef {
	return ActivityRef{Type: a.Type, ID: a.ID}
}

// State derives the lifecycle state from the timestamps
func (a *Activity) State() ActivityState {
	switch {
	case a.DeletedAt != nil:
		return StateDeleted
	case a.PublishedAt != nil:
		return StatePublished
	default:
		return StateDraft
	}
}

// IsOwner reports whether userID created the activity
func (a *Activity) IsOwner(userID int64) bool {
	return a.OwnerID == userID
}

// RootID returns the id of the original a reshare points at, or the activity's own id
func (a *Activity) RootID() int64 {
	if a.IsReshare && a.ParentID != nil {
		return *a.ParentID
	}
	return a.ID
}

// ExtractMentions returns usernames mentioned in the description, mentions field and title
func (a *Activity) ExtractMentions() []string {
	return markup.MentionsIn(a.Description, a.Mentions, a.Title)
}

// ExtractHashtags returns hashtags found in the description, hashtags field and title
func (a *Activity) ExtractHashtags() []string {
	return markup.HashtagsIn(a.Description, a.Hashtags, a.Title)
}

// Snapshot captures the fields whose changes drive update notifications
func (a *Activity) Snapshot() TrackedFields {
	return TrackedFields{
		Title:       a.Title,
		Description: a.Description,
		Hashtags:    a.Hashtags,
		Mentions:    a.Mentions,
	}
}

// CopyResharedFields copies the reshared subset of a onto target
func (a *Activity) CopyResharedFields(target *Activity) {
	target.Title = a.Title
	target.Description = a.Description
	target.Hashtags = a.Hashtags
	target.Mentions = a.Mentions
	target.Details = a.Details
}

// TrackedFields is the last persisted state of the text fields
type TrackedFields struct {
	Title       string
	Description string
	Hashtags    string
	Mentions    string
}

// MentionsChanged reports a change of title, description or mentions
func (t TrackedFields) MentionsChanged(current TrackedFields) bool {
	return t.Title != current.Title ||
		t.Description != current.Description ||
		t.Mentions != current.Mentions
}

// HashtagsChanged reports a change of title, description or hashtags
func (t TrackedFields) HashtagsChanged(current TrackedFields) bool {
	return t.Title != current.Title ||
		t.Description != current.Description ||
		t.Hashtags != current.Hashtags
}

// PollAnswer is one choice of a poll
type PollAnswer struct {
	ID          int64  `json:"id" db:"id"`
	PollID      int64  `json:"pollId" db:"poll_id"`
	Description string `json:"description" db:"description"`
	Votes       int    `json:"votes" db:"-"`
}

// Flag is a report raised against an activity
type Flag struct {
	ID        int64       `json:"id" db:"id"`
	Activity  ActivityRef `json:"activity" db:"-"`
	UserID    int64       `json:"userId" db:"user_id"`
	Reason    string      `json:"reason" db:"reason"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
}

// Details is the kind specific payload of an activity
type Details interface {
	Kind() ActivityType
}

// PostDetails holds link fields of a post
type PostDetails struct {
	URL string `json:"url,omitempty"`
}

// EventDetails holds schedule and venue fields of an event
type EventDetails struct {
	StartsAt     *time.Time `json:"startsAt,omitempty"`
	EndsAt       *time.Time `json:"endsAt,omitempty"`
	Timezone     string     `json:"timezone,omitempty"`
	Venue        string     `json:"venue,omitempty"`
	Address      string     `json:"address,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	TicketPrice  string     `json:"ticketPrice,omitempty"`
	TicketVendor string     `json:"ticketVendor,omitempty"`
	URL          string     `json:"url,omitempty"`
}

// PhotoDetails references an externally stored image
type PhotoDetails struct {
	Image       string `json:"image"`
	Artist      string `json:"artist,omitempty"`
	OriginalURL string `json:"originalUrl,omitempty"`
	CCLicense   string `json:"ccLicense,omitempty"`
}

// PollDetails holds poll settings; answers are stored separately
type PollDetails struct {
	AllowVoting bool `json:"allowVoting"`
}

func (PostDetails) Kind() ActivityType  { return ActivityTypePost }
func (EventDetails) Kind() ActivityType { return ActivityTypeEvent }
func (PhotoDetails) Kind() ActivityType { return ActivityTypePhoto }
func (PollDetails) Kind() ActivityType  { return ActivityTypePoll }

// DecodeDetails unmarshals the stored payload of the given kind. Empty input
// yields the zero payload.
func DecodeDetails(kind ActivityType, raw []byte) (Details, error) {
	var target Details
	switch kind {
	case ActivityTypePost:
		d := PostDetails{}
		if err := unmarshalDetails(raw, &d); err != nil {
			return nil, err
		}
		target = d
	case ActivityTypeEvent:
		d := EventDetails{}
		if err := unmarshalDetails(raw, &d); err != nil {
			return nil, err
		}
		target = d
	case ActivityTypePhoto:
		d := PhotoDetails{}
		if err := unmarshalDetails(raw, &d); err != nil {
			return nil, err
		}
		target = d
	case ActivityTypePoll:
		d := PollDetails{AllowVoting: true}
		if err := unmarshalDetails(raw, &d); err != nil {
			return nil, err
		}
		target = d
	default:
		return nil, fmt.Errorf("unknown activity type %q", kind)
	}
	return target, nil
}

// EncodeDetails marshals a payload for storage; nil encodes as an empty object
func EncodeDetails(d Details) ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d)
}

func unmarshalDetails(raw []byte, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("error decoding activity details: %w", err)
	}
	return nil
}

// Comment is a reply attached to an activity. ActivityID is nil once the
// activity was deleted and the comment detached. ParentID points at the
// comment being answered, if any.
type Comment struct {
	ID           int64        `json:"id" db:"id"`
	OwnerID      int64        `json:"ownerId" db:"owner_id"`
	CommunityID  int64        `json:"communityId" db:"community_id"`
	ActivityType ActivityType `json:"activityType" db:"activity_type"`
	ActivityID   *int64       `json:"activityId,omitempty" db:"activity_id"`
	ParentID     *int64       `json:"parentId,omitempty" db:"parent_id"`
	Content      string       `json:"content" db:"content"`
	CreatedAt    time.Time    `json:"createdAt" db:"created_at"`
}

// ExtractMentions returns usernames mentioned in the comment
func (c *Comment) ExtractMentions() []string {
	return markup.MentionsIn(c.Content)
}
