package dto

import (
	"encoding/json"
	"time"

	"github.com/yigit/communityhub/internal/app/models"
)

// --- Request DTOs ---

// ActivityFieldsRequest holds the editable fields shared by every activity kind.
// Details is decoded according to the activity type.
type ActivityFieldsRequest struct {
	Title       string          `json:"title" binding:"max=200" example:"Gopher meetup"`
	Description string          `json:"description" binding:"max=10000" example:"See you there @ada #golang"`
	Details     json.RawMessage `json:"details,omitempty" swaggertype:"object"`
}

// CreateActivityRequest represents activity creation data
type CreateActivityRequest struct {
	ActivityFieldsRequest
	Type    string   `json:"type" binding:"required,oneof=post event photo poll" example:"post"`
	Answers []string `json:"answers,omitempty" binding:"omitempty,max=20,dive,required,max=300"`
	Publish bool     `json:"publish" example:"true"`
}

// UpdateActivityRequest represents an edit. Publish moves a draft to published.
type UpdateActivityRequest struct {
	ActivityFieldsRequest
	Publish bool `json:"publish" example:"false"`
}

// FlagRequest reports an activity to the moderators
type FlagRequest struct {
	Reason string `json:"reason" binding:"required,max=500" example:"spam"`
}

// CommentRequest adds a comment to an activity
type CommentRequest struct {
	Content string `json:"content" binding:"required,max=5000" example:"Count me in"`
	// ParentID answers another comment on the same activity
	ParentID *int64 `json:"parentId,omitempty" example:"7"`
}

// ReactionRequest sets or clears a like or bookmark
type ReactionRequest struct {
	Active bool `json:"active" example:"true"`
}

// --- Response DTOs ---

// PollAnswerResponse is one poll choice with its vote count
type PollAnswerResponse struct {
	ID          int64  `json:"id" example:"3"`
	Description string `json:"description" example:"Tuesday"`
	Votes       int    `json:"votes" example:"12"`
}

// ActivityResponse represents a post, event, photo or poll
type ActivityResponse struct {
	ID          int64                 `json:"id" example:"42"`
	Type        string                `json:"type" example:"post"`
	State       string                `json:"state" example:"published"`
	OwnerID     int64                 `json:"ownerId" example:"1"`
	EditorID    *int64                `json:"editorId,omitempty"`
	CommunityID int64                 `json:"communityId" example:"1"`
	Title       string                `json:"title" example:"Gopher meetup"`
	Description string                `json:"description"`
	Hashtags    string                `json:"hashtags" example:"#golang"`
	Mentions    string                `json:"mentions" example:"@ada"`
	Details     models.Details        `json:"details,omitempty" swaggertype:"object"`
	Answers     []PollAnswerResponse  `json:"answers,omitempty"`
	Stats       *models.ActivityStats `json:"stats,omitempty"`
	ParentID    *int64                `json:"parentId,omitempty"`
	IsReshare   bool                  `json:"isReshare"`
	IsPinned    bool                  `json:"isPinned"`
	CreatedAt   time.Time             `json:"createdAt"`
	EditedAt    *time.Time            `json:"editedAt,omitempty"`
	PublishedAt *time.Time            `json:"publishedAt,omitempty"`
	DeletedAt   *time.Time            `json:"deletedAt,omitempty"`
}

// FromActivity converts a models.Activity to an ActivityResponse
func FromActivity(a *models.Activity) ActivityResponse {
	if a == nil {
		return ActivityResponse{}
	}
	resp := ActivityResponse{
		ID:          a.ID,
		Type:        string(a.Type),
		State:       string(a.State()),
		OwnerID:     a.OwnerID,
		EditorID:    a.EditorID,
		CommunityID: a.CommunityID,
		Title:       a.Title,
		Description: a.Description,
		Hashtags:    a.Hashtags,
		Mentions:    a.Mentions,
		Details:     a.Details,
		Stats:       a.Stats,
		ParentID:    a.ParentID,
		IsReshare:   a.IsReshare,
		IsPinned:    a.IsPinned,
		CreatedAt:   a.CreatedAt,
		EditedAt:    a.EditedAt,
		PublishedAt: a.PublishedAt,
		DeletedAt:   a.DeletedAt,
	}
	for _, ans := range a.Answers {
		resp.Answers = append(resp.Answers, PollAnswerResponse{ID: ans.ID, Description: ans.Description, Votes: ans.Votes})
	}
	return resp
}

// CommentResponse represents a comment
type CommentResponse struct {
	ID         int64     `json:"id" example:"9"`
	OwnerID    int64     `json:"ownerId" example:"2"`
	ActivityID *int64    `json:"activityId,omitempty" example:"42"`
	ParentID   *int64    `json:"parentId,omitempty" example:"7"`
	Content    string    `json:"content" example:"Count me in"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FromComments converts comments to responses
func FromComments(comments []models.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for _, c := range comments {
		out = append(out, CommentResponse{
			ID:         c.ID,
			OwnerID:    c.OwnerID,
			ActivityID: c.ActivityID,
			ParentID:   c.ParentID,
			Content:    c.Content,
			CreatedAt:  c.CreatedAt,
		})
	}
	return out
}
