package dto

import (
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/pkg/feed"
)

// FeedItemResponse is one entry of a merged feed. Exactly one of Activity,
// Comment and Message is set, depending on Type.
type FeedItemResponse struct {
	Type     string            `json:"type" example:"event"`
	ID       int64             `json:"id" example:"42"`
	Activity *ActivityResponse `json:"activity,omitempty"`
	Comment  *CommentResponse  `json:"comment,omitempty"`
	Message  *MessageResponse  `json:"message,omitempty"`
}

// FeedPageResponse is one page of a merged feed
type FeedPageResponse struct {
	Items      []FeedItemResponse `json:"items"`
	Pagination PaginationInfo     `json:"pagination"`
}

// FromFeedPage converts a hydrated feed page
func FromFeedPage(p *feed.Page) FeedPageResponse {
	resp := FeedPageResponse{
		Items: make([]FeedItemResponse, 0, len(p.Items)),
		Pagination: PaginationInfo{
			CurrentPage: p.Number,
			TotalPages:  p.TotalPages(),
			PageSize:    p.Size,
			TotalItems:  p.TotalCount,
			HasNext:     p.HasNext,
			HasPrev:     p.HasPrev,
		},
	}
	for _, item := range p.Items {
		entry := FeedItemResponse{Type: item.Type, ID: item.ID}
		switch obj := item.Object.(type) {
		case *models.Activity:
			a := FromActivity(obj)
			entry.Activity = &a
		case *models.Comment:
			c := FromComments([]models.Comment{*obj})[0]
			entry.Comment = &c
		case *models.Message:
			m := FromMessage(obj)
			entry.Message = &m
		default:
			continue
		}
		resp.Items = append(resp.Items, entry)
	}
	return resp
}
