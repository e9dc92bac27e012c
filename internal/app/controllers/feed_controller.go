package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/communityhub/internal/app/models/dto"
	"github.com/yigit/communityhub/internal/app/services"
	"github.com/yigit/communityhub/internal/middleware"
	"github.com/yigit/communityhub/internal/pkg/feed"
	"github.com/yigit/communityhub/internal/pkg/helpers"
)

// FeedController serves the merged activity streams of a community
type FeedController struct {
	feedService services.FeedService
}

// NewFeedController creates a new FeedController
func NewFeedController(feedService services.FeedService) *FeedController {
	return &FeedController{feedService: feedService}
}

type feedQuery func(ctx *gin.Context, communityID, userID int64, page, size int) (*feed.Page, error)

func (c *FeedController) serve(ctx *gin.Context, query feedQuery) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	communityID, ok := helpers.ParseIDParam(ctx, "communityId")
	if !ok {
		return
	}
	page, size := helpers.ParsePaginationParams(ctx)

	p, err := query(ctx, communityID, userID, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromFeedPage(p)))
}

// Stream handles the community feed
// @Summary Community feed
// @Description Published activities of every kind, pinned first then newest first. Activities of users in a block relation with the caller are hidden.
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param communityId path int true "Community ID"
// @Param following query bool false "Only the caller's and followed users' activities"
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param size query int false "Page size" minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=dto.FeedPageResponse}
// @Failure 403 {object} dto.ErrorResponse "Not a member of the community"
// @Router /communities/{communityId}/feed [get]
func (c *FeedController) Stream(ctx *gin.Context) {
	following := ctx.Query("following") == "true"
	c.serve(ctx, func(ctx *gin.Context, communityID, userID int64, page, size int) (*feed.Page, error) {
		return c.feedService.Stream(ctx.Request.Context(), communityID, userID, following, page, size)
	})
}

// Timeline handles the chronological feed
// @Summary Community timeline
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param communityId path int true "Community ID"
// @Param order query string false "Publication order" Enums(asc, desc) default(desc)
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param size query int false "Page size" minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=dto.FeedPageResponse}
// @Router /communities/{communityId}/timeline [get]
func (c *FeedController) Timeline(ctx *gin.Context) {
	ascending := ctx.Query("order") == "asc"
	c.serve(ctx, func(ctx *gin.Context, communityID, userID int64, page, size int) (*feed.Page, error) {
		return c.feedService.Timeline(ctx.Request.Context(), communityID, userID, ascending, page, size)
	})
}

// Drafts handles listing the caller's drafts
// @Summary My drafts
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param communityId path int true "Community ID"
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param size query int false "Page size" minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=dto.FeedPageResponse}
// @Router /communities/{communityId}/drafts [get]
func (c *FeedController) Drafts(ctx *gin.Context) {
	c.serve(ctx, func(ctx *gin.Context, communityID, userID int64, page, size int) (*feed.Page, error) {
		return c.feedService.Drafts(ctx.Request.Context(), communityID, userID, page, size)
	})
}

// Search handles full text search over published activities
// @Summary Search activities
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param communityId path int true "Community ID"
// @Param q query string true "Search terms"
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param size query int false "Page size" minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=dto.FeedPageResponse}
// @Failure 400 {object} dto.ErrorResponse "Missing query"
// @Router /communities/{communityId}/search [get]
func (c *FeedController) Search(ctx *gin.Context) {
	q := ctx.Query("q")
	c.serve(ctx, func(ctx *gin.Context, communityID, userID int64, page, size int) (*feed.Page, error) {
		return c.feedService.Search(ctx.Request.Context(), communityID, userID, q, page, size)
	})
}

// Comments handles the latest comments of a community
// @Summary Community comments
// @Description Comments on published activities, newest first. Comments by users in a block relation with the caller are hidden.
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param communityId path int true "Community ID"
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param size query int false "Page size" minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=dto.FeedPageResponse}
// @Router /communities/{communityId}/comments [get]
func (c *FeedController) Comments(ctx *gin.Context) {
	c.serve(ctx, func(ctx *gin.Context, communityID, userID int64, page, size int) (*feed.Page, error) {
		return c.feedService.Comments(ctx.Request.Context(), communityID, userID, page, size)
	})
}

// Profile handles the stream of one member
// @Summary Member stream
// @Description Published activities and comments of one member, newest first
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param communityId path int true "Community ID"
// @Param userId path int true "Member ID"
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param size query int false "Page size" minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=dto.FeedPageResponse}
// @Failure 403 {object} dto.ErrorResponse "Caller or member outside the community"
// @Router /communities/{communityId}/members/{userId}/stream [get]
func (c *FeedController) Profile(ctx *gin.Context) {
	ownerID, ok := helpers.ParseIDParam(ctx, "userId")
	if !ok {
		return
	}
	c.serve(ctx, func(ctx *gin.Context, communityID, userID int64, page, size int) (*feed.Page, error) {
		return c.feedService.Profile(ctx.Request.Context(), communityID, userID, ownerID, page, size)
	})
}
