package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/app/models/dto"
	"github.com/yigit/communityhub/internal/app/services"
	"github.com/yigit/communityhub/internal/middleware"
	"github.com/yigit/communityhub/internal/pkg/helpers"
)

// CommunityController handles communities and memberships
type CommunityController struct {
	communityService services.CommunityService
	socialService    services.SocialService
}

// NewCommunityController creates a new CommunityController
func NewCommunityController(communityService services.CommunityService, socialService services.SocialService) *CommunityController {
	return &CommunityController{
		communityService: communityService,
		socialService:    socialService,
	}
}

// ListCommunities handles listing every community
// @Summary List communities
// @Tags communities
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.CommunityResponse}
// @Router /communities [get]
func (c *CommunityController) ListCommunities(ctx *gin.Context) {
	communities, err := c.communityService.List(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	resp := make([]dto.CommunityResponse, 0, len(communities))
	for i := range communities {
		resp = append(resp, dto.FromCommunity(&communities[i]))
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// GetCommunity handles retrieving a community
// @Summary Get a community
// @Tags communities
// @Produce json
// @Security BearerAuth
// @Param communityId path int true "Community ID"
// @Success 200 {object} dto.APIResponse{data=dto.CommunityResponse}
// @Failure 404 {object} dto.ErrorResponse "Community not found"
// @Router /communities/{communityId} [get]
func (c *CommunityController) GetCommunity(ctx *gin.Context) {
	id, ok := helpers.ParseIDParam(ctx, "communityId")
	if !ok {
		return
	}
	community, err := c.communityService.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromCommunity(community)))
}

// CreateCommunity handles creating a community
// @Summary Create a community
// @Description The caller becomes the community's first admin.
// @Tags communities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCommunityRequest true "Community"
// @Success 201 {object} dto.APIResponse{data=dto.CommunityResponse}
// @Failure 409 {object} dto.ErrorResponse "Domain already taken"
// @Router /communities [post]
func (c *CommunityController) CreateCommunity(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req dto.CreateCommunityRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	community, err := c.communityService.Create(ctx.Request.Context(), userID, &models.Community{
		Name:        req.Name,
		Domain:      req.Domain,
		Description: req.Description,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.FromCommunity(community)))
}

// JoinCommunity handles joining a community
// @Summary Join a community
// @Tags communities
// @Produce json
// @Security BearerAuth
// @Param communityId path int true "Community ID"
// @Success 201 {object} dto.APIResponse{data=dto.MembershipResponse}
// @Failure 409 {object} dto.ErrorResponse "Already a member"
// @Router /communities/{communityId}/join [post]
func (c *CommunityController) JoinCommunity(ctx *gin.Context) {
	userID, communityID, ok := inboxParams(ctx)
	if !ok {
		return
	}
	m, err := c.socialService.Join(ctx.Request.Context(), communityID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.FromMembership(m)))
}

// LeaveCommunity handles leaving a community
// @Summary Leave a community
// @Tags communities
// @Security BearerAuth
// @Param communityId path int true "Community ID"
// @Success 204 "Left"
// @Failure 403 {object} dto.ErrorResponse "Not a member"
// @Router /communities/{communityId}/join [delete]
func (c *CommunityController) LeaveCommunity(ctx *gin.Context) {
	userID, communityID, ok := inboxParams(ctx)
	if !ok {
		return
	}
	if err := c.socialService.Leave(ctx.Request.Context(), communityID, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// FollowUser handles following a member of the community
// @Summary Follow a user
// @Tags social
// @Security BearerAuth
// @Param communityId path int true "Community ID"
// @Param userId path int true "User to follow"
// @Success 204 "Following"
// @Failure 403 {object} dto.ErrorResponse "Blocked or not a member"
// @Router /communities/{communityId}/follow/{userId} [post]
func (c *CommunityController) FollowUser(ctx *gin.Context) {
	userID, communityID, ok := inboxParams(ctx)
	if !ok {
		return
	}
	followedID, ok := helpers.ParseIDParam(ctx, "userId")
	if !ok {
		return
	}
	if err := c.socialService.FollowUser(ctx.Request.Context(), communityID, userID, followedID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// UnfollowUser handles unfollowing a user
// @Summary Unfollow a user
// @Tags social
// @Security BearerAuth
// @Param communityId path int true "Community ID"
// @Param userId path int true "User to unfollow"
// @Success 204 "Unfollowed"
// @Router /communities/{communityId}/follow/{userId} [delete]
func (c *CommunityController) UnfollowUser(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	followedID, ok := helpers.ParseIDParam(ctx, "userId")
	if !ok {
		return
	}
	if err := c.socialService.UnfollowUser(ctx.Request.Context(), userID, followedID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
