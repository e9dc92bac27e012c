package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/communityhub/internal/app/models/dto"
	"github.com/yigit/communityhub/internal/app/services"
	"github.com/yigit/communityhub/internal/middleware"
	"github.com/yigit/communityhub/internal/pkg/helpers"
)

// UserController handles the caller's tag follows, blocks and devices
type UserController struct {
	socialService services.SocialService
}

// NewUserController creates a new UserController
func NewUserController(socialService services.SocialService) *UserController {
	return &UserController{socialService: socialService}
}

// FollowTag handles following a hashtag
// @Summary Follow a hashtag
// @Tags social
// @Security BearerAuth
// @Param tag path string true "Hashtag without #"
// @Success 204 "Following"
// @Failure 400 {object} dto.ErrorResponse "Invalid hashtag"
// @Router /tags/{tag}/follow [post]
func (c *UserController) FollowTag(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	req := dto.FollowTagRequest{Tag: ctx.Param("tag")}
	if !middleware.Validate(ctx, &req) {
		return
	}
	if err := c.socialService.FollowTag(ctx.Request.Context(), userID, req.Tag); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// UnfollowTag handles unfollowing a hashtag
// @Summary Unfollow a hashtag
// @Tags social
// @Security BearerAuth
// @Param tag path string true "Hashtag without #"
// @Success 204 "Unfollowed"
// @Router /tags/{tag}/follow [delete]
func (c *UserController) UnfollowTag(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	req := dto.FollowTagRequest{Tag: ctx.Param("tag")}
	if !middleware.Validate(ctx, &req) {
		return
	}
	if err := c.socialService.UnfollowTag(ctx.Request.Context(), userID, req.Tag); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// BlockUser handles blocking a user
// @Summary Block a user
// @Description Removes follows in both directions and hides each user's content and notifications from the other.
// @Tags social
// @Security BearerAuth
// @Param userId path int true "User to block"
// @Success 204 "Blocked"
// @Router /users/{userId}/block [post]
func (c *UserController) BlockUser(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	blockedID, ok := helpers.ParseIDParam(ctx, "userId")
	if !ok {
		return
	}
	if err := c.socialService.Block(ctx.Request.Context(), userID, blockedID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// UnblockUser handles lifting a block
// @Summary Unblock a user
// @Tags social
// @Security BearerAuth
// @Param userId path int true "User to unblock"
// @Success 204 "Unblocked"
// @Router /users/{userId}/block [delete]
func (c *UserController) UnblockUser(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	blockedID, ok := helpers.ParseIDParam(ctx, "userId")
	if !ok {
		return
	}
	if err := c.socialService.Unblock(ctx.Request.Context(), userID, blockedID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// RegisterPushToken handles registering a device for push notifications
// @Summary Register a push device
// @Tags social
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.PushTokenRequest true "Device token"
// @Success 201 {object} dto.APIResponse{data=dto.PushTokenResponse}
// @Router /push-subscriptions [post]
func (c *UserController) RegisterPushToken(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req dto.PushTokenRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	sub, err := c.socialService.RegisterPushToken(ctx.Request.Context(), userID, req.Token, req.Platform)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.PushTokenResponse{ID: sub.ID, Platform: sub.Platform}))
}
