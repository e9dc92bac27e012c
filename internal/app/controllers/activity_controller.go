package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/app/models/dto"
	"github.com/yigit/communityhub/internal/app/services"
	"github.com/yigit/communityhub/internal/middleware"
	"github.com/yigit/communityhub/internal/pkg/apperrors"
	"github.com/yigit/communityhub/internal/pkg/helpers"
)

// ActivityController handles the lifecycle of posts, events, photos and polls
type ActivityController struct {
	activityService services.ActivityService
}

// NewActivityController creates a new ActivityController
func NewActivityController(activityService services.ActivityService) *ActivityController {
	return &ActivityController{activityService: activityService}
}

// activityRef reads the :type and :id path parameters
func activityRef(ctx *gin.Context) (models.ActivityRef, bool) {
	kind, err := models.ParseActivityType(ctx.Param("type"))
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid activity type").
			WithField("type").
			WithDetails("type must be one of post, event, photo, poll")
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return models.ActivityRef{}, false
	}
	id, ok := helpers.ParseIDParam(ctx, "id")
	if !ok {
		return models.ActivityRef{}, false
	}
	return models.ActivityRef{Type: kind, ID: id}, true
}

// currentUser reads the authenticated user set by the JWT middleware
func currentUser(ctx *gin.Context) (int64, bool) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
	}
	return userID, ok
}

func toFields(kind models.ActivityType, req dto.ActivityFieldsRequest) (services.ActivityFields, error) {
	fields := services.ActivityFields{Title: req.Title, Description: req.Description}
	if len(req.Details) > 0 {
		details, err := models.DecodeDetails(kind, req.Details)
		if err != nil {
			return fields, apperrors.NewBadRequestError("invalid details for " + string(kind))
		}
		fields.Details = details
	}
	return fields, nil
}

// CreateActivity handles creating a draft or published activity
// @Summary Create an activity
// @Description Creates a post, event, photo or poll in the community. Drafts are created unless publish is set.
// @Tags activities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param communityId path int true "Community ID"
// @Param request body dto.CreateActivityRequest true "Activity"
// @Success 201 {object} dto.APIResponse{data=dto.ActivityResponse} "Activity created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 403 {object} dto.ErrorResponse "Not a member of the community"
// @Router /communities/{communityId}/activities [post]
func (c *ActivityController) CreateActivity(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	communityID, ok := helpers.ParseIDParam(ctx, "communityId")
	if !ok {
		return
	}
	var req dto.CreateActivityRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	kind := models.ActivityType(req.Type)
	fields, err := toFields(kind, req.ActivityFieldsRequest)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	a, err := c.activityService.Create(ctx.Request.Context(), userID, services.CreateActivityInput{
		Type:        kind,
		CommunityID: communityID,
		Fields:      fields,
		Answers:     req.Answers,
		Publish:     req.Publish,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.FromActivity(a)))
}

// GetActivity handles retrieving one activity
// @Summary Get an activity
// @Tags activities
// @Produce json
// @Security BearerAuth
// @Param type path string true "Activity type" Enums(post, event, photo, poll)
// @Param id path int true "Activity ID"
// @Success 200 {object} dto.APIResponse{data=dto.ActivityResponse}
// @Failure 404 {object} dto.ErrorResponse "Activity not found"
// @Router /activities/{type}/{id} [get]
func (c *ActivityController) GetActivity(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	ref, ok := activityRef(ctx)
	if !ok {
		return
	}

	a, err := c.activityService.Get(ctx.Request.Context(), ref, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromActivity(a)))
}

// UpdateActivity handles editing an activity
// @Summary Edit an activity
// @Description Owners and moderators edit published activities; drafts are editable by their owner only. Edits propagate to reshares.
// @Tags activities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param type path string true "Activity type" Enums(post, event, photo, poll)
// @Param id path int true "Activity ID"
// @Param request body dto.UpdateActivityRequest true "Edited fields"
// @Success 200 {object} dto.APIResponse{data=dto.ActivityResponse}
// @Failure 409 {object} dto.ErrorResponse "Activity is deleted"
// @Router /activities/{type}/{id} [put]
func (c *ActivityController) UpdateActivity(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	ref, ok := activityRef(ctx)
	if !ok {
		return
	}
	var req dto.UpdateActivityRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	fields, err := toFields(ref.Type, req.ActivityFieldsRequest)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	a, err := c.activityService.Edit(ctx.Request.Context(), ref, userID, fields, req.Publish)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromActivity(a)))
}

// PublishActivity handles publishing a draft
// @Summary Publish a draft
// @Tags activities
// @Produce json
// @Security BearerAuth
// @Param type path string true "Activity type" Enums(post, event, photo, poll)
// @Param id path int true "Activity ID"
// @Success 200 {object} dto.APIResponse{data=dto.ActivityResponse}
// @Failure 409 {object} dto.ErrorResponse "Activity is not a draft"
// @Router /activities/{type}/{id}/publish [post]
func (c *ActivityController) PublishActivity(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	ref, ok := activityRef(ctx)
	if !ok {
		return
	}

	a, err := c.activityService.Publish(ctx.Request.Context(), ref, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromActivity(a)))
}

// ReshareActivity handles resharing a published activity
// @Summary Reshare an activity
// @Description Reshares always point at the original; a user reshares each original at most once.
// @Tags activities
// @Produce json
// @Security BearerAuth
// @Param type path string true "Activity type" Enums(post, event, photo, poll)
// @Param id path int true "Activity ID"
// @Success 201 {object} dto.APIResponse{data=dto.ActivityResponse}
// @Failure 409 {object} dto.ErrorResponse "Already reshared or not published"
// @Router /activities/{type}/{id}/reshare [post]
func (c *ActivityController) ReshareActivity(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	ref, ok := activityRef(ctx)
	if !ok {
		return
	}

	a, err := c.activityService.Reshare(ctx.Request.Context(), ref, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.FromActivity(a)))
}

// DeleteActivity handles deleting an activity
// @Summary Delete an activity
// @Description The owner deletes permanently unless soft is set. Moderators always soft delete.
// @Tags activities
// @Produce json
// @Security BearerAuth
// @Param type path string true "Activity type" Enums(post, event, photo, poll)
// @Param id path int true "Activity ID"
// @Param soft query bool false "Keep a tombstone instead of removing the row"
// @Success 204 "Deleted"
// @Failure 403 {object} dto.ErrorResponse "Neither owner nor moderator"
// @Router /activities/{type}/{id} [delete]
func (c *ActivityController) DeleteActivity(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	ref, ok := activityRef(ctx)
	if !ok {
		return
	}

	reqCtx := ctx.Request.Context()
	a, err := c.activityService.Get(reqCtx, ref, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if a.IsOwner(userID) && (ctx.Query("soft") != "true" || a.State() == models.StateDraft) {
		err = c.activityService.HardDelete(reqCtx, ref, userID)
	} else {
		err = c.activityService.SoftDelete(reqCtx, ref, userID)
	}
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// PinActivity handles pinning an activity to the top of the community feed
// @Summary Pin an activity
// @Tags activities
// @Security BearerAuth
// @Param type path string true "Activity type" Enums(post, event, photo, poll)
// @Param id path int true "Activity ID"
// @Success 204 "Pinned"
// @Failure 403 {object} dto.ErrorResponse "Moderators only"
// @Router /activities/{type}/{id}/pin [post]
func (c *ActivityController) PinActivity(ctx *gin.Context) {
	c.noContent(ctx, c.activityService.Pin)
}

// UnpinActivity handles unpinning an activity
// @Summary Unpin an activity
// @Tags activities
// @Security BearerAuth
// @Param type path string true "Activity type" Enums(post, event, photo, poll)
// @Param id path int true "Activity ID"
// @Success 204 "Unpinned"
// @Failure 403 {object} dto.ErrorResponse "Moderators only"
// @Router /activities/{type}/{id}/pin [delete]
func (c *ActivityController) UnpinActivity(ctx *gin.Context) {
	c.noContent(ctx, c.activityService.Unpin)
}

func (c *ActivityController) noContent(ctx *gin.Context, op func(context.Context, models.ActivityRef, int64) error) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	ref, ok := activityRef(ctx)
	if !ok {
		return
	}
	if err := op(ctx.Request.Context(), ref, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// LikeActivity handles liking or unliking an activity
// @Summary Like or unlike an activity
// @Tags activities
// @Accept json
// @Security BearerAuth
// @Param type path string true "Activity type" Enums(post, event, photo, poll)
// @Param id path int true "Activity ID"
// @Param request body dto.ReactionRequest true "active=false removes the like"
// @Success 204 "Updated"
// @Router /activities/{type}/{id}/like [post]
func (c *ActivityController) LikeActivity(ctx *gin.Context) {
	c.react(ctx, c.activityService.Like)
}

// BookmarkActivity handles bookmarking an activity
// @Summary Bookmark or unbookmark an activity
// @Tags activities
// @Accept json
// @Security BearerAuth
// @Param type path string true "Activity type" Enums(post, event, photo, poll)
// @Param id path int true "Activity ID"
// @Param request body dto.ReactionRequest true "active=false removes the bookmark"
// @Success 204 "Updated"
// @Router /activities/{type}/{id}/bookmark [post]
func (c *ActivityController) BookmarkActivity(ctx *gin.Context) {
	c.react(ctx, c.activityService.Bookmark)
}

func (c *ActivityController) react(ctx *gin.Context, op func(context.Context, models.ActivityRef, int64, bool) error) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	ref, ok := activityRef(ctx)
	if !ok {
		return
	}
	req := dto.ReactionRequest{Active: true}
	if ctx.Request.ContentLength > 0 && !middleware.BindJSON(ctx, &req) {
		return
	}
	if err := op(ctx.Request.Context(), ref, userID, req.Active); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// FlagActivity handles reporting an activity to the moderators
// @Summary Flag an activity
// @Tags activities
// @Accept json
// @Security BearerAuth
// @Param type path string true "Activity type" Enums(post, event, photo, poll)
// @Param id path int true "Activity ID"
// @Param request body dto.FlagRequest true "Reason"
// @Success 204 "Flagged"
// @Router /activities/{type}/{id}/flag [post]
func (c *ActivityController) FlagActivity(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	ref, ok := activityRef(ctx)
	if !ok {
		return
	}
	var req dto.FlagRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	if err := c.activityService.Flag(ctx.Request.Context(), ref, userID, req.Reason); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// Vote handles casting a vote on a poll
// @Summary Vote on a poll
// @Description Votes on a reshared poll count towards the original. Voting again moves the vote.
// @Tags activities
// @Produce json
// @Security BearerAuth
// @Param id path int true "Poll ID"
// @Param answerId path int true "Answer ID"
// @Success 200 {object} dto.APIResponse{data=dto.ActivityResponse} "Poll with updated counts"
// @Failure 409 {object} dto.ErrorResponse "Voting closed"
// @Router /polls/{id}/answers/{answerId}/vote [post]
func (c *ActivityController) Vote(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	pollID, ok := helpers.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	answerID, ok := helpers.ParseIDParam(ctx, "answerId")
	if !ok {
		return
	}

	poll, err := c.activityService.Vote(ctx.Request.Context(), pollID, answerID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromActivity(poll)))
}

// ListComments handles listing the comments of an activity
// @Summary List comments
// @Tags activities
// @Produce json
// @Security BearerAuth
// @Param type path string true "Activity type" Enums(post, event, photo, poll)
// @Param id path int true "Activity ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.CommentResponse}
// @Router /activities/{type}/{id}/comments [get]
func (c *ActivityController) ListComments(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	ref, ok := activityRef(ctx)
	if !ok {
		return
	}

	comments, err := c.activityService.Comments(ctx.Request.Context(), ref, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromComments(comments)))
}

// AddComment handles commenting on an activity
// @Summary Comment on an activity
// @Tags activities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param type path string true "Activity type" Enums(post, event, photo, poll)
// @Param id path int true "Activity ID"
// @Param request body dto.CommentRequest true "Comment"
// @Success 201 {object} dto.APIResponse{data=dto.CommentResponse}
// @Router /activities/{type}/{id}/comments [post]
func (c *ActivityController) AddComment(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	ref, ok := activityRef(ctx)
	if !ok {
		return
	}
	var req dto.CommentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	comment, err := c.activityService.Comment(ctx.Request.Context(), ref, userID, req.Content, req.ParentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.FromComments([]models.Comment{*comment})[0]))
}
