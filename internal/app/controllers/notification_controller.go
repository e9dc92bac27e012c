package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/communityhub/internal/app/models/dto"
	"github.com/yigit/communityhub/internal/app/services"
	"github.com/yigit/communityhub/internal/middleware"
	"github.com/yigit/communityhub/internal/pkg/helpers"
)

// NotificationController serves the caller's inbox
type NotificationController struct {
	notificationService services.NotificationService
}

// NewNotificationController creates a new NotificationController
func NewNotificationController(notificationService services.NotificationService) *NotificationController {
	return &NotificationController{notificationService: notificationService}
}

func inboxParams(ctx *gin.Context) (userID, communityID int64, ok bool) {
	if userID, ok = currentUser(ctx); !ok {
		return 0, 0, false
	}
	communityID, ok = helpers.ParseIDParam(ctx, "communityId")
	return userID, communityID, ok
}

// ListNotifications handles listing the inbox
// @Summary List notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param communityId path int true "Community ID"
// @Param unread query bool false "Only unread notifications"
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param size query int false "Page size" minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=dto.NotificationListResponse}
// @Router /communities/{communityId}/notifications [get]
func (c *NotificationController) ListNotifications(ctx *gin.Context) {
	userID, communityID, ok := inboxParams(ctx)
	if !ok {
		return
	}
	page, size := helpers.ParsePaginationParams(ctx)

	p, err := c.notificationService.List(ctx.Request.Context(), communityID, userID, ctx.Query("unread") == "true", page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NotificationListResponse{
		Notifications: dto.FromNotifications(p.Items),
		Pagination:    helpers.NewPaginationInfo(p.TotalCount, p.Page, p.Size),
	}))
}

// UnreadCount handles the unread badge count
// @Summary Unread notification count
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param communityId path int true "Community ID"
// @Success 200 {object} dto.APIResponse{data=dto.UnreadCountResponse}
// @Router /communities/{communityId}/notifications/unread-count [get]
func (c *NotificationController) UnreadCount(ctx *gin.Context) {
	userID, communityID, ok := inboxParams(ctx)
	if !ok {
		return
	}

	n, err := c.notificationService.UnreadCount(ctx.Request.Context(), communityID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.UnreadCountResponse{Unread: n}))
}

// MarkRead handles marking one notification as read
// @Summary Mark a notification as read
// @Tags notifications
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 204 "Marked"
// @Failure 404 {object} dto.ErrorResponse "Notification not found"
// @Router /notifications/{id}/read [post]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := helpers.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.notificationService.MarkRead(ctx.Request.Context(), id, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// MarkAllRead handles marking the whole inbox as read
// @Summary Mark all notifications as read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param communityId path int true "Community ID"
// @Success 200 {object} dto.APIResponse{data=dto.AffectedResponse}
// @Router /communities/{communityId}/notifications/read [post]
func (c *NotificationController) MarkAllRead(ctx *gin.Context) {
	userID, communityID, ok := inboxParams(ctx)
	if !ok {
		return
	}

	n, err := c.notificationService.MarkAllRead(ctx.Request.Context(), communityID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.AffectedResponse{Affected: n}))
}

// ClearNotifications handles deleting the inbox
// @Summary Clear notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param communityId path int true "Community ID"
// @Success 200 {object} dto.APIResponse{data=dto.AffectedResponse}
// @Router /communities/{communityId}/notifications [delete]
func (c *NotificationController) ClearNotifications(ctx *gin.Context) {
	userID, communityID, ok := inboxParams(ctx)
	if !ok {
		return
	}

	n, err := c.notificationService.Clear(ctx.Request.Context(), communityID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.AffectedResponse{Affected: n}))
}
