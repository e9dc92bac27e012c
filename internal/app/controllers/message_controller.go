package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/communityhub/internal/app/models/dto"
	"github.com/yigit/communityhub/internal/app/services"
	"github.com/yigit/communityhub/internal/middleware"
	"github.com/yigit/communityhub/internal/pkg/helpers"
)

// MessageController handles private messages between members
type MessageController struct {
	messageService services.MessageService
}

// NewMessageController creates a new MessageController
func NewMessageController(messageService services.MessageService) *MessageController {
	return &MessageController{messageService: messageService}
}

// SendMessage handles starting a conversation
// @Summary Send a private message
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param communityId path int true "Community ID"
// @Param request body dto.SendMessageRequest true "Message"
// @Success 201 {object} dto.APIResponse{data=dto.MessageResponse}
// @Failure 403 {object} dto.ErrorResponse "Outside the community or blocked"
// @Router /communities/{communityId}/messages [post]
func (c *MessageController) SendMessage(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	communityID, ok := helpers.ParseIDParam(ctx, "communityId")
	if !ok {
		return
	}
	var req dto.SendMessageRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	m, err := c.messageService.Send(ctx.Request.Context(), communityID, userID, req.RecipientID, req.Message)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.FromMessage(m)))
}

// Inbox handles listing received messages
// @Summary Received messages
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param communityId path int true "Community ID"
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param size query int false "Page size" minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=dto.FeedPageResponse}
// @Router /communities/{communityId}/messages/inbox [get]
func (c *MessageController) Inbox(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	communityID, ok := helpers.ParseIDParam(ctx, "communityId")
	if !ok {
		return
	}
	page, size := helpers.ParsePaginationParams(ctx)

	p, err := c.messageService.Inbox(ctx.Request.Context(), communityID, userID, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromFeedPage(p)))
}

// Outbox handles listing sent messages
// @Summary Sent messages
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param communityId path int true "Community ID"
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param size query int false "Page size" minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=dto.FeedPageResponse}
// @Router /communities/{communityId}/messages/outbox [get]
func (c *MessageController) Outbox(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	communityID, ok := helpers.ParseIDParam(ctx, "communityId")
	if !ok {
		return
	}
	page, size := helpers.ParsePaginationParams(ctx)

	p, err := c.messageService.Outbox(ctx.Request.Context(), communityID, userID, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromFeedPage(p)))
}

// GetMessage handles reading one message
// @Summary Read a message
// @Description Marks the message read when the caller is its recipient
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 200 {object} dto.APIResponse{data=dto.MessageResponse}
// @Failure 404 {object} dto.ErrorResponse "Unknown or hidden message"
// @Router /messages/{id} [get]
func (c *MessageController) GetMessage(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := helpers.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	m, err := c.messageService.Get(ctx.Request.Context(), id, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromMessage(m)))
}

// ReplyMessage handles answering a message
// @Summary Reply to a message
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Param request body dto.ReplyMessageRequest true "Reply"
// @Success 201 {object} dto.APIResponse{data=dto.MessageResponse}
// @Router /messages/{id}/reply [post]
func (c *MessageController) ReplyMessage(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := helpers.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.ReplyMessageRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	m, err := c.messageService.Reply(ctx.Request.Context(), id, userID, req.Message)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.FromMessage(m)))
}

// DeleteMessage handles hiding a message for the caller
// @Summary Delete a message
// @Description Hides the message for the caller; it is removed once both parties deleted it
// @Tags messages
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 204 "Deleted"
// @Router /messages/{id} [delete]
func (c *MessageController) DeleteMessage(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := helpers.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.messageService.Delete(ctx.Request.Context(), id, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
