// Package controllers handles HTTP request handling
package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/communityhub/internal/app/models"
	"github.com/yigit/communityhub/internal/app/models/dto"
	"github.com/yigit/communityhub/internal/middleware"
	"github.com/yigit/communityhub/internal/pkg/apperrors"
	"github.com/yigit/communityhub/internal/pkg/auth"
)

// UserLookup finds the account a development token is issued for
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// AuthController issues access tokens for existing accounts outside
// production. Accounts and sign-in are owned by the identity provider.
type AuthController struct {
	users      UserLookup
	jwtService *auth.JWTService
	logger     zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(users UserLookup, jwtService *auth.JWTService, logger zerolog.Logger) *AuthController {
	return &AuthController{
		users:      users,
		jwtService: jwtService,
		logger:     logger,
	}
}

// DevToken handles issuing a development access token
// @Summary Issue a development token
// @Description Only mounted when the server does not run in production mode.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.DevTokenRequest true "Account"
// @Success 200 {object} dto.APIResponse{data=dto.TokenResponse}
// @Failure 403 {object} dto.ErrorResponse "Account inactive"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /auth/dev-token [post]
func (c *AuthController) DevToken(ctx *gin.Context) {
	var req dto.DevTokenRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	user, err := c.users.GetUserByUsername(ctx.Request.Context(), req.Username)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if !user.IsActive {
		middleware.HandleAPIError(ctx, apperrors.NewForbiddenError("account is inactive"))
		return
	}

	token, expiresIn, err := c.jwtService.GenerateAccessToken(user)
	if err != nil {
		c.logger.Error().Err(err).Int64("userID", user.ID).Msg("Failed to sign access token")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Debug().Int64("userID", user.ID).Msg("Development token issued")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
	}))
}
