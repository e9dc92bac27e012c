package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/communityhub/internal/app/models/dto"
	"github.com/yigit/communityhub/internal/pkg/apperrors"
	"github.com/yigit/communityhub/internal/pkg/logger"
)

type errorMapping struct {
	targets []error
	status  int
	code    dto.ErrorCode
	message string
}

// Checked in order: a duplicate reshare also wraps ErrInvalidState.
var errorMappings = []errorMapping{
	{[]error{apperrors.ErrTokenExpired}, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{[]error{apperrors.ErrTokenInvalid, apperrors.ErrInvalidFormat, apperrors.ErrTokenNotFound}, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{[]error{apperrors.ErrActivityNotFound, apperrors.ErrCommunityNotFound, apperrors.ErrUserNotFound,
		apperrors.ErrNotificationNotFound, apperrors.ErrAnswerNotFound, apperrors.ErrCommentNotFound,
		apperrors.ErrMessageNotFound, apperrors.ErrResourceNotFound},
		http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
	{[]error{apperrors.ErrAlreadyReshared}, http.StatusConflict, dto.ErrorCodeAlreadyReshared, "Activity already reshared"},
	{[]error{apperrors.ErrInvalidState}, http.StatusConflict, dto.ErrorCodeInvalidState, "Not permitted in current state"},
	{[]error{apperrors.ErrConflict, apperrors.ErrResourceAlreadyExists}, http.StatusConflict, dto.ErrorCodeConflict, "Resource already exists"},
	{[]error{apperrors.ErrNotMember}, http.StatusForbidden, dto.ErrorCodeNotMember, "User is not a member of this community"},
	{[]error{apperrors.ErrPermissionDenied}, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},
	{[]error{apperrors.ErrBadRequest, apperrors.ErrValidationFailed}, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Invalid request"},
}

// HandleAPIError writes the error response matching err. Unknown errors are
// logged and reported as internal errors without their text.
func HandleAPIError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if !apperrors.Is(err, m.targets[0], m.targets[1:]...) {
			continue
		}
		message := m.message
		var custom *apperrors.CustomError
		if errors.As(err, &custom) && custom.Message != "" {
			message = custom.Message
		}
		c.AbortWithStatusJSON(m.status, dto.NewErrorResponse(dto.NewErrorDetail(m.code, message)))
		return
	}

	code := dto.ErrorCodeInternalServer
	if errors.Is(err, apperrors.ErrStorageFailure) {
		code = dto.ErrorCodeDatabaseError
	}
	logger.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(
		dto.NewErrorDetail(code, "Internal server error").WithSeverity(dto.ErrorSeverityCritical)))
}
