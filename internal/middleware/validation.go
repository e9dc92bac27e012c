package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/yigit/communityhub/internal/app/models/dto"
	"github.com/yigit/communityhub/internal/pkg/logger"
	"github.com/yigit/communityhub/internal/pkg/validation"
)

var registerRules sync.Once

// useCustomRules installs the custom rules on gin's validator once
func useCustomRules() {
	registerRules.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := validation.RegisterRules(v); err != nil {
			logger.Error().Err(err).Msg("Failed to register validation rules")
		}
	})
}

// BindJSON binds and validates the request body into obj. On failure it
// writes the validation error response and returns false.
func BindJSON(c *gin.Context, obj interface{}) bool {
	useCustomRules()
	if err := c.ShouldBindJSON(obj); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return false
	}
	return true
}

// Validate runs the binding rules over an already populated obj, such as one
// built from path parameters.
func Validate(c *gin.Context, obj interface{}) bool {
	useCustomRules()
	if err := binding.Validator.ValidateStruct(obj); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return false
	}
	return true
}
