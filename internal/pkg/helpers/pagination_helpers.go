package helpers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/communityhub/internal/app/models/dto"
)

const DefaultPage = 1

// ParsePaginationParams extracts the 1-based page and the requested size. A
// missing or invalid size yields 0 so the service applies its configured default.
func ParsePaginationParams(c *gin.Context) (page, size int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = DefaultPage
	}

	size, err = strconv.Atoi(c.Query("size"))
	if err != nil || size < 0 {
		size = 0
	}
	return page, size
}

// NewPaginationInfo creates a standard PaginationInfo DTO.
// page should be the 1-based page number.
func NewPaginationInfo(totalItems, page, size int) dto.PaginationInfo {
	if page < 1 {
		page = DefaultPage
	}
	totalPages := 1
	if totalItems > 0 && size > 0 {
		totalPages = int(math.Ceil(float64(totalItems) / float64(size)))
	}
	return dto.PaginationInfo{
		CurrentPage: page,
		TotalPages:  totalPages,
		PageSize:    size,
		TotalItems:  totalItems,
		HasNext:     page*size < totalItems,
		HasPrev:     page > 1,
	}
}

// ParseIDParam reads a positive int64 path parameter. On failure it writes a
// 400 response and returns false.
func ParseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid "+name).
			WithField(name).
			WithDetails(name + " must be a positive number")
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return id, true
}
