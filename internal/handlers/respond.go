package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"storefront-service/internal/events"
	"storefront-service/internal/middleware"
	"storefront-service/internal/models"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    code,
			Message: message,
		},
	})
}

// parseIDParam parses a uuid path parameter, answering 400 when it is malformed
func parseIDParam(c *gin.Context, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+what+" ID format")
		return uuid.Nil, false
	}
	return id, true
}

func actorFrom(c *gin.Context) events.Actor {
	return events.Actor{
		ID:    c.GetString(middleware.ContextUserID),
		Email: c.GetString(middleware.ContextUserEmail),
	}
}

// pageParams reads page and limit, clamping them to sane bounds
func pageParams(c *gin.Context, defaultLimit, maxLimit int) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// newPagination builds the storefront paging block
func newPagination(page, limit int, total int64) *models.PaginationInfo {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &models.PaginationInfo{
		Page:       page,
		Limit:      limit,
		TotalCount: total,
		HasMore:    int64(page*limit) < total,
		TotalPages: totalPages,
	}
}

func stringPtr(s string) *string {
	return &s
}
