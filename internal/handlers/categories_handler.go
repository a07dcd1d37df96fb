package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"storefront-service/internal/models"
	"storefront-service/internal/repository"
)

type CategoriesHandler struct {
	repo   *repository.CatalogRepository
	logger *logrus.Entry
}

func NewCategoriesHandler(repo *repository.CatalogRepository, logger *logrus.Logger) *CategoriesHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CategoriesHandler{
		repo:   repo,
		logger: logger.WithField("component", "categories-handler"),
	}
}

// GetCategories returns every category in display order
// @Summary List categories
// @Tags Categories
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /storefront/categories [get]
func (h *CategoriesHandler) GetCategories(c *gin.Context) {
	categories, err := h.repo.ListCategories(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list categories")
		respondError(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to retrieve categories")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    categories,
	})
}

// GetCategoryBySlug returns one category
// @Summary Get category by slug
// @Tags Categories
// @Produce json
// @Param slug path string true "Category slug"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /storefront/categories/{slug} [get]
func (h *CategoriesHandler) GetCategoryBySlug(c *gin.Context) {
	category, err := h.repo.GetCategoryBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Category not found")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    category,
	})
}

// CreateCategory appends a category to the end of the list
// POST /api/v1/admin/categories
func (h *CategoriesHandler) CreateCategory(c *gin.Context) {
	var req models.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	category := &models.Category{
		Name:        strings.TrimSpace(req.Name),
		Slug:        repository.GenerateSlug(req.Slug),
		Description: req.Description,
		Icon:        req.Icon,
		Color:       req.Color,
	}
	if category.Slug == "" {
		category.Slug = repository.GenerateSlug(category.Name)
	}
	if category.Slug == "" {
		respondError(c, http.StatusBadRequest, "INVALID_SLUG", "Category name must contain letters or digits")
		return
	}

	if err := h.repo.CreateCategory(c.Request.Context(), category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respondError(c, http.StatusConflict, "SLUG_EXISTS", "A category with this slug already exists")
			return
		}
		h.logger.WithError(err).Error("Failed to create category")
		respondError(c, http.StatusInternalServerError, "CREATE_FAILED", "Failed to create category")
		return
	}

	c.JSON(http.StatusCreated, models.SuccessResponse{
		Success: true,
		Data:    category,
	})
}

// UpdateCategory applies the fields present in the body
// PUT /api/v1/admin/categories/:id
func (h *CategoriesHandler) UpdateCategory(c *gin.Context) {
	categoryID, ok := parseIDParam(c, "id", "category")
	if !ok {
		return
	}
	var req models.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Slug != nil {
		slug := repository.GenerateSlug(*req.Slug)
		if slug == "" {
			respondError(c, http.StatusBadRequest, "INVALID_SLUG", "Slug must contain letters or digits")
			return
		}
		updates["slug"] = slug
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Icon != nil {
		updates["icon"] = *req.Icon
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	if len(updates) == 0 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "No fields to update")
		return
	}

	if err := h.repo.UpdateCategory(c.Request.Context(), categoryID, updates); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Category not found")
		case errors.Is(err, gorm.ErrDuplicatedKey):
			respondError(c, http.StatusConflict, "SLUG_EXISTS", "A category with this slug already exists")
		default:
			h.logger.WithError(err).Error("Failed to update category")
			respondError(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to update category")
		}
		return
	}

	category, err := h.repo.GetCategoryByID(c.Request.Context(), categoryID)
	if err != nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Category not found")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    category,
	})
}

// DeleteCategory removes a category; its products stay in the catalog
// DELETE /api/v1/admin/categories/:id
func (h *CategoriesHandler) DeleteCategory(c *gin.Context) {
	categoryID, ok := parseIDParam(c, "id", "category")
	if !ok {
		return
	}
	if err := h.repo.DeleteCategory(c.Request.Context(), categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Category not found")
			return
		}
		h.logger.WithError(err).Error("Failed to delete category")
		respondError(c, http.StatusInternalServerError, "DELETE_FAILED", "Failed to delete category")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: stringPtr("Category deleted successfully"),
	})
}

type moveCategoryRequest struct {
	Direction string `json:"direction" binding:"required"`
}

// MoveCategory swaps a category with its neighbour in the display order
// POST /api/v1/admin/categories/:id/move
func (h *CategoriesHandler) MoveCategory(c *gin.Context) {
	categoryID, ok := parseIDParam(c, "id", "category")
	if !ok {
		return
	}
	var req moveCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if err := h.repo.MoveCategory(c.Request.Context(), categoryID, req.Direction); err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidMoveDirection):
			respondError(c, http.StatusBadRequest, "INVALID_DIRECTION", err.Error())
		case errors.Is(err, gorm.ErrRecordNotFound):
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Category not found")
		default:
			h.logger.WithError(err).Error("Failed to move category")
			respondError(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to reorder categories")
		}
		return
	}

	categories, err := h.repo.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to retrieve categories")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    categories,
	})
}
