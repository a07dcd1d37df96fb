package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"storefront-service/internal/middleware"
	"storefront-service/internal/models"
	"storefront-service/internal/repository"
)

type FavoritesHandler struct {
	repo   *repository.FavoritesRepository
	logger *logrus.Entry
}

func NewFavoritesHandler(repo *repository.FavoritesRepository, logger *logrus.Logger) *FavoritesHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FavoritesHandler{
		repo:   repo,
		logger: logger.WithField("component", "favorites-handler"),
	}
}

// ListFavorites returns the signed-in customer's saved products
// GET /api/v1/favorites
func (h *FavoritesHandler) ListFavorites(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return
	}
	favorites, err := h.repo.List(c.Request.Context(), userID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list favorites")
		respondError(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to retrieve favorites")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    favorites,
	})
}

// AddFavorite saves a product; saving it again changes nothing
// POST /api/v1/favorites/:productId
func (h *FavoritesHandler) AddFavorite(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return
	}
	productID, ok := parseIDParam(c, "productId", "product")
	if !ok {
		return
	}
	if err := h.repo.Add(c.Request.Context(), userID, productID); err != nil {
		h.logger.WithError(err).Error("Failed to add favorite")
		respondError(c, http.StatusInternalServerError, "CREATE_FAILED", "Failed to save favorite")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "favorited": true})
}

// RemoveFavorite unsaves a product
// DELETE /api/v1/favorites/:productId
func (h *FavoritesHandler) RemoveFavorite(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return
	}
	productID, ok := parseIDParam(c, "productId", "product")
	if !ok {
		return
	}
	removed, err := h.repo.Remove(c.Request.Context(), userID, productID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to remove favorite")
		respondError(c, http.StatusInternalServerError, "DELETE_FAILED", "Failed to remove favorite")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "favorited": false, "removed": removed})
}
