package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"storefront-service/internal/models"
	"storefront-service/internal/repository"
)

type SettingsHandler struct {
	repo   *repository.SettingsRepository
	logger *logrus.Entry
}

func NewSettingsHandler(repo *repository.SettingsRepository, logger *logrus.Logger) *SettingsHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SettingsHandler{
		repo:   repo,
		logger: logger.WithField("component", "settings-handler"),
	}
}

// GetSetting returns one public site setting
// GET /api/v1/storefront/settings/:key
func (h *SettingsHandler) GetSetting(c *gin.Context) {
	setting, err := h.repo.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Setting not found")
			return
		}
		h.logger.WithError(err).Error("Failed to load setting")
		respondError(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to retrieve setting")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    setting,
	})
}

// ListSettings returns every setting
// GET /api/v1/admin/settings
func (h *SettingsHandler) ListSettings(c *gin.Context) {
	settings, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list settings")
		respondError(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to retrieve settings")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    settings,
	})
}

// PutSetting stores the request body as the setting's JSON value
// PUT /api/v1/admin/settings/:key
func (h *SettingsHandler) PutSetting(c *gin.Context) {
	key := c.Param("key")
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 || !json.Valid(body) {
		respondError(c, http.StatusBadRequest, "INVALID_JSON", "Setting value must be valid JSON")
		return
	}

	setting, err := h.repo.Upsert(c.Request.Context(), key, datatypes.JSON(body))
	if err != nil {
		h.logger.WithError(err).WithField("key", key).Error("Failed to save setting")
		respondError(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to save setting")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    setting,
	})
}
