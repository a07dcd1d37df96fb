package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"storefront-service/internal/events"
	"storefront-service/internal/importer"
	"storefront-service/internal/models"
)

const templateFileName = "aliexpress_import_template.xlsx"

type ImportHandler struct {
	sessions     *ImportSessions
	store        importer.CatalogStore
	publisher    *events.Publisher
	maxFileBytes int64
	logger       *logrus.Entry
}

func NewImportHandler(sessions *ImportSessions, store importer.CatalogStore, publisher *events.Publisher, maxFileMB int, logger *logrus.Logger) *ImportHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if maxFileMB <= 0 {
		maxFileMB = 20
	}
	return &ImportHandler{
		sessions:     sessions,
		store:        store,
		publisher:    publisher,
		maxFileBytes: int64(maxFileMB) << 20,
		logger:       logger.WithField("component", "import-handler"),
	}
}

// GetImportTemplate downloads the AliExpress template, or describes it with ?format=json
// GET /api/v1/admin/import/template
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	template := models.ProductImportTemplate()

	if c.DefaultQuery("format", "xlsx") == "json" {
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"template": template,
		})
		return
	}

	var buf bytes.Buffer
	if err := importer.WriteTemplate(&buf, template); err != nil {
		h.logger.WithError(err).Error("Failed to generate import template")
		respondError(c, http.StatusInternalServerError, "TEMPLATE_FAILED", "Failed to generate template")
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+templateFileName)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// CreateSession scans an uploaded workbook into a new session and returns the preview
// POST /api/v1/admin/import/sessions
func (h *ImportHandler) CreateSession(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "FILE_REQUIRED", "Please upload an Excel file")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".xlsx" && ext != ".xlsm" {
		respondError(c, http.StatusBadRequest, "INVALID_FORMAT", "Only XLSX files are supported")
		return
	}
	if header.Size > h.maxFileBytes {
		respondError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
			fmt.Sprintf("File exceeds the %d MB limit", h.maxFileBytes>>20))
		return
	}

	var categoryID *uuid.UUID
	if raw := strings.TrimSpace(c.PostForm("categoryId")); raw != "" {
		id, ok := h.resolveCategory(c, raw)
		if !ok {
			return
		}
		categoryID = &id
	}

	rows, err := importer.ReadWorkbook(file, header.Filename)
	if err != nil {
		respondError(c, http.StatusBadRequest, "PARSE_ERROR", err.Error())
		return
	}
	if len(rows) == 0 {
		respondError(c, http.StatusBadRequest, "EMPTY_FILE", "The file contains no data rows")
		return
	}

	session := h.sessions.Create()
	if categoryID != nil {
		// A fresh session is idle, so this cannot be refused
		_ = session.SetCategory(categoryID)
	}
	if err := session.ScanRows(c.Request.Context(), header.Filename, rows); err != nil {
		h.sessions.Remove(c.Request.Context(), session.ID)
		h.logger.WithError(err).Error("Failed to scan import file")
		respondError(c, http.StatusInternalServerError, "SCAN_FAILED", "Failed to check products against the catalog")
		return
	}
	h.sessions.Mirror(c.Request.Context(), session)

	c.JSON(http.StatusCreated, models.SuccessResponse{
		Success: true,
		Data:    session.Summary(true),
	})
}

// GetSession returns preview, state, progress and result
// GET /api/v1/admin/import/sessions/:id
func (h *ImportHandler) GetSession(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "session")
	if !ok {
		return
	}

	if session, ok := h.sessions.Get(id); ok {
		includeCandidates := c.DefaultQuery("candidates", "true") == "true"
		c.JSON(http.StatusOK, models.SuccessResponse{
			Success: true,
			Data:    session.Summary(includeCandidates),
		})
		return
	}

	summary, err := h.sessions.Lookup(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			h.logger.WithError(err).Warn("Failed to read mirrored import session")
		}
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Import session not found")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    summary,
	})
}

// RemoveRow drops one row from the preview
// DELETE /api/v1/admin/import/sessions/:id/rows/:index
func (h *ImportHandler) RemoveRow(c *gin.Context) {
	session, ok := h.liveSession(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_INDEX", "Row index must be a number")
		return
	}

	if err := session.RemoveRow(index); err != nil {
		h.respondSessionError(c, err)
		return
	}
	h.sessions.Mirror(c.Request.Context(), session)

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    session.Summary(true),
	})
}

type setCategoryRequest struct {
	CategoryID *string `json:"categoryId"`
}

// SetCategory broadcasts the target category to every row; null clears it
// PUT /api/v1/admin/import/sessions/:id/category
func (h *ImportHandler) SetCategory(c *gin.Context) {
	session, ok := h.liveSession(c)
	if !ok {
		return
	}
	var req setCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	var categoryID *uuid.UUID
	if req.CategoryID != nil && *req.CategoryID != "" {
		id, ok := h.resolveCategory(c, *req.CategoryID)
		if !ok {
			return
		}
		categoryID = &id
	}

	if err := session.SetCategory(categoryID); err != nil {
		h.respondSessionError(c, err)
		return
	}
	h.sessions.Mirror(c.Request.Context(), session)

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    session.Summary(false),
	})
}

// StartImport launches the commit loop and answers 202 straight away
// POST /api/v1/admin/import/sessions/:id/import
func (h *ImportHandler) StartImport(c *gin.Context) {
	session, ok := h.liveSession(c)
	if !ok {
		return
	}

	actor := actorFrom(c)
	summary := session.Summary(false)
	fileName := summary.FileName
	categoryID := summary.CategoryID

	err := h.sessions.Start(session, func(result models.ImportResult) {
		h.logger.WithFields(logrus.Fields{
			"import_session": session.ID.String(),
			"success":        result.Success,
			"failed":         result.Failed,
			"skipped":        result.Skipped,
			"cancelled":      result.Cancelled,
			"actor":          actor.Email,
		}).Info("Import session finished")

		if h.publisher == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.publisher.PublishImportFinished(ctx, session.ID, fileName, categoryID, result, actor); err != nil {
			h.logger.WithError(err).Warn("Failed to publish import event")
		}
	})
	if err != nil {
		h.respondSessionError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, models.SuccessResponse{
		Success: true,
		Data:    session.Summary(false),
	})
}

// CancelImport raises the cancel flag; the loop stops before its next row
// POST /api/v1/admin/import/sessions/:id/cancel
func (h *ImportHandler) CancelImport(c *gin.Context) {
	session, ok := h.liveSession(c)
	if !ok {
		return
	}
	if !session.Cancel() {
		respondError(c, http.StatusConflict, "NOT_IMPORTING", "No import is running for this session")
		return
	}
	c.JSON(http.StatusAccepted, models.SuccessResponse{
		Success: true,
		Message: stringPtr("Cancellation requested"),
	})
}

// RetrofitSession links the session's products to its category
// POST /api/v1/admin/import/sessions/:id/retrofit
func (h *ImportHandler) RetrofitSession(c *gin.Context) {
	session, ok := h.liveSession(c)
	if !ok {
		return
	}
	categoryID := session.CategoryID()
	if categoryID == nil {
		respondError(c, http.StatusBadRequest, "CATEGORY_REQUIRED", "Select a category first")
		return
	}
	h.retrofit(c, *categoryID, session.ExternalIDs())
}

// DeleteSession discards a session, cancelling a running import
// DELETE /api/v1/admin/import/sessions/:id
func (h *ImportHandler) DeleteSession(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "session")
	if !ok {
		return
	}
	if !h.sessions.Remove(c.Request.Context(), id) {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Import session not found")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: stringPtr("Import session discarded"),
	})
}

// UpdateCategories adds a category to already-imported products by external ID
// POST /api/v1/admin/products/update-categories
func (h *ImportHandler) UpdateCategories(c *gin.Context) {
	var req models.RetrofitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if req.CategoryID == "" || len(req.ExternalIDs) == 0 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Missing categoryId or externalIds")
		return
	}
	categoryID, ok := h.resolveCategory(c, req.CategoryID)
	if !ok {
		return
	}
	h.retrofit(c, categoryID, req.ExternalIDs)
}

func (h *ImportHandler) retrofit(c *gin.Context, categoryID uuid.UUID, externalIDs []string) {
	result, err := importer.Retrofit(c.Request.Context(), h.store, categoryID, externalIDs)
	if err != nil {
		if errors.Is(err, importer.ErrNothingToRetrofit) {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "No product IDs to update")
			return
		}
		h.logger.WithError(err).Error("Category retrofit failed")
		respondError(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to update categories")
		return
	}

	if h.publisher != nil && result.Updated > 0 {
		if err := h.publisher.PublishCategoriesLinked(c.Request.Context(), categoryID, *result, actorFrom(c)); err != nil {
			h.logger.WithError(err).Warn("Failed to publish categories linked event")
		}
	}

	c.JSON(http.StatusOK, result)
}

// liveSession finds a session that lives on this replica
func (h *ImportHandler) liveSession(c *gin.Context) (*importer.Session, bool) {
	id, ok := parseIDParam(c, "id", "session")
	if !ok {
		return nil, false
	}
	session, ok := h.sessions.Get(id)
	if !ok {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Import session not found")
		return nil, false
	}
	return session, true
}

// resolveCategory parses a category id and checks that the category exists
func (h *ImportHandler) resolveCategory(c *gin.Context, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID format")
		return uuid.Nil, false
	}
	categories, err := h.store.ListCategories(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load categories")
		respondError(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to retrieve categories")
		return uuid.Nil, false
	}
	for _, category := range categories {
		if category.ID == id {
			return id, true
		}
	}
	respondError(c, http.StatusBadRequest, "INVALID_CATEGORY", "Category not found")
	return uuid.Nil, false
}

func (h *ImportHandler) respondSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, importer.ErrImportInProgress):
		respondError(c, http.StatusConflict, "IMPORT_IN_PROGRESS", err.Error())
	case errors.Is(err, importer.ErrNoEligibleCandidates):
		respondError(c, http.StatusBadRequest, "NO_ELIGIBLE_PRODUCTS", err.Error())
	case errors.Is(err, importer.ErrRowOutOfRange):
		respondError(c, http.StatusBadRequest, "INVALID_INDEX", err.Error())
	default:
		h.logger.WithError(err).Error("Import session operation failed")
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Import session operation failed")
	}
}
