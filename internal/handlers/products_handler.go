package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"storefront-service/internal/events"
	"storefront-service/internal/importer"
	"storefront-service/internal/middleware"
	"storefront-service/internal/models"
	"storefront-service/internal/repository"
)

type ProductsHandler struct {
	repo            *repository.CatalogRepository
	eventsPublisher *events.Publisher
	defaultLimit    int
	maxLimit        int
	logger          *logrus.Entry
}

func NewProductsHandler(repo *repository.CatalogRepository, eventsPublisher *events.Publisher, defaultLimit, maxLimit int, logger *logrus.Logger) *ProductsHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if defaultLimit < 1 {
		defaultLimit = 12
	}
	if maxLimit < defaultLimit {
		maxLimit = 100
	}
	return &ProductsHandler{
		repo:            repo,
		eventsPublisher: eventsPublisher,
		defaultLimit:    defaultLimit,
		maxLimit:        maxLimit,
		logger:          logger.WithField("component", "products-handler"),
	}
}

// GetProducts returns one page of the public catalog
// @Summary List storefront products
// @Tags Storefront
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(12)
// @Param category query string false "Category slug"
// @Param search query string false "Title search"
// @Param sort query string false "newest, price_asc, price_desc or trending"
// @Success 200 {object} models.ProductListResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /storefront/products [get]
func (h *ProductsHandler) GetProducts(c *gin.Context) {
	page, limit := pageParams(c, h.defaultLimit, h.maxLimit)

	req := models.ListProductsRequest{
		Page:         page,
		Limit:        limit,
		CategorySlug: strings.TrimSpace(c.Query("category")),
		Search:       strings.TrimSpace(c.Query("search")),
		Sort:         parseSort(c.Query("sort")),
	}

	products, total, err := h.repo.ListProducts(c.Request.Context(), req, repository.StorefrontStatuses)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list products")
		respondError(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to retrieve products")
		return
	}

	c.JSON(http.StatusOK, models.ProductListResponse{
		Products:   products,
		Pagination: newPagination(page, limit, total),
	})
}

// GetProduct returns a storefront product with shipping for the visitor's country
// @Summary Get storefront product
// @Tags Storefront
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} models.ProductDetailResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /storefront/products/{id} [get]
func (h *ProductsHandler) GetProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "id", "product")
	if !ok {
		return
	}

	product, err := h.repo.GetProductByID(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Product not found")
			return
		}
		h.logger.WithError(err).WithField("product_id", productID.String()).Error("Failed to get product")
		respondError(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to retrieve product")
		return
	}
	if !isStorefrontVisible(product.Status) {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Product not found")
		return
	}

	shipping := models.ShipsToCountry(product.Shipping, middleware.GetCountry(c))
	c.JSON(http.StatusOK, models.ProductDetailResponse{
		Success:  true,
		Data:     product,
		Shipping: &shipping,
	})
}

// Admin

// ListAllProducts returns every product, newest first
// GET /api/v1/admin/products
func (h *ProductsHandler) ListAllProducts(c *gin.Context) {
	products, err := h.repo.ListAllProducts(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list products")
		respondError(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to retrieve products")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    products,
	})
}

// GetAdminProduct returns a product in any status
// GET /api/v1/admin/products/:id
func (h *ProductsHandler) GetAdminProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "id", "product")
	if !ok {
		return
	}
	product, err := h.repo.GetProductByID(c.Request.Context(), productID)
	if err != nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Product not found")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    product,
	})
}

// CreateProduct adds a hand-entered product
// POST /api/v1/admin/products
func (h *ProductsHandler) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if req.Status != nil && !req.Status.IsValid() {
		respondError(c, http.StatusBadRequest, "INVALID_STATUS", "Status must be ACTIVE, DRAFT or ARCHIVED")
		return
	}

	product := &models.Product{
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		ShortDesc:     req.ShortDesc,
		AffiliateURL:  req.AffiliateURL,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		ImageURL:      req.ImageURL,
		Badge:         req.Badge,
		Status:        models.ProductStatusDraft,
	}
	if req.Status != nil {
		product.Status = *req.Status
	}

	if err := h.repo.CreateProduct(c.Request.Context(), product, req.CategoryIDs); err != nil {
		if errors.Is(err, importer.ErrAlreadyExists) {
			respondError(c, http.StatusConflict, "ALREADY_EXISTS", "A product with this external ID already exists")
			return
		}
		h.logger.WithError(err).Error("Failed to create product")
		respondError(c, http.StatusInternalServerError, "CREATE_FAILED", "Failed to create product")
		return
	}

	h.publish(func(ctx context.Context) error {
		return h.eventsPublisher.PublishProductCreated(ctx, product, actorFrom(c))
	})

	c.JSON(http.StatusCreated, models.SuccessResponse{
		Success: true,
		Data:    product,
	})
}

// UpdateProduct applies the fields present in the body
// PATCH /api/v1/admin/products/:id
func (h *ProductsHandler) UpdateProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "id", "product")
	if !ok {
		return
	}
	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if req.Status != nil && !req.Status.IsValid() {
		respondError(c, http.StatusBadRequest, "INVALID_STATUS", "Status must be ACTIVE, DRAFT or ARCHIVED")
		return
	}

	updates, changed := productUpdates(req)
	var categoryIDs *[]uuid.UUID
	if req.CategoryIDs != nil {
		categoryIDs = &req.CategoryIDs
		changed = append(changed, "categories")
	}
	if len(changed) == 0 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "No fields to update")
		return
	}

	if err := h.repo.UpdateProduct(c.Request.Context(), productID, updates, categoryIDs); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Product not found")
			return
		}
		h.logger.WithError(err).Error("Failed to update product")
		respondError(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to update product")
		return
	}

	product, err := h.repo.GetProductByID(c.Request.Context(), productID)
	if err != nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Product not found")
		return
	}

	h.publish(func(ctx context.Context) error {
		return h.eventsPublisher.PublishProductUpdated(ctx, product, changed, actorFrom(c))
	})

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    product,
	})
}

// DeleteProduct removes a product
// DELETE /api/v1/admin/products/:id
func (h *ProductsHandler) DeleteProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "id", "product")
	if !ok {
		return
	}

	product, err := h.repo.GetProductByID(c.Request.Context(), productID)
	if err != nil {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Product not found")
		return
	}

	if err := h.repo.DeleteProduct(c.Request.Context(), productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Product not found")
			return
		}
		h.logger.WithError(err).Error("Failed to delete product")
		respondError(c, http.StatusInternalServerError, "DELETE_FAILED", "Failed to delete product")
		return
	}

	h.publish(func(ctx context.Context) error {
		return h.eventsPublisher.PublishProductDeleted(ctx, product, actorFrom(c))
	})

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: stringPtr("Product deleted successfully"),
	})
}

// publish runs fn against the events publisher when one is configured.
// Event failures never fail the request.
func (h *ProductsHandler) publish(fn func(ctx context.Context) error) {
	if h.eventsPublisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		h.logger.WithError(err).Warn("Failed to publish product event")
	}
}

// productUpdates turns the present fields of req into a column map
func productUpdates(req models.UpdateProductRequest) (map[string]interface{}, []string) {
	updates := make(map[string]interface{})
	var changed []string
	set := func(column, field string, value interface{}) {
		updates[column] = value
		changed = append(changed, field)
	}

	if req.Title != nil {
		set("title", "title", strings.TrimSpace(*req.Title))
	}
	if req.Description != nil {
		set("description", "description", *req.Description)
	}
	if req.ShortDesc != nil {
		set("short_desc", "shortDesc", *req.ShortDesc)
	}
	if req.AffiliateURL != nil {
		set("affiliate_url", "affiliateUrl", *req.AffiliateURL)
	}
	if req.Price != nil {
		set("price", "price", *req.Price)
	}
	if req.OriginalPrice != nil {
		set("original_price", "originalPrice", *req.OriginalPrice)
	}
	if req.ImageURL != nil {
		set("image_url", "imageUrl", *req.ImageURL)
	}
	if req.Badge != nil {
		set("badge", "badge", *req.Badge)
	}
	if req.Status != nil {
		set("status", "status", *req.Status)
	}
	return updates, changed
}

func parseSort(raw string) models.ProductSort {
	switch s := models.ProductSort(raw); s {
	case models.SortPriceAsc, models.SortPriceDesc, models.SortTrending:
		return s
	default:
		return models.SortNewest
	}
}

func isStorefrontVisible(status models.ProductStatus) bool {
	for _, s := range repository.StorefrontStatuses {
		if s == status {
			return true
		}
	}
	return false
}
