package repository

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Tesseract-Nexus/go-shared/cache"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"storefront-service/internal/importer"
	"storefront-service/internal/models"
)

// Cache TTL constants
const (
	ProductCacheTTL     = 5 * time.Minute  // Single product cache
	ProductListCacheTTL = 2 * time.Minute  // Storefront listing cache
	CategoryCacheTTL    = 30 * time.Minute // Categories rarely change
)

// Storefront listings show drafts too so freshly imported products are visible
var StorefrontStatuses = []models.ProductStatus{models.ProductStatusActive, models.ProductStatusDraft}

var ErrInvalidMoveDirection = errors.New("direction must be up or down")

type CatalogRepository struct {
	db    *gorm.DB
	redis *redis.Client
	cache *cache.CacheLayer
}

func NewCatalogRepository(db *gorm.DB, redis *redis.Client) *CatalogRepository {
	repo := &CatalogRepository{
		db:    db,
		redis: redis,
	}

	if redis != nil {
		cacheConfig := cache.CacheConfig{
			L1Enabled:  true,
			L1MaxItems: 5000,
			L1TTL:      30 * time.Second,
			DefaultTTL: ProductCacheTTL,
			KeyPrefix:  "storefront:catalog:",
		}
		repo.cache = cache.NewCacheLayerFromClient(redis, cacheConfig)
	}

	return repo
}

// generateListCacheKey creates a deterministic cache key for list queries
func generateListCacheKey(prefix string, params interface{}) string {
	data, _ := json.Marshal(params)
	hash := md5.Sum(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes a search term match literally inside a LIKE pattern
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *CatalogRepository) invalidateProductCaches(ctx context.Context, productID *uuid.UUID) {
	if r.cache == nil {
		return
	}
	if productID != nil {
		_ = r.cache.Delete(ctx, fmt.Sprintf("product:%s", productID.String()))
	}
	_ = r.cache.DeletePattern(ctx, "products:list:*")
}

func (r *CatalogRepository) invalidateCategoryCaches(ctx context.Context) {
	if r.cache == nil {
		return
	}
	_ = r.cache.DeletePattern(ctx, "categories:*")
	// listings filter by category slug
	_ = r.cache.DeletePattern(ctx, "products:list:*")
}

// Import pipeline store

// FindProductsByExternalIDs returns the id/external id pairs of catalog products in one query
func (r *CatalogRepository) FindProductsByExternalIDs(ctx context.Context, externalIDs []string) ([]importer.ExistingProduct, error) {
	if len(externalIDs) == 0 {
		return []importer.ExistingProduct{}, nil
	}

	var rows []struct {
		ID         uuid.UUID
		ExternalID string
	}
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("id, external_id").
		Where("external_id IN ?", externalIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]importer.ExistingProduct, 0, len(rows))
	for _, row := range rows {
		out = append(out, importer.ExistingProduct{ID: row.ID, ExternalID: row.ExternalID})
	}
	return out, nil
}

// InsertProduct inserts a single product. A unique violation on external_id is
// reported as importer.ErrAlreadyExists.
func (r *CatalogRepository) InsertProduct(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return importer.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	r.invalidateProductCaches(ctx, nil)
	return nil
}

// InsertCategoryLink links one product to one category
func (r *CatalogRepository) InsertCategoryLink(ctx context.Context, productID, categoryID uuid.UUID) error {
	return r.InsertCategoryLinks(ctx, []models.ProductCategory{{ProductID: productID, CategoryID: categoryID}})
}

// InsertCategoryLinks inserts links in one statement; pairs that already exist are left alone
func (r *CatalogRepository) InsertCategoryLinks(ctx context.Context, links []models.ProductCategory) error {
	if len(links) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&links).Error
	if err == nil {
		r.invalidateProductCaches(ctx, nil)
	}
	return err
}

// FindCategoryLinks returns which of productIDs are already linked to categoryID
func (r *CatalogRepository) FindCategoryLinks(ctx context.Context, productIDs []uuid.UUID, categoryID uuid.UUID) ([]uuid.UUID, error) {
	if len(productIDs) == 0 {
		return []uuid.UUID{}, nil
	}
	var linked []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.ProductCategory{}).
		Where("product_id IN ? AND category_id = ?", productIDs, categoryID).
		Pluck("product_id", &linked).Error
	return linked, err
}

// ListCategories returns every category ordered for display
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	load := func() ([]models.Category, error) {
		var categories []models.Category
		err := r.db.WithContext(ctx).Order("sort_order ASC, name ASC").Find(&categories).Error
		return categories, err
	}

	if r.cache == nil {
		return load()
	}

	var categories []models.Category
	err := r.cache.GetOrSetJSON(ctx, "categories:list", &categories, CategoryCacheTTL, func() (any, error) {
		return load()
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// Product operations

// ListProducts returns one storefront page and the total match count
func (r *CatalogRepository) ListProducts(ctx context.Context, req models.ListProductsRequest, statuses []models.ProductStatus) ([]models.Product, int64, error) {
	type listResult struct {
		Products []models.Product `json:"products"`
		Total    int64            `json:"total"`
	}
	load := func() (*listResult, error) {
		products, total, err := r.queryProducts(ctx, req, statuses)
		if err != nil {
			return nil, err
		}
		return &listResult{Products: products, Total: total}, nil
	}

	if r.cache == nil {
		res, err := load()
		if err != nil {
			return nil, 0, err
		}
		return res.Products, res.Total, nil
	}

	cacheKey := generateListCacheKey("products:list", struct {
		Req      models.ListProductsRequest
		Statuses []models.ProductStatus
	}{req, statuses})
	var res listResult
	err := r.cache.GetOrSetJSON(ctx, cacheKey, &res, ProductListCacheTTL, func() (any, error) {
		return load()
	})
	if err != nil {
		return nil, 0, err
	}
	return res.Products, res.Total, nil
}

func (r *CatalogRepository) queryProducts(ctx context.Context, req models.ListProductsRequest, statuses []models.ProductStatus) ([]models.Product, int64, error) {
	products := make([]models.Product, 0)
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Product{})
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	if req.CategorySlug != "" {
		sub := r.db.Table("product_categories").
			Select("product_categories.product_id").
			Joins("JOIN categories ON categories.id = product_categories.category_id").
			Where("categories.slug = ?", req.CategorySlug)
		query = query.Where("id IN (?)", sub)
	}
	if search := strings.TrimSpace(req.Search); search != "" {
		query = query.Where("title ILIKE ?", "%"+escapeLike(search)+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch req.Sort {
	case models.SortPriceAsc:
		query = query.Order("price ASC NULLS LAST")
	case models.SortPriceDesc:
		query = query.Order("price DESC NULLS LAST")
	case models.SortTrending:
		query = query.Order("is_hot DESC").Order("created_at DESC")
	default:
		query = query.Order("created_at DESC")
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// ListAllProducts is the admin listing, newest first, with categories
func (r *CatalogRepository) ListAllProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("Categories").
		Order("created_at DESC").
		Find(&products).Error
	return products, err
}

// GetProductByID loads a product with its categories and shipping rows
func (r *CatalogRepository) GetProductByID(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	load := func() (*models.Product, error) {
		var product models.Product
		err := r.db.WithContext(ctx).
			Preload("Categories").
			Preload("Shipping").
			Where("id = ?", productID).
			First(&product).Error
		if err != nil {
			return nil, err
		}
		return &product, nil
	}

	if r.cache == nil {
		return load()
	}

	var product models.Product
	err := r.cache.GetOrSetJSON(ctx, fmt.Sprintf("product:%s", productID.String()), &product, ProductCacheTTL, func() (any, error) {
		return load()
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct creates a product and links it to categoryIDs in one transaction
func (r *CatalogRepository) CreateProduct(ctx context.Context, product *models.Product, categoryIDs []uuid.UUID) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.Status == "" {
		product.Status = models.ProductStatusDraft
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(product).Error; err != nil {
			return err
		}
		return replaceLinks(tx, product.ID, categoryIDs)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return importer.ErrAlreadyExists
	}
	if err == nil {
		r.invalidateProductCaches(ctx, &product.ID)
	}
	return err
}

// UpdateProduct applies a partial update. A non-nil categoryIDs replaces the product's links.
func (r *CatalogRepository) UpdateProduct(ctx context.Context, productID uuid.UUID, updates map[string]interface{}, categoryIDs *[]uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			updates["updated_at"] = time.Now()
			res := tx.Model(&models.Product{}).Where("id = ?", productID).Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		if categoryIDs != nil {
			if err := tx.Where("product_id = ?", productID).Delete(&models.ProductCategory{}).Error; err != nil {
				return err
			}
			return replaceLinks(tx, productID, *categoryIDs)
		}
		return nil
	})
	if err == nil {
		r.invalidateProductCaches(ctx, &productID)
	}
	return err
}

func replaceLinks(tx *gorm.DB, productID uuid.UUID, categoryIDs []uuid.UUID) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	links := make([]models.ProductCategory, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		links = append(links, models.ProductCategory{ProductID: productID, CategoryID: id})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
}

// DeleteProduct removes a product; links, shipping rows and favorites cascade
func (r *CatalogRepository) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", productID).Delete(&models.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	r.invalidateProductCaches(ctx, &productID)
	return nil
}

// Category operations

// GetCategoryBySlug retrieves a category by slug with caching
func (r *CatalogRepository) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	load := func() (*models.Category, error) {
		var c models.Category
		if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&c).Error; err != nil {
			return nil, err
		}
		return &c, nil
	}
	if r.cache == nil {
		return load()
	}

	var category models.Category
	err := r.cache.GetOrSetJSON(ctx, fmt.Sprintf("categories:slug:%s", slug), &category, CategoryCacheTTL, func() (any, error) {
		return load()
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// GetCategoryByID retrieves a category by ID
func (r *CatalogRepository) GetCategoryByID(ctx context.Context, categoryID uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("id = ?", categoryID).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// CreateCategory appends a category at the end of the display order
func (r *CatalogRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.Slug == "" {
		category.Slug = GenerateSlug(category.Name)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxOrder int
		if err := tx.Model(&models.Category{}).Select("COALESCE(MAX(sort_order), -1)").Scan(&maxOrder).Error; err != nil {
			return err
		}
		category.SortOrder = maxOrder + 1
		return tx.Create(category).Error
	})
	if err == nil {
		r.invalidateCategoryCaches(ctx)
	}
	return err
}

// UpdateCategory applies a partial update to a category
func (r *CatalogRepository) UpdateCategory(ctx context.Context, categoryID uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", categoryID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	r.invalidateCategoryCaches(ctx)
	return nil
}

// DeleteCategory deletes a category and its product links; products are kept
func (r *CatalogRepository) DeleteCategory(ctx context.Context, categoryID uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("category_id = ?", categoryID).Delete(&models.ProductCategory{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", categoryID).Delete(&models.Category{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err == nil {
		r.invalidateCategoryCaches(ctx)
	}
	return err
}

// MoveCategory swaps sort_order with the neighbour above or below.
// Moving past either end is a no-op.
func (r *CatalogRepository) MoveCategory(ctx context.Context, categoryID uuid.UUID, direction string) error {
	var cmp, order string
	switch direction {
	case "up":
		cmp, order = "<", "sort_order DESC"
	case "down":
		cmp, order = ">", "sort_order ASC"
	default:
		return ErrInvalidMoveDirection
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Category
		if err := tx.Where("id = ?", categoryID).First(&current).Error; err != nil {
			return err
		}

		var neighbour models.Category
		err := tx.Where("sort_order "+cmp+" ?", current.SortOrder).Order(order).First(&neighbour).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Model(&models.Category{}).Where("id = ?", current.ID).Update("sort_order", neighbour.SortOrder).Error; err != nil {
			return err
		}
		return tx.Model(&models.Category{}).Where("id = ?", neighbour.ID).Update("sort_order", current.SortOrder).Error
	})
	if err == nil {
		r.invalidateCategoryCaches(ctx)
	}
	return err
}

// GenerateSlug creates a URL-friendly slug from a name
func GenerateSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	var result strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// EvictProduct drops the cached copy of a product and every cached listing
func (r *CatalogRepository) EvictProduct(ctx context.Context, productID uuid.UUID) {
	r.invalidateProductCaches(ctx, &productID)
}

// EvictCatalog drops every cached listing and category
func (r *CatalogRepository) EvictCatalog(ctx context.Context) {
	r.invalidateCategoryCaches(ctx)
}
