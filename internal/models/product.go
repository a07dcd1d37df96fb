package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ProductStatus represents the publication status of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusDraft    ProductStatus = "DRAFT"
	ProductStatusArchived ProductStatus = "ARCHIVED"
)

// IsValid reports whether s is a known status
func (s ProductStatus) IsValid() bool {
	switch s {
	case ProductStatusActive, ProductStatusDraft, ProductStatusArchived:
		return true
	}
	return false
}

// Thresholds used to derive the storefront badges at insert time
const (
	HotSalesThreshold       = 1000
	FeaturedDiscountPercent = 20
)

// Product is a catalog entry that links out to the vendor through an affiliate URL
type Product struct {
	ID               uuid.UUID        `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ExternalID       *string          `json:"externalId,omitempty" gorm:"column:external_id;uniqueIndex:idx_products_external_id"`
	Title            string           `json:"title" gorm:"not null"`
	ShortDesc        *string          `json:"shortDesc,omitempty" gorm:"column:short_desc;type:text"`
	Description      *string          `json:"description,omitempty" gorm:"type:text"`
	ImageURL         string           `json:"imageUrl" gorm:"column:image_url;not null"`
	VideoURL         *string          `json:"videoUrl,omitempty" gorm:"column:video_url"`
	AliURL           string           `json:"aliUrl" gorm:"column:ali_url"`
	AffiliateURL     string           `json:"affiliateUrl" gorm:"column:affiliate_url;not null"`
	Price            *decimal.Decimal `json:"price,omitempty" gorm:"type:numeric(12,2)"`
	OriginalPrice    *decimal.Decimal `json:"originalPrice,omitempty" gorm:"column:original_price;type:numeric(12,2)"`
	Currency         *string          `json:"currency,omitempty" gorm:"type:varchar(3)"`
	DiscountPercent  *float64         `json:"discountPercent,omitempty" gorm:"column:discount_percent"`
	CommissionRate   *float64         `json:"commissionRate,omitempty" gorm:"column:commission_rate"`
	SalesCount       *int             `json:"salesCount,omitempty" gorm:"column:sales_count"`
	PositiveFeedback *float64         `json:"positiveFeedback,omitempty" gorm:"column:positive_feedback"`
	Rating           *float64         `json:"rating,omitempty"`
	StoreName        *string          `json:"storeName,omitempty" gorm:"column:store_name"`
	Badge            *string          `json:"badge,omitempty"`
	IsHot            bool             `json:"isHot" gorm:"column:is_hot;not null;default:false"`
	IsFeatured       bool             `json:"isFeatured" gorm:"column:is_featured;not null;default:false"`
	Status           ProductStatus    `json:"status" gorm:"not null;default:'DRAFT';index"`
	CouponCode       *string          `json:"couponCode,omitempty" gorm:"column:coupon_code"`
	CouponValue      *string          `json:"couponValue,omitempty" gorm:"column:coupon_value"`
	CouponMinSpend   *string          `json:"couponMinSpend,omitempty" gorm:"column:coupon_min_spend"`
	CouponEndDate    *string          `json:"couponEndDate,omitempty" gorm:"column:coupon_end_date"`
	Categories       []Category       `json:"categories,omitempty" gorm:"many2many:product_categories;constraint:OnDelete:CASCADE"`
	Shipping         []ProductShipping `json:"shipping,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time        `json:"createdAt" gorm:"index"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// Category groups products on the storefront
type Category struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name        string    `json:"name" gorm:"not null"`
	Slug        string    `json:"slug" gorm:"not null;uniqueIndex"`
	Description *string   `json:"description,omitempty"`
	Icon        *string   `json:"icon,omitempty"`
	Color       *string   `json:"color,omitempty"`
	SortOrder   int       `json:"sortOrder" gorm:"column:sort_order;not null;default:0;index"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProductCategory is the many-to-many join row; the composite key makes the pair unique
type ProductCategory struct {
	ProductID  uuid.UUID `json:"productId" gorm:"type:uuid;primaryKey"`
	CategoryID uuid.UUID `json:"categoryId" gorm:"type:uuid;primaryKey;index"`
}

// ProductShipping records where a product ships; CountryCode "ALL" means worldwide
type ProductShipping struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID   uuid.UUID `json:"productId" gorm:"type:uuid;not null;index"`
	CountryCode string    `json:"countryCode" gorm:"column:country_code;type:varchar(3);not null"`
	IsFree      bool      `json:"isFree" gorm:"column:is_free;not null;default:false"`
	Note        *string   `json:"note,omitempty"`
}

// ShippingAvailability is the visitor-facing shipping summary for one country
type ShippingAvailability struct {
	CountryCode string `json:"countryCode"`
	Ships       bool   `json:"ships"`
	IsFree      bool   `json:"isFree"`
}

// ShipsToCountry checks an exact country match first, then worldwide shipping
func ShipsToCountry(shipping []ProductShipping, countryCode string) ShippingAvailability {
	result := ShippingAvailability{CountryCode: countryCode}
	for _, s := range shipping {
		if s.CountryCode == countryCode {
			result.Ships = true
			result.IsFree = s.IsFree
			return result
		}
	}
	for _, s := range shipping {
		if s.CountryCode == WorldwideCountryCode {
			result.Ships = true
			result.IsFree = s.IsFree
			return result
		}
	}
	return result
}

// Favorite is a customer's saved product
type Favorite struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;not null;uniqueIndex:idx_favorites_user_product"`
	ProductID uuid.UUID `json:"productId" gorm:"type:uuid;not null;uniqueIndex:idx_favorites_user_product"`
	Product   *Product  `json:"product,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `json:"createdAt"`
}

// SiteSetting is a keyed JSON document edited from the admin settings page
type SiteSetting struct {
	Key       string         `json:"key" gorm:"primaryKey"`
	Value     datatypes.JSON `json:"value" gorm:"type:jsonb;not null"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Request types

type CreateProductRequest struct {
	Title         string           `json:"title" binding:"required"`
	Description   *string          `json:"description"`
	ShortDesc     *string          `json:"shortDesc"`
	AffiliateURL  string           `json:"affiliateUrl" binding:"required"`
	Price         *decimal.Decimal `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice"`
	ImageURL      string           `json:"imageUrl" binding:"required"`
	CategoryIDs   []uuid.UUID      `json:"categoryIds"`
	Badge         *string          `json:"badge"`
	Status        *ProductStatus   `json:"status"`
}

type UpdateProductRequest struct {
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	ShortDesc     *string          `json:"shortDesc"`
	AffiliateURL  *string          `json:"affiliateUrl"`
	Price         *decimal.Decimal `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice"`
	ImageURL      *string          `json:"imageUrl"`
	Badge         *string          `json:"badge"`
	Status        *ProductStatus   `json:"status"`
	CategoryIDs   []uuid.UUID      `json:"categoryIds"`
}

// ProductSort is the storefront ordering requested by the shop page
type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortTrending  ProductSort = "trending"
)

// ListProductsRequest drives the paginated storefront listing
type ListProductsRequest struct {
	Page         int
	Limit        int
	CategorySlug string
	Search       string
	Sort         ProductSort
}

type CreateCategoryRequest struct {
	Name        string  `json:"name" binding:"required"`
	Slug        string  `json:"slug"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	Color       *string `json:"color"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	Color       *string `json:"color"`
}

// Response types

type PaginationInfo struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalCount int64 `json:"totalCount"`
	HasMore    bool  `json:"hasMore"`
	TotalPages int   `json:"totalPages"`
}

type ProductListResponse struct {
	Products   []Product       `json:"products"`
	Pagination *PaginationInfo `json:"pagination"`
}

type ProductDetailResponse struct {
	Success  bool                  `json:"success"`
	Data     *Product              `json:"data"`
	Shipping *ShippingAvailability `json:"shipping,omitempty"`
}

type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     Error  `json:"error"`
	Timestamp string `json:"timestamp,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// TableName returns the table name for the Category model
func (Category) TableName() string {
	return "categories"
}

// TableName returns the table name for the ProductCategory model
func (ProductCategory) TableName() string {
	return "product_categories"
}

// TableName returns the table name for the ProductShipping model
func (ProductShipping) TableName() string {
	return "product_shipping"
}

// TableName returns the table name for the Favorite model
func (Favorite) TableName() string {
	return "favorites"
}

// TableName returns the table name for the SiteSetting model
func (SiteSetting) TableName() string {
	return "site_settings"
}
