package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AliExpress affiliate export column names
const (
	ColProductID                = "ProductId"
	ColImageURL                 = "Image Url"
	ColVideoURL                 = "Video Url"
	ColProductDesc              = "Product Desc"
	ColOriginPrice              = "Origin Price"
	ColDiscountPrice            = "Discount Price"
	ColDiscount                 = "Discount"
	ColCurrency                 = "Currency"
	ColDirectCommissionRate     = "Direct linking commission rate (%)"
	ColDirectCommission         = "Estimated direct linking commission"
	ColIndirectCommissionRate   = "Indirect linking commission rate (%)"
	ColIndirectCommission       = "Estimated indirect linking commission"
	ColSales180Day              = "Sales180Day"
	ColPositiveFeedback         = "Positive Feedback"
	ColPromotionURL             = "Promotion Url"
	ColCodeName                 = "Code Name"
	ColCodeStartTime            = "Code Start Time"
	ColCodeEndTime              = "Code End Time"
	ColCodeValue                = "Code Value"
	ColCodeQuantity             = "Code Quantity"
	ColCodeMinimumSpend         = "Code Minimum Spend"
)

// ImportState is the import session lifecycle
type ImportState string

const (
	ImportStateIdle       ImportState = "IDLE"
	ImportStateScanning   ImportState = "SCANNING"
	ImportStatePreviewing ImportState = "PREVIEWING"
	ImportStateImporting  ImportState = "IMPORTING"
	ImportStateCompleted  ImportState = "COMPLETED"
	ImportStateCancelled  ImportState = "CANCELLED"
)

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // string, number, percent, money, url
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity  string                 `json:"entity"`
	Version string                 `json:"version"`
	Columns []ImportTemplateColumn `json:"columns"`
}

// Coupon is the optional vendor coupon attached to a row
type Coupon struct {
	Code     string `json:"code"`
	Value    string `json:"value,omitempty"`
	MinSpend string `json:"minSpend,omitempty"`
	EndDate  string `json:"endDate,omitempty"`
}

// Validity is the validator's verdict for one candidate
type Validity struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// CandidateProduct is a spreadsheet row mapped into catalog shape but not yet committed
type CandidateProduct struct {
	RowNumber             int             `json:"rowNumber"`
	ExternalID            string          `json:"externalId"`
	Title                 string          `json:"title"`
	ShortDescription      string          `json:"shortDescription"`
	ImageURL              string          `json:"imageUrl"`
	VideoURL              *string         `json:"videoUrl,omitempty"`
	SourceURL             string          `json:"sourceUrl"`
	AffiliateURL          string          `json:"affiliateUrl"`
	PriceRaw              string          `json:"priceRaw,omitempty"`
	Price                 decimal.Decimal `json:"price"`
	OriginalPrice         decimal.Decimal `json:"originalPrice"`
	Currency              string          `json:"currency"`
	DiscountPercent       float64         `json:"discountPercent"`
	CommissionRatePercent float64         `json:"commissionRatePercent"`
	SalesCount            int             `json:"salesCount"`
	RatingOutOf5          float64         `json:"ratingOutOf5"`
	Coupon                *Coupon         `json:"coupon,omitempty"`
	CategoryID            *uuid.UUID      `json:"categoryId,omitempty"`
	Validity              Validity        `json:"validity"`
	DuplicateFlag         bool            `json:"duplicateFlag"`
	DuplicateReason       string          `json:"duplicateReason,omitempty"`
}

// Eligible reports whether the candidate may be committed
func (c CandidateProduct) Eligible() bool {
	return c.Validity.IsValid && !c.DuplicateFlag
}

// ImportRowError represents an error for a specific row
type ImportRowError struct {
	Row        int    `json:"row"`
	ExternalID string `json:"externalId,omitempty"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// ImportProgress is reported after every processed candidate
type ImportProgress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Title   string `json:"title"`
}

// ImportResult holds the final counters of one commit run.
// Skipped = DuplicatesSkipped (flagged at scan) + LateSkipped (found during commit).
type ImportResult struct {
	Success           int              `json:"success"`
	Failed            int              `json:"failed"`
	Skipped           int              `json:"skipped"`
	DuplicatesSkipped int              `json:"duplicatesSkipped"`
	LateSkipped       int              `json:"lateSkipped"`
	LinkFailures      int              `json:"linkFailures"`
	Eligible          int              `json:"eligible"`
	Cancelled         bool             `json:"cancelled"`
	CreatedIDs        []uuid.UUID      `json:"createdIds,omitempty"`
	Errors            []ImportRowError `json:"errors,omitempty"`
	StartedAt         time.Time        `json:"startedAt"`
	FinishedAt        time.Time        `json:"finishedAt"`
}

// Processed counts candidates the commit loop actually reached
func (r ImportResult) Processed() int {
	return r.Success + r.Failed + r.LateSkipped
}

// ImportSessionSummary is the preview/status document returned to the admin UI
type ImportSessionSummary struct {
	ID             uuid.UUID          `json:"id"`
	State          ImportState        `json:"state"`
	FileName       string             `json:"fileName,omitempty"`
	CategoryID     *uuid.UUID         `json:"categoryId,omitempty"`
	TotalRows      int                `json:"totalRows"`
	ValidCount     int                `json:"validCount"`
	InvalidCount   int                `json:"invalidCount"`
	DuplicateCount int                `json:"duplicateCount"`
	EligibleCount  int                `json:"eligibleCount"`
	Candidates     []CandidateProduct `json:"candidates,omitempty"`
	Progress       *ImportProgress    `json:"progress,omitempty"`
	Result         *ImportResult      `json:"result,omitempty"`
	LastError      string             `json:"lastError,omitempty"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// RetrofitRequest adds a category to already-imported products
type RetrofitRequest struct {
	CategoryID  string   `json:"categoryId"`
	ExternalIDs []string `json:"externalIds"`
}

// RetrofitResult reports an additive category retrofit
type RetrofitResult struct {
	Message string `json:"message"`
	Updated int    `json:"updated"`
	Skipped int    `json:"skipped"`
	Total   int    `json:"total"`
}

// ProductImportColumns returns the column definitions for the AliExpress import
func ProductImportColumns() []ImportTemplateColumn {
	return []ImportTemplateColumn{
		{Name: ColProductID, Description: "AliExpress product ID", Required: true, Type: "string", Example: "1005008075278941"},
		{Name: ColImageURL, Description: "Main product image", Required: true, Type: "url", Example: "https://ae-pic-a1.aliexpress-media.com/kf/example.jpg"},
		{Name: ColVideoURL, Description: "Product video", Required: false, Type: "url", Example: ""},
		{Name: ColProductDesc, Description: "Product title/description", Required: true, Type: "string", Example: "Your Product Title Here"},
		{Name: ColOriginPrice, Description: "Price before discount", Required: false, Type: "money", Example: "MXN 91.60"},
		{Name: ColDiscountPrice, Description: "Selling price", Required: true, Type: "money", Example: "MXN 83.90"},
		{Name: ColDiscount, Description: "Discount percentage", Required: false, Type: "percent", Example: "8%"},
		{Name: ColCurrency, Description: "ISO currency code", Required: false, Type: "string", Example: "MXN"},
		{Name: ColDirectCommissionRate, Description: "Direct commission rate", Required: false, Type: "number", Example: "7"},
		{Name: ColDirectCommission, Description: "Estimated direct commission", Required: false, Type: "money", Example: "MXN 5.87"},
		{Name: ColIndirectCommissionRate, Description: "Indirect commission rate", Required: false, Type: "number", Example: "7"},
		{Name: ColIndirectCommission, Description: "Estimated indirect commission", Required: false, Type: "money", Example: "MXN 5.87"},
		{Name: ColSales180Day, Description: "Sales in the last 180 days", Required: false, Type: "number", Example: "2223"},
		{Name: ColPositiveFeedback, Description: "Positive feedback percentage", Required: false, Type: "percent", Example: "94.30%"},
		{Name: ColPromotionURL, Description: "Tracked affiliate link", Required: true, Type: "url", Example: "https://s.click.aliexpress.com/e/_example"},
		{Name: ColCodeName, Description: "Coupon code", Required: false, Type: "string", Example: ""},
		{Name: ColCodeStartTime, Description: "Coupon start", Required: false, Type: "string", Example: ""},
		{Name: ColCodeEndTime, Description: "Coupon end", Required: false, Type: "string", Example: ""},
		{Name: ColCodeValue, Description: "Coupon value", Required: false, Type: "string", Example: ""},
		{Name: ColCodeQuantity, Description: "Coupon quantity", Required: false, Type: "number", Example: ""},
		{Name: ColCodeMinimumSpend, Description: "Coupon minimum spend", Required: false, Type: "money", Example: ""},
	}
}

// ProductImportTemplate returns the template definition for the AliExpress export
func ProductImportTemplate() ImportTemplate {
	return ImportTemplate{
		Entity:  "aliexpress-products",
		Version: "1.0",
		Columns: ProductImportColumns(),
	}
}
