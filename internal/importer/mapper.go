package importer

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"storefront-service/internal/models"
)

const (
	// MaxTitleLength is the rune limit applied when the description doubles as the title
	MaxTitleLength  = 200
	DefaultCurrency = "USD"
	feedbackScale   = 20.0
)

// Row is one spreadsheet data row keyed by header name. Empty cells are absent keys.
type Row struct {
	Number int
	Cells  map[string]string
}

// MapRow converts one AliExpress export row into a candidate. It has no side effects
// and never fails: unparseable numbers become zero, missing text becomes empty.
func MapRow(row Row) models.CandidateProduct {
	cells := row.Cells
	get := func(col string) string {
		return strings.TrimSpace(cells[col])
	}

	desc := get(models.ColProductDesc)
	promotionURL := get(models.ColPromotionURL)

	candidate := models.CandidateProduct{
		RowNumber:             row.Number,
		ExternalID:            get(models.ColProductID),
		Title:                 truncateRunes(desc, MaxTitleLength),
		ShortDescription:      desc,
		ImageURL:              get(models.ColImageURL),
		SourceURL:             stripQuery(promotionURL),
		AffiliateURL:          promotionURL,
		PriceRaw:              get(models.ColDiscountPrice),
		Price:                 ParsePrice(get(models.ColDiscountPrice)),
		OriginalPrice:         ParsePrice(get(models.ColOriginPrice)),
		Currency:              DefaultCurrency,
		DiscountPercent:       ParsePercentage(get(models.ColDiscount)),
		CommissionRatePercent: ParsePercentage(get(models.ColDirectCommissionRate)),
		SalesCount:            parseCount(get(models.ColSales180Day)),
		RatingOutOf5:          FeedbackToRating(ParsePercentage(get(models.ColPositiveFeedback))),
	}

	if v := get(models.ColVideoURL); v != "" {
		candidate.VideoURL = &v
	}
	if cur := get(models.ColCurrency); cur != "" {
		candidate.Currency = strings.ToUpper(cur)
	}
	if code := get(models.ColCodeName); code != "" {
		candidate.Coupon = &models.Coupon{
			Code:     code,
			Value:    get(models.ColCodeValue),
			MinSpend: get(models.ColCodeMinimumSpend),
			EndDate:  get(models.ColCodeEndTime),
		}
	}

	return candidate
}

// MapRows maps every row in order
func MapRows(rows []Row) []models.CandidateProduct {
	candidates := make([]models.CandidateProduct, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, MapRow(row))
	}
	return candidates
}

// ParsePrice reads money strings such as "MXN 91.60" or "$1,299.00".
// Everything except digits and '.' is dropped, then the leading number is parsed.
func ParsePrice(s string) decimal.Decimal {
	n := leadingNumber(sanitizeNumber(s))
	if n == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParsePercentage reads strings such as "94.30%" or "8%" using the same rules as ParsePrice
func ParsePercentage(s string) float64 {
	n := leadingNumber(sanitizeNumber(s))
	if n == "" {
		return 0
	}
	f, err := strconv.ParseFloat(n, 64)
	if err != nil {
		return 0
	}
	return f
}

// FeedbackToRating converts a 0-100 positive feedback percentage to a 0-5 rating
func FeedbackToRating(percent float64) float64 {
	return percent / feedbackScale
}

// RatingToFeedback is the inverse of FeedbackToRating
func RatingToFeedback(rating float64) float64 {
	return rating * feedbackScale
}

func sanitizeNumber(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// leadingNumber returns the longest prefix that is a plain decimal number,
// so "1.2.3" reads as "1.2" and "5." reads as "5".
func leadingNumber(s string) string {
	end := 0
	seenDot := false
	for i, r := range s {
		if r == '.' {
			if seenDot {
				break
			}
			seenDot = true
			continue
		}
		end = i + 1
	}
	if end == 0 {
		return ""
	}
	n := s[:end]
	if strings.HasPrefix(n, ".") {
		n = "0" + n
	}
	return n
}

func parseCount(s string) int {
	f := ParsePercentage(s)
	if f <= 0 {
		return 0
	}
	return int(f)
}

func stripQuery(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
