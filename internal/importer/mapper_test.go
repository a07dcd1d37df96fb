package importer

import (
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront-service/internal/models"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"MXN 91.60", "91.6"},
		{"91.60", "91.6"},
		{"US $1,299.00", "1299"},
		{"", "0"},
		{"N/A", "0"},
		{"1.2.3", "1.2"},
		{".5", "0.5"},
		{"5.", "5"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParsePrice(tt.in)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestParsePercentage(t *testing.T) {
	assert.Equal(t, 94.30, ParsePercentage("94.30%"))
	assert.Equal(t, 8.0, ParsePercentage("8%"))
	assert.Equal(t, 0.0, ParsePercentage(""))
	assert.Equal(t, 0.0, ParsePercentage("%"))
}

func TestRatingRoundTrip(t *testing.T) {
	for p := 0.0; p <= 100.0; p += 0.1 {
		back := RatingToFeedback(FeedbackToRating(p))
		assert.InDelta(t, p, back, 1e-9)
	}
	assert.True(t, math.Abs(FeedbackToRating(94.3)-4.715) < 1e-9)
}

func TestMapRow(t *testing.T) {
	r := row(2, "1005008075278941", map[string]string{
		models.ColDirectCommissionRate: "7",
		models.ColVideoURL:             "https://video.example.com/v.mp4",
		models.ColCodeName:             "SAVE5",
		models.ColCodeValue:            "MXN 5.00",
		models.ColCodeMinimumSpend:     "MXN 50.00",
		models.ColCodeEndTime:          "2026-12-31",
	})

	c := MapRow(r)

	assert.Equal(t, 2, c.RowNumber)
	assert.Equal(t, "1005008075278941", c.ExternalID)
	assert.Equal(t, "https://s.click.aliexpress.com/e/_1005008075278941", c.SourceURL)
	assert.Equal(t, "https://s.click.aliexpress.com/e/_1005008075278941?aff=1", c.AffiliateURL)
	assert.True(t, c.Price.Equal(decimal.RequireFromString("83.90")))
	assert.True(t, c.OriginalPrice.Equal(decimal.RequireFromString("91.60")))
	assert.Equal(t, "MXN", c.Currency)
	assert.Equal(t, 8.0, c.DiscountPercent)
	assert.Equal(t, 7.0, c.CommissionRatePercent)
	assert.Equal(t, 2223, c.SalesCount)
	assert.InDelta(t, 4.715, c.RatingOutOf5, 1e-9)
	require.NotNil(t, c.VideoURL)
	require.NotNil(t, c.Coupon)
	assert.Equal(t, "SAVE5", c.Coupon.Code)
	assert.Equal(t, "2026-12-31", c.Coupon.EndDate)
	assert.Nil(t, c.CategoryID)
}

func TestMapRow_Defaults(t *testing.T) {
	c := MapRow(Row{Number: 3, Cells: map[string]string{}})

	assert.Equal(t, DefaultCurrency, c.Currency)
	assert.True(t, c.Price.IsZero())
	assert.Equal(t, 0, c.SalesCount)
	assert.Nil(t, c.VideoURL)
	assert.Nil(t, c.Coupon)
	assert.Empty(t, c.PriceRaw)
}

func TestMapRow_TruncatesTitle(t *testing.T) {
	long := strings.Repeat("é", 250)
	c := MapRow(row(2, "X1", map[string]string{models.ColProductDesc: long}))

	assert.Equal(t, MaxTitleLength, len([]rune(c.Title)))
	assert.Equal(t, long, c.ShortDescription)
}

func TestToProduct(t *testing.T) {
	c := MapRow(row(2, "A1", map[string]string{
		models.ColSales180Day: "1001",
		models.ColDiscount:    "20%",
	}))

	p := ToProduct(c)

	assert.Equal(t, models.ProductStatusDraft, p.Status)
	assert.True(t, p.IsHot)
	assert.True(t, p.IsFeatured)
	require.NotNil(t, p.PositiveFeedback)
	assert.InDelta(t, 94.30, *p.PositiveFeedback, 1e-9)
	assert.Equal(t, c.SourceURL, p.AliURL)
	assert.Nil(t, p.CouponCode)

	c = MapRow(row(2, "A2", map[string]string{
		models.ColSales180Day: "1000",
		models.ColDiscount:    "19.99%",
	}))
	p = ToProduct(c)
	assert.False(t, p.IsHot)
	assert.False(t, p.IsFeatured)
}
