package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"storefront-service/internal/models"
)

const (
	ContextCountry = "country"
	// Geo header set by the edge in front of the storefront
	GeoCountryHeader = "X-Vercel-IP-Country"
)

// Country resolves the visitor's shipping country: the preference cookie wins,
// then the edge geo header, then the configured default. Unsupported codes are ignored.
func Country(cookieName, defaultCountry string) gin.HandlerFunc {
	return func(c *gin.Context) {
		country := defaultCountry
		if v, err := c.Cookie(cookieName); err == nil && isSupported(v) {
			country = strings.ToUpper(v)
		} else if v := c.GetHeader(GeoCountryHeader); isSupported(v) {
			country = strings.ToUpper(v)
		}
		c.Set(ContextCountry, country)
		c.Next()
	}
}

// GetCountry returns the country resolved by Country
func GetCountry(c *gin.Context) string {
	return c.GetString(ContextCountry)
}

func isSupported(code string) bool {
	if code == "" {
		return false
	}
	_, ok := models.CountryByCode(strings.ToUpper(code))
	return ok
}
