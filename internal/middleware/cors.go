package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the storefront site and local development origins.
// Credentials are allowed because sessions travel in cookies.
func CORS(siteURL string) gin.HandlerFunc {
	origins := []string{
		"http://localhost:3000", // Next.js storefront
		"http://localhost:3001", // Admin dev server
	}
	if siteURL != "" && siteURL != "http://localhost:3000" {
		origins = append(origins, siteURL)
	}

	config := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	return cors.New(config)
}
