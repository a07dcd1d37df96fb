package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const serviceName = "storefront-service"

// HealthCheck handles liveness probes
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
	})
}

// ReadinessCheck reports unready when the database is unreachable.
// Redis is optional, so a Redis failure only degrades the status.
func ReadinessCheck(db *gorm.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		code := http.StatusOK
		checks := gin.H{}

		if sqlDB, err := db.DB(); err != nil {
			checks["database"] = gin.H{"status": "unhealthy", "error": err.Error()}
		} else if err := sqlDB.PingContext(ctx); err != nil {
			checks["database"] = gin.H{"status": "unhealthy", "error": err.Error()}
		} else {
			checks["database"] = gin.H{"status": "healthy"}
		}
		if checks["database"].(gin.H)["status"] != "healthy" {
			status = "unready"
			code = http.StatusServiceUnavailable
		}

		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				checks["redis"] = gin.H{"status": "unhealthy", "error": err.Error()}
				if code == http.StatusOK {
					status = "degraded"
				}
			} else {
				checks["redis"] = gin.H{"status": "healthy"}
			}
		}

		c.JSON(code, gin.H{
			"status":  status,
			"service": serviceName,
			"checks":  checks,
		})
	}
}
