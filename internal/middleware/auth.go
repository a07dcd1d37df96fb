package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"storefront-service/internal/models"
)

// Context keys set by the session guards
const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserRole  = "user_role"
)

// SessionClaims is the payload of both admin and customer session tokens
type SessionClaims struct {
	UserID string          `json:"user_id"`
	Email  string          `json:"email"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Session audiences. An admin session is only ever issued by the password login.
const (
	AudienceAdmin    = "admin"
	AudienceCustomer = "customer"
)

// IssueSessionToken signs a session token for user that expires after ttl.
// Customer tokens always carry the USER role, whatever the user's stored role.
func IssueSessionToken(secret string, user *models.User, audience string, ttl time.Duration) (string, error) {
	role := user.Role
	if audience != AudienceAdmin {
		role = models.UserRoleUser
	}
	now := time.Now()
	claims := SessionClaims{
		UserID: user.ID.String(),
		Email:  user.Email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseSessionToken validates signature and expiry and returns the claims
func ParseSessionToken(secret, tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// RequireAdmin rejects requests without a valid ADMIN session before any handler runs
func RequireAdmin(secret, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := sessionFromRequest(c, secret, cookieName, AudienceAdmin)
		if !ok || claims.Role != models.UserRoleAdmin {
			abortUnauthorized(c)
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// RequireCustomer rejects requests without a valid customer session.
// Admin tokens are not accepted here.
func RequireCustomer(secret, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := sessionFromRequest(c, secret, cookieName, AudienceCustomer)
		if !ok {
			abortUnauthorized(c)
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalCustomer attaches the customer session when one is present
func OptionalCustomer(secret, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := sessionFromRequest(c, secret, cookieName, AudienceCustomer); ok {
			setClaims(c, claims)
		}
		c.Next()
	}
}

// GetUserID returns the authenticated user's id
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString(ContextUserID)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func sessionFromRequest(c *gin.Context, secret, cookieName, audience string) (*SessionClaims, bool) {
	token, err := c.Cookie(cookieName)
	if err != nil || token == "" {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return nil, false
		}
		token = parts[1]
	}
	claims, err := ParseSessionToken(secret, token)
	if err != nil || !claims.VerifyAudience(audience, true) {
		return nil, false
	}
	return claims, true
}

func setClaims(c *gin.Context, claims *SessionClaims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUserEmail, claims.Email)
	c.Set(ContextUserRole, string(claims.Role))
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "UNAUTHORIZED",
			Message: "Unauthorized",
		},
	})
}
