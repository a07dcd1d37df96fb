package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"storefront-service/internal/config"
	"storefront-service/internal/mailer"
	"storefront-service/internal/middleware"
	"storefront-service/internal/models"
)

const (
	MagicLinkTTL       = 15 * time.Minute
	magicLinkKeyPrefix = "storefront:magic:"
	countryCookieTTL   = 365 * 24 * time.Hour
)

var ErrTokenNotFound = errors.New("magic link token not found or expired")

// UserStore is the part of the users repository the auth endpoints need
type UserStore interface {
	GetAdminByEmail(ctx context.Context, email string) (*models.User, error)
	UpsertCustomer(ctx context.Context, email string) (*models.User, error)
	UpdateCountry(ctx context.Context, id uuid.UUID, country string) error
}

// TokenStore keeps one-time magic link tokens
type TokenStore interface {
	Save(ctx context.Context, token, email string, ttl time.Duration) error
	Consume(ctx context.Context, token string) (string, error)
}

// RedisTokenStore stores magic link tokens as expiring Redis keys
type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) Save(ctx context.Context, token, email string, ttl time.Duration) error {
	return s.client.Set(ctx, magicLinkKeyPrefix+token, email, ttl).Err()
}

// Consume returns the email for token and deletes it, so a link works once
func (s *RedisTokenStore) Consume(ctx context.Context, token string) (string, error) {
	email, err := s.client.GetDel(ctx, magicLinkKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	return email, err
}

type AuthHandler struct {
	users  UserStore
	tokens TokenStore
	mailer mailer.Mailer
	cfg    *config.Config
	logger *logrus.Entry
}

func NewAuthHandler(users UserStore, tokens TokenStore, m mailer.Mailer, cfg *config.Config, logger *logrus.Logger) *AuthHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AuthHandler{
		users:  users,
		tokens: tokens,
		mailer: m,
		cfg:    cfg,
		logger: logger.WithField("component", "auth-handler"),
	}
}

// AdminLogin checks an admin's password and sets the admin session cookie
// POST /api/v1/admin/login
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req models.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	user, err := h.users.GetAdminByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			h.logger.WithError(err).Error("Failed to load admin")
		}
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}
	if user.PasswordHash == nil || bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)) != nil {
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}

	token, err := middleware.IssueSessionToken(h.cfg.JWTSecret, user, middleware.AudienceAdmin, h.cfg.AdminSessionTTL)
	if err != nil {
		h.logger.WithError(err).Error("Failed to sign admin session")
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create session")
		return
	}
	h.setCookie(c, h.cfg.AdminSessionCookie, token, h.cfg.AdminSessionTTL)

	h.logger.WithField("email", user.Email).Info("Admin signed in")
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// AdminLogout clears the admin session cookie
// POST /api/v1/admin/logout
func (h *AuthHandler) AdminLogout(c *gin.Context) {
	h.setCookie(c, h.cfg.AdminSessionCookie, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RequestMagicLink emails a one-time sign-in link. The answer is the same whether
// or not the address is known.
// POST /api/v1/auth/magic-link
func (h *AuthHandler) RequestMagicLink(c *gin.Context) {
	var req models.MagicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "A valid email is required")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	token, err := newToken()
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate magic link token")
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to send sign-in link")
		return
	}
	if err := h.tokens.Save(c.Request.Context(), token, email, MagicLinkTTL); err != nil {
		h.logger.WithError(err).Error("Failed to store magic link token")
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to send sign-in link")
		return
	}

	link := h.cfg.SiteURL + "/api/v1/auth/verify?token=" + url.QueryEscape(token)
	if err := h.mailer.SendMagicLink(c.Request.Context(), email, link); err != nil {
		h.logger.WithError(err).Error("Failed to send magic link")
		respondError(c, http.StatusBadGateway, "EMAIL_FAILED", "Failed to send sign-in link")
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: stringPtr("Check your email for a sign-in link"),
	})
}

// VerifyMagicLink consumes the token, signs the customer in and sends them home
// GET /api/v1/auth/verify?token=
func (h *AuthHandler) VerifyMagicLink(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		respondError(c, http.StatusBadRequest, "INVALID_TOKEN", "Missing token")
		return
	}

	email, err := h.tokens.Consume(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, ErrTokenNotFound) {
			h.logger.WithError(err).Error("Failed to read magic link token")
		}
		respondError(c, http.StatusBadRequest, "INVALID_TOKEN", "This sign-in link is invalid or has expired")
		return
	}

	user, err := h.users.UpsertCustomer(c.Request.Context(), email)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upsert customer")
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to sign in")
		return
	}

	session, err := middleware.IssueSessionToken(h.cfg.JWTSecret, user, middleware.AudienceCustomer, h.cfg.CustomerSessionTTL)
	if err != nil {
		h.logger.WithError(err).Error("Failed to sign customer session")
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to sign in")
		return
	}
	h.setCookie(c, h.cfg.CustomerSessionCookie, session, h.cfg.CustomerSessionTTL)
	if user.Country != nil && *user.Country != "" {
		h.setCookie(c, h.cfg.CountryCookie, *user.Country, countryCookieTTL)
	}

	c.Redirect(http.StatusFound, h.cfg.SiteURL+"/")
}

// CustomerLogout clears the customer session cookie
// POST /api/v1/auth/logout
func (h *AuthHandler) CustomerLogout(c *gin.Context) {
	h.setCookie(c, h.cfg.CustomerSessionCookie, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetCountry returns the visitor's resolved country and the supported list
// GET /api/v1/storefront/country
func (h *AuthHandler) GetCountry(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"country":   middleware.GetCountry(c),
		"countries": models.SupportedCountries,
	})
}

type setCountryRequest struct {
	Country string `json:"country" binding:"required"`
}

// SetCountry stores the visitor's country preference
// PUT /api/v1/storefront/country
func (h *AuthHandler) SetCountry(c *gin.Context) {
	var req setCountryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.Country))
	country, ok := models.CountryByCode(code)
	if !ok {
		respondError(c, http.StatusBadRequest, "INVALID_COUNTRY", "Unsupported country")
		return
	}

	h.setCookie(c, h.cfg.CountryCookie, country.Code, countryCookieTTL)
	if userID, ok := middleware.GetUserID(c); ok {
		if err := h.users.UpdateCountry(c.Request.Context(), userID, country.Code); err != nil {
			h.logger.WithError(err).Warn("Failed to save country preference")
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "country": country})
}

// setCookie writes an HttpOnly cookie; a negative ttl deletes it
func (h *AuthHandler) setCookie(c *gin.Context, name, value string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", h.cfg.IsProduction(), true)
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
