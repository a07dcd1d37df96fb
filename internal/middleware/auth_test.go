package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront-service/internal/models"
)

const (
	testSecret = "test-secret"
	testCookie = "admin_session"
)

func guardedRouter(guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", guard, func(c *gin.Context) {
		id, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id.String(), "role": c.GetString(ContextUserRole)})
	})
	return router
}

func issue(t *testing.T, role models.UserRole, audience string, ttl time.Duration) (string, *models.User) {
	t.Helper()
	user := &models.User{ID: uuid.New(), Email: "a@example.com", Role: role}
	token, err := IssueSessionToken(testSecret, user, audience, ttl)
	require.NoError(t, err)
	return token, user
}

func TestParseSessionToken(t *testing.T) {
	token, user := issue(t, models.UserRoleAdmin, AudienceAdmin, time.Hour)

	claims, err := ParseSessionToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID)
	assert.Equal(t, models.UserRoleAdmin, claims.Role)
	assert.True(t, claims.VerifyAudience(AudienceAdmin, true))

	_, err = ParseSessionToken("other-secret", token)
	assert.Error(t, err)

	expired, _ := issue(t, models.UserRoleAdmin, AudienceAdmin, -time.Minute)
	_, err = ParseSessionToken(testSecret, expired)
	assert.Error(t, err)
}

func TestRequireAdmin(t *testing.T) {
	router := guardedRouter(RequireAdmin(testSecret, testCookie))
	adminToken, admin := issue(t, models.UserRoleAdmin, AudienceAdmin, time.Hour)
	userToken, _ := issue(t, models.UserRoleUser, AudienceCustomer, time.Hour)
	adminCustomerToken, _ := issue(t, models.UserRoleAdmin, AudienceCustomer, time.Hour)

	tests := []struct {
		name     string
		prepare  func(r *http.Request)
		wantCode int
	}{
		{"no session", func(r *http.Request) {}, http.StatusUnauthorized},
		{"garbage cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: testCookie, Value: "nope"})
		}, http.StatusUnauthorized},
		{"customer session", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: testCookie, Value: userToken})
		}, http.StatusUnauthorized},
		{"admin user's customer session as cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: testCookie, Value: adminCustomerToken})
		}, http.StatusUnauthorized},
		{"admin user's customer session as bearer", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+adminCustomerToken)
		}, http.StatusUnauthorized},
		{"admin cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: testCookie, Value: adminToken})
		}, http.StatusOK},
		{"admin bearer", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+adminToken)
		}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			tt.prepare(req)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusOK {
				assert.Contains(t, w.Body.String(), admin.ID.String())
			} else {
				assert.Contains(t, w.Body.String(), `"UNAUTHORIZED"`)
			}
		})
	}
}

func TestRequireCustomer(t *testing.T) {
	router := guardedRouter(RequireCustomer(testSecret, testCookie))

	t.Run("customer session", func(t *testing.T) {
		token, user := issue(t, models.UserRoleUser, AudienceCustomer, time.Hour)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: testCookie, Value: token})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), user.ID.String())
		assert.Contains(t, w.Body.String(), `"role":"USER"`)
	})

	t.Run("admin session is not a customer session", func(t *testing.T) {
		token, _ := issue(t, models.UserRoleAdmin, AudienceAdmin, time.Hour)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: testCookie, Value: token})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestIssueSessionToken_CustomerRoleIsUser(t *testing.T) {
	token, _ := issue(t, models.UserRoleAdmin, AudienceCustomer, time.Hour)

	claims, err := ParseSessionToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleUser, claims.Role)
	assert.False(t, claims.VerifyAudience(AudienceAdmin, true))
}

func TestOptionalCustomer_PassesAnonymous(t *testing.T) {
	router := guardedRouter(OptionalCustomer(testSecret, testCookie))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), uuid.Nil.String())
}
