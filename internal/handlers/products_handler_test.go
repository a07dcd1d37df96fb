package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"storefront-service/internal/models"
	"storefront-service/internal/repository"
)

func setupCatalogRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	repo := repository.NewCatalogRepository(gormDB, nil)
	products := NewProductsHandler(repo, nil, 12, 100, nil)
	categories := NewCategoriesHandler(repo, nil)

	router := gin.New()
	router.GET("/storefront/products", products.GetProducts)
	router.GET("/storefront/products/:id", products.GetProduct)
	router.PATCH("/admin/products/:id", products.UpdateProduct)
	router.DELETE("/admin/products/:id", products.DeleteProduct)
	router.POST("/admin/categories", categories.CreateCategory)
	router.POST("/admin/categories/:id/move", categories.MoveCategory)
	return router, mock
}

func TestGetProducts_Pagination(t *testing.T) {
	router, mock := setupCatalogRouter(t)

	now := time.Now()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "products" WHERE status IN`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(13))
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE status IN .* ORDER BY created_at DESC LIMIT .* OFFSET`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "status", "created_at", "updated_at"}).
			AddRow(uuid.New(), "Earbuds", "ACTIVE", now, now))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/storefront/products?page=2&limit=5&sort=bogus", nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.ProductListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Products, 1)
	assert.Equal(t, &models.PaginationInfo{Page: 2, Limit: 5, TotalCount: 13, HasMore: true, TotalPages: 3}, resp.Pagination)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProduct_InvalidID(t *testing.T) {
	router, mock := setupCatalogRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/storefront/products/abc", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_ID")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProduct_LookupErrors(t *testing.T) {
	tests := []struct {
		name     string
		expect   func(mock sqlmock.Sqlmock)
		wantCode int
		wantErr  string
	}{
		{"missing product", func(mock sqlmock.Sqlmock) {
			mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = `).
				WillReturnRows(sqlmock.NewRows([]string{"id"}))
		}, http.StatusNotFound, "NOT_FOUND"},
		{"database failure", func(mock sqlmock.Sqlmock) {
			mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = `).
				WillReturnError(errors.New("connection reset by peer"))
		}, http.StatusInternalServerError, "FETCH_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, mock := setupCatalogRouter(t)
			tt.expect(mock)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/storefront/products/"+uuid.NewString(), nil))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantErr)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUpdateProduct_Validation(t *testing.T) {
	router, mock := setupCatalogRouter(t)
	path := "/admin/products/" + uuid.NewString()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty patch", `{}`, "VALIDATION_ERROR"},
		{"bad status", `{"status":"LIVE"}`, "INVALID_STATUS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, jsonRequest(http.MethodPatch, path, tt.body))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProduct_NotFound(t *testing.T) {
	router, mock := setupCatalogRouter(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "products" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(http.MethodPatch, "/admin/products/"+uuid.NewString(), `{"title":"New"}`))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveCategory_BadDirection(t *testing.T) {
	router, mock := setupCatalogRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(http.MethodPost, "/admin/categories/"+uuid.NewString()+"/move", `{"direction":"left"}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_DIRECTION")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCategory_RejectsEmptySlug(t *testing.T) {
	router, mock := setupCatalogRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(http.MethodPost, "/admin/categories", `{"name":"!!!"}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_SLUG")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductUpdates(t *testing.T) {
	title := "  Earbuds Pro "
	price := decimal.RequireFromString("19.99")
	status := models.ProductStatusActive

	updates, changed := productUpdates(models.UpdateProductRequest{
		Title:  &title,
		Price:  &price,
		Status: &status,
	})

	assert.Equal(t, map[string]interface{}{
		"title":  "Earbuds Pro",
		"price":  price,
		"status": status,
	}, updates)
	assert.Equal(t, []string{"title", "price", "status"}, changed)
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, models.SortPriceAsc, parseSort("price_asc"))
	assert.Equal(t, models.SortTrending, parseSort("trending"))
	assert.Equal(t, models.SortNewest, parseSort(""))
	assert.Equal(t, models.SortNewest, parseSort(strings.ToUpper("price_asc")))
}

func TestNewPagination(t *testing.T) {
	p := newPagination(3, 12, 36)
	assert.False(t, p.HasMore)
	assert.Equal(t, 3, p.TotalPages)

	p = newPagination(1, 12, 0)
	assert.False(t, p.HasMore)
	assert.Equal(t, 0, p.TotalPages)
}
