package importer

import (
	"context"

	"github.com/google/uuid"
	"storefront-service/internal/models"
)

// ExistingProduct is the minimal projection the duplicate checks need
type ExistingProduct struct {
	ID         uuid.UUID
	ExternalID string
}

// CatalogStore is the persistence surface the import pipeline depends on.
// Implemented by repository.CatalogRepository; tests use an in-memory fake.
type CatalogStore interface {
	FindProductsByExternalIDs(ctx context.Context, externalIDs []string) ([]ExistingProduct, error)
	InsertProduct(ctx context.Context, product *models.Product) error
	InsertCategoryLink(ctx context.Context, productID, categoryID uuid.UUID) error
	InsertCategoryLinks(ctx context.Context, links []models.ProductCategory) error
	FindCategoryLinks(ctx context.Context, productIDs []uuid.UUID, categoryID uuid.UUID) ([]uuid.UUID, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
}
