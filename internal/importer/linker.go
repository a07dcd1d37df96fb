package importer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"storefront-service/internal/models"
)

// Retrofit links already-imported products, matched by external ID, to categoryID.
// Existing links are left alone and no pair is inserted twice, so a repeated call
// reports updated = 0.
func Retrofit(ctx context.Context, store CatalogStore, categoryID uuid.UUID, externalIDs []string) (*models.RetrofitResult, error) {
	ids := uniqueNonEmpty(externalIDs)
	if len(ids) == 0 {
		return nil, ErrNothingToRetrofit
	}

	products, err := store.FindProductsByExternalIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	if len(products) == 0 {
		return &models.RetrofitResult{Message: "No matching products found in database"}, nil
	}

	productIDs := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		productIDs = append(productIDs, p.ID)
	}

	linked, err := store.FindCategoryLinks(ctx, productIDs, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing category links: %w", err)
	}
	already := make(map[uuid.UUID]struct{}, len(linked))
	for _, id := range linked {
		already[id] = struct{}{}
	}

	links := make([]models.ProductCategory, 0, len(productIDs))
	for _, id := range productIDs {
		if _, ok := already[id]; ok {
			continue
		}
		links = append(links, models.ProductCategory{ProductID: id, CategoryID: categoryID})
	}

	if len(links) == 0 {
		return &models.RetrofitResult{
			Message: "All matching products already have this category assigned",
			Skipped: len(productIDs),
			Total:   len(productIDs),
		}, nil
	}

	if err := store.InsertCategoryLinks(ctx, links); err != nil {
		return nil, &LinkError{CategoryID: categoryID, Err: err}
	}

	return &models.RetrofitResult{
		Message: "Categories updated successfully",
		Updated: len(links),
		Skipped: len(productIDs) - len(links),
		Total:   len(productIDs),
	}, nil
}

func uniqueNonEmpty(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
