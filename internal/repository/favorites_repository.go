package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"storefront-service/internal/models"
)

type FavoritesRepository struct {
	db *gorm.DB
}

func NewFavoritesRepository(db *gorm.DB) *FavoritesRepository {
	return &FavoritesRepository{db: db}
}

// List returns the user's favorites with their products, newest first
func (r *FavoritesRepository) List(ctx context.Context, userID uuid.UUID) ([]models.Favorite, error) {
	favorites := make([]models.Favorite, 0)
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&favorites).Error
	return favorites, err
}

// Add saves a product for the user; saving it twice is a no-op
func (r *FavoritesRepository) Add(ctx context.Context, userID, productID uuid.UUID) error {
	fav := models.Favorite{ID: uuid.New(), UserID: userID, ProductID: productID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(&fav).Error
}

// Remove deletes a saved product; it reports whether a row was removed
func (r *FavoritesRepository) Remove(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.Favorite{})
	return res.RowsAffected > 0, res.Error
}

