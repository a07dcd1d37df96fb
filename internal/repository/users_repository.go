package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"storefront-service/internal/models"
)

type UsersRepository struct {
	db *gorm.DB
}

func NewUsersRepository(db *gorm.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

// GetAdminByEmail returns the ADMIN user with that email, or gorm.ErrRecordNotFound
func (r *UsersRepository) GetAdminByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ? AND role = ?", normalizeEmail(email), models.UserRoleAdmin).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertCustomer finds a user by email or creates a USER row for it.
// An existing admin keeps its role.
func (r *UsersRepository) UpsertCustomer(ctx context.Context, email string) (*models.User, error) {
	email = normalizeEmail(email)
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{ID: uuid.New(), Email: email, Role: models.UserRoleUser}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(&user).Error
	if err != nil {
		return nil, err
	}
	// lost a race with a concurrent verify; read the winner back
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateCountry stores the user's preferred shipping country
func (r *UsersRepository) UpdateCountry(ctx context.Context, id uuid.UUID, country string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("country", country).Error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
