package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"storefront-service/internal/models"
)

type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// List returns every setting ordered by key
func (r *SettingsRepository) List(ctx context.Context) ([]models.SiteSetting, error) {
	settings := make([]models.SiteSetting, 0)
	err := r.db.WithContext(ctx).Order("key ASC").Find(&settings).Error
	return settings, err
}

// Get returns one setting or gorm.ErrRecordNotFound
func (r *SettingsRepository) Get(ctx context.Context, key string) (*models.SiteSetting, error) {
	var setting models.SiteSetting
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

// Upsert replaces the JSON value stored under key
func (r *SettingsRepository) Upsert(ctx context.Context, key string, value datatypes.JSON) (*models.SiteSetting, error) {
	setting := models.SiteSetting{Key: key, Value: value, UpdatedAt: time.Now()}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}
