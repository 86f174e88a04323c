package repositories

import (
	"context"

	"clubdesk/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// settingsRepository implements SettingsRepository interface
type settingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *settingsRepository) WithTx(tx *gorm.DB) SettingsRepository {
	return &settingsRepository{db: tx}
}

// Get gets a setting by key
func (r *settingsRepository) Get(ctx context.Context, key string) (*models.AppSetting, error) {
	var setting models.AppSetting
	err := r.db.WithContext(ctx).Where("`key` = ?", key).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// GetByCategory gets all settings in a category
func (r *settingsRepository) GetByCategory(ctx context.Context, category string) ([]*models.AppSetting, error) {
	var settings []*models.AppSetting
	err := r.db.WithContext(ctx).
		Where("category = ?", category).
		Order("`key`").
		Find(&settings).Error
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// List lists all settings
func (r *settingsRepository) List(ctx context.Context) ([]*models.AppSetting, error) {
	var settings []*models.AppSetting
	err := r.db.WithContext(ctx).
		Order("category, `key`").
		Find(&settings).Error
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// Upsert creates or replaces a setting
func (r *settingsRepository) Upsert(ctx context.Context, setting *models.AppSetting) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "value_type", "category", "description", "is_sensitive", "updated_by", "updated_at"}),
		}).
		Create(setting).Error
}
