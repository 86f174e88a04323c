package repositories

import (
	"context"

	"clubdesk/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// csrfTokenRepository implements CsrfTokenRepository interface
type csrfTokenRepository struct {
	db *gorm.DB
}

// NewCsrfTokenRepository creates a new CSRF token repository
func NewCsrfTokenRepository(db *gorm.DB) CsrfTokenRepository {
	return &csrfTokenRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *csrfTokenRepository) WithTx(tx *gorm.DB) CsrfTokenRepository {
	return &csrfTokenRepository{db: tx}
}

// Upsert stores the token for a session, replacing any prior one
func (r *csrfTokenRepository) Upsert(ctx context.Context, token *models.CsrfToken) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"token_hash", "updated_at"}),
		}).
		Create(token).Error
}

// GetBySessionID gets the live token for a session
func (r *csrfTokenRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.CsrfToken, error) {
	var token models.CsrfToken
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Delete deletes the token for a session
func (r *csrfTokenRepository) Delete(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&models.CsrfToken{}).Error
}

// DeleteOrphaned deletes tokens whose session no longer exists
// (cleanup job; the FK cascade covers explicit session deletion)
func (r *csrfTokenRepository) DeleteOrphaned(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("session_id NOT IN (?)", r.db.Model(&models.Session{}).Select("id")).
		Delete(&models.CsrfToken{})
	return result.RowsAffected, result.Error
}
