package repositories

import (
	"context"
	"time"

	"clubdesk/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// sessionRepository implements SessionRepository interface
type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *sessionRepository) WithTx(tx *gorm.DB) SessionRepository {
	return &sessionRepository{db: tx}
}

// Create creates a new session
func (r *sessionRepository) Create(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// GetByTokenHash gets a non-expired session by its token hash.
// An expired-but-not-yet-swept session is treated as nonexistent.
func (r *sessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		Where("expires_at > ?", time.Now()).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Touch bumps the session's last-used timestamp
func (r *sessionRepository) Touch(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}

// Delete deletes a session by ID. Deleting a nonexistent session is
// not an error.
func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Session{}).Error
}

// DeleteByMember deletes all sessions for a member
func (r *sessionRepository) DeleteByMember(ctx context.Context, memberID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Delete(&models.Session{})
	return result.RowsAffected, result.Error
}

// DeleteExpired deletes all sessions past expiry (cleanup job)
func (r *sessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", before).
		Delete(&models.Session{})
	return result.RowsAffected, result.Error
}
