package repositories

import (
	"context"

	"clubdesk/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// auditRepository implements AuditRepository interface. The table is
// append-only: no Update or Delete methods exist.
type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *auditRepository) WithTx(tx *gorm.DB) AuditRepository {
	return &auditRepository{db: tx}
}

// Record appends an audit record. Failure here must abort the
// enclosing transaction: a mutation never commits without its record.
func (r *auditRepository) Record(ctx context.Context, record *models.AuditRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ListByEntity lists audit records for an entity, newest first
func (r *auditRepository) ListByEntity(ctx context.Context, entityType string, entityID uint, limit int) ([]*models.AuditRecord, error) {
	var records []*models.AuditRecord
	err := r.db.WithContext(ctx).
		Where("entity_type = ?", entityType).
		Where("entity_id = ?", entityID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// List lists audit records with pagination, newest first
func (r *auditRepository) List(ctx context.Context, offset, limit int) ([]*models.AuditRecord, int64, error) {
	var records []*models.AuditRecord
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.AuditRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}
