package repositories

import (
	"context"
	"time"

	"clubdesk/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// memberRepository implements MemberRepository interface
type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *memberRepository) WithTx(tx *gorm.DB) MemberRepository {
	return &memberRepository{db: tx}
}

// Create creates a new member
func (r *memberRepository) Create(ctx context.Context, member *models.Member) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// GetByID gets a member by ID with its membership type
func (r *memberRepository) GetByID(ctx context.Context, id uint) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).
		Preload("MembershipType").
		Where("id = ?", id).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// GetByIDForUpdate gets a member by ID with a row-level lock.
// Must be called inside a transaction.
func (r *memberRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("MembershipType").
		Where("id = ?", id).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// GetByEmail gets a member by email
func (r *memberRepository) GetByEmail(ctx context.Context, email string) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).
		Preload("MembershipType").
		Where("email = ?", email).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// GetByUsername gets a member by username
func (r *memberRepository) GetByUsername(ctx context.Context, username string) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).
		Preload("MembershipType").
		Where("username = ?", username).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// Update updates a member
func (r *memberRepository) Update(ctx context.Context, member *models.Member) error {
	return r.db.WithContext(ctx).Save(member).Error
}

// List lists members with pagination
func (r *memberRepository) List(ctx context.Context, offset, limit int) ([]*models.Member, int64, error) {
	var members []*models.Member
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Member{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Preload("MembershipType").
		Order("id").
		Offset(offset).Limit(limit).
		Find(&members).Error
	if err != nil {
		return nil, 0, err
	}

	return members, total, nil
}

// ListDuesLapsed lists members in the given status whose dues lapsed
// before the given time, skipping dues-bypassed members.
func (r *memberRepository) ListDuesLapsed(ctx context.Context, status string, before time.Time) ([]*models.Member, error) {
	var members []*models.Member
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Where("bypass_dues = ?", false).
		Where("dues_paid_until IS NOT NULL").
		Where("dues_paid_until < ?", before).
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

// ExistsByEmail checks if email exists
func (r *memberRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Member{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// ExistsByUsername checks if username exists
func (r *memberRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Member{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}
