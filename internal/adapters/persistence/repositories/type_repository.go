package repositories

import (
	"context"

	"clubdesk/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// ============================================================
// Membership Types
// ============================================================

// membershipTypeRepository implements MembershipTypeRepository interface
type membershipTypeRepository struct {
	db *gorm.DB
}

// NewMembershipTypeRepository creates a new membership type repository
func NewMembershipTypeRepository(db *gorm.DB) MembershipTypeRepository {
	return &membershipTypeRepository{db: db}
}

// Create creates a new membership type
func (r *membershipTypeRepository) Create(ctx context.Context, t *models.MembershipType) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// GetByID gets a membership type by ID
func (r *membershipTypeRepository) GetByID(ctx context.Context, id uint) (*models.MembershipType, error) {
	var t models.MembershipType
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetBySlug gets a membership type by slug
func (r *membershipTypeRepository) GetBySlug(ctx context.Context, slug string) (*models.MembershipType, error) {
	var t models.MembershipType
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Update updates a membership type
func (r *membershipTypeRepository) Update(ctx context.Context, t *models.MembershipType) error {
	return r.db.WithContext(ctx).Save(t).Error
}

// List lists membership types ordered by sort order.
// Deactivated types are kept; existing members still reference them.
func (r *membershipTypeRepository) List(ctx context.Context, includeInactive bool) ([]*models.MembershipType, error) {
	var types []*models.MembershipType
	query := r.db.WithContext(ctx).Order("sort_order, id")
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

// ============================================================
// Event Types
// ============================================================

// eventTypeRepository implements EventTypeRepository interface
type eventTypeRepository struct {
	db *gorm.DB
}

// NewEventTypeRepository creates a new event type repository
func NewEventTypeRepository(db *gorm.DB) EventTypeRepository {
	return &eventTypeRepository{db: db}
}

// Create creates a new event type
func (r *eventTypeRepository) Create(ctx context.Context, t *models.EventType) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// GetByID gets an event type by ID
func (r *eventTypeRepository) GetByID(ctx context.Context, id uint) (*models.EventType, error) {
	var t models.EventType
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Update updates an event type
func (r *eventTypeRepository) Update(ctx context.Context, t *models.EventType) error {
	return r.db.WithContext(ctx).Save(t).Error
}

// List lists event types ordered by sort order
func (r *eventTypeRepository) List(ctx context.Context, includeInactive bool) ([]*models.EventType, error) {
	var types []*models.EventType
	query := r.db.WithContext(ctx).Order("sort_order, id")
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

// ============================================================
// Announcement Types
// ============================================================

// announcementTypeRepository implements AnnouncementTypeRepository interface
type announcementTypeRepository struct {
	db *gorm.DB
}

// NewAnnouncementTypeRepository creates a new announcement type repository
func NewAnnouncementTypeRepository(db *gorm.DB) AnnouncementTypeRepository {
	return &announcementTypeRepository{db: db}
}

// Create creates a new announcement type
func (r *announcementTypeRepository) Create(ctx context.Context, t *models.AnnouncementType) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// GetByID gets an announcement type by ID
func (r *announcementTypeRepository) GetByID(ctx context.Context, id uint) (*models.AnnouncementType, error) {
	var t models.AnnouncementType
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Update updates an announcement type
func (r *announcementTypeRepository) Update(ctx context.Context, t *models.AnnouncementType) error {
	return r.db.WithContext(ctx).Save(t).Error
}

// List lists announcement types ordered by sort order
func (r *announcementTypeRepository) List(ctx context.Context, includeInactive bool) ([]*models.AnnouncementType, error) {
	var types []*models.AnnouncementType
	query := r.db.WithContext(ctx).Order("sort_order, id")
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}
