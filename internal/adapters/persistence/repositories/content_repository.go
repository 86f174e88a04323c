package repositories

import (
	"context"
	"time"

	"clubdesk/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// ============================================================
// Events
// ============================================================

// eventRepository implements EventRepository interface
type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// Create creates a new event
func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// GetByID gets an event by ID with its type
func (r *eventRepository) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).
		Preload("EventType").
		Where("id = ?", id).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Update updates an event
func (r *eventRepository) Update(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Save(event).Error
}

// Delete deletes an event
func (r *eventRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Event{}, id).Error
}

// List lists events starting at or after the given time, soonest first
func (r *eventRepository) List(ctx context.Context, from *time.Time, offset, limit int) ([]*models.Event, int64, error) {
	var events []*models.Event
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Event{})
	if from != nil {
		query = query.Where("starts_at >= ?", *from)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := r.db.WithContext(ctx).Preload("EventType")
	if from != nil {
		listQuery = listQuery.Where("starts_at >= ?", *from)
	}
	err := listQuery.
		Order("starts_at").
		Offset(offset).Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

// ============================================================
// Announcements
// ============================================================

// announcementRepository implements AnnouncementRepository interface
type announcementRepository struct {
	db *gorm.DB
}

// NewAnnouncementRepository creates a new announcement repository
func NewAnnouncementRepository(db *gorm.DB) AnnouncementRepository {
	return &announcementRepository{db: db}
}

// Create creates a new announcement
func (r *announcementRepository) Create(ctx context.Context, a *models.Announcement) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// GetByID gets an announcement by ID with its type
func (r *announcementRepository) GetByID(ctx context.Context, id uint) (*models.Announcement, error) {
	var a models.Announcement
	err := r.db.WithContext(ctx).
		Preload("AnnouncementType").
		Where("id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Update updates an announcement
func (r *announcementRepository) Update(ctx context.Context, a *models.Announcement) error {
	return r.db.WithContext(ctx).Save(a).Error
}

// Delete deletes an announcement
func (r *announcementRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Announcement{}, id).Error
}

// List lists announcements, newest first
func (r *announcementRepository) List(ctx context.Context, publishedOnly bool, offset, limit int) ([]*models.Announcement, int64, error) {
	var announcements []*models.Announcement
	var total int64

	countQuery := r.db.WithContext(ctx).Model(&models.Announcement{})
	if publishedOnly {
		countQuery = countQuery.Where("published_at IS NOT NULL AND published_at <= ?", time.Now())
	}
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := r.db.WithContext(ctx).Preload("AnnouncementType")
	if publishedOnly {
		listQuery = listQuery.Where("published_at IS NOT NULL AND published_at <= ?", time.Now())
	}
	err := listQuery.
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&announcements).Error
	if err != nil {
		return nil, 0, err
	}

	return announcements, total, nil
}
