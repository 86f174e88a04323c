package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"clubdesk/internal/adapters/persistence/models"
	"clubdesk/internal/adapters/persistence/repositories"
	"clubdesk/internal/core/domain"

	"gorm.io/gorm"
)

// ContentService manages events and announcements. Reads are gated
// upstream to members in good standing; writes are admin only.
type ContentService struct {
	eventRepo            repositories.EventRepository
	announcementRepo     repositories.AnnouncementRepository
	eventTypeRepo        repositories.EventTypeRepository
	announcementTypeRepo repositories.AnnouncementTypeRepository
}

// NewContentService creates a new content service
func NewContentService(
	eventRepo repositories.EventRepository,
	announcementRepo repositories.AnnouncementRepository,
	eventTypeRepo repositories.EventTypeRepository,
	announcementTypeRepo repositories.AnnouncementTypeRepository,
) *ContentService {
	return &ContentService{
		eventRepo:            eventRepo,
		announcementRepo:     announcementRepo,
		eventTypeRepo:        eventTypeRepo,
		announcementTypeRepo: announcementTypeRepo,
	}
}

// EventInput carries event create/update fields
type EventInput struct {
	Title       string
	Description string
	EventTypeID uint
	Location    string
	StartsAt    time.Time
	EndsAt      *time.Time
}

func (in *EventInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || in.EventTypeID == 0 || in.StartsAt.IsZero() {
		return domain.ErrInvalidInput
	}
	if in.EndsAt != nil && in.EndsAt.Before(in.StartsAt) {
		return domain.ErrInvalidInput
	}
	return nil
}

// ListEvents returns events starting at or after the given time
func (s *ContentService) ListEvents(ctx context.Context, from *time.Time, offset, limit int) ([]*models.Event, int64, error) {
	return s.eventRepo.List(ctx, from, offset, limit)
}

// GetEvent returns one event
func (s *ContentService) GetEvent(ctx context.Context, id uint) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return event, nil
}

// CreateEvent creates an event
func (s *ContentService) CreateEvent(ctx context.Context, actor Actor, input EventInput) (*models.Event, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if actor.ID == nil {
		return nil, domain.ErrUnauthenticated
	}
	eventType, err := s.eventTypeRepo.GetByID(ctx, input.EventTypeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidInput
		}
		return nil, err
	}
	if !eventType.IsActive {
		return nil, domain.ErrInvalidInput
	}

	event := &models.Event{
		Title:       input.Title,
		Description: input.Description,
		EventTypeID: input.EventTypeID,
		Location:    input.Location,
		StartsAt:    input.StartsAt,
		EndsAt:      input.EndsAt,
		CreatedBy:   *actor.ID,
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, err
	}

	log.Printf("✅ Event created: %s", event.Title)
	return event, nil
}

// UpdateEvent updates an event
func (s *ContentService) UpdateEvent(ctx context.Context, id uint, input EventInput) (*models.Event, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	event.Title = input.Title
	event.Description = input.Description
	event.EventTypeID = input.EventTypeID
	event.Location = input.Location
	event.StartsAt = input.StartsAt
	event.EndsAt = input.EndsAt

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// DeleteEvent removes an event
func (s *ContentService) DeleteEvent(ctx context.Context, id uint) error {
	if _, err := s.eventRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	return s.eventRepo.Delete(ctx, id)
}

// AnnouncementInput carries announcement create/update fields
type AnnouncementInput struct {
	Title              string
	Body               string
	AnnouncementTypeID uint
	Publish            bool
}

func (in *AnnouncementInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || in.AnnouncementTypeID == 0 {
		return domain.ErrInvalidInput
	}
	return nil
}

// ListAnnouncements returns announcements, optionally published only
func (s *ContentService) ListAnnouncements(ctx context.Context, publishedOnly bool, offset, limit int) ([]*models.Announcement, int64, error) {
	return s.announcementRepo.List(ctx, publishedOnly, offset, limit)
}

// GetAnnouncement returns one announcement
func (s *ContentService) GetAnnouncement(ctx context.Context, id uint) (*models.Announcement, error) {
	a, err := s.announcementRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// CreateAnnouncement creates an announcement, optionally publishing it
// immediately
func (s *ContentService) CreateAnnouncement(ctx context.Context, actor Actor, input AnnouncementInput) (*models.Announcement, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if actor.ID == nil {
		return nil, domain.ErrUnauthenticated
	}
	announcementType, err := s.announcementTypeRepo.GetByID(ctx, input.AnnouncementTypeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidInput
		}
		return nil, err
	}
	if !announcementType.IsActive {
		return nil, domain.ErrInvalidInput
	}

	a := &models.Announcement{
		Title:              input.Title,
		Body:               input.Body,
		AnnouncementTypeID: input.AnnouncementTypeID,
		CreatedBy:          *actor.ID,
	}
	if input.Publish {
		now := time.Now()
		a.PublishedAt = &now
	}

	if err := s.announcementRepo.Create(ctx, a); err != nil {
		return nil, err
	}

	log.Printf("✅ Announcement created: %s", a.Title)
	return a, nil
}

// UpdateAnnouncement updates an announcement. Publishing is one-way
// from here; unpublishing is not offered.
func (s *ContentService) UpdateAnnouncement(ctx context.Context, id uint, input AnnouncementInput) (*models.Announcement, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	a, err := s.announcementRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	a.Title = input.Title
	a.Body = input.Body
	a.AnnouncementTypeID = input.AnnouncementTypeID
	if input.Publish && a.PublishedAt == nil {
		now := time.Now()
		a.PublishedAt = &now
	}

	if err := s.announcementRepo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAnnouncement removes an announcement
func (s *ContentService) DeleteAnnouncement(ctx context.Context, id uint) error {
	if _, err := s.announcementRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	return s.announcementRepo.Delete(ctx, id)
}
