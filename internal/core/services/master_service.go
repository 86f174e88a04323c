package services

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"

	"clubdesk/internal/adapters/persistence/models"
	"clubdesk/internal/adapters/persistence/repositories"
	"clubdesk/internal/core/domain"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// MasterService manages the configurable type catalogs: membership
// types, event types and announcement types. Types are deactivated,
// never deleted, so existing rows keep their references.
type MasterService struct {
	membershipTypeRepo   repositories.MembershipTypeRepository
	eventTypeRepo        repositories.EventTypeRepository
	announcementTypeRepo repositories.AnnouncementTypeRepository
}

// NewMasterService creates a new master data service
func NewMasterService(
	membershipTypeRepo repositories.MembershipTypeRepository,
	eventTypeRepo repositories.EventTypeRepository,
	announcementTypeRepo repositories.AnnouncementTypeRepository,
) *MasterService {
	return &MasterService{
		membershipTypeRepo:   membershipTypeRepo,
		eventTypeRepo:        eventTypeRepo,
		announcementTypeRepo: announcementTypeRepo,
	}
}

// TypeInput carries the shared configurable-type fields
type TypeInput struct {
	Name        string
	Description string
	Color       string
	Icon        string
	SortOrder   int
	IsActive    *bool
	// Membership types only
	FeeCents      *int64
	BillingPeriod string
}

func (in *TypeInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return domain.ErrInvalidInput
	}
	if in.Color != "" && !hexColorRe.MatchString(in.Color) {
		return domain.ErrInvalidInput
	}
	return nil
}

// ============================================================
// Membership types
// ============================================================

// ListMembershipTypes returns the membership type catalog
func (s *MasterService) ListMembershipTypes(ctx context.Context, includeInactive bool) ([]*models.MembershipType, error) {
	return s.membershipTypeRepo.List(ctx, includeInactive)
}

// CreateMembershipType adds a membership type with a slug derived from
// its name
func (s *MasterService) CreateMembershipType(ctx context.Context, input TypeInput) (*models.MembershipType, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if input.BillingPeriod == "" {
		input.BillingPeriod = models.BillingYearly
	}
	if !models.ValidBillingPeriod(input.BillingPeriod) {
		return nil, domain.ErrInvalidInput
	}

	t := &models.MembershipType{
		Name:          input.Name,
		Slug:          slug.Make(input.Name),
		Description:   input.Description,
		Color:         input.Color,
		Icon:          input.Icon,
		SortOrder:     input.SortOrder,
		IsActive:      true,
		BillingPeriod: input.BillingPeriod,
	}
	if input.FeeCents != nil {
		if *input.FeeCents < 0 {
			return nil, domain.ErrInvalidInput
		}
		t.FeeCents = *input.FeeCents
	}

	if _, err := s.membershipTypeRepo.GetBySlug(ctx, t.Slug); err == nil {
		return nil, domain.ErrConflict
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := s.membershipTypeRepo.Create(ctx, t); err != nil {
		return nil, err
	}

	log.Printf("✅ Membership type created: %s", t.Slug)
	return t, nil
}

// UpdateMembershipType updates catalog fields. The slug is fixed at
// creation; renaming does not break stored references.
func (s *MasterService) UpdateMembershipType(ctx context.Context, id uint, input TypeInput) (*models.MembershipType, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	t, err := s.membershipTypeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	t.Name = input.Name
	t.Description = input.Description
	t.Color = input.Color
	t.Icon = input.Icon
	t.SortOrder = input.SortOrder
	if input.IsActive != nil {
		t.IsActive = *input.IsActive
	}
	if input.FeeCents != nil {
		if *input.FeeCents < 0 {
			return nil, domain.ErrInvalidInput
		}
		t.FeeCents = *input.FeeCents
	}
	if input.BillingPeriod != "" {
		if !models.ValidBillingPeriod(input.BillingPeriod) {
			return nil, domain.ErrInvalidInput
		}
		t.BillingPeriod = input.BillingPeriod
	}

	if err := s.membershipTypeRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ============================================================
// Event types
// ============================================================

// ListEventTypes returns the event type catalog
func (s *MasterService) ListEventTypes(ctx context.Context, includeInactive bool) ([]*models.EventType, error) {
	return s.eventTypeRepo.List(ctx, includeInactive)
}

// CreateEventType adds an event type
func (s *MasterService) CreateEventType(ctx context.Context, input TypeInput) (*models.EventType, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	t := &models.EventType{
		Name:        input.Name,
		Slug:        slug.Make(input.Name),
		Description: input.Description,
		Color:       input.Color,
		Icon:        input.Icon,
		SortOrder:   input.SortOrder,
		IsActive:    true,
	}
	if err := s.eventTypeRepo.Create(ctx, t); err != nil {
		return nil, err
	}

	log.Printf("✅ Event type created: %s", t.Slug)
	return t, nil
}

// UpdateEventType updates catalog fields
func (s *MasterService) UpdateEventType(ctx context.Context, id uint, input TypeInput) (*models.EventType, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	t, err := s.eventTypeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	t.Name = input.Name
	t.Description = input.Description
	t.Color = input.Color
	t.Icon = input.Icon
	t.SortOrder = input.SortOrder
	if input.IsActive != nil {
		t.IsActive = *input.IsActive
	}

	if err := s.eventTypeRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ============================================================
// Announcement types
// ============================================================

// ListAnnouncementTypes returns the announcement type catalog
func (s *MasterService) ListAnnouncementTypes(ctx context.Context, includeInactive bool) ([]*models.AnnouncementType, error) {
	return s.announcementTypeRepo.List(ctx, includeInactive)
}

// CreateAnnouncementType adds an announcement type
func (s *MasterService) CreateAnnouncementType(ctx context.Context, input TypeInput) (*models.AnnouncementType, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	t := &models.AnnouncementType{
		Name:        input.Name,
		Slug:        slug.Make(input.Name),
		Description: input.Description,
		Color:       input.Color,
		Icon:        input.Icon,
		SortOrder:   input.SortOrder,
		IsActive:    true,
	}
	if err := s.announcementTypeRepo.Create(ctx, t); err != nil {
		return nil, err
	}

	log.Printf("✅ Announcement type created: %s", t.Slug)
	return t, nil
}

// UpdateAnnouncementType updates catalog fields
func (s *MasterService) UpdateAnnouncementType(ctx context.Context, id uint, input TypeInput) (*models.AnnouncementType, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	t, err := s.announcementTypeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	t.Name = input.Name
	t.Description = input.Description
	t.Color = input.Color
	t.Icon = input.Icon
	t.SortOrder = input.SortOrder
	if input.IsActive != nil {
		t.IsActive = *input.IsActive
	}

	if err := s.announcementTypeRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
