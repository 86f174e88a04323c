package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"clubdesk/internal/adapters/persistence/models"
	"clubdesk/internal/adapters/persistence/repositories"
	"clubdesk/internal/core/domain"
	"clubdesk/internal/pkg/password"

	"gorm.io/gorm"
)

// MemberService covers member reads and the profile fields outside the
// standing state machine. Status, dues and bypass changes go through
// MembershipService only.
type MemberService struct {
	memberRepo repositories.MemberRepository
	typeRepo   repositories.MembershipTypeRepository
	auditRepo  repositories.AuditRepository
	tx         repositories.TxRunner
}

// NewMemberService creates a new member service
func NewMemberService(
	memberRepo repositories.MemberRepository,
	typeRepo repositories.MembershipTypeRepository,
	auditRepo repositories.AuditRepository,
	tx repositories.TxRunner,
) *MemberService {
	return &MemberService{
		memberRepo: memberRepo,
		typeRepo:   typeRepo,
		auditRepo:  auditRepo,
		tx:         tx,
	}
}

// GetByID returns one member
func (s *MemberService) GetByID(ctx context.Context, id uint) (*models.Member, error) {
	member, err := s.memberRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return member, nil
}

// List returns a page of members with the total count
func (s *MemberService) List(ctx context.Context, offset, limit int) ([]*models.Member, int64, error) {
	return s.memberRepo.List(ctx, offset, limit)
}

// CreateInput carries the admin member-creation fields
type CreateInput struct {
	Email              string
	Username           string
	FullName           string
	Password           string
	Role               string
	MembershipTypeSlug string
	Notes              string
}

// Create registers a member on an admin's behalf. The member lands in
// Pending like a self-signup; activation still goes through approval
// or a dues payment.
func (s *MemberService) Create(ctx context.Context, actor Actor, input CreateInput) (*models.Member, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Username = strings.TrimSpace(input.Username)

	if input.Email == "" || input.Username == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := password.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	role := models.RoleMember
	if input.Role == models.RoleAdmin {
		role = models.RoleAdmin
	}

	if exists, err := s.memberRepo.ExistsByEmail(ctx, input.Email); err != nil {
		return nil, err
	} else if exists {
		return nil, domain.ErrMemberExists
	}
	if exists, err := s.memberRepo.ExistsByUsername(ctx, input.Username); err != nil {
		return nil, err
	} else if exists {
		return nil, domain.ErrMemberExists
	}

	var typeID *uint
	if input.MembershipTypeSlug != "" {
		mt, err := s.typeRepo.GetBySlug(ctx, input.MembershipTypeSlug)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domain.ErrInvalidInput
			}
			return nil, err
		}
		typeID = &mt.ID
	}

	hash, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	member := &models.Member{
		Email:            input.Email,
		Username:         input.Username,
		FullName:         strings.TrimSpace(input.FullName),
		PasswordHash:     hash,
		Role:             role,
		Status:           models.StatusPending,
		MembershipTypeID: typeID,
		Notes:            input.Notes,
	}

	err = s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		if err := s.memberRepo.WithTx(tx).Create(ctx, member); err != nil {
			return err
		}
		return s.auditRepo.WithTx(tx).Record(ctx, &models.AuditRecord{
			ActorID:    actor.ID,
			Action:     models.AuditMemberCreate,
			EntityType: models.EntityMember,
			EntityID:   member.ID,
			After:      snapshotStanding(member),
			IPAddress:  actor.IP,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Member created by admin: %s (%s)", member.Username, member.Role)
	return member, nil
}

// UpdateInput carries updatable profile fields. Nil means unchanged.
type UpdateInput struct {
	FullName           *string
	MembershipTypeSlug *string
	Notes              *string
	Role               *string
}

// Update changes profile fields. Changing the membership type does not
// recompute dues; the new period applies from the next payment.
func (s *MemberService) Update(ctx context.Context, actor Actor, memberID uint, input UpdateInput) (*models.Member, error) {
	var updated *models.Member
	err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		member, err := s.memberRepo.WithTx(tx).GetByIDForUpdate(ctx, memberID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrMemberNotFound
			}
			return err
		}

		before := snapshotStanding(member)
		changed := false

		if input.FullName != nil && *input.FullName != member.FullName {
			member.FullName = strings.TrimSpace(*input.FullName)
			changed = true
		}
		if input.Notes != nil && *input.Notes != member.Notes {
			member.Notes = *input.Notes
			changed = true
		}
		if input.Role != nil && *input.Role != member.Role {
			if *input.Role != models.RoleMember && *input.Role != models.RoleAdmin {
				return domain.ErrInvalidInput
			}
			member.Role = *input.Role
			changed = true
		}
		if input.MembershipTypeSlug != nil {
			mt, err := s.typeRepo.GetBySlug(ctx, *input.MembershipTypeSlug)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domain.ErrInvalidInput
				}
				return err
			}
			if member.MembershipTypeID == nil || *member.MembershipTypeID != mt.ID {
				member.MembershipTypeID = &mt.ID
				member.MembershipType = mt
				changed = true
			}
		}

		if !changed {
			updated = member
			return nil
		}

		if err := s.memberRepo.WithTx(tx).Update(ctx, member); err != nil {
			return err
		}
		if err := s.auditRepo.WithTx(tx).Record(ctx, &models.AuditRecord{
			ActorID:    actor.ID,
			Action:     models.AuditMemberUpdate,
			EntityType: models.EntityMember,
			EntityID:   member.ID,
			Before:     before,
			After:      snapshotStanding(member),
			IPAddress:  actor.IP,
		}); err != nil {
			return err
		}

		updated = member
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// History returns the audit trail for one member, newest first
func (s *MemberService) History(ctx context.Context, memberID uint, limit int) ([]*models.AuditRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.auditRepo.ListByEntity(ctx, models.EntityMember, memberID, limit)
}
