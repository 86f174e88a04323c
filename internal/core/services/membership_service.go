package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"time"

	"clubdesk/internal/adapters/persistence/models"
	"clubdesk/internal/adapters/persistence/repositories"
	"clubdesk/internal/config"
	"clubdesk/internal/core/domain"

	"gorm.io/gorm"
)

// Actor identifies who performed a tracked action. A nil ID marks a
// system-initiated transition (sweep, webhook).
type Actor struct {
	ID *uint
	IP string
}

// SystemActor is the actor for transitions with no human behind them
var SystemActor = Actor{}

// NewActor builds an actor for an authenticated member
func NewActor(memberID uint, ip string) Actor {
	return Actor{ID: &memberID, IP: ip}
}

// MembershipService owns every member standing transition. No other
// component writes the status or dues fields. Transitions are computed
// from the locked row, the event and the clock, never assigned from
// caller-supplied state.
type MembershipService struct {
	memberRepo   repositories.MemberRepository
	typeRepo     repositories.MembershipTypeRepository
	settingsRepo repositories.SettingsRepository
	auditRepo    repositories.AuditRepository
	tx           repositories.TxRunner
}

// NewMembershipService creates a new membership service
func NewMembershipService(
	memberRepo repositories.MemberRepository,
	typeRepo repositories.MembershipTypeRepository,
	settingsRepo repositories.SettingsRepository,
	auditRepo repositories.AuditRepository,
	tx repositories.TxRunner,
) *MembershipService {
	return &MembershipService{
		memberRepo:   memberRepo,
		typeRepo:     typeRepo,
		settingsRepo: settingsRepo,
		auditRepo:    auditRepo,
		tx:           tx,
	}
}

// standingSnapshot is the audited view of a member's standing
type standingSnapshot struct {
	Status           string     `json:"status"`
	MembershipTypeID *uint      `json:"membership_type_id,omitempty"`
	JoinedAt         *time.Time `json:"joined_at,omitempty"`
	DuesPaidUntil    *time.Time `json:"dues_paid_until,omitempty"`
	BypassDues       bool       `json:"bypass_dues"`
	RejectedAt       *time.Time `json:"rejected_at,omitempty"`
}

func snapshotStanding(m *models.Member) string {
	snap := standingSnapshot{
		Status:           m.Status,
		MembershipTypeID: m.MembershipTypeID,
		JoinedAt:         m.JoinedAt,
		DuesPaidUntil:    m.DuesPaidUntil,
		BypassDues:       m.BypassDues,
		RejectedAt:       m.RejectedAt,
	}
	b, _ := json.Marshal(snap)
	return string(b)
}

// Approve transitions a Pending member to Active with the given
// membership type. Joined timestamp and the first dues period are set
// from the approval time.
func (s *MembershipService) Approve(ctx context.Context, actor Actor, memberID, membershipTypeID uint) (*models.Member, error) {
	membershipType, err := s.typeRepo.GetByID(ctx, membershipTypeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if !membershipType.IsActive {
		return nil, domain.ErrInvalidInput
	}

	var approved *models.Member
	err = s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		member, err := s.lockMember(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if member.Status != models.StatusPending || member.IsRejected() {
			return domain.ErrInvalidTransition
		}

		before := snapshotStanding(member)
		now := time.Now()

		member.Status = models.StatusActive
		member.MembershipTypeID = &membershipType.ID
		member.MembershipType = membershipType
		member.JoinedAt = &now
		member.DuesPaidUntil = models.NextDuesDate(now, membershipType.BillingPeriod)

		if err := s.memberRepo.WithTx(tx).Update(ctx, member); err != nil {
			return err
		}
		if err := s.audit(ctx, tx, actor, models.AuditMemberApprove, member, before); err != nil {
			return err
		}

		approved = member
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Member approved: %s (type: %s)", approved.Username, membershipType.Slug)
	return approved, nil
}

// Reject flags a Pending member as rejected. The record is retained;
// rejection is terminal.
func (s *MembershipService) Reject(ctx context.Context, actor Actor, memberID uint) (*models.Member, error) {
	var rejected *models.Member
	err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		member, err := s.lockMember(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if member.Status != models.StatusPending || member.IsRejected() {
			return domain.ErrInvalidTransition
		}

		before := snapshotStanding(member)
		now := time.Now()
		member.RejectedAt = &now

		if err := s.memberRepo.WithTx(tx).Update(ctx, member); err != nil {
			return err
		}
		if err := s.audit(ctx, tx, actor, models.AuditMemberReject, member, before); err != nil {
			return err
		}

		rejected = member
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Member rejected: %s", rejected.Username)
	return rejected, nil
}

// Suspend transitions an Active or Expired member to Suspended.
// Suspension is sticky: payments keep reconciling but only an explicit
// reinstatement lifts it.
func (s *MembershipService) Suspend(ctx context.Context, actor Actor, memberID uint) (*models.Member, error) {
	var suspended *models.Member
	err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		member, err := s.lockMember(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if member.Status != models.StatusActive && member.Status != models.StatusExpired {
			return domain.ErrInvalidTransition
		}

		before := snapshotStanding(member)
		member.Status = models.StatusSuspended

		if err := s.memberRepo.WithTx(tx).Update(ctx, member); err != nil {
			return err
		}
		if err := s.audit(ctx, tx, actor, models.AuditMemberSuspend, member, before); err != nil {
			return err
		}

		suspended = member
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Member suspended: %s", suspended.Username)
	return suspended, nil
}

// Reinstate lifts a suspension. The resulting status is recomputed
// from the dues position, not chosen by the caller.
func (s *MembershipService) Reinstate(ctx context.Context, actor Actor, memberID uint) (*models.Member, error) {
	var reinstated *models.Member
	err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		member, err := s.lockMember(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if member.Status != models.StatusSuspended {
			return domain.ErrInvalidTransition
		}

		before := snapshotStanding(member)
		if member.DuesCurrent(time.Now()) {
			member.Status = models.StatusActive
		} else {
			member.Status = models.StatusExpired
		}

		if err := s.memberRepo.WithTx(tx).Update(ctx, member); err != nil {
			return err
		}
		if err := s.audit(ctx, tx, actor, models.AuditMemberReinstate, member, before); err != nil {
			return err
		}

		reinstated = member
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Member reinstated: %s (status: %s)", reinstated.Username, reinstated.Status)
	return reinstated, nil
}

// SetHonorary grants honorary standing from any state. Honorary
// members are permanently exempt from dues enforcement.
func (s *MembershipService) SetHonorary(ctx context.Context, actor Actor, memberID uint) (*models.Member, error) {
	var honorary *models.Member
	err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		member, err := s.lockMember(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if member.Status == models.StatusHonorary {
			return domain.ErrInvalidTransition
		}

		before := snapshotStanding(member)
		member.Status = models.StatusHonorary

		if err := s.memberRepo.WithTx(tx).Update(ctx, member); err != nil {
			return err
		}
		if err := s.audit(ctx, tx, actor, models.AuditMemberHonorary, member, before); err != nil {
			return err
		}

		honorary = member
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Member set honorary: %s", honorary.Username)
	return honorary, nil
}

// SetBypass toggles the per-member dues bypass flag
func (s *MembershipService) SetBypass(ctx context.Context, actor Actor, memberID uint, bypass bool) (*models.Member, error) {
	var updated *models.Member
	err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		member, err := s.lockMember(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if member.BypassDues == bypass {
			updated = member
			return nil
		}

		before := snapshotStanding(member)
		member.BypassDues = bypass

		if err := s.memberRepo.WithTx(tx).Update(ctx, member); err != nil {
			return err
		}
		if err := s.audit(ctx, tx, actor, models.AuditMemberBypass, member, before); err != nil {
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

// ApplyPayment applies a completed dues payment to a member inside the
// caller's transaction. The dues date advances by one billing period
// from the later of the payment time and the previous dues date, so
// early and late payments both extend by exactly one period. The
// status only changes when the member is Active or Expired; Suspended
// stays Suspended until reinstated. Returns the member and the
// pre-transition snapshot; the caller writes the covering audit record.
func (s *MembershipService) ApplyPayment(ctx context.Context, tx *gorm.DB, memberID uint, occurredAt time.Time) (*models.Member, string, error) {
	member, err := s.lockMember(ctx, tx, memberID)
	if err != nil {
		return nil, "", err
	}

	before := snapshotStanding(member)

	period := s.billingPeriod(ctx, tx, member)
	base := occurredAt
	if member.DuesPaidUntil != nil && member.DuesPaidUntil.After(base) {
		base = *member.DuesPaidUntil
	}
	member.DuesPaidUntil = models.NextDuesDate(base, period)

	switch member.Status {
	case models.StatusActive, models.StatusExpired:
		member.Status = models.StatusActive
	}

	if err := s.memberRepo.WithTx(tx).Update(ctx, member); err != nil {
		return nil, "", err
	}

	return member, before, nil
}

// billingPeriod resolves the dues period for a member. Members without
// a membership type fall back to the configured default duration.
func (s *MembershipService) billingPeriod(ctx context.Context, tx *gorm.DB, member *models.Member) string {
	if member.MembershipType != nil {
		return member.MembershipType.BillingPeriod
	}

	months := 12
	if setting, err := s.settingsRepo.WithTx(tx).Get(ctx, config.SettingDefaultDurationMonths); err == nil {
		if v, err := strconv.Atoi(setting.Value); err == nil && v > 0 {
			months = v
		}
	}
	if months == 12 {
		return models.BillingYearly
	}
	if months == 1 {
		return models.BillingMonthly
	}
	return models.BillingYearly
}

// SweepExpired reconciles the stored status of Active members whose
// dues have lapsed. Readers already see them as Expired through
// EffectiveStatus; the sweep persists that and leaves an audit trail.
func (s *MembershipService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	lapsed, err := s.memberRepo.ListDuesLapsed(ctx, models.StatusActive, now)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, candidate := range lapsed {
		err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
			member, err := s.lockMember(ctx, tx, candidate.ID)
			if err != nil {
				return err
			}
			// Re-check under lock: a payment may have landed since the scan
			if member.Status != models.StatusActive || member.DuesCurrent(now) {
				return nil
			}

			before := snapshotStanding(member)
			member.Status = models.StatusExpired

			if err := s.memberRepo.WithTx(tx).Update(ctx, member); err != nil {
				return err
			}
			if err := s.audit(ctx, tx, SystemActor, models.AuditMemberExpire, member, before); err != nil {
				return err
			}

			count++
			return nil
		})
		if err != nil {
			log.Printf("❌ Expiry sweep failed for member %d: %v", candidate.ID, err)
		}
	}

	if count > 0 {
		log.Printf("🗑️ Expired %d members with lapsed dues", count)
	}
	return count, nil
}

// EscalateLapsed suspends Expired members whose dues lapsed more than
// the configured grace period ago. Disabled unless the
// auto-suspend-after-grace policy setting is on.
func (s *MembershipService) EscalateLapsed(ctx context.Context, now time.Time) (int, error) {
	enabled, graceDays := s.gracePolicy(ctx)
	if !enabled || graceDays <= 0 {
		return 0, nil
	}

	cutoff := now.AddDate(0, 0, -graceDays)
	lapsed, err := s.memberRepo.ListDuesLapsed(ctx, models.StatusExpired, cutoff)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, candidate := range lapsed {
		err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
			member, err := s.lockMember(ctx, tx, candidate.ID)
			if err != nil {
				return err
			}
			if member.Status != models.StatusExpired || member.DuesCurrent(cutoff) {
				return nil
			}

			before := snapshotStanding(member)
			member.Status = models.StatusSuspended

			if err := s.memberRepo.WithTx(tx).Update(ctx, member); err != nil {
				return err
			}
			if err := s.audit(ctx, tx, SystemActor, models.AuditMemberSuspend, member, before); err != nil {
				return err
			}

			count++
			return nil
		})
		if err != nil {
			log.Printf("❌ Grace escalation failed for member %d: %v", candidate.ID, err)
		}
	}

	if count > 0 {
		log.Printf("🗑️ Suspended %d members past the grace period", count)
	}
	return count, nil
}

// gracePolicy reads the escalation settings
func (s *MembershipService) gracePolicy(ctx context.Context) (bool, int) {
	enabled := false
	if setting, err := s.settingsRepo.Get(ctx, config.SettingAutoSuspendAfterGrace); err == nil {
		enabled, _ = strconv.ParseBool(setting.Value)
	}

	graceDays := 30
	if setting, err := s.settingsRepo.Get(ctx, config.SettingGracePeriodDays); err == nil {
		if v, err := strconv.Atoi(setting.Value); err == nil {
			graceDays = v
		}
	}
	return enabled, graceDays
}

// lockMember loads a member row locked for the transaction
func (s *MembershipService) lockMember(ctx context.Context, tx *gorm.DB, memberID uint) (*models.Member, error) {
	member, err := s.memberRepo.WithTx(tx).GetByIDForUpdate(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return member, nil
}

// audit appends the standing-change record inside the transaction
func (s *MembershipService) audit(ctx context.Context, tx *gorm.DB, actor Actor, action string, member *models.Member, before string) error {
	return s.auditRepo.WithTx(tx).Record(ctx, &models.AuditRecord{
		ActorID:    actor.ID,
		Action:     action,
		EntityType: models.EntityMember,
		EntityID:   member.ID,
		Before:     before,
		After:      snapshotStanding(member),
		IPAddress:  actor.IP,
	})
}
