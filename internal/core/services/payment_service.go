package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"clubdesk/internal/adapters/persistence/models"
	"clubdesk/internal/adapters/persistence/repositories"
	"clubdesk/internal/core/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentService records dues payments and reconciles provider webhook
// events. Reconciliation is idempotent: the external reference is the
// deduplication key, duplicate deliveries are no-ops, and terminal
// payment states are never downgraded by stale events.
type PaymentService struct {
	paymentRepo repositories.PaymentRepository
	memberRepo  repositories.MemberRepository
	auditRepo   repositories.AuditRepository
	membership  *MembershipService
	tx          repositories.TxRunner
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	paymentRepo repositories.PaymentRepository,
	memberRepo repositories.MemberRepository,
	auditRepo repositories.AuditRepository,
	membership *MembershipService,
	tx repositories.TxRunner,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		memberRepo:  memberRepo,
		auditRepo:   auditRepo,
		membership:  membership,
		tx:          tx,
	}
}

// ProviderEvent is a normalized payment event from the provider
// webhook. MemberID may be zero when the provider omits attribution;
// such events can only update a payment already on record.
type ProviderEvent struct {
	ExternalRef string    `json:"external_ref"`
	MemberID    uint      `json:"member_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Validate rejects malformed events before they touch state
func (e *ProviderEvent) Validate() error {
	if e.ExternalRef == "" {
		return fmt.Errorf("%w: missing external reference", domain.ErrInvalidInput)
	}
	switch e.Status {
	case models.PaymentCompleted, models.PaymentFailed, models.PaymentRefunded:
	default:
		return fmt.Errorf("%w: unknown event status %q", domain.ErrInvalidInput, e.Status)
	}
	if e.AmountCents < 0 {
		return fmt.Errorf("%w: negative amount", domain.ErrInvalidInput)
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("%w: missing event time", domain.ErrInvalidInput)
	}
	return nil
}

// paymentSnapshot is the audited view of a payment, joined with the
// member standing it produced so one record covers the whole effect
type paymentSnapshot struct {
	PaymentStatus string     `json:"payment_status"`
	AmountCents   int64      `json:"amount_cents"`
	Currency      string     `json:"currency"`
	Method        string     `json:"method"`
	ExternalRef   *string    `json:"external_ref,omitempty"`
	MemberStatus  string     `json:"member_status,omitempty"`
	DuesPaidUntil *time.Time `json:"dues_paid_until,omitempty"`
}

func snapshotPayment(p *models.Payment, m *models.Member) string {
	snap := paymentSnapshot{
		PaymentStatus: p.Status,
		AmountCents:   p.AmountCents,
		Currency:      p.Currency,
		Method:        p.Method,
		ExternalRef:   p.ExternalRef,
	}
	if m != nil {
		snap.MemberStatus = m.Status
		snap.DuesPaidUntil = m.DuesPaidUntil
	}
	b, _ := json.Marshal(snap)
	return string(b)
}

// Reconcile applies one provider event. The payment row (or its
// absence) is read under lock, the transition is computed, and the
// payment update, any dues extension, and the audit record commit
// atomically. Replays and out-of-order deliveries converge on the same
// final state.
func (s *PaymentService) Reconcile(ctx context.Context, event *ProviderEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	return s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		payments := s.paymentRepo.WithTx(tx)

		payment, err := payments.GetByExternalRefForUpdate(ctx, event.ExternalRef)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return s.reconcileNew(ctx, tx, event)
			}
			return err
		}

		if event.MemberID != 0 && event.MemberID != payment.MemberID {
			log.Printf("❌ Payment ref %s already belongs to member %d, event claims %d",
				event.ExternalRef, payment.MemberID, event.MemberID)
			return domain.ErrRefMismatch
		}

		if payment.Status == event.Status {
			// Duplicate delivery
			return nil
		}

		switch payment.Status {
		case models.PaymentPending:
			return s.settle(ctx, tx, payment, event, SystemActor)
		case models.PaymentCompleted:
			if event.Status == models.PaymentRefunded {
				return s.refund(ctx, tx, payment, event.OccurredAt, SystemActor)
			}
			log.Printf("⚠️ Ignoring stale %s event for completed payment %s", event.Status, event.ExternalRef)
			return nil
		default:
			// FAILED and REFUNDED accept no further events. Providers
			// issue a fresh reference when a failed charge is retried.
			log.Printf("⚠️ Ignoring %s event for %s payment %s", event.Status, payment.Status, event.ExternalRef)
			return nil
		}
	})
}

// reconcileNew records a payment first seen through its settlement
// event, with no prior pending row
func (s *PaymentService) reconcileNew(ctx context.Context, tx *gorm.DB, event *ProviderEvent) error {
	if event.MemberID == 0 {
		return fmt.Errorf("%w: unknown reference %s with no member attribution", domain.ErrInvalidInput, event.ExternalRef)
	}
	if _, err := s.memberRepo.WithTx(tx).GetByID(ctx, event.MemberID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrMemberNotFound
		}
		return err
	}

	ref := event.ExternalRef
	payment := &models.Payment{
		MemberID:    event.MemberID,
		AmountCents: event.AmountCents,
		Currency:    normalizeCurrency(event.Currency),
		Status:      models.PaymentPending,
		Method:      models.MethodProvider,
		ExternalRef: &ref,
	}
	if err := s.paymentRepo.WithTx(tx).Create(ctx, payment); err != nil {
		return err
	}

	return s.settle(ctx, tx, payment, event, SystemActor)
}

// settle moves a pending payment to its settled status and, on
// completion, extends the member's dues in the same transaction
func (s *PaymentService) settle(ctx context.Context, tx *gorm.DB, payment *models.Payment, event *ProviderEvent, actor Actor) error {
	before := snapshotPayment(payment, nil)

	payment.Status = event.Status
	action := models.AuditPaymentFail

	var member *models.Member
	switch event.Status {
	case models.PaymentCompleted:
		paidAt := event.OccurredAt
		payment.PaidAt = &paidAt
		action = models.AuditPaymentComplete

		m, _, err := s.membership.ApplyPayment(ctx, tx, payment.MemberID, event.OccurredAt)
		if err != nil {
			return err
		}
		member = m
	case models.PaymentRefunded:
		// Refund observed before the completion event. Terminal; no dues.
		action = models.AuditPaymentRefund
	}

	if err := s.paymentRepo.WithTx(tx).Update(ctx, payment); err != nil {
		return err
	}

	if err := s.auditRepo.WithTx(tx).Record(ctx, &models.AuditRecord{
		ActorID:    actor.ID,
		Action:     action,
		EntityType: models.EntityPayment,
		EntityID:   payment.ID,
		Before:     before,
		After:      snapshotPayment(payment, member),
		IPAddress:  actor.IP,
	}); err != nil {
		return err
	}

	log.Printf("✅ Payment %s settled as %s for member %d", valueOr(payment.ExternalRef), payment.Status, payment.MemberID)
	return nil
}

// refund marks a completed payment refunded. Dues already granted are
// not clawed back; standing corrections are an explicit admin action.
func (s *PaymentService) refund(ctx context.Context, tx *gorm.DB, payment *models.Payment, at time.Time, actor Actor) error {
	before := snapshotPayment(payment, nil)
	payment.Status = models.PaymentRefunded

	if err := s.paymentRepo.WithTx(tx).Update(ctx, payment); err != nil {
		return err
	}

	if err := s.auditRepo.WithTx(tx).Record(ctx, &models.AuditRecord{
		ActorID:    actor.ID,
		Action:     models.AuditPaymentRefund,
		EntityType: models.EntityPayment,
		EntityID:   payment.ID,
		Before:     before,
		After:      snapshotPayment(payment, nil),
		IPAddress:  actor.IP,
	}); err != nil {
		return err
	}

	log.Printf("✅ Payment %s refunded for member %d", valueOr(payment.ExternalRef), payment.MemberID)
	return nil
}

// CreatePending records a payment awaiting provider settlement, e.g.
// when a checkout session is opened
func (s *PaymentService) CreatePending(ctx context.Context, memberID uint, amountCents int64, currency, externalRef, description string) (*models.Payment, error) {
	if amountCents < 0 || externalRef == "" {
		return nil, domain.ErrInvalidInput
	}
	if _, err := s.memberRepo.GetByID(ctx, memberID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	if _, err := s.paymentRepo.GetByExternalRef(ctx, externalRef); err == nil {
		return nil, domain.ErrConflict
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	payment := &models.Payment{
		MemberID:    memberID,
		AmountCents: amountCents,
		Currency:    normalizeCurrency(currency),
		Status:      models.PaymentPending,
		Method:      models.MethodProvider,
		ExternalRef: &externalRef,
		Description: description,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// RecordManual records an admin-entered payment (cash, check) as
// completed and extends the member's dues
func (s *PaymentService) RecordManual(ctx context.Context, actor Actor, memberID uint, amountCents int64, currency, description string) (*models.Payment, error) {
	if amountCents < 0 {
		return nil, domain.ErrInvalidInput
	}
	return s.recordSettled(ctx, actor, memberID, amountCents, currency, description, models.MethodManual, models.AuditPaymentManual)
}

// Waive records a zero-amount waived payment covering one billing
// period
func (s *PaymentService) Waive(ctx context.Context, actor Actor, memberID uint, description string) (*models.Payment, error) {
	return s.recordSettled(ctx, actor, memberID, 0, "USD", description, models.MethodWaived, models.AuditPaymentWaive)
}

func (s *PaymentService) recordSettled(ctx context.Context, actor Actor, memberID uint, amountCents int64, currency, description, method, action string) (*models.Payment, error) {
	now := time.Now()
	ref := fmt.Sprintf("%s-%s", methodRefPrefix(method), uuid.New().String())

	var created *models.Payment
	err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		payment := &models.Payment{
			MemberID:    memberID,
			AmountCents: amountCents,
			Currency:    normalizeCurrency(currency),
			Status:      models.PaymentCompleted,
			Method:      method,
			ExternalRef: &ref,
			Description: description,
			PaidAt:      &now,
		}
		if err := s.paymentRepo.WithTx(tx).Create(ctx, payment); err != nil {
			return err
		}

		member, _, err := s.membership.ApplyPayment(ctx, tx, memberID, now)
		if err != nil {
			return err
		}

		if err := s.auditRepo.WithTx(tx).Record(ctx, &models.AuditRecord{
			ActorID:    actor.ID,
			Action:     action,
			EntityType: models.EntityPayment,
			EntityID:   payment.ID,
			After:      snapshotPayment(payment, member),
			IPAddress:  actor.IP,
		}); err != nil {
			return err
		}

		created = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ %s payment recorded for member %d (%d %s)", method, memberID, amountCents, created.Currency)
	return created, nil
}

// RefundManual marks a completed payment refunded by admin action
func (s *PaymentService) RefundManual(ctx context.Context, actor Actor, paymentID uint) (*models.Payment, error) {
	var refunded *models.Payment
	err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		payment, err := s.paymentRepo.WithTx(tx).GetByID(ctx, paymentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrPaymentNotFound
			}
			return err
		}
		if payment.Status != models.PaymentCompleted {
			return domain.ErrInvalidTransition
		}
		if err := s.refund(ctx, tx, payment, time.Now(), actor); err != nil {
			return err
		}
		refunded = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refunded, nil
}

// GetByID returns one payment
func (s *PaymentService) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

// ListByMember returns a member's payment history, newest first
func (s *PaymentService) ListByMember(ctx context.Context, memberID uint, offset, limit int) ([]*models.Payment, int64, error) {
	return s.paymentRepo.ListByMember(ctx, memberID, offset, limit)
}

func normalizeCurrency(c string) string {
	if c == "" {
		return "USD"
	}
	return c
}

func methodRefPrefix(method string) string {
	if method == models.MethodWaived {
		return "waived"
	}
	return "manual"
}

func valueOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
