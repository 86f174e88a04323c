package services

import (
	"context"
	"testing"
	"time"

	"clubdesk/internal/adapters/persistence/models"
	"clubdesk/internal/config"
	"clubdesk/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type membershipFixture struct {
	svc      *MembershipService
	members  *fakeMemberRepo
	types    *fakeTypeRepo
	settings *fakeSettingsRepo
	audits   *fakeAuditRepo
}

func newMembershipFixture(t *testing.T) *membershipFixture {
	t.Helper()
	members := newFakeMemberRepo()
	types := newFakeTypeRepo()
	settings := newFakeSettingsRepo()
	audits := newFakeAuditRepo()
	svc := NewMembershipService(members, types, settings, audits, &fakeTxRunner{})
	return &membershipFixture{svc: svc, members: members, types: types, settings: settings, audits: audits}
}

func (f *membershipFixture) seedType(t *testing.T, period string) *models.MembershipType {
	t.Helper()
	mt := &models.MembershipType{Name: "Member", Slug: "member", IsActive: true, FeeCents: 500, BillingPeriod: period}
	require.NoError(t, f.types.Create(context.Background(), mt))
	return mt
}

func (f *membershipFixture) seedMember(t *testing.T, status string, mutate ...func(*models.Member)) *models.Member {
	t.Helper()
	m := &models.Member{
		Email:        "m@example.org",
		Username:     "m",
		PasswordHash: "x",
		Role:         models.RoleMember,
		Status:       status,
	}
	for _, fn := range mutate {
		fn(m)
	}
	require.NoError(t, f.members.Create(context.Background(), m))
	return m
}

func adminActor() Actor {
	id := uint(99)
	return Actor{ID: &id, IP: "10.0.0.1"}
}

func TestApproveActivatesPendingMember(t *testing.T) {
	f := newMembershipFixture(t)
	mt := f.seedType(t, models.BillingYearly)
	m := f.seedMember(t, models.StatusPending)

	approved, err := f.svc.Approve(context.Background(), adminActor(), m.ID, mt.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusActive, approved.Status)
	require.NotNil(t, approved.JoinedAt)
	require.NotNil(t, approved.DuesPaidUntil)
	assert.WithinDuration(t, time.Now().AddDate(1, 0, 0), *approved.DuesPaidUntil, time.Minute)
	assert.Contains(t, f.audits.actions(), models.AuditMemberApprove)
}

func TestApproveLifetimeClearsDuesDate(t *testing.T) {
	f := newMembershipFixture(t)
	mt := f.seedType(t, models.BillingLifetime)
	m := f.seedMember(t, models.StatusPending)

	approved, err := f.svc.Approve(context.Background(), adminActor(), m.ID, mt.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusActive, approved.Status)
	assert.Nil(t, approved.DuesPaidUntil)
	assert.Equal(t, models.StatusActive, approved.EffectiveStatus(time.Now().AddDate(50, 0, 0)))
}

func TestApproveRequiresPendingStatus(t *testing.T) {
	f := newMembershipFixture(t)
	mt := f.seedType(t, models.BillingYearly)
	m := f.seedMember(t, models.StatusActive)

	_, err := f.svc.Approve(context.Background(), adminActor(), m.ID, mt.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRejectIsTerminal(t *testing.T) {
	f := newMembershipFixture(t)
	mt := f.seedType(t, models.BillingYearly)
	m := f.seedMember(t, models.StatusPending)

	rejected, err := f.svc.Reject(context.Background(), adminActor(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, rejected.Status)
	require.NotNil(t, rejected.RejectedAt)

	_, err = f.svc.Approve(context.Background(), adminActor(), m.ID, mt.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.Reject(context.Background(), adminActor(), m.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestLazyExpiryOnRead(t *testing.T) {
	past := time.Now().AddDate(0, 0, -10)
	m := &models.Member{Status: models.StatusActive, DuesPaidUntil: &past}

	assert.Equal(t, models.StatusExpired, m.EffectiveStatus(time.Now()))
	// Stored status unchanged; only the view lapses
	assert.Equal(t, models.StatusActive, m.Status)
}

func TestBypassOverridesLapsedDues(t *testing.T) {
	past := time.Now().AddDate(0, 0, -10)
	m := &models.Member{Status: models.StatusActive, DuesPaidUntil: &past, BypassDues: true}

	assert.Equal(t, models.StatusActive, m.EffectiveStatus(time.Now()))
}

func TestSweepExpiredPersistsLapsedMembers(t *testing.T) {
	f := newMembershipFixture(t)
	past := time.Now().AddDate(0, 0, -10)
	lapsed := f.seedMember(t, models.StatusActive, func(m *models.Member) {
		m.DuesPaidUntil = &past
	})
	future := time.Now().AddDate(0, 6, 0)
	current := f.seedMember(t, models.StatusActive, func(m *models.Member) {
		m.Email = "current@example.org"
		m.Username = "current"
		m.DuesPaidUntil = &future
	})

	count, err := f.svc.SweepExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := f.members.GetByID(context.Background(), lapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Status)

	got, err = f.members.GetByID(context.Background(), current.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)

	assert.Contains(t, f.audits.actions(), models.AuditMemberExpire)
}

func TestSweepIsOrderIndependentWithPayment(t *testing.T) {
	f := newMembershipFixture(t)
	past := time.Now().AddDate(0, 0, -10)
	m := f.seedMember(t, models.StatusActive, func(m *models.Member) {
		m.DuesPaidUntil = &past
	})

	// Payment lands before the sweep runs
	paidAt := time.Now()
	_, _, err := f.svc.ApplyPayment(context.Background(), nil, m.ID, paidAt)
	require.NoError(t, err)

	count, err := f.svc.SweepExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, count)

	got, err := f.members.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)
}

func TestSuspensionIsSticky(t *testing.T) {
	f := newMembershipFixture(t)
	future := time.Now().AddDate(0, 1, 0)
	m := f.seedMember(t, models.StatusActive, func(m *models.Member) {
		m.DuesPaidUntil = &future
	})

	_, err := f.svc.Suspend(context.Background(), adminActor(), m.ID)
	require.NoError(t, err)

	// A payment extends dues but does not lift the suspension
	updated, _, err := f.svc.ApplyPayment(context.Background(), nil, m.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuspended, updated.Status)
	assert.True(t, updated.DuesPaidUntil.After(future))

	// Reinstatement recomputes from the dues position
	reinstated, err := f.svc.Reinstate(context.Background(), adminActor(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, reinstated.Status)
}

func TestReinstateWithLapsedDuesYieldsExpired(t *testing.T) {
	f := newMembershipFixture(t)
	past := time.Now().AddDate(0, 0, -10)
	m := f.seedMember(t, models.StatusSuspended, func(m *models.Member) {
		m.DuesPaidUntil = &past
	})

	reinstated, err := f.svc.Reinstate(context.Background(), adminActor(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, reinstated.Status)
}

func TestApplyPaymentExtendsFromLaterOfDuesAndEvent(t *testing.T) {
	f := newMembershipFixture(t)
	now := time.Now()

	// Early renewal: dues still in the future extend from the dues date
	future := now.AddDate(0, 3, 0)
	early := f.seedMember(t, models.StatusActive, func(m *models.Member) {
		m.DuesPaidUntil = &future
	})
	updated, _, err := f.svc.ApplyPayment(context.Background(), nil, early.ID, now)
	require.NoError(t, err)
	assert.WithinDuration(t, future.AddDate(1, 0, 0), *updated.DuesPaidUntil, time.Second)

	// Late payment: lapsed dues extend from the payment time
	past := now.AddDate(0, -3, 0)
	late := f.seedMember(t, models.StatusExpired, func(m *models.Member) {
		m.Email = "late@example.org"
		m.Username = "late"
		m.DuesPaidUntil = &past
	})
	updated, _, err = f.svc.ApplyPayment(context.Background(), nil, late.ID, now)
	require.NoError(t, err)
	assert.WithinDuration(t, now.AddDate(1, 0, 0), *updated.DuesPaidUntil, time.Second)
	assert.Equal(t, models.StatusActive, updated.Status)
}

func TestApplyPaymentKeepsPendingStatus(t *testing.T) {
	f := newMembershipFixture(t)
	m := f.seedMember(t, models.StatusPending)

	updated, _, err := f.svc.ApplyPayment(context.Background(), nil, m.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status)
	require.NotNil(t, updated.DuesPaidUntil)
}

func TestSetHonorary(t *testing.T) {
	f := newMembershipFixture(t)
	m := f.seedMember(t, models.StatusExpired)

	honorary, err := f.svc.SetHonorary(context.Background(), adminActor(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusHonorary, honorary.Status)

	_, err = f.svc.SetHonorary(context.Background(), adminActor(), m.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestSuspendRequiresActiveOrExpired(t *testing.T) {
	f := newMembershipFixture(t)
	m := f.seedMember(t, models.StatusPending)

	_, err := f.svc.Suspend(context.Background(), adminActor(), m.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestEscalateLapsedRespectsPolicy(t *testing.T) {
	f := newMembershipFixture(t)
	longPast := time.Now().AddDate(0, -3, 0)
	m := f.seedMember(t, models.StatusExpired, func(m *models.Member) {
		m.DuesPaidUntil = &longPast
	})

	// Disabled by default
	count, err := f.svc.EscalateLapsed(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, count)

	f.settings.set(config.SettingAutoSuspendAfterGrace, "true", models.SettingBoolean)
	f.settings.set(config.SettingGracePeriodDays, "30", models.SettingNumber)

	count, err = f.svc.EscalateLapsed(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := f.members.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuspended, got.Status)
}
