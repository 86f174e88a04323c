package services

import (
	"context"
	"testing"

	"clubdesk/internal/adapters/persistence/models"
	"clubdesk/internal/config"
	"clubdesk/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSettingsFixture(t *testing.T) (*SettingsService, *fakeSettingsRepo, *fakeAuditRepo) {
	t.Helper()
	settings := newFakeSettingsRepo()
	audits := newFakeAuditRepo()
	svc := NewSettingsService(settings, audits, &fakeTxRunner{})
	return svc, settings, audits
}

func TestUpdateSettingValidatesValueType(t *testing.T) {
	svc, settings, audits := newSettingsFixture(t)
	settings.set(config.SettingAutoApprove, "false", models.SettingBoolean)
	settings.set(config.SettingGracePeriodDays, "30", models.SettingNumber)
	ctx := context.Background()

	updated, err := svc.Update(ctx, adminActor(), config.SettingAutoApprove, "true")
	require.NoError(t, err)
	assert.Equal(t, "true", updated.Value)
	require.NotNil(t, updated.UpdatedBy)
	assert.Contains(t, audits.actions(), models.AuditSettingUpdate)

	_, err = svc.Update(ctx, adminActor(), config.SettingAutoApprove, "maybe")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Update(ctx, adminActor(), config.SettingGracePeriodDays, "a lot")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateSettingUnknownKey(t *testing.T) {
	svc, _, _ := newSettingsFixture(t)

	_, err := svc.Update(context.Background(), adminActor(), "no.such.key", "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateSettingUnchangedValueSkipsAudit(t *testing.T) {
	svc, settings, audits := newSettingsFixture(t)
	settings.set(config.SettingAutoApprove, "false", models.SettingBoolean)

	_, err := svc.Update(context.Background(), adminActor(), config.SettingAutoApprove, "false")
	require.NoError(t, err)
	assert.Empty(t, audits.actions())
}

func TestListMasksSensitiveValues(t *testing.T) {
	svc, settings, _ := newSettingsFixture(t)
	settings.settings["payment.webhook_secret"] = &models.AppSetting{
		Key:         "payment.webhook_secret",
		Value:       "whsec_topsecret",
		ValueType:   models.SettingString,
		Category:    "payment",
		IsSensitive: true,
	}
	settings.set(config.SettingGracePeriodDays, "30", models.SettingNumber)

	listed, err := svc.List(context.Background())
	require.NoError(t, err)

	for _, s := range listed {
		if s.Key == "payment.webhook_secret" {
			assert.Equal(t, "********", s.Value)
		} else {
			assert.Equal(t, "30", s.Value)
		}
	}

	// Masking never touches the stored value
	stored, err := settings.Get(context.Background(), "payment.webhook_secret")
	require.NoError(t, err)
	assert.Equal(t, "whsec_topsecret", stored.Value)
}

func TestPaymentPolicyDefaultsAndOverrides(t *testing.T) {
	svc, settings, _ := newSettingsFixture(t)
	ctx := context.Background()

	policy := svc.GetPaymentPolicy(ctx)
	assert.Equal(t, 30, policy.GracePeriodDays)
	assert.Equal(t, 7, policy.ReminderDaysBefore)
	assert.False(t, policy.AutoSuspendAfterGrace)

	settings.set(config.SettingGracePeriodDays, "14", models.SettingNumber)
	settings.set(config.SettingAutoSuspendAfterGrace, "true", models.SettingBoolean)

	policy = svc.GetPaymentPolicy(ctx)
	assert.Equal(t, 14, policy.GracePeriodDays)
	assert.True(t, policy.AutoSuspendAfterGrace)
}

func TestMembershipPolicyDefaultsAndOverrides(t *testing.T) {
	svc, settings, _ := newSettingsFixture(t)
	ctx := context.Background()

	policy := svc.GetMembershipPolicy(ctx)
	assert.False(t, policy.AutoApprove)
	assert.True(t, policy.RequirePaymentToActivate)
	assert.Equal(t, 12, policy.DefaultDurationMonths)

	settings.set(config.SettingAutoApprove, "true", models.SettingBoolean)
	settings.set(config.SettingRequirePayment, "false", models.SettingBoolean)
	settings.set(config.SettingDefaultDurationMonths, "1", models.SettingNumber)

	policy = svc.GetMembershipPolicy(ctx)
	assert.True(t, policy.AutoApprove)
	assert.False(t, policy.RequirePaymentToActivate)
	assert.Equal(t, 1, policy.DefaultDurationMonths)
}
