package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"

	"clubdesk/internal/adapters/persistence/models"
	"clubdesk/internal/adapters/persistence/repositories"
	"clubdesk/internal/config"
	"clubdesk/internal/core/domain"

	"gorm.io/gorm"
)

// SettingsService reads and updates runtime policy settings. Updates
// are validated against the declared value type and audited.
type SettingsService struct {
	settingsRepo repositories.SettingsRepository
	auditRepo    repositories.AuditRepository
	tx           repositories.TxRunner
}

// NewSettingsService creates a new settings service
func NewSettingsService(
	settingsRepo repositories.SettingsRepository,
	auditRepo repositories.AuditRepository,
	tx repositories.TxRunner,
) *SettingsService {
	return &SettingsService{
		settingsRepo: settingsRepo,
		auditRepo:    auditRepo,
		tx:           tx,
	}
}

// List returns all settings. Sensitive values are masked.
func (s *SettingsService) List(ctx context.Context) ([]*models.AppSetting, error) {
	settings, err := s.settingsRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, setting := range settings {
		if setting.IsSensitive {
			setting.Value = "********"
		}
	}
	return settings, nil
}

// GetByCategory returns settings in one category, sensitive values
// masked
func (s *SettingsService) GetByCategory(ctx context.Context, category string) ([]*models.AppSetting, error) {
	settings, err := s.settingsRepo.GetByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	for _, setting := range settings {
		if setting.IsSensitive {
			setting.Value = "********"
		}
	}
	return settings, nil
}

// Update changes a known setting's value. Unknown keys are rejected;
// the seeded catalog defines the schema.
func (s *SettingsService) Update(ctx context.Context, actor Actor, key, value string) (*models.AppSetting, error) {
	var updated *models.AppSetting
	err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		settings := s.settingsRepo.WithTx(tx)

		setting, err := settings.Get(ctx, key)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		if err := validateSettingValue(setting.ValueType, value); err != nil {
			return err
		}
		if setting.Value == value {
			updated = setting
			return nil
		}

		before := setting.Value
		setting.Value = value
		setting.UpdatedBy = actor.ID

		if err := settings.Upsert(ctx, setting); err != nil {
			return err
		}

		auditBefore := before
		auditAfter := value
		if setting.IsSensitive {
			auditBefore = "********"
			auditAfter = "********"
		}
		// Settings are keyed by string, so the key travels in the
		// snapshot rather than in EntityID
		auditBefore = snapshotSetting(key, auditBefore)
		auditAfter = snapshotSetting(key, auditAfter)
		if err := s.auditRepo.WithTx(tx).Record(ctx, &models.AuditRecord{
			ActorID:    actor.ID,
			Action:     models.AuditSettingUpdate,
			EntityType: models.EntitySetting,
			Before:     auditBefore,
			After:      auditAfter,
			IPAddress:  actor.IP,
		}); err != nil {
			return err
		}

		updated = setting
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Setting updated: %s", key)
	return updated, nil
}

func snapshotSetting(key, value string) string {
	b, _ := json.Marshal(map[string]string{"key": key, "value": value})
	return string(b)
}

func validateSettingValue(valueType, value string) error {
	switch valueType {
	case models.SettingNumber:
		if _, err := strconv.Atoi(value); err != nil {
			return domain.ErrInvalidInput
		}
	case models.SettingBoolean:
		if _, err := strconv.ParseBool(value); err != nil {
			return domain.ErrInvalidInput
		}
	}
	return nil
}

// PaymentPolicy is the typed view of the payment settings category
type PaymentPolicy struct {
	GracePeriodDays       int
	ReminderDaysBefore    int
	AutoSuspendAfterGrace bool
}

// GetPaymentPolicy reads the payment category with seeded fallbacks
func (s *SettingsService) GetPaymentPolicy(ctx context.Context) PaymentPolicy {
	policy := PaymentPolicy{GracePeriodDays: 30, ReminderDaysBefore: 7}
	if setting, err := s.settingsRepo.Get(ctx, config.SettingGracePeriodDays); err == nil {
		if v, err := strconv.Atoi(setting.Value); err == nil {
			policy.GracePeriodDays = v
		}
	}
	if setting, err := s.settingsRepo.Get(ctx, config.SettingReminderDaysBefore); err == nil {
		if v, err := strconv.Atoi(setting.Value); err == nil {
			policy.ReminderDaysBefore = v
		}
	}
	if setting, err := s.settingsRepo.Get(ctx, config.SettingAutoSuspendAfterGrace); err == nil {
		policy.AutoSuspendAfterGrace, _ = strconv.ParseBool(setting.Value)
	}
	return policy
}

// MembershipPolicy is the typed view of the membership settings
// category
type MembershipPolicy struct {
	AutoApprove              bool
	RequirePaymentToActivate bool
	DefaultDurationMonths    int
}

// GetMembershipPolicy reads the membership category with seeded
// fallbacks
func (s *SettingsService) GetMembershipPolicy(ctx context.Context) MembershipPolicy {
	policy := MembershipPolicy{RequirePaymentToActivate: true, DefaultDurationMonths: 12}
	if setting, err := s.settingsRepo.Get(ctx, config.SettingAutoApprove); err == nil {
		policy.AutoApprove, _ = strconv.ParseBool(setting.Value)
	}
	if setting, err := s.settingsRepo.Get(ctx, config.SettingRequirePayment); err == nil {
		policy.RequirePaymentToActivate, _ = strconv.ParseBool(setting.Value)
	}
	if setting, err := s.settingsRepo.Get(ctx, config.SettingDefaultDurationMonths); err == nil {
		if v, err := strconv.Atoi(setting.Value); err == nil && v > 0 {
			policy.DefaultDurationMonths = v
		}
	}
	return policy
}
