package config

import (
	"errors"
	"log"

	"clubdesk/internal/adapters/persistence/models"
	"clubdesk/internal/pkg/password"

	"gorm.io/gorm"
)

// Seed settings keys
const (
	SettingGracePeriodDays       = "payment.grace_period_days"
	SettingReminderDaysBefore    = "payment.reminder_days_before"
	SettingAutoSuspendAfterGrace = "payment.auto_suspend_after_grace"
	SettingAutoApprove           = "membership.auto_approve"
	SettingRequirePayment        = "membership.require_payment_for_activation"
	SettingDefaultDurationMonths = "membership.default_duration_months"
)

// SeedMasterData seeds configurable types, default settings and the
// bootstrap admin account
func SeedMasterData(db *gorm.DB, cfg *Config) error {
	if err := seedMembershipTypes(db); err != nil {
		return err
	}
	if err := seedEventTypes(db); err != nil {
		return err
	}
	if err := seedAnnouncementTypes(db); err != nil {
		return err
	}
	if err := seedSettings(db); err != nil {
		return err
	}
	if err := seedAdmin(db, cfg); err != nil {
		return err
	}

	log.Println("✅ Master data seeded successfully")
	return nil
}

func seedMembershipTypes(db *gorm.DB) error {
	types := []models.MembershipType{
		{
			Name:          "Member",
			Slug:          "member",
			Description:   "Standard membership",
			Color:         "#2196F3",
			SortOrder:     1,
			IsActive:      true,
			FeeCents:      500,
			BillingPeriod: models.BillingMonthly,
		},
		{
			Name:          "Associate",
			Slug:          "associate",
			Description:   "Associate membership with extended privileges",
			Color:         "#9C27B0",
			SortOrder:     2,
			IsActive:      true,
			FeeCents:      10000,
			BillingPeriod: models.BillingMonthly,
		},
		{
			Name:          "Life Member",
			Slug:          "life-member",
			Description:   "One-time lifetime membership",
			Color:         "#FF9800",
			SortOrder:     3,
			IsActive:      true,
			FeeCents:      1000000,
			BillingPeriod: models.BillingLifetime,
		},
	}

	for _, t := range types {
		var existing models.MembershipType
		if err := db.Where("slug = ?", t.Slug).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if err := db.Create(&t).Error; err != nil {
					return err
				}
				log.Printf("   Created membership_type: %s", t.Name)
			}
		}
	}
	return nil
}

func seedEventTypes(db *gorm.DB) error {
	types := []models.EventType{
		{Name: "Member Meeting", Slug: "member-meeting", Color: "#2196F3", Icon: "users", SortOrder: 1, IsActive: true},
		{Name: "Social", Slug: "social", Color: "#4CAF50", Icon: "glass-cheers", SortOrder: 2, IsActive: true},
	}

	for _, t := range types {
		var existing models.EventType
		if err := db.Where("slug = ?", t.Slug).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if err := db.Create(&t).Error; err != nil {
					return err
				}
				log.Printf("   Created event_type: %s", t.Name)
			}
		}
	}
	return nil
}

func seedAnnouncementTypes(db *gorm.DB) error {
	types := []models.AnnouncementType{
		{Name: "News", Slug: "news", Color: "#2196F3", SortOrder: 1, IsActive: true},
		{Name: "Awards", Slug: "awards", Color: "#FFC107", SortOrder: 2, IsActive: true},
	}

	for _, t := range types {
		var existing models.AnnouncementType
		if err := db.Where("slug = ?", t.Slug).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if err := db.Create(&t).Error; err != nil {
					return err
				}
				log.Printf("   Created announcement_type: %s", t.Name)
			}
		}
	}
	return nil
}

func seedSettings(db *gorm.DB) error {
	settings := []models.AppSetting{
		{Key: SettingGracePeriodDays, Value: "30", ValueType: models.SettingNumber, Category: "payment", Description: "Days after dues lapse before escalation applies"},
		{Key: SettingReminderDaysBefore, Value: "7", ValueType: models.SettingNumber, Category: "payment", Description: "Days before dues lapse to remind members"},
		{Key: SettingAutoSuspendAfterGrace, Value: "false", ValueType: models.SettingBoolean, Category: "payment", Description: "Suspend expired members once the grace period has passed"},
		{Key: SettingAutoApprove, Value: "false", ValueType: models.SettingBoolean, Category: "membership", Description: "Activate new signups without admin approval"},
		{Key: SettingRequirePayment, Value: "true", ValueType: models.SettingBoolean, Category: "membership", Description: "Require a completed payment before auto-approval activates a member"},
		{Key: SettingDefaultDurationMonths, Value: "12", ValueType: models.SettingNumber, Category: "membership", Description: "Dues period in months when a member has no membership type"},
	}

	for _, s := range settings {
		var existing models.AppSetting
		if err := db.Where("`key` = ?", s.Key).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if err := db.Create(&s).Error; err != nil {
					return err
				}
				log.Printf("   Created setting: %s", s.Key)
			}
		}
	}
	return nil
}

// seedAdmin creates the bootstrap admin account if no admin exists.
// Skipped when SEED_ADMIN_PASSWORD is not set.
func seedAdmin(db *gorm.DB, cfg *Config) error {
	var count int64
	if err := db.Model(&models.Member{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if cfg.Seed.AdminPassword == "" {
		log.Println("⚠️ No admin account exists and SEED_ADMIN_PASSWORD is not set, skipping admin seed")
		return nil
	}

	hash, err := password.Hash(cfg.Seed.AdminPassword)
	if err != nil {
		return err
	}

	admin := models.Member{
		Email:        cfg.Seed.AdminEmail,
		Username:     cfg.Seed.AdminUsername,
		FullName:     "Administrator",
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Status:       models.StatusActive,
		BypassDues:   true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Printf("   Created bootstrap admin: %s", admin.Email)
	return nil
}
