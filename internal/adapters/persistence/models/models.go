package models

import (
	"time"

	"gorm.io/gorm"
)

// ============================================================
// Members & Auth
// ============================================================

// Member statuses
const (
	StatusPending   = "PENDING"
	StatusActive    = "ACTIVE"
	StatusExpired   = "EXPIRED"
	StatusSuspended = "SUSPENDED"
	StatusHonorary  = "HONORARY"
)

// Roles
const (
	RoleMember = "MEMBER"
	RoleAdmin  = "ADMIN"
)

// Member represents the members table. Members are never hard-deleted:
// deactivation is a status, and the standing history must persist.
type Member struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Email            string     `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Username         string     `gorm:"uniqueIndex;size:50;not null" json:"username"`
	FullName         string     `gorm:"size:100" json:"full_name"`
	PasswordHash     string     `gorm:"size:255;not null" json:"-"`
	Role             string     `gorm:"size:20;default:'MEMBER'" json:"role"`
	Status           string     `gorm:"size:20;default:'PENDING';index" json:"status"`
	MembershipTypeID *uint      `gorm:"index" json:"membership_type_id"`
	JoinedAt         *time.Time `json:"joined_at"`
	ExpiresAt        *time.Time `json:"expires_at"`
	DuesPaidUntil    *time.Time `json:"dues_paid_until"`
	BypassDues       bool       `gorm:"default:false" json:"bypass_dues"`
	RejectedAt       *time.Time `json:"rejected_at"`
	Notes            string     `gorm:"type:text" json:"notes"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	MembershipType *MembershipType `gorm:"foreignKey:MembershipTypeID" json:"membership_type,omitempty"`
}

func (Member) TableName() string {
	return "members"
}

// IsAdmin returns true if the member has the admin role
func (m *Member) IsAdmin() bool {
	return m.Role == RoleAdmin
}

// IsRejected returns true if the member's signup was rejected
func (m *Member) IsRejected() bool {
	return m.RejectedAt != nil
}

// DuesCurrent reports whether the member's dues cover the given time.
// A nil dues_paid_until means no expiry (lifetime or never billed).
func (m *Member) DuesCurrent(now time.Time) bool {
	if m.BypassDues {
		return true
	}
	if m.DuesPaidUntil == nil {
		return true
	}
	return m.DuesPaidUntil.After(now)
}

// EffectiveStatus evaluates the member's standing at the given time.
// An Active member whose dues have lapsed reads as Expired without any
// explicit transition; the stored status is only reconciled by the
// daily sweep. Suspension and Honorary are sticky and ignore dues math.
func (m *Member) EffectiveStatus(now time.Time) string {
	switch m.Status {
	case StatusActive:
		if !m.DuesCurrent(now) {
			return StatusExpired
		}
		return StatusActive
	case StatusExpired:
		if m.BypassDues {
			return StatusActive
		}
		return StatusExpired
	default:
		return m.Status
	}
}

// MemberResponse DTO
type MemberResponse struct {
	ID                 uint       `json:"id"`
	Email              string     `json:"email"`
	Username           string     `json:"username"`
	FullName           string     `json:"full_name"`
	Role               string     `json:"role"`
	Status             string     `json:"status"`
	MembershipTypeID   *uint      `json:"membership_type_id"`
	MembershipTypeName string     `json:"membership_type_name,omitempty"`
	JoinedAt           *time.Time `json:"joined_at"`
	DuesPaidUntil      *time.Time `json:"dues_paid_until"`
	BypassDues         bool       `json:"bypass_dues"`
	Notes              string     `json:"notes,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// ToResponse builds the member DTO with the lazily evaluated standing.
func (m *Member) ToResponse(now time.Time) *MemberResponse {
	resp := &MemberResponse{
		ID:               m.ID,
		Email:            m.Email,
		Username:         m.Username,
		FullName:         m.FullName,
		Role:             m.Role,
		Status:           m.EffectiveStatus(now),
		MembershipTypeID: m.MembershipTypeID,
		JoinedAt:         m.JoinedAt,
		DuesPaidUntil:    m.DuesPaidUntil,
		BypassDues:       m.BypassDues,
		Notes:            m.Notes,
		CreatedAt:        m.CreatedAt,
	}
	if m.MembershipType != nil {
		resp.MembershipTypeName = m.MembershipType.Name
	}
	return resp
}

// Session represents the sessions table. Only the SHA256 hash of the
// bearer token is stored; the raw token is handed out once at creation.
type Session struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	MemberID   uint      `gorm:"index;not null" json:"member_id"`
	TokenHash  string    `gorm:"uniqueIndex;size:64;not null" json:"-"`
	ExpiresAt  time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`

	Member Member `gorm:"foreignKey:MemberID" json:"-"`
}

func (Session) TableName() string {
	return "sessions"
}

// IsExpired checks if the session is past its absolute expiry
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// CsrfToken represents the csrf_tokens table. One live token per
// session (primary key = session id), replaced on rotation and
// cascade-deleted with its session.
type CsrfToken struct {
	SessionID string    `gorm:"primaryKey;size:36" json:"session_id"`
	TokenHash string    `gorm:"size:64;not null" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Session Session `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
}

func (CsrfToken) TableName() string {
	return "csrf_tokens"
}

// ============================================================
// Payments
// ============================================================

// Payment statuses
const (
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
	PaymentRefunded  = "REFUNDED"
)

// Payment methods
const (
	MethodProvider = "PROVIDER"
	MethodManual   = "MANUAL"
	MethodWaived   = "WAIVED"
)

// Payment represents the payments table. Amounts are integer
// minor-currency units. ExternalRef, once set, is immutable and is the
// deduplication key for webhook reconciliation.
type Payment struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	MemberID    uint       `gorm:"index;not null" json:"member_id"`
	AmountCents int64      `gorm:"not null" json:"amount_cents"`
	Currency    string     `gorm:"size:3;not null;default:'USD'" json:"currency"`
	Status      string     `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	Method      string     `gorm:"size:20;not null" json:"method"`
	ExternalRef *string    `gorm:"uniqueIndex;size:100" json:"external_ref"`
	Description string     `gorm:"type:text" json:"description"`
	PaidAt      *time.Time `json:"paid_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Member *Member `gorm:"foreignKey:MemberID" json:"-"`
}

func (Payment) TableName() string {
	return "payments"
}

// IsTerminal reports whether the payment status accepts no further
// provider events except a refund of a completed payment.
func (p *Payment) IsTerminal() bool {
	return p.Status != PaymentPending
}

// ============================================================
// Audit
// ============================================================

// Audit actions
const (
	AuditSignup          = "SIGNUP"
	AuditMemberCreate    = "MEMBER_CREATE"
	AuditMemberUpdate    = "MEMBER_UPDATE"
	AuditMemberApprove   = "MEMBER_APPROVE"
	AuditMemberReject    = "MEMBER_REJECT"
	AuditMemberSuspend   = "MEMBER_SUSPEND"
	AuditMemberReinstate = "MEMBER_REINSTATE"
	AuditMemberHonorary  = "MEMBER_HONORARY"
	AuditMemberExpire    = "MEMBER_EXPIRE"
	AuditMemberBypass    = "MEMBER_BYPASS"
	AuditPasswordChange  = "PASSWORD_CHANGE"
	AuditPaymentComplete = "PAYMENT_COMPLETE"
	AuditPaymentFail     = "PAYMENT_FAIL"
	AuditPaymentRefund   = "PAYMENT_REFUND"
	AuditPaymentManual   = "PAYMENT_MANUAL"
	AuditPaymentWaive    = "PAYMENT_WAIVE"
	AuditSettingUpdate   = "SETTING_UPDATE"
)

// Audit entity types
const (
	EntityMember  = "member"
	EntityPayment = "payment"
	EntitySetting = "setting"
)

// AuditRecord represents the append-only audit_log table. Rows are
// never updated or deleted. ActorID is nil for system-initiated
// transitions (sweeps, webhooks).
type AuditRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ActorID    *uint     `gorm:"index" json:"actor_id"`
	Action     string    `gorm:"size:50;not null" json:"action"`
	EntityType string    `gorm:"size:30;not null;index:idx_audit_entity" json:"entity_type"`
	EntityID   uint      `gorm:"not null;index:idx_audit_entity" json:"entity_id"`
	Before     string    `gorm:"type:text" json:"before"`
	After      string    `gorm:"type:text" json:"after"`
	IPAddress  string    `gorm:"size:50" json:"ip_address"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (AuditRecord) TableName() string {
	return "audit_log"
}

// ============================================================
// Configurable Types (Master)
// ============================================================

// Billing periods
const (
	BillingMonthly  = "monthly"
	BillingYearly   = "yearly"
	BillingLifetime = "lifetime"
)

// ValidBillingPeriod checks a billing period value
func ValidBillingPeriod(p string) bool {
	switch p {
	case BillingMonthly, BillingYearly, BillingLifetime:
		return true
	}
	return false
}

// NextDuesDate advances a dues date by one billing period from the
// given base. Lifetime billing returns nil: such memberships never
// lapse, so no dues date is kept at all.
func NextDuesDate(base time.Time, period string) *time.Time {
	var next time.Time
	switch period {
	case BillingMonthly:
		next = base.AddDate(0, 1, 0)
	case BillingYearly:
		next = base.AddDate(1, 0, 0)
	case BillingLifetime:
		return nil
	default:
		next = base.AddDate(1, 0, 0)
	}
	return &next
}

// MembershipType represents the membership_types master table
type MembershipType struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:100;not null" json:"name"`
	Slug          string    `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Description   string    `gorm:"type:text" json:"description"`
	Color         string    `gorm:"size:20" json:"color"`
	Icon          string    `gorm:"size:50" json:"icon"`
	SortOrder     int       `gorm:"default:0" json:"sort_order"`
	IsActive      bool      `gorm:"default:true" json:"is_active"`
	FeeCents      int64     `gorm:"not null;default:0" json:"fee_cents"`
	BillingPeriod string    `gorm:"size:20;not null;default:'yearly'" json:"billing_period"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MembershipType) TableName() string {
	return "membership_types"
}

// EventType represents the event_types master table
type EventType struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Slug        string    `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	Color       string    `gorm:"size:20" json:"color"`
	Icon        string    `gorm:"size:50" json:"icon"`
	SortOrder   int       `gorm:"default:0" json:"sort_order"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (EventType) TableName() string {
	return "event_types"
}

// AnnouncementType represents the announcement_types master table
type AnnouncementType struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Slug        string    `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	Color       string    `gorm:"size:20" json:"color"`
	Icon        string    `gorm:"size:50" json:"icon"`
	SortOrder   int       `gorm:"default:0" json:"sort_order"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AnnouncementType) TableName() string {
	return "announcement_types"
}

// ============================================================
// Events & Announcements
// ============================================================

// Event represents the events table
type Event struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	EventTypeID uint       `gorm:"not null;index" json:"event_type_id"`
	Location    string     `gorm:"size:200" json:"location"`
	StartsAt    time.Time  `gorm:"not null;index" json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	CreatedBy   uint       `gorm:"not null" json:"created_by"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	EventType *EventType `gorm:"foreignKey:EventTypeID" json:"event_type,omitempty"`
	Creator   *Member    `gorm:"foreignKey:CreatedBy" json:"-"`
}

func (Event) TableName() string {
	return "events"
}

// Announcement represents the announcements table
type Announcement struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Title              string     `gorm:"size:200;not null" json:"title"`
	Body               string     `gorm:"type:text" json:"body"`
	AnnouncementTypeID uint       `gorm:"not null;index" json:"announcement_type_id"`
	PublishedAt        *time.Time `gorm:"index" json:"published_at"`
	CreatedBy          uint       `gorm:"not null" json:"created_by"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	AnnouncementType *AnnouncementType `gorm:"foreignKey:AnnouncementTypeID" json:"announcement_type,omitempty"`
	Creator          *Member           `gorm:"foreignKey:CreatedBy" json:"-"`
}

func (Announcement) TableName() string {
	return "announcements"
}

// IsPublished checks if the announcement is visible to members
func (a *Announcement) IsPublished(now time.Time) bool {
	return a.PublishedAt != nil && !a.PublishedAt.After(now)
}

// ============================================================
// Settings
// ============================================================

// Setting value types
const (
	SettingString  = "string"
	SettingNumber  = "number"
	SettingBoolean = "boolean"
)

// AppSetting represents the app_settings table
type AppSetting struct {
	Key         string    `gorm:"primaryKey;size:100" json:"key"`
	Value       string    `gorm:"type:text;not null" json:"value"`
	ValueType   string    `gorm:"size:10;not null;default:'string'" json:"value_type"`
	Category    string    `gorm:"size:50;not null;index" json:"category"`
	Description string    `gorm:"type:text" json:"description"`
	IsSensitive bool      `gorm:"default:false" json:"is_sensitive"`
	UpdatedBy   *uint     `json:"updated_by"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AppSetting) TableName() string {
	return "app_settings"
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// Master tables
		&MembershipType{},
		&EventType{},
		&AnnouncementType{},
		// Members & auth
		&Member{},
		&Session{},
		&CsrfToken{},
		// Payments & audit
		&Payment{},
		&AuditRecord{},
		// Content
		&Event{},
		&Announcement{},
		// Settings
		&AppSetting{},
	)
}
