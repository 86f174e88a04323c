package repositories

import (
	"context"
	"time"

	"clubdesk/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// TxRunner runs a function inside a database transaction. Services use
// it together with the repositories' WithTx so that a state transition,
// its payment row, and its audit record commit or roll back as one.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// MemberRepository defines member repository interface. Status and
// dues fields are only written through the membership service.
type MemberRepository interface {
	Create(ctx context.Context, member *models.Member) error
	GetByID(ctx context.Context, id uint) (*models.Member, error)
	// GetByIDForUpdate locks the member row for the duration of the
	// enclosing transaction, serializing standing transitions per member.
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Member, error)
	GetByEmail(ctx context.Context, email string) (*models.Member, error)
	GetByUsername(ctx context.Context, username string) (*models.Member, error)
	Update(ctx context.Context, member *models.Member) error
	List(ctx context.Context, offset, limit int) ([]*models.Member, int64, error)
	ListDuesLapsed(ctx context.Context, status string, before time.Time) ([]*models.Member, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	WithTx(tx *gorm.DB) MemberRepository
}

// SessionRepository defines session repository interface
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	Touch(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteByMember(ctx context.Context, memberID uint) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	WithTx(tx *gorm.DB) SessionRepository
}

// CsrfTokenRepository defines CSRF token repository interface.
// At most one token per session; Upsert replaces on rotation.
type CsrfTokenRepository interface {
	Upsert(ctx context.Context, token *models.CsrfToken) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.CsrfToken, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteOrphaned(ctx context.Context) (int64, error)
	WithTx(tx *gorm.DB) CsrfTokenRepository
}

// PaymentRepository defines payment repository interface
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id uint) (*models.Payment, error)
	GetByExternalRef(ctx context.Context, ref string) (*models.Payment, error)
	// GetByExternalRefForUpdate locks the payment row inside the
	// enclosing transaction for idempotent reconciliation.
	GetByExternalRefForUpdate(ctx context.Context, ref string) (*models.Payment, error)
	Update(ctx context.Context, payment *models.Payment) error
	ListByMember(ctx context.Context, memberID uint, offset, limit int) ([]*models.Payment, int64, error)
	WithTx(tx *gorm.DB) PaymentRepository
}

// AuditRepository defines the append-only audit log interface.
// Records are never updated or deleted.
type AuditRepository interface {
	Record(ctx context.Context, record *models.AuditRecord) error
	ListByEntity(ctx context.Context, entityType string, entityID uint, limit int) ([]*models.AuditRecord, error)
	List(ctx context.Context, offset, limit int) ([]*models.AuditRecord, int64, error)
	WithTx(tx *gorm.DB) AuditRepository
}

// MembershipTypeRepository defines membership type repository interface
type MembershipTypeRepository interface {
	Create(ctx context.Context, t *models.MembershipType) error
	GetByID(ctx context.Context, id uint) (*models.MembershipType, error)
	GetBySlug(ctx context.Context, slug string) (*models.MembershipType, error)
	Update(ctx context.Context, t *models.MembershipType) error
	List(ctx context.Context, includeInactive bool) ([]*models.MembershipType, error)
}

// EventTypeRepository defines event type repository interface
type EventTypeRepository interface {
	Create(ctx context.Context, t *models.EventType) error
	GetByID(ctx context.Context, id uint) (*models.EventType, error)
	Update(ctx context.Context, t *models.EventType) error
	List(ctx context.Context, includeInactive bool) ([]*models.EventType, error)
}

// AnnouncementTypeRepository defines announcement type repository interface
type AnnouncementTypeRepository interface {
	Create(ctx context.Context, t *models.AnnouncementType) error
	GetByID(ctx context.Context, id uint) (*models.AnnouncementType, error)
	Update(ctx context.Context, t *models.AnnouncementType) error
	List(ctx context.Context, includeInactive bool) ([]*models.AnnouncementType, error)
}

// EventRepository defines event repository interface
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uint) (*models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, from *time.Time, offset, limit int) ([]*models.Event, int64, error)
}

// AnnouncementRepository defines announcement repository interface
type AnnouncementRepository interface {
	Create(ctx context.Context, a *models.Announcement) error
	GetByID(ctx context.Context, id uint) (*models.Announcement, error)
	Update(ctx context.Context, a *models.Announcement) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, publishedOnly bool, offset, limit int) ([]*models.Announcement, int64, error)
}

// SettingsRepository defines app settings repository interface
type SettingsRepository interface {
	Get(ctx context.Context, key string) (*models.AppSetting, error)
	GetByCategory(ctx context.Context, category string) ([]*models.AppSetting, error)
	List(ctx context.Context) ([]*models.AppSetting, error)
	Upsert(ctx context.Context, setting *models.AppSetting) error
	WithTx(tx *gorm.DB) SettingsRepository
}
