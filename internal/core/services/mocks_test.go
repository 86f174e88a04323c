package services

import (
	"context"
	"sync"
	"time"

	"clubdesk/internal/adapters/persistence/models"
	"clubdesk/internal/adapters/persistence/repositories"

	"gorm.io/gorm"
)

// fakeTxRunner serializes callbacks with a mutex and hands them a nil
// transaction; the fake repositories ignore WithTx.
type fakeTxRunner struct {
	mu sync.Mutex
}

func (r *fakeTxRunner) RunInTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(nil)
}

// ============================================================
// Members
// ============================================================

type fakeMemberRepo struct {
	mu      sync.Mutex
	nextID  uint
	members map[uint]*models.Member
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{nextID: 1, members: make(map[uint]*models.Member)}
}

func copyMember(m *models.Member) *models.Member {
	cp := *m
	return &cp
}

func (r *fakeMemberRepo) Create(ctx context.Context, member *models.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	member.ID = r.nextID
	r.nextID++
	r.members[member.ID] = copyMember(member)
	return nil
}

func (r *fakeMemberRepo) GetByID(ctx context.Context, id uint) (*models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyMember(m), nil
}

func (r *fakeMemberRepo) GetByIDForUpdate(ctx context.Context, id uint) (*models.Member, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeMemberRepo) GetByEmail(ctx context.Context, email string) (*models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.Email == email {
			return copyMember(m), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeMemberRepo) GetByUsername(ctx context.Context, username string) (*models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.Username == username {
			return copyMember(m), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeMemberRepo) Update(ctx context.Context, member *models.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[member.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.members[member.ID] = copyMember(member)
	return nil
}

func (r *fakeMemberRepo) List(ctx context.Context, offset, limit int) ([]*models.Member, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, copyMember(m))
	}
	return out, int64(len(out)), nil
}

func (r *fakeMemberRepo) ListDuesLapsed(ctx context.Context, status string, before time.Time) ([]*models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Member
	for _, m := range r.members {
		if m.Status != status || m.BypassDues {
			continue
		}
		if m.DuesPaidUntil != nil && m.DuesPaidUntil.Before(before) {
			out = append(out, copyMember(m))
		}
	}
	return out, nil
}

func (r *fakeMemberRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *fakeMemberRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, username)
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *fakeMemberRepo) WithTx(tx *gorm.DB) repositories.MemberRepository { return r }

// ============================================================
// Sessions and CSRF
// ============================================================

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	txBound  bool
}

func (r *fakeSessionRepo) WithTx(tx *gorm.DB) repositories.SessionRepository {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txBound = true
	return r
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*models.Session)}
}

func (r *fakeSessionRepo) Create(ctx context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *fakeSessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.TokenHash == tokenHash {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSessionRepo) Touch(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.LastUsedAt = at
	}
	return nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionRepo) DeleteByMember(ctx context.Context, memberID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if s.MemberID == memberID {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeSessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if s.ExpiresAt.Before(before) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeSessionRepo) expire(id string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.ExpiresAt = at
	}
}

func (r *fakeSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

type fakeCsrfRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.CsrfToken
	// live sessions, for orphan cleanup
	sessions *fakeSessionRepo
	txBound  bool
}

func (r *fakeCsrfRepo) WithTx(tx *gorm.DB) repositories.CsrfTokenRepository {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txBound = true
	return r
}

func newFakeCsrfRepo(sessions *fakeSessionRepo) *fakeCsrfRepo {
	return &fakeCsrfRepo{tokens: make(map[string]*models.CsrfToken), sessions: sessions}
}

func (r *fakeCsrfRepo) Upsert(ctx context.Context, token *models.CsrfToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *token
	r.tokens[token.SessionID] = &cp
	return nil
}

func (r *fakeCsrfRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.CsrfToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[sessionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeCsrfRepo) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, sessionID)
	return nil
}

func (r *fakeCsrfRepo) DeleteOrphaned(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for sessionID := range r.tokens {
		r.sessions.mu.Lock()
		_, alive := r.sessions.sessions[sessionID]
		r.sessions.mu.Unlock()
		if !alive {
			delete(r.tokens, sessionID)
			n++
		}
	}
	return n, nil
}

// ============================================================
// Payments
// ============================================================

type fakePaymentRepo struct {
	mu       sync.Mutex
	nextID   uint
	payments map[uint]*models.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{nextID: 1, payments: make(map[uint]*models.Payment)}
}

func copyPayment(p *models.Payment) *models.Payment {
	cp := *p
	return &cp
}

func (r *fakePaymentRepo) Create(ctx context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ExternalRef != nil {
		for _, existing := range r.payments {
			if existing.ExternalRef != nil && *existing.ExternalRef == *p.ExternalRef {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	p.ID = r.nextID
	r.nextID++
	r.payments[p.ID] = copyPayment(p)
	return nil
}

func (r *fakePaymentRepo) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyPayment(p), nil
}

func (r *fakePaymentRepo) GetByExternalRef(ctx context.Context, ref string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ExternalRef != nil && *p.ExternalRef == ref {
			return copyPayment(p), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePaymentRepo) GetByExternalRefForUpdate(ctx context.Context, ref string) (*models.Payment, error) {
	return r.GetByExternalRef(ctx, ref)
}

func (r *fakePaymentRepo) Update(ctx context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.payments[p.ID] = copyPayment(p)
	return nil
}

func (r *fakePaymentRepo) ListByMember(ctx context.Context, memberID uint, offset, limit int) ([]*models.Payment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Payment
	for _, p := range r.payments {
		if p.MemberID == memberID {
			out = append(out, copyPayment(p))
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakePaymentRepo) WithTx(tx *gorm.DB) repositories.PaymentRepository { return r }

// ============================================================
// Audit
// ============================================================

type fakeAuditRepo struct {
	mu      sync.Mutex
	records []*models.AuditRecord
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) Record(ctx context.Context, record *models.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *record
	cp.ID = uint(len(r.records) + 1)
	cp.CreatedAt = time.Now()
	r.records = append(r.records, &cp)
	return nil
}

func (r *fakeAuditRepo) ListByEntity(ctx context.Context, entityType string, entityID uint, limit int) ([]*models.AuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuditRecord
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		rec := r.records[i]
		if rec.EntityType == entityType && rec.EntityID == entityID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) List(ctx context.Context, offset, limit int) ([]*models.AuditRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.AuditRecord, len(r.records))
	copy(out, r.records)
	return out, int64(len(out)), nil
}

func (r *fakeAuditRepo) WithTx(tx *gorm.DB) repositories.AuditRepository { return r }

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.Action)
	}
	return out
}

// ============================================================
// Membership types
// ============================================================

type fakeTypeRepo struct {
	mu     sync.Mutex
	nextID uint
	types  map[uint]*models.MembershipType
}

func newFakeTypeRepo() *fakeTypeRepo {
	return &fakeTypeRepo{nextID: 1, types: make(map[uint]*models.MembershipType)}
}

func (r *fakeTypeRepo) Create(ctx context.Context, t *models.MembershipType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = r.nextID
	r.nextID++
	cp := *t
	r.types[t.ID] = &cp
	return nil
}

func (r *fakeTypeRepo) GetByID(ctx context.Context, id uint) (*models.MembershipType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.types[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTypeRepo) GetBySlug(ctx context.Context, slug string) (*models.MembershipType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.types {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTypeRepo) Update(ctx context.Context, t *models.MembershipType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.types[t.ID] = &cp
	return nil
}

func (r *fakeTypeRepo) List(ctx context.Context, includeInactive bool) ([]*models.MembershipType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.MembershipType
	for _, t := range r.types {
		if includeInactive || t.IsActive {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ============================================================
// Event and announcement catalogs
// ============================================================

type fakeEventTypeRepo struct {
	mu     sync.Mutex
	nextID uint
	types  map[uint]*models.EventType
}

func newFakeEventTypeRepo() *fakeEventTypeRepo {
	return &fakeEventTypeRepo{nextID: 1, types: make(map[uint]*models.EventType)}
}

func (r *fakeEventTypeRepo) Create(ctx context.Context, t *models.EventType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = r.nextID
	r.nextID++
	cp := *t
	r.types[t.ID] = &cp
	return nil
}

func (r *fakeEventTypeRepo) GetByID(ctx context.Context, id uint) (*models.EventType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.types[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeEventTypeRepo) Update(ctx context.Context, t *models.EventType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.types[t.ID] = &cp
	return nil
}

func (r *fakeEventTypeRepo) List(ctx context.Context, includeInactive bool) ([]*models.EventType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.EventType
	for _, t := range r.types {
		if includeInactive || t.IsActive {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeAnnouncementTypeRepo struct {
	mu     sync.Mutex
	nextID uint
	types  map[uint]*models.AnnouncementType
}

func newFakeAnnouncementTypeRepo() *fakeAnnouncementTypeRepo {
	return &fakeAnnouncementTypeRepo{nextID: 1, types: make(map[uint]*models.AnnouncementType)}
}

func (r *fakeAnnouncementTypeRepo) Create(ctx context.Context, t *models.AnnouncementType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = r.nextID
	r.nextID++
	cp := *t
	r.types[t.ID] = &cp
	return nil
}

func (r *fakeAnnouncementTypeRepo) GetByID(ctx context.Context, id uint) (*models.AnnouncementType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.types[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeAnnouncementTypeRepo) Update(ctx context.Context, t *models.AnnouncementType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.types[t.ID] = &cp
	return nil
}

func (r *fakeAnnouncementTypeRepo) List(ctx context.Context, includeInactive bool) ([]*models.AnnouncementType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AnnouncementType
	for _, t := range r.types {
		if includeInactive || t.IsActive {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ============================================================
// Events and announcements
// ============================================================

type fakeEventRepo struct {
	mu     sync.Mutex
	nextID uint
	events map[uint]*models.Event
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{nextID: 1, events: make(map[uint]*models.Event)}
}

func (r *fakeEventRepo) Create(ctx context.Context, event *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.ID = r.nextID
	r.nextID++
	cp := *event
	r.events[event.ID] = &cp
	return nil
}

func (r *fakeEventRepo) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *fakeEventRepo) Update(ctx context.Context, event *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *event
	r.events[event.ID] = &cp
	return nil
}

func (r *fakeEventRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.events, id)
	return nil
}

func (r *fakeEventRepo) List(ctx context.Context, from *time.Time, offset, limit int) ([]*models.Event, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Event
	for _, e := range r.events {
		if from != nil && e.StartsAt.Before(*from) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

type fakeAnnouncementRepo struct {
	mu            sync.Mutex
	nextID        uint
	announcements map[uint]*models.Announcement
}

func newFakeAnnouncementRepo() *fakeAnnouncementRepo {
	return &fakeAnnouncementRepo{nextID: 1, announcements: make(map[uint]*models.Announcement)}
}

func (r *fakeAnnouncementRepo) Create(ctx context.Context, a *models.Announcement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = r.nextID
	r.nextID++
	cp := *a
	r.announcements[a.ID] = &cp
	return nil
}

func (r *fakeAnnouncementRepo) GetByID(ctx context.Context, id uint) (*models.Announcement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.announcements[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAnnouncementRepo) Update(ctx context.Context, a *models.Announcement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.announcements[a.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *a
	r.announcements[a.ID] = &cp
	return nil
}

func (r *fakeAnnouncementRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.announcements, id)
	return nil
}

func (r *fakeAnnouncementRepo) List(ctx context.Context, publishedOnly bool, offset, limit int) ([]*models.Announcement, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var out []*models.Announcement
	for _, a := range r.announcements {
		if publishedOnly && !a.IsPublished(now) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

// ============================================================
// Settings
// ============================================================

type fakeSettingsRepo struct {
	mu       sync.Mutex
	settings map[string]*models.AppSetting
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{settings: make(map[string]*models.AppSetting)}
}

func (r *fakeSettingsRepo) set(key, value, valueType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[key] = &models.AppSetting{Key: key, Value: value, ValueType: valueType}
}

func (r *fakeSettingsRepo) Get(ctx context.Context, key string) (*models.AppSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.settings[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSettingsRepo) GetByCategory(ctx context.Context, category string) ([]*models.AppSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AppSetting
	for _, s := range r.settings {
		if s.Category == category {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeSettingsRepo) List(ctx context.Context) ([]*models.AppSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AppSetting
	for _, s := range r.settings {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeSettingsRepo) Upsert(ctx context.Context, setting *models.AppSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *setting
	r.settings[setting.Key] = &cp
	return nil
}

func (r *fakeSettingsRepo) WithTx(tx *gorm.DB) repositories.SettingsRepository { return r }
