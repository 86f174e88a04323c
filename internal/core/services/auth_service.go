package services

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"clubdesk/internal/adapters/persistence/models"
	"clubdesk/internal/adapters/persistence/repositories"
	"clubdesk/internal/config"
	"clubdesk/internal/core/domain"
	"clubdesk/internal/pkg/password"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// decoyHash is verified on login attempts for unknown emails so they
// cost the same as a wrong password.
var decoyHash = func() string {
	h, _ := password.Hash(uuid.New().String())
	return h
}()

// AuthService handles signup, login and the opaque session lifecycle.
// Raw session and CSRF tokens exist only in transit; storage holds
// their SHA-256 digests, so a database leak reveals no usable token.
type AuthService struct {
	memberRepo   repositories.MemberRepository
	sessionRepo  repositories.SessionRepository
	csrfRepo     repositories.CsrfTokenRepository
	typeRepo     repositories.MembershipTypeRepository
	settingsRepo repositories.SettingsRepository
	auditRepo    repositories.AuditRepository
	membership   *MembershipService
	tx           repositories.TxRunner
	cfg          *config.Config
}

// NewAuthService creates a new auth service
func NewAuthService(
	memberRepo repositories.MemberRepository,
	sessionRepo repositories.SessionRepository,
	csrfRepo repositories.CsrfTokenRepository,
	typeRepo repositories.MembershipTypeRepository,
	settingsRepo repositories.SettingsRepository,
	auditRepo repositories.AuditRepository,
	membership *MembershipService,
	tx repositories.TxRunner,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		memberRepo:   memberRepo,
		sessionRepo:  sessionRepo,
		csrfRepo:     csrfRepo,
		typeRepo:     typeRepo,
		settingsRepo: settingsRepo,
		auditRepo:    auditRepo,
		membership:   membership,
		tx:           tx,
		cfg:          cfg,
	}
}

// SignupInput carries the self-registration fields
type SignupInput struct {
	Email              string
	Username           string
	FullName           string
	Password           string
	MembershipTypeSlug string
}

// Signup registers a new member in Pending status. When the
// auto-approve policy is on and no payment is required up front, the
// member is approved immediately against the requested type.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*models.Member, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Username = strings.TrimSpace(input.Username)

	if input.Email == "" || input.Username == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := password.ValidatePassword(input.Password); err != nil {
		return nil, err
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

	var membershipType *models.MembershipType
	if input.MembershipTypeSlug != "" {
		mt, err := s.typeRepo.GetBySlug(ctx, input.MembershipTypeSlug)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domain.ErrInvalidInput
			}
			return nil, err
		}
		if !mt.IsActive {
			return nil, domain.ErrInvalidInput
		}
		membershipType = mt
	}

	hash, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	member := &models.Member{
		Email:        input.Email,
		Username:     input.Username,
		FullName:     strings.TrimSpace(input.FullName),
		PasswordHash: hash,
		Role:         models.RoleMember,
		Status:       models.StatusPending,
	}
	if membershipType != nil {
		member.MembershipTypeID = &membershipType.ID
	}

	err = s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		if err := s.memberRepo.WithTx(tx).Create(ctx, member); err != nil {
			return err
		}
		return s.auditRepo.WithTx(tx).Record(ctx, &models.AuditRecord{
			ActorID:    &member.ID,
			Action:     models.AuditSignup,
			EntityType: models.EntityMember,
			EntityID:   member.ID,
			After:      snapshotStanding(member),
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Member signed up: %s (%s)", member.Username, member.Email)

	if membershipType != nil && s.autoApproveEnabled(ctx) {
		approved, err := s.membership.Approve(ctx, SystemActor, member.ID, membershipType.ID)
		if err != nil {
			log.Printf("⚠️ Auto-approve failed for %s: %v", member.Username, err)
			return member, nil
		}
		return approved, nil
	}

	return member, nil
}

// autoApproveEnabled reports whether signups skip the review queue
func (s *AuthService) autoApproveEnabled(ctx context.Context) bool {
	setting, err := s.settingsRepo.Get(ctx, config.SettingAutoApprove)
	if err != nil {
		return false
	}
	autoApprove, _ := strconv.ParseBool(setting.Value)
	if !autoApprove {
		return false
	}

	if setting, err := s.settingsRepo.Get(ctx, config.SettingRequirePayment); err == nil {
		if required, _ := strconv.ParseBool(setting.Value); required {
			return false
		}
	}
	return true
}

// LoginResult carries the session material handed back on login. The
// raw tokens are returned exactly once and never stored.
type LoginResult struct {
	Member       *models.Member
	SessionID    string
	SessionToken string
	CsrfToken    string
	ExpiresAt    time.Time
}

// Login verifies credentials and mints a new session with a fresh
// CSRF token. Any standing may log in; access gates run per request.
func (s *AuthService) Login(ctx context.Context, email, pw, ip string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	member, err := s.memberRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Burn a verification against a throwaway hash so unknown
			// emails take as long as wrong passwords
			_, _ = password.Verify(pw, decoyHash)
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}

	ok, err := password.Verify(pw, member.PasswordHash)
	if err != nil {
		// A hash that fails to parse is an operator problem, not a
		// credential problem. Surface it instead of masking as 401.
		log.Printf("❌ Unreadable password hash for member %d: %v", member.ID, err)
		return nil, err
	}
	if !ok {
		return nil, domain.ErrUnauthenticated
	}

	rawToken, err := password.GenerateToken()
	if err != nil {
		return nil, err
	}
	rawCsrf, err := password.GenerateToken()
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:         uuid.New().String(),
		MemberID:   member.ID,
		TokenHash:  password.HashToken(rawToken),
		ExpiresAt:  time.Now().Add(time.Duration(s.cfg.Session.TTLHours) * time.Hour),
		LastUsedAt: time.Now(),
	}

	err = s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		if err := s.sessionRepo.WithTx(tx).Create(ctx, session); err != nil {
			return err
		}
		return s.csrfRepo.WithTx(tx).Upsert(ctx, &models.CsrfToken{
			SessionID: session.ID,
			TokenHash: password.HashToken(rawCsrf),
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Login: %s (session %s)", member.Username, session.ID)

	return &LoginResult{
		Member:       member,
		SessionID:    session.ID,
		SessionToken: rawToken,
		CsrfToken:    rawCsrf,
		ExpiresAt:    session.ExpiresAt,
	}, nil
}

// ValidateSession resolves a raw session token to a live member.
// Expired or unknown tokens fail identically.
func (s *AuthService) ValidateSession(ctx context.Context, rawToken string) (*models.Member, *models.Session, error) {
	if rawToken == "" {
		return nil, nil, domain.ErrUnauthenticated
	}

	session, err := s.sessionRepo.GetByTokenHash(ctx, password.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrUnauthenticated
		}
		return nil, nil, err
	}
	if session.IsExpired(time.Now()) {
		return nil, nil, domain.ErrUnauthenticated
	}

	member, err := s.memberRepo.GetByID(ctx, session.MemberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrUnauthenticated
		}
		return nil, nil, err
	}

	if err := s.sessionRepo.Touch(ctx, session.ID, time.Now()); err != nil {
		log.Printf("⚠️ Failed to touch session %s: %v", session.ID, err)
	}

	return member, session, nil
}

// ValidateCsrf checks the presented CSRF token against the one bound
// to the session. Comparison runs on digests in constant time.
func (s *AuthService) ValidateCsrf(ctx context.Context, sessionID, presented string) error {
	if presented == "" {
		return domain.ErrForbidden
	}

	stored, err := s.csrfRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrForbidden
		}
		return err
	}

	if !password.CompareTokenHash(presented, stored.TokenHash) {
		return domain.ErrForbidden
	}
	return nil
}

// RotateCsrf issues a replacement CSRF token for the session
func (s *AuthService) RotateCsrf(ctx context.Context, sessionID string) (string, error) {
	raw, err := password.GenerateToken()
	if err != nil {
		return "", err
	}
	err = s.csrfRepo.Upsert(ctx, &models.CsrfToken{
		SessionID: sessionID,
		TokenHash: password.HashToken(raw),
	})
	if err != nil {
		return "", err
	}
	return raw, nil
}

// Logout revokes the session behind the raw token. Revoking an
// already-dead session is a no-op.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}

	session, err := s.sessionRepo.GetByTokenHash(ctx, password.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	return s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		if err := s.csrfRepo.WithTx(tx).Delete(ctx, session.ID); err != nil {
			return err
		}
		return s.sessionRepo.WithTx(tx).Delete(ctx, session.ID)
	})
}

// LogoutAll revokes every session the member holds
func (s *AuthService) LogoutAll(ctx context.Context, memberID uint) error {
	revoked, err := s.sessionRepo.DeleteByMember(ctx, memberID)
	if err != nil {
		return err
	}
	// Sessions cascade to CSRF rows; clean up any stragglers too
	if _, err := s.csrfRepo.DeleteOrphaned(ctx); err != nil {
		log.Printf("⚠️ Orphaned CSRF cleanup failed: %v", err)
	}
	if revoked > 0 {
		log.Printf("🗑️ Revoked %d sessions for member %d", revoked, memberID)
	}
	return nil
}

// ChangePassword verifies the current password, stores a new hash and
// revokes every existing session for the member.
func (s *AuthService) ChangePassword(ctx context.Context, actor Actor, memberID uint, currentPw, newPw string) error {
	if err := password.ValidatePassword(newPw); err != nil {
		return err
	}

	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrMemberNotFound
		}
		return err
	}

	ok, err := password.Verify(currentPw, member.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUnauthenticated
	}

	hash, err := password.Hash(newPw)
	if err != nil {
		return err
	}

	err = s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		member.PasswordHash = hash
		if err := s.memberRepo.WithTx(tx).Update(ctx, member); err != nil {
			return err
		}
		// Hashes never land in the audit trail
		return s.auditRepo.WithTx(tx).Record(ctx, &models.AuditRecord{
			ActorID:    actor.ID,
			Action:     models.AuditPasswordChange,
			EntityType: models.EntityMember,
			EntityID:   member.ID,
			IPAddress:  actor.IP,
		})
	})
	if err != nil {
		return err
	}

	if err := s.LogoutAll(ctx, member.ID); err != nil {
		log.Printf("⚠️ Session revocation after password change failed for member %d: %v", member.ID, err)
	}

	log.Printf("✅ Password changed for member %s", member.Username)
	return nil
}

// SweepSessions removes expired sessions and any CSRF tokens left
// without a session
func (s *AuthService) SweepSessions(ctx context.Context, now time.Time) (int64, error) {
	removed, err := s.sessionRepo.DeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if _, err := s.csrfRepo.DeleteOrphaned(ctx); err != nil {
		return removed, err
	}
	if removed > 0 {
		log.Printf("🗑️ Swept %d expired sessions", removed)
	}
	return removed, nil
}
