package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"libraquant/internal/auth"
	"libraquant/internal/domain"
	"libraquant/internal/service"
	"libraquant/internal/utils"
)

// DefaultSessionTTL is how long a login stays valid
const DefaultSessionTTL = 6*time.Hour + 30*time.Minute

// DefaultAdminSuffix marks passwords that grant admin access
const DefaultAdminSuffix = "admin"

// TrustOptions configures a TrustManager
type TrustOptions struct {
	SessionTTL  time.Duration
	AdminSuffix string
	Clock       func() time.Time
}

// TrustManager authenticates logins against the remote user sheet, binds
// accounts to devices and owns the session record.
type TrustManager struct {
	users       domain.SnapshotSource
	store       *service.LocalStore
	tokens      *auth.TokenIssuer
	ttl         time.Duration
	adminSuffix string
	now         func() time.Time
}

// NewTrustManager creates a new TrustManager
func NewTrustManager(users domain.SnapshotSource, store *service.LocalStore, tokens *auth.TokenIssuer, opts TrustOptions) *TrustManager {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.AdminSuffix == "" {
		opts.AdminSuffix = DefaultAdminSuffix
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &TrustManager{
		users:       users,
		store:       store,
		tokens:      tokens,
		ttl:         opts.SessionTTL,
		adminSuffix: strings.ToLower(opts.AdminSuffix),
		now:         opts.Clock,
	}
}

// SessionTTL returns the configured session lifetime
func (m *TrustManager) SessionTTL() time.Duration {
	return m.ttl
}

// Login verifies credentials, enforces the device lock and persists a new session
func (m *TrustManager) Login(ctx context.Context, phone, password string) (*domain.Session, error) {
	phone = strings.TrimSpace(phone)
	if !validPhone(phone) || password == "" {
		return nil, domain.NewAuthError(domain.AuthInvalidInput, nil)
	}

	snap, err := m.users.FetchSnapshot(ctx)
	if err != nil {
		log.Printf("[WARN] Login for %s could not reach user sheet: %v", maskPhone(phone), err)
		return nil, domain.NewAuthError(domain.AuthServerUnavailable, err)
	}

	isAdmin := strings.HasSuffix(strings.ToLower(password), m.adminSuffix)
	record := domain.FindUserByPhone(snap.Users, phone)

	var user domain.User
	switch {
	case isAdmin:
		user = adminUser(phone, record)
	case record == nil:
		return nil, domain.NewAuthError(domain.AuthAccessDenied, nil)
	case !passwordMatches(record.Password, password):
		return nil, domain.NewAuthError(domain.AuthInvalidCredentials, nil)
	default:
		user = record.Public()
		if user.Name == "" {
			user.Name = "Premium Client"
		}
		if user.Expired(utils.GetMarketTime(m.now())) {
			return nil, domain.ErrSubscriptionExpired
		}
	}

	deviceID, err := m.store.DeviceID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read device id: %w", err)
	}
	bound, err := m.store.ClaimDevice(ctx, phone, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to check device binding: %w", err)
	}
	if bound != deviceID && !user.IsAdmin {
		log.Printf("[WARN] Login for %s refused: account bound to another device", maskPhone(phone))
		return nil, domain.NewAuthError(domain.AuthDeviceLocked, nil)
	}

	session, err := m.issue(user)
	if err != nil {
		return nil, err
	}
	if err := m.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	log.Printf("[OK] %s logged in (admin=%t)", maskPhone(phone), user.IsAdmin)
	return session, nil
}

// RestoreSession returns the persisted session if it is still inside its TTL.
// An expired session is purged.
func (m *TrustManager) RestoreSession(ctx context.Context) (*domain.Session, error) {
	session, err := m.store.LoadSession(ctx)
	if err != nil || session == nil {
		return nil, err
	}
	if !session.ValidAt(m.now(), m.ttl) {
		log.Println("[OK] Session expired, clearing it")
		if err := m.store.ClearSession(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear expired session: %w", err)
		}
		return nil, nil
	}
	return session, nil
}

// Logout discards the session record. Device bindings are kept.
func (m *TrustManager) Logout(ctx context.Context) error {
	if err := m.store.ClearSession(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// ValidateToken returns the active session if token belongs to it
func (m *TrustManager) ValidateToken(ctx context.Context, token string) (*domain.Session, error) {
	claims, err := m.tokens.Parse(token)
	if err != nil {
		return nil, domain.ErrNoSession
	}

	session, err := m.RestoreSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil || subtle.ConstantTimeCompare([]byte(session.Token), []byte(token)) != 1 {
		return nil, domain.ErrNoSession
	}
	if claims.Phone != session.User.PhoneNumber {
		return nil, domain.ErrNoSession
	}
	return session, nil
}

// DeviceID returns this origin's device identifier
func (m *TrustManager) DeviceID(ctx context.Context) (string, error) {
	return m.store.DeviceID(ctx)
}

// DeviceBinding returns the device bound to phone, or ""
func (m *TrustManager) DeviceBinding(ctx context.Context, phone string) (string, error) {
	return m.store.DeviceBinding(ctx, phone)
}

// ResetDeviceBinding releases phone so its next login claims a new device
func (m *TrustManager) ResetDeviceBinding(ctx context.Context, phone string) error {
	if !validPhone(phone) {
		return domain.NewAuthError(domain.AuthInvalidInput, errors.New("phone must be 10 digits"))
	}
	if err := m.store.ReleaseDevice(ctx, phone); err != nil {
		return fmt.Errorf("failed to reset device binding: %w", err)
	}
	log.Printf("[OK] Device binding reset for %s", maskPhone(phone))
	return nil
}

func (m *TrustManager) issue(user domain.User) (*domain.Session, error) {
	issuedAt := m.now()
	token, err := m.tokens.Issue(user, issuedAt, m.ttl)
	if err != nil {
		return nil, err
	}
	return &domain.Session{User: user, IssuedAt: issuedAt, Token: token}, nil
}

// adminUser builds the admin identity, keeping the sheet record if one exists
func adminUser(phone string, record *domain.User) domain.User {
	user := domain.User{
		ID:          "ADM-" + phone[len(phone)-4:],
		PhoneNumber: phone,
	}
	if record != nil {
		user = record.Public()
		if user.ID == "" {
			user.ID = "ADM-" + phone[len(phone)-4:]
		}
	}
	user.Name = "Administrator"
	user.IsAdmin = true
	return user
}

func passwordMatches(stored, supplied string) bool {
	if stored == "" {
		return false
	}
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

func validPhone(phone string) bool {
	if len(phone) != 10 {
		return false
	}
	for i := 0; i < len(phone); i++ {
		if phone[i] < '0' || phone[i] > '9' {
			return false
		}
	}
	return true
}

func maskPhone(phone string) string {
	if len(phone) < 4 {
		return "****"
	}
	return "******" + phone[len(phone)-4:]
}
