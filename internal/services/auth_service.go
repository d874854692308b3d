package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/casanoova/compass/internal/models"
)

type AuthStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	AddUser(ctx context.Context, u *models.User) error
}

// TokenPurpose separates session tokens from one-shot login links so neither
// can stand in for the other.
type TokenPurpose string

const (
	PurposeSession   TokenPurpose = "session"
	PurposeMagicLink TokenPurpose = "magic_link"
)

// TokenIssuer signs and verifies caller tokens.
type TokenIssuer interface {
	Issue(c Caller, purpose TokenPurpose, ttl time.Duration) (string, error)
	Parse(token string, purpose TokenPurpose) (Caller, error)
}

type AuthService struct {
	store      AuthStore
	tokens     TokenIssuer
	notifier   Notifier
	now        func() time.Time
	idGen      func(prefix string, n int) string
	sessionTTL time.Duration
	magicTTL   time.Duration
}

type AuthResult struct {
	Token     string      `json:"token"`
	UserID    string      `json:"user_id"`
	Role      models.Role `json:"role"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func NewAuthService(store AuthStore, tokens TokenIssuer, notifier Notifier) *AuthService {
	return &AuthService{
		store:      store,
		tokens:     tokens,
		notifier:   notifierOrNop(notifier),
		now:        func() time.Time { return time.Now().UTC() },
		idGen:      func(prefix string, n int) string { return prefix + shortID(n) },
		sessionTTL: 7 * 24 * time.Hour,
		magicTTL:   15 * time.Minute,
	}
}

// WithTTLs overrides the session and magic-link lifetimes; zero keeps the default.
func (s *AuthService) WithTTLs(session, magic time.Duration) *AuthService {
	if session > 0 {
		s.sessionTTL = session
	}
	if magic > 0 {
		s.magicTTL = magic
	}
	return s
}

func (s *AuthService) SessionTTL() time.Duration { return s.sessionTTL }

func (s *AuthService) session(u *models.User) (*AuthResult, error) {
	if s.tokens == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	token, err := s.tokens.Issue(Caller{UserID: u.ID, Email: u.Email, Role: u.Role}, PurposeSession, s.sessionTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, UserID: u.ID, Role: u.Role, ExpiresAt: s.now().Add(s.sessionTTL)}, nil
}

// Login checks a password. Only accounts with a password (admins) can use it.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, NewInvalidError("email/password required")
	}
	u, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || len(u.PassHash) == 0 {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(u.PassHash, []byte(password)); err != nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	return s.session(u)
}

// RequestMagicLink emails a short-lived login link. Unknown addresses get
// the same answer and no email.
func (s *AuthService) RequestMagicLink(ctx context.Context, email, redirect, locale string) error {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return NewInvalidError("invalid email")
	}
	if redirect != "" && (!strings.HasPrefix(redirect, "/") || strings.HasPrefix(redirect, "//")) {
		return NewInvalidError("redirect must be a relative path")
	}
	u, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u == nil {
		slog.Default().InfoContext(ctx, "magic link for unknown email", "module", "auth", "operation", "magic_link", "outcome", "ignored")
		return nil
	}
	if s.tokens == nil {
		return NewInvalidError("token signer not configured")
	}
	token, err := s.tokens.Issue(Caller{UserID: u.ID, Email: u.Email, Role: u.Role}, PurposeMagicLink, s.magicTTL)
	if err != nil {
		return err
	}
	if locale == "" {
		locale = u.Locale
	}
	return s.notifier.MagicLink(ctx, u.Email, token, redirect, locale)
}

// VerifyMagicLink trades a magic-link token for a session.
func (s *AuthService) VerifyMagicLink(ctx context.Context, token string) (*AuthResult, error) {
	if s.tokens == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	c, err := s.tokens.Parse(token, PurposeMagicLink)
	if err != nil {
		return nil, NewUnauthorizedError("invalid or expired link")
	}
	u, err := s.store.GetUser(ctx, c.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewUnauthorizedError("invalid or expired link")
	}
	return s.session(u)
}

// CreateAdmin bootstraps an administrator account with a password.
func (s *AuthService) CreateAdmin(ctx context.Context, email, name, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, NewInvalidError("invalid email")
	}
	if len(password) < 8 {
		return nil, NewInvalidError("password must be at least 8 characters")
	}
	existing, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewConflictError("email exists")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		ID:        s.idGen("u", 10),
		Email:     email,
		Name:      strings.TrimSpace(name),
		PassHash:  hash,
		Role:      models.RoleAdmin,
		Locale:    BaseLanguage,
		CreatedAt: s.now(),
	}
	if err := s.store.AddUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
