// Package account orchestrates login, account creation, and password
// reset on top of the token manager, and triggers (but never awaits)
// email notification.
package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/backlogmedia/backlog/internal/metrics"
	"github.com/backlogmedia/backlog/internal/notify"
	"github.com/backlogmedia/backlog/internal/storage"
	"github.com/backlogmedia/backlog/internal/token"
)

// ErrDenied is the collapsed refusal for login and reset flows. A
// missing user and a wrong password are indistinguishable by design.
var ErrDenied = errors.New("account: denied")

// notifyTimeout bounds a single fire-and-forget notification attempt.
const notifyTimeout = 15 * time.Second

// Store is the persistence surface the account flows need.
type Store interface {
	CreateUser(ctx context.Context, u *storage.User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*storage.User, error)
	UpdatePasswordHash(ctx context.Context, userID int64, hash string) error
	SetVerified(ctx context.Context, userID int64) error
}

// TTLs are the token lifetimes the flows use. Zero values fall back to
// the token package defaults.
type TTLs struct {
	Session time.Duration
	Confirm time.Duration
	Reset   time.Duration
}

func (t TTLs) withDefaults() TTLs {
	if t.Session <= 0 {
		t.Session = token.DefaultTTL
	}
	if t.Confirm <= 0 {
		t.Confirm = token.ConfirmAccountTTL
	}
	if t.Reset <= 0 {
		t.Reset = token.ResetPasswordTTL
	}
	return t
}

// Service implements the session and password flows.
type Service struct {
	store    Store
	tokens   *token.Manager
	notifier notify.Notifier
	logger   *slog.Logger
	ttls     TTLs
}

// NewService creates an account Service.
func NewService(store Store, tokens *token.Manager, notifier notify.Notifier, logger *slog.Logger, ttls TTLs) *Service {
	return &Service{store: store, tokens: tokens, notifier: notifier, logger: logger, ttls: ttls.withDefaults()}
}

// CreateAccount hashes the password, creates the user record, triggers
// the welcome notification carrying a confirm-account token, and
// returns a fresh session token bound to the caller's fingerprint.
// Returns storage.ErrDuplicate if the email is already registered.
func (s *Service) CreateAccount(ctx context.Context, name storage.PersonName, email, password string, fp *storage.Fingerprint) (*storage.Token, error) {
	hash, err := storage.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &storage.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
	}
	if _, err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	confirmToken, err := s.tokens.Issue(ctx, email, token.IssueOptions{
		Type: storage.TokenTypeConfirmAccount,
		TTL:  s.ttls.Confirm,
	})
	if err != nil {
		return nil, err
	}

	s.dispatch("account created", func(nctx context.Context) error {
		return s.notifier.AccountCreated(nctx, user, confirmToken)
	})

	return s.tokens.Issue(ctx, email, token.IssueOptions{TTL: s.ttls.Session, Fingerprint: fp})
}

// Login checks the presented password against the stored hash and
// issues a session token on match. Returns ErrDenied on mismatch or
// missing user without revealing which.
func (s *Service) Login(ctx context.Context, email, password string, fp *storage.Fingerprint) (*storage.Token, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			metrics.RecordAuthFailure("bad_credentials")
			return nil, ErrDenied
		}
		return nil, err
	}

	if err := storage.VerifyPassword(password, user.PasswordHash); err != nil {
		metrics.RecordAuthFailure("bad_credentials")
		return nil, ErrDenied
	}

	return s.tokens.Issue(ctx, email, token.IssueOptions{TTL: s.ttls.Session, Fingerprint: fp})
}

// Logout invalidates a session token. Idempotent: an unknown or
// already-invalid token is a no-op, not an error.
func (s *Service) Logout(ctx context.Context, secret string) error {
	_, err := s.tokens.Invalidate(ctx, secret)
	return err
}

// Verify resolves a token to its owning user.
// Returns (nil, nil) when the token is unknown, invalidated, or
// expired.
func (s *Service) Verify(ctx context.Context, secret string) (*storage.User, *storage.Token, error) {
	return s.tokens.Verify(ctx, secret)
}

// ConfirmAccount marks the owning account verified if the secret is a
// valid confirm-account token, and invalidates the token (one-time
// use). Returns ErrDenied otherwise.
func (s *Service) ConfirmAccount(ctx context.Context, secret string) error {
	user, _, err := s.tokens.VerifyOfType(ctx, secret, storage.TokenTypeConfirmAccount)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrDenied
	}

	if err := s.store.SetVerified(ctx, user.ID); err != nil {
		return err
	}

	if _, err := s.tokens.Invalidate(ctx, secret); err != nil {
		return err
	}
	return nil
}

// RequestPasswordReset issues a reset-password token and triggers the
// reset notification when a user exists for the email; otherwise it
// does nothing. The caller-visible outcome is identical either way, so
// the endpoint cannot be used to enumerate accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}

	resetToken, err := s.tokens.Issue(ctx, email, token.IssueOptions{
		Type: storage.TokenTypeResetPassword,
		TTL:  s.ttls.Reset,
	})
	if err != nil {
		return err
	}

	s.dispatch("password reset requested", func(nctx context.Context) error {
		return s.notifier.PasswordResetRequested(nctx, user, resetToken)
	})
	return nil
}

// ResetPassword completes a reset: a valid reset-password token buys a
// new password hash, a fresh session token, a password-changed
// notification, and the one-time invalidation of the reset token.
// Returns ErrDenied if the token is not a currently valid
// reset-password token.
func (s *Service) ResetPassword(ctx context.Context, resetSecret, newPassword string) (*storage.Token, error) {
	user, _, err := s.tokens.VerifyOfType(ctx, resetSecret, storage.TokenTypeResetPassword)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrDenied
	}

	hash, err := storage.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return nil, err
	}

	newToken, err := s.tokens.Issue(ctx, user.Email, token.IssueOptions{TTL: s.ttls.Session})
	if err != nil {
		return nil, err
	}

	s.dispatch("password changed", func(nctx context.Context) error {
		return s.notifier.PasswordChanged(nctx, user)
	})

	// One-time use. Invalidation must be observed by the next reset
	// attempt, so it happens before the new token is returned.
	if _, err := s.tokens.Invalidate(ctx, resetSecret); err != nil {
		s.logger.Error("failed to invalidate reset token", "error", err)
	}

	return newToken, nil
}

// dispatch runs a notification attempt in the background. Delivery is
// best-effort: failures are logged and never fail the enclosing flow,
// and the response never waits on it.
func (s *Service) dispatch(name string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.logger.Warn("notification delivery failed", "notification", name, "error", err)
		}
	}()
}
