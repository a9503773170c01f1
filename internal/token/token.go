// Package token implements the token lifecycle: issuance, verification,
// and invalidation of the bearer secrets that prove login sessions,
// account confirmations, password resets, and single-asset content
// access.
//
// Tokens are capability-bearing secrets, not signed stateless
// credentials: every verification is a storage lookup. That trades the
// performance of a stateless JWT for instant server-side revocation,
// which content-access tokens need mid-session.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/backlogmedia/backlog/internal/metrics"
	"github.com/backlogmedia/backlog/internal/storage"
)

// Default lifetimes per token type. Callers pass shorter TTLs for the
// sensitive flows.
const (
	DefaultTTL        = 7 * 24 * time.Hour
	ConfirmAccountTTL = 21 * 24 * time.Hour
	ResetPasswordTTL  = 15 * time.Minute
)

// secretBytes is the entropy of a bearer secret. 32 bytes is 256 bits,
// well past the point where collisions or guessing matter.
const secretBytes = 32

// ErrUserNotFound is returned by Issue when no user matches the email.
var ErrUserNotFound = errors.New("token: user not found")

// Store is the persistence surface the manager needs.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (*storage.User, error)
	AppendToken(ctx context.Context, userID int64, t *storage.Token) (int64, error)
	FindUserByToken(ctx context.Context, q storage.TokenQuery) (*storage.User, *storage.Token, error)
	InvalidateToken(ctx context.Context, secret string, now time.Time) (bool, error)
}

// Manager mints, verifies, and invalidates tokens against storage.
type Manager struct {
	store Store
	now   func() time.Time
}

// NewManager creates a Manager backed by the given store.
func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// NewManagerAt creates a Manager with an injected clock, for tests.
func NewManagerAt(store Store, now func() time.Time) *Manager {
	return &Manager{store: store, now: now}
}

// NewSecret generates a cryptographically random bearer secret,
// hex-encoded.
func NewSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// IssueOptions control what kind of token Issue mints. Zero values mean
// a normal session token with the default TTL, no fingerprint, and no
// scope.
type IssueOptions struct {
	Type        string
	TTL         time.Duration
	Fingerprint *storage.Fingerprint
	Scope       string
}

// Issue mints a new token for the user identified by email and appends
// it to that user's token list. Returns ErrUserNotFound if no user
// matches the email; the surrounding flow decides whether that fact may
// leak to the caller.
func (m *Manager) Issue(ctx context.Context, email string, opts IssueOptions) (*storage.Token, error) {
	if opts.Type == "" {
		opts.Type = storage.TokenTypeNormal
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}

	user, err := m.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	secret, err := NewSecret()
	if err != nil {
		return nil, err
	}

	t := &storage.Token{
		Secret:      secret,
		Type:        opts.Type,
		Expires:     m.now().Add(opts.TTL).UTC(),
		Fingerprint: opts.Fingerprint,
		Scope:       opts.Scope,
	}

	if _, err := m.store.AppendToken(ctx, user.ID, t); err != nil {
		return nil, err
	}

	metrics.RecordTokenIssued(opts.Type)
	return t, nil
}

// Verify looks up the user owning a currently valid token with this
// secret. A failed match (unknown, invalidated, or expired secret)
// returns (nil, nil, nil) - it is an expected outcome, not a fault.
// Identity comes solely from the storage match; the secret is never
// decoded.
func (m *Manager) Verify(ctx context.Context, secret string) (*storage.User, *storage.Token, error) {
	return m.verify(ctx, storage.TokenQuery{Secret: secret, Now: m.now()})
}

// VerifyOfType is Verify narrowed to one token type. Used by the
// confirm-account and reset-password flows, where only a token of the
// matching type is acceptable proof.
func (m *Manager) VerifyOfType(ctx context.Context, secret, tokenType string) (*storage.User, *storage.Token, error) {
	return m.verify(ctx, storage.TokenQuery{Secret: secret, Type: tokenType, Now: m.now()})
}

func (m *Manager) verify(ctx context.Context, q storage.TokenQuery) (*storage.User, *storage.Token, error) {
	if q.Secret == "" {
		return nil, nil, nil
	}
	user, tok, err := m.store.FindUserByToken(ctx, q)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return user, tok, nil
}

// Invalidate flips a token to the invalidated state. Idempotent:
// invalidating an unknown, expired, or already-invalidated secret
// returns false with no error. The flip is a single atomic conditional
// update addressed by the unique secret, so racing verifies and
// invalidates on the same token are safe.
func (m *Manager) Invalidate(ctx context.Context, secret string) (bool, error) {
	if secret == "" {
		return false, nil
	}
	return m.store.InvalidateToken(ctx, secret, m.now())
}
