// Package gateway implements the two-phase edge-authorization protocol
// that lets a reverse proxy gate static media delivery without
// embedding session logic.
//
// Phase 1 exchanges a valid session token for a content-access token
// scoped to exactly one asset; it runs once per playback session and
// can afford full permission resolution. Phase 2 verifies that content
// token on every byte-range request the proxy serves; it is a single
// indexed storage lookup and never consults the permission resolver
// again - the content token is the capability.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/backlogmedia/backlog/internal/access"
	"github.com/backlogmedia/backlog/internal/metrics"
	"github.com/backlogmedia/backlog/internal/storage"
	"github.com/backlogmedia/backlog/internal/token"
)

// ErrDenied is returned when a content token request is refused. An
// invalid session and a missing permission collapse into the same
// outcome so callers cannot tell which guard failed.
var ErrDenied = errors.New("gateway: denied")

// Store is the persistence surface of the phase 2 hot path.
type Store interface {
	CheckContentToken(ctx context.Context, secret, assetID string, now time.Time) (bool, error)
}

// Service implements both phases of the protocol.
type Service struct {
	tokens   *token.Manager
	resolver *access.Resolver
	store    Store
	ttl      time.Duration
	now      func() time.Time
}

// NewService creates a gateway Service. ttl overrides the lifetime of
// issued content tokens; zero means the token manager's default.
func NewService(tokens *token.Manager, resolver *access.Resolver, store Store, ttl time.Duration) *Service {
	return &Service{
		tokens:   tokens,
		resolver: resolver,
		store:    store,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Request is phase 1: verify the session token, resolve permission on
// the asset, and mint a content-access token bound to it. Returns
// ErrDenied for any expected refusal - bad session and missing
// permission are indistinguishable by design.
func (s *Service) Request(ctx context.Context, sessionSecret, assetID string) (*storage.Token, error) {
	if sessionSecret == "" || assetID == "" {
		return nil, ErrDenied
	}

	user, _, err := s.tokens.Verify(ctx, sessionSecret)
	if err != nil {
		return nil, err
	}
	if user == nil {
		metrics.RecordAuthFailure("invalid_token")
		return nil, ErrDenied
	}

	allowed, err := s.resolver.HasAccess(ctx, user.ID, assetID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		metrics.RecordAuthFailure("permission_denied")
		return nil, ErrDenied
	}

	return s.tokens.Issue(ctx, user.Email, token.IssueOptions{
		Type:  storage.TokenTypeContentAccess,
		TTL:   s.ttl,
		Scope: assetID,
	})
}

// Check is phase 2: a single indexed lookup for a valid content-access
// token whose scope equals the asset exactly. No session token, no
// permission resolution.
func (s *Service) Check(ctx context.Context, contentSecret, assetID string) (bool, error) {
	if contentSecret == "" || assetID == "" {
		metrics.RecordContentCheck("deny")
		return false, nil
	}

	allowed, err := s.store.CheckContentToken(ctx, contentSecret, assetID, s.now())
	if err != nil {
		return false, err
	}

	if allowed {
		metrics.RecordContentCheck("allow")
	} else {
		metrics.RecordContentCheck("deny")
	}
	return allowed, nil
}
