package token

import (
	"time"

	"github.com/backlogmedia/backlog/internal/storage"
)

// Wire is the serialized form of a token returned to callers. The
// secret itself is the bearer credential; callers must treat it as
// password-equivalent. The fingerprint is never serialized back.
type Wire struct {
	Invalidated bool      `json:"invalidated"`
	Expires     time.Time `json:"expires"`
	Token       string    `json:"token"`
	Type        string    `json:"type"`
	Scope       string    `json:"scope,omitempty"`
}

// ToWire converts a stored token to its wire shape.
func ToWire(t *storage.Token) Wire {
	return Wire{
		Invalidated: t.Invalidated,
		Expires:     t.Expires,
		Token:       t.Secret,
		Type:        t.Type,
		Scope:       t.Scope,
	}
}
