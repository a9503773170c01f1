package storage

import "time"

// Token types issued by the service.
const (
	TokenTypeNormal         = "normal"
	TokenTypeConfirmAccount = "confirm-account"
	TokenTypeResetPassword  = "reset-password"
	TokenTypeContentAccess  = "content-access"
)

// PersonName is the structured name recorded on a user account. It is
// serialized as-is in the identity projection.
type PersonName struct {
	First  string `json:"first"`
	Last   string `json:"last"`
	Middle string `json:"middle,omitempty"`
	Title  string `json:"title,omitempty"`
	Suffix string `json:"suffix,omitempty"`
}

// UserFlags are the account-level permission flags.
type UserFlags struct {
	Verified bool `json:"verified"`
	Admin    bool `json:"admin"`
	Paid     bool `json:"paid"`
}

// User represents a user account with its credential material and
// permission grants. The token list lives in the tokens table and is
// loaded separately; it is append-only and entries are never removed.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         PersonName
	Flags        UserFlags
	Media        []string // directly granted media IDs
	Collections  []string // collection IDs the user belongs to
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Fingerprint is advisory client metadata captured when a token is
// issued. It is stored for auditing and is not checked at verification
// time.
type Fingerprint struct {
	UserAgent string
	IP        string
	IssuedAt  time.Time
}

// Token represents one entry in a user's token list. The Secret is the
// bearer credential and must never be logged. Invalidated only ever
// transitions false to true; expired or invalidated entries are kept as
// an audit trail.
type Token struct {
	ID            int64
	UserID        int64
	Secret        string
	Type          string
	Invalidated   bool
	InvalidatedAt *time.Time
	Expires       time.Time
	Fingerprint   *Fingerprint
	Scope         string // asset ID for content-access tokens, otherwise empty
	CreatedAt     time.Time
}

// MediaGroup is a named collection of media IDs plus its member user IDs.
// Membership grants indirect access to every contained asset.
type MediaGroup struct {
	ID        string
	Title     string
	Contents  []string // media IDs
	Members   []int64  // user IDs
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MediaItem is one entry in the media catalog.
type MediaItem struct {
	ID        string
	Title     string
	Kind      string // "audio" or "video"
	URI       string
	CreatedAt time.Time
	UpdatedAt time.Time
}
