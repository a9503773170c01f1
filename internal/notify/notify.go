// Package notify delivers account email notifications. The core flows
// only decide when to trigger a notification and which token to embed;
// delivery is best-effort, never awaited for correctness, and never
// retried.
package notify

import (
	"context"

	"github.com/backlogmedia/backlog/internal/storage"
)

// Notifier is the outbound notification collaborator.
type Notifier interface {
	// AccountCreated sends the welcome message carrying the
	// confirm-account token.
	AccountCreated(ctx context.Context, user *storage.User, confirmToken *storage.Token) error

	// PasswordResetRequested sends the reset message carrying the
	// reset-password token.
	PasswordResetRequested(ctx context.Context, user *storage.User, resetToken *storage.Token) error

	// PasswordChanged informs the user their password was changed.
	PasswordChanged(ctx context.Context, user *storage.User) error
}
