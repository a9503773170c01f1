package notify

import (
	"context"
	"log/slog"

	"github.com/backlogmedia/backlog/internal/logging"
	"github.com/backlogmedia/backlog/internal/storage"
)

// LogNotifier records notifications to the log instead of sending
// email. Used when no SMTP relay is configured. Token secrets are
// masked; the log is not a delivery channel.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// AccountCreated logs the welcome notification.
func (n *LogNotifier) AccountCreated(ctx context.Context, user *storage.User, confirmToken *storage.Token) error {
	n.logger.Info("notification: account created",
		"email", user.Email,
		"token", logging.MaskSecret(confirmToken.Secret),
		"expires", confirmToken.Expires,
	)
	return nil
}

// PasswordResetRequested logs the reset notification.
func (n *LogNotifier) PasswordResetRequested(ctx context.Context, user *storage.User, resetToken *storage.Token) error {
	n.logger.Info("notification: password reset requested",
		"email", user.Email,
		"token", logging.MaskSecret(resetToken.Secret),
		"expires", resetToken.Expires,
	)
	return nil
}

// PasswordChanged logs the password changed notification.
func (n *LogNotifier) PasswordChanged(ctx context.Context, user *storage.User) error {
	n.logger.Info("notification: password changed", "email", user.Email)
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
