package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/backlogmedia/backlog/internal/storage"
)

// SMTPNotifier sends notifications through an SMTP relay.
type SMTPNotifier struct {
	addr      string // host:port
	from      string
	username  string
	password  string
	host      string
	publicURL string // base URL embedded in confirmation links
}

// NewSMTPNotifier creates an SMTPNotifier. If username is empty the
// connection is unauthenticated.
func NewSMTPNotifier(host string, port int, from, username, password, publicURL string) *SMTPNotifier {
	return &SMTPNotifier{
		addr:      fmt.Sprintf("%s:%d", host, port),
		from:      from,
		username:  username,
		password:  password,
		host:      host,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// AccountCreated sends the welcome message with the account
// confirmation link.
func (n *SMTPNotifier) AccountCreated(ctx context.Context, user *storage.User, confirmToken *storage.Token) error {
	link := fmt.Sprintf("%s/user/confirm/%s", n.publicURL, confirmToken.Secret)
	body := fmt.Sprintf(`<div style="margin: 48px; text-align: center;">
<h3>Welcome to Backlog, %s!</h3>
<p>Thank you for creating an account with the Backlog media system. You'll be able to use the system once an administrator assigns permissions to you.</p>
<p>Please confirm that this email belongs to you by <a href="%s">clicking here</a>. Thank you!</p>
</div>`, user.Name.First, link)

	return n.send(ctx, user.Email, "Backlog Account Created", body)
}

// PasswordResetRequested sends the password reset link.
func (n *SMTPNotifier) PasswordResetRequested(ctx context.Context, user *storage.User, resetToken *storage.Token) error {
	// Resetting needs a new password from the user, so the link targets
	// the web frontend's reset form, which posts the token back to
	// POST /user/reset-password. This API serves no GET reset route.
	link := fmt.Sprintf("%s/user/passwordreset/%s", n.publicURL, resetToken.Secret)
	body := fmt.Sprintf(`<div style="margin: 48px; text-align: center;">
<h3>Password Reset Request for %s.</h3>
<p>If you requested that your password be reset, please use the link below to continue the password reset process. If you did not, you can ignore this message.</p>
<p>Please confirm that this email belongs to you, and that you wish to reset your password by <a href="%s">clicking here</a>. Thank you!</p>
</div>`, user.Name.First, link)

	return n.send(ctx, user.Email, "Backlog Password Reset Request", body)
}

// PasswordChanged informs the user their password was reset.
func (n *SMTPNotifier) PasswordChanged(ctx context.Context, user *storage.User) error {
	body := fmt.Sprintf(`<div style="margin: 48px; text-align: center;">
<h3>%s, your Backlog password has been reset.</h3>
<p>If you did not authorize this action, please contact the administrator.</p>
</div>`, user.Name.First)

	return n.send(ctx, user.Email, "Backlog Password Updated", body)
}

// send assembles and submits one message. net/smtp has no
// context-aware API; the caller bounds the whole notification attempt
// with its own timeout instead.
func (n *SMTPNotifier) send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := strings.Join([]string{
		"From: " + n.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		htmlBody,
	}, "\r\n")

	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}

	if err := smtp.SendMail(n.addr, auth, n.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

var _ Notifier = (*SMTPNotifier)(nil)
