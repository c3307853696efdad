package service

import (
	"context"
	"log/slog"
)

// Notifier delivers out-of-band tokens (verification and reset emails).
// Delivery is fire-and-forget: implementations must not block the calling
// flow on transport failures, and callers never see an error.
type Notifier interface {
	SendEmailVerification(ctx context.Context, email, token string)
	SendPasswordReset(ctx context.Context, email, token string)
	SendEmailChange(ctx context.Context, newEmail, token string)
}

// LogNotifier is the default Notifier: it records that a message would have
// been sent. Real email delivery lives outside this service and plugs in
// through the interface.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) SendEmailVerification(ctx context.Context, email, token string) {
	n.Logger.Info("notify: email verification", "email", email)
}

func (n *LogNotifier) SendPasswordReset(ctx context.Context, email, token string) {
	n.Logger.Info("notify: password reset", "email", email)
}

func (n *LogNotifier) SendEmailChange(ctx context.Context, newEmail, token string) {
	n.Logger.Info("notify: email change confirmation", "email", newEmail)
}
