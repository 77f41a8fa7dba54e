// Package notification is the port to the push-notification collaborator.
// Dispatch is always best-effort: reconciliation never fails or blocks on it.
package notification

import (
	"context"
	"log/slog"
)

// Notifier sends user-facing notifications.
type Notifier interface {
	PaymentSucceeded(ctx context.Context, userID, paymentID string) error
}

// LogNotifier records notifications in the log instead of delivering them.
// Used until the push gateway is wired, and in tests.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) PaymentSucceeded(ctx context.Context, userID, paymentID string) error {
	n.logger.InfoContext(ctx, "payment success notification",
		"user_id", userID,
		"payment_id", paymentID,
	)
	return nil
}
