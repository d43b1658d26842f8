// Package notify turns booking events into operator notifications.
package notify

import (
	"context"
	"log/slog"
)

// Notifier delivers one notification. Implementations may send email,
// messenger or SMS messages.
type Notifier interface {
	Notify(ctx context.Context, subject, message string) error
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, subject, message string) error {
	n.logger.InfoContext(ctx, "notification",
		slog.String("subject", subject),
		slog.String("message", message),
	)
	return nil
}
