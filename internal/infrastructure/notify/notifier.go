// Package notify delivers in-app notifications. Delivery is best-effort:
// failures are logged and swallowed so a notification can never fail or roll
// back the operation that triggered it.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/zhenghaoli/qacollab/internal/application/port"
	"github.com/zhenghaoli/qacollab/internal/domain/entity"
)

// Notifier writes notification rows through the repository, outside of the
// caller's transaction.
type Notifier struct {
	repo   port.NotificationRepository
	logger *zap.Logger
}

// NewNotifier creates a new Notifier
func NewNotifier(repo port.NotificationRepository, logger *zap.Logger) *Notifier {
	return &Notifier{
		repo:   repo,
		logger: logger,
	}
}

// Notify persists the notification. Errors are logged, never returned.
func (n *Notifier) Notify(ctx context.Context, notification *entity.Notification) {
	// Detach from request cancellation so an aborted request cannot drop
	// an already-earned notification.
	if err := n.repo.Create(context.WithoutCancel(ctx), notification); err != nil {
		n.logger.Error("Failed to deliver notification",
			zap.Int64("user_id", notification.UserID),
			zap.String("type", notification.Type),
			zap.Error(err))
	}
}

// Verify interface compliance
var _ port.Notifier = (*Notifier)(nil)
