package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/zhenghaoli/qacollab/internal/apperr"
	"github.com/zhenghaoli/qacollab/internal/application/port"
	"github.com/zhenghaoli/qacollab/internal/domain/entity"
)

// NotificationService serves the actor's in-app notification feed.
type NotificationService interface {
	List(ctx context.Context, actor entity.Actor, unreadOnly bool, page, pageSize int) ([]*entity.Notification, int, error)
	MarkRead(ctx context.Context, actor entity.Actor, notificationID int64) error
	MarkAllRead(ctx context.Context, actor entity.Actor) error
}

type notificationServiceImpl struct {
	notifyRepo port.NotificationRepository
	logger     Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notifyRepo port.NotificationRepository, logger Logger) NotificationService {
	return &notificationServiceImpl{
		notifyRepo: notifyRepo,
		logger:     logger,
	}
}

func (s *notificationServiceImpl) List(ctx context.Context, actor entity.Actor, unreadOnly bool, page, pageSize int) ([]*entity.Notification, int, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	notifications, total, err := s.notifyRepo.ListByUser(ctx, actor.ID, unreadOnly, pageSize, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err, "failed to list notifications")
	}
	return notifications, total, nil
}

func (s *notificationServiceImpl) MarkRead(ctx context.Context, actor entity.Actor, notificationID int64) error {
	err := s.notifyRepo.MarkRead(ctx, notificationID, actor.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.New(apperr.CodeNotFound, "notification %d not found", notificationID)
	}
	if err != nil {
		return apperr.Internal(err, "failed to mark notification read")
	}
	return nil
}

func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, actor entity.Actor) error {
	if err := s.notifyRepo.MarkAllRead(ctx, actor.ID); err != nil {
		return apperr.Internal(err, "failed to mark notifications read")
	}
	return nil
}
