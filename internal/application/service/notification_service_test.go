package service

import (
	"context"
	"testing"

	"github.com/zhenghaoli/qacollab/internal/apperr"
	"github.com/zhenghaoli/qacollab/internal/domain/entity"
)

func TestNotificationFeed(t *testing.T) {
	ctx := context.Background()
	repo := newFakeNotificationRepo()
	svc := NewNotificationService(repo, nopLogger{})

	for i := 0; i < 3; i++ {
		if err := repo.Create(ctx, &entity.Notification{
			UserID: userA.ID,
			Type:   entity.NotifyAssignmentCreated,
			Title:  "New proofreading assignment",
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if err := repo.Create(ctx, &entity.Notification{
		UserID: userB.ID,
		Type:   entity.NotifyTaskCompleted,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	notifications, total, err := svc.List(ctx, userA, false, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(notifications) != 3 {
		t.Fatalf("expected 3 notifications for user A, got %d (total %d)", len(notifications), total)
	}
	for _, n := range notifications {
		if n.UserID != userA.ID {
			t.Errorf("foreign notification in feed: %+v", n)
		}
	}

	// Newest first.
	if notifications[0].ID < notifications[1].ID {
		t.Error("expected newest notification first")
	}

	if err := svc.MarkRead(ctx, userA, notifications[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	_, total, err = svc.List(ctx, userA, true, 1, 10)
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 unread, got %d", total)
	}

	if err := svc.MarkAllRead(ctx, userA); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	_, total, _ = svc.List(ctx, userA, true, 1, 10)
	if total != 0 {
		t.Errorf("expected 0 unread after mark all, got %d", total)
	}
}

func TestMarkReadScopedToOwner(t *testing.T) {
	ctx := context.Background()
	repo := newFakeNotificationRepo()
	svc := NewNotificationService(repo, nopLogger{})

	n := &entity.Notification{UserID: userB.ID, Type: entity.NotifyTaskReopened}
	if err := repo.Create(ctx, n); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Another user cannot mark it read.
	if err := svc.MarkRead(ctx, userA, n.ID); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for foreign notification, got %v", err)
	}
	if err := svc.MarkRead(ctx, userB, 999); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for missing notification, got %v", err)
	}
	if err := svc.MarkRead(ctx, userB, n.ID); err != nil {
		t.Fatalf("owner mark read: %v", err)
	}
}
