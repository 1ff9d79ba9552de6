package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yemenflix/yflix/internal/domain"
)

func TestNotificationService_BroadcastReadStateIsPerUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	b, err := e.notes.Broadcast(ctx, domain.NotificationSystem, "Scheduled maintenance", "", "")
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	e.clock.Advance(time.Minute)
	if _, err := e.notes.Notify(ctx, alice.UserID, domain.NotificationInfo, "Welcome", "", ""); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	list, _ := e.notes.ListFor(ctx, alice.UserID, false, 0)
	if len(list.Items) != 2 || list.Unread != 2 {
		t.Fatalf("alice should see 2 unread, got %+v", list)
	}
	if list.Items[0].Title != "Welcome" {
		t.Fatalf("newest first expected, got %q", list.Items[0].Title)
	}

	if err := e.notes.MarkRead(ctx, alice.UserID, b.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	aliceList, _ := e.notes.ListFor(ctx, alice.UserID, true, 0)
	bobList, _ := e.notes.ListFor(ctx, bob.UserID, true, 0)
	if len(aliceList.Items) != 1 || aliceList.Unread != 1 {
		t.Fatalf("alice unread: %+v", aliceList)
	}
	if len(bobList.Items) != 1 || bobList.Items[0].ID != b.ID {
		t.Fatalf("bob should still have the broadcast unread: %+v", bobList)
	}
	for _, n := range aliceList.Items {
		if len(n.ReadBy) != 0 {
			t.Fatalf("ReadBy must not be exposed")
		}
	}
}

func TestNotificationService_MarkReadOnForeignNotification(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	n, _ := e.notes.Notify(ctx, alice.UserID, domain.NotificationInfo, "Private", "", "")
	if err := e.notes.MarkRead(ctx, bob.UserID, n.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNotificationService_MarkAllRead(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, _ = e.notes.Broadcast(ctx, domain.NotificationInfo, "one", "", "")
	_, _ = e.notes.Notify(ctx, alice.UserID, domain.NotificationInfo, "two", "", "")
	_, _ = e.notes.Notify(ctx, bob.UserID, domain.NotificationInfo, "three", "", "")

	n, err := e.notes.MarkAllRead(ctx, alice.UserID)
	if err != nil || n != 2 {
		t.Fatalf("MarkAllRead: n=%d err=%v", n, err)
	}
	again, _ := e.notes.MarkAllRead(ctx, alice.UserID)
	if again != 0 {
		t.Fatalf("second MarkAllRead should change nothing, got %d", again)
	}
	bobList, _ := e.notes.ListFor(ctx, bob.UserID, false, 0)
	if bobList.Unread != 2 {
		t.Fatalf("bob unread should be untouched, got %d", bobList.Unread)
	}
}

func TestNotificationService_CreateValidatesAndPublishes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if _, err := e.notes.Create(ctx, NotificationInput{Kind: "spam", Title: "x"}); err == nil {
		t.Fatalf("unknown kind should fail")
	}
	if _, err := e.notes.Create(ctx, NotificationInput{}); err == nil {
		t.Fatalf("missing title should fail")
	}
	if _, err := e.notes.Create(ctx, NotificationInput{Title: "ok"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.bus.count(TopicNotificationCreated) != 1 {
		t.Fatalf("expected one notification.created, got %v", e.bus.topics())
	}
}
