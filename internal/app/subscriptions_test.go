package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/yemenflix/yflix/internal/domain"
)

func TestSubscriptionService_SubscribeReplacesCurrent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.subs.Current(ctx, alice.UserID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no subscription, got %v", err)
	}
	plan, _ := e.subs.EffectivePlan(ctx, alice.UserID)
	if plan.ID != domain.PlanFree {
		t.Fatalf("default plan should be free, got %s", plan.ID)
	}

	basic, err := e.subs.Subscribe(ctx, alice, SubscribeInput{Plan: domain.PlanBasic})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if !basic.AutoRenew || !basic.ExpiresAt.Equal(e.clock.Now().AddDate(0, 0, 30)) {
		t.Fatalf("unexpected basic subscription: %+v", basic)
	}
	e.clock.Advance(time.Hour)
	premium, _ := e.subs.Subscribe(ctx, alice, SubscribeInput{Plan: domain.PlanPremium})

	cur, _ := e.subs.Current(ctx, alice.UserID)
	if cur.ID != premium.ID {
		t.Fatalf("current should be premium, got %+v", cur)
	}
	expired, _ := e.subs.List(ctx, domain.SubscriptionExpired)
	if len(expired) != 1 || expired[0].ID != basic.ID {
		t.Fatalf("previous subscription should be expired, got %+v", expired)
	}

	if _, err := e.subs.Subscribe(ctx, alice, SubscribeInput{Plan: "gold"}); err == nil {
		t.Fatalf("unknown plan should fail")
	}
	if _, err := e.subs.Subscribe(ctx, Actor{}, SubscribeInput{Plan: domain.PlanBasic}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSubscriptionService_CancelKeepsAccessUntilExpiry(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sub, _ := e.subs.Subscribe(ctx, alice, SubscribeInput{Plan: domain.PlanPremium})

	canceled, err := e.subs.Cancel(ctx, alice)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if canceled.Status != domain.SubscriptionCanceled || canceled.AutoRenew || !canceled.ExpiresAt.Equal(sub.ExpiresAt) {
		t.Fatalf("unexpected canceled subscription: %+v", canceled)
	}
	plan, _ := e.subs.EffectivePlan(ctx, alice.UserID)
	if plan.ID != domain.PlanPremium {
		t.Fatalf("access must be kept until expiry, got %s", plan.ID)
	}

	if _, err := e.subs.Cancel(ctx, bob); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cancel without subscription: expected ErrNotFound, got %v", err)
	}
}

func TestSubscriptionScheduler_RenewsOrExpires(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	renewing, _ := e.subs.Subscribe(ctx, alice, SubscribeInput{Plan: domain.PlanBasic})
	ending, _ := e.subs.Subscribe(ctx, bob, SubscribeInput{Plan: domain.PlanPremium})
	_, _ = e.subs.Cancel(ctx, bob)
	_, _ = e.subs.Subscribe(ctx, admin, SubscribeInput{Plan: domain.PlanFree})

	sch := NewSubscriptionScheduler(zerolog.Nop(), e.subs)
	sch.now = e.clock.Now

	if n := sch.tick(ctx); n != 0 {
		t.Fatalf("nothing is due yet, processed %d", n)
	}

	e.clock.Advance(31 * 24 * time.Hour)
	if n := sch.tick(ctx); n != 2 {
		t.Fatalf("expected 2 processed subscriptions, got %d", n)
	}

	cur, _ := e.subs.Current(ctx, alice.UserID)
	if cur.ID != renewing.ID || cur.Status != domain.SubscriptionActive || !cur.ExpiresAt.After(e.clock.Now()) || cur.RenewedAt.IsZero() {
		t.Fatalf("alice should have been renewed, got %+v", cur)
	}
	if _, err := e.subs.Current(ctx, bob.UserID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("bob's canceled subscription should have expired, got %v", err)
	}
	plan, _ := e.subs.EffectivePlan(ctx, bob.UserID)
	if plan.ID != domain.PlanFree {
		t.Fatalf("bob should fall back to free, got %s", plan.ID)
	}
	_ = ending

	aliceNotes, _ := e.notes.ListFor(ctx, alice.UserID, false, 0)
	bobNotes, _ := e.notes.ListFor(ctx, bob.UserID, false, 0)
	if len(aliceNotes.Items) != 1 || aliceNotes.Items[0].Kind != domain.NotificationSubscription {
		t.Fatalf("alice should get a renewal notification, got %+v", aliceNotes.Items)
	}
	if len(bobNotes.Items) != 1 {
		t.Fatalf("bob should get an expiry notification, got %+v", bobNotes.Items)
	}

	if n := sch.tick(ctx); n != 0 {
		t.Fatalf("second tick should be a no-op, got %d", n)
	}
}

func TestSubscriptionService_ActiveByPlan(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, _ = e.subs.Subscribe(ctx, alice, SubscribeInput{Plan: domain.PlanBasic})
	_, _ = e.subs.Subscribe(ctx, bob, SubscribeInput{Plan: domain.PlanBasic})
	_, _ = e.subs.Subscribe(ctx, admin, SubscribeInput{Plan: domain.PlanPremium})
	counts, err := e.subs.ActiveByPlan(ctx)
	if err != nil {
		t.Fatalf("ActiveByPlan: %v", err)
	}
	if counts[domain.PlanBasic] != 2 || counts[domain.PlanPremium] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}
