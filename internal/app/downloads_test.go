package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/ports"
)

func TestDownloadService_PlanGate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.addPublished(t, "Hadramout", domain.KindMovie)

	_, err := e.download.Create(ctx, alice, DownloadInput{ContentID: c.ID, Quality: domain.QualitySD})
	if !errors.Is(err, ErrForbidden) || CodeOf(err) != "plan_required" {
		t.Fatalf("free plan has no downloads: expected plan_required, got %v", err)
	}

	_, _ = e.subs.Subscribe(ctx, alice, SubscribeInput{Plan: domain.PlanBasic})
	if _, err := e.download.Create(ctx, alice, DownloadInput{ContentID: c.ID, Quality: domain.Quality4K}); CodeOf(err) != "plan_required" {
		t.Fatalf("basic plan is limited to HD, got %v", err)
	}
	d, err := e.download.Create(ctx, alice, DownloadInput{ContentID: c.ID, Quality: "hd"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.State != domain.DownloadQueued || d.Quality != domain.QualityHD || d.Title != "Hadramout" {
		t.Fatalf("unexpected download: %+v", d)
	}

	if _, err := e.download.Create(ctx, alice, DownloadInput{ContentID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDownloadService_StateMachine(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.addPublished(t, "Taiz", domain.KindMovie)
	_, _ = e.subs.Subscribe(ctx, alice, SubscribeInput{Plan: domain.PlanPremium})
	d, _ := e.download.Create(ctx, alice, DownloadInput{ContentID: c.ID})

	d, err := e.download.UpdateProgress(ctx, alice, d.ID, 0.4)
	if err != nil || d.State != domain.DownloadDownloading {
		t.Fatalf("progress: %+v %v", d, err)
	}
	if d, err = e.download.Transition(ctx, alice, d.ID, "pause", ""); err != nil || d.State != domain.DownloadPaused {
		t.Fatalf("pause: %+v %v", d, err)
	}
	if d, err = e.download.Transition(ctx, alice, d.ID, "resume", ""); err != nil || d.State != domain.DownloadDownloading {
		t.Fatalf("resume: %+v %v", d, err)
	}

	// progression monotone.
	d, _ = e.download.UpdateProgress(ctx, alice, d.ID, 0.2)
	if d.Progress != 0.4 {
		t.Fatalf("progress must not go backwards, got %v", d.Progress)
	}

	d, err = e.download.UpdateProgress(ctx, alice, d.ID, 1)
	if err != nil || d.State != domain.DownloadCompleted {
		t.Fatalf("complete: %+v %v", d, err)
	}
	if e.bus.count(TopicDownloadCompleted) != 1 {
		t.Fatalf("expected download.completed, got %v", e.bus.topics())
	}
	if _, err := e.download.Transition(ctx, alice, d.ID, "pause", ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("completed is terminal, got %v", err)
	}
	if _, err := e.download.Transition(ctx, alice, d.ID, "explode", ""); CodeOf(err) != "invalid_params" {
		t.Fatalf("unknown action: got %v", err)
	}
	if _, err := e.download.UpdateProgress(ctx, alice, d.ID, 2); err == nil {
		t.Fatalf("progress > 1 should fail")
	}
}

func TestDownloadService_OwnershipAndDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.addPublished(t, "Ibb", domain.KindMovie)
	_, _ = e.subs.Subscribe(ctx, alice, SubscribeInput{Plan: domain.PlanPremium})
	d, _ := e.download.Create(ctx, alice, DownloadInput{ContentID: c.ID})

	if _, err := e.download.Transition(ctx, bob, d.ID, "cancel", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other users must not see the download, got %v", err)
	}
	mine, _ := e.download.ListMine(ctx, alice)
	if len(mine) != 1 {
		t.Fatalf("expected 1 download, got %d", len(mine))
	}
	if err := e.download.Delete(ctx, alice, d.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	mine, _ = e.download.ListMine(ctx, alice)
	if len(mine) != 0 {
		t.Fatalf("expected no download after delete, got %d", len(mine))
	}
}

func TestDownloadCompletionNotifier_NotifiesOwner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := NewDownloadCompletionNotifier(zerolog.Nop(), e.bus, e.notes)

	payload, _ := json.Marshal(domain.DownloadItem{ID: "d1", UserID: alice.UserID, Title: "Taiz", Quality: domain.QualityHD, State: domain.DownloadCompleted})
	u.handleEvent(ctx, ports.Event{Topic: TopicDownloadCompleted, Payload: payload})
	// autres topics et payloads invalides ignorés.
	u.handleEvent(ctx, ports.Event{Topic: TopicDownloadUpdated, Payload: payload})
	u.handleEvent(ctx, ports.Event{Topic: TopicDownloadCompleted, Payload: []byte("{")})

	list, _ := e.notes.ListFor(ctx, alice.UserID, false, 0)
	if len(list.Items) != 1 || list.Items[0].Kind != domain.NotificationDownload {
		t.Fatalf("expected one download notification, got %+v", list.Items)
	}
	other, _ := e.notes.ListFor(ctx, bob.UserID, false, 0)
	if len(other.Items) != 0 {
		t.Fatalf("notification must be personal")
	}
}
