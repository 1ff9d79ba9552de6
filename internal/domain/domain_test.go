package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNextContentStatus(t *testing.T) {
	cases := []struct {
		from    ContentStatus
		action  ModerationAction
		want    ContentStatus
		wantErr bool
	}{
		{ContentDraft, ModerationSubmit, ContentPending, false},
		{ContentPending, ModerationApprove, ContentPublished, false},
		{ContentPending, ModerationReject, ContentRejected, false},
		{ContentPublished, ModerationUnpublish, ContentPending, false},
		{ContentRejected, ModerationSubmit, ContentPending, false},
		{ContentPublished, ModerationApprove, ContentPublished, true},
		{ContentRejected, ModerationApprove, ContentRejected, true},
		{ContentPending, ModerationUnpublish, ContentPending, true},
		{ContentDraft, ModerationApprove, ContentDraft, true},
		{ContentDraft, ModerationReject, ContentDraft, true},
		{ContentDraft, ModerationUnpublish, ContentDraft, true},
	}
	for _, tc := range cases {
		got, err := NextContentStatus(tc.from, tc.action)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("%s/%s: expected ErrInvalidTransition, got %v", tc.from, tc.action, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s/%s: unexpected error: %v", tc.from, tc.action, err)
		}
		if got != tc.want {
			t.Fatalf("%s/%s: want %q, got %q", tc.from, tc.action, tc.want, got)
		}
	}
}

func TestCanTransitionDownload(t *testing.T) {
	if !CanTransition(DownloadQueued, DownloadDownloading) {
		t.Fatalf("queued -> downloading should be allowed")
	}
	if !CanTransition(DownloadPaused, DownloadDownloading) {
		t.Fatalf("paused -> downloading should be allowed")
	}
	if CanTransition(DownloadCompleted, DownloadDownloading) {
		t.Fatalf("completed is terminal")
	}
	if CanTransition(DownloadQueued, DownloadCompleted) {
		t.Fatalf("queued -> completed must go through downloading")
	}
}

func TestQualityRank(t *testing.T) {
	if !(QualitySD.Rank() < QualityHD.Rank() && QualityHD.Rank() < QualityFHD.Rank() && QualityFHD.Rank() < Quality4K.Rank()) {
		t.Fatalf("unexpected quality ordering")
	}
	if Quality("hd").Rank() != QualityHD.Rank() {
		t.Fatalf("rank should be case-insensitive")
	}
	if Quality("8K").Rank() != 0 {
		t.Fatalf("unknown quality should rank 0")
	}
}

func TestNotificationReadForBroadcast(t *testing.T) {
	n := Notification{ID: "n1", Title: "hello"}
	if n.ReadFor("u1") {
		t.Fatalf("expected unread")
	}
	if !n.MarkReadFor("u1") {
		t.Fatalf("expected change")
	}
	if n.MarkReadFor("u1") {
		t.Fatalf("second mark should be a no-op")
	}
	if !n.ReadFor("u1") || n.ReadFor("u2") {
		t.Fatalf("broadcast read state must be per user")
	}
}

func TestSubscriptionEntitledAndDue(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	sub := Subscription{Status: SubscriptionCanceled, ExpiresAt: now.Add(time.Hour)}
	if !sub.Entitled(now) {
		t.Fatalf("canceled subscription keeps access until expiry")
	}
	if sub.Due(now) {
		t.Fatalf("not due before expiry")
	}
	if !sub.Due(now.Add(time.Hour)) {
		t.Fatalf("due at expiry")
	}
	free := Subscription{Status: SubscriptionActive}
	if free.Due(now) || !free.Entitled(now) {
		t.Fatalf("free plan never expires")
	}
}

func TestHealthFor(t *testing.T) {
	if HealthFor(nil) != HealthHealthy {
		t.Fatalf("no issues should be healthy")
	}
	if HealthFor([]Issue{{Severity: SeverityLow}}) != HealthHealthy {
		t.Fatalf("low issues should stay healthy")
	}
	if HealthFor([]Issue{{Severity: SeverityLow}, {Severity: SeverityHigh}}) != HealthDegraded {
		t.Fatalf("high issue should degrade")
	}
	if HealthFor([]Issue{{Severity: SeverityMedium}, {Severity: SeverityCritical}}) != HealthCritical {
		t.Fatalf("critical issue should be critical")
	}
}

func TestZeroTimesOmittedFromJSON(t *testing.T) {
	b, err := json.Marshal(Content{ID: "c1", Status: ContentPending})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "publishedAt") {
		t.Fatalf("unpublished content should not carry publishedAt: %s", b)
	}
	b, err = json.Marshal(Subscription{Status: SubscriptionActive})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "expiresAt") || strings.Contains(string(b), "canceledAt") {
		t.Fatalf("free subscription should not carry expiry fields: %s", b)
	}
}
