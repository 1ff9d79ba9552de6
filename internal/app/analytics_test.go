package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yemenflix/yflix/internal/domain"
)

type staticSummary struct {
	sum domain.MaintenanceSummary
}

func (s staticSummary) LatestSummary() (domain.MaintenanceSummary, bool) {
	return s.sum, true
}

func TestAnalyticsService_RecordViewAndDashboard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := NewAnalyticsService(e.store, e.content, e.subs, e.security, staticSummary{sum: domain.MaintenanceSummary{ID: "r1", Health: domain.HealthDegraded}})
	svc.now = e.clock.Now

	hot := e.addPublished(t, "Hot", domain.KindMovie)
	warm := e.addPublished(t, "Warm", domain.KindSeries)
	e.addPublished(t, "Cold", domain.KindShow)

	// une vue ancienne puis des vues récentes.
	if _, err := svc.RecordView(ctx, warm.ID, ""); err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	e.clock.Advance(3 * 24 * time.Hour)
	for i := 0; i < 3; i++ {
		c, err := svc.RecordView(ctx, hot.ID, alice.UserID)
		if err != nil {
			t.Fatalf("RecordView: %v", err)
		}
		if c.ViewCount != int64(i+1) {
			t.Fatalf("ViewCount should increase, got %d", c.ViewCount)
		}
	}
	draft, _ := e.content.Add(ctx, domain.Content{Kind: domain.KindMovie, Title: "Draft"})
	if _, err := svc.RecordView(ctx, draft.ID, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("views on unpublished content: got %v", err)
	}

	_, _ = e.subs.Subscribe(ctx, alice, SubscribeInput{Plan: domain.PlanPremium})
	_, _ = e.security.Create(ctx, AlertInput{Type: domain.AlertSuspiciousActivity, Severity: domain.SeverityHigh, Message: "x"})

	d, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.TotalViews != 4 || d.Views24h != 3 || d.Views7d != 4 {
		t.Fatalf("unexpected view counts: total=%d 24h=%d 7d=%d", d.TotalViews, d.Views24h, d.Views7d)
	}
	if len(d.TopContent) != 2 || d.TopContent[0].ID != hot.ID {
		t.Fatalf("unexpected top content: %+v", d.TopContent)
	}
	if d.Content.Total != 4 || d.ActiveSubscriptions[domain.PlanPremium] != 1 || d.OpenAlerts[domain.SeverityHigh] != 1 {
		t.Fatalf("unexpected dashboard: %+v", d)
	}
	if d.Maintenance == nil || d.Maintenance.ID != "r1" {
		t.Fatalf("expected maintenance summary, got %+v", d.Maintenance)
	}
}
