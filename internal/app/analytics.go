package app

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/ports"
)

const dashboardTopN = 10

// MaintenanceSummaries fournit le dernier passage de maintenance.
type MaintenanceSummaries interface {
	LatestSummary() (domain.MaintenanceSummary, bool)
}

type AnalyticsService struct {
	views       collection[domain.ViewEvent]
	content     *ContentService
	subs        *SubscriptionService
	security    *SecurityService
	maintenance MaintenanceSummaries
	now         func() time.Time
}

func NewAnalyticsService(store ports.DocumentStore, content *ContentService, subs *SubscriptionService, security *SecurityService, maintenance MaintenanceSummaries) *AnalyticsService {
	return &AnalyticsService{
		views:       newCollection(store, ports.CollectionViewEvents, func(v domain.ViewEvent) string { return v.ID }),
		content:     content,
		subs:        subs,
		security:    security,
		maintenance: maintenance,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// RecordView ajoute un événement et incrémente ViewCount.
func (s *AnalyticsService) RecordView(ctx context.Context, contentID, userID string) (domain.Content, error) {
	contentID = strings.TrimSpace(contentID)
	c, err := s.content.Get(ctx, contentID)
	if err != nil {
		return domain.Content{}, err
	}
	if !c.IsPublished() {
		return domain.Content{}, ErrNotFound
	}
	ev := domain.ViewEvent{ID: xid.New().String(), ContentID: contentID, UserID: userID, At: s.now()}
	if err := s.views.put(ctx, ev); err != nil {
		return domain.Content{}, err
	}
	return s.content.update(ctx, contentID, func(c *domain.Content) error {
		c.ViewCount++
		return nil
	})
}

type TopContent struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Kind      domain.ContentKind `json:"kind"`
	ViewCount int64              `json:"viewCount"`
}

type Dashboard struct {
	GeneratedAt time.Time    `json:"generatedAt"`
	Content     ContentStats `json:"content"`

	TotalViews int64 `json:"totalViews"`
	Views24h   int   `json:"views24h"`
	Views7d    int   `json:"views7d"`

	TopContent []TopContent `json:"topContent"`

	ActiveSubscriptions map[domain.PlanID]int   `json:"activeSubscriptions"`
	OpenAlerts          map[domain.Severity]int `json:"openAlerts"`

	Maintenance *domain.MaintenanceSummary `json:"maintenance,omitempty"`
}

func (s *AnalyticsService) Dashboard(ctx context.Context) (Dashboard, error) {
	now := s.now()
	out := Dashboard{GeneratedAt: now}

	stats, err := s.content.Stats(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	out.Content = stats
	out.TotalViews = stats.Views

	events, err := s.views.list(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	dayAgo, weekAgo := now.Add(-24*time.Hour), now.Add(-7*24*time.Hour)
	for _, ev := range events {
		if ev.At.After(dayAgo) {
			out.Views24h++
		}
		if ev.At.After(weekAgo) {
			out.Views7d++
		}
	}

	all, err := s.content.items.list(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].ViewCount > all[j].ViewCount })
	out.TopContent = []TopContent{}
	for _, c := range all {
		if len(out.TopContent) == dashboardTopN || c.ViewCount == 0 {
			break
		}
		out.TopContent = append(out.TopContent, TopContent{ID: c.ID, Title: c.Title, Kind: c.Kind, ViewCount: c.ViewCount})
	}

	if out.ActiveSubscriptions, err = s.subs.ActiveByPlan(ctx); err != nil {
		return Dashboard{}, err
	}
	if out.OpenAlerts, err = s.security.UnresolvedBySeverity(ctx); err != nil {
		return Dashboard{}, err
	}
	if s.maintenance != nil {
		if sum, ok := s.maintenance.LatestSummary(); ok {
			out.Maintenance = &sum
		}
	}
	return out, nil
}
