package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/ports"
	"github.com/yemenflix/yflix/internal/validate"
)

type DownloadService struct {
	logger  zerolog.Logger
	items   collection[domain.DownloadItem]
	content *ContentService
	subs    *SubscriptionService
	bus     ports.EventBus
	now     func() time.Time

	mu sync.Mutex
}

func NewDownloadService(logger zerolog.Logger, store ports.DocumentStore, content *ContentService, subs *SubscriptionService, bus ports.EventBus) *DownloadService {
	return &DownloadService{
		logger:  logger,
		items:   newCollection(store, ports.CollectionDownloads, func(d domain.DownloadItem) string { return d.ID }),
		content: content,
		subs:    subs,
		bus:     bus,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type DownloadInput struct {
	ContentID string         `json:"contentId"`
	Quality   domain.Quality `json:"quality"`
	SizeBytes int64          `json:"sizeBytes"`
}

// Create vérifie que le plan de l'utilisateur autorise le téléchargement
// dans la qualité demandée.
func (s *DownloadService) Create(ctx context.Context, actor Actor, in DownloadInput) (domain.DownloadItem, error) {
	if actor.Anonymous() {
		return domain.DownloadItem{}, ErrUnauthorized
	}
	c, err := s.content.Get(ctx, strings.TrimSpace(in.ContentID))
	if err != nil {
		return domain.DownloadItem{}, err
	}
	if !c.IsPublished() {
		return domain.DownloadItem{}, ErrNotFound
	}
	quality := domain.Quality(strings.ToUpper(strings.TrimSpace(string(in.Quality))))
	if quality == "" {
		quality = c.Quality
	}
	if quality == "" {
		quality = domain.QualitySD
	}
	if quality.Rank() == 0 {
		return domain.DownloadItem{}, validate.Field("quality", "must be one of: SD HD FHD 4K")
	}

	plan, err := s.subs.EffectivePlan(ctx, actor.UserID)
	if err != nil {
		return domain.DownloadItem{}, err
	}
	if !plan.Downloads {
		return domain.DownloadItem{}, &CodedError{Code: "plan_required", Message: "your plan does not include downloads", Err: ErrForbidden}
	}
	if quality.Rank() > plan.MaxQuality.Rank() {
		return domain.DownloadItem{}, &CodedError{
			Code:    "plan_required",
			Message: fmt.Sprintf("plan %s is limited to %s", plan.ID, plan.MaxQuality),
			Err:     ErrForbidden,
		}
	}

	now := s.now()
	d := domain.DownloadItem{
		ID:        xid.New().String(),
		UserID:    actor.UserID,
		ContentID: c.ID,
		Title:     c.Title,
		Quality:   quality,
		State:     domain.DownloadQueued,
		SizeBytes: in.SizeBytes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validate.Struct(d); err != nil {
		return domain.DownloadItem{}, err
	}
	if err := s.items.put(ctx, d); err != nil {
		return domain.DownloadItem{}, err
	}
	publish(s.bus, TopicDownloadUpdated, d)
	return d, nil
}

func (s *DownloadService) ListMine(ctx context.Context, actor Actor) ([]domain.DownloadItem, error) {
	out, err := s.items.filter(ctx, func(d domain.DownloadItem) bool { return d.UserID == actor.UserID })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// owned renvoie ErrNotFound pour les téléchargements d'un autre utilisateur.
func (s *DownloadService) owned(ctx context.Context, actor Actor, id string) (domain.DownloadItem, error) {
	d, err := s.items.get(ctx, id)
	if err != nil {
		return domain.DownloadItem{}, err
	}
	if d.UserID != actor.UserID && !actor.IsAdmin() {
		return domain.DownloadItem{}, ErrNotFound
	}
	return d, nil
}

// UpdateProgress passe queued à downloading et atteint completed à 1.
func (s *DownloadService) UpdateProgress(ctx context.Context, actor Actor, id string, progress float64) (domain.DownloadItem, error) {
	if progress < 0 || progress > 1 {
		return domain.DownloadItem{}, validate.Field("progress", "must be between 0 and 1")
	}
	s.mu.Lock()
	d, err := s.owned(ctx, actor, id)
	if err != nil {
		s.mu.Unlock()
		return domain.DownloadItem{}, err
	}
	target := domain.DownloadDownloading
	if progress >= 1 {
		target = domain.DownloadCompleted
	}
	if d.State == domain.DownloadQueued && target == domain.DownloadCompleted {
		d.State = domain.DownloadDownloading
	}
	if !domain.CanTransition(d.State, target) {
		s.mu.Unlock()
		return domain.DownloadItem{}, invalidState(fmt.Sprintf("cannot update progress of a %s download", d.State))
	}
	if progress < d.Progress {
		progress = d.Progress
	}
	d.Progress = progress
	d.State = target
	d.UpdatedAt = s.now()
	err = s.items.put(ctx, d)
	s.mu.Unlock()
	if err != nil {
		return domain.DownloadItem{}, err
	}
	s.published(d)
	return d, nil
}

// Transition applique une action utilisateur: pause, resume, cancel, fail.
func (s *DownloadService) Transition(ctx context.Context, actor Actor, id, action, reason string) (domain.DownloadItem, error) {
	var target domain.DownloadState
	switch action {
	case "pause":
		target = domain.DownloadPaused
	case "resume", "start":
		target = domain.DownloadDownloading
	case "cancel":
		target = domain.DownloadCanceled
	case "fail":
		target = domain.DownloadFailed
	default:
		return domain.DownloadItem{}, invalidParams("unknown action " + action)
	}

	s.mu.Lock()
	d, err := s.owned(ctx, actor, id)
	if err != nil {
		s.mu.Unlock()
		return domain.DownloadItem{}, err
	}
	if d.State == target {
		s.mu.Unlock()
		return d, nil
	}
	if !domain.CanTransition(d.State, target) {
		s.mu.Unlock()
		return domain.DownloadItem{}, invalidState(fmt.Sprintf("cannot %s a %s download", action, d.State))
	}
	d.State = target
	if target == domain.DownloadFailed {
		d.Error = strings.TrimSpace(reason)
	}
	d.UpdatedAt = s.now()
	err = s.items.put(ctx, d)
	s.mu.Unlock()
	if err != nil {
		return domain.DownloadItem{}, err
	}
	s.published(d)
	return d, nil
}

func (s *DownloadService) Delete(ctx context.Context, actor Actor, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	return s.items.delete(ctx, id)
}

func (s *DownloadService) published(d domain.DownloadItem) {
	publish(s.bus, TopicDownloadUpdated, d)
	if d.State == domain.DownloadCompleted {
		publish(s.bus, TopicDownloadCompleted, d)
	}
}
