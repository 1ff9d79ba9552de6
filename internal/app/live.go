package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/ports"
	"github.com/yemenflix/yflix/internal/validate"
)

type LiveService struct {
	items collection[domain.LiveStream]
	bus   ports.EventBus
	now   func() time.Time

	// les compteurs de spectateurs sont des read-modify-write.
	mu sync.Mutex
}

func NewLiveService(store ports.DocumentStore, bus ports.EventBus) *LiveService {
	return &LiveService{
		items: newCollection(store, ports.CollectionLiveStreams, func(l domain.LiveStream) string { return l.ID }),
		bus:   bus,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type LiveInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	StreamURL   *string    `json:"streamUrl"`
	Thumbnail   *string    `json:"thumbnail"`
	ScheduledAt *time.Time `json:"scheduledAt"`
}

func (in LiveInput) apply(l *domain.LiveStream) {
	setIf(&l.Title, in.Title)
	setIf(&l.Description, in.Description)
	setIf(&l.StreamURL, in.StreamURL)
	setIf(&l.Thumbnail, in.Thumbnail)
	setIf(&l.ScheduledAt, in.ScheduledAt)
	l.Title = strings.TrimSpace(l.Title)
	l.Description = strings.TrimSpace(l.Description)
	l.StreamURL = strings.TrimSpace(l.StreamURL)
	l.Thumbnail = strings.TrimSpace(l.Thumbnail)
}

// List: en direct d'abord, puis programmés, puis terminés.
func (s *LiveService) List(ctx context.Context) ([]domain.LiveStream, error) {
	all, err := s.items.list(ctx)
	if err != nil {
		return nil, err
	}
	rank := map[domain.LiveStatus]int{domain.LiveOnAir: 0, domain.LiveScheduled: 1, domain.LiveEnded: 2}
	sort.SliceStable(all, func(i, j int) bool {
		if rank[all[i].Status] != rank[all[j].Status] {
			return rank[all[i].Status] < rank[all[j].Status]
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all, nil
}

func (s *LiveService) Get(ctx context.Context, id string) (domain.LiveStream, error) {
	return s.items.get(ctx, id)
}

func (s *LiveService) Create(ctx context.Context, in LiveInput) (domain.LiveStream, error) {
	now := s.now()
	l := domain.LiveStream{
		ID:        xid.New().String(),
		Status:    domain.LiveScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(&l)
	if err := validate.Struct(l); err != nil {
		return domain.LiveStream{}, err
	}
	if err := s.items.put(ctx, l); err != nil {
		return domain.LiveStream{}, err
	}
	publish(s.bus, TopicLiveUpdated, l)
	return l, nil
}

func (s *LiveService) Update(ctx context.Context, id string, in LiveInput) (domain.LiveStream, error) {
	return s.mutate(ctx, id, func(l *domain.LiveStream) error {
		in.apply(l)
		return validate.Struct(*l)
	})
}

func (s *LiveService) Delete(ctx context.Context, id string) error {
	return s.items.delete(ctx, id)
}

func (s *LiveService) Start(ctx context.Context, id string) (domain.LiveStream, error) {
	return s.transition(ctx, id, domain.LiveOnAir)
}

func (s *LiveService) End(ctx context.Context, id string) (domain.LiveStream, error) {
	return s.transition(ctx, id, domain.LiveEnded)
}

func (s *LiveService) transition(ctx context.Context, id string, to domain.LiveStatus) (domain.LiveStream, error) {
	return s.mutate(ctx, id, func(l *domain.LiveStream) error {
		if !domain.CanTransitionLive(l.Status, to) {
			return invalidState(fmt.Sprintf("cannot move live stream from %s to %s", l.Status, to))
		}
		l.Status = to
		switch to {
		case domain.LiveOnAir:
			l.StartedAt = s.now()
		case domain.LiveEnded:
			l.EndedAt = s.now()
			l.ViewerCount = 0
		}
		return nil
	})
}

// Join n'est possible que pendant le direct.
func (s *LiveService) Join(ctx context.Context, id string) (domain.LiveStream, error) {
	return s.mutate(ctx, id, func(l *domain.LiveStream) error {
		if l.Status != domain.LiveOnAir {
			return invalidState("live stream is not on air")
		}
		l.ViewerCount++
		return nil
	})
}

// Leave ne descend jamais sous zéro.
func (s *LiveService) Leave(ctx context.Context, id string) (domain.LiveStream, error) {
	return s.mutate(ctx, id, func(l *domain.LiveStream) error {
		if l.ViewerCount > 0 {
			l.ViewerCount--
		}
		return nil
	})
}

func (s *LiveService) mutate(ctx context.Context, id string, fn func(*domain.LiveStream) error) (domain.LiveStream, error) {
	s.mu.Lock()
	l, err := s.items.get(ctx, id)
	if err != nil {
		s.mu.Unlock()
		return domain.LiveStream{}, err
	}
	if err := fn(&l); err != nil {
		s.mu.Unlock()
		return domain.LiveStream{}, err
	}
	l.UpdatedAt = s.now()
	err = s.items.put(ctx, l)
	s.mu.Unlock()
	if err != nil {
		return domain.LiveStream{}, err
	}
	publish(s.bus, TopicLiveUpdated, l)
	return l, nil
}
