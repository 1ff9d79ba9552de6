package app

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/ports"
	"github.com/yemenflix/yflix/internal/validate"
)

type NotificationService struct {
	items collection[domain.Notification]
	bus   ports.EventBus
	now   func() time.Time

	// sérialise les read-modify-write sur ReadBy.
	mu sync.Mutex
}

func NewNotificationService(store ports.DocumentStore, bus ports.EventBus) *NotificationService {
	return &NotificationService{
		items: newCollection(store, ports.CollectionNotifications, func(n domain.Notification) string { return n.ID }),
		bus:   bus,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type NotificationInput struct {
	UserID string                  `json:"userId"`
	Kind   domain.NotificationKind `json:"kind"`
	Title  string                  `json:"title"`
	Body   string                  `json:"body"`
	Link   string                  `json:"link"`
}

// Create enregistre une notification. UserID vide = diffusion.
func (s *NotificationService) Create(ctx context.Context, in NotificationInput) (domain.Notification, error) {
	if in.Kind == "" {
		in.Kind = domain.NotificationInfo
	}
	n := domain.Notification{
		ID:        xid.New().String(),
		UserID:    strings.TrimSpace(in.UserID),
		Kind:      in.Kind,
		Title:     strings.TrimSpace(in.Title),
		Body:      strings.TrimSpace(in.Body),
		Link:      strings.TrimSpace(in.Link),
		CreatedAt: s.now(),
	}
	if err := validate.Struct(n); err != nil {
		return domain.Notification{}, err
	}
	if err := s.items.put(ctx, n); err != nil {
		return domain.Notification{}, err
	}
	publish(s.bus, TopicNotificationCreated, n)
	return n, nil
}

func (s *NotificationService) Broadcast(ctx context.Context, kind domain.NotificationKind, title, body, link string) (domain.Notification, error) {
	return s.Create(ctx, NotificationInput{Kind: kind, Title: title, Body: body, Link: link})
}

func (s *NotificationService) Notify(ctx context.Context, userID string, kind domain.NotificationKind, title, body, link string) (domain.Notification, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Notification{}, invalidParams("missing userId")
	}
	return s.Create(ctx, NotificationInput{UserID: userID, Kind: kind, Title: title, Body: body, Link: link})
}

type NotificationList struct {
	Items  []domain.Notification `json:"items"`
	Unread int                   `json:"unread"`
}

// ListFor renvoie les notifications personnelles et diffusées, plus récentes d'abord.
// Read est calculé pour userID et ReadBy n'est pas exposé.
func (s *NotificationService) ListFor(ctx context.Context, userID string, unreadOnly bool, limit int) (NotificationList, error) {
	all, err := s.items.filter(ctx, func(n domain.Notification) bool { return n.VisibleTo(userID) })
	if err != nil {
		return NotificationList{}, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	out := NotificationList{Items: []domain.Notification{}}
	for _, n := range all {
		read := n.ReadFor(userID)
		if !read {
			out.Unread++
		}
		if unreadOnly && read {
			continue
		}
		if limit > 0 && len(out.Items) >= limit {
			continue
		}
		n.Read = read
		n.ReadBy = nil
		out.Items = append(out.Items, n)
	}
	return out, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.items.get(ctx, id)
	if err != nil {
		return err
	}
	if !n.VisibleTo(userID) {
		return ErrNotFound
	}
	if !n.MarkReadFor(userID) {
		return nil
	}
	return s.items.put(ctx, n)
}

// MarkAllRead renvoie le nombre de notifications modifiées.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.items.filter(ctx, func(n domain.Notification) bool { return n.VisibleTo(userID) })
	if err != nil {
		return 0, err
	}
	changed := 0
	for i := range all {
		if !all[i].MarkReadFor(userID) {
			continue
		}
		if err := s.items.put(ctx, all[i]); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

func (s *NotificationService) Delete(ctx context.Context, id string) error {
	return s.items.delete(ctx, id)
}
