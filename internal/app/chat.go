package app

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/ports"
	"github.com/yemenflix/yflix/internal/validate"
)

const (
	defaultChatLimit = 50
	maxChatLimit     = 200
)

var roomPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9:_-]{0,63}$`)

type ChatService struct {
	items collection[domain.ChatMessage]
	bus   ports.EventBus
	now   func() time.Time
}

func NewChatService(store ports.DocumentStore, bus ports.EventBus) *ChatService {
	return &ChatService{
		items: newCollection(store, ports.CollectionChatMessages, func(m domain.ChatMessage) string { return m.ID }),
		bus:   bus,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func normalizeRoom(room string) (string, error) {
	room = strings.ToLower(strings.TrimSpace(room))
	if room == "" {
		return domain.DefaultChatRoom, nil
	}
	if !roomPattern.MatchString(room) {
		return "", invalidParams("invalid room " + room)
	}
	return room, nil
}

func (s *ChatService) Post(ctx context.Context, actor Actor, room, body string) (domain.ChatMessage, error) {
	if actor.Anonymous() {
		return domain.ChatMessage{}, ErrUnauthorized
	}
	room, err := normalizeRoom(room)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	m := domain.ChatMessage{
		ID:        xid.New().String(),
		Room:      room,
		UserID:    actor.UserID,
		Author:    actor.Username,
		Body:      strings.TrimSpace(body),
		CreatedAt: s.now(),
	}
	if err := validate.Struct(m); err != nil {
		return domain.ChatMessage{}, err
	}
	if err := s.items.put(ctx, m); err != nil {
		return domain.ChatMessage{}, err
	}
	publish(s.bus, TopicChatMessage, m)
	return m, nil
}

// List renvoie les limit derniers messages avant before (exclu), du plus
// ancien au plus récent. before zéro = maintenant.
func (s *ChatService) List(ctx context.Context, room string, limit int, before time.Time) ([]domain.ChatMessage, error) {
	room, err := normalizeRoom(room)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultChatLimit
	}
	if limit > maxChatLimit {
		limit = maxChatLimit
	}
	msgs, err := s.items.filter(ctx, func(m domain.ChatMessage) bool {
		if m.Room != room || m.Deleted {
			return false
		}
		return before.IsZero() || m.CreatedAt.Before(before)
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// Delete masque le message (modération admin ou auteur).
func (s *ChatService) Delete(ctx context.Context, actor Actor, id string) error {
	m, err := s.items.get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && m.UserID != actor.UserID {
		return ErrForbidden
	}
	if m.Deleted {
		return nil
	}
	m.Deleted = true
	m.Body = ""
	if err := s.items.put(ctx, m); err != nil {
		return err
	}
	publish(s.bus, TopicChatDeleted, map[string]string{"id": m.ID, "room": m.Room})
	return nil
}
