package app

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/yemenflix/yflix/internal/adapters/jsonfile"
	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/ports"
)

func newTestStore(t *testing.T) *jsonfile.Store {
	t.Helper()
	store, err := jsonfile.Open(filepath.Join(t.TempDir(), "database.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// clock est une horloge manuelle.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingBus garde les événements publiés.
type recordingBus struct {
	mu     sync.Mutex
	events []ports.Event
}

func (b *recordingBus) Publish(topic string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ports.Event{Topic: topic, Payload: append([]byte(nil), payload...)})
}

func (b *recordingBus) Subscribe() (<-chan ports.Event, func()) {
	ch := make(chan ports.Event)
	return ch, func() {}
}

func (b *recordingBus) topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Topic)
	}
	return out
}

func (b *recordingBus) count(topic string) int {
	n := 0
	for _, t := range b.topics() {
		if t == topic {
			n++
		}
	}
	return n
}

// fakeIndex est un index naïf: sous-chaîne du titre.
type fakeIndex struct {
	mu   sync.Mutex
	docs map[string]domain.Content
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: map[string]domain.Content{}}
}

func (f *fakeIndex) Index(_ context.Context, c domain.Content) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[c.ID] = c
	return nil
}

func (f *fakeIndex) IndexBatch(ctx context.Context, items []domain.Content) error {
	for _, c := range items {
		_ = f.Index(ctx, c)
	}
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, q string, size int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for id, c := range f.docs {
		if strings.Contains(strings.ToLower(c.Title), strings.ToLower(q)) {
			out = append(out, id)
		}
	}
	if len(out) > size {
		out = out[:size]
	}
	return out, nil
}

func (f *fakeIndex) Similar(_ context.Context, c domain.Content, size int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for id, other := range f.docs {
		if id == c.ID {
			continue
		}
		for _, g := range c.Genres {
			if other.HasGenre(g) {
				out = append(out, id)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeIndex) Close() error { return nil }

func (f *fakeIndex) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.docs[id]
	return ok
}

// env assemble les services sur un store temporaire.
type env struct {
	store    *jsonfile.Store
	bus      *recordingBus
	index    *fakeIndex
	clock    *clock
	notes    *NotificationService
	security *SecurityService
	settings *SettingsService
	content  *ContentService
	search   *SearchService
	reviews  *ReviewService
	subs     *SubscriptionService
	download *DownloadService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{store: newTestStore(t), bus: &recordingBus{}, index: newFakeIndex(), clock: newClock()}
	log := zerolog.Nop()
	e.notes = NewNotificationService(e.store, e.bus)
	e.notes.now = e.clock.Now
	e.security = NewSecurityService(log, e.store, e.bus)
	e.security.now = e.clock.Now
	e.settings = NewSettingsService(e.store, e.bus)
	e.content = NewContentService(log, e.store, e.index, e.bus, e.notes)
	e.content.now = e.clock.Now
	e.search = NewSearchService(log, e.store, e.index)
	e.reviews = NewReviewService(log, e.store, e.content, e.bus)
	e.reviews.now = e.clock.Now
	e.subs = NewSubscriptionService(log, e.store, e.bus, e.notes)
	e.subs.now = e.clock.Now
	e.download = NewDownloadService(log, e.store, e.content, e.subs, e.bus)
	e.download.now = e.clock.Now
	return e
}

func (e *env) addPublished(t *testing.T, title string, kind domain.ContentKind, genres ...string) domain.Content {
	t.Helper()
	c, err := e.content.Add(context.Background(), domain.Content{
		Kind:    kind,
		Title:   title,
		Genres:  genres,
		Quality: domain.QualityHD,
		Status:  domain.ContentPublished,
	})
	if err != nil {
		t.Fatalf("add %q: %v", title, err)
	}
	e.clock.Advance(time.Second)
	return c
}

var (
	alice = Actor{UserID: "u-alice", Username: "alice", Role: domain.RoleUser}
	bob   = Actor{UserID: "u-bob", Username: "bob", Role: domain.RoleUser}
	admin = Actor{UserID: "u-admin", Username: "admin", Role: domain.RoleAdmin}
)
