package app

import (
	"context"
	"errors"
	"sync"

	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/ports"
	"github.com/yemenflix/yflix/internal/validate"
)

// Les réglages du site sont un document unique.
const settingsDocID = "site"

type SettingsService struct {
	items collection[domain.Settings]
	bus   ports.EventBus

	mu        sync.Mutex
	cached    *domain.Settings
	listeners []func(domain.Settings)
}

func NewSettingsService(store ports.DocumentStore, bus ports.EventBus) *SettingsService {
	return &SettingsService{
		items: newCollection(store, ports.CollectionSettings, func(domain.Settings) string { return settingsDocID }),
		bus:   bus,
	}
}

// OnChange enregistre un callback appelé après chaque Put réussi.
func (s *SettingsService) OnChange(fn func(domain.Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return *s.cached, nil
	}
	settings, err := s.items.get(ctx, settingsDocID)
	if errors.Is(err, ErrNotFound) {
		settings = domain.DefaultSettings()
	} else if err != nil {
		return domain.Settings{}, err
	}
	s.cached = &settings
	return settings, nil
}

func (s *SettingsService) Put(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	def := domain.DefaultSettings()
	if settings.SiteName == "" {
		settings.SiteName = def.SiteName
	}
	if settings.DefaultPageSize <= 0 {
		settings.DefaultPageSize = def.DefaultPageSize
	}
	if settings.MaxConcurrentChecks <= 0 {
		settings.MaxConcurrentChecks = def.MaxConcurrentChecks
	}
	if err := validate.Struct(settings); err != nil {
		return domain.Settings{}, err
	}

	s.mu.Lock()
	if err := s.items.put(ctx, settings); err != nil {
		s.mu.Unlock()
		return domain.Settings{}, err
	}
	s.cached = &settings
	listeners := append([]func(domain.Settings){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(settings)
	}
	publish(s.bus, TopicSettingsUpdated, settings.Public())
	return settings, nil
}

// MaintenanceMode est faux si les réglages sont illisibles.
func (s *SettingsService) MaintenanceMode(ctx context.Context) bool {
	settings, err := s.Get(ctx)
	return err == nil && settings.MaintenanceMode
}
