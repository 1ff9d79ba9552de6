package app

import (
	"context"
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

type SecurityService struct {
	logger zerolog.Logger
	items  collection[domain.SecurityAlert]
	bus    ports.EventBus
	now    func() time.Time

	// dédoublonnage de RaiseOnce.
	mu sync.Mutex
}

func NewSecurityService(logger zerolog.Logger, store ports.DocumentStore, bus ports.EventBus) *SecurityService {
	return &SecurityService{
		logger: logger,
		items:  newCollection(store, ports.CollectionSecurityAlerts, func(a domain.SecurityAlert) string { return a.ID }),
		bus:    bus,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type AlertInput struct {
	Type     domain.AlertType `json:"type"`
	Severity domain.Severity  `json:"severity"`
	Message  string           `json:"message"`
	SourceIP string           `json:"sourceIp"`
	UserID   string           `json:"userId"`
}

type AlertFilter struct {
	// nil = tous.
	Resolved *bool
	Severity domain.Severity
	Type     domain.AlertType
}

func (s *SecurityService) Create(ctx context.Context, in AlertInput) (domain.SecurityAlert, error) {
	a := domain.SecurityAlert{
		ID:        xid.New().String(),
		Type:      in.Type,
		Severity:  in.Severity,
		Message:   strings.TrimSpace(in.Message),
		SourceIP:  strings.TrimSpace(in.SourceIP),
		UserID:    strings.TrimSpace(in.UserID),
		CreatedAt: s.now(),
	}
	if a.Severity == "" {
		a.Severity = domain.SeverityMedium
	}
	if err := validate.Struct(a); err != nil {
		return domain.SecurityAlert{}, err
	}
	if err := s.items.put(ctx, a); err != nil {
		return domain.SecurityAlert{}, err
	}
	s.logger.Warn().
		Str("alert_id", a.ID).
		Str("type", string(a.Type)).
		Str("severity", string(a.Severity)).
		Msg(a.Message)
	publish(s.bus, TopicSecurityAlert, a)
	return a, nil
}

// RaiseOnce crée l'alerte sauf si une alerte non résolue du même type
// porte déjà le même message. created=false dans ce cas.
func (s *SecurityService) RaiseOnce(ctx context.Context, in AlertInput) (domain.SecurityAlert, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := strings.TrimSpace(in.Message)
	open, err := s.items.filter(ctx, func(a domain.SecurityAlert) bool {
		return !a.Resolved && a.Type == in.Type && a.Message == msg
	})
	if err != nil {
		return domain.SecurityAlert{}, false, err
	}
	if len(open) > 0 {
		return open[0], false, nil
	}
	a, err := s.Create(ctx, in)
	return a, err == nil, err
}

// List renvoie les alertes les plus récentes d'abord.
func (s *SecurityService) List(ctx context.Context, f AlertFilter) ([]domain.SecurityAlert, error) {
	out, err := s.items.filter(ctx, func(a domain.SecurityAlert) bool {
		if f.Resolved != nil && a.Resolved != *f.Resolved {
			return false
		}
		if f.Severity != "" && a.Severity != f.Severity {
			return false
		}
		if f.Type != "" && a.Type != f.Type {
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *SecurityService) Resolve(ctx context.Context, id string, by Actor) (domain.SecurityAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.items.get(ctx, id)
	if err != nil {
		return domain.SecurityAlert{}, err
	}
	if a.Resolved {
		return a, nil
	}
	a.Resolved = true
	a.ResolvedAt = s.now()
	a.ResolvedBy = by.Username
	if err := s.items.put(ctx, a); err != nil {
		return domain.SecurityAlert{}, err
	}
	return a, nil
}

func (s *SecurityService) Delete(ctx context.Context, id string) error {
	return s.items.delete(ctx, id)
}

// UnresolvedBySeverity sert au tableau de bord.
func (s *SecurityService) UnresolvedBySeverity(ctx context.Context) (map[domain.Severity]int, error) {
	open, err := s.items.filter(ctx, func(a domain.SecurityAlert) bool { return !a.Resolved })
	if err != nil {
		return nil, err
	}
	out := map[domain.Severity]int{}
	for _, a := range open {
		out[a.Severity]++
	}
	return out, nil
}
