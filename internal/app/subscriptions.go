package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/ports"
	"github.com/yemenflix/yflix/internal/validate"
)

type SubscriptionService struct {
	logger   zerolog.Logger
	items    collection[domain.Subscription]
	bus      ports.EventBus
	notifier *NotificationService
	now      func() time.Time

	mu sync.Mutex
}

func NewSubscriptionService(logger zerolog.Logger, store ports.DocumentStore, bus ports.EventBus, notifier *NotificationService) *SubscriptionService {
	return &SubscriptionService{
		logger:   logger,
		items:    newCollection(store, ports.CollectionSubscriptions, func(s domain.Subscription) string { return s.ID }),
		bus:      bus,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *SubscriptionService) Plans() []domain.Plan {
	return domain.Plans()
}

type SubscribeInput struct {
	Plan      domain.PlanID `json:"plan"`
	AutoRenew *bool         `json:"autoRenew"`
}

// current renvoie l'abonnement non expiré le plus récent de l'utilisateur.
func (s *SubscriptionService) current(ctx context.Context, userID string) (domain.Subscription, bool, error) {
	mine, err := s.items.filter(ctx, func(sub domain.Subscription) bool {
		return sub.UserID == userID && sub.Status != domain.SubscriptionExpired
	})
	if err != nil {
		return domain.Subscription{}, false, err
	}
	if len(mine) == 0 {
		return domain.Subscription{}, false, nil
	}
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })
	return mine[0], true, nil
}

// Subscribe remplace l'abonnement en cours (l'ancien passe à expired).
func (s *SubscriptionService) Subscribe(ctx context.Context, actor Actor, in SubscribeInput) (domain.Subscription, error) {
	if actor.Anonymous() {
		return domain.Subscription{}, ErrUnauthorized
	}
	plan, ok := domain.PlanByID(in.Plan)
	if !ok {
		return domain.Subscription{}, validate.Field("plan", "must be one of: free basic premium")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if prev, ok, err := s.current(ctx, actor.UserID); err != nil {
		return domain.Subscription{}, err
	} else if ok {
		prev.Status = domain.SubscriptionExpired
		prev.AutoRenew = false
		prev.UpdatedAt = now
		if err := s.items.put(ctx, prev); err != nil {
			return domain.Subscription{}, err
		}
	}

	sub := domain.Subscription{
		ID:        xid.New().String(),
		UserID:    actor.UserID,
		Plan:      plan.ID,
		Status:    domain.SubscriptionActive,
		AutoRenew: plan.PeriodDays > 0,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.AutoRenew != nil && plan.PeriodDays > 0 {
		sub.AutoRenew = *in.AutoRenew
	}
	if plan.PeriodDays > 0 {
		sub.ExpiresAt = now.AddDate(0, 0, plan.PeriodDays)
	}
	if err := validate.Struct(sub); err != nil {
		return domain.Subscription{}, err
	}
	if err := s.items.put(ctx, sub); err != nil {
		return domain.Subscription{}, err
	}
	publish(s.bus, TopicSubscriptionUpdated, sub)
	return sub, nil
}

// Cancel garde l'accès jusqu'à ExpiresAt et coupe le renouvellement.
func (s *SubscriptionService) Cancel(ctx context.Context, actor Actor) (domain.Subscription, error) {
	if actor.Anonymous() {
		return domain.Subscription{}, ErrUnauthorized
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok, err := s.current(ctx, actor.UserID)
	if err != nil {
		return domain.Subscription{}, err
	}
	if !ok {
		return domain.Subscription{}, ErrNotFound
	}
	if sub.Status == domain.SubscriptionCanceled {
		return sub, nil
	}
	now := s.now()
	sub.AutoRenew = false
	sub.CanceledAt = now
	sub.UpdatedAt = now
	if sub.ExpiresAt.IsZero() {
		// plan gratuit: rien à conserver.
		sub.Status = domain.SubscriptionExpired
	} else {
		sub.Status = domain.SubscriptionCanceled
	}
	if err := s.items.put(ctx, sub); err != nil {
		return domain.Subscription{}, err
	}
	publish(s.bus, TopicSubscriptionUpdated, sub)
	return sub, nil
}

// Current renvoie ErrNotFound si l'utilisateur n'a aucun abonnement.
func (s *SubscriptionService) Current(ctx context.Context, userID string) (domain.Subscription, error) {
	sub, ok, err := s.current(ctx, userID)
	if err != nil {
		return domain.Subscription{}, err
	}
	if !ok {
		return domain.Subscription{}, ErrNotFound
	}
	return sub, nil
}

// EffectivePlan: sans abonnement valide, l'utilisateur est sur le plan gratuit.
func (s *SubscriptionService) EffectivePlan(ctx context.Context, userID string) (domain.Plan, error) {
	free, _ := domain.PlanByID(domain.PlanFree)
	sub, ok, err := s.current(ctx, userID)
	if err != nil {
		return domain.Plan{}, err
	}
	if !ok || !sub.Entitled(s.now()) {
		return free, nil
	}
	plan, found := domain.PlanByID(sub.Plan)
	if !found {
		return free, nil
	}
	return plan, nil
}

func (s *SubscriptionService) List(ctx context.Context, status domain.SubscriptionStatus) ([]domain.Subscription, error) {
	out, err := s.items.filter(ctx, func(sub domain.Subscription) bool { return status == "" || sub.Status == status })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ActiveByPlan compte les abonnements qui donnent accès, par plan.
func (s *SubscriptionService) ActiveByPlan(ctx context.Context) (map[domain.PlanID]int, error) {
	now := s.now()
	all, err := s.items.filter(ctx, func(sub domain.Subscription) bool { return sub.Entitled(now) })
	if err != nil {
		return nil, err
	}
	out := map[domain.PlanID]int{}
	for _, sub := range all {
		out[sub.Plan]++
	}
	return out, nil
}

// Due renvoie au plus limit abonnements échus, les plus anciens d'abord.
func (s *SubscriptionService) Due(ctx context.Context, now time.Time, limit int) ([]domain.Subscription, error) {
	due, err := s.items.filter(ctx, func(sub domain.Subscription) bool { return sub.Due(now) })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].ExpiresAt.Before(due[j].ExpiresAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// ProcessExpiry renouvelle (active + AutoRenew) ou expire un abonnement échu.
func (s *SubscriptionService) ProcessExpiry(ctx context.Context, id string) (domain.Subscription, error) {
	s.mu.Lock()
	sub, err := s.items.get(ctx, id)
	if err != nil {
		s.mu.Unlock()
		return domain.Subscription{}, err
	}
	now := s.now()
	if !sub.Due(now) {
		s.mu.Unlock()
		return sub, nil
	}
	plan, _ := domain.PlanByID(sub.Plan)
	renewed := sub.Status == domain.SubscriptionActive && sub.AutoRenew && plan.PeriodDays > 0
	if renewed {
		// rattrape les périodes manquées si le serveur était arrêté.
		for !now.Before(sub.ExpiresAt) {
			sub.ExpiresAt = sub.ExpiresAt.AddDate(0, 0, plan.PeriodDays)
		}
		sub.RenewedAt = now
	} else {
		sub.Status = domain.SubscriptionExpired
	}
	sub.UpdatedAt = now
	err = s.items.put(ctx, sub)
	s.mu.Unlock()
	if err != nil {
		return domain.Subscription{}, err
	}

	publish(s.bus, TopicSubscriptionUpdated, sub)
	if s.notifier != nil {
		title := "Your " + plan.Name + " subscription has expired"
		body := "Subscribe again to keep watching in " + string(plan.MaxQuality) + "."
		if renewed {
			title = "Your " + plan.Name + " subscription was renewed"
			body = "Next renewal: " + sub.ExpiresAt.Format("2006-01-02") + "."
		}
		if _, err := s.notifier.Notify(ctx, sub.UserID, domain.NotificationSubscription, title, body, "/subscriptions"); err != nil {
			s.logger.Warn().Err(err).Str("subscription_id", sub.ID).Msg("subscription notification failed")
		}
	}
	return sub, nil
}
