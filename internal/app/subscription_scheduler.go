package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// SubscriptionScheduler renouvelle ou expire les abonnements échus.
type SubscriptionScheduler struct {
	logger zerolog.Logger
	subs   *SubscriptionService
	now    func() time.Time

	TickInterval time.Duration
	BatchSize    int
}

func NewSubscriptionScheduler(logger zerolog.Logger, subs *SubscriptionService) *SubscriptionScheduler {
	return &SubscriptionScheduler{
		logger:       logger,
		subs:         subs,
		now:          func() time.Time { return time.Now().UTC() },
		TickInterval: 60 * time.Second,
		BatchSize:    50,
	}
}

func (sch *SubscriptionScheduler) Run(ctx context.Context) {
	interval := sch.TickInterval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// un premier passage au démarrage rattrape les échéances manquées.
	sch.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			sch.logger.Info().Msg("subscription scheduler stopped")
			return
		case <-ticker.C:
			sch.tick(ctx)
		}
	}
}

// tick renvoie le nombre d'abonnements traités.
func (sch *SubscriptionScheduler) tick(ctx context.Context) int {
	if sch.subs == nil {
		return 0
	}
	limit := sch.BatchSize
	if limit <= 0 {
		limit = 50
	}

	due, err := sch.subs.Due(ctx, sch.now(), limit)
	if err != nil {
		sch.logger.Error().Err(err).Msg("scheduler due query failed")
		return 0
	}
	processed := 0
	for _, sub := range due {
		select {
		case <-ctx.Done():
			return processed
		default:
		}

		updated, err := sch.subs.ProcessExpiry(ctx, sub.ID)
		if err != nil {
			sch.logger.Warn().Err(err).Str("subscription_id", sub.ID).Msg("subscription expiry failed")
			continue
		}
		processed++
		sch.logger.Info().
			Str("subscription_id", updated.ID).
			Str("user_id", updated.UserID).
			Str("status", string(updated.Status)).
			Time("expires_at", updated.ExpiresAt).
			Msg("subscription processed")
	}
	return processed
}
