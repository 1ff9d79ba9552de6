package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// MaintenanceScheduler déclenche les passages de maintenance via cron ("@every 5m").
type MaintenanceScheduler struct {
	logger zerolog.Logger
	svc    *MaintenanceService
	cron   *cron.Cron
	spec   string
}

func NewMaintenanceScheduler(logger zerolog.Logger, svc *MaintenanceService, interval time.Duration) (*MaintenanceScheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("maintenance interval must be positive, got %s", interval)
	}
	cl := cronLogger{logger: logger}
	sch := &MaintenanceScheduler{
		logger: logger,
		svc:    svc,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		spec: "@every " + interval.String(),
	}
	if _, err := sch.cron.AddFunc(sch.spec, sch.runOnce); err != nil {
		return nil, fmt.Errorf("schedule maintenance %q: %w", sch.spec, err)
	}
	return sch, nil
}

func (sch *MaintenanceScheduler) Spec() string {
	return sch.spec
}

func (sch *MaintenanceScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), maintenanceRunTimeout)
	defer cancel()
	if _, err := sch.svc.RunNow(ctx); err != nil {
		sch.logger.Error().Err(err).Msg("scheduled maintenance run failed")
	}
}

// Run démarre cron et bloque jusqu'à l'annulation du contexte.
func (sch *MaintenanceScheduler) Run(ctx context.Context) {
	sch.cron.Start()
	sch.logger.Info().Str("spec", sch.spec).Msg("maintenance scheduler started")
	<-ctx.Done()
	stopped := sch.cron.Stop()
	<-stopped.Done()
	sch.logger.Info().Msg("maintenance scheduler stopped")
}

// cronLogger branche le logger de robfig/cron sur zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
