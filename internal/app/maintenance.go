package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/ports"
)

const (
	maintenanceHistorySize = 10
	// Target utilisé pour le ping du store et l'échantillon mémoire.
	databaseTarget = "database"
	memoryTarget   = "memory"
	// Durée maximale d'un passage, même lancé depuis une requête HTTP annulée.
	maintenanceRunTimeout = 2 * time.Minute
)

// MaintenanceObserver reçoit chaque rapport (métriques).
type MaintenanceObserver interface {
	ObserveMaintenance(r domain.MaintenanceReport)
}

// Pinger vérifie que le store répond.
type Pinger interface {
	Ping(ctx context.Context) error
}

type MaintenanceOptions struct {
	Targets           []domain.Target
	SlowThreshold     time.Duration
	RequestTimeout    time.Duration
	MemoryThresholdMB int
}

type MaintenanceService struct {
	logger   zerolog.Logger
	opts     MaintenanceOptions
	prober   ports.Prober
	store    Pinger
	limiter  *CheckLimiter
	security *SecurityService
	bus      ports.EventBus
	observer MaintenanceObserver
	now      func() time.Time

	sampleMemory func() domain.MemorySample
	freeMemory   func()

	mu      sync.Mutex
	running *maintenanceRun
	last    *domain.MaintenanceReport
	history []domain.MaintenanceSummary
}

type maintenanceRun struct {
	done   chan struct{}
	report domain.MaintenanceReport
}

func NewMaintenanceService(logger zerolog.Logger, opts MaintenanceOptions, prober ports.Prober, store Pinger, limiter *CheckLimiter, security *SecurityService, bus ports.EventBus) *MaintenanceService {
	if opts.SlowThreshold <= 0 {
		opts.SlowThreshold = 3 * time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if limiter == nil {
		limiter = NewCheckLimiter(4)
	}
	return &MaintenanceService{
		logger:       logger,
		opts:         opts,
		prober:       prober,
		store:        store,
		limiter:      limiter,
		security:     security,
		bus:          bus,
		now:          func() time.Time { return time.Now().UTC() },
		sampleMemory: readMemory,
		freeMemory:   debug.FreeOSMemory,
	}
}

func (s *MaintenanceService) SetObserver(o MaintenanceObserver) {
	s.observer = o
}

func (s *MaintenanceService) Targets() []domain.Target {
	return append([]domain.Target(nil), s.opts.Targets...)
}

// RunNow lance un passage. Si un passage est déjà en cours, RunNow attend
// et renvoie son résultat au lieu d'en démarrer un second.
func (s *MaintenanceService) RunNow(ctx context.Context) (domain.MaintenanceReport, error) {
	s.mu.Lock()
	run := s.running
	if run == nil {
		run = &maintenanceRun{done: make(chan struct{})}
		s.running = run
		go s.execute(context.WithoutCancel(ctx), run)
	}
	s.mu.Unlock()

	select {
	case <-run.done:
		return run.report, nil
	case <-ctx.Done():
		return domain.MaintenanceReport{}, ctx.Err()
	}
}

// Running indique si un passage est en cours.
func (s *MaintenanceService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running != nil
}

func (s *MaintenanceService) execute(ctx context.Context, run *maintenanceRun) {
	ctx, cancel := context.WithTimeout(ctx, maintenanceRunTimeout)
	defer cancel()

	report := s.run(ctx)
	if s.observer != nil {
		s.observer.ObserveMaintenance(report)
	}
	publish(s.bus, TopicMaintenanceReport, report.Summary())

	s.mu.Lock()
	s.last = &report
	s.history = append([]domain.MaintenanceSummary{report.Summary()}, s.history...)
	if len(s.history) > maintenanceHistorySize {
		s.history = s.history[:maintenanceHistorySize]
	}
	run.report = report
	s.running = nil
	s.mu.Unlock()
	close(run.done)
}

func (s *MaintenanceService) run(ctx context.Context) domain.MaintenanceReport {
	started := s.now()
	report := domain.MaintenanceReport{
		ID:        xid.New().String(),
		StartedAt: started,
		Checks:    []domain.CheckResult{},
		Issues:    []domain.Issue{},
		Fixes:     []string{},
	}

	targets := s.opts.Targets
	checks := make([]domain.CheckResult, len(targets))
	issues := make([][]domain.Issue, len(targets))
	var dbCheck domain.CheckResult
	var dbIssues []domain.Issue

	s.limiter.resetPeak()
	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			err := s.limiter.Run(ctx, t.Name, func(ctx context.Context) {
				checks[i], issues[i] = s.probe(ctx, t)
			})
			var slot *SlotError
			if errors.As(err, &slot) {
				checks[i] = domain.CheckResult{Target: t.Name, URL: t.URL, Error: slot.Error()}
				issues[i] = []domain.Issue{skippedIssue(t, slot)}
			}
			return nil
		})
	}
	g.Go(func() error {
		dbCheck, dbIssues = s.pingStore(ctx)
		return nil
	})
	_ = g.Wait()
	report.Concurrency = domain.CheckConcurrency{Limit: s.limiter.Limit(), Peak: s.limiter.resetPeak()}

	report.Checks = append(report.Checks, checks...)
	report.Checks = append(report.Checks, dbCheck)
	for _, is := range issues {
		report.Issues = append(report.Issues, is...)
	}
	report.Issues = append(report.Issues, dbIssues...)

	mem, memIssue, fix := s.checkMemory()
	report.Memory = mem
	if memIssue != nil {
		report.Issues = append(report.Issues, *memIssue)
	}
	if fix != "" {
		report.Fixes = append(report.Fixes, fix)
	}

	for i := range report.Issues {
		report.Issues[i].ID = xid.New().String()
		report.Issues[i].DetectedAt = started
	}

	report.FinishedAt = s.now()
	report.Duration = report.FinishedAt.Sub(started)
	report.Health = domain.HealthFor(report.Issues)

	s.logReport(report)
	s.raiseCritical(ctx, report)
	return report
}

func (s *MaintenanceService) probe(ctx context.Context, t domain.Target) (domain.CheckResult, []domain.Issue) {
	pctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	res, err := s.prober.Probe(pctx, t.URL)
	check := domain.CheckResult{
		Target:     t.Name,
		URL:        t.URL,
		StatusCode: res.StatusCode,
		Latency:    res.Latency,
	}
	if err != nil {
		check.Error = err.Error()
	}
	issues := s.classify(t, res, err)
	check.OK = err == nil && res.StatusCode < http.StatusBadRequest
	return check, issues
}

// classify transforme le résultat d'une sonde en problèmes.
// skippedIssue: une cible non sondée faute de place. Critique si la cible l'est.
func skippedIssue(t domain.Target, slot *SlotError) domain.Issue {
	sev := domain.SeverityMedium
	if t.Critical {
		sev = domain.SeverityCritical
	}
	return domain.Issue{Type: domain.IssueCheckSkipped, Severity: sev, Target: t.Name,
		Message: fmt.Sprintf("check skipped: waited %s for a slot", slot.Waited.Round(time.Millisecond))}
}

func (s *MaintenanceService) classify(t domain.Target, res ports.ProbeResult, err error) []domain.Issue {
	var out []domain.Issue
	if err != nil {
		sev := domain.SeverityHigh
		if t.Critical {
			sev = domain.SeverityCritical
		}
		msg := "unreachable: " + err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("unreachable: no response within %s", s.opts.RequestTimeout)
		}
		return append(out, domain.Issue{Type: domain.IssueUnreachable, Severity: sev, Target: t.Name, Message: msg})
	}

	switch code := res.StatusCode; {
	case code >= http.StatusInternalServerError:
		out = append(out, domain.Issue{Type: domain.IssueServerError, Severity: domain.SeverityHigh, Target: t.Name,
			Message: fmt.Sprintf("server error: HTTP %d", code)})
	case code == http.StatusNotFound:
		out = append(out, domain.Issue{Type: domain.IssueBrokenLink, Severity: domain.SeverityMedium, Target: t.Name,
			Message: "broken link: HTTP 404"})
	case code >= http.StatusBadRequest:
		out = append(out, domain.Issue{Type: domain.IssueClientError, Severity: domain.SeverityLow, Target: t.Name,
			Message: fmt.Sprintf("client error: HTTP %d", code)})
	}

	if slow := s.opts.SlowThreshold; res.Latency > slow {
		sev := domain.SeverityLow
		if res.Latency > 3*slow {
			sev = domain.SeverityMedium
		}
		out = append(out, domain.Issue{Type: domain.IssueSlowResponse, Severity: sev, Target: t.Name,
			Message: fmt.Sprintf("slow response: %s (threshold %s)", res.Latency.Round(time.Millisecond), slow)})
	}
	return out
}

func (s *MaintenanceService) pingStore(ctx context.Context) (domain.CheckResult, []domain.Issue) {
	check := domain.CheckResult{Target: databaseTarget}
	if s.store == nil {
		check.OK = true
		return check, nil
	}
	start := time.Now()
	err := s.store.Ping(ctx)
	check.Latency = time.Since(start)
	if err == nil {
		check.OK = true
		return check, nil
	}
	check.Error = err.Error()
	return check, []domain.Issue{{
		Type:     domain.IssueDatabase,
		Severity: domain.SeverityCritical,
		Target:   databaseTarget,
		Message:  "database ping failed: " + err.Error(),
	}}
}

// checkMemory: au-delà du seuil, un indice au GC est la seule correction automatique.
func (s *MaintenanceService) checkMemory() (domain.MemorySample, *domain.Issue, string) {
	mem := s.sampleMemory()
	threshold := uint64(s.opts.MemoryThresholdMB) << 20
	if s.opts.MemoryThresholdMB <= 0 || mem.HeapAllocBytes <= threshold {
		return mem, nil, ""
	}
	issue := &domain.Issue{
		Type:     domain.IssueMemory,
		Severity: domain.SeverityMedium,
		Target:   memoryTarget,
		Message:  fmt.Sprintf("heap %d MB above threshold %d MB", mem.HeapAllocBytes>>20, s.opts.MemoryThresholdMB),
	}
	if s.freeMemory == nil {
		return mem, issue, ""
	}
	s.freeMemory()
	issue.AutoFixed = true
	after := s.sampleMemory()
	fix := fmt.Sprintf("freed OS memory: heap %d MB -> %d MB", mem.HeapAllocBytes>>20, after.HeapAllocBytes>>20)
	return after, issue, fix
}

func readMemory() domain.MemorySample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return domain.MemorySample{
		HeapAllocBytes: ms.HeapAlloc,
		SysBytes:       ms.Sys,
		NumGC:          ms.NumGC,
		Goroutines:     runtime.NumGoroutine(),
	}
}

func (s *MaintenanceService) logReport(r domain.MaintenanceReport) {
	for _, is := range r.Issues {
		var evt *zerolog.Event
		switch is.Severity {
		case domain.SeverityLow:
			evt = s.logger.Info()
		case domain.SeverityMedium:
			evt = s.logger.Warn()
		default:
			evt = s.logger.Error()
		}
		evt.Str("report_id", r.ID).
			Str("type", string(is.Type)).
			Str("severity", string(is.Severity)).
			Str("target", is.Target).
			Bool("auto_fixed", is.AutoFixed).
			Msg(is.Message)
	}
	s.logger.Info().
		Str("report_id", r.ID).
		Str("health", string(r.Health)).
		Int("checks", len(r.Checks)).
		Int("issues", len(r.Issues)).
		Dur("duration", r.Duration).
		Msg("maintenance run finished")
}

// raiseCritical crée une alerte de sécurité par problème critique (dédoublonnée).
func (s *MaintenanceService) raiseCritical(ctx context.Context, r domain.MaintenanceReport) {
	if s.security == nil {
		return
	}
	for _, is := range r.Issues {
		if is.Severity != domain.SeverityCritical {
			continue
		}
		_, created, err := s.security.RaiseOnce(ctx, AlertInput{
			Type:     domain.AlertMaintenance,
			Severity: domain.SeverityCritical,
			Message:  "maintenance: " + is.Target + ": " + is.Message,
		})
		if err != nil {
			s.logger.Error().Err(err).Str("target", is.Target).Msg("raise maintenance alert failed")
			continue
		}
		if created {
			s.logger.Warn().Str("target", is.Target).Msg("maintenance alert raised")
		}
	}
}

// Report renvoie le dernier rapport (false avant le premier passage).
func (s *MaintenanceService) Report() (domain.MaintenanceReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return domain.MaintenanceReport{}, false
	}
	return *s.last, true
}

// History renvoie les derniers résumés, le plus récent d'abord.
func (s *MaintenanceService) History() []domain.MaintenanceSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.MaintenanceSummary{}, s.history...)
}

func (s *MaintenanceService) LatestSummary() (domain.MaintenanceSummary, bool) {
	r, ok := s.Report()
	if !ok {
		return domain.MaintenanceSummary{}, false
	}
	return r.Summary(), true
}
