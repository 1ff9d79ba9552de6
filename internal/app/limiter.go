package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/yemenflix/yflix/internal/domain"
)

// CheckLimiter borne le nombre de sondes de maintenance simultanées.
// Le plafond suit le réglage MaxConcurrentChecks (SetLimit à chaud).
type CheckLimiter struct {
	mu      sync.Mutex
	limit   int
	active  map[string]int
	running int
	waiting int
	peak    int
	wake    chan struct{}
}

func NewCheckLimiter(limit int) *CheckLimiter {
	return &CheckLimiter{limit: max(limit, 1), active: map[string]int{}, wake: make(chan struct{})}
}

// SlotError: la sonde de Target n'a pas obtenu de place avant la fin du contexte.
type SlotError struct {
	Target string
	Waited time.Duration
	Err    error
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("no check slot for %s after %s: %v", e.Target, e.Waited.Round(time.Millisecond), e.Err)
}

func (e *SlotError) Unwrap() error { return e.Err }

func (l *CheckLimiter) Limit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit
}

func (l *CheckLimiter) SetLimit(limit int) {
	limit = max(limit, 1)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.limit == limit {
		return
	}
	l.limit = limit
	l.broadcastLocked()
}

// Run exécute fn pour target dès qu'une place se libère.
func (l *CheckLimiter) Run(ctx context.Context, target string, fn func(context.Context)) error {
	if err := l.acquire(ctx, target); err != nil {
		return err
	}
	defer l.release(target)
	fn(ctx)
	return nil
}

func (l *CheckLimiter) acquire(ctx context.Context, target string) error {
	start := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.running >= l.limit {
		wake := l.wake
		l.waiting++
		l.mu.Unlock()
		var err error
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-wake:
		}
		l.mu.Lock()
		l.waiting--
		if err != nil {
			return &SlotError{Target: target, Waited: time.Since(start), Err: err}
		}
	}
	l.running++
	l.active[target]++
	l.peak = max(l.peak, l.running)
	return nil
}

func (l *CheckLimiter) release(target string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.running--
	if l.active[target]--; l.active[target] <= 0 {
		delete(l.active, target)
	}
	l.broadcastLocked()
}

// broadcastLocked réveille tous les waiters (close + nouveau channel).
func (l *CheckLimiter) broadcastLocked() {
	close(l.wake)
	l.wake = make(chan struct{})
}

// Snapshot décrit l'occupation courante; Active est trié.
func (l *CheckLimiter) Snapshot() domain.CheckConcurrency {
	l.mu.Lock()
	defer l.mu.Unlock()
	active := make([]string, 0, len(l.active))
	for t := range l.active {
		active = append(active, t)
	}
	sort.Strings(active)
	return domain.CheckConcurrency{Limit: l.limit, Peak: l.peak, Waiting: l.waiting, Active: active}
}

// resetPeak renvoie le pic depuis le dernier appel et repart de l'occupation courante.
func (l *CheckLimiter) resetPeak() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.peak
	l.peak = l.running
	return p
}
