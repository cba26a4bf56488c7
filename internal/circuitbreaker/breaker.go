// v1
// internal/circuitbreaker/breaker.go

// Package circuitbreaker protects the ingest path against a flapping
// broker: after a run of consecutive failures the breaker opens and
// fast-fails callers until a probe succeeds, so a dead Kafka endpoint
// cannot pin every consumer goroutine in blocking fetches.
package circuitbreaker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// State enumerates the breaker lifecycle.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// ErrOpen is returned when the breaker refuses an operation without
// attempting it.
var ErrOpen = errors.New("circuit breaker is open; fast-fail")

// Config holds the breaker tunables.
type Config struct {
	// MaxFailures is the number of consecutive failures before opening.
	MaxFailures int
	// ResetTimeout is how long the breaker stays open before probing.
	ResetTimeout time.Duration
	// SuccessesToClose is the number of half-open successes required to
	// close again.
	SuccessesToClose int
}

// Breaker is a minimal three-state circuit breaker. It is safe for
// concurrent use.
type Breaker struct {
	name   string
	cfg    Config
	logger *slog.Logger
	probe  func(ctx context.Context) error

	mu           sync.Mutex
	state        State
	recentFails  int
	halfOpenHits int
	openedAt     time.Time
}

// New builds a breaker. The optional probe runs before the first
// half-open attempt; a nil probe means the operation itself is the probe.
func New(name string, cfg Config, logger *slog.Logger, probe func(ctx context.Context) error) *Breaker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.MaxFailures < 1 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.SuccessesToClose < 1 {
		cfg.SuccessesToClose = 1
	}
	b := &Breaker{name: name, cfg: cfg, logger: logger, probe: probe, state: Closed}
	b.logger.Info("breaker_created",
		slog.String("name", name),
		slog.String("state", b.state.String()),
		slog.Int("maxFailures", cfg.MaxFailures),
		slog.Duration("resetTimeout", cfg.ResetTimeout),
	)
	return b
}

// State reports the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Execute runs op under breaker control. While open and inside the reset
// window it fast-fails with ErrOpen; after the window it probes and, on
// success, lets op through half-open.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	state := b.state
	openedAt := b.openedAt
	b.mu.Unlock()

	if state == Open {
		if time.Since(openedAt) < b.cfg.ResetTimeout {
			return ErrOpen
		}
		return b.probeThenRun(ctx, op)
	}

	err := op(ctx)
	if err == nil {
		b.onSuccess()
		return nil
	}
	b.onFailure(err)

	b.mu.Lock()
	nowOpen := b.state == Open
	b.mu.Unlock()
	if nowOpen {
		return ErrOpen
	}
	return err
}

func (b *Breaker) probeThenRun(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	b.state = HalfOpen
	b.halfOpenHits = 0
	b.mu.Unlock()
	b.logger.Info("breaker_probe_start", slog.String("name", b.name))

	if b.probe != nil {
		if err := b.probe(ctx); err != nil {
			b.logger.Warn("breaker_probe_failed", slog.String("name", b.name), slog.Any("err", err))
			b.trip()
			return ErrOpen
		}
	}

	err := op(ctx)
	if err == nil {
		b.onSuccess()
		return nil
	}
	b.logger.Warn("breaker_halfopen_failed", slog.String("name", b.name), slog.Any("err", err))
	b.trip()
	return ErrOpen
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case HalfOpen:
		b.halfOpenHits++
		if b.halfOpenHits >= b.cfg.SuccessesToClose {
			b.state = Closed
			b.recentFails = 0
			b.halfOpenHits = 0
			b.logger.Info("breaker_closed", slog.String("name", b.name))
		}
	default:
		b.recentFails = 0
	}
}

func (b *Breaker) onFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recentFails++
	if b.recentFails >= b.cfg.MaxFailures && b.state == Closed {
		b.state = Open
		b.openedAt = time.Now()
		b.logger.Warn("breaker_opened",
			slog.String("name", b.name),
			slog.Int("consecutiveFailures", b.recentFails),
			slog.Any("err", err),
		)
	}
}

func (b *Breaker) trip() {
	b.mu.Lock()
	b.state = Open
	b.openedAt = time.Now()
	b.mu.Unlock()
}
