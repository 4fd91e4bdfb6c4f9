package server

import (
	"fmt"
	"sync"
	"time"
)

// GuardConfig tunes the polling guard.
type GuardConfig struct {
	// Window is the sliding window length.
	Window time.Duration
	// MaxRequests is the request budget per window.
	MaxRequests int
	// MinInterval is the smallest allowed gap between two requests of one key.
	MinInterval time.Duration
	// Penalty is how long a violating key stays blocked.
	Penalty time.Duration
}

// DefaultGuardConfig matches the polling surface's production tuning.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		Window:      10 * time.Second,
		MaxRequests: 30,
		MinInterval: 100 * time.Millisecond,
		Penalty:     30 * time.Second,
	}
}

// RateLimitError is the "too many requests" signal with a retry hint.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter.Round(time.Second))
}

type guardEntry struct {
	windowStart  time.Time
	count        int
	lastRequest  time.Time
	penaltyUntil time.Time
}

// PollingGuard is a sliding-window-plus-penalty limiter protecting the
// fallback polling surface. Keys combine client address and session id so
// one misbehaving client cannot exhaust another's budget.
type PollingGuard struct {
	cfg GuardConfig
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*guardEntry
}

// NewPollingGuard creates a guard with the given tuning. Zero-valued fields
// fall back to the defaults.
func NewPollingGuard(cfg GuardConfig) *PollingGuard {
	def := DefaultGuardConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = def.MaxRequests
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = def.MinInterval
	}
	if cfg.Penalty <= 0 {
		cfg.Penalty = def.Penalty
	}
	return &PollingGuard{
		cfg:     cfg,
		now:     time.Now,
		entries: make(map[string]*guardEntry),
	}
}

// Allow records one request for (addr, sessionID) and decides whether it may
// proceed. A violation extends the key's penalty; an existing penalty never
// shrinks.
func (g *PollingGuard) Allow(addr, sessionID string) error {
	key := addr + "|" + sessionID
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[key]
	if !ok {
		e = &guardEntry{windowStart: now}
		g.entries[key] = e
	}

	if now.Sub(e.windowStart) >= g.cfg.Window {
		e.windowStart = now
		e.count = 0
		e.penaltyUntil = time.Time{}
	}

	tooFast := !e.lastRequest.IsZero() && now.Sub(e.lastRequest) < g.cfg.MinInterval
	e.count++
	e.lastRequest = now

	if tooFast || e.count > g.cfg.MaxRequests {
		if until := now.Add(g.cfg.Penalty); until.After(e.penaltyUntil) {
			e.penaltyUntil = until
		}
	}

	if now.Before(e.penaltyUntil) {
		return &RateLimitError{RetryAfter: e.penaltyUntil.Sub(now)}
	}
	return nil
}

// Prune drops entries idle for longer than the window plus the penalty,
// bounding memory under key churn.
func (g *PollingGuard) Prune() {
	now := g.now()
	keep := g.cfg.Window + g.cfg.Penalty

	g.mu.Lock()
	defer g.mu.Unlock()
	for key, e := range g.entries {
		if now.Sub(e.lastRequest) > keep {
			delete(g.entries, key)
		}
	}
}
