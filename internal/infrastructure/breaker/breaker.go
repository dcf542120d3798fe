// Package breaker implements a per-source circuit breaker that isolates a
// failing upstream source so it cannot starve processing of healthy sources.
package breaker

import (
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds circuit breaker thresholds
type Config struct {
	ConsecutiveThreshold int           // consecutive failures before opening
	ErrorRateThreshold   float64       // trailing error rate before opening
	Window               time.Duration // trailing window for error rate
	WindowCapacity       int           // max samples retained per source
	Cooldown             time.Duration // open duration before auto-recovery
	MinSamples           int           // samples required before rate is evaluated
}

// DefaultConfig returns the thresholds used in production
func DefaultConfig() Config {
	return Config{
		ConsecutiveThreshold: 5,
		ErrorRateThreshold:   0.15,
		Window:               10 * time.Minute,
		WindowCapacity:       50,
		Cooldown:             60 * time.Minute,
		MinSamples:           3,
	}
}

// normalize fills zero values with defaults
func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.ConsecutiveThreshold <= 0 {
		c.ConsecutiveThreshold = def.ConsecutiveThreshold
	}
	if c.ErrorRateThreshold <= 0 {
		c.ErrorRateThreshold = def.ErrorRateThreshold
	}
	if c.Window <= 0 {
		c.Window = def.Window
	}
	if c.WindowCapacity <= 0 {
		c.WindowCapacity = def.WindowCapacity
	}
	if c.Cooldown <= 0 {
		c.Cooldown = def.Cooldown
	}
	if c.MinSamples <= 0 {
		c.MinSamples = def.MinSamples
	}
	return c
}

// sample is one recorded parse outcome
type sample struct {
	at      time.Time
	success bool
}

// sourceState holds the breaker state for a single source. All fields are
// guarded by mu so that two concurrent failures cannot both miss the
// threshold crossing.
type sourceState struct {
	mu                sync.Mutex
	samples           []sample
	consecutiveErrors int
	openedAt          *time.Time
	lastSuccess       *time.Time
	totalRequests     int64
	totalFailures     int64
}

// SourceStats is a point-in-time snapshot for observability
type SourceStats struct {
	SourceID          string     `json:"source_id"`
	Requests          int64      `json:"requests"`
	Failures          int64      `json:"failures"`
	ErrorRate         float64    `json:"error_rate"`
	WindowSamples     int        `json:"window_samples"`
	WindowErrorRate   float64    `json:"window_error_rate"`
	ConsecutiveErrors int        `json:"consecutive_errors"`
	Open              bool       `json:"open"`
	OpenedAt          *time.Time `json:"opened_at,omitempty"`
	LastSuccess       *time.Time `json:"last_success,omitempty"`
}

// SourceBreaker tracks failures per source id. It is an explicitly
// constructed, injected service; tests build isolated instances with their
// own clock.
type SourceBreaker struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu      sync.RWMutex
	sources map[string]*sourceState
}

// Option is a functional option for configuring SourceBreaker
type Option func(*SourceBreaker)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) Option {
	return func(b *SourceBreaker) {
		b.logger = logger
	}
}

// WithClock overrides the time source, used by tests to simulate cooldown
func WithClock(now func() time.Time) Option {
	return func(b *SourceBreaker) {
		b.now = now
	}
}

// NewSourceBreaker creates a breaker with the given thresholds
func NewSourceBreaker(cfg Config, opts ...Option) *SourceBreaker {
	b := &SourceBreaker{
		cfg:     cfg.normalize(),
		logger:  zap.NewNop(),
		now:     time.Now,
		sources: make(map[string]*sourceState),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// state returns the per-source state, creating it on first use
func (b *SourceBreaker) state(sourceID string) *sourceState {
	b.mu.RLock()
	s, ok := b.sources[sourceID]
	b.mu.RUnlock()
	if ok {
		return s
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok = b.sources[sourceID]; ok {
		return s
	}
	s = &sourceState{}
	b.sources[sourceID] = s
	return s
}

// RecordResult appends a parse outcome for a source and re-evaluates
// whether the circuit should open. The append, counter update and open
// decision happen under one lock per source.
func (b *SourceBreaker) RecordResult(sourceID string, success bool) {
	now := b.now()
	s := b.state(sourceID)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = append(s.samples, sample{at: now, success: success})
	if len(s.samples) > b.cfg.WindowCapacity {
		s.samples = s.samples[len(s.samples)-b.cfg.WindowCapacity:]
	}

	s.totalRequests++
	if success {
		s.consecutiveErrors = 0
		ts := now
		s.lastSuccess = &ts
	} else {
		s.totalFailures++
		s.consecutiveErrors++
	}

	if s.openedAt != nil {
		return
	}

	if s.consecutiveErrors >= b.cfg.ConsecutiveThreshold {
		b.open(sourceID, s, now, fmt.Sprintf("%d consecutive failures", s.consecutiveErrors))
		return
	}

	samples, failures := s.windowCounts(now, b.cfg.Window)
	if samples >= b.cfg.MinSamples {
		rate := float64(failures) / float64(samples)
		if rate > b.cfg.ErrorRateThreshold {
			b.open(sourceID, s, now, fmt.Sprintf("error rate %.2f over trailing window", rate))
		}
	}
}

// open marks the circuit open. Caller must hold s.mu.
func (b *SourceBreaker) open(sourceID string, s *sourceState, now time.Time, reason string) {
	ts := now
	s.openedAt = &ts
	b.logger.Warn("Circuit opened for source",
		zap.String("source_id", sourceID),
		zap.String("reason", reason),
		zap.Duration("cooldown", b.cfg.Cooldown),
	)
}

// Availability reports whether new parse attempts may be dispatched for a
// source. An open circuit auto-recovers once the cooldown has elapsed: the
// open flag is cleared and the consecutive counter reset, an implicit trial
// state with no separate half-open bookkeeping.
func (b *SourceBreaker) Availability(sourceID string) (bool, string) {
	now := b.now()
	s := b.state(sourceID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.openedAt == nil {
		return true, ""
	}

	elapsed := now.Sub(*s.openedAt)
	if elapsed >= b.cfg.Cooldown {
		s.openedAt = nil
		s.consecutiveErrors = 0
		b.logger.Info("Circuit recovered after cooldown", zap.String("source_id", sourceID))
		return true, ""
	}

	remaining := b.cfg.Cooldown - elapsed
	return false, fmt.Sprintf("source %s is unavailable, retry in ~%d minutes",
		sourceID, int(math.Ceil(remaining.Minutes())))
}

// Stats returns a snapshot of a source's breaker state for monitoring
func (b *SourceBreaker) Stats(sourceID string) SourceStats {
	now := b.now()
	s := b.state(sourceID)

	s.mu.Lock()
	defer s.mu.Unlock()

	stats := SourceStats{
		SourceID:          sourceID,
		Requests:          s.totalRequests,
		Failures:          s.totalFailures,
		ConsecutiveErrors: s.consecutiveErrors,
		Open:              s.openedAt != nil,
		OpenedAt:          s.openedAt,
		LastSuccess:       s.lastSuccess,
	}
	if s.totalRequests > 0 {
		stats.ErrorRate = float64(s.totalFailures) / float64(s.totalRequests)
	}
	samples, failures := s.windowCounts(now, b.cfg.Window)
	stats.WindowSamples = samples
	if samples > 0 {
		stats.WindowErrorRate = float64(failures) / float64(samples)
	}
	return stats
}

// AllStats returns snapshots for every source seen so far
func (b *SourceBreaker) AllStats() []SourceStats {
	b.mu.RLock()
	ids := make([]string, 0, len(b.sources))
	for id := range b.sources {
		ids = append(ids, id)
	}
	b.mu.RUnlock()

	stats := make([]SourceStats, 0, len(ids))
	for _, id := range ids {
		stats = append(stats, b.Stats(id))
	}
	return stats
}

// windowCounts counts samples and failures inside the trailing window.
// Caller must hold s.mu.
func (s *sourceState) windowCounts(now time.Time, window time.Duration) (int, int) {
	cutoff := now.Add(-window)
	samples, failures := 0, 0
	for _, smp := range s.samples {
		if smp.at.Before(cutoff) {
			continue
		}
		samples++
		if !smp.success {
			failures++
		}
	}
	return samples, failures
}
