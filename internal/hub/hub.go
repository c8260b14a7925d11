// Package hub holds what both vendor adapters share: identity, light
// selection, the last-changed timestamp used for echo suppression, and the
// error kinds the sync loop distinguishes.
package hub

import (
	"context"
	"sync"
	"time"
)

// Defaults for the named timing constants.
const (
	DefaultEchoWindow      = 5 * time.Second
	DefaultBrightnessSteps = 8
	MaxBrightness          = 255
	MinBrightness          = 1
)

// Clock returns the current time. Tests swap it for a controllable one.
type Clock func() time.Time

// Config identifies a hub and the lights it watches and controls.
// Indices are vendor specific and are never renormalized.
type Config struct {
	Address    string
	Secret     string
	Main       int
	Controlled []int
}

// Hub is one side of the synchronization.
type Hub interface {
	Name() string
	// DetectChange reports whether the watched light changed since the last
	// call, ignoring changes that fall in the counterpart's echo window.
	DetectChange(ctx context.Context) (bool, error)
	// Update propagates a detected change to the counterpart.
	Update(ctx context.Context) error
}

// Controller is manual control that bypasses change detection.
type Controller interface {
	SetColorByIndex(ctx context.Context, i int) error
	CycleColorNext(ctx context.Context) error
	CycleColorPrev(ctx context.Context) error
	IncreaseBrightness(ctx context.Context) error
	DecreaseBrightness(ctx context.Context) error
}

// Base carries the state common to every adapter.
type Base struct {
	Config

	mu          sync.RWMutex
	now         Clock
	lastChanged time.Time
}

// NewBase creates a Base whose last change is "now", so nothing propagates
// during the first echo window after startup.
func NewBase(cfg Config, clock Clock) *Base {
	if clock == nil {
		clock = time.Now
	}
	controlled := make([]int, len(cfg.Controlled))
	copy(controlled, cfg.Controlled)
	cfg.Controlled = controlled

	return &Base{
		Config:      cfg,
		now:         clock,
		lastChanged: clock(),
	}
}

// Now returns the current time from the hub's clock.
func (b *Base) Now() time.Time {
	return b.now()
}

// MarkChangedNow records that this hub is about to cause an external change.
func (b *Base) MarkChangedNow() {
	b.mu.Lock()
	b.lastChanged = b.now()
	b.mu.Unlock()
}

// LastChanged returns the time of the last outward push.
func (b *Base) LastChanged() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastChanged
}

// RecentlyChanged reports whether the last outward push is younger than window.
func (b *Base) RecentlyChanged(window time.Duration) bool {
	return b.now().Sub(b.LastChanged()) < window
}

// NextIndex moves i by delta inside [0,n) with wraparound.
func NextIndex(i, delta, n int) int {
	if n <= 0 {
		return 0
	}
	return ((i+delta)%n + n) % n
}

// StepBrightness moves brightness one step of MaxBrightness/steps up or down,
// clamped to [MinBrightness, MaxBrightness].
func StepBrightness(current, steps int, up bool) int {
	if steps <= 0 {
		steps = DefaultBrightnessSteps
	}
	step := MaxBrightness / steps
	if up {
		current += step
	} else {
		current -= step
	}
	if current > MaxBrightness {
		return MaxBrightness
	}
	if current < MinBrightness {
		return MinBrightness
	}
	return current
}
