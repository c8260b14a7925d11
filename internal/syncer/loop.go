// Package syncer drives the polling loop that keeps the two hubs in step.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huefri/internal/hub"
	"github.com/dokzlo13/huefri/internal/metrics"
)

// DefaultInterval is the delay between two cycles.
const DefaultInterval = time.Second

// State is the lifecycle state of a Loop.
type State int32

const (
	StateUninitialized State = iota
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ErrNotRunning is returned by Submit when the loop has stopped.
var ErrNotRunning = errors.New("sync loop is not running")

// Options tune a Loop.
type Options struct {
	Interval time.Duration
	Recorder hub.Recorder
}

// Loop updates the secondary hub, then the primary hub, once per cycle.
// All hub state is touched from the goroutine running Run only; manual
// commands are handed to that goroutine and executed between cycles.
type Loop struct {
	hubs        []hub.Hub
	controllers map[string]hub.Controller
	interval    time.Duration
	recorder    hub.Recorder

	commands chan command
	state    atomic.Int32
	cycles   atomic.Uint64
	done     chan struct{}
}

// New creates a loop over secondary and primary. Hubs that also implement
// hub.Controller accept manual commands under their Name.
func New(secondary, primary hub.Hub, opts Options) *Loop {
	if opts.Interval == 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Recorder == nil {
		opts.Recorder = hub.NopRecorder{}
	}

	l := &Loop{
		hubs:        []hub.Hub{secondary, primary},
		controllers: make(map[string]hub.Controller),
		interval:    opts.Interval,
		recorder:    opts.Recorder,
		commands:    make(chan command),
		done:        make(chan struct{}),
	}
	for _, h := range l.hubs {
		if c, ok := h.(hub.Controller); ok {
			l.controllers[h.Name()] = c
		}
	}
	return l
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Cycles returns the number of completed cycles.
func (l *Loop) Cycles() uint64 {
	return l.cycles.Load()
}

// Run polls until ctx is cancelled. Errors inside a cycle are logged and
// never stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	if !l.state.CompareAndSwap(int32(StateUninitialized), int32(StateRunning)) {
		return fmt.Errorf("sync loop already %s", l.State())
	}
	defer func() {
		l.state.Store(int32(StateTerminated))
		close(l.done)
	}()

	log.Info().Dur("interval", l.interval).Msg("Sync loop started")

	for {
		l.RunCycle(ctx)

		timer := time.NewTimer(l.interval)
	wait:
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				log.Info().Msg("Sync loop stopping")
				return nil
			case cmd := <-l.commands:
				cmd.result <- l.execute(ctx, cmd)
			case <-timer.C:
				break wait
			}
		}
	}
}

// RunCycle updates every hub once and returns the errors it logged.
func (l *Loop) RunCycle(ctx context.Context) []error {
	cycle := uuid.NewString()
	status := metrics.StatusOK
	var errs []error

	for _, h := range l.hubs {
		if ctx.Err() != nil {
			break
		}
		err := l.update(ctx, h)
		if err == nil {
			continue
		}
		errs = append(errs, err)

		if hub.IsTimeout(err) {
			log.Warn().Str("hub", h.Name()).Str("cycle", cycle).Msg("Request timeout")
			if status == metrics.StatusOK {
				status = metrics.StatusTimeout
			}
			continue
		}

		status = metrics.StatusError
		ev := log.Error().Err(err).Str("hub", h.Name()).Str("cycle", cycle)
		var p *panicError
		if errors.As(err, &p) {
			ev = ev.Str("stack", p.stack)
		}
		ev.Msg("Unexpected error during sync cycle")
		l.recorder.Record(hub.Event{Kind: hub.EventCycleError, Hub: h.Name(), Err: err})
	}

	metrics.RecordCycle(status)
	l.cycles.Add(1)
	return errs
}

type panicError struct {
	value any
	stack string
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}

func (l *Loop) update(ctx context.Context, h hub.Hub) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: string(debug.Stack())}
		}
	}()
	return h.Update(ctx)
}
