// Package timer runs match logic on a single goroutine with keyed,
// cancellable timers driven by a quartz.Clock.
package timer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// ErrStopped is returned when work is submitted to a loop that has exited
var ErrStopped = errors.New("timer loop stopped")

const queueSize = 256

type entry struct {
	gen       uint64
	timer     *quartz.Timer
	fn        func()
	deadline  time.Time
	remaining time.Duration
}

// Loop serializes every task and timer callback onto the goroutine running
// Run. Arming a key replaces the timer previously armed with that key, and a
// replaced or cancelled timer never runs, even if it already fired and its
// callback is still queued.
type Loop struct {
	clock  quartz.Clock
	logger *log.Logger
	grace  time.Duration

	tasks chan func()
	done  chan struct{}

	mu      sync.Mutex
	timers  map[string]*entry
	gen     uint64
	paused  bool
	stopped bool
}

// New creates a loop. grace is added to every remaining duration when the
// loop resumes after a pause.
func New(clock quartz.Clock, grace time.Duration, logger *log.Logger) *Loop {
	return &Loop{
		clock:  clock,
		logger: logger.WithPrefix("timer"),
		grace:  grace,
		tasks:  make(chan func(), queueSize),
		done:   make(chan struct{}),
		timers: make(map[string]*entry),
	}
}

// Run executes tasks until ctx is cancelled. Pending timers are stopped on
// return.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		for key, e := range l.timers {
			if e.timer != nil {
				e.timer.Stop()
			}
			delete(l.timers, key)
		}
		l.mu.Unlock()
		close(l.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Done is closed once Run has returned
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Post queues fn to run on the loop goroutine
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

// Call runs fn on the loop goroutine and waits for it to finish
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AfterFunc arms the timer for key to run fn on the loop goroutine after d,
// cancelling any timer previously armed with the same key. While the loop is
// paused the timer is recorded and armed on Resume.
func (l *Loop) AfterFunc(key string, d time.Duration, fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopLocked(key)
	l.gen++
	e := &entry{gen: l.gen, fn: fn, remaining: d}
	l.timers[key] = e
	if !l.paused {
		l.armLocked(key, e, d)
	}
}

func (l *Loop) armLocked(key string, e *entry, d time.Duration) {
	gen := e.gen
	e.deadline = l.clock.Now().Add(d)
	e.timer = l.clock.AfterFunc(d, func() {
		_ = l.Post(func() { l.fire(key, gen) })
	}, "timer", key)
}

func (l *Loop) fire(key string, gen uint64) {
	l.mu.Lock()
	e, ok := l.timers[key]
	if !ok || e.gen != gen || l.paused {
		l.mu.Unlock()
		return
	}
	delete(l.timers, key)
	l.mu.Unlock()

	e.fn()
}

// Cancel stops the timer armed with key. It reports whether one was pending.
func (l *Loop) Cancel(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopLocked(key)
}

func (l *Loop) stopLocked(key string) bool {
	e, ok := l.timers[key]
	if !ok {
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(l.timers, key)
	return true
}

// Pending reports whether a timer is armed with key
func (l *Loop) Pending(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.timers[key]
	return ok
}

// Deadline returns when the timer armed with key fires. While paused it
// returns the zero time.
func (l *Loop) Deadline(key string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.timers[key]
	if !ok || l.paused {
		return time.Time{}, false
	}
	return e.deadline, true
}

// Paused reports whether timers are frozen
func (l *Loop) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}

// Pause freezes every pending timer, keeping its remaining duration
func (l *Loop) Pause() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.paused {
		return
	}
	l.paused = true

	now := l.clock.Now()
	for _, e := range l.timers {
		if e.timer == nil {
			continue
		}
		e.timer.Stop()
		e.timer = nil
		e.remaining = max(e.deadline.Sub(now), 0)
	}
	l.logger.Debug("Paused", "timers", len(l.timers))
}

// Resume re-arms every frozen timer with its remaining duration plus the
// grace delay.
func (l *Loop) Resume() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.paused || l.stopped {
		return
	}
	l.paused = false

	for key, e := range l.timers {
		l.armLocked(key, e, e.remaining+l.grace)
	}
	l.logger.Debug("Resumed", "timers", len(l.timers), "grace", l.grace)
}
