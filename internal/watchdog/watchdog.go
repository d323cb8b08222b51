// Package watchdog enforces deadlines on registered units of work. A unit
// must finish (Unregister) or be refreshed (Ping) before its deadline, or the
// watchdog invokes the configured timeout effect for it exactly once.
package watchdog

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Effect is invoked when a unit's deadline expires. An error is logged and
// does not affect other registrations.
type Effect[K comparable] func(K) error

// Per-registration lifecycle. A timer moves out of stateArmed exactly once,
// so a cancellation racing its own firing can never double-fire.
const (
	stateArmed int32 = iota
	stateFired
	stateCancelled
)

type registration struct {
	timer *time.Timer
	state atomic.Int32
}

// Watchdog supervises deadlines for units of type K.
type Watchdog[K comparable] struct {
	logger *slog.Logger
	effect Effect[K]

	mu       sync.Mutex
	subjects map[K]*registration
	kills    atomic.Int64
}

// Stats reports watchdog activity.
type Stats struct {
	// Kills is the number of timeout effects fired so far.
	Kills int64
}

func New[K comparable](effect Effect[K], logger *slog.Logger) *Watchdog[K] {
	return &Watchdog[K]{
		logger:   logger,
		effect:   effect,
		subjects: make(map[K]*registration),
	}
}

// Register schedules a one-shot deadline for unit. Any existing deadline for
// the same unit is cancelled first.
func (w *Watchdog[K]) Register(unit K, timeout time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.registerLocked(unit, timeout)
}

// Ping cancels any existing deadline for unit and schedules a fresh one,
// extending the unit's lease after legitimate activity.
func (w *Watchdog[K]) Ping(unit K, timeout time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.logger.Debug("got ping, rescheduling watchdog timer")
	w.registerLocked(unit, timeout)
}

// Unregister cancels and removes any pending deadline for unit. It is
// idempotent, and a no-op if the deadline already fired.
func (w *Watchdog[K]) Unregister(unit K) {
	w.mu.Lock()
	defer w.mu.Unlock()

	reg, ok := w.subjects[unit]
	if !ok {
		return
	}
	if reg.state.CompareAndSwap(stateArmed, stateCancelled) {
		reg.timer.Stop()
	}
	delete(w.subjects, unit)
}

// Stats returns a snapshot of watchdog activity.
func (w *Watchdog[K]) Stats() Stats {
	return Stats{Kills: w.kills.Load()}
}

func (w *Watchdog[K]) registerLocked(unit K, timeout time.Duration) {
	if old, ok := w.subjects[unit]; ok {
		if old.state.CompareAndSwap(stateArmed, stateCancelled) {
			old.timer.Stop()
		}
	}

	reg := &registration{}
	reg.timer = time.AfterFunc(timeout, func() {
		w.fire(unit, reg)
	})
	w.subjects[unit] = reg
}

func (w *Watchdog[K]) fire(unit K, reg *registration) {
	w.mu.Lock()
	if !reg.state.CompareAndSwap(stateArmed, stateFired) {
		// Lost the race against Unregister or a replacement.
		w.mu.Unlock()
		return
	}
	if current, ok := w.subjects[unit]; ok && current == reg {
		delete(w.subjects, unit)
	}
	w.mu.Unlock()

	w.kills.Add(1)
	w.logger.Info("watchdog timeout, terminating unit")

	if err := w.effect(unit); err != nil {
		w.logger.Error("watchdog timeout effect failed",
			slog.String("error", err.Error()))
	}
}
