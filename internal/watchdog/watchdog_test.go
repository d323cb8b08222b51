package watchdog

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// collector records fired units and signals each fire on a channel.
type collector struct {
	mu    sync.Mutex
	units []string
	fired chan string
}

func newCollector() *collector {
	return &collector{fired: make(chan string, 16)}
}

func (c *collector) effect(unit string) error {
	c.mu.Lock()
	c.units = append(c.units, unit)
	c.mu.Unlock()
	c.fired <- unit
	return nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.units)
}

func TestRegisterFires(t *testing.T) {
	c := newCollector()
	w := New(c.effect, testLogger())

	w.Register("a", 10*time.Millisecond)

	select {
	case unit := <-c.fired:
		if unit != "a" {
			t.Errorf("fired for %q, want %q", unit, "a")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout effect never fired")
	}

	if got := w.Stats().Kills; got != 1 {
		t.Errorf("Stats().Kills = %d, want 1", got)
	}
}

func TestUnregisterCancels(t *testing.T) {
	c := newCollector()
	w := New(c.effect, testLogger())

	w.Register("a", 20*time.Millisecond)
	w.Unregister("a")

	time.Sleep(80 * time.Millisecond)
	if c.count() != 0 {
		t.Errorf("effect fired %d times after Unregister, want 0", c.count())
	}
}

func TestUnregisterIdempotent(t *testing.T) {
	c := newCollector()
	w := New(c.effect, testLogger())

	w.Unregister("never-registered")
	w.Register("a", time.Hour)
	w.Unregister("a")
	w.Unregister("a")

	if c.count() != 0 {
		t.Errorf("effect fired %d times, want 0", c.count())
	}
}

func TestRegisterThenImmediateUnregisterNeverFires(t *testing.T) {
	c := newCollector()
	w := New(c.effect, testLogger())

	// Hammer the register/unregister pair; cancellation must win every time
	// it is acknowledged before the timer is observed firing.
	for i := 0; i < 200; i++ {
		w.Register("a", time.Hour)
		w.Unregister("a")
	}

	time.Sleep(20 * time.Millisecond)
	if c.count() != 0 {
		t.Errorf("effect fired %d times, want 0", c.count())
	}
}

func TestRegisterReplacesExistingTimer(t *testing.T) {
	c := newCollector()
	w := New(c.effect, testLogger())

	w.Register("a", 10*time.Millisecond)
	w.Register("a", time.Hour)

	time.Sleep(80 * time.Millisecond)
	if c.count() != 0 {
		t.Errorf("superseded timer fired %d times, want 0", c.count())
	}
}

func TestPingReArms(t *testing.T) {
	c := newCollector()
	w := New(c.effect, testLogger())

	w.Register("a", time.Hour)
	w.Ping("a", 10*time.Millisecond)

	select {
	case <-c.fired:
	case <-time.After(time.Second):
		t.Fatal("pinged timer never fired")
	}
	if got := c.count(); got != 1 {
		t.Errorf("effect fired %d times, want 1", got)
	}
}

func TestEffectErrorDoesNotAffectOthers(t *testing.T) {
	fired := make(chan string, 2)
	w := New(func(unit string) error {
		fired <- unit
		if unit == "bad" {
			return errors.New("effect exploded")
		}
		return nil
	}, testLogger())

	w.Register("bad", 5*time.Millisecond)
	w.Register("good", 15*time.Millisecond)

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case unit := <-fired:
			got = append(got, unit)
		case <-time.After(time.Second):
			t.Fatalf("only %d effects fired, want 2", len(got))
		}
	}
	if got[0] != "bad" || got[1] != "good" {
		t.Errorf("fired order %v, want [bad good]", got)
	}
}

func TestConcurrentRegistrationsIsolated(t *testing.T) {
	c := newCollector()
	w := New(c.effect, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			unit := string(rune('a' + i))
			if i%2 == 0 {
				w.Register(unit, 5*time.Millisecond)
			} else {
				w.Register(unit, time.Hour)
				w.Unregister(unit)
			}
		}(i)
	}
	wg.Wait()

	deadline := time.After(time.Second)
	for i := 0; i < 4; i++ {
		select {
		case <-c.fired:
		case <-deadline:
			t.Fatalf("only %d of 4 armed timers fired", i)
		}
	}

	time.Sleep(20 * time.Millisecond)
	if got := c.count(); got != 4 {
		t.Errorf("effect fired %d times, want 4", got)
	}
}
