// Package timer tracks how long a consultation has been running and tells
// its owner when the warning and hard limits are crossed.
package timer

import (
	"sync"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/Andiveli/HospitalFront-sub000/internal/utils"
	"github.com/benbjohnson/clock"
)

const (
	DefaultMaxDuration        = 30 * time.Minute
	DefaultDoctorWarningLead  = 10 * time.Minute
	DefaultPatientWarningLead = 5 * time.Minute

	// ReasonTimeExpired is carried by the expiry event.
	ReasonTimeExpired = "time-expired"

	tickInterval = time.Second
	// reserved keeps room in the event buffer for warning and expiry when
	// nobody is draining ticks.
	reserved = 4
)

type EventKind string

const (
	EventTick    EventKind = "tick"
	EventWarning EventKind = "warning"
	EventExpired EventKind = "expired"
)

type Event struct {
	Kind      EventKind
	Elapsed   time.Duration
	Remaining time.Duration
	Reason    string
}

// Policy decides limits from the local role.
type Policy struct {
	MaxDuration        time.Duration
	DoctorWarningLead  time.Duration
	PatientWarningLead time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxDuration:        DefaultMaxDuration,
		DoctorWarningLead:  DefaultDoctorWarningLead,
		PatientWarningLead: DefaultPatientWarningLead,
	}
}

// WarningLead is how long before the limit role is warned. Clinicians get
// the longer lead so they can wrap the consultation up.
func (p Policy) WarningLead(role consult.Role) time.Duration {
	if role.IsClinician() {
		return p.DoctorWarningLead
	}
	return p.PatientWarningLead
}

// ConfigFor builds the timer config for role. A positive maxDuration
// overrides the policy limit.
func (p Policy) ConfigFor(role consult.Role, maxDuration time.Duration) Config {
	if maxDuration <= 0 {
		maxDuration = p.MaxDuration
	}
	return Config{MaxDuration: maxDuration, WarningLead: p.WarningLead(role)}
}

// Config for one timer run. A zero MaxDuration means no limit.
type Config struct {
	MaxDuration time.Duration
	WarningLead time.Duration
}

// State is a snapshot of the timer.
type State struct {
	Running bool
	Elapsed time.Duration
	Warned  bool
	Expired bool
}

type Timer struct {
	clock  clock.Clock
	cfg    Config
	events chan Event

	mu      sync.Mutex
	run     int
	running bool
	start   time.Time
	stopped time.Time
	warned  bool
	expired bool
	ticker  *clock.Ticker
	warn    *clock.Timer
	expire  *clock.Timer
	done    chan struct{}
}

func New(c clock.Clock, cfg Config) *Timer {
	if c == nil {
		c = clock.New()
	}
	return &Timer{
		clock:  c,
		cfg:    cfg,
		events: make(chan Event, 64),
	}
}

// Events delivers ticks, the warning and the expiry. Ticks are dropped when
// the buffer is nearly full; warning and expiry are not.
func (t *Timer) Events() <-chan Event {
	return t.events
}

// Start resets the timer and arms the tick, warning and expiry tasks.
// Starting a running timer restarts it.
func (t *Timer) Start() {
	t.Stop()

	t.mu.Lock()
	defer t.mu.Unlock()

	for len(t.events) > 0 {
		<-t.events
	}

	t.run++
	run := t.run
	t.running = true
	t.warned = false
	t.expired = false
	t.start = t.clock.Now()
	t.stopped = time.Time{}
	t.done = make(chan struct{})

	if max := t.cfg.MaxDuration; max > 0 {
		warnAt := max - t.cfg.WarningLead
		if warnAt < 0 {
			warnAt = 0
		}
		if t.cfg.WarningLead > 0 {
			t.warn = t.clock.AfterFunc(warnAt, func() { t.fireWarning(run) })
		}
		t.expire = t.clock.AfterFunc(max, func() { t.fireExpiry(run) })
	}

	t.ticker = t.clock.Ticker(tickInterval)
	go t.tickLoop(run, t.ticker, t.done)
}

func (t *Timer) tickLoop(run int, ticker *clock.Ticker, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.run != run || !t.running {
				t.mu.Unlock()
				return
			}
			ev := t.eventLocked(EventTick)
			if len(t.events) < cap(t.events)-reserved {
				t.events <- ev
			}
			t.mu.Unlock()
		}
	}
}

func (t *Timer) fireWarning(run int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.run != run || !t.running || t.warned {
		return
	}
	t.warned = true
	t.emitLocked(t.eventLocked(EventWarning))
}

func (t *Timer) fireExpiry(run int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.run != run || !t.running || t.expired {
		return
	}
	t.expired = true
	// a limit shorter than the lead still warns first
	if !t.warned && t.cfg.WarningLead > 0 {
		t.warned = true
		t.emitLocked(t.eventLocked(EventWarning))
	}
	ev := t.eventLocked(EventExpired)
	ev.Reason = ReasonTimeExpired
	t.stopLocked()
	t.emitLocked(ev)
}

func (t *Timer) emitLocked(ev Event) {
	select {
	case t.events <- ev:
	default:
		// only reachable if the owner never drains; drop the oldest tick
		select {
		case <-t.events:
		default:
		}
		t.events <- ev
	}
}

func (t *Timer) eventLocked(kind EventKind) Event {
	elapsed := t.elapsedLocked()
	ev := Event{Kind: kind, Elapsed: elapsed}
	if t.cfg.MaxDuration > 0 {
		ev.Remaining = t.cfg.MaxDuration - elapsed
		if ev.Remaining < 0 {
			ev.Remaining = 0
		}
	}
	return ev
}

// Stop disarms every task and freezes the elapsed time. Safe to call more
// than once.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Timer) stopLocked() {
	if !t.running {
		return
	}
	t.running = false
	t.stopped = t.clock.Now()
	if t.ticker != nil {
		t.ticker.Stop()
		t.ticker = nil
	}
	if t.warn != nil {
		t.warn.Stop()
		t.warn = nil
	}
	if t.expire != nil {
		t.expire.Stop()
		t.expire = nil
	}
	close(t.done)
}

func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsedLocked()
}

func (t *Timer) elapsedLocked() time.Duration {
	switch {
	case t.start.IsZero():
		return 0
	case t.running:
		return t.clock.Since(t.start)
	default:
		return t.stopped.Sub(t.start)
	}
}

// Seconds is the whole number of elapsed seconds.
func (t *Timer) Seconds() int {
	return int(t.Elapsed() / time.Second)
}

// Formatted is the elapsed time as mm:ss, or hh:mm:ss past one hour.
func (t *Timer) Formatted() string {
	return utils.FormatClock(t.Elapsed())
}

func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cfg.MaxDuration <= 0 {
		return 0
	}
	r := t.cfg.MaxDuration - t.elapsedLocked()
	if r < 0 {
		return 0
	}
	return r
}

func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return State{
		Running: t.running,
		Elapsed: t.elapsedLocked(),
		Warned:  t.warned,
		Expired: t.expired,
	}
}

func (t *Timer) Config() Config {
	return t.cfg
}
