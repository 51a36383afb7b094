// Package tone decides when a DTMF tone is audible.
//
// A press starts the tone right away, but the tone never stops before the
// floor duration has passed: a tap shorter than the floor still plays for the
// full floor, while a long press stops the moment the key is released.
// At most one tone plays at a time; starting a new one silences the old one
// first.
package tone

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dtmfpad/audio"
	"dtmfpad/dtmf"
)

const DefaultFloor = 150 * time.Millisecond

var ErrClosed = errors.New("tone controller closed")

// Opener acquires the output device when the keypad becomes visible.
type Opener func() (audio.Device, error)

type EventKind int

const (
	ToneStarted EventKind = iota + 1
	ToneStopped
)

func (k EventKind) String() string {
	switch k {
	case ToneStarted:
		return "tone_started"
	case ToneStopped:
		return "tone_stopped"
	}
	return "unknown"
}

// Event is delivered to the observer after the controller lock is released.
type Event struct {
	Kind    EventKind
	Session uint64
	Key     string
	Pair    dtmf.Pair
	At      time.Time
}

type Observer func(Event)

// Session is a snapshot of the current (or last) tone.
type Session struct {
	ID           uint64
	Key          string
	Pair         dtmf.Pair
	StartedAt    time.Time
	KeyHeld      bool
	FloorElapsed bool
	Audible      bool
}

// floorToken identifies the session a floor timer was scheduled for. A timer
// whose token no longer matches the current session is stale.
type floorToken struct {
	session uint64
}

type Option func(*Controller)

func WithFloor(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.floor = d
		}
	}
}

func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

type Controller struct {
	open     Opener
	clock    Clock
	floor    time.Duration
	logger   zerolog.Logger
	observer Observer

	mu           sync.Mutex
	closed       bool
	device       audio.Device
	session      uint64
	key          string
	pair         dtmf.Pair
	startedAt    time.Time
	keyHeld      bool
	floorElapsed bool
	generators   []audio.Generator
	floorTimer   Timer
}

// New returns a controller without a device. Call Resume to acquire one;
// until then Start is a no-op.
func New(open Opener, opts ...Option) *Controller {
	c := &Controller{
		open:   open,
		clock:  RealClock(),
		floor:  DefaultFloor,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "tone").Logger()
	return c
}

func (c *Controller) Floor() time.Duration { return c.floor }

// Resume acquires the output device if none is held.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.device != nil {
		return nil
	}
	if c.open == nil {
		return errors.New("no audio output configured")
	}
	dev, err := c.open()
	if err != nil {
		c.logger.Warn().Err(err).Msg("device_acquire_failed")
		return err
	}
	c.device = dev
	c.logger.Info().Str("device", dev.Name()).Msg("device_acquired")
	return nil
}

// Suspend silences any tone and releases the device.
func (c *Controller) Suspend() {
	c.mu.Lock()
	events := c.suspendLocked(nil)
	c.mu.Unlock()
	c.emit(events)
}

func (c *Controller) suspendLocked(events []Event) []Event {
	events = c.stopResourcesLocked(events)
	c.keyHeld = false
	if c.floorTimer != nil {
		c.floorTimer.Stop()
		c.floorTimer = nil
	}
	if c.device != nil {
		c.device.Close()
		c.device = nil
		c.logger.Info().Msg("device_released")
	}
	return events
}

// Close releases the device for good. Resume fails afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	events := c.suspendLocked(nil)
	c.closed = true
	c.mu.Unlock()
	c.emit(events)
}

// Active reports whether an output device is held.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.device != nil
}

// Playing reports whether the key of the current session is still held.
func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keyHeld
}

func (c *Controller) Current() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Session{
		ID:           c.session,
		Key:          c.key,
		Pair:         c.pair,
		StartedAt:    c.startedAt,
		KeyHeld:      c.keyHeld,
		FloorElapsed: c.floorElapsed,
		Audible:      len(c.generators) > 0,
	}
}

// Start plays the tone for key, silencing whatever played before. Unknown
// keys and a missing device produce silence.
func (c *Controller) Start(key string) {
	pair, _ := dtmf.Lookup(key)

	c.mu.Lock()
	events := c.stopResourcesLocked(nil)
	if c.device == nil {
		c.mu.Unlock()
		c.logger.Debug().Str("key", key).Msg("start_without_device")
		c.emit(events)
		return
	}

	c.session++
	c.key = dtmf.Normalize(key)
	c.pair = pair
	c.startedAt = c.clock.Now()
	c.keyHeld = true
	c.floorElapsed = false

	for _, freq := range pair.Slice() {
		g, err := c.device.NewGenerator(freq)
		if err != nil {
			c.logger.Warn().Err(err).Float64("freq", freq).Msg("generator_failed")
			c.releaseGeneratorsLocked()
			break
		}
		c.generators = append(c.generators, g)
	}
	audio.StartAll(c.generators...)
	if len(c.generators) > 0 {
		events = append(events, c.eventLocked(ToneStarted))
	}
	c.logger.Debug().Uint64("session", c.session).Str("key", c.key).Msg("tone_start")

	c.scheduleFloorLocked()
	c.mu.Unlock()
	c.emit(events)
}

// Stop marks the key as released. The tone stops now if the floor has
// passed, otherwise when the floor timer fires.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.keyHeld = false
	var events []Event
	if c.floorElapsed {
		events = c.stopResourcesLocked(nil)
	} else if len(c.generators) > 0 {
		c.logger.Debug().Uint64("session", c.session).Msg("tone_stop_deferred")
	}
	c.mu.Unlock()
	c.emit(events)
}

func (c *Controller) scheduleFloorLocked() floorToken {
	if c.floorTimer != nil {
		c.floorTimer.Stop()
	}
	tok := floorToken{session: c.session}
	c.floorTimer = c.clock.AfterFunc(c.floor, func() { c.floorReached(tok) })
	return tok
}

func (c *Controller) floorReached(tok floorToken) {
	c.mu.Lock()
	if tok.session != c.session || c.closed {
		c.mu.Unlock()
		c.logger.Debug().Uint64("session", tok.session).Msg("floor_timer_stale")
		return
	}
	c.floorTimer = nil
	c.floorElapsed = true
	var events []Event
	if !c.keyHeld {
		events = c.stopResourcesLocked(nil)
	}
	c.mu.Unlock()
	c.emit(events)
}

// stopResourcesLocked halts and releases the generators of the current
// session. It is a no-op when nothing is audible.
func (c *Controller) stopResourcesLocked(events []Event) []Event {
	if len(c.generators) == 0 {
		return events
	}
	for _, g := range c.generators {
		g.Stop()
	}
	c.releaseGeneratorsLocked()
	c.logger.Debug().Uint64("session", c.session).Msg("tone_stop")
	return append(events, c.eventLocked(ToneStopped))
}

func (c *Controller) releaseGeneratorsLocked() {
	for _, g := range c.generators {
		g.Release()
	}
	c.generators = c.generators[:0]
}

func (c *Controller) eventLocked(kind EventKind) Event {
	return Event{
		Kind:    kind,
		Session: c.session,
		Key:     c.key,
		Pair:    c.pair,
		At:      c.clock.Now(),
	}
}

func (c *Controller) emit(events []Event) {
	if c.observer == nil {
		return
	}
	for _, ev := range events {
		c.observer(ev)
	}
}
