package audio

import (
	"fmt"
	"io"
	"sync"
	"time"
)

type FakeEventKind string

const (
	FakeCreate  FakeEventKind = "create"
	FakeStart   FakeEventKind = "start"
	FakeStop    FakeEventKind = "stop"
	FakeRelease FakeEventKind = "release"
	FakeOpen    FakeEventKind = "open"
	FakeClose   FakeEventKind = "close"
)

type FakeEvent struct {
	At   time.Time
	Kind FakeEventKind
	ID   int // generator id, 0 for device events
	Freq float64
}

// FakeContext is an output that never makes a sound. It records every
// generator transition so tests can check what would have been audible.
type FakeContext struct {
	// Now defaults to time.Now; tests with a manual clock override it.
	Now func() time.Time
	// Trace, when set, receives one line per event.
	Trace io.Writer
	// OpenErr and GeneratorErr make the next calls fail.
	OpenErr      error
	GeneratorErr error

	mu      sync.Mutex
	events  []FakeEvent
	nextID  int
	playing map[int]float64
	maxPlay int
	opened  int
	open    int
}

func NewFakeContext() *FakeContext {
	return &FakeContext{playing: make(map[int]float64)}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) Open(_ *DeviceInfo, _ PlaybackConfig) (Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	f.opened++
	f.open++
	f.recordLocked(FakeOpen, 0, 0)
	return &FakeDevice{ctx: f}, nil
}

func (f *FakeContext) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *FakeContext) recordLocked(kind FakeEventKind, id int, freq float64) {
	ev := FakeEvent{At: f.now(), Kind: kind, ID: id, Freq: freq}
	f.events = append(f.events, ev)
	if f.Trace != nil {
		if id == 0 {
			fmt.Fprintf(f.Trace, "%s\n", kind)
		} else {
			fmt.Fprintf(f.Trace, "%s %d %.0f\n", kind, id, freq)
		}
	}
}

// Events returns a copy of everything recorded so far.
func (f *FakeContext) Events() []FakeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeEvent(nil), f.events...)
}

// Audible returns the frequencies of the generators currently started.
func (f *FakeContext) Audible() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []float64
	for id := 1; id <= f.nextID; id++ {
		if freq, ok := f.playing[id]; ok {
			out = append(out, freq)
		}
	}
	return out
}

// MaxAudible is the largest number of generators that were ever started at
// the same time.
func (f *FakeContext) MaxAudible() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxPlay
}

// OpenDevices is the number of devices opened and not yet closed.
func (f *FakeContext) OpenDevices() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// Opened is the number of devices ever opened.
func (f *FakeContext) Opened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened
}

type FakeDevice struct {
	ctx    *FakeContext
	closed bool
}

func (d *FakeDevice) Name() string { return "fake" }

func (d *FakeDevice) NewGenerator(freq float64) (Generator, error) {
	f := d.ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if f.GeneratorErr != nil {
		return nil, f.GeneratorErr
	}
	f.nextID++
	g := &fakeGenerator{ctx: f, id: f.nextID, freq: freq}
	f.recordLocked(FakeCreate, g.id, freq)
	return g, nil
}

func (d *FakeDevice) Close() {
	f := d.ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	f.open--
	f.recordLocked(FakeClose, 0, 0)
}

type fakeGenerator struct {
	ctx      *FakeContext
	id       int
	freq     float64
	started  bool
	released bool
}

func (g *fakeGenerator) Start() {
	f := g.ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	if g.started || g.released {
		return
	}
	g.started = true
	f.playing[g.id] = g.freq
	if len(f.playing) > f.maxPlay {
		f.maxPlay = len(f.playing)
	}
	f.recordLocked(FakeStart, g.id, g.freq)
}

func (g *fakeGenerator) Stop() {
	f := g.ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	if !g.started {
		return
	}
	g.started = false
	delete(f.playing, g.id)
	f.recordLocked(FakeStop, g.id, g.freq)
}

func (g *fakeGenerator) Release() {
	f := g.ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	if g.released {
		return
	}
	g.released = true
	if g.started {
		g.started = false
		delete(f.playing, g.id)
	}
	f.recordLocked(FakeRelease, g.id, g.freq)
}
