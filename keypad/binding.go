// Package keypad turns front-end input into tone controller calls.
package keypad

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"dtmfpad/dtmf"
)

const maxDialed = 64

// Controller is the part of tone.Controller the binding drives.
type Controller interface {
	Start(key string)
	Stop()
	Resume() error
	Suspend()
}

// Binding owns the held-key registry and the visibility set for every
// keypad front end and forwards their events to one controller.
type Binding struct {
	ctrl   Controller
	logger zerolog.Logger

	mu       sync.Mutex
	registry *Registry
	presence *Presence
	dialed   strings.Builder
}

func NewBinding(ctrl Controller, logger zerolog.Logger) *Binding {
	return &Binding{
		ctrl:     ctrl,
		logger:   logger.With().Str("component", "keypad").Logger(),
		registry: NewRegistry(),
		presence: NewPresence(),
	}
}

// Handle applies one input event. Release and Cancel always stop the tone,
// even without a matching press. Leave only counts while the key is held.
func (b *Binding) Handle(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := ev.Key
	if k := dtmf.Normalize(ev.Key); k != "" {
		key = k
	}

	switch ev.Kind {
	case Press:
		b.registry.Press(ev.Source, key)
		if dtmf.Valid(key) {
			b.appendDialedLocked(key)
		}
		b.ctrl.Start(key)
	case Release, Cancel:
		b.registry.Release(ev.Source, key)
		b.ctrl.Stop()
	case Leave:
		if b.registry.Release(ev.Source, key) {
			b.ctrl.Stop()
		}
	default:
		b.logger.Warn().Int("kind", int(ev.Kind)).Msg("unknown_event")
	}
}

// Tap is a press immediately followed by a release: the tone plays for the
// floor duration. Front ends without key-up events (terminal keys) use it.
func (b *Binding) Tap(source, key string) {
	b.Handle(Event{Source: source, Key: key, Kind: Press})
	b.Handle(Event{Source: source, Key: key, Kind: Release})
}

// SetVisible records that source is (or is no longer) showing a keypad. The
// device is acquired when the first source shows up and released when the
// last one hides.
func (b *Binding) SetVisible(source string, visible bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setVisibleLocked(source, visible)
}

func (b *Binding) setVisibleLocked(source string, visible bool) {
	if !visible {
		if held := b.registry.ReleaseSource(source); len(held) > 0 {
			b.logger.Debug().Str("source", source).Strs("keys", held).Msg("hidden_while_held")
			b.ctrl.Stop()
		}
	}
	switch b.presence.Set(source, visible) {
	case 1:
		if err := b.ctrl.Resume(); err != nil {
			b.logger.Warn().Err(err).Str("source", source).Msg("resume_failed")
		}
	case -1:
		b.ctrl.Suspend()
	}
}

// Disconnect drops a source: its held keys count as cancelled and it is no
// longer visible. Hiding a source does the same.
func (b *Binding) Disconnect(source string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger.Debug().Str("source", source).Msg("disconnect")
	b.setVisibleLocked(source, false)
}

func (b *Binding) HeldKeys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.registry.HeldKeys()
}

func (b *Binding) Visible() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.presence.Visible()
}

// Dialed returns the keys pressed since the last ResetDialed, oldest first.
func (b *Binding) Dialed() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dialed.String()
}

// ResetDialed clears the dialed history and returns what it held.
func (b *Binding) ResetDialed() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.dialed.String()
	b.dialed.Reset()
	return s
}

func (b *Binding) appendDialedLocked(key string) {
	if b.dialed.Len() >= maxDialed {
		s := b.dialed.String()[1:]
		b.dialed.Reset()
		b.dialed.WriteString(s)
	}
	b.dialed.WriteString(key)
}
