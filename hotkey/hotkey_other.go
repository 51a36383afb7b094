//go:build !linux

package hotkey

import (
	"fmt"
	"sync"

	"golang.design/x/hotkey"

	"dtmfpad/keypad"
)

// Without raw keyboard access every key needs Ctrl+Shift, and '*' and '#'
// have no portable key code.
var bindings = []struct {
	key  string
	code hotkey.Key
}{
	{"0", hotkey.Key0}, {"1", hotkey.Key1}, {"2", hotkey.Key2}, {"3", hotkey.Key3},
	{"4", hotkey.Key4}, {"5", hotkey.Key5}, {"6", hotkey.Key6}, {"7", hotkey.Key7},
	{"8", hotkey.Key8}, {"9", hotkey.Key9},
	{"A", hotkey.KeyA}, {"B", hotkey.KeyB}, {"C", hotkey.KeyC}, {"D", hotkey.KeyD},
}

type xListener struct {
	events chan keypad.Event
	hks    []*hotkey.Hotkey
	stop   chan struct{}
	once   sync.Once
}

func New() Listener {
	return &xListener{
		events: make(chan keypad.Event, 64),
	}
}

func (h *xListener) Register() error {
	h.stop = make(chan struct{})
	for _, b := range bindings {
		hk := hotkey.New([]hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift}, b.code)
		if err := hk.Register(); err != nil {
			h.Unregister()
			return fmt.Errorf("register Ctrl+Shift+%s: %w", b.key, err)
		}
		h.hks = append(h.hks, hk)
		go h.pump(hk, b.key)
	}
	return nil
}

func (h *xListener) pump(hk *hotkey.Hotkey, key string) {
	for {
		select {
		case <-h.stop:
			return
		case <-hk.Keydown():
			send(h.events, keyEvent(key, true))
		case <-hk.Keyup():
			send(h.events, keyEvent(key, false))
		}
	}
}

func (h *xListener) Unregister() {
	h.once.Do(func() {
		if h.stop != nil {
			close(h.stop)
		}
		for _, hk := range h.hks {
			hk.Unregister()
		}
	})
}

func (h *xListener) Events() <-chan keypad.Event {
	return h.events
}

func Diagnose() (string, error) {
	return "hotkey support available (Ctrl+Shift+0-9, Ctrl+Shift+A-D)", nil
}
