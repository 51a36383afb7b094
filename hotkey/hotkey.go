// Package hotkey turns global keyboard shortcuts into keypad events, so the
// keypad can be played while another window has focus.
package hotkey

import (
	"context"

	"dtmfpad/keypad"
)

// Source is the keypad source name used for every hotkey event.
const Source = "hotkey"

type Listener interface {
	Register() error
	Unregister()
	Events() <-chan keypad.Event
}

// Forward hands every event from l to handle until ctx is done or the
// listener's channel is closed.
func Forward(ctx context.Context, l Listener, handle func(keypad.Event)) {
	events := l.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			handle(ev)
		}
	}
}

func send(ch chan keypad.Event, ev keypad.Event) {
	select {
	case ch <- ev:
	default:
	}
}
