package keypad

import (
	"fmt"
	"strings"
)

type Kind int

const (
	Press Kind = iota + 1
	Release
	Cancel
	// Leave is the pointer sliding off a key while the button is still down.
	Leave
)

func (k Kind) String() string {
	switch k {
	case Press:
		return "press"
	case Release:
		return "release"
	case Cancel:
		return "cancel"
	case Leave:
		return "leave"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "press", "down", "pointerdown":
		return Press, nil
	case "release", "up", "pointerup":
		return Release, nil
	case "cancel", "pointercancel":
		return Cancel, nil
	case "leave", "pointerleave":
		return Leave, nil
	}
	return 0, fmt.Errorf("unknown keypad event %q", s)
}

// Event is one input on one key. Source identifies the front end (a browser
// connection, the terminal, the hotkey listener) so held keys and visibility
// can be tracked per source.
type Event struct {
	Source string
	Key    string
	Kind   Kind
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s %s", e.Source, e.Kind, e.Key)
}
