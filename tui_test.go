package main

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"dtmfpad/dtmf"
	"dtmfpad/keypad"
	"dtmfpad/tone"
)

type fakeTUIKeypad struct {
	calls  []string
	dialed strings.Builder
}

func (f *fakeTUIKeypad) Handle(ev keypad.Event) {
	f.calls = append(f.calls, ev.String())
	if ev.Kind == keypad.Press {
		f.dialed.WriteString(ev.Key)
	}
}

func (f *fakeTUIKeypad) Tap(source, key string) {
	f.Handle(keypad.Event{Source: source, Key: key, Kind: keypad.Press})
	f.Handle(keypad.Event{Source: source, Key: key, Kind: keypad.Release})
}

func (f *fakeTUIKeypad) SetVisible(source string, visible bool) {
	if visible {
		f.calls = append(f.calls, source+" visible")
	} else {
		f.calls = append(f.calls, source+" hidden")
	}
}

func (f *fakeTUIKeypad) Dialed() string { return f.dialed.String() }

func (f *fakeTUIKeypad) ResetDialed() string {
	s := f.dialed.String()
	f.dialed.Reset()
	return s
}

// cell returns a terminal position inside key.
func cell(t *testing.T, key string) (int, int) {
	t.Helper()
	for r, row := range dtmf.Rows() {
		for c, k := range row {
			if k == key {
				return padLeft + c*(keyW+1) + keyW/2, padTop + r*(keyH+1) + 1
			}
		}
	}
	t.Fatalf("no key %q", key)
	return 0, 0
}

func update(m tuiModel, msg tea.Msg) tuiModel {
	next, _ := m.Update(msg)
	return next.(tuiModel)
}

func mouse(action tea.MouseAction, x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: action, Button: tea.MouseButtonLeft}
}

func TestKeyAt(t *testing.T) {
	for _, key := range dtmf.Keys() {
		x, y := cell(t, key)
		assert.Equal(t, key, keyAt(x, y))
	}
	assert.Equal(t, "1", keyAt(padLeft, padTop))
	assert.Equal(t, "", keyAt(padLeft+keyW, padTop), "column gap")
	assert.Equal(t, "", keyAt(padLeft, padTop+keyH), "row gap")
	assert.Equal(t, "", keyAt(0, 0))
	assert.Equal(t, "", keyAt(padLeft+4*(keyW+1), padTop))
	assert.Equal(t, "", keyAt(padLeft, padTop+4*(keyH+1)))
}

func TestViewMatchesGeometry(t *testing.T) {
	m := newTUIModel(&fakeTUIKeypad{}, nil, "fake")
	lines := strings.Split(m.View(), "\n")
	for r, row := range dtmf.Rows() {
		line := lines[padTop+r*(keyH+1)+keyH/2]
		for _, key := range row {
			assert.Contains(t, line, key)
		}
	}
}

func TestTUIMousePressRelease(t *testing.T) {
	kp := &fakeTUIKeypad{}
	m := newTUIModel(kp, nil, "fake")
	x, y := cell(t, "5")

	m = update(m, mouse(tea.MouseActionPress, x, y))
	assert.Equal(t, "5", m.held)
	m = update(m, mouse(tea.MouseActionMotion, x+1, y))
	m = update(m, mouse(tea.MouseActionRelease, x+1, y))

	assert.Equal(t, []string{"tui press 5", "tui release 5"}, kp.calls)
	assert.Empty(t, m.held)
}

func TestTUIMouseLeave(t *testing.T) {
	kp := &fakeTUIKeypad{}
	m := newTUIModel(kp, nil, "fake")
	x, y := cell(t, "#")

	m = update(m, mouse(tea.MouseActionPress, x, y))
	m = update(m, mouse(tea.MouseActionMotion, x, y+keyH))
	m = update(m, mouse(tea.MouseActionRelease, x, y+keyH))

	assert.Equal(t, []string{"tui press #", "tui leave #"}, kp.calls)
}

func TestTUIMouseOutsideKeys(t *testing.T) {
	kp := &fakeTUIKeypad{}
	m := newTUIModel(kp, nil, "fake")
	m = update(m, mouse(tea.MouseActionPress, 0, 0))
	m = update(m, mouse(tea.MouseActionRelease, 0, 0))

	x, y := cell(t, "1")
	m = update(m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonRight})
	assert.Empty(t, kp.calls)
	assert.Empty(t, m.held)
}

func TestTUIKeysTap(t *testing.T) {
	kp := &fakeTUIKeypad{}
	m := newTUIModel(kp, nil, "fake")
	for _, r := range "7d!" {
		m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	assert.Equal(t, []string{"tui press 7", "tui release 7", "tui press D", "tui release D"}, kp.calls)
}

func TestTUIFocusDrivesVisibility(t *testing.T) {
	kp := &fakeTUIKeypad{}
	m := newTUIModel(kp, nil, "fake")
	x, y := cell(t, "2")
	m = update(m, mouse(tea.MouseActionPress, x, y))

	m = update(m, tea.BlurMsg{})
	assert.Empty(t, m.held)
	m = update(m, tea.FocusMsg{})

	assert.Equal(t, []string{"tui press 2", "tui hidden", "tui visible"}, kp.calls)
}

func TestTUICopyAndClear(t *testing.T) {
	kp := &fakeTUIKeypad{}
	var copied string
	m := newTUIModel(kp, func(s string) error {
		copied = s
		return nil
	}, "fake")
	y := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}}

	m = update(m, y)
	assert.Equal(t, "nothing dialed yet", m.note)

	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'1'}})
	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'#'}})
	m = update(m, y)
	assert.Equal(t, "1#", copied)
	assert.Equal(t, "copied 1#", m.note)

	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	assert.Empty(t, kp.Dialed())
	assert.Empty(t, m.note)

	m.copy = func(string) error { return errors.New("boom") }
	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}})
	m = update(m, y)
	assert.Equal(t, "copy failed: boom", m.note)
}

func TestTUIToneHighlight(t *testing.T) {
	m := newTUIModel(&fakeTUIKeypad{}, nil, "fake")
	pair, _ := dtmf.Lookup("9")

	m = update(m, toneMsg{tone.Event{Kind: tone.ToneStarted, Session: 1, Key: "9", Pair: pair}})
	assert.Equal(t, "9", m.sounding)
	assert.Contains(t, m.View(), "852 + 1477 Hz")

	m = update(m, toneMsg{tone.Event{Kind: tone.ToneStopped, Session: 1, Key: "9"}})
	assert.Empty(t, m.sounding)
	assert.Contains(t, m.View(), "idle")
}

func TestTUIIgnoresStaleStop(t *testing.T) {
	m := newTUIModel(&fakeTUIKeypad{}, nil, "fake")
	one, _ := dtmf.Lookup("1")
	two, _ := dtmf.Lookup("2")

	m = update(m, toneMsg{tone.Event{Kind: tone.ToneStarted, Session: 1, Key: "1", Pair: one}})
	m = update(m, toneMsg{tone.Event{Kind: tone.ToneStarted, Session: 2, Key: "2", Pair: two}})
	// The floor timer of the first tone reports after the second started.
	m = update(m, toneMsg{tone.Event{Kind: tone.ToneStopped, Session: 1, Key: "1"}})

	assert.Equal(t, "2", m.sounding)
	assert.Contains(t, m.View(), "697 + 1336 Hz")

	m = update(m, toneMsg{tone.Event{Kind: tone.ToneStopped, Session: 2, Key: "2"}})
	assert.Empty(t, m.sounding)
}

func TestTUIQuit(t *testing.T) {
	m := newTUIModel(&fakeTUIKeypad{}, nil, "fake")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.NotNil(t, cmd)
}
