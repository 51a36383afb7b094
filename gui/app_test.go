//go:build gui

package gui

import (
	"errors"
	"strings"
	"testing"

	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtmfpad/dtmf"
	"dtmfpad/keypad"
	"dtmfpad/tone"
)

type recordingKeypad struct {
	calls  []string
	dialed strings.Builder
}

func (r *recordingKeypad) Handle(ev keypad.Event) {
	r.calls = append(r.calls, ev.String())
	if ev.Kind == keypad.Press {
		r.dialed.WriteString(ev.Key)
	}
}

func (r *recordingKeypad) SetVisible(source string, visible bool) {
	if visible {
		r.calls = append(r.calls, source+" visible")
	} else {
		r.calls = append(r.calls, source+" hidden")
	}
}

func (r *recordingKeypad) Dialed() string { return r.dialed.String() }

func newTestApp(t *testing.T) (*App, *recordingKeypad) {
	t.Helper()
	kp := &recordingKeypad{}
	a := New(kp, zerolog.Nop())
	a.build(test.NewApp())
	t.Cleanup(func() { a.fyneApp.Quit() })
	return a, kp
}

var primary = &desktop.MouseEvent{Button: desktop.MouseButtonPrimary}

func TestAppHasSixteenKeys(t *testing.T) {
	a, _ := newTestApp(t)
	assert.Len(t, a.keys, 16)
	for _, key := range dtmf.Keys() {
		assert.Contains(t, a.keys, key)
	}
}

func TestKeyPressRelease(t *testing.T) {
	a, kp := newTestApp(t)
	b := a.keys["5"]

	b.MouseDown(primary)
	assert.True(t, b.down)
	b.MouseUp(primary)
	assert.False(t, b.down)
	b.MouseUp(primary)

	assert.Equal(t, []string{"gui press 5", "gui release 5"}, kp.calls)
	assert.Equal(t, "5", a.display.Text)
}

func TestKeyLeaveWhileHeld(t *testing.T) {
	a, kp := newTestApp(t)
	b := a.keys["#"]

	b.MouseOut()
	b.MouseDown(primary)
	b.MouseOut()
	b.MouseUp(primary)

	assert.Equal(t, []string{"gui press #", "gui leave #"}, kp.calls)
}

func TestKeyIgnoresSecondaryButton(t *testing.T) {
	a, kp := newTestApp(t)
	a.keys["1"].MouseDown(&desktop.MouseEvent{Button: desktop.MouseButtonSecondary})
	assert.Empty(t, kp.calls)
}

func TestTypedRuneTaps(t *testing.T) {
	a, kp := newTestApp(t)
	a.typed('b')
	a.typed('x')
	assert.Equal(t, []string{"gui press B", "gui release B"}, kp.calls)
}

func TestHidingResetsHeldButtons(t *testing.T) {
	a, kp := newTestApp(t)
	b := a.keys["9"]
	b.MouseDown(primary)

	a.setVisible(false)
	assert.False(t, b.down)
	b.MouseUp(primary)

	assert.Equal(t, []string{"gui press 9", "gui hidden"}, kp.calls)
}

func TestShowToneHighlightsKey(t *testing.T) {
	a, _ := newTestApp(t)
	pair, _ := dtmf.Lookup("7")

	a.showTone(tone.Event{Kind: tone.ToneStarted, Session: 1, Key: "7", Pair: pair})
	assert.True(t, a.keys["7"].sounding)
	assert.False(t, a.keys["8"].sounding)
	assert.Equal(t, "7  852+1209 Hz", a.status.Text)

	a.showTone(tone.Event{Kind: tone.ToneStopped, Session: 1})
	assert.False(t, a.keys["7"].sounding)
	assert.Equal(t, "idle", a.status.Text)
}

func TestShowToneIgnoresStaleStop(t *testing.T) {
	a, _ := newTestApp(t)
	one, _ := dtmf.Lookup("1")
	two, _ := dtmf.Lookup("2")

	a.showTone(tone.Event{Kind: tone.ToneStarted, Session: 1, Key: "1", Pair: one})
	a.showTone(tone.Event{Kind: tone.ToneStarted, Session: 2, Key: "2", Pair: two})
	a.showTone(tone.Event{Kind: tone.ToneStopped, Session: 1})

	assert.True(t, a.keys["2"].sounding)
	assert.False(t, a.keys["1"].sounding)
	assert.Equal(t, "2  697+1336 Hz", a.status.Text)
}

func TestCopyDialed(t *testing.T) {
	kp := &recordingKeypad{}
	a := New(kp, zerolog.Nop())
	var copied string
	a.Copy = func(s string) error {
		copied = s
		return nil
	}
	a.build(test.NewApp())
	defer a.fyneApp.Quit()

	a.copyDialed()
	assert.Empty(t, copied)

	a.keys["4"].MouseDown(primary)
	a.keys["4"].MouseUp(primary)
	a.copyDialed()
	require.Equal(t, "4", copied)
	assert.Equal(t, "copied 4", a.status.Text)

	a.Copy = func(string) error { return errors.New("no clipboard") }
	a.copyDialed()
	assert.Equal(t, "copy failed", a.status.Text)
}
