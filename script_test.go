package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtmfpad/audio"
	"dtmfpad/config"
	"dtmfpad/keypad"
	"dtmfpad/tone"
)

func scriptConfig() config.Config {
	cfg := config.Default()
	cfg.Tone.FloorMS = 30
	cfg.Dial.PressMS = 10
	cfg.Dial.GapMS = 10
	cfg.Dial.PauseMS = 10
	return cfg
}

func runScriptLines(t *testing.T, lines ...string) []string {
	t.Helper()
	var out bytes.Buffer
	err := runScript(scriptConfig(), strings.NewReader(strings.Join(lines, "\n")+"\n"), &out)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(out.String()), "\n")
}

func TestScriptShortPressPlaysFloor(t *testing.T) {
	got := runScriptLines(t, "PRESS 5", "RELEASE 5", "SLEEP 100", "QUIT")
	assert.Equal(t, []string{
		"open",
		"create 1 770",
		"create 2 1336",
		"start 1 770",
		"start 2 1336",
		"tone_started 1 5",
		"stop 1 770",
		"stop 2 1336",
		"release 1 770",
		"release 2 1336",
		"tone_stopped 1 5",
		"close",
	}, got)
}

func TestScriptHideSilences(t *testing.T) {
	got := runScriptLines(t, "# held through hide", "press 1", "HIDE", "SHOW", "QUIT", "PRESS 2")
	assert.Equal(t, []string{
		"open",
		"create 1 697",
		"create 2 1209",
		"start 1 697",
		"start 2 1209",
		"tone_started 1 1",
		"stop 1 697",
		"stop 2 1209",
		"release 1 697",
		"release 2 1209",
		"close",
		"tone_stopped 1 1",
		"open",
		"close",
	}, got)
}

func TestScriptErrorsContinue(t *testing.T) {
	got := runScriptLines(t, "JUMP 1", "PRESS", "SLEEP x", "QUIT")
	require.Len(t, got, 5)
	assert.Equal(t, "open", got[0])
	for _, line := range got[1:4] {
		assert.True(t, strings.HasPrefix(line, "error: "), line)
	}
	assert.Equal(t, "close", got[4])
}

func TestScriptDial(t *testing.T) {
	got := runScriptLines(t, "DIAL 1,2")
	var started []string
	for _, line := range got {
		if strings.HasPrefix(line, tone.ToneStarted.String()) {
			started = append(started, line)
		}
	}
	assert.Equal(t, []string{"tone_started 1 1", "tone_started 2 2"}, started)
	assert.Contains(t, got, "close")
}

func TestSessionHideSilencesWhileHotkeysVisible(t *testing.T) {
	fake := audio.NewFakeContext()
	s, err := openSession("web", scriptConfig(), fake)
	require.NoError(t, err)
	defer s.Close()

	s.binding.SetVisible("hotkey", true)
	s.binding.SetVisible("web-1", true)
	s.binding.Handle(keypad.Event{Source: "web-1", Key: "5", Kind: keypad.Press})
	require.Equal(t, []float64{770, 1336}, fake.Audible())

	s.binding.SetVisible("web-1", false)
	s.binding.Handle(keypad.Event{Source: "web-1", Key: "5", Kind: keypad.Leave})

	assert.Eventually(t, func() bool { return len(fake.Audible()) == 0 }, time.Second, 5*time.Millisecond)
	assert.False(t, s.ctrl.Playing())
	assert.Equal(t, 1, fake.OpenDevices())
}

func TestToneFanout(t *testing.T) {
	var f toneFanout
	var a, b []tone.EventKind
	f.Add(func(ev tone.Event) { a = append(a, ev.Kind) })
	f.Add(func(ev tone.Event) { b = append(b, ev.Kind) })

	f.Observe(tone.Event{Kind: tone.ToneStarted})
	f.Observe(tone.Event{Kind: tone.ToneStopped})
	f.Observe(tone.Event{Kind: tone.ToneStarted})

	assert.Equal(t, []tone.EventKind{tone.ToneStarted, tone.ToneStopped, tone.ToneStarted}, a)
	assert.Equal(t, a, b)
	assert.Equal(t, 2, f.Tones())
}
