package keypad

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	mu        sync.Mutex
	calls     []string
	resumeErr error
}

func (f *fakeController) record(s string) {
	f.mu.Lock()
	f.calls = append(f.calls, s)
	f.mu.Unlock()
}

func (f *fakeController) Start(key string) { f.record("start " + key) }
func (f *fakeController) Stop()            { f.record("stop") }
func (f *fakeController) Suspend()         { f.record("suspend") }

func (f *fakeController) Resume() error {
	f.record("resume")
	return f.resumeErr
}

func (f *fakeController) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestBinding() (*Binding, *fakeController) {
	ctrl := &fakeController{}
	return NewBinding(ctrl, zerolog.Nop()), ctrl
}

func TestBindingPressRelease(t *testing.T) {
	b, ctrl := newTestBinding()

	b.Handle(Event{Source: "web-1", Key: "5", Kind: Press})
	assert.Equal(t, []string{"5"}, b.HeldKeys())
	b.Handle(Event{Source: "web-1", Key: "5", Kind: Release})
	assert.Empty(t, b.HeldKeys())

	assert.Equal(t, []string{"start 5", "stop"}, ctrl.Calls())
}

func TestBindingNormalizesKey(t *testing.T) {
	b, ctrl := newTestBinding()

	b.Handle(Event{Source: "tui", Key: "a", Kind: Press})
	b.Handle(Event{Source: "tui", Key: "a", Kind: Release})

	assert.Equal(t, []string{"start A", "stop"}, ctrl.Calls())
	assert.Equal(t, "A", b.Dialed())
}

func TestBindingReleaseWithoutPressStillStops(t *testing.T) {
	b, ctrl := newTestBinding()

	b.Handle(Event{Source: "web-1", Key: "1", Kind: Release})
	b.Handle(Event{Source: "web-1", Key: "1", Kind: Cancel})

	assert.Equal(t, []string{"stop", "stop"}, ctrl.Calls())
}

func TestBindingLeaveOnlyWhileHeld(t *testing.T) {
	b, ctrl := newTestBinding()

	// Hovering across a key without the button down.
	b.Handle(Event{Source: "web-1", Key: "3", Kind: Leave})
	assert.Empty(t, ctrl.Calls())

	b.Handle(Event{Source: "web-1", Key: "3", Kind: Press})
	b.Handle(Event{Source: "web-1", Key: "3", Kind: Leave})
	// The pointerup that follows the leave lands elsewhere; it still stops.
	b.Handle(Event{Source: "web-1", Key: "3", Kind: Leave})

	assert.Equal(t, []string{"start 3", "stop"}, ctrl.Calls())
}

func TestBindingLeaveIsPerSource(t *testing.T) {
	b, ctrl := newTestBinding()

	b.Handle(Event{Source: "web-1", Key: "7", Kind: Press})
	b.Handle(Event{Source: "web-2", Key: "7", Kind: Leave})

	assert.Equal(t, []string{"start 7"}, ctrl.Calls())
	assert.Equal(t, []string{"7"}, b.HeldKeys())
}

func TestBindingVisibilityRefcount(t *testing.T) {
	b, ctrl := newTestBinding()

	b.SetVisible("web-1", true)
	b.SetVisible("web-2", true)
	b.SetVisible("web-1", true)
	assert.Equal(t, 2, b.Visible())

	b.SetVisible("web-1", false)
	b.SetVisible("web-2", false)
	b.SetVisible("web-2", false)
	assert.Equal(t, 0, b.Visible())

	assert.Equal(t, []string{"resume", "suspend"}, ctrl.Calls())
}

func TestBindingHideDropsHeldKeys(t *testing.T) {
	b, ctrl := newTestBinding()

	b.SetVisible("tui", true)
	b.Handle(Event{Source: "tui", Key: "9", Kind: Press})
	b.SetVisible("tui", false)

	assert.Empty(t, b.HeldKeys())
	assert.Equal(t, []string{"resume", "start 9", "stop", "suspend"}, ctrl.Calls())
}

func TestBindingHideStopsWhileOthersVisible(t *testing.T) {
	b, ctrl := newTestBinding()

	b.SetVisible("hotkey", true)
	b.SetVisible("web-1", true)
	b.Handle(Event{Source: "web-1", Key: "5", Kind: Press})
	b.SetVisible("web-1", false)
	b.Handle(Event{Source: "web-1", Key: "5", Kind: Leave})

	assert.Empty(t, b.HeldKeys())
	assert.Equal(t, 1, b.Visible())
	assert.Equal(t, []string{"resume", "start 5", "stop"}, ctrl.Calls())
}

func TestBindingResumeErrorIsNotFatal(t *testing.T) {
	b, ctrl := newTestBinding()
	ctrl.resumeErr = errors.New("no sink")

	b.SetVisible("web-1", true)
	b.Handle(Event{Source: "web-1", Key: "1", Kind: Press})

	assert.Equal(t, []string{"resume", "start 1"}, ctrl.Calls())
}

func TestBindingDisconnect(t *testing.T) {
	b, ctrl := newTestBinding()

	b.SetVisible("web-1", true)
	b.SetVisible("web-2", true)
	b.Handle(Event{Source: "web-1", Key: "#", Kind: Press})

	b.Disconnect("web-1")
	assert.Equal(t, []string{"resume", "start #", "stop"}, ctrl.Calls())
	assert.Equal(t, 1, b.Visible())

	b.Disconnect("web-2")
	assert.Equal(t, []string{"resume", "start #", "stop", "suspend"}, ctrl.Calls())
}

func TestBindingDisconnectWithoutHeldKeys(t *testing.T) {
	b, ctrl := newTestBinding()

	b.Disconnect("web-1")

	assert.Empty(t, ctrl.Calls())
}

func TestBindingTap(t *testing.T) {
	b, ctrl := newTestBinding()

	b.Tap("tui", "*")

	assert.Equal(t, []string{"start *", "stop"}, ctrl.Calls())
	assert.Empty(t, b.HeldKeys())
}

func TestBindingDialedHistory(t *testing.T) {
	b, _ := newTestBinding()

	for _, k := range []string{"1", "x", "2", "#"} {
		b.Tap("tui", k)
	}
	assert.Equal(t, "12#", b.Dialed())
	assert.Equal(t, "12#", b.ResetDialed())
	assert.Empty(t, b.Dialed())

	for i := 0; i < maxDialed+10; i++ {
		b.Tap("tui", "0")
	}
	b.Tap("tui", "9")
	dialed := b.Dialed()
	require.Len(t, dialed, maxDialed)
	assert.True(t, strings.HasSuffix(dialed, "09"))
}

func TestDialerSequence(t *testing.T) {
	b, ctrl := newTestBinding()
	d := &Dialer{Binding: b, Source: "dial"}

	require.NoError(t, d.Dial(context.Background(), "1a,#-"))

	assert.Equal(t, []string{
		"start 1", "stop",
		"start A", "stop",
		"start #", "stop",
	}, ctrl.Calls())
	assert.Equal(t, "1A#", b.Dialed())
	assert.Empty(t, b.HeldKeys())
}

func TestDialerCancelReleasesKey(t *testing.T) {
	b, ctrl := newTestBinding()
	d := &Dialer{Binding: b, Press: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Dial(ctx, "55") }()

	require.Eventually(t, func() bool { return len(ctrl.Calls()) == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("dial did not return after cancel")
	}
	assert.Equal(t, []string{"start 5", "stop"}, ctrl.Calls())
	assert.Empty(t, b.HeldKeys())
}
