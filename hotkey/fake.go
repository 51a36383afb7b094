package hotkey

import "dtmfpad/keypad"

type FakeListener struct {
	events     chan keypad.Event
	registered bool
}

func NewFake() *FakeListener {
	return &FakeListener{events: make(chan keypad.Event, 16)}
}

func (f *FakeListener) Register() error             { f.registered = true; return nil }
func (f *FakeListener) Unregister()                 { f.registered = false }
func (f *FakeListener) Events() <-chan keypad.Event { return f.events }
func (f *FakeListener) Registered() bool            { return f.registered }

func (f *FakeListener) SimPress(key string) {
	f.events <- keypad.Event{Source: Source, Key: key, Kind: keypad.Press}
}

func (f *FakeListener) SimRelease(key string) {
	f.events <- keypad.Event{Source: Source, Key: key, Kind: keypad.Release}
}

func (f *FakeListener) Close() { close(f.events) }
