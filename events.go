package main

import (
	"sync"
	"sync/atomic"

	"dtmfpad/tone"
)

// toneFanout delivers controller events to every front end that is
// running. Sinks must not block: the controller calls Observe from key
// handlers and floor timers.
type toneFanout struct {
	mu    sync.Mutex
	sinks []tone.Observer
	tones atomic.Int64
}

func (f *toneFanout) Add(o tone.Observer) {
	f.mu.Lock()
	f.sinks = append(f.sinks, o)
	f.mu.Unlock()
}

func (f *toneFanout) Observe(ev tone.Event) {
	if ev.Kind == tone.ToneStarted {
		f.tones.Add(1)
	}
	f.mu.Lock()
	sinks := f.sinks
	f.mu.Unlock()
	for _, o := range sinks {
		o(ev)
	}
}

// Tones is the number of tones started so far.
func (f *toneFanout) Tones() int {
	return int(f.tones.Load())
}
