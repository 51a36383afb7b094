package audio

import (
	"math"
	"sync"
)

// Mixer sums sine oscillators into interleaved int16 frames. Both output
// back ends pull from it inside their stream callbacks.
type Mixer struct {
	mu         sync.Mutex
	sampleRate float64
	channels   int
	amplitude  float64
	oscs       []*oscillator
}

type oscillator struct {
	mixer    *Mixer
	step     float64
	phase    float64
	playing  bool
	released bool
}

func NewMixer(config PlaybackConfig) *Mixer {
	config = config.withDefaults()
	return &Mixer{
		sampleRate: float64(config.SampleRate),
		channels:   int(config.Channels),
		// Two tones at full scale each would clip; split the volume between them.
		amplitude: config.Volume / 2,
	}
}

func (m *Mixer) Channels() int { return m.channels }

// Add registers a stopped oscillator and returns it as a Generator.
func (m *Mixer) Add(freq float64) Generator {
	o := &oscillator{
		mixer: m,
		step:  2 * math.Pi * freq / m.sampleRate,
	}
	m.mu.Lock()
	m.oscs = append(m.oscs, o)
	m.mu.Unlock()
	return o
}

// Playing returns the number of started, unreleased oscillators.
func (m *Mixer) Playing() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.oscs {
		if o.playing {
			n++
		}
	}
	return n
}

// Len returns the number of unreleased oscillators.
func (m *Mixer) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.oscs)
}

// Render fills buf with interleaved frames and returns the number of samples
// written. A trailing partial frame is left untouched.
func (m *Mixer) Render(buf []int16) int {
	frames := len(buf) / m.channels
	n := frames * m.channels

	m.mu.Lock()
	defer m.mu.Unlock()

	for f := 0; f < frames; f++ {
		var v float64
		for _, o := range m.oscs {
			if !o.playing {
				continue
			}
			v += math.Sin(o.phase) * m.amplitude
			o.phase += o.step
			if o.phase >= 2*math.Pi {
				o.phase -= 2 * math.Pi
			}
		}
		s := toInt16(v)
		for c := 0; c < m.channels; c++ {
			buf[f*m.channels+c] = s
		}
	}
	return n
}

// RenderBytes renders frameCount frames as little-endian int16 into out.
// scratch is reused between calls to keep the audio callback allocation free.
func (m *Mixer) RenderBytes(out []byte, frameCount uint32, scratch *[]int16) {
	need := int(frameCount) * m.channels
	if cap(*scratch) < need {
		*scratch = make([]int16, need)
	}
	buf := (*scratch)[:need]
	m.Render(buf)
	for i, s := range buf {
		if i*2+1 >= len(out) {
			break
		}
		out[i*2] = byte(s)
		out[i*2+1] = byte(uint16(s) >> 8)
	}
}

func toInt16(v float64) int16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int16(v * 32767)
}

// StartAll starts gens together. Oscillators of m start under one lock, so no
// rendered period carries only part of a pair. Other generators start after.
func (m *Mixer) StartAll(gens ...Generator) {
	var rest []Generator
	m.mu.Lock()
	for _, g := range gens {
		if o, ok := g.(*oscillator); ok && o.mixer == m {
			o.startLocked()
		} else {
			rest = append(rest, g)
		}
	}
	m.mu.Unlock()
	for _, g := range rest {
		g.Start()
	}
}

// StartAll starts gens, as one step when they share a mixer.
func StartAll(gens ...Generator) {
	for _, g := range gens {
		if o, ok := g.(*oscillator); ok {
			o.mixer.StartAll(gens...)
			return
		}
	}
	for _, g := range gens {
		g.Start()
	}
}

func (o *oscillator) Start() {
	o.mixer.mu.Lock()
	o.startLocked()
	o.mixer.mu.Unlock()
}

func (o *oscillator) startLocked() {
	if !o.released {
		o.phase = 0
		o.playing = true
	}
}

func (o *oscillator) Stop() {
	o.mixer.mu.Lock()
	o.playing = false
	o.mixer.mu.Unlock()
}

func (o *oscillator) Release() {
	m := o.mixer
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.released {
		return
	}
	o.released = true
	o.playing = false
	for i, other := range m.oscs {
		if other == o {
			m.oscs = append(m.oscs[:i], m.oscs[i+1:]...)
			break
		}
	}
}

// mixerDevice is the Device shared by the pulse and malgo back ends; they only
// differ in how the mixer gets pulled and torn down.
type mixerDevice struct {
	mixer   *Mixer
	name    string
	mu      sync.Mutex
	closed  bool
	closeFn func()
}

// NewMixerDevice exposes mixer as a Device without any output attached.
// The caller pulls samples with Render, as the FLAC export does.
func NewMixerDevice(mixer *Mixer, name string) Device {
	return newMixerDevice(mixer, name, nil)
}

func newMixerDevice(mixer *Mixer, name string, closeFn func()) *mixerDevice {
	return &mixerDevice{mixer: mixer, name: name, closeFn: closeFn}
}

func (d *mixerDevice) NewGenerator(freq float64) (Generator, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	return d.mixer.Add(freq), nil
}

func (d *mixerDevice) Name() string { return d.name }

func (d *mixerDevice) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()
	if d.closeFn != nil {
		d.closeFn()
	}
}
