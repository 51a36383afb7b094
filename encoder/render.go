package encoder

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"dtmfpad/audio"
	"dtmfpad/dtmf"
	"dtmfpad/tone"
)

// RenderOptions describes how a dial string is pressed. Zero durations take
// the keypad defaults; Tail defaults to the floor so the last tone is never
// cut short.
type RenderOptions struct {
	SampleRate uint32
	Volume     float64
	Floor      time.Duration
	Press      time.Duration
	Gap        time.Duration
	Pause      time.Duration
	Tail       time.Duration
	Logger     zerolog.Logger
}

func (o RenderOptions) withDefaults() RenderOptions {
	if o.SampleRate == 0 {
		o.SampleRate = audio.DefaultSampleRate
	}
	if o.Volume == 0 {
		o.Volume = audio.DefaultVolume
	}
	if o.Floor == 0 {
		o.Floor = tone.DefaultFloor
	}
	if o.Press == 0 {
		o.Press = 100 * time.Millisecond
	}
	if o.Gap == 0 {
		o.Gap = 50 * time.Millisecond
	}
	if o.Pause == 0 {
		o.Pause = 2 * time.Second
	}
	if o.Tail == 0 {
		o.Tail = o.Floor
	}
	return o
}

// Render plays digits through a tone controller running on sample time and
// returns the mono samples it produced. The floor applies exactly as it does
// live: a press shorter than the floor still sounds for the whole floor.
func Render(digits string, opts RenderOptions) ([]int16, error) {
	opts = opts.withDefaults()
	seq := dtmf.Clean(digits)
	if seq == "" {
		return nil, errors.New("nothing to dial")
	}

	mixer := audio.NewMixer(audio.PlaybackConfig{
		SampleRate: opts.SampleRate,
		Channels:   Channels,
		Volume:     opts.Volume,
	})
	r := &renderer{
		clock: &sampleClock{start: time.Unix(0, 0), rate: float64(opts.SampleRate)},
		mixer: mixer,
	}
	ctrl := tone.New(func() (audio.Device, error) {
		return audio.NewMixerDevice(mixer, "render"), nil
	}, tone.WithClock(r.clock), tone.WithFloor(opts.Floor), tone.WithLogger(opts.Logger))
	if err := ctrl.Resume(); err != nil {
		return nil, err
	}
	defer ctrl.Close()

	for _, c := range seq {
		if c == ',' {
			r.advance(opts.Pause)
			continue
		}
		ctrl.Start(string(c))
		r.advance(opts.Press)
		ctrl.Stop()
		r.advance(opts.Gap)
	}
	r.advance(opts.Tail)
	return r.out, nil
}

// RenderFLAC renders digits and encodes the result.
func RenderFLAC(digits string, opts RenderOptions) ([]byte, error) {
	opts = opts.withDefaults()
	samples, err := Render(digits, opts)
	if err != nil {
		return nil, err
	}
	enc, err := NewFlac(opts.SampleRate, uint64(len(samples)))
	if err != nil {
		return nil, err
	}
	if err := Encode(enc, samples); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

// sampleClock measures time in rendered frames. It is only touched from the
// rendering goroutine.
type sampleClock struct {
	start  time.Time
	rate   float64
	frame  int64
	timers []*sampleTimer
}

type sampleTimer struct {
	at   int64
	f    func()
	done bool
}

func (c *sampleClock) frames(d time.Duration) int64 {
	return int64(d.Seconds()*c.rate + 0.5)
}

func (c *sampleClock) Now() time.Time {
	return c.start.Add(time.Duration(float64(c.frame) / c.rate * float64(time.Second)))
}

func (c *sampleClock) AfterFunc(d time.Duration, f func()) tone.Timer {
	t := &sampleTimer{at: c.frame + c.frames(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *sampleTimer) Stop() bool {
	if t.done {
		return false
	}
	t.done = true
	return true
}

func (c *sampleClock) next(limit int64) *sampleTimer {
	var next *sampleTimer
	for _, t := range c.timers {
		if t.done || t.at > limit {
			continue
		}
		if next == nil || t.at < next.at {
			next = t
		}
	}
	return next
}

func (c *sampleClock) prune() {
	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.done {
			live = append(live, t)
		}
	}
	c.timers = live
}

type renderer struct {
	clock *sampleClock
	mixer *audio.Mixer
	out   []int16
}

// advance renders d worth of audio, firing timers at their exact frame.
func (r *renderer) advance(d time.Duration) {
	target := r.clock.frame + r.clock.frames(d)
	for {
		t := r.clock.next(target)
		if t == nil {
			r.renderTo(target)
			r.clock.prune()
			return
		}
		r.renderTo(t.at)
		t.done = true
		t.f()
	}
}

func (r *renderer) renderTo(frame int64) {
	n := frame - r.clock.frame
	if n <= 0 {
		return
	}
	buf := make([]int16, n*Channels)
	r.mixer.Render(buf)
	r.out = append(r.out, buf...)
	r.clock.frame = frame
}
