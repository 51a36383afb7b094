package audio

import (
	"errors"
	"strings"
	"time"
)

const (
	DefaultSampleRate = 44100
	DefaultChannels   = 1
	DefaultLatency    = 50 * time.Millisecond
	DefaultVolume     = 0.5
)

var ErrClosed = errors.New("audio device closed")

// Bluetooth outputs add 100-200ms of latency, which eats most of the tone floor.
var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", "bluez", " bt ", " bt)", " bt]",
}

func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

type PlaybackConfig struct {
	SampleRate uint32
	Channels   uint32
	Latency    time.Duration
	Volume     float64 // peak amplitude of a full two-tone pair, 0..1
}

func (c PlaybackConfig) withDefaults() PlaybackConfig {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Channels == 0 {
		c.Channels = DefaultChannels
	}
	if c.Latency <= 0 {
		c.Latency = DefaultLatency
	}
	if c.Volume <= 0 {
		c.Volume = DefaultVolume
	}
	return c
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

// Context enumerates output devices and opens them.
type Context interface {
	Devices() ([]DeviceInfo, error)
	Open(device *DeviceInfo, config PlaybackConfig) (Device, error)
	Close()
}

// Device is an open output. It is expensive to create, so callers keep one
// around across tones and only Close it when the keypad goes away.
type Device interface {
	NewGenerator(freq float64) (Generator, error)
	Name() string
	Close()
}

// Generator is a single sine tone on a Device. Stop silences it, Release
// detaches it from the device; both are safe to call more than once.
type Generator interface {
	Start()
	Stop()
	Release()
}
