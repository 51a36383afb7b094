// Package config loads the dtmfpad YAML configuration.
//
// A config file is optional. Fields left out of the file take their value
// from Default, and command-line overrides are applied last.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

var ErrEmptyPath = errors.New("config path is empty")

type Config struct {
	Tone   ToneConfig   `yaml:"tone"`
	Audio  AudioConfig  `yaml:"audio"`
	Dial   DialConfig   `yaml:"dial"`
	Web    WebConfig    `yaml:"web"`
	Hotkey HotkeyConfig `yaml:"hotkey"`
	Log    LogConfig    `yaml:"log"`
}

type ToneConfig struct {
	FloorMS int     `yaml:"floor_ms"`
	Volume  float64 `yaml:"volume"`
}

type AudioConfig struct {
	SampleRate uint32 `yaml:"sample_rate"`
	Channels   uint32 `yaml:"channels"`
	LatencyMS  int    `yaml:"latency_ms"`
	// Device is a device name or ID. Empty selects the system default.
	Device string `yaml:"device,omitempty"`
}

type DialConfig struct {
	PressMS int `yaml:"press_ms"`
	GapMS   int `yaml:"gap_ms"`
	PauseMS int `yaml:"pause_ms"`
}

type WebConfig struct {
	Listen string `yaml:"listen"`
}

type HotkeyConfig struct {
	// Enabled must default to false: default filling cannot tell an
	// explicit false from a missing field.
	Enabled bool `yaml:"enabled"`
}

type LogConfig struct {
	Path  string `yaml:"path,omitempty"`
	Level string `yaml:"level"`
}

func Default() Config {
	return Config{
		Tone: ToneConfig{
			FloorMS: 150,
			Volume:  0.5,
		},
		Audio: AudioConfig{
			SampleRate: 44100,
			Channels:   1,
			LatencyMS:  50,
		},
		Dial: DialConfig{
			PressMS: 100,
			GapMS:   50,
			PauseMS: 2000,
		},
		Web: WebConfig{
			Listen: "127.0.0.1:8765",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path and fills everything the file leaves out from Default.
// Unknown fields and trailing documents are rejected.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, ErrEmptyPath
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, errors.New("decode config yaml: unexpected trailing document")
	}

	if err := mergo.Merge(&cfg, Default()); err != nil {
		return Config{}, fmt.Errorf("apply config defaults: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads path when set and returns Default otherwise.
func LoadOrDefault(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Overrides holds command-line values. Nil fields are left alone; set
// fields are applied even when they hold a zero value.
type Overrides struct {
	FloorMS  *int
	Volume   *float64
	Device   *string
	Listen   *string
	Hotkeys  *bool
	LogPath  *string
	LogLevel *string
}

func (o Overrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.FloorMS != nil {
		cfg.Tone.FloorMS = *o.FloorMS
	}
	if o.Volume != nil {
		cfg.Tone.Volume = *o.Volume
	}
	if o.Device != nil {
		cfg.Audio.Device = *o.Device
	}
	if o.Listen != nil {
		cfg.Web.Listen = *o.Listen
	}
	if o.Hotkeys != nil {
		cfg.Hotkey.Enabled = *o.Hotkeys
	}
	if o.LogPath != nil {
		cfg.Log.Path = *o.LogPath
	}
	if o.LogLevel != nil {
		cfg.Log.Level = *o.LogLevel
	}
}

// Validate is meant to run after defaults, file and overrides are applied.
func (c *Config) Validate() error {
	if c.Tone.FloorMS <= 0 {
		return errors.New("tone.floor_ms must be > 0")
	}
	if c.Tone.Volume <= 0 || c.Tone.Volume > 1 {
		return errors.New("tone.volume must be in (0, 1]")
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return errors.New("audio.sample_rate must be between 8000 and 192000")
	}
	if c.Audio.Channels != 1 && c.Audio.Channels != 2 {
		return fmt.Errorf("audio.channels must be 1 or 2, got %d", c.Audio.Channels)
	}
	if c.Audio.LatencyMS <= 0 {
		return errors.New("audio.latency_ms must be > 0")
	}
	if c.Dial.PressMS <= 0 {
		return errors.New("dial.press_ms must be > 0")
	}
	if c.Dial.GapMS < 0 || c.Dial.PauseMS < 0 {
		return errors.New("dial.gap_ms and dial.pause_ms must be >= 0")
	}
	if c.Web.Listen == "" {
		return errors.New("web.listen must not be empty")
	}
	if c.Log.Level == "" {
		return errors.New("log.level must not be empty")
	}
	return nil
}

func (c *Config) Floor() time.Duration {
	return time.Duration(c.Tone.FloorMS) * time.Millisecond
}

func (c *Config) Latency() time.Duration {
	return time.Duration(c.Audio.LatencyMS) * time.Millisecond
}

func (d DialConfig) Press() time.Duration { return time.Duration(d.PressMS) * time.Millisecond }
func (d DialConfig) Gap() time.Duration   { return time.Duration(d.GapMS) * time.Millisecond }
func (d DialConfig) Pause() time.Duration { return time.Duration(d.PauseMS) * time.Millisecond }

// ExpandPath expands a leading "~" using $HOME.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
