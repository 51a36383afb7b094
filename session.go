package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"dtmfpad/audio"
	"dtmfpad/config"
	"dtmfpad/hotkey"
	"dtmfpad/keypad"
	"dtmfpad/log"
	"dtmfpad/tone"
)

// session wires one audio context, one tone controller and the keypad
// binding that every front end of a command shares.
type session struct {
	frontend string
	cfg      config.Config
	logger   zerolog.Logger

	audio   audio.Context
	device  *audio.DeviceInfo
	ctrl    *tone.Controller
	binding *keypad.Binding
	fanout  *toneFanout

	stopHotkeys func()
}

func playbackConfig(cfg config.Config) audio.PlaybackConfig {
	return audio.PlaybackConfig{
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
		Latency:    cfg.Latency(),
		Volume:     cfg.Tone.Volume,
	}
}

// openSession takes ownership of actx. The output device itself is only
// opened once a front end becomes visible.
func openSession(frontend string, cfg config.Config, actx audio.Context) (*session, error) {
	dev, err := audio.FindDevice(actx, cfg.Audio.Device)
	if err != nil {
		actx.Close()
		return nil, err
	}

	s := &session{
		frontend: frontend,
		cfg:      cfg,
		logger:   log.Logger().With().Str("frontend", frontend).Logger(),
		audio:    actx,
		device:   dev,
		fanout:   &toneFanout{},
	}
	playback := playbackConfig(cfg)
	s.ctrl = tone.New(func() (audio.Device, error) {
		return actx.Open(dev, playback)
	},
		tone.WithFloor(cfg.Floor()),
		tone.WithLogger(s.logger),
		tone.WithObserver(s.fanout.Observe),
	)
	s.binding = keypad.NewBinding(s.ctrl, s.logger)

	name := "system default"
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			s.logger.Warn().Str("device", dev.Name).Msg("bluetooth_output")
		}
	}
	log.SessionStart(frontend, name)
	return s, nil
}

// startHotkeys registers the global keys when the config enables them. The
// hotkey source counts as a visible keypad for as long as it is registered.
func (s *session) startHotkeys(ctx context.Context) error {
	if !s.cfg.Hotkey.Enabled {
		return nil
	}
	l := hotkey.New()
	if err := l.Register(); err != nil {
		return fmt.Errorf("registering hotkeys: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.binding.SetVisible(hotkey.Source, true)
	go func() {
		defer close(done)
		hotkey.Forward(ctx, l, s.binding.Handle)
	}()
	s.stopHotkeys = func() {
		cancel()
		l.Unregister()
		<-done
		s.binding.SetVisible(hotkey.Source, false)
	}
	s.logger.Info().Msg("hotkeys_registered")
	return nil
}

// logDialed flushes the dialed history to the dial log.
func (s *session) logDialed() string {
	digits := s.binding.ResetDialed()
	if digits != "" {
		log.Dialed(s.frontend, digits)
	}
	return digits
}

func (s *session) Close() {
	if s.stopHotkeys != nil {
		s.stopHotkeys()
	}
	s.logDialed()
	s.ctrl.Close()
	s.audio.Close()
	log.SessionEnd(s.fanout.Tones())
}
