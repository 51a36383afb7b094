//go:build gui

package main

import (
	"context"
	"fmt"
	"os"

	"dtmfpad/audio"
	"dtmfpad/gui"
	"dtmfpad/log"
	"dtmfpad/shutdown"
)

// runGUI owns the main goroutine until the window quits.
func runGUI() {
	cfg, err := loadConfig()
	app.FatalIfError(err, "")
	app.FatalIfError(setupLogging(cfg, true), "")
	defer log.Close()

	// Core Audio wants its context created on the main thread, before fyne
	// takes it over.
	actx, err := audio.NewContext()
	app.FatalIfError(err, "initializing audio")

	s, err := openSession(gui.Source, cfg, actx)
	app.FatalIfError(err, "")
	defer s.Close()

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	win := gui.New(s.binding, s.logger)
	win.Copy = copyDialed
	s.fanout.Add(win.Observe)

	closed := make(chan struct{})
	err = win.Run(func() {
		if err := s.startHotkeys(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("hotkeys_unavailable")
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
		select {
		case <-ctx.Done():
			win.Quit()
		case <-closed:
		}
	})
	close(closed)
	if err != nil {
		log.Errorf("gui: %v", err)
	}
}
