//go:build gui

// Package gui is the desktop keypad window. It reports key presses to a
// keypad binding and follows the application's foreground state for
// visibility.
package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"dtmfpad/dtmf"
	"dtmfpad/keypad"
	"dtmfpad/tone"
)

const Source = "gui"

// Keypad is the part of keypad.Binding the window drives.
type Keypad interface {
	Handle(keypad.Event)
	SetVisible(source string, visible bool)
	Dialed() string
}

type App struct {
	kp     Keypad
	logger zerolog.Logger
	// Copy puts the dialed number on the clipboard. Nil hides the action.
	Copy func(string) error

	fyneApp fyne.App
	window  fyne.Window
	keys    map[string]*keyButton
	display *widget.Label
	status  *widget.Label
	session uint64 // last ToneStarted
}

func New(kp Keypad, logger zerolog.Logger) *App {
	return &App{
		kp:     kp,
		logger: logger.With().Str("component", "gui").Logger(),
		keys:   make(map[string]*keyButton),
	}
}

// Run shows the keypad and blocks in the fyne event loop until the user
// quits. It must be called on the main goroutine. onReady runs in its own
// goroutine once the window exists.
func (a *App) Run(onReady func()) error {
	a.build(app.NewWithID("io.dtmfpad.gui"))
	if onReady != nil {
		go onReady()
	}
	a.window.ShowAndRun()
	a.kp.SetVisible(Source, false)
	return nil
}

func (a *App) Quit() {
	if a.fyneApp != nil {
		fyne.Do(a.fyneApp.Quit)
	}
}

func (a *App) build(fa fyne.App) {
	a.fyneApp = fa
	fa.Settings().SetTheme(&darkTheme{})

	lc := fa.Lifecycle()
	lc.SetOnEnteredForeground(func() { a.setVisible(true) })
	lc.SetOnExitedForeground(func() { a.setVisible(false) })
	lc.SetOnStopped(func() { a.setVisible(false) })

	a.window = fa.NewWindow("dtmfpad")
	a.display = widget.NewLabel("")
	a.display.Alignment = fyne.TextAlignCenter
	a.display.TextStyle = fyne.TextStyle{Monospace: true, Bold: true}
	a.status = widget.NewLabel("idle")
	a.status.Alignment = fyne.TextAlignCenter

	grid := container.NewGridWithColumns(4)
	for _, row := range dtmf.Rows() {
		for _, key := range row {
			b := newKeyButton(key, a.emit)
			a.keys[key] = b
			grid.Add(b)
		}
	}

	var bottom fyne.CanvasObject = a.status
	if a.Copy != nil {
		bottom = container.NewBorder(nil, nil, nil, widget.NewButton("Copy", a.copyDialed), a.status)
	}
	a.window.SetContent(container.NewBorder(a.display, bottom, nil, nil, grid))
	a.window.SetFixedSize(true)

	a.window.Canvas().SetOnTypedRune(a.typed)

	// Closing the window hides it; the tray keeps the app alive.
	if desk, ok := fa.(desktop.App); ok {
		items := []*fyne.MenuItem{
			fyne.NewMenuItem("Show keypad", func() {
				a.window.Show()
				a.window.RequestFocus()
			}),
		}
		if a.Copy != nil {
			items = append(items, fyne.NewMenuItem("Copy dialed number", a.copyDialed))
		}
		desk.SetSystemTrayMenu(fyne.NewMenu("dtmfpad", items...))
		if icon := trayIcon(); icon != nil {
			desk.SetSystemTrayIcon(icon)
		}
		a.window.SetCloseIntercept(func() {
			a.setVisible(false)
			a.window.Hide()
		})
	}
}

func (a *App) emit(kind keypad.Kind, key string) {
	a.kp.Handle(keypad.Event{Source: Source, Key: key, Kind: kind})
	if kind == keypad.Press {
		a.display.SetText(a.kp.Dialed())
	}
}

// typed handles the keyboard. Typed runes carry no key-up, so each one is
// a tap that sounds for the floor.
func (a *App) typed(r rune) {
	key := dtmf.Normalize(string(r))
	if key == "" {
		return
	}
	a.emit(keypad.Press, key)
	a.emit(keypad.Release, key)
}

func (a *App) setVisible(visible bool) {
	if !visible {
		for _, b := range a.keys {
			b.reset()
		}
	}
	a.logger.Debug().Bool("visible", visible).Msg("visibility")
	a.kp.SetVisible(Source, visible)
}

func (a *App) copyDialed() {
	number := a.kp.Dialed()
	if number == "" {
		return
	}
	if err := a.Copy(number); err != nil {
		a.logger.Warn().Err(err).Msg("copy_failed")
		a.status.SetText("copy failed")
		return
	}
	a.status.SetText("copied " + number)
}

// Observe is a tone.Observer. It may be called from any goroutine.
func (a *App) Observe(ev tone.Event) {
	fyne.Do(func() { a.showTone(ev) })
}

func (a *App) showTone(ev tone.Event) {
	switch ev.Kind {
	case tone.ToneStarted:
		a.session = ev.Session
	case tone.ToneStopped:
		if ev.Session != a.session {
			return
		}
	}
	for key, b := range a.keys {
		b.setSounding(ev.Kind == tone.ToneStarted && key == ev.Key)
	}
	switch ev.Kind {
	case tone.ToneStarted:
		a.status.SetText(fmt.Sprintf("%s  %s Hz", ev.Key, formatPair(ev.Pair)))
	case tone.ToneStopped:
		a.status.SetText("idle")
	}
}

func formatPair(p dtmf.Pair) string {
	return fmt.Sprintf("%.0f+%.0f", p.Low, p.High)
}
