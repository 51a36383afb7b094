//go:build gui

package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"dtmfpad/dtmf"
	"dtmfpad/keypad"
)

var (
	_ desktop.Mouseable = (*keyButton)(nil)
	_ desktop.Hoverable = (*keyButton)(nil)
)

// keyButton is one keypad key. It reports press, release and leave
// separately, which widget.Button cannot do. Only touched from the fyne
// main goroutine.
type keyButton struct {
	widget.BaseWidget
	key  string
	emit func(keypad.Kind, string)

	down     bool
	sounding bool
}

func newKeyButton(key string, emit func(keypad.Kind, string)) *keyButton {
	b := &keyButton{key: key, emit: emit}
	b.ExtendBaseWidget(b)
	return b
}

func (b *keyButton) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	b.down = true
	b.emit(keypad.Press, b.key)
	b.Refresh()
}

func (b *keyButton) MouseUp(ev *desktop.MouseEvent) {
	if !b.down {
		return
	}
	b.down = false
	b.emit(keypad.Release, b.key)
	b.Refresh()
}

func (b *keyButton) MouseIn(*desktop.MouseEvent)    {}
func (b *keyButton) MouseMoved(*desktop.MouseEvent) {}

// MouseOut while the button is down is a leave; the later MouseUp is then
// ignored.
func (b *keyButton) MouseOut() {
	if !b.down {
		return
	}
	b.down = false
	b.emit(keypad.Leave, b.key)
	b.Refresh()
}

// reset forgets a held button without emitting anything.
func (b *keyButton) reset() {
	if b.down {
		b.down = false
		b.Refresh()
	}
}

func (b *keyButton) setSounding(on bool) {
	if b.sounding == on {
		return
	}
	b.sounding = on
	b.Refresh()
}

func (b *keyButton) fill() color.Color {
	switch {
	case b.sounding:
		return keySounding
	case b.down:
		return keyHeld
	case len(b.key) == 1 && b.key[0] >= 'A' && b.key[0] <= 'D':
		return keyLetter
	}
	return keyIdle
}

func (b *keyButton) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(b.fill())
	bg.CornerRadius = 6

	label := canvas.NewText(b.key, theme.Color(theme.ColorNameForeground))
	label.TextSize = 24
	label.TextStyle = fyne.TextStyle{Bold: true}
	label.Alignment = fyne.TextAlignCenter

	sub := canvas.NewText("", color.RGBA{130, 130, 130, 255})
	sub.TextSize = 10
	sub.Alignment = fyne.TextAlignCenter
	if p, ok := dtmf.Lookup(b.key); ok {
		sub.Text = formatPair(p)
	}

	return &keyRenderer{b: b, bg: bg, label: label, sub: sub}
}

type keyRenderer struct {
	b     *keyButton
	bg    *canvas.Rectangle
	label *canvas.Text
	sub   *canvas.Text
}

func (r *keyRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	ls := r.label.MinSize()
	ss := r.sub.MinSize()
	top := (size.Height - ls.Height - ss.Height) / 2
	r.label.Resize(fyne.NewSize(size.Width, ls.Height))
	r.label.Move(fyne.NewPos(0, top))
	r.sub.Resize(fyne.NewSize(size.Width, ss.Height))
	r.sub.Move(fyne.NewPos(0, top+ls.Height))
}

func (r *keyRenderer) MinSize() fyne.Size {
	return fyne.NewSize(72, 60)
}

func (r *keyRenderer) Refresh() {
	r.bg.FillColor = r.b.fill()
	r.bg.Refresh()
}

func (r *keyRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.bg, r.label, r.sub}
}

func (r *keyRenderer) Destroy() {}
