//go:build gui

package gui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"fyne.io/fyne/v2"
)

// trayIcon draws a 4x4 grid of key dots on a 22px canvas.
func trayIcon() fyne.Resource {
	const size = 22
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	lit := color.RGBA{255, 120, 40, 255}
	dim := color.RGBA{200, 200, 200, 255}
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			c := dim
			if row == 1 && col == 1 {
				c = lit
			}
			x0, y0 := 2+col*5, 2+row*5
			for y := y0; y < y0+3; y++ {
				for x := x0; x < x0+3; x++ {
					img.Set(x, y, c)
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return fyne.NewStaticResource("tray.png", buf.Bytes())
}
