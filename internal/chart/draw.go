package chart

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const (
	tickLen = 4

	// Series hues walk the same blue-to-red span the power color mapping
	// uses, one hue per quantity row.
	hueStart = 236.0
	hueEnd   = 0.0
	hueRows  = 4
)

var axisColor = color.RGBA{R: 0x60, G: 0x60, B: 0x60, A: 0xff}

// seriesColor returns the palette color for a quantity row.
func seriesColor(row int) color.Color {
	hue := hueStart - float64(row)*(hueStart-hueEnd)/float64(hueRows-1)
	return colorful.Hsv(hue, 1, 0.80)
}

// drawHLine draws a horizontal line from x0 to x1 at height y.
func drawHLine(img *image.RGBA, x0, x1, y int, c color.Color) {
	for x := x0; x <= x1; x++ {
		img.Set(x, y, c)
	}
}

// drawVLine draws a vertical line from y0 to y1 at column x.
func drawVLine(img *image.RGBA, x, y0, y1 int, c color.Color) {
	for y := y0; y <= y1; y++ {
		img.Set(x, y, c)
	}
}

// drawRect draws the outline of rect.
func drawRect(img *image.RGBA, rect image.Rectangle, c color.Color) {
	drawHLine(img, rect.Min.X, rect.Max.X, rect.Min.Y, c)
	drawHLine(img, rect.Min.X, rect.Max.X, rect.Max.Y, c)
	drawVLine(img, rect.Min.X, rect.Min.Y, rect.Max.Y, c)
	drawVLine(img, rect.Max.X, rect.Min.Y, rect.Max.Y, c)
}

// drawLine draws a straight line between two points (Bresenham).
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	err := dx + dy
	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// drawMarker draws a small filled square centered on the data point.
func drawMarker(img *image.RGBA, x, y int, c color.Color) {
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			img.Set(x+dx, y+dy, c)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// drawCenteredText draws s horizontally centered on x with baseline y.
func (r *Renderer) drawCenteredText(img *image.RGBA, s string, x, y int) {
	width := font.MeasureString(r.face, s)
	d := font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: r.face,
		Dot:  fixed.P(x-width.Round()/2, y),
	}
	d.DrawString(s)
}

// drawRightText draws s right-aligned so it ends at x, baseline y.
func (r *Renderer) drawRightText(img *image.RGBA, s string, x, y int) {
	width := font.MeasureString(r.face, s)
	d := font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: r.face,
		Dot:  fixed.P(x-width.Round(), y),
	}
	d.DrawString(s)
}
