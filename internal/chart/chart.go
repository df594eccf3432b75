// Package chart renders a measurement result into the fixed-layout motor
// performance chart: a 4x2 grid plotting power, thrust, current and
// efficiency against throttle (left column) and RPM (right column).
package chart

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"
	"os"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/uav-lab/teststand2-buddy/internal/measure"
)

const (
	defaultPanelWidth  = 360
	defaultPanelHeight = 220

	// Default border sizes in pixels
	defaultTopBorder    = 60 // Space for the title block
	defaultSideBorder   = 20
	defaultBottomBorder = 20

	// Spacing between panels
	panelGapX = 30
	panelGapY = 26

	// Insets between a panel's area and its plot box: title row above,
	// tick labels left and below, and a right margin keeping max-x
	// markers inside the panel.
	panelTitleSpace  = 18
	panelLeftInset   = 46
	panelRightInset  = 8
	panelBottomInset = 18

	fontSize = 12.0
	fontDPI  = 72.0
)

// Config holds the renderer options. Zero values fall back to defaults.
type Config struct {
	PanelWidth  int     // Width of one panel's plot area
	PanelHeight int     // Height of one panel's plot area
	FontFile    string  // Optional TTF file for labels; basicfont otherwise
	FontSize    float64 // Font size in points, used with FontFile
}

// Renderer draws performance charts. A Renderer is reusable; rendering is a
// pure function of the session parameters and the measurement result, so
// repeated passes over the same result produce identical images.
type Renderer struct {
	config Config
	face   font.Face
}

// NewRenderer creates a renderer, loading the configured TTF face when one
// is set and falling back to the built-in fixed-width face otherwise.
func NewRenderer(config Config) (*Renderer, error) {
	if config.PanelWidth == 0 {
		config.PanelWidth = defaultPanelWidth
	}
	if config.PanelHeight == 0 {
		config.PanelHeight = defaultPanelHeight
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}

	face := font.Face(basicfont.Face7x13)
	if config.FontFile != "" {
		fontBytes, err := os.ReadFile(config.FontFile)
		if err != nil {
			return nil, fmt.Errorf("reading font file: %w", err)
		}
		parsedFont, err := freetype.ParseFont(fontBytes)
		if err != nil {
			return nil, fmt.Errorf("parsing font: %w", err)
		}
		face = truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     fontDPI,
			Hinting: font.HintingNone,
		})
	}

	return &Renderer{config: config, face: face}, nil
}

// panel describes one cell of the chart grid.
type panel struct {
	title string
	xs    []float64
	ys    []float64
	color int // palette row index
}

// Render draws the full chart for the given session parameters and result.
func (r *Renderer) Render(sessionName string, outputScale float64, result measure.Result) (*image.RGBA, error) {
	if len(result) == 0 {
		return nil, fmt.Errorf("rendering chart: empty measurement result")
	}

	derived := measure.DeriveAll(result)

	throttle := make([]float64, len(result))
	rpm := make([]float64, len(result))
	thrust := make([]float64, len(result))
	current := make([]float64, len(result))
	power := make([]float64, len(result))
	efficiency := make([]float64, len(result))
	for i, rec := range result {
		throttle[i] = rec.Throttle
		rpm[i] = rec.RPM
		thrust[i] = rec.Thrust
		current[i] = rec.Current
		power[i] = derived[i].Power
		efficiency[i] = derived[i].Efficiency
	}

	panels := []panel{
		{"Power (w) vs Throttle %", throttle, power, 0},
		{"Power (w) vs RPM", rpm, power, 0},
		{"Thrust (kg) vs Throttle %", throttle, thrust, 1},
		{"Thrust (kg) vs RPM", rpm, thrust, 1},
		{"Current (A) vs Throttle %", throttle, current, 2},
		{"Current (A) vs RPM", rpm, current, 2},
		{"Efficiency (kg/w) vs Throttle %", throttle, efficiency, 3},
		{"Efficiency (kg/w) vs RPM", rpm, efficiency, 3},
	}

	fullWidth := defaultSideBorder*2 + r.config.PanelWidth*2 + panelGapX
	fullHeight := defaultTopBorder + r.config.PanelHeight*4 + panelGapY*3 + defaultBottomBorder
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	title := fmt.Sprintf("Motor System Performance Analysis - '%s' | Output Scale: %g", sessionName, outputScale)
	subtitle := "Visualization of Power, Thrust, Current, and Efficiency across Throttle and RPM Ranges"
	r.drawCenteredText(img, title, fullWidth/2, 24)
	r.drawCenteredText(img, subtitle, fullWidth/2, 44)

	for i, p := range panels {
		row, col := i/2, i%2
		area := image.Rect(
			defaultSideBorder+col*(r.config.PanelWidth+panelGapX),
			defaultTopBorder+row*(r.config.PanelHeight+panelGapY),
			defaultSideBorder+col*(r.config.PanelWidth+panelGapX)+r.config.PanelWidth,
			defaultTopBorder+row*(r.config.PanelHeight+panelGapY)+r.config.PanelHeight,
		)
		if err := r.drawPanel(img, area, p); err != nil {
			return nil, fmt.Errorf("drawing panel %q: %w", p.title, err)
		}
	}

	return img, nil
}

// RenderPNG renders the chart and encodes it as PNG.
func (r *Renderer) RenderPNG(sessionName string, outputScale float64, result measure.Result) ([]byte, error) {
	img, err := r.Render(sessionName, outputScale, result)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err = png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding chart: %w", err)
	}
	return buf.Bytes(), nil
}

// drawPanel draws one titled plot: axes box, three ticks per axis and the
// series polyline. Non-finite points (efficiency at zero power) are skipped.
func (r *Renderer) drawPanel(img *image.RGBA, area image.Rectangle, p panel) error {
	plot := image.Rect(area.Min.X+panelLeftInset, area.Min.Y+panelTitleSpace,
		area.Max.X-panelRightInset, area.Max.Y-panelBottomInset)
	if plot.Dx() <= 0 || plot.Dy() <= 0 {
		return fmt.Errorf("panel area too small: %v", area)
	}

	r.drawCenteredText(img, p.title, (plot.Min.X+plot.Max.X)/2, area.Min.Y+12)
	drawRect(img, plot, axisColor)

	xMin, xMax := finiteBounds(p.xs)
	yMin, yMax := finiteBounds(p.ys)

	// Axis tick labels at min, mid and max of each range.
	for _, frac := range []float64{0, 0.5, 1} {
		x := plot.Min.X + int(frac*float64(plot.Dx()))
		y := plot.Max.Y - int(frac*float64(plot.Dy()))

		drawVLine(img, x, plot.Max.Y, plot.Max.Y+tickLen, axisColor)
		drawHLine(img, plot.Min.X-tickLen, plot.Min.X, y, axisColor)

		r.drawCenteredText(img, formatValue(xMin+frac*(xMax-xMin)), x, plot.Max.Y+14)
		r.drawRightText(img, formatValue(yMin+frac*(yMax-yMin)), plot.Min.X-tickLen-2, y+4)
	}

	// Series polyline between consecutive finite points.
	col := seriesColor(p.color)
	var prevX, prevY int
	havePrev := false
	for i := range p.xs {
		if !isFinite(p.xs[i]) || !isFinite(p.ys[i]) {
			havePrev = false
			continue
		}

		x := plot.Min.X + scaleTo(p.xs[i], xMin, xMax, plot.Dx())
		y := plot.Max.Y - scaleTo(p.ys[i], yMin, yMax, plot.Dy())
		if havePrev {
			drawLine(img, prevX, prevY, x, y, col)
		}
		drawMarker(img, x, y, col)
		prevX, prevY = x, y
		havePrev = true
	}

	return nil
}

// finiteBounds returns the min and max of the finite values in vs, padded
// so a flat series still spans a visible range.
func finiteBounds(vs []float64) (float64, float64) {
	lo, hi := math.MaxFloat64, -math.MaxFloat64
	for _, v := range vs {
		if !isFinite(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo > hi { // no finite values at all
		return 0, 1
	}
	if lo == hi {
		return lo - 1, hi + 1
	}
	return lo, hi
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// scaleTo maps v from [lo, hi] onto [0, size].
func scaleTo(v, lo, hi float64, size int) int {
	return int(math.Round((v - lo) / (hi - lo) * float64(size)))
}

func formatValue(v float64) string {
	switch {
	case math.Abs(v) >= 1000:
		return fmt.Sprintf("%.0f", v)
	case math.Abs(v) >= 10:
		return fmt.Sprintf("%.1f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
