package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/ironsheep/cbf-tools-mcp/internal/analysis"
)

const (
	plotMargin        = 40
	minPlotDimension  = 120
	maxPlotDimension  = 4096
	defaultPlotWidth  = 640
	defaultPlotHeight = 360
)

// PlotResult contains a rendered radial profile chart.
type PlotResult struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	ImageBase64 string  `json:"image_base64"`
	MimeType    string  `json:"mime_type"`
	MinValue    float64 `json:"min_value"`
	MaxValue    float64 `json:"max_value"`
}

// PlotProfile draws profile as a line chart: normalized radius on the x axis,
// bin mean on the y axis. Each marker radius gets a dashed vertical line.
// Zero width or height selects the default size.
func PlotProfile(profile *analysis.Profile, width, height int, markers []float64) (*PlotResult, error) {
	if len(profile.Bins) == 0 {
		return nil, fmt.Errorf("profile has no bins to plot")
	}
	if width == 0 {
		width = defaultPlotWidth
	}
	if height == 0 {
		height = defaultPlotHeight
	}
	if width < minPlotDimension || height < minPlotDimension {
		return nil, fmt.Errorf("plot size %dx%d below minimum %d", width, height, minPlotDimension)
	}
	if width > maxPlotDimension || height > maxPlotDimension {
		return nil, fmt.Errorf("plot size %dx%d above maximum %d", width, height, maxPlotDimension)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, b := range profile.Bins {
		if math.IsNaN(b.Value) || math.IsInf(b.Value, 0) {
			continue
		}
		lo = math.Min(lo, b.Value)
		hi = math.Max(hi, b.Value)
	}
	if math.IsInf(lo, 1) {
		lo, hi = 0, 0
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	xMax := profile.MaxRadius
	if xMax == 0 {
		xMax = 1
	}

	plot := image.Rect(plotMargin, plotMargin/2, width-plotMargin/2, height-plotMargin)
	toX := func(r float64) int {
		return plot.Min.X + int(math.Round(r/xMax*float64(plot.Dx()-1)))
	}
	toY := func(v float64) int {
		return plot.Max.Y - 1 - int(math.Round((v-lo)/span*float64(plot.Dy()-1)))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{255, 255, 255, 255}), image.Point{}, draw.Src)

	axis := color.RGBA{0, 0, 0, 255}
	line := color.RGBA{31, 119, 180, 255}
	marker := color.RGBA{214, 39, 40, 200}
	text := color.RGBA{0, 0, 0, 255}
	none := color.RGBA{}

	for x := plot.Min.X; x < plot.Max.X; x++ {
		blend(img, x, plot.Max.Y, axis)
	}
	for y := plot.Min.Y; y <= plot.Max.Y; y++ {
		blend(img, plot.Min.X-1, y, axis)
	}

	for _, m := range markers {
		if m < 0 || m > xMax {
			continue
		}
		x := toX(m)
		for y := plot.Min.Y; y < plot.Max.Y; y++ {
			if (y/4)%2 == 0 {
				blend(img, x, y, marker)
			}
		}
	}

	prevX, prevY, havePrev := 0, 0, false
	for _, b := range profile.Bins {
		if math.IsNaN(b.Value) || math.IsInf(b.Value, 0) {
			havePrev = false
			continue
		}
		x, y := toX(b.Radius), toY(b.Value)
		if havePrev {
			drawLine(img, prevX, prevY, x, y, line)
		} else {
			blend(img, x, y, line)
		}
		prevX, prevY, havePrev = x, y, true
	}

	drawLabel(img, 2, plot.Min.Y, fmt.Sprintf("%.4g", hi), text, none)
	drawLabel(img, 2, plot.Max.Y-12, fmt.Sprintf("%.4g", lo), text, none)
	drawLabel(img, plot.Min.X, plot.Max.Y+4, "0", text, none)
	drawLabel(img, plot.Max.X-30, plot.Max.Y+4, fmt.Sprintf("%.3g", xMax), text, none)
	drawLabel(img, plot.Min.X+plot.Dx()/2-20, plot.Max.Y+18, "radius", text, none)

	encoded, err := EncodePNGBase64(img)
	if err != nil {
		return nil, err
	}
	return &PlotResult{
		Width:       width,
		Height:      height,
		ImageBase64: encoded,
		MimeType:    "image/png",
		MinValue:    lo,
		MaxValue:    hi,
	}, nil
}

// drawLine draws a Bresenham line from (x0, y0) to (x1, y1).
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		blend(img, x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
