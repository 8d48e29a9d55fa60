package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/cbf-tools-mcp/internal/cbf"
)

// DefaultOverlayColor is a semi-transparent red.
const DefaultOverlayColor = "#FF000080"

// Ring is one circle drawn by RingOverlay, centred on the image centre.
type Ring struct {
	// Radius is normalized to half the image width.
	Radius float64 `json:"radius"`
	Label  string  `json:"label,omitempty"`
}

// RingOverlayResult contains the rendered frame with rings drawn on it.
type RingOverlayResult struct {
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	ImageBase64 string    `json:"image_base64"`
	MimeType    string    `json:"mime_type"`
	Window      Window    `json:"window"`
	Rings       []Ring    `json:"rings"`
	PixelRadii  []float64 `json:"pixel_radii"`
}

// RingOverlay renders img and draws a circle for every ring, the way the
// analyzer sees radii: r * width/2 pixels from the centre. Labels default to
// the normalized radius. A crosshair marks the centre.
func RingOverlay(img *cbf.Image, rings []Ring, opts RenderOptions, colorHex string) (*RingOverlayResult, error) {
	for _, r := range rings {
		if math.IsNaN(r.Radius) || r.Radius < 0 {
			return nil, fmt.Errorf("invalid ring radius %v", r.Radius)
		}
	}

	ringColor, err := parseHexColor(colorHex)
	if err != nil {
		ringColor, _ = parseHexColor(DefaultOverlayColor)
	}

	base, win, err := renderRGBA(img, opts)
	if err != nil {
		return nil, err
	}
	// Pixel adjustments go under the rings, resizing over them.
	adjusted, err := postProcess(base, RenderOptions{Gamma: opts.Gamma, Smooth: opts.Smooth, FlipVertical: opts.FlipVertical})
	if err != nil {
		return nil, err
	}
	bounds := adjusted.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, adjusted, bounds.Min, draw.Src)

	cx, cy := float64(img.Width/2), float64(img.Height/2)
	half := float64(img.Width) / 2

	drawCrosshair(result, int(cx), int(cy), 6, ringColor)

	labelColor := color.RGBA{255, 255, 255, 255}
	bgColor := color.RGBA{0, 0, 0, 180}

	radii := make([]float64, len(rings))
	for i, r := range rings {
		pr := r.Radius * half
		radii[i] = math.Round(pr*100) / 100
		drawCircle(result, cx, cy, pr, ringColor)

		label := r.Label
		if label == "" {
			label = fmt.Sprintf("%.3g", r.Radius)
		}
		// Label sits on the ring at 45 degrees, upper right.
		lx := int(cx + pr*math.Sqrt2/2)
		ly := int(cy - pr*math.Sqrt2/2)
		drawLabel(result, lx+2, ly+2, label, labelColor, bgColor)
	}

	pic, err := postProcess(result, RenderOptions{Scale: opts.Scale, MaxDimension: opts.MaxDimension})
	if err != nil {
		return nil, err
	}
	encoded, err := EncodePNGBase64(pic)
	if err != nil {
		return nil, err
	}

	return &RingOverlayResult{
		Width:       pic.Bounds().Dx(),
		Height:      pic.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
		Window:      win,
		Rings:       rings,
		PixelRadii:  radii,
	}, nil
}

// drawCircle plots the circle of radius r around (cx, cy) with one point per
// pixel of circumference.
func drawCircle(img *image.RGBA, cx, cy, r float64, c color.RGBA) {
	if r == 0 {
		blend(img, int(cx), int(cy), c)
		return
	}
	steps := int(math.Ceil(2*math.Pi*r)) * 2
	prevX, prevY := math.MinInt, math.MinInt
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		x := int(math.Round(cx + r*math.Cos(a)))
		y := int(math.Round(cy + r*math.Sin(a)))
		if x == prevX && y == prevY {
			continue
		}
		blend(img, x, y, c)
		prevX, prevY = x, y
	}
}

func drawCrosshair(img *image.RGBA, cx, cy, size int, c color.RGBA) {
	for d := -size; d <= size; d++ {
		blend(img, cx+d, cy, c)
		if d != 0 {
			blend(img, cx, cy+d, c)
		}
	}
}

// blend draws c over the pixel at (x, y) using its alpha. Points outside the
// image are skipped.
func blend(img *image.RGBA, x, y int, c color.RGBA) {
	if !image.Pt(x, y).In(img.Bounds()) {
		return
	}
	if c.A == 255 {
		img.SetRGBA(x, y, c)
		return
	}
	dst := img.RGBAAt(x, y)
	a := uint32(c.A)
	mix := func(s, d uint8) uint8 {
		return uint8((uint32(s)*a + uint32(d)*(255-a)) / 255)
	}
	img.SetRGBA(x, y, color.RGBA{mix(c.R, dst.R), mix(c.G, dst.G), mix(c.B, dst.B), 255})
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080".
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}

	var a uint8 = 255
	switch len(hex) {
	case 7:
	case 9:
		if _, err := fmt.Sscanf(hex[7:], "%02x", &a); err != nil {
			return color.RGBA{}, fmt.Errorf("invalid alpha in %q: %w", hex, err)
		}
		hex = hex[:7]
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}

	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, err
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}

// drawLabel draws text on a filled background with its top-left corner at
// (x, y).
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
	}
	width := d.MeasureString(text).Ceil()
	metrics := face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil()

	box := image.Rect(x-1, y-1, x+width+1, y+height).Intersect(img.Bounds())
	draw.Draw(img, box, image.NewUniform(bg), image.Point{}, draw.Over)

	d.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y) + metrics.Ascent}
	d.DrawString(text)
}
