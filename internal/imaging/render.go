package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/cbf-tools-mcp/internal/cbf"
)

// Colormap selects how display values become colours.
type Colormap string

const (
	// ColormapInverted is the plain stretch: high counts are dark.
	ColormapInverted Colormap = "inverted"
	// ColormapGray is the stretch reversed: high counts are bright.
	ColormapGray    Colormap = "gray"
	ColormapHot     Colormap = "hot"
	ColormapViridis Colormap = "viridis"
)

// Colormaps lists the accepted colormap names.
var Colormaps = []Colormap{ColormapInverted, ColormapGray, ColormapHot, ColormapViridis}

// ParseColormap accepts a colormap name in any case. The empty string is
// ColormapInverted.
func ParseColormap(s string) (Colormap, error) {
	if s == "" {
		return ColormapInverted, nil
	}
	for _, c := range Colormaps {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown colormap %q", s)
}

var colormapStops = map[Colormap][]string{
	ColormapHot:     {"#000000", "#e60000", "#ffd200", "#ffffff"},
	ColormapViridis: {"#440154", "#3b528b", "#21918c", "#5ec962", "#fde725"},
}

// palette returns 256 colours indexed by brightness, blended in Lab space.
func palette(c Colormap) ([256]color.RGBA, error) {
	var lut [256]color.RGBA
	hexes, ok := colormapStops[c]
	if !ok {
		for i := range lut {
			lut[i] = color.RGBA{uint8(i), uint8(i), uint8(i), 255}
		}
		return lut, nil
	}

	stops := make([]colorful.Color, len(hexes))
	for i, h := range hexes {
		col, err := colorful.Hex(h)
		if err != nil {
			return lut, err
		}
		stops[i] = col
	}
	for i := range lut {
		pos := float64(i) / 255 * float64(len(stops)-1)
		seg := int(pos)
		if seg >= len(stops)-1 {
			seg = len(stops) - 2
		}
		r, g, b := stops[seg].BlendLab(stops[seg+1], pos-float64(seg)).Clamped().RGB255()
		lut[i] = color.RGBA{r, g, b, 255}
	}
	return lut, nil
}

// Window is the value range mapped onto the 256 display levels.
type Window struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DisplayWindow returns the sample range of img. A flat image, or one with
// no usable samples, falls back to the full range of its pixel kind.
func DisplayWindow(img *cbf.Image) Window {
	min, max, ok := img.MinMax()
	if !ok || min == max {
		min, max = img.Kind().Range()
	}
	return Window{Min: min, Max: max}
}

// Display maps v to 255 - round((v-min)*255/(max-min)), clamped to a byte.
// NaN maps like Min.
func (w Window) Display(v float64) uint8 {
	if math.IsNaN(v) {
		v = w.Min
	}
	span := w.Max - w.Min
	if span == 0 {
		return 255
	}

	scaled := (v - w.Min) * 255 / span
	if math.IsInf(span, 0) || math.IsInf(scaled, 0) {
		// Halves keep the span finite for windows wider than MaxFloat64.
		scaled = (v/2 - w.Min/2) / (w.Max/2 - w.Min/2) * 255
	}
	d := 255 - math.Round(scaled)
	switch {
	case d < 0:
		return 0
	case d > 255:
		return 255
	}
	return uint8(d)
}

// RenderOptions controls how a frame becomes a picture.
type RenderOptions struct {
	Colormap Colormap
	// Window overrides the display range when set.
	Window *Window
	// Gamma is applied to the rendered picture when > 0 and != 1.
	Gamma float64
	// Smooth is a Gaussian blur radius in pixels; 0 disables it.
	Smooth float64
	// Scale resizes the result when > 0 and != 1.
	Scale float64
	// MaxDimension, when > 0, shrinks the result to fit a square of that size.
	MaxDimension int
	// FlipVertical mirrors the picture top to bottom, for detectors read out
	// from the bottom row.
	FlipVertical bool
}

// maxRenderPixels bounds every raster allocated while rendering, scaled
// output included.
const maxRenderPixels = 1 << 28

// ErrImageTooLarge is returned when a frame or its scaled output would exceed
// maxRenderPixels.
var ErrImageTooLarge = errors.New("image too large to render")

func checkRenderSize(width, height float64) error {
	if width < 0 || height < 0 || width*height > maxRenderPixels {
		return fmt.Errorf("%w: %.0fx%.0f exceeds %d pixels", ErrImageTooLarge, width, height, maxRenderPixels)
	}
	return nil
}

// Stretch renders img with the inverted grey stretch and nothing else:
// R=G=B=display value, A=255. It returns nil for a frame too large to render.
func Stretch(img *cbf.Image) *image.RGBA {
	out, _, _ := renderRGBA(img, RenderOptions{Colormap: ColormapInverted})
	return out
}

func renderRGBA(img *cbf.Image, opts RenderOptions) (*image.RGBA, Window, error) {
	cm, err := ParseColormap(string(opts.Colormap))
	if err != nil {
		return nil, Window{}, err
	}
	lut, err := palette(cm)
	if err != nil {
		return nil, Window{}, err
	}
	if err := checkRenderSize(float64(img.Width), float64(img.Height)); err != nil {
		return nil, Window{}, err
	}
	win := DisplayWindow(img)
	if opts.Window != nil {
		win = *opts.Window
	}

	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	n := img.Len()
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			v := win.Min
			if i := y*img.Width + x; i < n {
				v = img.Pixels.Float64(i)
			}
			d := win.Display(v)
			if cm != ColormapInverted {
				d = 255 - d
			}
			out.SetRGBA(x, y, lut[d])
		}
	}
	return out, win, nil
}

// Render turns img into a picture according to opts.
func Render(img *cbf.Image, opts RenderOptions) (image.Image, Window, error) {
	out, win, err := renderRGBA(img, opts)
	if err != nil {
		return nil, Window{}, err
	}
	pic, err := postProcess(out, opts)
	if err != nil {
		return nil, Window{}, err
	}
	return pic, win, nil
}

func postProcess(src image.Image, opts RenderOptions) (image.Image, error) {
	if opts.Gamma > 0 && opts.Gamma != 1 {
		src = adjust.Gamma(src, opts.Gamma)
	}
	if opts.Smooth > 0 {
		src = blur.Gaussian(src, opts.Smooth)
	}
	if opts.FlipVertical {
		src = imaging.FlipV(src)
	}
	return resize(src, opts)
}

func resize(src image.Image, opts RenderOptions) (image.Image, error) {
	if opts.Scale > 0 && opts.Scale != 1 {
		fw := float64(src.Bounds().Dx()) * opts.Scale
		fh := float64(src.Bounds().Dy()) * opts.Scale
		if err := checkRenderSize(fw, fh); err != nil {
			return nil, err
		}
		if w, h := int(fw), int(fh); w > 0 && h > 0 {
			src = imaging.Resize(src, w, h, imaging.Lanczos)
		}
	}
	if m := opts.MaxDimension; m > 0 && (src.Bounds().Dx() > m || src.Bounds().Dy() > m) {
		src = imaging.Fit(src, m, m, imaging.Lanczos)
	}
	return src, nil
}

// EncodePNGBase64 encodes img as a base64 PNG.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// RenderResult contains a rendered frame.
type RenderResult struct {
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	ImageBase64 string   `json:"image_base64"`
	MimeType    string   `json:"mime_type"`
	Colormap    Colormap `json:"colormap"`
	Window      Window   `json:"window"`
}

// RenderImage renders img and encodes it as PNG.
func RenderImage(img *cbf.Image, opts RenderOptions) (*RenderResult, error) {
	pic, win, err := Render(img, opts)
	if err != nil {
		return nil, err
	}
	return newRenderResult(pic, win, opts)
}

func newRenderResult(pic image.Image, win Window, opts RenderOptions) (*RenderResult, error) {
	encoded, err := EncodePNGBase64(pic)
	if err != nil {
		return nil, err
	}
	cm, _ := ParseColormap(string(opts.Colormap))
	return &RenderResult{
		Width:       pic.Bounds().Dx(),
		Height:      pic.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
		Colormap:    cm,
		Window:      win,
	}, nil
}
