package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"math"
	"testing"

	"github.com/ironsheep/cbf-tools-mcp/internal/cbf"
)

// decodePNG decodes a base64 PNG produced by this package.
func decodePNG(t *testing.T, b64 string) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("failed to decode PNG: %v", err)
	}
	return img
}

func greyAt(img image.Image, x, y int) uint8 {
	r, _, _, _ := img.At(x, y).RGBA()
	return uint8(r >> 8)
}

func TestWindow_Display(t *testing.T) {
	win := Window{Min: 0, Max: 100}

	tests := []struct {
		name string
		v    float64
		want uint8
	}{
		{"min is white", 0, 255},
		{"max is black", 100, 0},
		{"midpoint rounds half away from zero", 50, 127},
		{"quarter", 25, 191},
		{"below window clamps", -10, 255},
		{"above window clamps", 200, 0},
		{"NaN as min", math.NaN(), 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := win.Display(tt.v); got != tt.want {
				t.Errorf("Display(%v): got %d, want %d", tt.v, got, tt.want)
			}
		})
	}
}

func TestWindow_Display_Degenerate(t *testing.T) {
	if got := (Window{Min: 5, Max: 5}).Display(5); got != 255 {
		t.Errorf("zero span: got %d, want 255", got)
	}

	wide := Window{Min: -math.MaxFloat64, Max: math.MaxFloat64}
	tests := []struct {
		v    float64
		want uint8
	}{
		{-math.MaxFloat64, 255},
		{0, 127},
		{math.MaxFloat64, 0},
	}
	for _, tt := range tests {
		if got := wide.Display(tt.v); got != tt.want {
			t.Errorf("infinite span Display(%v): got %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestDisplayWindow(t *testing.T) {
	tests := []struct {
		name string
		img  *cbf.Image
		want Window
	}{
		{"sample range", quadrantImage(4, 4), Window{Min: 10, Max: 40}},
		{"flat u8 falls back to kind range", cbf.NewImage(2, 2, []uint8{7, 7, 7, 7}), Window{Min: 0, Max: 255}},
		{"flat i16", cbf.NewImage(1, 1, []int16{3}), Window{Min: math.MinInt16, Max: math.MaxInt16}},
		{"empty", cbf.NewImage(0, 0, []uint16{}), Window{Min: 0, Max: math.MaxUint16}},
		{"NaN ignored", cbf.NewImage(3, 1, []float32{float32(math.NaN()), 1, 2}), Window{Min: 1, Max: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayWindow(tt.img); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStretch(t *testing.T) {
	img := cbf.NewImage(3, 2, []uint8{0, 51, 102, 153, 204, 255})

	out := Stretch(img)
	if out.Bounds().Dx() != 3 || out.Bounds().Dy() != 2 {
		t.Fatalf("dimensions: got %v, want 3x2", out.Bounds())
	}

	want := []uint8{255, 204, 153, 102, 51, 0}
	for i, w := range want {
		c := out.RGBAAt(i%3, i/3)
		if c.R != w || c.G != w || c.B != w || c.A != 255 {
			t.Errorf("pixel %d: got %v, want grey %d", i, c, w)
		}
	}
}

func TestStretch_ShortBuffer(t *testing.T) {
	// Samples missing from the buffer render as the window minimum.
	img := &cbf.Image{Width: 2, Height: 2, Pixels: cbf.Buffer[uint8]{10, 20}}

	out := Stretch(img)
	if c := out.RGBAAt(1, 1); c.R != 255 {
		t.Errorf("missing sample: got %v, want white", c)
	}
	if c := out.RGBAAt(1, 0); c.R != 0 {
		t.Errorf("max sample: got %v, want black", c)
	}
}

func TestParseColormap(t *testing.T) {
	tests := []struct {
		in      string
		want    Colormap
		wantErr bool
	}{
		{"", ColormapInverted, false},
		{"inverted", ColormapInverted, false},
		{"GRAY", ColormapGray, false},
		{"Hot", ColormapHot, false},
		{"viridis", ColormapViridis, false},
		{"jet", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColormap(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error: got %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPalette(t *testing.T) {
	for _, cm := range Colormaps {
		t.Run(string(cm), func(t *testing.T) {
			lut, err := palette(cm)
			if err != nil {
				t.Fatalf("palette failed: %v", err)
			}
			for i, c := range lut {
				if c.A != 255 {
					t.Fatalf("entry %d not opaque: %v", i, c)
				}
			}
		})
	}

	hot, _ := palette(ColormapHot)
	if c := hot[0]; c.R != 0 || c.G != 0 || c.B != 0 {
		t.Errorf("hot[0]: got %v, want black", c)
	}
	if c := hot[255]; c.R != 255 || c.G != 255 || c.B != 255 {
		t.Errorf("hot[255]: got %v, want white", c)
	}
}

func TestRender_Colormap(t *testing.T) {
	img := quadrantImage(10, 10)

	inverted, _, err := Render(img, RenderOptions{})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	gray, _, err := Render(img, RenderOptions{Colormap: ColormapGray})
	if err != nil {
		t.Fatalf("Render gray failed: %v", err)
	}

	// Bottom-right holds the maximum.
	if got := greyAt(inverted, 9, 9); got != 0 {
		t.Errorf("inverted max: got %d, want 0", got)
	}
	if got := greyAt(gray, 9, 9); got != 255 {
		t.Errorf("gray max: got %d, want 255", got)
	}
}

func TestRender_WindowOverride(t *testing.T) {
	img := quadrantImage(10, 10)

	pic, win, err := Render(img, RenderOptions{Window: &Window{Min: 0, Max: 20}})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if win != (Window{Min: 0, Max: 20}) {
		t.Errorf("window: got %+v, want [0, 20]", win)
	}
	// 40 is above the window and clamps to black.
	if got := greyAt(pic, 9, 9); got != 0 {
		t.Errorf("clamped pixel: got %d, want 0", got)
	}
	// 10 is the middle of the window.
	if got := greyAt(pic, 0, 0); got != 127 {
		t.Errorf("mid pixel: got %d, want 127", got)
	}
}

func TestRender_FlipVertical(t *testing.T) {
	img := quadrantImage(10, 10)

	pic, _, err := Render(img, RenderOptions{FlipVertical: true})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	// The bottom-left quadrant (30) moves to the top.
	if got := greyAt(pic, 0, 0); got != 85 {
		t.Errorf("flipped top-left: got %d, want 85", got)
	}
}

func TestRender_Resize(t *testing.T) {
	img := uniformImage(200, 100, 1)

	tests := []struct {
		name         string
		opts         RenderOptions
		wantW, wantH int
	}{
		{"none", RenderOptions{}, 200, 100},
		{"scale", RenderOptions{Scale: 0.5}, 100, 50},
		{"max dimension", RenderOptions{MaxDimension: 50}, 50, 25},
		{"max dimension already smaller", RenderOptions{MaxDimension: 500}, 200, 100},
		{"gamma and smooth keep size", RenderOptions{Gamma: 2.2, Smooth: 1.5}, 200, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pic, _, err := Render(img, tt.opts)
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if pic.Bounds().Dx() != tt.wantW || pic.Bounds().Dy() != tt.wantH {
				t.Errorf("dimensions: got %dx%d, want %dx%d",
					pic.Bounds().Dx(), pic.Bounds().Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestRender_TooLarge(t *testing.T) {
	// Header dimensions far beyond what the buffer holds.
	huge := &cbf.Image{Width: 1 << 40, Height: 1 << 40, Pixels: cbf.Buffer[int32]{1}}
	small := uniformImage(20, 20, 1)

	tests := []struct {
		name string
		run  func() error
	}{
		{"render", func() error { _, _, err := Render(huge, RenderOptions{}); return err }},
		{"render wide", func() error {
			_, _, err := Render(&cbf.Image{Width: 1 << 30, Height: 1, Pixels: cbf.Buffer[int32]{1}}, RenderOptions{})
			return err
		}},
		{"crop", func() error { _, err := Crop(huge, 0, 0, 4, 4, RenderOptions{}); return err }},
		{"overlay", func() error { _, err := RingOverlay(huge, []Ring{{Radius: 0.5}}, RenderOptions{}, ""); return err }},
		{"scale", func() error { _, _, err := Render(small, RenderOptions{Scale: 1e6}); return err }},
		{"crop scale", func() error { _, err := Crop(small, 0, 0, 10, 10, RenderOptions{Scale: 1e7}); return err }},
		{"overlay scale", func() error {
			_, err := RingOverlay(small, []Ring{{Radius: 0.5}}, RenderOptions{Scale: 1e6}, "")
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, ErrImageTooLarge) {
				t.Errorf("expected ErrImageTooLarge, got %v", err)
			}
		})
	}

	if out := Stretch(huge); out != nil {
		t.Errorf("Stretch: got %v bounds, want nil", out.Bounds())
	}
}

func TestRenderImage(t *testing.T) {
	img := quadrantImage(20, 20)

	result, err := RenderImage(img, RenderOptions{Colormap: "viridis"})
	if err != nil {
		t.Fatalf("RenderImage failed: %v", err)
	}
	if result.Width != 20 || result.Height != 20 {
		t.Errorf("dimensions: got %dx%d, want 20x20", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}
	if result.Colormap != ColormapViridis {
		t.Errorf("Colormap: got %q, want viridis", result.Colormap)
	}

	pic := decodePNG(t, result.ImageBase64)
	if pic.Bounds().Dx() != 20 {
		t.Errorf("decoded width: got %d, want 20", pic.Bounds().Dx())
	}
}
