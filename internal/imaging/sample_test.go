package imaging

import (
	"math"
	"testing"

	"github.com/ironsheep/cbf-tools-mcp/internal/cbf"
)

func TestSamplePixel(t *testing.T) {
	img := quadrantImage(100, 100)
	win := DisplayWindow(img)

	tests := []struct {
		name        string
		x, y        int
		wantValue   float64
		wantDisplay uint8
		wantHex     string
	}{
		{"top-left", 10, 10, 10, 255, "#ffffff"},
		{"top-right", 90, 10, 20, 170, "#aaaaaa"},
		{"bottom-left", 10, 90, 30, 85, "#555555"},
		{"bottom-right", 90, 90, 40, 0, "#000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			px, err := SamplePixel(img, win, tt.x, tt.y)
			if err != nil {
				t.Fatalf("SamplePixel failed: %v", err)
			}
			if px.Value != tt.wantValue {
				t.Errorf("Value: got %v, want %v", px.Value, tt.wantValue)
			}
			if px.Display != tt.wantDisplay {
				t.Errorf("Display: got %d, want %d", px.Display, tt.wantDisplay)
			}
			if px.Hex != tt.wantHex {
				t.Errorf("Hex: got %s, want %s", px.Hex, tt.wantHex)
			}
		})
	}
}

func TestSamplePixel_Geometry(t *testing.T) {
	img := uniformImage(100, 80, 1)

	tests := []struct {
		name           string
		x, y           int
		wantCX, wantCY int
		wantRadius     float64
		wantNormalized float64
	}{
		{"centre", 50, 40, 0, 0, 0, 0},
		{"right edge", 99, 40, 49, 0, 49, 0.98},
		{"3-4-5", 53, 44, 3, 4, 5, 0.1},
		{"origin", 0, 0, -50, -40, 64.03, 1.2806},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			px, err := SamplePixel(img, Window{Min: 0, Max: 1}, tt.x, tt.y)
			if err != nil {
				t.Fatalf("SamplePixel failed: %v", err)
			}
			if px.CenteredX != tt.wantCX || px.CenteredY != tt.wantCY {
				t.Errorf("centered: got (%d,%d), want (%d,%d)", px.CenteredX, px.CenteredY, tt.wantCX, tt.wantCY)
			}
			if math.Abs(px.Radius-tt.wantRadius) > 0.01 {
				t.Errorf("Radius: got %v, want %v", px.Radius, tt.wantRadius)
			}
			if math.Abs(px.NormalizedRadius-tt.wantNormalized) > 0.0001 {
				t.Errorf("NormalizedRadius: got %v, want %v", px.NormalizedRadius, tt.wantNormalized)
			}
		})
	}
}

func TestSamplePixel_OutOfBounds(t *testing.T) {
	img := uniformImage(10, 10, 1)
	win := DisplayWindow(img)

	tests := []struct {
		name string
		x, y int
	}{
		{"negative x", -1, 5},
		{"negative y", 5, -1},
		{"x at width", 10, 5},
		{"y at height", 5, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := SamplePixel(img, win, tt.x, tt.y); err == nil {
				t.Error("expected error for out-of-bounds coordinates")
			}
		})
	}
}

func TestSamplePixel_ShortBuffer(t *testing.T) {
	img := &cbf.Image{Width: 4, Height: 4, Pixels: cbf.Buffer[int32]{1, 2, 3}}
	if _, err := SamplePixel(img, Window{Min: 0, Max: 3}, 3, 3); err == nil {
		t.Error("expected error for sample past the end of the buffer")
	}
}

func TestSamplePixelsMulti(t *testing.T) {
	img := quadrantImage(100, 100)
	win := DisplayWindow(img)

	points := []LabeledPoint{
		{X: 10, Y: 10, Label: "background"},
		{X: 90, Y: 90, Label: "peak"},
		{X: 50, Y: 50},
	}
	result, err := SamplePixelsMulti(img, win, points)
	if err != nil {
		t.Fatalf("SamplePixelsMulti failed: %v", err)
	}
	if len(result.Samples) != 3 {
		t.Fatalf("sample count: got %d, want 3", len(result.Samples))
	}

	want := []struct {
		label string
		value float64
	}{
		{"background", 10},
		{"peak", 40},
		{"", 40},
	}
	for i, w := range want {
		s := result.Samples[i]
		if s.Label != w.label {
			t.Errorf("sample %d label: got %q, want %q", i, s.Label, w.label)
		}
		if s.Value != w.value {
			t.Errorf("sample %d value: got %v, want %v", i, s.Value, w.value)
		}
	}
}

func TestSamplePixelsMulti_Error(t *testing.T) {
	img := uniformImage(10, 10, 1)
	_, err := SamplePixelsMulti(img, DisplayWindow(img), []LabeledPoint{{X: 1, Y: 1}, {X: 20, Y: 1}})
	if err == nil {
		t.Error("expected error when any point is out of bounds")
	}
}

func TestStatistics(t *testing.T) {
	img := quadrantImage(10, 10)

	tests := []struct {
		name      string
		region    *Region
		wantCount int
		wantMin   float64
		wantMax   float64
		wantMean  float64
	}{
		{"whole frame", nil, 100, 10, 40, 25},
		{"top-left", &Region{0, 0, 5, 5}, 25, 10, 10, 10},
		{"top half", &Region{0, 0, 10, 5}, 50, 10, 20, 15},
		{"clipped", &Region{5, 5, 50, 50}, 25, 40, 40, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Statistics(img, tt.region)
			if err != nil {
				t.Fatalf("Statistics failed: %v", err)
			}
			if s.Count != tt.wantCount {
				t.Errorf("Count: got %d, want %d", s.Count, tt.wantCount)
			}
			if s.Min != tt.wantMin || s.Max != tt.wantMax {
				t.Errorf("range: got [%v, %v], want [%v, %v]", s.Min, s.Max, tt.wantMin, tt.wantMax)
			}
			if math.Abs(s.Mean-tt.wantMean) > 1e-9 {
				t.Errorf("Mean: got %v, want %v", s.Mean, tt.wantMean)
			}
		})
	}
}

func TestStatistics_LargeOffset(t *testing.T) {
	// A small spread on a large baseline: squaring the samples loses it.
	pix := make([]uint32, 1000)
	for i := range pix {
		pix[i] = 4_000_000_000 + uint32(i%2)*2
	}
	img := cbf.NewImage(100, 10, pix)

	s, err := Statistics(img, nil)
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}
	if s.Mean != 4_000_000_001 {
		t.Errorf("Mean: got %v, want 4000000001", s.Mean)
	}
	if math.IsNaN(s.StdDev) || math.Abs(s.StdDev-1) > 1e-6 {
		t.Errorf("StdDev: got %v, want 1", s.StdDev)
	}

	flat, err := Statistics(cbf.NewImage(2, 2, []uint32{4_000_000_000, 4_000_000_000, 4_000_000_000, 4_000_000_000}), nil)
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}
	if flat.StdDev != 0 {
		t.Errorf("constant frame StdDev: got %v, want 0", flat.StdDev)
	}
}

func TestStatistics_MaskedAndNonZero(t *testing.T) {
	img := cbf.NewImage(3, 2, []int32{-1, -2, 0, 0, 5, 7})

	s, err := Statistics(img, nil)
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}
	if s.Masked != 2 {
		t.Errorf("Masked: got %d, want 2", s.Masked)
	}
	if s.NonZero != 4 {
		t.Errorf("NonZero: got %d, want 4", s.NonZero)
	}
	if s.Min != -2 || s.Max != 7 {
		t.Errorf("range: got [%v, %v], want [-2, 7]", s.Min, s.Max)
	}
	if math.Abs(s.Mean-1.5) > 1e-9 {
		t.Errorf("Mean: got %v, want 1.5", s.Mean)
	}
}

func TestStatistics_StdDev(t *testing.T) {
	img := cbf.NewImage(4, 1, []uint8{2, 4, 4, 6})

	s, err := Statistics(img, nil)
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}
	if math.Abs(s.StdDev-math.Sqrt2) > 1e-9 {
		t.Errorf("StdDev: got %v, want %v", s.StdDev, math.Sqrt2)
	}
}

func TestStatistics_EmptyRegion(t *testing.T) {
	img := uniformImage(10, 10, 1)
	for _, r := range []Region{{5, 5, 5, 9}, {20, 20, 30, 30}} {
		if _, err := Statistics(img, &r); err == nil {
			t.Errorf("expected error for region %+v", r)
		}
	}
}
