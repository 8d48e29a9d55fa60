package imaging

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/cbf-tools-mcp/internal/analysis"
	"github.com/ironsheep/cbf-tools-mcp/internal/cbf"
)

// Region represents a rectangular region within an image.
//
// Coordinates follow the standard image convention:
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive)
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (r Region) clip(w, h int) Region {
	r.X1 = max(r.X1, 0)
	r.Y1 = max(r.Y1, 0)
	r.X2 = min(r.X2, w)
	r.Y2 = min(r.Y2, h)
	return r
}

// Empty reports whether r covers no pixels.
func (r Region) Empty() bool {
	return r.X1 >= r.X2 || r.Y1 >= r.Y2
}

// PixelResult describes one sample of a frame.
type PixelResult struct {
	X int `json:"x"`
	Y int `json:"y"`
	// CenteredX and CenteredY are relative to the image centre.
	CenteredX int `json:"centered_x"`
	CenteredY int `json:"centered_y"`

	Value float64 `json:"value"`
	// Display is the stretched grey level, Hex the rendered colour.
	Display uint8  `json:"display"`
	Hex     string `json:"hex"`

	// Radius is the distance from the centre in pixels; NormalizedRadius is
	// the same in units of half the width.
	Radius           float64 `json:"radius"`
	NormalizedRadius float64 `json:"normalized_radius"`
}

// SamplePixel reads the raw value at (x, y), origin top-left, and reports
// how it would be displayed under win.
func SamplePixel(img *cbf.Image, win Window, x, y int) (*PixelResult, error) {
	if x < 0 || x >= img.Width || y < 0 || y >= img.Height {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}
	v, ok := img.Float64At(cbf.Linear(y*img.Width + x))
	if !ok {
		return nil, fmt.Errorf("coordinates (%d,%d) beyond the %d decoded samples", x, y, img.Len())
	}

	cx, cy := x-img.Width/2, y-img.Height/2
	r := math.Hypot(float64(cx), float64(cy))
	d := win.Display(v)
	grey := float64(d) / 255

	return &PixelResult{
		X:                x,
		Y:                y,
		CenteredX:        cx,
		CenteredY:        cy,
		Value:            v,
		Display:          d,
		Hex:              colorful.Color{R: grey, G: grey, B: grey}.Hex(),
		Radius:           math.Round(r*100) / 100,
		NormalizedRadius: math.Round(r/(float64(img.Width)/2)*10000) / 10000,
	}, nil
}

// LabeledPoint represents a pixel coordinate with an optional descriptive label.
type LabeledPoint struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Label string `json:"label,omitempty"`
}

// LabeledPixelResult combines a sample with its optional label.
type LabeledPixelResult struct {
	Label string `json:"label,omitempty"`
	PixelResult
}

// MultiPixelResult contains samples in input order.
type MultiPixelResult struct {
	Samples []LabeledPixelResult `json:"samples"`
}

// SamplePixelsMulti samples several points. Any point outside the image
// fails the whole call.
func SamplePixelsMulti(img *cbf.Image, win Window, points []LabeledPoint) (*MultiPixelResult, error) {
	results := make([]LabeledPixelResult, 0, len(points))

	for _, p := range points {
		px, err := SamplePixel(img, win, p.X, p.Y)
		if err != nil {
			return nil, fmt.Errorf("failed to sample point (%d,%d): %w", p.X, p.Y, err)
		}
		results = append(results, LabeledPixelResult{Label: p.Label, PixelResult: *px})
	}

	return &MultiPixelResult{Samples: results}, nil
}

// StatisticsResult summarises the samples of a region.
type StatisticsResult struct {
	Region Region  `json:"region"`
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	// Masked counts negative samples, which detectors use for dead pixels
	// and module gaps.
	Masked  int `json:"masked"`
	NonZero int `json:"non_zero"`
}

// Statistics summarises the samples inside region, or the whole frame when
// region is nil. Samples past the end of a short buffer are ignored.
func Statistics(img *cbf.Image, region *Region) (*StatisticsResult, error) {
	r := Region{0, 0, img.Width, img.Height}
	if region != nil {
		r = region.clip(img.Width, img.Height)
	}
	if r.Empty() {
		return nil, fmt.Errorf("statistics region (%d,%d)-(%d,%d) is empty", r.X1, r.Y1, r.X2, r.Y2)
	}

	// running mean and sum of squared deviations (Welford)
	var (
		mean        analysis.Average[float64]
		runMean, m2 float64
		result      = &StatisticsResult{Region: r}
	)
	n := img.Len()
	for y := r.Y1; y < r.Y2; y++ {
		for x := r.X1; x < r.X2; x++ {
			i := y*img.Width + x
			if i >= n {
				continue
			}
			v := img.Pixels.Float64(i)
			if math.IsNaN(v) {
				continue
			}
			if result.Count == 0 || v < result.Min {
				result.Min = v
			}
			if result.Count == 0 || v > result.Max {
				result.Max = v
			}
			result.Count++
			if v < 0 {
				result.Masked++
			}
			if v != 0 {
				result.NonZero++
			}
			mean.Add(v)
			delta := v - runMean
			runMean += delta / float64(result.Count)
			m2 += delta * (v - runMean)
		}
	}

	if result.Count > 0 {
		result.Mean = mean.Mean()
		result.StdDev = math.Sqrt(m2 / float64(result.Count))
	}
	return result, nil
}
