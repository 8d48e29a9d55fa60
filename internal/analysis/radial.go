package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/cbf-tools-mcp/internal/cbf"
)

// MaxRadius is the largest normalized radius: the corner of a square image.
const MaxRadius = math.Sqrt2

// ErrInvalidConfig is returned by NewConfig for out-of-range parameters.
var ErrInvalidConfig = errors.New("invalid analysis config")

// Config describes the polar sampling grid of a radial analysis. Build it
// with NewConfig; the zero value samples nothing.
type Config struct {
	angularBins int
	radialBins  int
	radius      float64
}

// NewConfig validates and returns a sampling grid of angularBins angles over
// a half turn and radialBins radii up to radius, where radius is a fraction
// of half the image width in [0, √2].
func NewConfig(angularBins, radialBins int, radius float64) (*Config, error) {
	if math.IsNaN(radius) || radius < 0 || radius > MaxRadius {
		return nil, fmt.Errorf("%w: radius %v outside [0, √2]", ErrInvalidConfig, radius)
	}
	if angularBins < 0 || radialBins < 0 {
		return nil, fmt.Errorf("%w: negative bin count", ErrInvalidConfig)
	}
	return &Config{angularBins: angularBins, radialBins: radialBins, radius: radius}, nil
}

func (c *Config) AngularBins() int   { return c.angularBins }
func (c *Config) RadialBins() int    { return c.radialBins }
func (c *Config) MaxRadius() float64 { return c.radius }

// RadiusAt returns the normalized radius sampled for bin i.
func (c *Config) RadiusAt(i int) float64 {
	if c.radialBins == 0 {
		return 0
	}
	return float64(i) * c.radius / float64(c.radialBins)
}

// AngleAt returns the angle in radians sampled for angular step i.
func (c *Config) AngleAt(i int) float64 {
	return float64(i) * math.Pi / float64(c.angularBins)
}

// Sampler reads a value from plane at a polar position around the image
// centre. ok is false when the position is off the detector.
type Sampler[P cbf.Number] func(plane *cbf.Plane[P], angle, radius float64) (v P, ok bool)

// Analyze returns the azimuthally averaged radial profile of plane: one mean
// per radial bin, over every angle whose sample landed on the image. Bins
// with no samples hold the zero value.
func Analyze[P cbf.Number](plane *cbf.Plane[P], cfg *Config, sample Sampler[P]) []P {
	bins := make([]Average[P], cfg.radialBins)
	for i := 0; i < cfg.angularBins; i++ {
		angle := cfg.AngleAt(i)
		for j := range bins {
			if v, ok := sample(plane, angle, cfg.RadiusAt(j)); ok {
				bins[j].Add(v)
			}
		}
	}

	out := make([]P, len(bins))
	for j := range bins {
		out[j] = bins[j].Mean()
	}
	return out
}

// AnalyzeImage runs Analyze with nearest-neighbour sampling on whichever
// pixel type img holds and widens the result to float64.
func AnalyzeImage(img *cbf.Image, cfg *Config) ([]float64, error) {
	switch img.Kind() {
	case cbf.KindU8:
		return analyzeAs[uint8](img, cfg)
	case cbf.KindI8:
		return analyzeAs[int8](img, cfg)
	case cbf.KindU16:
		return analyzeAs[uint16](img, cfg)
	case cbf.KindI16:
		return analyzeAs[int16](img, cfg)
	case cbf.KindU32:
		return analyzeAs[uint32](img, cfg)
	case cbf.KindI32:
		return analyzeAs[int32](img, cfg)
	case cbf.KindF32:
		return analyzeAs[float32](img, cfg)
	case cbf.KindU64:
		return analyzeAs[uint64](img, cfg)
	case cbf.KindI64:
		return analyzeAs[int64](img, cfg)
	case cbf.KindF64:
		return analyzeAs[float64](img, cfg)
	}
	return nil, fmt.Errorf("%w: %s", cbf.ErrUnsupportedPixelFormat, img.Kind())
}

func analyzeAs[P cbf.Number](img *cbf.Image, cfg *Config) ([]float64, error) {
	plane, ok := cbf.PlaneOf[P](img)
	if !ok {
		return nil, fmt.Errorf("%w: %s", cbf.ErrUnsupportedPixelFormat, img.Kind())
	}
	values := Analyze[P](plane, cfg, NearestNeighbour[P])
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out, nil
}

// Bin is one point of a radial profile.
type Bin struct {
	Index       int     `json:"index"`
	Radius      float64 `json:"radius"`
	PixelRadius float64 `json:"pixel_radius"`
	Value       float64 `json:"value"`
}

// Profile is a radial profile annotated with the radius of every bin.
type Profile struct {
	AngularBins int     `json:"angular_bins"`
	MaxRadius   float64 `json:"max_radius"`
	Bins        []Bin   `json:"bins"`
}

// Values returns the bin means in radius order.
func (p *Profile) Values() []float64 {
	out := make([]float64, len(p.Bins))
	for i, b := range p.Bins {
		out[i] = b.Value
	}
	return out
}

// ProfileImage analyses img and pairs each mean with its radius, both
// normalized and in pixels from the centre.
func ProfileImage(img *cbf.Image, cfg *Config) (*Profile, error) {
	values, err := AnalyzeImage(img, cfg)
	if err != nil {
		return nil, err
	}

	half := float64(img.Width) / 2
	p := &Profile{
		AngularBins: cfg.angularBins,
		MaxRadius:   cfg.radius,
		Bins:        make([]Bin, len(values)),
	}
	for i, v := range values {
		r := cfg.RadiusAt(i)
		p.Bins[i] = Bin{Index: i, Radius: r, PixelRadius: r * half, Value: v}
	}
	return p, nil
}
