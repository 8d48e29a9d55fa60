package analysis

import (
	"math"

	"github.com/ironsheep/cbf-tools-mcp/internal/cbf"
)

// NearestNeighbour samples the pixel closest to the polar position, or
// nothing when that pixel is outside the image.
func NearestNeighbour[P cbf.Number](plane *cbf.Plane[P], angle, radius float64) (P, bool) {
	x, y := polarToCartesian(float64(plane.Width), angle, radius)
	return plane.At(cbf.Centered{X: int(math.Round(x)), Y: int(math.Round(y))})
}

// polarToCartesian scales radius by half the width and returns the offset
// from the image centre.
func polarToCartesian(width, angle, radius float64) (x, y float64) {
	r := radius * width / 2
	return r * math.Cos(angle), r * math.Sin(angle)
}
