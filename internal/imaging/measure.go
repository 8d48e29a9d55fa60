package imaging

import (
	"fmt"
	"math"

	"github.com/ironsheep/cbf-tools-mcp/internal/cbf"
)

// Point represents a 2D point
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DistanceResult contains measurement information
type DistanceResult struct {
	DistancePixels        float64 `json:"distance_pixels"`
	DeltaX                int     `json:"delta_x"`
	DeltaY                int     `json:"delta_y"`
	AngleDegrees          float64 `json:"angle_degrees"`
	DistancePercentWidth  float64 `json:"distance_percent_width"`
	DistancePercentHeight float64 `json:"distance_percent_height"`

	// Radius1 and Radius2 are the normalized radii of the endpoints, in
	// units of half the width, as used by the radial analysis.
	Radius1 float64 `json:"radius1"`
	Radius2 float64 `json:"radius2"`
}

// MeasureDistance calculates the distance between two points of a frame
func MeasureDistance(img *cbf.Image, x1, y1, x2, y2 int) (*DistanceResult, error) {
	if img.Width == 0 || img.Height == 0 {
		return nil, fmt.Errorf("image has no pixels")
	}
	width := float64(img.Width)
	height := float64(img.Height)

	deltaX := x2 - x1
	deltaY := y2 - y1

	distance := math.Sqrt(float64(deltaX*deltaX + deltaY*deltaY))

	// Calculate angle in degrees (0 = horizontal right, 90 = down)
	angle := math.Atan2(float64(deltaY), float64(deltaX)) * 180 / math.Pi

	return &DistanceResult{
		DistancePixels:        math.Round(distance*100) / 100,
		DeltaX:                deltaX,
		DeltaY:                deltaY,
		AngleDegrees:          math.Round(angle*10) / 10,
		DistancePercentWidth:  math.Round(distance/width*1000) / 10,
		DistancePercentHeight: math.Round(distance/height*1000) / 10,
		Radius1:               normalizedRadius(img, x1, y1),
		Radius2:               normalizedRadius(img, x2, y2),
	}, nil
}

func normalizedRadius(img *cbf.Image, x, y int) float64 {
	dx := float64(x - img.Width/2)
	dy := float64(y - img.Height/2)
	return math.Round(math.Hypot(dx, dy)/(float64(img.Width)/2)*10000) / 10000
}

// CompareRegionsResult contains region comparison information
type CompareRegionsResult struct {
	SimilarityScore  float64 `json:"similarity_score"`
	PixelsDifferent  int     `json:"pixels_different"`
	TotalPixels      int     `json:"total_pixels"`
	SameSize         bool    `json:"same_size"`
	Region1Size      Point   `json:"region1_size"`
	Region2Size      Point   `json:"region2_size"`
	Region1Mean      float64 `json:"region1_mean"`
	Region2Mean      float64 `json:"region2_mean"`
	AverageValueDiff float64 `json:"average_value_diff"`
}

// CompareRegions compares the raw samples of two regions of a frame. A pair
// counts as different when the values differ by more than tolerance.
func CompareRegions(img *cbf.Image, r1, r2 Region, tolerance float64) (*CompareRegionsResult, error) {
	for _, r := range []Region{r1, r2} {
		if r.Empty() {
			return nil, fmt.Errorf("invalid region (%d,%d)-(%d,%d): x1 must be < x2, y1 must be < y2", r.X1, r.Y1, r.X2, r.Y2)
		}
		if r.X1 < 0 || r.Y1 < 0 || r.X2 > img.Width || r.Y2 > img.Height {
			return nil, fmt.Errorf("region (%d,%d)-(%d,%d) outside image bounds (0,0)-(%d,%d)",
				r.X1, r.Y1, r.X2, r.Y2, img.Width, img.Height)
		}
	}

	// Calculate region sizes
	w1 := r1.X2 - r1.X1
	h1 := r1.Y2 - r1.Y1
	w2 := r2.X2 - r2.X1
	h2 := r2.Y2 - r2.Y1

	sameSize := w1 == w2 && h1 == h2

	// For comparison, use the smaller dimensions
	minW := min(w1, w2)
	minH := min(h1, h2)

	s1, err := Statistics(img, &r1)
	if err != nil {
		return nil, err
	}
	s2, err := Statistics(img, &r2)
	if err != nil {
		return nil, err
	}

	totalPixels := 0
	pixelsDifferent := 0
	var totalDiff float64

	for dy := 0; dy < minH; dy++ {
		for dx := 0; dx < minW; dx++ {
			a, ok1 := img.Float64At(cbf.Linear((r1.Y1+dy)*img.Width + r1.X1 + dx))
			b, ok2 := img.Float64At(cbf.Linear((r2.Y1+dy)*img.Width + r2.X1 + dx))
			if !ok1 || !ok2 {
				continue
			}
			diff := math.Abs(a - b)
			totalPixels++
			totalDiff += diff
			if diff > tolerance {
				pixelsDifferent++
			}
		}
	}

	similarity, avgDiff := 1.0, 0.0
	if totalPixels > 0 {
		similarity = 1.0 - float64(pixelsDifferent)/float64(totalPixels)
		avgDiff = totalDiff / float64(totalPixels)
	}

	return &CompareRegionsResult{
		SimilarityScore:  math.Round(similarity*1000) / 1000,
		PixelsDifferent:  pixelsDifferent,
		TotalPixels:      totalPixels,
		SameSize:         sameSize,
		Region1Size:      Point{X: w1, Y: h1},
		Region2Size:      Point{X: w2, Y: h2},
		Region1Mean:      s1.Mean,
		Region2Mean:      s2.Mean,
		AverageValueDiff: math.Round(avgDiff*100) / 100,
	}, nil
}
