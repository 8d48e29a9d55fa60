package detection

import (
	"fmt"
	"math"
	"sort"

	"github.com/ironsheep/cbf-tools-mcp/internal/analysis"
)

// Ring represents a diffraction ring found as a peak of a radial profile.
type Ring struct {
	// Index is the radial bin of the peak.
	Index int `json:"index"`

	// Radius is the normalized radius of the peak bin (1.0 = half the width).
	Radius float64 `json:"radius"`

	// PixelRadius is the same radius in pixels from the image centre.
	PixelRadius float64 `json:"pixel_radius"`

	// Value is the mean intensity of the peak bin.
	Value float64 `json:"value"`

	// Prominence is the height of the peak above the higher of the two
	// minima separating it from taller neighbours, in intensity units.
	Prominence float64 `json:"prominence"`

	// Confidence is Prominence as a fraction of the profile range (0.0 to 1.0).
	Confidence float64 `json:"confidence"`
}

// RingsResult contains all rings detected in a profile.
type RingsResult struct {
	// Rings is the list of detected rings, sorted by prominence (highest first).
	Rings []Ring `json:"rings"`

	// Count is the number of rings detected.
	Count int `json:"count"`

	// Range is max - min of the profile, the scale of Confidence.
	Range float64 `json:"range"`
}

// DetectRings finds diffraction rings as local maxima of a radial profile.
//
// Parameters:
//   - profile: Azimuthally averaged profile, e.g. from analysis.ProfileImage.
//   - minProminence: Minimum prominence as a fraction of the profile range
//     (0.0 to 1.0). Typical: 0.05-0.2.
//   - minSeparation: Peaks closer than this many bins are merged, keeping
//     the more prominent one. 0 keeps every peak.
//
// # Algorithm
//
//  1. Peak Finding: A bin is a peak when it is higher than the bin before it
//     and not lower than the bin after it. The first and last bins never are.
//  2. Prominence: Walk outwards from the peak on each side until a higher bin
//     or the profile edge, tracking the lowest bin passed. Prominence is the
//     peak value minus the higher of the two minima.
//  3. Filtering: Drop peaks below minProminence.
//  4. Duplicate Removal: Merge peaks closer than minSeparation bins.
//
// Bins holding NaN break the profile: they are never peaks and stop the walk.
func DetectRings(profile *analysis.Profile, minProminence float64, minSeparation int) (*RingsResult, error) {
	if math.IsNaN(minProminence) || minProminence < 0 || minProminence > 1 {
		return nil, fmt.Errorf("minimum prominence %v outside [0, 1]", minProminence)
	}
	if minSeparation < 0 {
		return nil, fmt.Errorf("minimum separation %d is negative", minSeparation)
	}

	values := profile.Values()
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if math.IsInf(lo, 1) || span == 0 || math.IsInf(span, 0) {
		return &RingsResult{Rings: []Ring{}}, nil
	}

	rings := make([]Ring, 0)
	for i := 1; i < len(values)-1; i++ {
		v := values[i]
		if math.IsNaN(v) || !(v > values[i-1]) || !(v >= values[i+1]) {
			continue
		}

		prominence := v - math.Max(walkMin(values, i, -1), walkMin(values, i, 1))
		confidence := prominence / span
		if confidence < minProminence || prominence <= 0 {
			continue
		}

		b := profile.Bins[i]
		rings = append(rings, Ring{
			Index:       i,
			Radius:      b.Radius,
			PixelRadius: b.PixelRadius,
			Value:       v,
			Prominence:  prominence,
			Confidence:  math.Min(confidence, 1),
		})
	}

	sort.SliceStable(rings, func(i, j int) bool {
		return rings[i].Prominence > rings[j].Prominence
	})
	rings = filterDuplicateRings(rings, minSeparation)

	return &RingsResult{Rings: rings, Count: len(rings), Range: span}, nil
}

// walkMin returns the lowest value passed while walking from peak in
// direction step, stopping before the first value higher than the peak, a NaN
// or the end of the profile.
func walkMin(values []float64, peak, step int) float64 {
	lowest := values[peak]
	for i := peak + step; i >= 0 && i < len(values); i += step {
		v := values[i]
		if math.IsNaN(v) || v > values[peak] {
			break
		}
		lowest = math.Min(lowest, v)
	}
	return lowest
}

// filterDuplicateRings removes rings closer than minSeparation bins to a
// ring already kept. Input must be sorted by prominence, so the more
// prominent ring of a pair survives.
func filterDuplicateRings(rings []Ring, minSeparation int) []Ring {
	if len(rings) == 0 {
		return rings
	}

	filtered := make([]Ring, 0, len(rings))
	for _, r := range rings {
		isDuplicate := false
		for _, f := range filtered {
			d := r.Index - f.Index
			if d < 0 {
				d = -d
			}
			if d < minSeparation {
				isDuplicate = true
				break
			}
		}
		if !isDuplicate {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
