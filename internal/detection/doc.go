// Package detection finds features in radial diffraction profiles.
//
// The profile is the azimuthally averaged intensity of a detector frame as a
// function of radius (see package analysis). Powder and ice rings show up in
// it as peaks; DetectRings reports them with their radius and prominence.
//
// # Confidence Scores
//
// Rings carry a confidence score (0.0 to 1.0): the prominence of the peak as a
// fraction of the profile range.
//   - 1.0 = The peak rises from the profile minimum to its maximum
//   - 0.5 = The peak spans half the profile range
//   - Lower values indicate shallow bumps, often noise
//
// # Limitations
//
// Detection works on the averaged profile only:
//   - Rings off the image centre smear over several bins
//   - Textured rings (partial arcs) are averaged down
//   - Bins beyond the detector edge hold zero and can create false edges
package detection
