// Package analysis computes azimuthally averaged radial profiles of decoded
// detector images.
//
// A profile samples the image on a polar grid centred on the image centre.
// Angles cover a half turn, since diffraction images are point symmetric, and
// radii are normalized to half the image width, so 1 reaches the middle of an
// edge and √2 the corner of a square image. Every sample that lands on the
// image is averaged into the bin of its radius:
//
//	cfg, err := analysis.NewConfig(720, 500, math.Sqrt2)
//	profile, err := analysis.AnalyzeImage(img, cfg)
//
// Integer means are exact; see Average.
package analysis
