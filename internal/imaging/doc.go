// Package imaging turns decoded CBF frames into pictures and numbers for the
// MCP server.
//
// It renders frames through a contrast stretch and optional colormap, crops
// and rescales them, samples raw values, summarises regions, draws
// resolution rings and plots radial profiles. Every picture is returned as a
// base64 PNG.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// Radii are normalized the way the radial analysis sees them: 1.0 is half
// the image width, measured from (width/2, height/2).
//
// # Display Stretch
//
// A frame is mapped onto 256 grey levels with
//
//	display = 255 - round((v - min) * 255 / (max - min))
//
// so the weakest sample is white and the strongest is black. The window
// [min, max] is the sample range of the frame unless the caller overrides it;
// a flat frame falls back to the full range of its pixel kind.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Decoded images are never
// modified after loading, so all other functions may run concurrently on the
// same image.
//
// # Performance Considerations
//
// For repeated operations on the same stream, use ImageCache to avoid
// redundant fetches and decodes. Consider using Evict() or Clear() to manage
// memory for long-running processes.
package imaging
