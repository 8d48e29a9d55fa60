package server

import (
	"github.com/ironsheep/cbf-tools-mcp/internal/imaging"
)

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func param(typ, description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        typ,
		"description": description,
	}
}

func paramWithDefault(typ, description string, def interface{}) map[string]interface{} {
	p := param(typ, description)
	p["default"] = def
	return p
}

// properties merges property groups; later groups win.
func properties(groups ...map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for _, g := range groups {
		for k, v := range g {
			out[k] = v
		}
	}
	return out
}

func schema(props map[string]interface{}, required ...string) map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   append([]string{"path"}, required...),
	}
}

func frameProperties() map[string]interface{} {
	return map[string]interface{}{
		"path":  param("string", "CBF source: absolute file path, http(s):// URL or azblob://container/blob. .gz and .zst files are decompressed"),
		"index": paramWithDefault("integer", "Image number within a multi-image stream (0-based)", 0),
	}
}

func renderProperties() map[string]interface{} {
	colormaps := make([]string, len(imaging.Colormaps))
	for i, c := range imaging.Colormaps {
		colormaps[i] = string(c)
	}
	colormap := paramWithDefault("string", "Colour mapping. inverted shows high counts dark, gray shows them bright", string(imaging.ColormapInverted))
	colormap["enum"] = colormaps

	return map[string]interface{}{
		"colormap":      colormap,
		"min":           param("number", "Display window minimum. Default: image minimum"),
		"max":           param("number", "Display window maximum. Default: image maximum"),
		"gamma":         paramWithDefault("number", "Gamma correction applied to the picture", 1.0),
		"smooth":        paramWithDefault("number", "Gaussian blur radius in pixels, 0 disables", 0.0),
		"scale":         paramWithDefault("number", "Optional scale factor (e.g., 2.0 to double size)", 1.0),
		"max_dimension": param("integer", "Shrink the picture to fit this many pixels on its longer side"),
		"flip_vertical": paramWithDefault("boolean", "Mirror the picture top to bottom", false),
	}
}

func profileProperties() map[string]interface{} {
	return map[string]interface{}{
		"angular_bins": paramWithDefault("integer", "Number of angles sampled over a half turn", DefaultDefaults.AngularBins),
		"radial_bins":  paramWithDefault("integer", "Number of radial bins", DefaultDefaults.RadialBins),
		"max_radius":   paramWithDefault("number", "Outermost radius as a fraction of half the image width, 0 to 1.414", DefaultDefaults.MaxRadius),
	}
}

func ringThresholdProperties() map[string]interface{} {
	return map[string]interface{}{
		"min_prominence": paramWithDefault("number", "Minimum peak prominence as a fraction of the profile range (0-1)", 0.1),
		"min_separation": paramWithDefault("integer", "Peaks closer than this many bins are merged", 3),
	}
}

func regionProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": description,
		"properties": map[string]interface{}{
			"x1": param("integer", "Left edge X coordinate (0-based)"),
			"y1": param("integer", "Top edge Y coordinate (0-based)"),
			"x2": param("integer", "Right edge X coordinate (exclusive)"),
			"y2": param("integer", "Bottom edge Y coordinate (exclusive)"),
		},
		"required": []string{"x1", "y1", "x2", "y2"},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Stream Information
		{
			Name:        "cbf_load",
			Description: "Load a CBF detector image and return its dimensions, pixel type, compression, image count and value range. The decoded stream is cached for subsequent operations.",
			InputSchema: schema(frameProperties()),
		},
		{
			Name:        "cbf_headers",
			Description: "Return the MIME header fields of a CBF binary section in file order, together with their parsed form.",
			InputSchema: schema(frameProperties()),
		},
		{
			Name:        "cbf_dimensions",
			Description: "Get the width and height of a CBF image.",
			InputSchema: schema(frameProperties()),
		},

		// Rendering
		{
			Name:        "cbf_render",
			Description: "Render a CBF image as a base64-encoded PNG using a linear contrast stretch over the display window.",
			InputSchema: schema(properties(frameProperties(), renderProperties())),
		},
		{
			Name:        "cbf_crop",
			Description: "Crop a rectangular region from a CBF image and return it as base64-encoded PNG. Use this to zoom into areas that need detailed examination. The display window is taken from the whole frame.",
			InputSchema: schema(properties(frameProperties(), renderProperties(), map[string]interface{}{
				"x1": param("integer", "Left edge X coordinate (0-based)"),
				"y1": param("integer", "Top edge Y coordinate (0-based)"),
				"x2": param("integer", "Right edge X coordinate (exclusive)"),
				"y2": param("integer", "Bottom edge Y coordinate (exclusive)"),
			}), "x1", "y1", "x2", "y2"),
		},
		{
			Name:        "cbf_crop_quadrant",
			Description: "Crop a named region of the image (top-left, top-right, bottom-left, bottom-right, top-half, bottom-half, left-half, right-half, center).",
			InputSchema: schema(properties(frameProperties(), renderProperties(), map[string]interface{}{
				"region": map[string]interface{}{
					"type":        "string",
					"enum":        imaging.QuadrantRegions,
					"description": "Named region to extract",
				},
			}), "region"),
		},

		// Pixel Values
		{
			Name:        "cbf_sample_pixel",
			Description: "Get the raw detector value at a pixel, with its display level, centre offset and radius.",
			InputSchema: schema(properties(frameProperties(), map[string]interface{}{
				"x":   param("integer", "X coordinate (0-based, from left)"),
				"y":   param("integer", "Y coordinate (0-based, from top)"),
				"min": param("number", "Display window minimum. Default: image minimum"),
				"max": param("number", "Display window maximum. Default: image maximum"),
			}), "x", "y"),
		},
		{
			Name:        "cbf_sample_pixels_multi",
			Description: "Sample raw detector values at several labelled points in one call.",
			InputSchema: schema(properties(frameProperties(), map[string]interface{}{
				"points": map[string]interface{}{
					"type":        "array",
					"description": "Points to sample",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"x":     param("integer", "X coordinate"),
							"y":     param("integer", "Y coordinate"),
							"label": param("string", "Optional label for this point"),
						},
						"required": []string{"x", "y"},
					},
				},
			}), "points"),
		},
		{
			Name:        "cbf_statistics",
			Description: "Summarise the raw values of the whole image or a region: count, min, max, mean, standard deviation, masked (negative) and non-zero pixels.",
			InputSchema: schema(properties(frameProperties(), map[string]interface{}{
				"region": regionProperty("Optional region; the whole image when omitted"),
			})),
		},

		// Radial Analysis
		{
			Name:        "cbf_radial_profile",
			Description: "Compute the azimuthally averaged radial intensity profile around the image centre. Radii are fractions of half the image width. Optionally plot it as a PNG chart.",
			InputSchema: schema(properties(frameProperties(), profileProperties(), map[string]interface{}{
				"plot":        paramWithDefault("boolean", "Also return a PNG line chart of the profile", false),
				"plot_width":  paramWithDefault("integer", "Chart width in pixels", 640),
				"plot_height": paramWithDefault("integer", "Chart height in pixels", 360),
				"markers": map[string]interface{}{
					"type":        "array",
					"description": "Radii to mark on the chart with vertical lines",
					"items":       map[string]interface{}{"type": "number"},
				},
			})),
		},
		{
			Name:        "cbf_detect_rings",
			Description: "Find diffraction rings as prominent peaks of the radial profile. Returns radius, intensity and prominence per ring.",
			InputSchema: schema(properties(frameProperties(), profileProperties(), ringThresholdProperties())),
		},
		{
			Name:        "cbf_ring_overlay",
			Description: "Render the image with concentric circles at the given radii, or at the detected rings, drawn around the centre with labels.",
			InputSchema: schema(properties(frameProperties(), renderProperties(), profileProperties(), ringThresholdProperties(), map[string]interface{}{
				"rings": map[string]interface{}{
					"type":        "array",
					"description": "Rings to draw",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"radius": param("number", "Radius as a fraction of half the image width"),
							"label":  param("string", "Optional label; defaults to the radius"),
						},
						"required": []string{"radius"},
					},
				},
				"detect": paramWithDefault("boolean", "Draw detected rings when no rings are given", false),
				"color":  paramWithDefault("string", "Ring colour as #RRGGBB or #RRGGBBAA", imaging.DefaultOverlayColor),
			})),
		},

		// Measurement
		{
			Name:        "cbf_measure_distance",
			Description: "Measure the distance and angle between two pixels, with the radius of each from the image centre.",
			InputSchema: schema(properties(frameProperties(), map[string]interface{}{
				"x1": param("integer", "First point X"),
				"y1": param("integer", "First point Y"),
				"x2": param("integer", "Second point X"),
				"y2": param("integer", "Second point Y"),
			}), "x1", "y1", "x2", "y2"),
		},
		{
			Name:        "cbf_compare_regions",
			Description: "Compare the raw values of two regions pixel by pixel: similarity, mean absolute difference and region means.",
			InputSchema: schema(properties(frameProperties(), map[string]interface{}{
				"region1":   regionProperty("First region"),
				"region2":   regionProperty("Second region"),
				"tolerance": paramWithDefault("number", "Values differing by more than this count as different", 0.0),
			}), "region1", "region2"),
		},
	}
}
