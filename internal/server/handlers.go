package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/cbf-tools-mcp/internal/analysis"
	"github.com/ironsheep/cbf-tools-mcp/internal/cbf"
	"github.com/ironsheep/cbf-tools-mcp/internal/detection"
	"github.com/ironsheep/cbf-tools-mcp/internal/imaging"
)

// ErrToolPanic wraps a panic recovered while a tool was running.
var ErrToolPanic = errors.New("tool panicked")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "cbf_load", "cbf_render").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.ExecuteTool(ctx, params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// ExecuteTool runs one tool under the configured call timeout.
func (s *Server) ExecuteTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if s.defaults.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.defaults.CallTimeout)
		defer cancel()
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	start := time.Now()
	result, err := s.safeExecuteTool(ctx, name, args)
	log := s.log.WithFields(logrus.Fields{
		"tool":     name,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	})
	if err != nil {
		log.WithError(err).Warn("tool call failed")
		return nil, err
	}
	log.Info("tool call completed")
	return result, nil
}

// safeExecuteTool turns a panic inside a tool into an error so one bad
// stream cannot take the server down.
func (s *Server) safeExecuteTool(ctx context.Context, name string, args json.RawMessage) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(logrus.Fields{
				"tool":  name,
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("tool call panicked")
			result, err = nil, fmt.Errorf("%w: %s: %v", ErrToolPanic, name, r)
		}
	}()
	return s.executeTool(ctx, name, args)
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads the image from the cache, fetching and decoding it if needed
//  4. Calls the appropriate imaging/analysis/detection function
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Stream Information
	case "cbf_load":
		return s.handleLoad(ctx, args)
	case "cbf_headers":
		return s.handleHeaders(ctx, args)
	case "cbf_dimensions":
		return s.handleDimensions(ctx, args)

	// Rendering
	case "cbf_render":
		return s.handleRender(ctx, args)
	case "cbf_crop":
		return s.handleCrop(ctx, args)
	case "cbf_crop_quadrant":
		return s.handleCropQuadrant(ctx, args)

	// Pixel Values
	case "cbf_sample_pixel":
		return s.handleSamplePixel(ctx, args)
	case "cbf_sample_pixels_multi":
		return s.handleSamplePixelsMulti(ctx, args)
	case "cbf_statistics":
		return s.handleStatistics(ctx, args)

	// Radial Analysis
	case "cbf_radial_profile":
		return s.handleRadialProfile(ctx, args)
	case "cbf_detect_rings":
		return s.handleDetectRings(ctx, args)
	case "cbf_ring_overlay":
		return s.handleRingOverlay(ctx, args)

	// Measurement
	case "cbf_measure_distance":
		return s.handleMeasureDistance(ctx, args)
	case "cbf_compare_regions":
		return s.handleCompareRegions(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// frameArgs selects one image of a stream. Every tool embeds it.
type frameArgs struct {
	Path  string `json:"path"`
	Index int    `json:"index"`
}

func (s *Server) frame(ctx context.Context, a frameArgs) (*cbf.Image, error) {
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	d, err := s.cache.Image(ctx, a.Path, a.Index)
	if err != nil {
		return nil, err
	}
	return d.Image, nil
}

// renderArgs are the display options shared by the picture-producing tools.
type renderArgs struct {
	Colormap     string   `json:"colormap"`
	Min          *float64 `json:"min"`
	Max          *float64 `json:"max"`
	Gamma        float64  `json:"gamma"`
	Smooth       float64  `json:"smooth"`
	Scale        float64  `json:"scale"`
	MaxDimension int      `json:"max_dimension"`
	FlipVertical bool     `json:"flip_vertical"`
}

// options converts the arguments, filling a partial window override from the
// sample range of img.
func (r renderArgs) options(img *cbf.Image) (imaging.RenderOptions, error) {
	cm, err := imaging.ParseColormap(r.Colormap)
	if err != nil {
		return imaging.RenderOptions{}, err
	}
	opts := imaging.RenderOptions{
		Colormap:     cm,
		Gamma:        r.Gamma,
		Smooth:       r.Smooth,
		Scale:        r.Scale,
		MaxDimension: r.MaxDimension,
		FlipVertical: r.FlipVertical,
	}
	if r.Min != nil || r.Max != nil {
		win := imaging.DisplayWindow(img)
		if r.Min != nil {
			win.Min = *r.Min
		}
		if r.Max != nil {
			win.Max = *r.Max
		}
		opts.Window = &win
	}
	return opts, nil
}

// window returns the display window implied by the arguments.
func (r renderArgs) window(img *cbf.Image) imaging.Window {
	opts, err := r.options(img)
	if err != nil || opts.Window == nil {
		return imaging.DisplayWindow(img)
	}
	return *opts.Window
}

// profileArgs override the radial sampling grid.
type profileArgs struct {
	AngularBins int      `json:"angular_bins"`
	RadialBins  int      `json:"radial_bins"`
	MaxRadius   *float64 `json:"max_radius"`
}

func (s *Server) profile(img *cbf.Image, p profileArgs) (*analysis.Profile, error) {
	angular, radial, radius := s.defaults.AngularBins, s.defaults.RadialBins, s.defaults.MaxRadius
	if p.AngularBins != 0 {
		angular = p.AngularBins
	}
	if p.RadialBins != 0 {
		radial = p.RadialBins
	}
	if p.MaxRadius != nil {
		radius = *p.MaxRadius
	}
	cfg, err := analysis.NewConfig(angular, radial, radius)
	if err != nil {
		return nil, err
	}
	return analysis.ProfileImage(img, cfg)
}

// === Stream Information Handlers ===

func (s *Server) handleLoad(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a frameArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return imaging.LoadImageInfo(ctx, s.cache, a.Path, a.Index)
}

func (s *Server) handleHeaders(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a frameArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return imaging.ImageHeaders(ctx, s.cache, a.Path, a.Index)
}

func (s *Server) handleDimensions(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a frameArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return imaging.GetDimensions(ctx, s.cache, a.Path, a.Index)
}

// === Rendering Handlers ===

type renderToolArgs struct {
	frameArgs
	renderArgs
}

func (s *Server) handleRender(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a renderToolArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.frame(ctx, a.frameArgs)
	if err != nil {
		return nil, err
	}
	opts, err := a.options(img)
	if err != nil {
		return nil, err
	}
	return imaging.RenderImage(img, opts)
}

type cropArgs struct {
	frameArgs
	renderArgs
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (s *Server) handleCrop(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a cropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.frame(ctx, a.frameArgs)
	if err != nil {
		return nil, err
	}
	opts, err := a.options(img)
	if err != nil {
		return nil, err
	}
	return imaging.Crop(img, a.X1, a.Y1, a.X2, a.Y2, opts)
}

type cropQuadrantArgs struct {
	frameArgs
	renderArgs
	Region string `json:"region"`
}

func (s *Server) handleCropQuadrant(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a cropQuadrantArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.frame(ctx, a.frameArgs)
	if err != nil {
		return nil, err
	}
	opts, err := a.options(img)
	if err != nil {
		return nil, err
	}
	return imaging.CropQuadrant(img, a.Region, opts)
}

// === Pixel Value Handlers ===

type samplePixelArgs struct {
	frameArgs
	renderArgs
	X int `json:"x"`
	Y int `json:"y"`
}

func (s *Server) handleSamplePixel(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a samplePixelArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.frame(ctx, a.frameArgs)
	if err != nil {
		return nil, err
	}
	return imaging.SamplePixel(img, a.window(img), a.X, a.Y)
}

type samplePixelsMultiArgs struct {
	frameArgs
	renderArgs
	Points []imaging.LabeledPoint `json:"points"`
}

func (s *Server) handleSamplePixelsMulti(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a samplePixelsMultiArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Points) == 0 {
		return nil, fmt.Errorf("at least one point is required")
	}
	img, err := s.frame(ctx, a.frameArgs)
	if err != nil {
		return nil, err
	}
	return imaging.SamplePixelsMulti(img, a.window(img), a.Points)
}

type statisticsArgs struct {
	frameArgs
	Region *imaging.Region `json:"region,omitempty"`
}

func (s *Server) handleStatistics(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a statisticsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.frame(ctx, a.frameArgs)
	if err != nil {
		return nil, err
	}
	return imaging.Statistics(img, a.Region)
}

// === Radial Analysis Handlers ===

type radialProfileArgs struct {
	frameArgs
	profileArgs
	Plot       bool      `json:"plot"`
	PlotWidth  int       `json:"plot_width"`
	PlotHeight int       `json:"plot_height"`
	Markers    []float64 `json:"markers"`
}

// RadialProfileResult is a profile and, when requested, its chart.
type RadialProfileResult struct {
	*analysis.Profile
	Plot *imaging.PlotResult `json:"plot,omitempty"`
}

func (s *Server) handleRadialProfile(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a radialProfileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.frame(ctx, a.frameArgs)
	if err != nil {
		return nil, err
	}
	p, err := s.profile(img, a.profileArgs)
	if err != nil {
		return nil, err
	}

	result := &RadialProfileResult{Profile: p}
	if a.Plot {
		if result.Plot, err = imaging.PlotProfile(p, a.PlotWidth, a.PlotHeight, a.Markers); err != nil {
			return nil, err
		}
	}
	return result, nil
}

type detectRingsArgs struct {
	frameArgs
	profileArgs
	MinProminence *float64 `json:"min_prominence"`
	MinSeparation *int     `json:"min_separation"`
}

func (a detectRingsArgs) thresholds() (float64, int) {
	prominence, separation := 0.1, 3
	if a.MinProminence != nil {
		prominence = *a.MinProminence
	}
	if a.MinSeparation != nil {
		separation = *a.MinSeparation
	}
	return prominence, separation
}

func (s *Server) handleDetectRings(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectRingsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.frame(ctx, a.frameArgs)
	if err != nil {
		return nil, err
	}
	p, err := s.profile(img, a.profileArgs)
	if err != nil {
		return nil, err
	}
	prominence, separation := a.thresholds()
	return detection.DetectRings(p, prominence, separation)
}

type ringOverlayArgs struct {
	detectRingsArgs
	renderArgs
	Rings []imaging.Ring `json:"rings"`
	// Detect draws the rings found by cbf_detect_rings when Rings is empty.
	Detect bool   `json:"detect"`
	Color  string `json:"color"`
}

func (s *Server) handleRingOverlay(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a ringOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Color == "" {
		a.Color = imaging.DefaultOverlayColor
	}
	img, err := s.frame(ctx, a.frameArgs)
	if err != nil {
		return nil, err
	}

	rings := a.Rings
	if len(rings) == 0 {
		if !a.Detect {
			return nil, fmt.Errorf("either rings or detect=true is required")
		}
		p, err := s.profile(img, a.profileArgs)
		if err != nil {
			return nil, err
		}
		prominence, separation := a.thresholds()
		found, err := detection.DetectRings(p, prominence, separation)
		if err != nil {
			return nil, err
		}
		for _, r := range found.Rings {
			rings = append(rings, imaging.Ring{Radius: r.Radius})
		}
	}

	opts, err := a.options(img)
	if err != nil {
		return nil, err
	}
	return imaging.RingOverlay(img, rings, opts, a.Color)
}

// === Measurement Handlers ===

type measureDistanceArgs struct {
	frameArgs
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (s *Server) handleMeasureDistance(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a measureDistanceArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.frame(ctx, a.frameArgs)
	if err != nil {
		return nil, err
	}
	return imaging.MeasureDistance(img, a.X1, a.Y1, a.X2, a.Y2)
}

type compareRegionsArgs struct {
	frameArgs
	Region1   imaging.Region `json:"region1"`
	Region2   imaging.Region `json:"region2"`
	Tolerance float64        `json:"tolerance"`
}

func (s *Server) handleCompareRegions(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a compareRegionsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.frame(ctx, a.frameArgs)
	if err != nil {
		return nil, err
	}
	return imaging.CompareRegions(img, a.Region1, a.Region2, a.Tolerance)
}
