// Package server implements the MCP (Model Context Protocol) server for CBF
// detector images.
//
// This package provides a JSON-RPC 2.0 server that exposes CBF decoding,
// rendering and radial analysis as MCP tools, so an assistant can inspect
// diffraction frames without a desktop viewer.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// The same requests can be served over HTTP with [Server.Handler]: POST /mcp
// takes one JSON-RPC request, POST /tools/{name} takes the tool arguments
// directly and GET /healthz reports liveness.
//
// # Available Tools
//
// Stream Information:
//   - cbf_load: Decode a stream and describe one image
//   - cbf_headers: MIME header fields, raw and parsed
//   - cbf_dimensions: Get width and height
//
// Rendering:
//   - cbf_render: Contrast-stretched PNG of a frame
//   - cbf_crop: Extract rectangular region
//   - cbf_crop_quadrant: Extract named region (top-left, center, etc.)
//
// Pixel Values:
//   - cbf_sample_pixel: Raw value at a pixel
//   - cbf_sample_pixels_multi: Sample multiple points
//   - cbf_statistics: Summary of a region
//
// Radial Analysis:
//   - cbf_radial_profile: Azimuthally averaged profile, optionally plotted
//   - cbf_detect_rings: Peaks of the profile
//   - cbf_ring_overlay: Frame with resolution rings drawn on it
//
// Measurement:
//   - cbf_measure_distance: Measure between points
//   - cbf_compare_regions: Compare two regions
//
// Every tool takes a path (local file, http(s) URL or azblob:// location)
// and an optional image index into multi-image streams.
//
// # Image Caching
//
// Decoded streams are cached by location in an [imaging.ImageCache] and
// reused across tool calls, so a remote file is fetched once.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(cache, server.WithDefaults(defaults))
//	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
package server
