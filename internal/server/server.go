package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/cbf-tools-mcp/internal/analysis"
	"github.com/ironsheep/cbf-tools-mcp/internal/imaging"
	"github.com/ironsheep/cbf-tools-mcp/internal/logger"
)

// Version is reported in the initialize handshake.
const Version = "0.1.0"

// Defaults for tool calls that do not override them.
type Defaults struct {
	AngularBins int
	RadialBins  int
	MaxRadius   float64
	// CallTimeout bounds a single tool call, including any fetch.
	CallTimeout time.Duration
}

// DefaultDefaults match the environment defaults of package config.
var DefaultDefaults = Defaults{
	AngularBins: 720,
	RadialBins:  500,
	MaxRadius:   analysis.MaxRadius,
	CallTimeout: 30 * time.Second,
}

// Server handles MCP protocol communication
type Server struct {
	cache    *imaging.ImageCache
	defaults Defaults
	log      logrus.FieldLogger
}

// Option configures a Server.
type Option func(*Server)

// WithDefaults overrides the analysis defaults and call timeout.
func WithDefaults(d Defaults) Option {
	return func(s *Server) { s.defaults = d }
}

// WithLogger sets the logger used for protocol diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) { s.log = l }
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a new MCP server instance serving images from cache
func New(cache *imaging.ImageCache, opts ...Option) *Server {
	s := &Server{
		cache:    cache,
		defaults: DefaultDefaults,
		log:      logger.WithField("component", "mcp"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run serves newline-delimited JSON-RPC requests from in and writes responses
// to out until in is exhausted or ctx is cancelled.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	encoder := json.NewEncoder(out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.WithError(err).Warn("failed to parse request")
			continue
		}

		resp := s.HandleRequest(ctx, &req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.log.WithError(err).Error("failed to encode response")
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// HandleRequest routes a request to its handler. Notifications return nil.
func (s *Server) HandleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	log := s.log.WithFields(logrus.Fields{"method": req.Method, "id": req.ID})
	log.Debug("request received")

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		log.Warn("method not found")
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "cbf-tools-mcp",
				"version": Version,
			},
		},
	}
}

// handleToolsList returns the tool catalogue
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
