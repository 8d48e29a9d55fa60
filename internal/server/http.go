package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// maxRequestBodySize bounds HTTP request bodies, matching the stdio line limit.
const maxRequestBodySize = 1024 * 1024

// ErrorResponse is the body of a failed HTTP request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Handler exposes the server over HTTP:
//
//	POST /mcp           JSON-RPC request, same as one stdio line
//	POST /tools/:name   direct tool call, body = tool arguments
//	GET  /healthz       liveness
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		gin.Recovery(),
		s.requestLogger(),
		requestSizeLimiter(maxRequestBodySize),
	)

	r.GET("/healthz", healthCheck)
	r.POST("/mcp", s.handleRPC)
	r.POST("/tools/:name", s.handleTool)

	return r
}

func (s *Server) handleRPC(c *gin.Context) {
	var req MCPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}

	resp := s.HandleRequest(c.Request.Context(), &req)
	if resp == nil {
		c.Status(http.StatusAccepted)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleTool(c *gin.Context) {
	name := c.Param("name")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.respondError(c, http.StatusRequestEntityTooLarge, "failed to read request body", err)
		return
	}
	if len(body) > 0 && !json.Valid(body) {
		s.respondError(c, http.StatusBadRequest, "invalid request format", errors.New("body is not valid JSON"))
		return
	}

	result, err := s.ExecuteTool(c.Request.Context(), name, body)
	if err != nil {
		s.respondError(c, determineStatusCode(err), fmt.Sprintf("tool %s failed", name), err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.ClientIP(),
		}).Debug("HTTP request")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func determineStatusCode(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrToolPanic):
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *Server) respondError(c *gin.Context, code int, message string, err error) {
	s.log.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
	}).Warn("Request failed")

	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
