// Package api provides the HTTP transport for the Databricks MCP server.
// It wraps the MCP streamable HTTP handler in a Gin router and adds health
// and metrics endpoints.
package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/benniehaelen/databricks-mcp-server/internal/telemetry"
	"github.com/benniehaelen/databricks-mcp-server/pkg/version"
)

// ServerOptions holds the dependencies for the HTTP server.
type ServerOptions struct {
	// Port is the TCP port to bind the HTTP server to.
	Port string

	// MCPServer is the dispatch layer's underlying MCP server, served at /mcp.
	MCPServer *mcpserver.MCPServer

	OtelProviders *telemetry.Providers
	Logger        *zap.Logger
}

// Server serves the MCP protocol over streamable HTTP.
type Server struct {
	port   string
	router *gin.Engine

	mcpServer     *mcpserver.MCPServer
	otelProviders *telemetry.Providers
	log           *zap.Logger
}

// NewServer initializes a new Gin server wrapping the MCP dispatch layer.
func NewServer(opts *ServerOptions) (*Server, error) {
	if opts.MCPServer == nil {
		return nil, fmt.Errorf("MCP server must not be nil")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		port:          opts.Port,
		mcpServer:     opts.MCPServer,
		otelProviders: opts.OtelProviders,
		log:           log,
	}
	s.router = s.setupRouter()

	return s, nil
}

// Start runs the Gin server (blocking call).
func (s *Server) Start() error {
	s.log.Info("starting HTTP server", zap.String("port", s.port))
	if err := s.router.Run(":" + s.port); err != nil {
		return fmt.Errorf("failed to run the server: %w", err)
	}
	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// if otel is enabled, instrument gin and expose the prometheus metrics endpoint
	if s.otelProviders.IsEnabled() {
		r.Use(otelgin.Middleware(s.otelProviders.ServiceName()))
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.GET(
		"/health",
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.GetVersion()})
		},
	)

	streamableHTTPServer := mcpserver.NewStreamableHTTPServer(s.mcpServer)
	r.Any("/mcp", gin.WrapH(streamableHTTPServer))

	return r
}
