// Package server implements the MCP dispatch layer: it declares the fixed
// set of tools, resources and prompts, validates inbound arguments, routes
// to the workspace accessor, SQL executor, NL converter and chart renderer,
// and wraps every result or failure in a uniform envelope. It is the single
// boundary that converts internal failures into error envelopes; no handler
// error ever escapes to the transport as a raw failure.
package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/benniehaelen/databricks-mcp-server/internal/chart"
	"github.com/benniehaelen/databricks-mcp-server/internal/telemetry"
	"github.com/benniehaelen/databricks-mcp-server/pkg/types"
	"github.com/benniehaelen/databricks-mcp-server/pkg/version"
)

const serverName = "databricks-mcp-server"

// WorkspaceService is the Unity Catalog accessor plus the SQL executor.
type WorkspaceService interface {
	ListCatalogs(ctx context.Context) (*types.ListCatalogsResult, error)
	ListSchemas(ctx context.Context, catalogName string) (*types.ListSchemasResult, error)
	ListTables(ctx context.Context, catalogName, schemaName string) (*types.ListTablesResult, error)
	GetTableInfo(ctx context.Context, catalogName, schemaName, tableName string) (*types.TableInfo, error)
	ExecuteSQL(ctx context.Context, query, warehouseID string) (*types.QueryResult, error)
}

// NLService converts natural language questions into executed SQL.
type NLService interface {
	Query(ctx context.Context, question, catalogName, schemaName, tableName, warehouseID string) (*types.NLQueryResult, error)
}

// ChartService renders query results into charts.
type ChartService interface {
	Create(ctx context.Context, req chart.Request) (*types.ChartResult, error)
}

// Options holds the dependencies for constructing a Server. NL may be nil,
// in which case the query_natural_language tool reports that natural
// language querying is not configured.
type Options struct {
	Workspace WorkspaceService
	NL        NLService
	Charts    ChartService
	Metrics   telemetry.CustomMetrics
	Logger    *zap.Logger
}

// Server is the MCP dispatch layer. It holds no mutable domain state across
// calls: every handler is a read-only pass-through to an external service.
type Server struct {
	mcp *mcpserver.MCPServer

	workspace WorkspaceService
	nl        NLService
	charts    ChartService

	metrics telemetry.CustomMetrics
	log     *zap.Logger

	// tools is the static dispatch table, keyed by tool name. The same
	// instrumented handlers are registered with the MCP server.
	tools map[string]mcpserver.ToolHandlerFunc
}

// New constructs the dispatch layer and registers all tools, resources and
// prompts with the underlying MCP server.
func New(opts Options) (*Server, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopCustomMetrics()
	}

	m := mcpserver.NewMCPServer(
		serverName,
		version.GetVersion(),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithPromptCapabilities(true),
		mcpserver.WithRecovery(),
	)

	s := &Server{
		mcp:       m,
		workspace: opts.Workspace,
		nl:        opts.NL,
		charts:    opts.Charts,
		metrics:   metrics,
		log:       log,
		tools:     make(map[string]mcpserver.ToolHandlerFunc),
	}

	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	return s, nil
}

// MCPServer exposes the underlying MCP server for transport wiring.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// ServeStdio serves the MCP protocol over standard input/output. It blocks
// until the transport session closes.
func (s *Server) ServeStdio() error {
	return mcpserver.ServeStdio(s.mcp)
}

// CallTool dispatches a tool invocation by name. An unknown name yields an
// unknown_tool error envelope; it never returns a raw error.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) *mcp.CallToolResult {
	handler, ok := s.tools[name]
	if !ok {
		return errorEnvelope(types.NewUnknownTool(name))
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := handler(ctx, req)
	if err != nil {
		// instrumented handlers convert failures themselves; this is a
		// final safety net
		return errorEnvelope(err)
	}
	return res
}

// registerTool adds a tool to both the dispatch table and the MCP server,
// wrapping its handler with metrics and envelope conversion.
func (s *Server) registerTool(tool mcp.Tool, handler mcpserver.ToolHandlerFunc) {
	wrapped := s.instrument(tool.Name, handler)
	s.tools[tool.Name] = wrapped
	s.mcp.AddTool(tool, wrapped)
}

// instrument wraps a tool handler so that every failure is converted into
// an error envelope and every call is recorded in the metrics.
func (s *Server) instrument(name string, handler mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		started := time.Now()

		res, err := handler(ctx, req)

		outcome := telemetry.ToolCallOutcomeSuccess
		if err != nil || (res != nil && res.IsError) {
			outcome = telemetry.ToolCallOutcomeError
		}
		s.metrics.RecordToolCall(ctx, name, outcome, time.Since(started))

		if err != nil {
			te := types.AsToolError(err)
			s.log.Warn("tool call failed",
				zap.String("tool", name),
				zap.String("kind", string(te.Kind)),
				zap.String("error", te.Message),
			)
			return errorEnvelope(te), nil
		}
		return res, nil
	}
}

// errorEnvelope serializes a failure into the uniform error envelope.
func errorEnvelope(err error) *mcp.CallToolResult {
	te := types.AsToolError(err)
	body, marshalErr := json.Marshal(te)
	if marshalErr != nil {
		return mcp.NewToolResultError(te.Error())
	}
	return mcp.NewToolResultError(string(body))
}

// successEnvelope serializes a payload into a success envelope.
func successEnvelope(v any) (*mcp.CallToolResult, error) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, types.NewToolError(types.ErrorKindInternal, "failed to serialize result: %v", err)
	}
	return mcp.NewToolResultText(string(body)), nil
}
