package server

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/benniehaelen/databricks-mcp-server/internal/chart"
	"github.com/benniehaelen/databricks-mcp-server/pkg/types"
)

// Tool names exposed by the dispatch layer.
const (
	ToolListCatalogs         = "list_catalogs"
	ToolListSchemas          = "list_schemas"
	ToolListTables           = "list_tables"
	ToolGetTableInfo         = "get_table_info"
	ToolExecuteSQL           = "execute_sql"
	ToolQueryNaturalLanguage = "query_natural_language"
	ToolCreateChart          = "create_chart"
)

func (s *Server) registerTools() {
	s.registerTool(
		mcp.NewTool(ToolListCatalogs,
			mcp.WithDescription("List all catalogs in Unity Catalog"),
		),
		s.handleListCatalogs,
	)

	s.registerTool(
		mcp.NewTool(ToolListSchemas,
			mcp.WithDescription("List all schemas in a catalog"),
			mcp.WithString("catalog", mcp.Required(), mcp.Description("Name of the catalog to list schemas from")),
		),
		s.handleListSchemas,
	)

	s.registerTool(
		mcp.NewTool(ToolListTables,
			mcp.WithDescription("List all tables in a schema"),
			mcp.WithString("catalog", mcp.Required(), mcp.Description("Name of the catalog")),
			mcp.WithString("schema", mcp.Required(), mcp.Description("Name of the schema")),
		),
		s.handleListTables,
	)

	s.registerTool(
		mcp.NewTool(ToolGetTableInfo,
			mcp.WithDescription("Get detailed information about a table"),
			mcp.WithString("catalog", mcp.Required(), mcp.Description("Name of the catalog")),
			mcp.WithString("schema", mcp.Required(), mcp.Description("Name of the schema")),
			mcp.WithString("table", mcp.Required(), mcp.Description("Name of the table")),
		),
		s.handleGetTableInfo,
	)

	s.registerTool(
		mcp.NewTool(ToolExecuteSQL,
			mcp.WithDescription("Execute a SQL query on a Databricks SQL warehouse"),
			mcp.WithString("query", mcp.Required(), mcp.Description("SQL query to execute")),
			mcp.WithString("warehouse_id", mcp.Description("SQL warehouse ID (uses the configured default if not provided)")),
		),
		s.handleExecuteSQL,
	)

	s.registerTool(
		mcp.NewTool(ToolQueryNaturalLanguage,
			mcp.WithDescription("Convert a natural language question to SQL and execute it"),
			mcp.WithString("question", mcp.Required(), mcp.Description("Natural language question to convert to SQL")),
			mcp.WithString("catalog", mcp.Required(), mcp.Description("Name of the catalog")),
			mcp.WithString("schema", mcp.Required(), mcp.Description("Name of the schema")),
			mcp.WithString("table", mcp.Required(), mcp.Description("Name of the table")),
			mcp.WithString("warehouse_id", mcp.Description("SQL warehouse ID (uses the configured default if not provided)")),
		),
		s.handleQueryNaturalLanguage,
	)

	s.registerTool(
		mcp.NewTool(ToolCreateChart,
			mcp.WithDescription("Execute a SQL query and render the result as a chart"),
			mcp.WithString("query", mcp.Required(), mcp.Description("SQL query providing the chart data")),
			mcp.WithString("chart_type", mcp.Required(), mcp.Description("Chart type: bar, line, scatter, pie, histogram or box")),
			mcp.WithString("x_column", mcp.Description("Column for the x axis (defaults to the first column)")),
			mcp.WithString("y_column", mcp.Description("Column for the y axis (defaults to the second column)")),
			mcp.WithString("title", mcp.Description("Chart title")),
			mcp.WithString("warehouse_id", mcp.Description("SQL warehouse ID (uses the configured default if not provided)")),
		),
		s.handleCreateChart,
	)
}

func (s *Server) handleListCatalogs(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.workspace.ListCatalogs(ctx)
	if err != nil {
		return nil, err
	}
	return successEnvelope(out)
}

func (s *Server) handleListSchemas(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	catalogName, err := req.RequireString("catalog")
	if err != nil {
		return nil, types.NewInvalidArguments("catalog", err)
	}
	out, err := s.workspace.ListSchemas(ctx, catalogName)
	if err != nil {
		return nil, err
	}
	return successEnvelope(out)
}

func (s *Server) handleListTables(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	catalogName, err := req.RequireString("catalog")
	if err != nil {
		return nil, types.NewInvalidArguments("catalog", err)
	}
	schemaName, err := req.RequireString("schema")
	if err != nil {
		return nil, types.NewInvalidArguments("schema", err)
	}
	out, err := s.workspace.ListTables(ctx, catalogName, schemaName)
	if err != nil {
		return nil, err
	}
	return successEnvelope(out)
}

func (s *Server) handleGetTableInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	catalogName, err := req.RequireString("catalog")
	if err != nil {
		return nil, types.NewInvalidArguments("catalog", err)
	}
	schemaName, err := req.RequireString("schema")
	if err != nil {
		return nil, types.NewInvalidArguments("schema", err)
	}
	tableName, err := req.RequireString("table")
	if err != nil {
		return nil, types.NewInvalidArguments("table", err)
	}
	out, err := s.workspace.GetTableInfo(ctx, catalogName, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	return successEnvelope(out)
}

func (s *Server) handleExecuteSQL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return nil, types.NewInvalidArguments("query", err)
	}
	if strings.TrimSpace(query) == "" {
		return nil, types.NewToolError(types.ErrorKindInvalidArguments, "invalid argument %q: query must not be empty", "query")
	}
	warehouseID := req.GetString("warehouse_id", "")

	out, err := s.workspace.ExecuteSQL(ctx, query, warehouseID)
	if err != nil {
		return nil, err
	}
	return successEnvelope(out)
}

func (s *Server) handleQueryNaturalLanguage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.nl == nil {
		return nil, types.NewToolError(
			types.ErrorKindNLConversion,
			"natural language querying is not configured, set the ANTHROPIC_API_KEY environment variable",
		)
	}

	question, err := req.RequireString("question")
	if err != nil {
		return nil, types.NewInvalidArguments("question", err)
	}
	catalogName, err := req.RequireString("catalog")
	if err != nil {
		return nil, types.NewInvalidArguments("catalog", err)
	}
	schemaName, err := req.RequireString("schema")
	if err != nil {
		return nil, types.NewInvalidArguments("schema", err)
	}
	tableName, err := req.RequireString("table")
	if err != nil {
		return nil, types.NewInvalidArguments("table", err)
	}
	warehouseID := req.GetString("warehouse_id", "")

	out, err := s.nl.Query(ctx, question, catalogName, schemaName, tableName, warehouseID)
	if err != nil {
		return nil, err
	}
	return successEnvelope(out)
}

func (s *Server) handleCreateChart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return nil, types.NewInvalidArguments("query", err)
	}
	chartType, err := req.RequireString("chart_type")
	if err != nil {
		return nil, types.NewInvalidArguments("chart_type", err)
	}

	out, err := s.charts.Create(ctx, chart.Request{
		Query:       query,
		ChartType:   chartType,
		XColumn:     req.GetString("x_column", ""),
		YColumn:     req.GetString("y_column", ""),
		Title:       req.GetString("title", ""),
		WarehouseID: req.GetString("warehouse_id", ""),
	})
	if err != nil {
		return nil, err
	}

	summary, err := successEnvelope(out)
	if err != nil {
		return nil, err
	}

	// Alongside the JSON summary, return the rendered PNG as an MCP image
	// content block so protocol clients can display it directly.
	summary.Content = append(summary.Content, mcp.ImageContent{
		Type:     "image",
		Data:     out.ImageData,
		MIMEType: out.MimeType,
	})
	return summary, nil
}
