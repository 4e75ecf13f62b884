// Package direct exposes the server's Unity Catalog operations as an
// in-process Go API, without any MCP transport in between. It is meant for
// notebooks, scripts and tests that want the same behavior as the MCP tools
// but with plain typed calls.
package direct

import (
	"context"

	"go.uber.org/zap"

	"github.com/benniehaelen/databricks-mcp-server/internal/chart"
	"github.com/benniehaelen/databricks-mcp-server/internal/config"
	"github.com/benniehaelen/databricks-mcp-server/internal/nlq"
	"github.com/benniehaelen/databricks-mcp-server/internal/workspace"
	"github.com/benniehaelen/databricks-mcp-server/pkg/types"
)

// Session bundles the workspace, natural-language and chart services behind
// one handle. All methods share the semantics of the corresponding MCP
// tools, including the structured *types.ToolError failures.
type Session struct {
	workspace *workspace.Client
	nl        *nlq.Converter
	charts    *chart.Renderer
}

// Open builds a Session from the given configuration. The natural-language
// converter is only wired when an Anthropic API key is configured;
// QueryNaturalLanguage reports ErrorKindNLConversion otherwise.
func Open(cfg *config.Config, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}

	ws, err := workspace.New(cfg, log)
	if err != nil {
		return nil, err
	}

	s := &Session{
		workspace: ws,
		charts:    chart.New(ws, log),
	}
	if cfg.NLEnabled() {
		s.nl = nlq.New(cfg.AnthropicAPIKey, cfg.AnthropicModel, ws, ws, log)
	}
	return s, nil
}

// ListCatalogs lists the catalogs visible to the configured principal.
func (s *Session) ListCatalogs(ctx context.Context) (*types.ListCatalogsResult, error) {
	return s.workspace.ListCatalogs(ctx)
}

// ListSchemas lists the schemas in a catalog.
func (s *Session) ListSchemas(ctx context.Context, catalog string) (*types.ListSchemasResult, error) {
	return s.workspace.ListSchemas(ctx, catalog)
}

// ListTables lists the tables in a schema.
func (s *Session) ListTables(ctx context.Context, catalog, schema string) (*types.ListTablesResult, error) {
	return s.workspace.ListTables(ctx, catalog, schema)
}

// GetTableInfo fetches the full metadata record for one table.
func (s *Session) GetTableInfo(ctx context.Context, catalog, schema, table string) (*types.TableInfo, error) {
	return s.workspace.GetTableInfo(ctx, catalog, schema, table)
}

// ExecuteSQL runs a SQL statement on a warehouse. An empty warehouseID uses
// the configured default.
func (s *Session) ExecuteSQL(ctx context.Context, query, warehouseID string) (*types.QueryResult, error) {
	return s.workspace.ExecuteSQL(ctx, query, warehouseID)
}

// QueryNaturalLanguage converts an English question about a table into SQL
// and executes it. An empty warehouseID uses the configured default.
func (s *Session) QueryNaturalLanguage(ctx context.Context, question, catalog, schema, table, warehouseID string) (*types.NLQueryResult, error) {
	if s.nl == nil {
		return nil, types.NewToolError(types.ErrorKindNLConversion,
			"natural language querying is not configured, set the ANTHROPIC_API_KEY environment variable")
	}
	return s.nl.Query(ctx, question, catalog, schema, table, warehouseID)
}

// CreateChart runs a SQL query and renders the result set as a PNG chart.
func (s *Session) CreateChart(ctx context.Context, req chart.Request) (*types.ChartResult, error) {
	return s.charts.Create(ctx, req)
}
