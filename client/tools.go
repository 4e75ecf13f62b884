package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/benniehaelen/databricks-mcp-server/pkg/types"
)

// ListCatalogs lists the catalogs visible to the configured workspace user.
func (c *Client) ListCatalogs(ctx context.Context) (*types.ListCatalogsResult, error) {
	var out types.ListCatalogsResult
	if err := c.callTool(ctx, "list_catalogs", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSchemas lists the schemas in the given catalog.
func (c *Client) ListSchemas(ctx context.Context, catalog string) (*types.ListSchemasResult, error) {
	var out types.ListSchemasResult
	args := map[string]any{"catalog": catalog}
	if err := c.callTool(ctx, "list_schemas", args, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTables lists the tables in the given catalog and schema.
func (c *Client) ListTables(ctx context.Context, catalog, schema string) (*types.ListTablesResult, error) {
	var out types.ListTablesResult
	args := map[string]any{"catalog": catalog, "schema": schema}
	if err := c.callTool(ctx, "list_tables", args, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTableInfo fetches the full metadata record for one table.
func (c *Client) GetTableInfo(ctx context.Context, catalog, schema, table string) (*types.TableInfo, error) {
	var out types.TableInfo
	args := map[string]any{"catalog": catalog, "schema": schema, "table": table}
	if err := c.callTool(ctx, "get_table_info", args, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExecuteSQL runs a SQL statement on a warehouse and returns the result
// rows. warehouseID may be empty to use the server's configured default.
func (c *Client) ExecuteSQL(ctx context.Context, query, warehouseID string) (*types.QueryResult, error) {
	var out types.QueryResult
	args := map[string]any{"query": query}
	if warehouseID != "" {
		args["warehouse_id"] = warehouseID
	}
	if err := c.callTool(ctx, "execute_sql", args, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryNaturalLanguage converts an English question about a table into SQL,
// executes it, and returns both the generated statement and its results.
func (c *Client) QueryNaturalLanguage(ctx context.Context, question, catalog, schema, table, warehouseID string) (*types.NLQueryResult, error) {
	var out types.NLQueryResult
	args := map[string]any{
		"question": question,
		"catalog":  catalog,
		"schema":   schema,
		"table":    table,
	}
	if warehouseID != "" {
		args["warehouse_id"] = warehouseID
	}
	if err := c.callTool(ctx, "query_natural_language", args, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChartRequest carries the arguments for CreateChart. Optional fields may be
// left empty to accept the server's defaults.
type ChartRequest struct {
	Query       string
	ChartType   string
	XColumn     string
	YColumn     string
	Title       string
	WarehouseID string
}

// CreateChart runs a SQL query and renders its result set as a PNG chart.
// The returned result carries the decoded image bytes alongside the base64
// payload.
func (c *Client) CreateChart(ctx context.Context, req ChartRequest) (*types.ChartResult, error) {
	args := map[string]any{
		"query":      req.Query,
		"chart_type": req.ChartType,
	}
	if req.XColumn != "" {
		args["x_column"] = req.XColumn
	}
	if req.YColumn != "" {
		args["y_column"] = req.YColumn
	}
	if req.Title != "" {
		args["title"] = req.Title
	}
	if req.WarehouseID != "" {
		args["warehouse_id"] = req.WarehouseID
	}

	result, err := c.rawCallTool(ctx, "create_chart", args)
	if err != nil {
		return nil, err
	}

	var out types.ChartResult
	if err := unmarshalText(result, &out); err != nil {
		return nil, err
	}
	for _, content := range result.Content {
		img, ok := content.(mcp.ImageContent)
		if !ok {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode chart image: %w", err)
		}
		out.Image = raw
		if img.MIMEType != "" {
			out.MimeType = img.MIMEType
		}
		break
	}
	return &out, nil
}

// callTool invokes the named tool and unmarshals its text payload into out.
func (c *Client) callTool(ctx context.Context, name string, args map[string]any, out any) error {
	result, err := c.rawCallTool(ctx, name, args)
	if err != nil {
		return err
	}
	return unmarshalText(result, out)
}

// rawCallTool performs the tool call and converts error envelopes into
// *types.ToolError. Transport-level failures come back as
// ErrorKindRemoteUnavailable so callers can tell a dead server apart from a
// tool that ran and failed.
func (c *Client) rawCallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := c.mcp.CallTool(ctx, req)
	if err != nil {
		return nil, remoteUnavailable(err)
	}
	if result.IsError {
		return nil, envelopeError(result)
	}
	return result, nil
}

// envelopeError extracts the structured error from a failed tool result. A
// payload that is not a recognizable envelope is reported as an internal
// error with the raw text preserved.
func envelopeError(result *mcp.CallToolResult) error {
	text := firstText(result)
	if toolErr, ok := types.ParseToolError([]byte(text)); ok {
		return toolErr
	}
	// raw text may contain % verbs, never treat it as a format string
	return types.NewToolError(types.ErrorKindInternal, "%s", text)
}

func unmarshalText(result *mcp.CallToolResult, out any) error {
	text := firstText(result)
	if text == "" {
		return fmt.Errorf("tool returned no text content")
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("failed to decode tool response: %w", err)
	}
	return nil
}

func firstText(result *mcp.CallToolResult) string {
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}

func remoteUnavailable(err error) error {
	return types.NewToolError(types.ErrorKindRemoteUnavailable, "%s", err.Error())
}

// protocolError maps a failure that crossed the protocol as a JSON-RPC
// error. Resource and prompt handlers fail server-side with "kind: message"
// text; when a known kind is embedded, the original category is restored
// instead of reporting the transport as unavailable.
func protocolError(err error) error {
	if te, ok := types.ParseToolErrorText(err.Error()); ok {
		return te
	}
	return remoteUnavailable(err)
}
