package client

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benniehaelen/databricks-mcp-server/internal/chart"
	"github.com/benniehaelen/databricks-mcp-server/internal/server"
	"github.com/benniehaelen/databricks-mcp-server/pkg/types"
)

// fakeWorkspace serves canned responses through a real in-process MCP
// session, so these tests exercise the full protocol round trip.
type fakeWorkspace struct {
	catalogs *types.ListCatalogsResult
	schemas  *types.ListSchemasResult
	tables   *types.ListTablesResult
	table    *types.TableInfo
	query    *types.QueryResult
	err      error
}

func (f *fakeWorkspace) ListCatalogs(_ context.Context) (*types.ListCatalogsResult, error) {
	return f.catalogs, f.err
}

func (f *fakeWorkspace) ListSchemas(_ context.Context, _ string) (*types.ListSchemasResult, error) {
	return f.schemas, f.err
}

func (f *fakeWorkspace) ListTables(_ context.Context, _, _ string) (*types.ListTablesResult, error) {
	return f.tables, f.err
}

func (f *fakeWorkspace) GetTableInfo(_ context.Context, _, _, _ string) (*types.TableInfo, error) {
	return f.table, f.err
}

func (f *fakeWorkspace) ExecuteSQL(_ context.Context, _, _ string) (*types.QueryResult, error) {
	return f.query, f.err
}

type fakeCharts struct {
	result *types.ChartResult
	err    error
}

func (f *fakeCharts) Create(_ context.Context, _ chart.Request) (*types.ChartResult, error) {
	return f.result, f.err
}

func newSession(t *testing.T, ws server.WorkspaceService, charts server.ChartService) *Client {
	t.Helper()

	srv, err := server.New(server.Options{Workspace: ws, Charts: charts})
	require.NoError(t, err)

	c, err := ConnectInProcess(context.Background(), srv.MCPServer())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClientRoundTrip(t *testing.T) {
	ws := &fakeWorkspace{
		catalogs: &types.ListCatalogsResult{Catalogs: []types.CatalogInfo{{Name: "main"}, {Name: "dev"}}},
		schemas:  &types.ListSchemasResult{Catalog: "main", Schemas: []types.SchemaInfo{{Name: "sales"}}},
		tables: &types.ListTablesResult{Catalog: "main", Schema: "sales", Tables: []types.TableSummary{
			{Name: "orders", TableType: "MANAGED"},
		}},
		table: &types.TableInfo{
			Name: "orders", CatalogName: "main", SchemaName: "sales",
			Columns: []types.ColumnInfo{{Name: "id", TypeText: "bigint"}},
		},
		query: &types.QueryResult{
			Status:  "success",
			Columns: []string{"id", "amount"},
			Rows: []map[string]any{
				{"id": "1", "amount": "10.5"},
				{"id": "2", "amount": "20.0"},
				{"id": "3", "amount": "30.0"},
			},
			RowCount: 3,
		},
	}
	c := newSession(t, ws, &fakeCharts{})
	ctx := context.Background()

	t.Run("list catalogs", func(t *testing.T) {
		out, err := c.ListCatalogs(ctx)
		require.NoError(t, err)
		require.Len(t, out.Catalogs, 2)
		assert.Equal(t, "main", out.Catalogs[0].Name)
	})

	t.Run("list schemas", func(t *testing.T) {
		out, err := c.ListSchemas(ctx, "main")
		require.NoError(t, err)
		assert.Equal(t, "main", out.Catalog)
		require.Len(t, out.Schemas, 1)
	})

	t.Run("list tables", func(t *testing.T) {
		out, err := c.ListTables(ctx, "main", "sales")
		require.NoError(t, err)
		require.Len(t, out.Tables, 1)
		assert.Equal(t, "MANAGED", out.Tables[0].TableType)
	})

	t.Run("get table info", func(t *testing.T) {
		out, err := c.GetTableInfo(ctx, "main", "sales", "orders")
		require.NoError(t, err)
		assert.Equal(t, "orders", out.Name)
		require.Len(t, out.Columns, 1)
		assert.Equal(t, "bigint", out.Columns[0].TypeText)
	})

	t.Run("execute sql preserves rows and column order", func(t *testing.T) {
		out, err := c.ExecuteSQL(ctx, "SELECT id, amount FROM orders", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "amount"}, out.Columns)
		assert.Equal(t, 3, out.RowCount)
		require.Len(t, out.Rows, 3)
		assert.Equal(t, "20.0", out.Rows[1]["amount"])
	})

	t.Run("list tools includes the full surface", func(t *testing.T) {
		tools, err := c.ListTools(ctx)
		require.NoError(t, err)

		names := make(map[string]bool, len(tools))
		for _, tool := range tools {
			names[tool.Name] = true
		}
		for _, want := range []string{
			"list_catalogs", "list_schemas", "list_tables", "get_table_info",
			"execute_sql", "query_natural_language", "create_chart",
		} {
			assert.True(t, names[want], "tool %s should be declared", want)
		}
	})
}

func TestClientErrorKinds(t *testing.T) {
	ws := &fakeWorkspace{err: types.NewToolError(types.ErrorKindRemoteCatalog, "PERMISSION_DENIED on main")}
	c := newSession(t, ws, &fakeCharts{})

	_, err := c.ListCatalogs(context.Background())
	require.Error(t, err)

	var te *types.ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, types.ErrorKindRemoteCatalog, te.Kind)
	assert.Contains(t, te.Message, "PERMISSION_DENIED")
}

func TestClientNLNotConfigured(t *testing.T) {
	c := newSession(t, &fakeWorkspace{}, &fakeCharts{})

	_, err := c.QueryNaturalLanguage(context.Background(), "how many orders?", "main", "sales", "orders", "")
	require.Error(t, err)

	var te *types.ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, types.ErrorKindNLConversion, te.Kind)
}

func TestClientCreateChart(t *testing.T) {
	img := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	charts := &fakeCharts{result: &types.ChartResult{
		ChartType: "bar",
		ImageData: base64.StdEncoding.EncodeToString(img),
		MimeType:  "image/png",
		XColumn:   "region",
		YColumn:   "revenue",
		Image:     img,
	}}
	c := newSession(t, &fakeWorkspace{}, charts)

	out, err := c.CreateChart(context.Background(), ChartRequest{
		Query:     "SELECT region, revenue FROM sales",
		ChartType: "bar",
	})
	require.NoError(t, err)
	assert.Equal(t, "bar", out.ChartType)
	assert.Equal(t, "image/png", out.MimeType)
	assert.Equal(t, img, out.Image, "image bytes should be decoded from the content block")
}

func TestClientResourcesAndPrompts(t *testing.T) {
	ws := &fakeWorkspace{
		catalogs: &types.ListCatalogsResult{Catalogs: []types.CatalogInfo{{Name: "main"}}},
	}
	c := newSession(t, ws, &fakeCharts{})
	ctx := context.Background()

	t.Run("read catalogs resource", func(t *testing.T) {
		text, err := c.ReadResource(ctx, "databricks://catalogs")
		require.NoError(t, err)
		assert.Contains(t, text, `"main"`)
	})

	t.Run("list prompts", func(t *testing.T) {
		prompts, err := c.ListPrompts(ctx)
		require.NoError(t, err)

		names := make(map[string]bool, len(prompts))
		for _, p := range prompts {
			names[p.Name] = true
		}
		assert.True(t, names["query-table"])
		assert.True(t, names["analyze-data"])
		assert.True(t, names["explore-catalog"])
	})

	t.Run("get prompt", func(t *testing.T) {
		out, err := c.GetPrompt(ctx, "analyze-data", map[string]string{
			"data_description": "quarterly revenue",
		})
		require.NoError(t, err)
		require.NotEmpty(t, out.Messages)
	})
}

func TestClientCloseIsIdempotent(t *testing.T) {
	c := newSession(t, &fakeWorkspace{}, &fakeCharts{})

	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestErrorTextIsPreservedVerbatim(t *testing.T) {
	t.Parallel()

	t.Run("transport errors with percent signs", func(t *testing.T) {
		msg := "dial tcp: lookup host%2Fmcp: 100% failure"
		err := remoteUnavailable(errors.New(msg))

		var te *types.ToolError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, types.ErrorKindRemoteUnavailable, te.Kind)
		assert.Equal(t, msg, te.Message)
	})

	t.Run("non-envelope error payloads with percent signs", func(t *testing.T) {
		msg := "disk 100% full"
		result := &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{mcp.TextContent{Type: "text", Text: msg}},
		}
		err := envelopeError(result)

		var te *types.ToolError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, types.ErrorKindInternal, te.Kind)
		assert.Equal(t, msg, te.Message)
	})
}

func TestServerErrorKindsSurviveTheProtocol(t *testing.T) {
	c := newSession(t, &fakeWorkspace{}, &fakeCharts{})
	ctx := context.Background()

	t.Run("prompt argument failures keep invalid_arguments", func(t *testing.T) {
		_, err := c.GetPrompt(ctx, "query-table", map[string]string{
			"catalog": "main", "schema": "sales", "table": "orders",
		})
		require.Error(t, err)

		var te *types.ToolError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, types.ErrorKindInvalidArguments, te.Kind)
		assert.Contains(t, te.Message, "question")
	})

	t.Run("resource read failures keep remote_catalog_error", func(t *testing.T) {
		failing := newSession(t, &fakeWorkspace{
			err: types.NewToolError(types.ErrorKindRemoteCatalog, "catalog service returned 503"),
		}, &fakeCharts{})

		_, err := failing.ReadResource(ctx, server.ResourceCatalogs)
		require.Error(t, err)

		var te *types.ToolError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, types.ErrorKindRemoteCatalog, te.Kind)
		assert.Contains(t, te.Message, "catalog service returned 503")
	})
}
