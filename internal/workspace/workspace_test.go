package workspace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/databricks/databricks-sdk-go/service/catalog"
	"github.com/databricks/databricks-sdk-go/service/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benniehaelen/databricks-mcp-server/pkg/types"
)

// fakeMetadata implements MetadataAPI from canned responses.
type fakeMetadata struct {
	catalogs []catalog.CatalogInfo
	schemas  []catalog.SchemaInfo
	tables   []catalog.TableInfo
	table    *catalog.TableInfo
	err      error

	gotCatalog  string
	gotSchema   string
	gotFullName string
}

func (f *fakeMetadata) ListCatalogs(_ context.Context) ([]catalog.CatalogInfo, error) {
	return f.catalogs, f.err
}

func (f *fakeMetadata) ListSchemas(_ context.Context, catalogName string) ([]catalog.SchemaInfo, error) {
	f.gotCatalog = catalogName
	return f.schemas, f.err
}

func (f *fakeMetadata) ListTables(_ context.Context, catalogName, schemaName string) ([]catalog.TableInfo, error) {
	f.gotCatalog = catalogName
	f.gotSchema = schemaName
	return f.tables, f.err
}

func (f *fakeMetadata) GetTable(_ context.Context, fullName string) (*catalog.TableInfo, error) {
	f.gotFullName = fullName
	return f.table, f.err
}

// fakeStatements implements StatementAPI. Each call pops the next canned
// response, so tests can script an execute-then-poll sequence.
type fakeStatements struct {
	responses []*sql.StatementResponse
	err       error

	executeDelay time.Duration

	executeCalls int
	pollCalls    int
}

func (f *fakeStatements) next() *sql.StatementResponse {
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp
}

func (f *fakeStatements) ExecuteStatement(_ context.Context, _ sql.ExecuteStatementRequest) (*sql.StatementResponse, error) {
	f.executeCalls++
	if f.executeDelay > 0 {
		time.Sleep(f.executeDelay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.next(), nil
}

func (f *fakeStatements) GetStatement(_ context.Context, _ string) (*sql.StatementResponse, error) {
	f.pollCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.next(), nil
}

func newTestClient(meta MetadataAPI, stmt StatementAPI) *Client {
	return NewWithAPIs(meta, stmt, "wh-default", 30*time.Second, nil)
}

func TestListCatalogs(t *testing.T) {
	t.Parallel()

	t.Run("maps catalog metadata", func(t *testing.T) {
		meta := &fakeMetadata{catalogs: []catalog.CatalogInfo{
			{Name: "main", Comment: "prod data", Owner: "data-eng", CreatedAt: 1700000000000},
			{Name: "dev"},
		}}
		c := newTestClient(meta, &fakeStatements{})

		out, err := c.ListCatalogs(context.Background())
		require.NoError(t, err)
		require.Len(t, out.Catalogs, 2)
		assert.Equal(t, "main", out.Catalogs[0].Name)
		assert.Equal(t, "prod data", out.Catalogs[0].Comment)
		assert.Equal(t, "data-eng", out.Catalogs[0].Owner)
		assert.NotEmpty(t, out.Catalogs[0].CreatedAt)
		assert.Empty(t, out.Catalogs[1].CreatedAt)
	})

	t.Run("workspace failure reports remote_catalog_error", func(t *testing.T) {
		meta := &fakeMetadata{err: errors.New("PERMISSION_DENIED")}
		c := newTestClient(meta, &fakeStatements{})

		_, err := c.ListCatalogs(context.Background())
		require.Error(t, err)
		te := types.AsToolError(err)
		assert.Equal(t, types.ErrorKindRemoteCatalog, te.Kind)
		assert.Contains(t, te.Message, "PERMISSION_DENIED")
	})
}

func TestListSchemas(t *testing.T) {
	t.Parallel()

	meta := &fakeMetadata{schemas: []catalog.SchemaInfo{{Name: "sales"}}}
	c := newTestClient(meta, &fakeStatements{})

	out, err := c.ListSchemas(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, "main", meta.gotCatalog)
	assert.Equal(t, "main", out.Catalog)
	require.Len(t, out.Schemas, 1)
	assert.Equal(t, "sales", out.Schemas[0].Name)
}

func TestListTables(t *testing.T) {
	t.Parallel()

	meta := &fakeMetadata{tables: []catalog.TableInfo{
		{Name: "orders", TableType: catalog.TableTypeManaged},
	}}
	c := newTestClient(meta, &fakeStatements{})

	out, err := c.ListTables(context.Background(), "main", "sales")
	require.NoError(t, err)
	assert.Equal(t, "main", meta.gotCatalog)
	assert.Equal(t, "sales", meta.gotSchema)
	require.Len(t, out.Tables, 1)
	assert.Equal(t, "orders", out.Tables[0].Name)
	assert.Equal(t, "MANAGED", out.Tables[0].TableType)
}

func TestGetTableInfo(t *testing.T) {
	t.Parallel()

	meta := &fakeMetadata{table: &catalog.TableInfo{
		Name:        "orders",
		CatalogName: "main",
		SchemaName:  "sales",
		TableType:   catalog.TableTypeManaged,
		Columns: []catalog.ColumnInfo{
			{Name: "id", TypeName: catalog.ColumnTypeNameLong, TypeText: "bigint", Position: 0},
			{Name: "amount", TypeName: catalog.ColumnTypeNameDouble, TypeText: "double", Nullable: true, Position: 1},
		},
	}}
	c := newTestClient(meta, &fakeStatements{})

	out, err := c.GetTableInfo(context.Background(), "main", "sales", "orders")
	require.NoError(t, err)
	assert.Equal(t, "main.sales.orders", meta.gotFullName)
	assert.Equal(t, "orders", out.Name)
	require.Len(t, out.Columns, 2)
	assert.Equal(t, "id", out.Columns[0].Name)
	assert.Equal(t, "bigint", out.Columns[0].TypeText)
	assert.True(t, out.Columns[1].Nullable)
	assert.Equal(t, 1, out.Columns[1].Position)
}
