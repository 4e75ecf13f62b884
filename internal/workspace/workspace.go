// Package workspace is a thin pass-through to the Databricks workspace SDK.
// It exposes the Unity Catalog metadata lookups and SQL statement execution
// used by the MCP tool handlers, mapping SDK objects into the plain shapes
// in pkg/types. It performs no caching: every call hits the workspace.
package workspace

import (
	"context"
	"fmt"
	"time"

	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/service/catalog"
	"github.com/databricks/databricks-sdk-go/service/sql"
	"go.uber.org/zap"

	"github.com/benniehaelen/databricks-mcp-server/internal/config"
	"github.com/benniehaelen/databricks-mcp-server/pkg/types"
)

// MetadataAPI is the slice of the workspace SDK used for Unity Catalog
// metadata lookups.
type MetadataAPI interface {
	ListCatalogs(ctx context.Context) ([]catalog.CatalogInfo, error)
	ListSchemas(ctx context.Context, catalogName string) ([]catalog.SchemaInfo, error)
	ListTables(ctx context.Context, catalogName, schemaName string) ([]catalog.TableInfo, error)
	GetTable(ctx context.Context, fullName string) (*catalog.TableInfo, error)
}

// StatementAPI is the slice of the workspace SDK used for SQL statement
// execution against a warehouse.
type StatementAPI interface {
	ExecuteStatement(ctx context.Context, req sql.ExecuteStatementRequest) (*sql.StatementResponse, error)
	GetStatement(ctx context.Context, statementID string) (*sql.StatementResponse, error)
}

// sdkWorkspace adapts a *databricks.WorkspaceClient to the two narrow
// interfaces above.
type sdkWorkspace struct {
	w *databricks.WorkspaceClient
}

func (s *sdkWorkspace) ListCatalogs(ctx context.Context) ([]catalog.CatalogInfo, error) {
	return s.w.Catalogs.ListAll(ctx, catalog.ListCatalogsRequest{})
}

func (s *sdkWorkspace) ListSchemas(ctx context.Context, catalogName string) ([]catalog.SchemaInfo, error) {
	return s.w.Schemas.ListAll(ctx, catalog.ListSchemasRequest{CatalogName: catalogName})
}

func (s *sdkWorkspace) ListTables(ctx context.Context, catalogName, schemaName string) ([]catalog.TableInfo, error) {
	return s.w.Tables.ListAll(ctx, catalog.ListTablesRequest{
		CatalogName: catalogName,
		SchemaName:  schemaName,
	})
}

func (s *sdkWorkspace) GetTable(ctx context.Context, fullName string) (*catalog.TableInfo, error) {
	return s.w.Tables.Get(ctx, catalog.GetTableRequest{FullName: fullName})
}

func (s *sdkWorkspace) ExecuteStatement(ctx context.Context, req sql.ExecuteStatementRequest) (*sql.StatementResponse, error) {
	return s.w.StatementExecution.ExecuteStatement(ctx, req)
}

func (s *sdkWorkspace) GetStatement(ctx context.Context, statementID string) (*sql.StatementResponse, error) {
	return s.w.StatementExecution.GetStatement(ctx, sql.GetStatementRequest{StatementId: statementID})
}

// Client wraps the workspace SDK handle. One Client is constructed at
// process start and injected into every component that needs it; handlers
// never mutate it.
type Client struct {
	meta MetadataAPI
	stmt StatementAPI

	defaultWarehouseID string
	queryTimeout       time.Duration

	log *zap.Logger
}

// New constructs a Client backed by the real Databricks workspace SDK.
func New(cfg *config.Config, log *zap.Logger) (*Client, error) {
	w, err := databricks.NewWorkspaceClient(&databricks.Config{
		Host:  cfg.DatabricksHost,
		Token: cfg.DatabricksToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create databricks workspace client: %w", err)
	}
	sdk := &sdkWorkspace{w: w}
	return NewWithAPIs(sdk, sdk, cfg.WarehouseID, cfg.QueryTimeout(), log), nil
}

// NewWithAPIs constructs a Client from explicit API implementations.
func NewWithAPIs(meta MetadataAPI, stmt StatementAPI, warehouseID string, queryTimeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		meta:               meta,
		stmt:               stmt,
		defaultWarehouseID: warehouseID,
		queryTimeout:       queryTimeout,
		log:                log,
	}
}

// ListCatalogs returns all catalogs visible in Unity Catalog.
func (c *Client) ListCatalogs(ctx context.Context) (*types.ListCatalogsResult, error) {
	infos, err := c.meta.ListCatalogs(ctx)
	if err != nil {
		return nil, types.NewToolError(types.ErrorKindRemoteCatalog, "failed to list catalogs: %v", err)
	}
	out := &types.ListCatalogsResult{Catalogs: make([]types.CatalogInfo, 0, len(infos))}
	for _, info := range infos {
		out.Catalogs = append(out.Catalogs, types.CatalogInfo{
			Name:      info.Name,
			Comment:   info.Comment,
			Owner:     info.Owner,
			CreatedAt: formatUnixMillis(info.CreatedAt),
		})
	}
	return out, nil
}

// ListSchemas returns all schemas in the given catalog.
func (c *Client) ListSchemas(ctx context.Context, catalogName string) (*types.ListSchemasResult, error) {
	infos, err := c.meta.ListSchemas(ctx, catalogName)
	if err != nil {
		return nil, types.NewToolError(
			types.ErrorKindRemoteCatalog, "failed to list schemas in catalog %s: %v", catalogName, err,
		)
	}
	out := &types.ListSchemasResult{Catalog: catalogName, Schemas: make([]types.SchemaInfo, 0, len(infos))}
	for _, info := range infos {
		out.Schemas = append(out.Schemas, types.SchemaInfo{
			Name:      info.Name,
			Comment:   info.Comment,
			Owner:     info.Owner,
			CreatedAt: formatUnixMillis(info.CreatedAt),
		})
	}
	return out, nil
}

// ListTables returns all tables in the given schema.
func (c *Client) ListTables(ctx context.Context, catalogName, schemaName string) (*types.ListTablesResult, error) {
	infos, err := c.meta.ListTables(ctx, catalogName, schemaName)
	if err != nil {
		return nil, types.NewToolError(
			types.ErrorKindRemoteCatalog,
			"failed to list tables in %s.%s: %v", catalogName, schemaName, err,
		)
	}
	out := &types.ListTablesResult{
		Catalog: catalogName,
		Schema:  schemaName,
		Tables:  make([]types.TableSummary, 0, len(infos)),
	}
	for _, info := range infos {
		out.Tables = append(out.Tables, types.TableSummary{
			Name:      info.Name,
			TableType: string(info.TableType),
			Comment:   info.Comment,
			Owner:     info.Owner,
		})
	}
	return out, nil
}

// GetTableInfo returns the detailed metadata of a single table, identified
// by its three-level name.
func (c *Client) GetTableInfo(ctx context.Context, catalogName, schemaName, tableName string) (*types.TableInfo, error) {
	fullName := fmt.Sprintf("%s.%s.%s", catalogName, schemaName, tableName)
	info, err := c.meta.GetTable(ctx, fullName)
	if err != nil {
		return nil, types.NewToolError(
			types.ErrorKindRemoteCatalog, "failed to get table %s: %v", fullName, err,
		)
	}

	columns := make([]types.ColumnInfo, 0, len(info.Columns))
	for _, col := range info.Columns {
		columns = append(columns, types.ColumnInfo{
			Name:     col.Name,
			TypeName: string(col.TypeName),
			TypeText: col.TypeText,
			Comment:  col.Comment,
			Nullable: col.Nullable,
			Position: col.Position,
		})
	}

	return &types.TableInfo{
		Name:             info.Name,
		CatalogName:      info.CatalogName,
		SchemaName:       info.SchemaName,
		TableType:        string(info.TableType),
		DataSourceFormat: string(info.DataSourceFormat),
		Columns:          columns,
		Owner:            info.Owner,
		Comment:          info.Comment,
		Properties:       info.Properties,
	}, nil
}

func formatUnixMillis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
