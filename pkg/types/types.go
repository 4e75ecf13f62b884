// Package types contains the request/response shapes exchanged between the
// Databricks MCP server, its clients, and the CLI. Everything here is
// transient: nothing is persisted by this system.
package types

// CatalogInfo is a metadata snapshot of a Unity Catalog catalog.
type CatalogInfo struct {
	Name      string `json:"name"`
	Comment   string `json:"comment,omitempty"`
	Owner     string `json:"owner,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// SchemaInfo is a metadata snapshot of a schema within a catalog.
type SchemaInfo struct {
	Name      string `json:"name"`
	Comment   string `json:"comment,omitempty"`
	Owner     string `json:"owner,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// TableSummary is the short form of a table returned by list_tables.
type TableSummary struct {
	Name      string `json:"name"`
	TableType string `json:"table_type,omitempty"`
	Comment   string `json:"comment,omitempty"`
	Owner     string `json:"owner,omitempty"`
}

// ColumnInfo describes a single column of a Unity Catalog table.
type ColumnInfo struct {
	Name     string `json:"name"`
	TypeName string `json:"type_name,omitempty"`
	TypeText string `json:"type_text,omitempty"`
	Comment  string `json:"comment,omitempty"`
	Nullable bool   `json:"nullable"`
	Position int    `json:"position"`
}

// TableInfo is the detailed form of a table returned by get_table_info.
type TableInfo struct {
	Name             string            `json:"name"`
	CatalogName      string            `json:"catalog_name"`
	SchemaName       string            `json:"schema_name"`
	TableType        string            `json:"table_type,omitempty"`
	DataSourceFormat string            `json:"data_source_format,omitempty"`
	Columns          []ColumnInfo      `json:"columns"`
	Owner            string            `json:"owner,omitempty"`
	Comment          string            `json:"comment,omitempty"`
	Properties       map[string]string `json:"properties,omitempty"`
}

// ListCatalogsResult is the payload returned by the list_catalogs tool and
// the databricks://catalogs resource.
type ListCatalogsResult struct {
	Catalogs []CatalogInfo `json:"catalogs"`
}

// ListSchemasResult is the payload returned by the list_schemas tool and
// the databricks://catalog/{name} resource.
type ListSchemasResult struct {
	Catalog string       `json:"catalog"`
	Schemas []SchemaInfo `json:"schemas"`
}

// ListTablesResult is the payload returned by the list_tables tool.
type ListTablesResult struct {
	Catalog string         `json:"catalog"`
	Schema  string         `json:"schema"`
	Tables  []TableSummary `json:"tables"`
}

// QueryResult is the outcome of a single SQL statement execution.
// Rows are row-oriented: each entry maps the column name to the value
// reported by the warehouse. Columns preserves the statement's declared
// column order, which the row maps cannot.
type QueryResult struct {
	Status   string           `json:"status"`
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// NLQueryResult bundles the SQL generated from a natural language question
// with the result of executing it.
type NLQueryResult struct {
	SQL      string      `json:"sql"`
	Response QueryResult `json:"response"`
}

// ChartResult is the output of the create_chart tool. ImageData is the
// base64 encoding of Image; both refer to the same PNG bytes.
type ChartResult struct {
	ChartType string `json:"chart_type"`
	ImageData string `json:"image_data"`
	MimeType  string `json:"mime_type"`
	XColumn   string `json:"x_column"`
	YColumn   string `json:"y_column"`
	Title     string `json:"title,omitempty"`

	Image []byte `json:"-"`
}
