package server

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/benniehaelen/databricks-mcp-server/pkg/types"
)

// Resource URI patterns recognized by the dispatch layer.
const (
	ResourceCatalogs      = "databricks://catalogs"
	resourceCatalogPrefix = "databricks://catalog/"
	resourceTablePrefix   = "databricks://table/"
)

func (s *Server) registerResources() {
	s.mcp.AddResource(
		mcp.NewResource(
			ResourceCatalogs,
			"Unity Catalog - Catalogs",
			mcp.WithResourceDescription("List of all catalogs in Unity Catalog"),
			mcp.WithMIMEType("application/json"),
		),
		s.handleReadResource,
	)

	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			resourceCatalogPrefix+"{catalog}",
			"Catalog Schemas",
			mcp.WithTemplateDescription("Get schemas for any catalog by name"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleReadResource,
	)

	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			resourceTablePrefix+"{catalog}/{schema}/{table}",
			"Table Information",
			mcp.WithTemplateDescription("Get detailed information about any table"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleReadResource,
	)
}

func (s *Server) handleReadResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return s.ReadResource(ctx, req.Params.URI)
}

// ReadResource resolves a resource URI against the three known patterns and
// returns its content as a JSON snapshot. URIs matching none of the
// patterns fail with unknown_resource.
func (s *Server) ReadResource(ctx context.Context, uri string) ([]mcp.ResourceContents, error) {
	switch {
	case uri == ResourceCatalogs:
		out, err := s.workspace.ListCatalogs(ctx)
		if err != nil {
			return nil, err
		}
		return jsonResourceContents(uri, out)

	case strings.HasPrefix(uri, resourceCatalogPrefix):
		name := strings.TrimPrefix(uri, resourceCatalogPrefix)
		if name == "" || strings.Contains(name, "/") {
			return nil, types.NewUnknownResource(uri)
		}
		out, err := s.workspace.ListSchemas(ctx, name)
		if err != nil {
			return nil, err
		}
		return jsonResourceContents(uri, out)

	case strings.HasPrefix(uri, resourceTablePrefix):
		parts := strings.Split(strings.TrimPrefix(uri, resourceTablePrefix), "/")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return nil, types.NewUnknownResource(uri)
		}
		out, err := s.workspace.GetTableInfo(ctx, parts[0], parts[1], parts[2])
		if err != nil {
			return nil, err
		}
		return jsonResourceContents(uri, out)

	default:
		return nil, types.NewUnknownResource(uri)
	}
}

func jsonResourceContents(uri string, v any) ([]mcp.ResourceContents, error) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, types.NewToolError(types.ErrorKindInternal, "failed to serialize resource: %v", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		},
	}, nil
}
