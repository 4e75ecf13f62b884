package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/benniehaelen/databricks-mcp-server/pkg/types"
)

// Prompt template names exposed by the dispatch layer.
const (
	PromptQueryTable     = "query-table"
	PromptAnalyzeData    = "analyze-data"
	PromptExploreCatalog = "explore-catalog"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(
		mcp.NewPrompt(PromptQueryTable,
			mcp.WithPromptDescription("Generate a SQL query for a Unity Catalog table"),
			mcp.WithArgument("catalog", mcp.ArgumentDescription("Catalog name"), mcp.RequiredArgument()),
			mcp.WithArgument("schema", mcp.ArgumentDescription("Schema name"), mcp.RequiredArgument()),
			mcp.WithArgument("table", mcp.ArgumentDescription("Table name"), mcp.RequiredArgument()),
			mcp.WithArgument("question", mcp.ArgumentDescription("Natural language question"), mcp.RequiredArgument()),
		),
		s.handleGetPrompt(PromptQueryTable),
	)

	s.mcp.AddPrompt(
		mcp.NewPrompt(PromptAnalyzeData,
			mcp.WithPromptDescription("Analyze data from a query result"),
			mcp.WithArgument("data_description", mcp.ArgumentDescription("Description of the data"), mcp.RequiredArgument()),
		),
		s.handleGetPrompt(PromptAnalyzeData),
	)

	s.mcp.AddPrompt(
		mcp.NewPrompt(PromptExploreCatalog,
			mcp.WithPromptDescription("Explore Unity Catalog structure"),
			mcp.WithArgument("catalog", mcp.ArgumentDescription("Catalog name to explore")),
		),
		s.handleGetPrompt(PromptExploreCatalog),
	)
}

func (s *Server) handleGetPrompt(name string) func(context.Context, mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return func(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return s.GetPrompt(name, req.Params.Arguments)
	}
}

// GetPrompt renders the named prompt template with the given arguments.
// Missing required substitution keys fail with invalid_arguments; an
// unknown name fails with unknown_prompt.
func (s *Server) GetPrompt(name string, args map[string]string) (*mcp.GetPromptResult, error) {
	switch name {
	case PromptQueryTable:
		return s.queryTablePrompt(args)
	case PromptAnalyzeData:
		return s.analyzeDataPrompt(args)
	case PromptExploreCatalog:
		return s.exploreCatalogPrompt(args)
	default:
		return nil, types.NewToolError(types.ErrorKindUnknownPrompt, "unknown prompt: %s", name)
	}
}

// requireArgs checks that every named substitution key is present and
// non-empty, reporting the first missing one.
func requireArgs(args map[string]string, keys ...string) error {
	for _, key := range keys {
		if args[key] == "" {
			return types.NewInvalidArguments(key, nil)
		}
	}
	return nil
}

func (s *Server) queryTablePrompt(args map[string]string) (*mcp.GetPromptResult, error) {
	if err := requireArgs(args, "catalog", "schema", "table", "question"); err != nil {
		return nil, err
	}

	fullName := fmt.Sprintf("%s.%s.%s", args["catalog"], args["schema"], args["table"])
	text := fmt.Sprintf(
		"Generate a SQL query to answer the following question about the table %s:\n\n"+
			"Question: %s\n\n"+
			"Please provide a valid SQL query that can be executed on Databricks Delta Lake.",
		fullName, args["question"],
	)

	return mcp.NewGetPromptResult(
		fmt.Sprintf("Generate SQL query for %s", fullName),
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
		},
	), nil
}

func (s *Server) analyzeDataPrompt(args map[string]string) (*mcp.GetPromptResult, error) {
	if err := requireArgs(args, "data_description"); err != nil {
		return nil, err
	}

	text := fmt.Sprintf(
		"Analyze the following data and provide insights:\n\n%s\n\n"+
			"Please provide:\n"+
			"1. Key findings\n"+
			"2. Notable patterns or trends\n"+
			"3. Recommendations for further analysis",
		args["data_description"],
	)

	return mcp.NewGetPromptResult(
		"Analyze data from query results",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
		},
	), nil
}

func (s *Server) exploreCatalogPrompt(args map[string]string) (*mcp.GetPromptResult, error) {
	text := "Explore the Unity Catalog structure"
	if catalogName := args["catalog"]; catalogName != "" {
		text += " for catalog: " + catalogName
	}

	return mcp.NewGetPromptResult(
		"Explore Unity Catalog",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
		},
	), nil
}
