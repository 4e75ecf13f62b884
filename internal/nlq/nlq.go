// Package nlq converts natural language questions into SQL by forwarding a
// prompt (question + table schema) to the Anthropic Messages API and
// executing the SQL it replies with. No local parsing or validation of the
// generated SQL happens here: malformed SQL is rejected by the warehouse.
package nlq

import (
	"context"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/benniehaelen/databricks-mcp-server/pkg/types"
)

// systemInstruction pins the model to replying with bare SQL.
const systemInstruction = "You convert natural language questions into SQL queries for Databricks Delta Lake. " +
	"Respond with a single SQL statement and nothing else: no explanation, no markdown formatting."

const maxCompletionTokens = 1024

// Completer produces a text completion for a prompt. The production
// implementation forwards to the Anthropic Messages API.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// TableGetter fetches table metadata used to build the schema description.
type TableGetter interface {
	GetTableInfo(ctx context.Context, catalogName, schemaName, tableName string) (*types.TableInfo, error)
}

// SQLExecutor runs the generated SQL.
type SQLExecutor interface {
	ExecuteSQL(ctx context.Context, query, warehouseID string) (*types.QueryResult, error)
}

type anthropicCompleter struct {
	client anthropic.Client
	model  anthropic.Model
}

func (a *anthropicCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: maxCompletionTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}
	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", nil
}

// Converter implements the query_natural_language operation.
type Converter struct {
	completer Completer
	tables    TableGetter
	executor  SQLExecutor
	log       *zap.Logger
}

// New constructs a Converter backed by the Anthropic API.
func New(apiKey, model string, tables TableGetter, executor SQLExecutor, log *zap.Logger) *Converter {
	completer := &anthropicCompleter{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
	return NewWithCompleter(completer, tables, executor, log)
}

// NewWithCompleter constructs a Converter with an explicit Completer.
func NewWithCompleter(completer Completer, tables TableGetter, executor SQLExecutor, log *zap.Logger) *Converter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Converter{
		completer: completer,
		tables:    tables,
		executor:  executor,
		log:       log,
	}
}

// Query converts a natural language question about a table into SQL,
// executes it, and returns both the generated SQL and the query result.
// A language model failure or an unextractable reply surfaces as
// nl_conversion_error before any execution is attempted.
func (c *Converter) Query(ctx context.Context, question, catalogName, schemaName, tableName, warehouseID string) (*types.NLQueryResult, error) {
	info, err := c.tables.GetTableInfo(ctx, catalogName, schemaName, tableName)
	if err != nil {
		return nil, err
	}

	prompt := buildPrompt(info, question)

	reply, err := c.completer.Complete(ctx, systemInstruction, prompt)
	if err != nil {
		return nil, types.NewToolError(types.ErrorKindNLConversion, "language model request failed: %v", err)
	}

	sqlText := ExtractSQL(reply)
	if sqlText == "" {
		return nil, types.NewToolError(types.ErrorKindNLConversion, "no SQL extracted from language model reply")
	}

	c.log.Debug("generated SQL from natural language question", zap.String("sql", sqlText))

	result, err := c.executor.ExecuteSQL(ctx, sqlText, warehouseID)
	if err != nil {
		return nil, err
	}

	return &types.NLQueryResult{SQL: sqlText, Response: *result}, nil
}

// buildPrompt embeds the question and a schema description of the target
// table into a single prompt.
func buildPrompt(info *types.TableInfo, question string) string {
	var schema strings.Builder
	for _, col := range info.Columns {
		typ := col.TypeText
		if typ == "" {
			typ = col.TypeName
		}
		if typ == "" {
			typ = "unknown"
		}
		comment := col.Comment
		if comment == "" {
			comment = "No description"
		}
		fmt.Fprintf(&schema, "- %s (%s): %s\n", col.Name, typ, comment)
	}

	tableComment := info.Comment
	if tableComment == "" {
		tableComment = "No description"
	}

	return fmt.Sprintf(
		"Convert this natural language question to a SQL query.\n\n"+
			"Table: %s.%s.%s\nDescription: %s\n\nSchema:\n%s\nQuestion: %s",
		info.CatalogName, info.SchemaName, info.Name, tableComment, schema.String(), question,
	)
}

// ExtractSQL pulls the SQL statement out of a model reply. If the reply
// contains a fenced code block, only the content inside the first fence is
// used and any surrounding prose is discarded; otherwise the trimmed reply
// is returned as-is.
func ExtractSQL(reply string) string {
	reply = strings.TrimSpace(reply)

	start := strings.Index(reply, "```")
	if start == -1 {
		return reply
	}

	rest := reply[start+3:]
	// The fence may carry a language tag, e.g. ```sql
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine == "" || isFenceTag(firstLine) {
			rest = rest[nl+1:]
		}
	}

	if end := strings.Index(rest, "```"); end != -1 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func isFenceTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
