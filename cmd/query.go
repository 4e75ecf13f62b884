package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benniehaelen/databricks-mcp-server/pkg/types"
)

var (
	queryCmdWarehouseID string

	askCmdCatalog     string
	askCmdSchema      string
	askCmdTable       string
	askCmdWarehouseID string
)

var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Execute a SQL statement on a warehouse",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "6",
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Query a table with a natural language question",
	Long: "Converts a natural language question about a table into SQL, executes it\n" +
		"and prints both the generated statement and its results.\n" +
		"Requires the server to be configured with an Anthropic API key.",
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "7",
	},
}

func init() {
	queryCmd.Flags().StringVar(
		&queryCmdWarehouseID,
		"warehouse",
		"",
		"SQL warehouse ID (uses the server's configured default if not provided)",
	)

	askCmd.Flags().StringVar(&askCmdCatalog, "catalog", "", "catalog containing the table")
	askCmd.Flags().StringVar(&askCmdSchema, "schema", "", "schema containing the table")
	askCmd.Flags().StringVar(&askCmdTable, "table", "", "table the question is about")
	askCmd.Flags().StringVar(
		&askCmdWarehouseID,
		"warehouse",
		"",
		"SQL warehouse ID (uses the server's configured default if not provided)",
	)
	_ = askCmd.MarkFlagRequired("catalog")
	_ = askCmd.MarkFlagRequired("schema")
	_ = askCmd.MarkFlagRequired("table")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(askCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	c, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	result, err := c.ExecuteSQL(cmd.Context(), args[0], queryCmdWarehouseID)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	printQueryResult(cmd, result)
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	c, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	result, err := c.QueryNaturalLanguage(
		cmd.Context(), args[0], askCmdCatalog, askCmdSchema, askCmdTable, askCmdWarehouseID,
	)
	if err != nil {
		return fmt.Errorf("natural language query failed: %w", err)
	}

	cmd.Println("Generated SQL:")
	cmd.Println(result.SQL)
	cmd.Println()
	printQueryResult(cmd, &result.Response)
	return nil
}

// printQueryResult renders rows in column order with one pipe as separator,
// which keeps the output greppable without pulling in a table renderer.
func printQueryResult(cmd *cobra.Command, result *types.QueryResult) {
	if result.RowCount == 0 {
		cmd.Println("Query returned no rows.")
		return
	}

	cmd.Println(strings.Join(result.Columns, " | "))
	for _, row := range result.Rows {
		values := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			values[i] = fmt.Sprintf("%v", row[col])
		}
		cmd.Println(strings.Join(values, " | "))
	}
	cmd.Printf("\n%d row(s)\n", result.RowCount)
}
