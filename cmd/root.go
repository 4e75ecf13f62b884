package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/benniehaelen/databricks-mcp-server/client"
	"github.com/benniehaelen/databricks-mcp-server/pkg/version"
)

// subCommandGroup buckets subcommands in the help output so the common
// workflow commands show up before the administrative ones.
type subCommandGroup string

const (
	subCommandGroupBasic    subCommandGroup = "basic"
	subCommandGroupAdvanced subCommandGroup = "advanced"
)

const ServerURLEnvVar = "DATABRICKS_MCP_SERVER_URL"

const asciiArt = `
     _       _        _          _      _
  __| | __ _| |_ __ _| |__  _ __(_) ___| | _____     _ __ ___   ___ _ __
 / _` + "`" + ` |/ _` + "`" + ` | __/ _` + "`" + ` | '_ \| '__| |/ __| |/ / __|   | '_ ` + "`" + ` _ \ / __| '_ \
| (_| | (_| | || (_| | |_) | |  | | (__|   <\__ \   | | | | | | (__| |_) |
 \__,_|\__,_|\__\__,_|_.__/|_|  |_|\___|_|\_\___/   |_| |_| |_|\___| .__/
                                                                   |_|
`

var rootCmdServerURL string

var rootCmd = &cobra.Command{
	Use:     "databricks-mcp-server",
	Short:   "MCP server for Databricks Unity Catalog",
	Version: version.GetVersion(),
	Long: "databricks-mcp-server exposes Databricks Unity Catalog metadata, SQL execution,\n" +
		"natural language querying and chart rendering as MCP tools, resources and prompts.\n\n" +
		"Run `start` to serve MCP clients over stdio or HTTP.\n" +
		"The other subcommands are a thin CLI client: they talk to a running server over\n" +
		"streamable HTTP when --server (or " + ServerURLEnvVar + ") is set, and otherwise\n" +
		"spawn a private stdio server for the duration of the command.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&rootCmdServerURL,
		"server",
		"",
		fmt.Sprintf("streamable HTTP URL of a running server (overrides env var %s)", ServerURLEnvVar),
	)
	rootCmd.SetHelpFunc(customHelp)
}

// Execute runs the root command. It is the only entrypoint main should need.
func Execute() error {
	return rootCmd.Execute()
}

// connect opens an MCP session for a CLI subcommand. It is a variable so
// tests can substitute an in-process session.
var connect = connectSession

// connectSession dials a running server over streamable HTTP when a server
// URL is configured; otherwise it re-executes its own binary as a stdio
// server child so every subcommand works without a long-running daemon.
func connectSession(ctx context.Context) (*client.Client, error) {
	url := rootCmdServerURL
	if url == "" {
		url = os.Getenv(ServerURLEnvVar)
	}
	if url != "" {
		return client.ConnectStreamableHTTP(ctx, url)
	}

	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate own binary for stdio server: %w", err)
	}
	return client.ConnectStdio(ctx, self, os.Environ(), "start", "--transport", "stdio")
}

// customHelp prints subcommands grouped by their "group" annotation and
// ordered by their "order" annotation within each group.
func customHelp(cmd *cobra.Command, args []string) {
	if cmd != rootCmd {
		cmd.Println(cmd.Long)
		cmd.Println()
		cmd.Println(cmd.UsageString())
		return
	}

	cmd.Println(cmd.Long)
	cmd.Println()
	cmd.Printf("Usage:\n  %s [command]\n\n", cmd.Use)

	groups := map[subCommandGroup][]*cobra.Command{}
	for _, sub := range cmd.Commands() {
		if sub.Hidden || !sub.IsAvailableCommand() {
			continue
		}
		g := subCommandGroup(sub.Annotations["group"])
		if g == "" {
			g = subCommandGroupAdvanced
		}
		groups[g] = append(groups[g], sub)
	}
	for _, cmds := range groups {
		sort.Slice(cmds, func(i, j int) bool {
			oi, _ := strconv.Atoi(cmds[i].Annotations["order"])
			oj, _ := strconv.Atoi(cmds[j].Annotations["order"])
			return oi < oj
		})
	}

	printGroup := func(title string, cmds []*cobra.Command) {
		if len(cmds) == 0 {
			return
		}
		cmd.Printf("%s:\n", title)
		for _, sub := range cmds {
			cmd.Printf("  %-24s %s\n", sub.Name(), sub.Short)
		}
		cmd.Println()
	}
	printGroup("Common Commands", groups[subCommandGroupBasic])
	printGroup("Other Commands", groups[subCommandGroupAdvanced])

	cmd.Println("Flags:")
	cmd.Println(cmd.Flags().FlagUsages())
	cmd.Printf("Use \"%s [command] --help\" for more information about a command.\n", cmd.Use)
}
