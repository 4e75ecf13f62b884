package main

import (
	"os"

	"github.com/benniehaelen/databricks-mcp-server/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
