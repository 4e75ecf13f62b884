package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/benniehaelen/databricks-mcp-server/client"
)

// chartFs is the filesystem the chart command writes PNGs to. Tests swap in
// an in-memory filesystem.
var chartFs = afero.NewOsFs()

var (
	chartCmdType        string
	chartCmdXColumn     string
	chartCmdYColumn     string
	chartCmdTitle       string
	chartCmdOutput      string
	chartCmdWarehouseID string
)

var chartCmd = &cobra.Command{
	Use:   "chart <sql>",
	Short: "Execute a SQL query and render its results as a PNG chart",
	Args:  cobra.ExactArgs(1),
	RunE:  runChart,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "8",
	},
}

func init() {
	chartCmd.Flags().StringVar(
		&chartCmdType,
		"type",
		"bar",
		"chart type ('bar' | 'line' | 'scatter' | 'pie' | 'histogram' | 'box')",
	)
	chartCmd.Flags().StringVar(&chartCmdXColumn, "x", "", "column for the x axis / labels (default: first column)")
	chartCmd.Flags().StringVar(&chartCmdYColumn, "y", "", "column for the y axis / values (default: second column)")
	chartCmd.Flags().StringVar(&chartCmdTitle, "title", "", "chart title")
	chartCmd.Flags().StringVarP(&chartCmdOutput, "output", "o", "chart.png", "file to write the PNG to")
	chartCmd.Flags().StringVar(
		&chartCmdWarehouseID,
		"warehouse",
		"",
		"SQL warehouse ID (uses the server's configured default if not provided)",
	)

	rootCmd.AddCommand(chartCmd)
}

func runChart(cmd *cobra.Command, args []string) error {
	c, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	result, err := c.CreateChart(cmd.Context(), client.ChartRequest{
		Query:       args[0],
		ChartType:   chartCmdType,
		XColumn:     chartCmdXColumn,
		YColumn:     chartCmdYColumn,
		Title:       chartCmdTitle,
		WarehouseID: chartCmdWarehouseID,
	})
	if err != nil {
		return fmt.Errorf("failed to create chart: %w", err)
	}
	if len(result.Image) == 0 {
		return fmt.Errorf("server returned no image data")
	}

	if err := afero.WriteFile(chartFs, chartCmdOutput, result.Image, 0644); err != nil {
		return fmt.Errorf("failed to write chart to '%s': %w", chartCmdOutput, err)
	}

	cmd.Printf("Wrote %s chart (%s, %s vs %s) to %s\n",
		result.ChartType, result.MimeType, result.XColumn, result.YColumn, chartCmdOutput,
	)
	return nil
}
