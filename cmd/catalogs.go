package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var listCatalogsCmd = &cobra.Command{
	Use:   "catalogs",
	Short: "List the Unity Catalog catalogs in the workspace",
	Args:  cobra.NoArgs,
	RunE:  runListCatalogs,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "2",
	},
}

var listSchemasCmd = &cobra.Command{
	Use:   "schemas <catalog>",
	Short: "List the schemas in a catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runListSchemas,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "3",
	},
}

var listTablesCmd = &cobra.Command{
	Use:   "tables <catalog> <schema>",
	Short: "List the tables in a schema",
	Args:  cobra.ExactArgs(2),
	RunE:  runListTables,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "4",
	},
}

var describeTableCmd = &cobra.Command{
	Use:   "describe <catalog> <schema> <table>",
	Short: "Show the full metadata record for a table",
	Args:  cobra.ExactArgs(3),
	RunE:  runDescribeTable,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "5",
	},
}

func init() {
	rootCmd.AddCommand(listCatalogsCmd)
	rootCmd.AddCommand(listSchemasCmd)
	rootCmd.AddCommand(listTablesCmd)
	rootCmd.AddCommand(describeTableCmd)
}

func runListCatalogs(cmd *cobra.Command, args []string) error {
	c, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	result, err := c.ListCatalogs(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list catalogs: %w", err)
	}
	if len(result.Catalogs) == 0 {
		cmd.Println("No catalogs are visible to the configured principal.")
		return nil
	}
	for _, cat := range result.Catalogs {
		if cat.Comment != "" {
			cmd.Printf("%s: %s\n", cat.Name, cat.Comment)
		} else {
			cmd.Println(cat.Name)
		}
	}
	return nil
}

func runListSchemas(cmd *cobra.Command, args []string) error {
	c, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	result, err := c.ListSchemas(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to list schemas in catalog '%s': %w", args[0], err)
	}
	if len(result.Schemas) == 0 {
		cmd.Printf("Catalog '%s' contains no schemas.\n", args[0])
		return nil
	}
	for _, s := range result.Schemas {
		if s.Comment != "" {
			cmd.Printf("%s: %s\n", s.Name, s.Comment)
		} else {
			cmd.Println(s.Name)
		}
	}
	return nil
}

func runListTables(cmd *cobra.Command, args []string) error {
	c, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	result, err := c.ListTables(cmd.Context(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to list tables in '%s.%s': %w", args[0], args[1], err)
	}
	if len(result.Tables) == 0 {
		cmd.Printf("Schema '%s.%s' contains no tables.\n", args[0], args[1])
		return nil
	}
	for _, t := range result.Tables {
		cmd.Printf("%s (%s)\n", t.Name, t.TableType)
	}
	return nil
}

func runDescribeTable(cmd *cobra.Command, args []string) error {
	c, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	info, err := c.GetTableInfo(cmd.Context(), args[0], args[1], args[2])
	if err != nil {
		return fmt.Errorf("failed to describe table '%s.%s.%s': %w", args[0], args[1], args[2], err)
	}

	j, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render table info: %w", err)
	}
	cmd.Println(string(j))
	return nil
}
