package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dbsmedya/nlquery/internal/schema"
)

var schemaFormat string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the schema questions are answered from",
	Long: `Schema prints the table catalog. The text format is the listing sent
to the language model.

Example:
  nlquery schema --format markdown`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

func init() {
	schemaCmd.Flags().StringVarP(&schemaFormat, "format", "f", "text",
		"Output format: text or markdown")

	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, args []string) error {
	f, err := schema.NewFormatter(schemaFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return f.Format(schema.Banking())
}
