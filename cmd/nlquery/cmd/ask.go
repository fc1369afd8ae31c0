package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gookit/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/nlquery/internal/logger"
	"github.com/dbsmedya/nlquery/internal/pipeline"
	"github.com/dbsmedya/nlquery/internal/types"
)

// maxCellWidth bounds table cells in terminal columns.
const maxCellWidth = 40

var (
	askDB     string
	askFormat string
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question and print the result",
	Long: `Ask runs a single question through the same pipeline as the HTTP API:
generate SQL, validate it, adapt it to the database type and execute it
(or answer from the built-in dataset when the database is not configured).

Example:
  nlquery ask "Show me the top 10 customers by total transaction amount"
  nlquery ask --db oracle "customers with defaulted loans"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askDB, "db", "",
		"Database type: postgresql, mysql or oracle (default from config)")
	askCmd.Flags().StringVarP(&askFormat, "format", "f", "table",
		"Output format: table or json")

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askFormat != "table" && askFormat != "json" {
		return fmt.Errorf("unknown format %q (want table or json)", askFormat)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(&cfg.Logging, cmd.ErrOrStderr())

	ctx := context.Background()
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.pipeline.Run(ctx, pipeline.Request{Question: args[0], Dialect: askDB})
	if err != nil {
		var perr *pipeline.Error
		if errors.As(err, &perr) {
			return errors.New(perr.PublicMessage())
		}
		return err
	}

	if askFormat == "json" {
		return renderAnswerJSON(cmd.OutOrStdout(), resp)
	}
	renderAnswer(cmd.OutOrStdout(), resp)
	return nil
}

func renderAnswer(w io.Writer, resp *pipeline.Response) {
	_, _ = fmt.Fprintf(w, "%s %s\n", color.Cyan.Sprint("SQL:"), resp.SQL)
	if resp.Explanation != "" {
		_, _ = fmt.Fprintf(w, "%s %s\n", color.Cyan.Sprint("Explanation:"), resp.Explanation)
	}
	source := string(resp.Source)
	if resp.Rule != "" {
		source += " (" + resp.Rule + ")"
	}
	backend := resp.Dialect.String()
	if resp.Mock {
		backend += ", built-in dataset"
	}
	_, _ = fmt.Fprintf(w, "%s %s | %s\n", color.Cyan.Sprint("Source:"), source, backend)
	for _, c := range resp.Corrections {
		_, _ = fmt.Fprintln(w, color.Yellow.Sprint("Note: "+c))
	}
	_, _ = fmt.Fprintln(w)

	renderRows(w, resp.Result)
}

func renderRows(w io.Writer, result *types.QueryResult) {
	if result == nil || len(result.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(result.Columns))
	for i, col := range result.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, r := range result.Rows {
		row := make(table.Row, len(result.Columns))
		for i, col := range result.Columns {
			row[i] = runewidth.Truncate(types.FormatValue(r[col]), maxCellWidth, "…")
		}
		t.AppendRow(row)
	}
	t.Render()

	summary := fmt.Sprintf("(%d rows, %.2f ms)", len(result.Rows), result.ExecutionTimeMS)
	if result.Truncated {
		summary += " " + color.Yellow.Sprint("truncated at the row limit")
	}
	_, _ = fmt.Fprintln(w, summary)
}

type askJSON struct {
	SQL             string           `json:"sql"`
	Explanation     string           `json:"explanation"`
	DBType          string           `json:"db_type"`
	Source          string           `json:"source"`
	Columns         []string         `json:"columns"`
	Result          []map[string]any `json:"result"`
	Truncated       bool             `json:"truncated"`
	ExecutionTimeMS float64          `json:"execution_time_ms"`
}

func renderAnswerJSON(w io.Writer, resp *pipeline.Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(askJSON{
		SQL:             resp.SQL,
		Explanation:     resp.Explanation,
		DBType:          resp.Dialect.String(),
		Source:          string(resp.Source),
		Columns:         resp.Result.Columns,
		Result:          resp.Result.Rows,
		Truncated:       resp.Result.Truncated,
		ExecutionTimeMS: resp.Result.ExecutionTimeMS,
	})
}
