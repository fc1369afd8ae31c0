package cmd

import (
	"errors"
	"fmt"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/nlquery/internal/dialect"
	"github.com/dbsmedya/nlquery/internal/validator"
)

// errRejected makes check exit non-zero after printing the verdict.
var errRejected = errors.New("query rejected")

var checkDB string

var checkCmd = &cobra.Command{
	Use:   "check <sql>",
	Short: "Validate a SQL statement without running it",
	Long: `Check runs the validator on a statement and prints the verdict.
Accepted statements are shown with the enforced row limit and, with --db,
adapted to that database type. Exits non-zero when the statement is rejected.

Example:
  nlquery check "SELECT * FROM customers"
  nlquery check --db oracle "SELECT * FROM loans LIMIT 5000"`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkDB, "db", "",
		"Also show the statement adapted to postgresql, mysql or oracle")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	var target dialect.Target
	if checkDB != "" {
		if target, err = dialect.ParseTarget(checkDB); err != nil {
			return err
		}
	}

	v := validator.New(validator.Policy{
		MaxRows:            cfg.Query.MaxRows,
		AllowSetOperations: cfg.Query.AllowSetOperations,
	})
	verdict := v.Validate(args[0])
	out := cmd.OutOrStdout()

	if !verdict.Accepted {
		_, _ = fmt.Fprintf(out, "%s %s\n", color.Red.Sprint("REJECTED"), verdict.Violation)
		return errRejected
	}

	_, _ = fmt.Fprintf(out, "%s %s\n", color.Green.Sprint("ACCEPTED"), verdict.NormalizedSQL)
	for _, c := range verdict.Corrections {
		_, _ = fmt.Fprintln(out, color.Yellow.Sprint("Note: "+c.Error()))
	}
	if target.Valid() {
		adapted, err := dialect.Adapt(verdict.NormalizedSQL, target)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "%s %s\n", color.Cyan.Sprint(target.String()+":"), adapted)
	}
	return nil
}
