// Package mockdb serves queries from a deterministic in-memory banking
// dataset when no live database is available. The dataset lives in SQLite,
// its schema is created by embedded goose migrations, and queries run on a
// read-only connection pool.
package mockdb

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/dbsmedya/nlquery/internal/database"
	"github.com/dbsmedya/nlquery/internal/dialect"
	"github.com/dbsmedya/nlquery/internal/logger"
	"github.com/dbsmedya/nlquery/internal/types"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its settings in package globals.
var gooseMu sync.Mutex

// Options configures a Responder.
type Options struct {
	Seed    int64
	MaxRows int
	Logger  *logger.Logger
}

// Responder executes validated SQL against the mock dataset.
type Responder struct {
	// writer holds the in-memory database open and is used only for seeding.
	writer  *sql.DB
	reader  *sql.DB
	maxRows int
	logger  *logger.Logger
}

// Open creates, migrates and seeds a private in-memory database.
func Open(ctx context.Context, opts Options) (*Responder, error) {
	if opts.Seed == 0 {
		opts.Seed = DefaultSeed
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}

	name := "file:nlquery-mock-" + uuid.NewString() + "?mode=memory&cache=shared"
	writer, err := sql.Open("sqlite", name)
	if err != nil {
		return nil, fmt.Errorf("open mock database: %w", err)
	}
	writer.SetMaxOpenConns(1)
	writer.SetConnMaxLifetime(0)

	if err := migrate(writer); err != nil {
		writer.Close()
		return nil, err
	}
	ds := Generate(opts.Seed)
	if err := seed(ctx, writer, ds); err != nil {
		writer.Close()
		return nil, err
	}

	reader, err := sql.Open("sqlite", name+"&_pragma=query_only(1)")
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open mock reader: %w", err)
	}
	if err := reader.PingContext(ctx); err != nil {
		reader.Close()
		writer.Close()
		return nil, fmt.Errorf("ping mock reader: %w", err)
	}

	opts.Logger.Debugw("Mock dataset ready",
		"customers", len(ds.Customers),
		"transactions", len(ds.Transactions),
		"loans", len(ds.Loans),
	)
	return &Responder{writer: writer, reader: reader, maxRows: opts.MaxRows, logger: opts.Logger}, nil
}

// migrate runs the embedded migrations.
func migrate(db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func seed(ctx context.Context, db *sql.DB, ds *Dataset) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertAll(ctx, tx,
		`INSERT INTO customers VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(ds.Customers), func(i int) []any {
			c := ds.Customers[i]
			return []any{c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.City, c.State,
				c.AccountType, c.Segment, c.CreditScore, c.SignupDate, c.AccountBalance, c.Active}
		}); err != nil {
		return fmt.Errorf("seed customers: %w", err)
	}
	if err := insertAll(ctx, tx,
		`INSERT INTO transactions VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(ds.Transactions), func(i int) []any {
			t := ds.Transactions[i]
			return []any{t.ID, t.CustomerID, t.Type, t.Category, t.Amount, t.Currency, t.Date,
				t.Time, t.Status, t.Merchant, t.Location, t.Description}
		}); err != nil {
		return fmt.Errorf("seed transactions: %w", err)
	}
	if err := insertAll(ctx, tx,
		`INSERT INTO loans VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(ds.Loans), func(i int) []any {
			l := ds.Loans[i]
			return []any{l.ID, l.CustomerID, l.Type, l.PrincipalAmount, l.OutstandingBalance,
				l.InterestRate, l.TermMonths, l.MonthlyPayment, l.StartDate, l.Status, l.CreditScoreAtApproval}
		}); err != nil {
		return fmt.Errorf("seed loans: %w", err)
	}
	return tx.Commit()
}

func insertAll(ctx context.Context, tx *sql.Tx, stmt string, n int, row func(int) []any) error {
	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return err
	}
	defer prepared.Close()
	for i := 0; i < n; i++ {
		if _, err := prepared.ExecContext(ctx, row(i)...); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs a statement already validated and adapted for target. It is
// re-adapted to SQLite's LIMIT and ? forms first, so every dialect's output
// runs unchanged otherwise.
func (r *Responder) Execute(ctx context.Context, query string, args []any, target dialect.Target) (*types.Rows, error) {
	native, err := dialect.Adapt(query, dialect.MySQL)
	if err != nil {
		return nil, fmt.Errorf("mock: %w", err)
	}
	r.logger.WithDialect(target.String()).Debugw("Executing against mock dataset", "sql", native)

	rows, err := r.reader.QueryContext(ctx, native, args...)
	if err != nil {
		return nil, fmt.Errorf("mock query: %w", err)
	}
	defer rows.Close()
	return database.ScanRows(rows, r.maxRows)
}

// Executor binds the responder to target so it satisfies types.Executor.
func (r *Responder) Executor(target dialect.Target) types.Executor {
	return targetExecutor{r: r, target: target}
}

type targetExecutor struct {
	r      *Responder
	target dialect.Target
}

func (e targetExecutor) Execute(ctx context.Context, query string, args []any) (*types.Rows, error) {
	return e.r.Execute(ctx, query, args, e.target)
}

// Close releases the database. The data is gone afterwards.
func (r *Responder) Close() error {
	rerr := r.reader.Close()
	werr := r.writer.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}
