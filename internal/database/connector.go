package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbsmedya/nlquery/internal/dialect"
	"github.com/dbsmedya/nlquery/internal/types"
)

// Connector executes statements against one backend, each in its own
// read-only transaction that is always rolled back.
type Connector struct {
	db      *sql.DB
	target  dialect.Target
	maxRows int
}

// NewConnector wraps db. maxRows <= 0 disables in-memory truncation.
func NewConnector(db *sql.DB, target dialect.Target, maxRows int) *Connector {
	return &Connector{db: db, target: target, maxRows: maxRows}
}

// Execute runs query under ctx. Cancelling ctx aborts the query.
func (c *Connector) Execute(ctx context.Context, query string, args []any) (*types.Rows, error) {
	// go-ora has no read-only transaction option; Oracle gets the statement instead.
	opts := &sql.TxOptions{ReadOnly: c.target != dialect.Oracle}
	tx, err := c.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("begin read-only transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if c.target == dialect.Oracle {
		if _, err := tx.ExecContext(ctx, "SET TRANSACTION READ ONLY"); err != nil {
			return nil, fmt.Errorf("set transaction read only: %w", err)
		}
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return ScanRows(rows, c.maxRows)
}

// ScanRows reads at most maxRows rows, preserving column order. Truncated is
// set when more rows were available.
func ScanRows(rows *sql.Rows, maxRows int) (*types.Rows, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	out := &types.Rows{Columns: columns, Data: [][]any{}}
	for rows.Next() {
		if maxRows > 0 && len(out.Data) >= maxRows {
			out.Truncated = true
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range values {
			values[i] = types.NormalizeValue(v)
		}
		out.Data = append(out.Data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
