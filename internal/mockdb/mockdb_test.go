package mockdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/nlquery/internal/dialect"
	"github.com/dbsmedya/nlquery/internal/schema"
	"github.com/dbsmedya/nlquery/internal/synth"
	"github.com/dbsmedya/nlquery/internal/validator"
)

func openResponder(t *testing.T, maxRows int) *Responder {
	t.Helper()
	r, err := Open(context.Background(), Options{MaxRows: maxRows})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestGenerate_Shape(t *testing.T) {
	ds := Generate(DefaultSeed)

	require.Len(t, ds.Customers, 100)
	assert.GreaterOrEqual(t, len(ds.Transactions), 500)
	assert.LessOrEqual(t, len(ds.Transactions), 1500)

	holders := map[int64]int{}
	for _, l := range ds.Loans {
		holders[l.CustomerID]++
		assert.Contains(t, schema.LoanStatuses, l.Status)
		if l.Status == "Paid Off" {
			assert.Zero(t, l.OutstandingBalance)
		}
	}
	assert.Len(t, holders, 60)
	for _, n := range holders {
		assert.True(t, n >= 1 && n <= 3)
	}

	for _, c := range ds.Customers {
		assert.Contains(t, schema.CustomerSegments, c.Segment)
		assert.True(t, c.CreditScore >= 600 && c.CreditScore <= 850)
	}
	for _, tx := range ds.Transactions {
		assert.Contains(t, schema.TransactionStatuses, tx.Status)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	assert.Equal(t, Generate(7), Generate(7))
	assert.NotEqual(t, Generate(7).Customers, Generate(8).Customers)
}

func TestResponder_ExecuteAcrossDialects(t *testing.T) {
	r := openResponder(t, 1000)
	v := validator.New(validator.Policy{MaxRows: 1000})

	cand, err := synth.Synthesize("Show me the top 10 customers by total transaction amount", schema.Banking())
	require.NoError(t, err)
	verdict := v.Validate(cand.SQL)
	require.True(t, verdict.Accepted)

	var first [][]any
	for _, target := range dialect.All() {
		t.Run(target.String(), func(t *testing.T) {
			adapted, err := dialect.Adapt(verdict.NormalizedSQL, target)
			require.NoError(t, err)

			rows, err := r.Execute(context.Background(), adapted, cand.Args, target)
			require.NoError(t, err)
			assert.Equal(t, []string{"customer_id", "first_name", "last_name", "total_amount"}, rows.Columns)
			assert.Equal(t, 10, rows.Len())
			if first == nil {
				first = rows.Data
			}
			assert.Equal(t, first, rows.Data, "every dialect sees the same data")
		})
	}
}

func TestResponder_ThresholdArgs(t *testing.T) {
	r := openResponder(t, 1000)

	cand, err := synth.Synthesize("transactions over $5,000", schema.Banking())
	require.NoError(t, err)
	verdict := validator.Validate(cand.SQL)
	require.True(t, verdict.Accepted)

	adapted, err := dialect.Adapt(verdict.NormalizedSQL, dialect.Oracle)
	require.NoError(t, err)
	rows, err := r.Executor(dialect.Oracle).Execute(context.Background(), adapted, cand.Args)
	require.NoError(t, err)

	require.NotZero(t, rows.Len())
	amountIdx := -1
	for i, c := range rows.Columns {
		if c == "amount" {
			amountIdx = i
		}
	}
	require.GreaterOrEqual(t, amountIdx, 0)
	for _, row := range rows.Data {
		assert.Greater(t, row[amountIdx], 5000.0)
	}
}

func TestResponder_DefaultedLoans(t *testing.T) {
	r := openResponder(t, 1000)

	cand, err := synth.Synthesize("Show me customers with defaulted loans", schema.Banking())
	require.NoError(t, err)
	verdict := validator.Validate(cand.SQL)
	require.True(t, verdict.Accepted)

	rows, err := r.Execute(context.Background(), verdict.NormalizedSQL, nil, dialect.Postgres)
	require.NoError(t, err)
	for _, m := range rows.Maps() {
		assert.Equal(t, "Defaulted", m["status"])
	}
}

func TestResponder_ActiveLoans(t *testing.T) {
	r := openResponder(t, 1000)

	for _, question := range []string{"Show me active loans", "total debt of customers with active loans"} {
		t.Run(question, func(t *testing.T) {
			cand, err := synth.Synthesize(question, schema.Banking())
			require.NoError(t, err)
			require.Equal(t, "active_loans", cand.Rule)
			verdict := validator.Validate(cand.SQL)
			require.True(t, verdict.Accepted, "%v", verdict.Err())

			rows, err := r.Execute(context.Background(), verdict.NormalizedSQL, nil, dialect.Postgres)
			require.NoError(t, err)
			assert.NotZero(t, rows.Len())
			for _, m := range rows.Maps() {
				if status, ok := m["status"]; ok {
					assert.Equal(t, "Active", status)
				}
			}
		})
	}
}

func TestResponder_Truncates(t *testing.T) {
	r := openResponder(t, 5)

	rows, err := r.Execute(context.Background(), "SELECT * FROM transactions LIMIT 50", nil, dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, 5, rows.Len())
	assert.True(t, rows.Truncated)
}

func TestResponder_ReadOnly(t *testing.T) {
	r := openResponder(t, 10)

	_, err := r.Execute(context.Background(), "DELETE FROM customers", nil, dialect.Postgres)
	require.Error(t, err)

	rows, err := r.Execute(context.Background(), "SELECT COUNT(*) AS n FROM customers", nil, dialect.Postgres)
	require.NoError(t, err)
	assert.EqualValues(t, 100, rows.Data[0][0])
}

func TestResponder_IndependentInstances(t *testing.T) {
	a := openResponder(t, 10)
	b := openResponder(t, 10)

	require.NoError(t, a.Close())
	rows, err := b.Execute(context.Background(), "SELECT COUNT(*) AS n FROM loans", nil, dialect.MySQL)
	require.NoError(t, err)
	assert.NotZero(t, rows.Data[0][0])
}

func TestResponder_Cancelled(t *testing.T) {
	r := openResponder(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Execute(ctx, "SELECT * FROM customers LIMIT 1", nil, dialect.Postgres)
	assert.Error(t, err)
}
