package synth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/nlquery/internal/schema"
	"github.com/dbsmedya/nlquery/internal/types"
)

func TestRuleOrder(t *testing.T) {
	assert.Equal(t, []string{
		"balance_ranking",
		"credit_ranking",
		"ranking",
		"loan_risk",
		"active_loans",
		"transaction_status",
		"amount_threshold",
		"recent",
		"segment_filter",
		"default",
	}, New().RuleNames())
}

func TestSynthesize_TopCustomersByTransactionAmount(t *testing.T) {
	cand, err := Synthesize("Show me the top 10 customers by total transaction amount", schema.Banking())
	require.NoError(t, err)

	assert.Equal(t, "ranking", cand.Rule)
	assert.Equal(t, types.SourceKeyword, cand.Source)
	assert.Equal(t,
		"SELECT c.customer_id, c.first_name, c.last_name, SUM(t.amount) AS total_amount "+
			"FROM customers c JOIN transactions t ON t.customer_id = c.customer_id "+
			"WHERE t.status = 'completed' "+
			"GROUP BY c.customer_id, c.first_name, c.last_name "+
			"ORDER BY total_amount DESC LIMIT 10",
		cand.SQL)
	assert.Empty(t, cand.Args)
	assert.NotEmpty(t, cand.Explanation)
}

func TestSynthesize_DefaultedLoans(t *testing.T) {
	cand, err := Synthesize("Show me customers with defaulted loans", schema.Banking())
	require.NoError(t, err)

	assert.Equal(t, "loan_risk", cand.Rule)
	assert.Contains(t, cand.SQL, "JOIN loans l ON l.customer_id = c.customer_id")
	assert.Contains(t, cand.SQL, "WHERE l.status = 'Defaulted'")
	assert.NotContains(t, cand.SQL, "'defaulted'", "literal comes from the enumeration, not the question")
}

func TestSynthesize_Rules(t *testing.T) {
	tests := []struct {
		question string
		rule     string
		contains []string
		args     []any
	}{
		{
			question: "top 5 customers by account balance",
			rule:     "balance_ranking",
			contains: []string{"FROM customers", "ORDER BY account_balance DESC LIMIT 5"},
		},
		{
			question: "who are our richest clients",
			rule:     "balance_ranking",
			contains: []string{"ORDER BY account_balance DESC LIMIT 10"},
		},
		{
			question: "customers with the best credit",
			rule:     "credit_ranking",
			contains: []string{"ORDER BY credit_score DESC LIMIT 15"},
		},
		{
			question: "top 3 customers by number of transactions",
			rule:     "ranking",
			contains: []string{"COUNT(*) AS transaction_count", "ORDER BY transaction_count DESC LIMIT 3"},
		},
		{
			question: "top 5 customers by loan balance",
			rule:     "ranking",
			contains: []string{"JOIN loans l ON l.customer_id = c.customer_id", "SUM(l.outstanding_balance) AS total_outstanding_balance", "LIMIT 5"},
		},
		{
			question: "top 5000 spenders",
			rule:     "ranking",
			contains: []string{"LIMIT 100"},
		},
		{
			question: "which loans are at risk?",
			rule:     "loan_risk",
			contains: []string{"WHERE l.status IN ('Defaulted', 'Pending')"},
		},
		{
			question: "Show me active loans",
			rule:     "active_loans",
			contains: []string{
				"SELECT loan_id, customer_id, loan_type, principal_amount, outstanding_balance, interest_rate, monthly_payment, status FROM loans",
				"WHERE status = 'Active'",
				"ORDER BY outstanding_balance DESC LIMIT 15",
			},
		},
		{
			question: "total debt of customers with active loans",
			rule:     "active_loans",
			contains: []string{
				"COUNT(*) AS loan_count",
				"SUM(l.outstanding_balance) AS total_outstanding_balance",
				"AVG(l.interest_rate) AS avg_interest_rate",
				"JOIN loans l ON l.customer_id = c.customer_id",
				"WHERE l.status = 'Active'",
				"GROUP BY c.customer_id, c.first_name, c.last_name",
				"ORDER BY total_outstanding_balance DESC LIMIT 10",
			},
		},
		{
			question: "active customers",
			rule:     "default",
			contains: []string{"SELECT * FROM customers LIMIT 15"},
		},
		{
			question: "list pending and failed transactions",
			rule:     "transaction_status",
			contains: []string{"FROM transactions", "WHERE status IN ('pending', 'failed')", "ORDER BY transaction_date DESC LIMIT 20"},
		},
		{
			question: "show pending loans",
			rule:     "transaction_status",
			contains: []string{"FROM loans", "WHERE status = 'Pending'", "ORDER BY start_date DESC"},
		},
		{
			question: "transactions above $5,000",
			rule:     "amount_threshold",
			contains: []string{"FROM transactions WHERE amount > $1", "ORDER BY amount DESC LIMIT 15"},
			args:     []any{int64(5000)},
		},
		{
			question: "loans greater than 250000.50",
			rule:     "amount_threshold",
			contains: []string{"FROM loans WHERE principal_amount > $1"},
			args:     []any{250000.50},
		},
		{
			question: "customers with a balance over 100k",
			rule:     "amount_threshold",
			contains: []string{"FROM customers WHERE account_balance > $1"},
			args:     []any{int64(100000)},
		},
		{
			question: "most recent loans",
			rule:     "recent",
			contains: []string{"SELECT * FROM loans ORDER BY start_date DESC LIMIT 20"},
		},
		{
			question: "latest transactions",
			rule:     "recent",
			contains: []string{"SELECT * FROM transactions ORDER BY transaction_date DESC LIMIT 20"},
		},
		{
			question: "show premium customers",
			rule:     "segment_filter",
			contains: []string{"WHERE customer_segment IN ('Premium', 'Corporate')", "ORDER BY account_balance DESC LIMIT 15"},
		},
		{
			question: "student customers",
			rule:     "segment_filter",
			contains: []string{"WHERE customer_segment = 'Student'"},
		},
		{
			question: "student loans",
			rule:     "default",
			contains: []string{"SELECT * FROM loans LIMIT 15"},
		},
		{
			question: "hello there",
			rule:     "default",
			contains: []string{"SELECT * FROM customers LIMIT 15"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			cand, err := Synthesize(tt.question, schema.Banking())
			require.NoError(t, err)
			assert.Equal(t, tt.rule, cand.Rule, cand.SQL)
			for _, want := range tt.contains {
				assert.Contains(t, cand.SQL, want)
			}
			assert.Equal(t, tt.args, cand.Args)
		})
	}
}

func TestSynthesize_NeverEchoesQuestionText(t *testing.T) {
	questions := []string{
		"customers named '; DROP TABLE customers; --",
		"pending transactions where note = 'x' OR 1=1",
		"top 10 customers UNION SELECT password FROM users",
		"loans over 5000 /* comment */",
	}

	for _, q := range questions {
		t.Run(q, func(t *testing.T) {
			cand, err := Synthesize(q, schema.Banking())
			require.NoError(t, err)
			for _, bad := range []string{"DROP", "--", "/*", "1=1", "UNION", "password", ";"} {
				assert.NotContains(t, cand.SQL, bad)
			}
			assert.False(t, strings.Contains(cand.SQL, "\n"), "synthesized SQL is single-line")
		})
	}
}

func TestSynthesize_EmptyCatalog(t *testing.T) {
	cat, err := schema.NewCatalog()
	require.NoError(t, err)

	_, err = Synthesize("top 10 customers", cat)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestSynthesize_MinimalCatalogFallsThrough(t *testing.T) {
	cat := schema.MustCatalog(schema.TableDef{
		Name:    "products",
		Columns: []schema.ColumnDef{{Name: "id", Type: "integer"}, {Name: "name", Type: "text"}},
	})

	for _, q := range []string{"top 10 products", "defaulted loans", "pending things", "over 500", "latest", "premium"} {
		t.Run(q, func(t *testing.T) {
			cand, err := Synthesize(q, cat)
			require.NoError(t, err)
			assert.Equal(t, "default", cand.Rule)
			assert.Equal(t, "SELECT * FROM products LIMIT 15", cand.SQL)
		})
	}
}

func TestCustomRuleOrder(t *testing.T) {
	rules := DefaultRules()
	s := NewWithRules(rules[len(rules)-1:])

	cand, err := s.Synthesize("top 10 customers by amount", schema.Banking())
	require.NoError(t, err)
	assert.Equal(t, "default", cand.Rule)
}

func TestSelectStmt(t *testing.T) {
	stmt := selectStmt{from: "t"}
	assert.Equal(t, "SELECT * FROM t", stmt.String())

	stmt = selectStmt{
		columns: []string{"a", "b"},
		from:    "t",
		where:   []string{"a > $1", "b = 'x'"},
		groupBy: []string{"a"},
		orderBy: []string{"b DESC"},
		limit:   5,
	}
	assert.Equal(t, "SELECT a, b FROM t WHERE a > $1 AND b = 'x' GROUP BY a ORDER BY b DESC LIMIT 5", stmt.String())
}
