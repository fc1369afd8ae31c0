package dialect

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		input    string
		expected Target
	}{
		{"postgresql", Postgres},
		{"postgres", Postgres},
		{"PostgreSQL", Postgres},
		{"mysql", MySQL},
		{" MySQL ", MySQL},
		{"oracle", Oracle},
		{"ORACLE", Oracle},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTarget(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	for _, bad := range []string{"", "sqlite", "mssql", "postgresq"} {
		_, err := ParseTarget(bad)
		assert.ErrorIs(t, err, ErrDialectUnsupported, bad)
	}
}

func TestTargetString(t *testing.T) {
	assert.Equal(t, "postgresql", Postgres.String())
	assert.Equal(t, "mysql", MySQL.String())
	assert.Equal(t, "oracle", Oracle.String())
	assert.Equal(t, "Target(0)", Target(0).String())
	assert.Equal(t, []Target{Postgres, MySQL, Oracle}, All())
	assert.False(t, Target(9).Valid())
}

func TestTargetJSON(t *testing.T) {
	var v struct {
		DB Target `json:"db"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"db":"oracle"}`), &v))
	assert.Equal(t, Oracle, v.DB)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"db":"oracle"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"db":"db2"}`), &v))
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"users"`, QuoteIdentifier("users", Postgres))
	assert.Equal(t, "`users`", QuoteIdentifier("users", MySQL))
	assert.Equal(t, `"users"`, QuoteIdentifier("users", Oracle))
	assert.Equal(t, `"a""b"`, QuoteIdentifier(`a"b`, Postgres))
	assert.Equal(t, "`a``b`", QuoteIdentifier("a`b", MySQL))
}

func TestAdapt(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		target   Target
		expected string
	}{
		{
			name:     "postgres keeps limit",
			sql:      "SELECT * FROM customers LIMIT 15",
			target:   Postgres,
			expected: "SELECT * FROM customers LIMIT 15",
		},
		{
			name:     "mysql keeps limit",
			sql:      "SELECT * FROM customers LIMIT 15",
			target:   MySQL,
			expected: "SELECT * FROM customers LIMIT 15",
		},
		{
			name:     "oracle fetch after order by",
			sql:      "SELECT * FROM transactions ORDER BY amount DESC LIMIT 10",
			target:   Oracle,
			expected: "SELECT * FROM transactions ORDER BY amount DESC FETCH FIRST 10 ROWS ONLY",
		},
		{
			name:     "oracle fetch after where without inventing order",
			sql:      "SELECT * FROM loans WHERE status = 'Defaulted' LIMIT 5",
			target:   Oracle,
			expected: "SELECT * FROM loans WHERE status = 'Defaulted' FETCH FIRST 5 ROWS ONLY",
		},
		{
			name:     "oracle offset",
			sql:      "SELECT * FROM t LIMIT 10 OFFSET 20",
			target:   Oracle,
			expected: "SELECT * FROM t OFFSET 20 ROWS FETCH NEXT 10 ROWS ONLY",
		},
		{
			name:     "fetch back to limit",
			sql:      "SELECT * FROM t ORDER BY a FETCH FIRST 10 ROWS ONLY",
			target:   Postgres,
			expected: "SELECT * FROM t ORDER BY a LIMIT 10",
		},
		{
			name:     "offset fetch back to limit",
			sql:      "SELECT * FROM t OFFSET 20 ROWS FETCH NEXT 10 ROWS ONLY",
			target:   MySQL,
			expected: "SELECT * FROM t LIMIT 10 OFFSET 20",
		},
		{
			name:     "mysql pair",
			sql:      "SELECT * FROM t LIMIT 20, 10",
			target:   MySQL,
			expected: "SELECT * FROM t LIMIT 10 OFFSET 20",
		},
		{
			name:     "subquery limit untouched",
			sql:      "SELECT * FROM (SELECT * FROM t LIMIT 3) s LIMIT 10",
			target:   Oracle,
			expected: "SELECT * FROM (SELECT * FROM t LIMIT 3) s FETCH FIRST 10 ROWS ONLY",
		},
		{
			name:     "no limit left alone",
			sql:      "SELECT 1",
			target:   Oracle,
			expected: "SELECT 1",
		},
		{
			name:     "trailing semicolon dropped",
			sql:      "SELECT 1 LIMIT 1;",
			target:   Postgres,
			expected: "SELECT 1 LIMIT 1",
		},
		{
			name:     "mysql placeholders",
			sql:      "SELECT * FROM t WHERE a > $1 AND b = $2 LIMIT 15",
			target:   MySQL,
			expected: "SELECT * FROM t WHERE a > ? AND b = ? LIMIT 15",
		},
		{
			name:     "oracle placeholders",
			sql:      "SELECT * FROM t WHERE a > $1 LIMIT 15",
			target:   Oracle,
			expected: "SELECT * FROM t WHERE a > :1 FETCH FIRST 15 ROWS ONLY",
		},
		{
			name:     "positional to postgres",
			sql:      "SELECT * FROM t WHERE a > ? AND b < ? LIMIT 15",
			target:   Postgres,
			expected: "SELECT * FROM t WHERE a > $1 AND b < $2 LIMIT 15",
		},
		{
			name:     "oracle to postgres",
			sql:      "SELECT * FROM t WHERE a = :2 OR b = :1 FETCH FIRST 3 ROWS ONLY",
			target:   Postgres,
			expected: "SELECT * FROM t WHERE a = $2 OR b = $1 LIMIT 3",
		},
		{
			name:     "identifiers for mysql",
			sql:      `SELECT "first name" FROM "Customers" LIMIT 1`,
			target:   MySQL,
			expected: "SELECT `first name` FROM `Customers` LIMIT 1",
		},
		{
			name:     "identifiers for oracle",
			sql:      "SELECT `a\"b` FROM t LIMIT 1",
			target:   Oracle,
			expected: `SELECT "a""b" FROM t FETCH FIRST 1 ROWS ONLY`,
		},
		{
			name:     "strings untouched",
			sql:      "SELECT * FROM t WHERE note = '$1 LIMIT 5 \"x\"' LIMIT 2",
			target:   MySQL,
			expected: "SELECT * FROM t WHERE note = '$1 LIMIT 5 \"x\"' LIMIT 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Adapt(tt.sql, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestAdapt_Idempotent(t *testing.T) {
	inputs := []string{
		"SELECT * FROM t ORDER BY a DESC LIMIT 10",
		"SELECT * FROM t WHERE a > $1 LIMIT 10 OFFSET 5",
		`SELECT "x" FROM t WHERE b = ? LIMIT 1`,
		"SELECT c.customer_id, SUM(t.amount) AS total FROM customers c JOIN transactions t ON t.customer_id = c.customer_id GROUP BY c.customer_id ORDER BY total DESC LIMIT 10",
	}

	for _, target := range All() {
		for _, sql := range inputs {
			t.Run(target.String()+"/"+sql, func(t *testing.T) {
				once, err := Adapt(sql, target)
				require.NoError(t, err)
				twice, err := Adapt(once, target)
				require.NoError(t, err)
				assert.Equal(t, once, twice)
			})
		}
	}
}

func TestAdapt_Errors(t *testing.T) {
	_, err := Adapt("SELECT 1 LIMIT 1", Target(0))
	assert.ErrorIs(t, err, ErrDialectUnsupported)

	_, err = Adapt("SELECT * FROM t WHERE a = $2 AND b = $1", MySQL)
	assert.ErrorIs(t, err, ErrPlaceholderOrder)

	_, err = Adapt("SELECT * FROM t WHERE a = :name", Postgres)
	assert.ErrorIs(t, err, ErrNamedPlaceholder)

	_, err = Adapt("SELECT 'open", Postgres)
	assert.Error(t, err)

	_, err = Adapt("SELECT * FROM t OFFSET 3", Oracle)
	assert.Error(t, err)
}
