package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/nlquery/internal/config"
	"github.com/dbsmedya/nlquery/internal/database"
	"github.com/dbsmedya/nlquery/internal/dialect"
	"github.com/dbsmedya/nlquery/internal/mockdb"
	"github.com/dbsmedya/nlquery/internal/types"
	"github.com/dbsmedya/nlquery/internal/validator"
)

type fakeGenerator struct {
	sql string
	err error
}

func (g fakeGenerator) Generate(ctx context.Context, question, schemaText string) (types.Candidate, error) {
	if g.err != nil {
		return types.Candidate{}, g.err
	}
	return types.Candidate{SQL: g.sql, Explanation: "from the model"}, nil
}

// recordingExecutor captures what reaches a live connector.
type recordingExecutor struct {
	mu    sync.Mutex
	sql   string
	args  []any
	rows  *types.Rows
	err   error
	block bool
}

func (e *recordingExecutor) Execute(ctx context.Context, sql string, args []any) (*types.Rows, error) {
	e.mu.Lock()
	e.sql, e.args = sql, args
	e.mu.Unlock()
	if e.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.rows, nil
}

type fakeLive struct {
	exec *recordingExecutor
	err  error
}

func (l fakeLive) Executor(target dialect.Target) (types.Executor, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.exec, nil
}

func openMock(t *testing.T) *mockdb.Responder {
	t.Helper()
	r, err := mockdb.Open(context.Background(), mockdb.Options{MaxRows: 1000})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func requireKind(t *testing.T, err error, kind ErrorKind) *Error {
	t.Helper()
	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, kind, perr.Kind, "error: %v", err)
	return perr
}

func TestRun_KeywordAcrossDialects(t *testing.T) {
	p := New(Options{Mock: openMock(t)})

	want := map[dialect.Target]string{
		dialect.Postgres: "LIMIT 10",
		dialect.MySQL:    "LIMIT 10",
		dialect.Oracle:   "FETCH FIRST 10 ROWS ONLY",
	}
	for target, suffix := range want {
		t.Run(target.String(), func(t *testing.T) {
			resp, err := p.Run(context.Background(), Request{
				Question: "Show me the top 10 customers by total transaction amount",
				Dialect:  target.String(),
			})
			require.NoError(t, err)
			assert.Equal(t, StateExecuted, resp.State)
			assert.Equal(t, types.SourceKeyword, resp.Source)
			assert.Equal(t, "ranking", resp.Rule)
			assert.True(t, resp.Mock)
			assert.True(t, strings.HasSuffix(resp.SQL, suffix), resp.SQL)
			require.NotNil(t, resp.Result)
			assert.Len(t, resp.Result.Rows, 10)
			assert.Contains(t, resp.Result.Columns, "total_amount")
			assert.NotEmpty(t, resp.Explanation)
		})
	}
}

func TestRun_DefaultDialect(t *testing.T) {
	p := New(Options{Mock: openMock(t), DefaultDialect: dialect.Oracle})

	resp, err := p.Run(context.Background(), Request{Question: "list customers"})
	require.NoError(t, err)
	assert.Equal(t, dialect.Oracle, resp.Dialect)
	assert.Contains(t, resp.SQL, "FETCH FIRST 15 ROWS ONLY")
}

func TestRun_ModelOutputIsValidated(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		kind    ErrorKind
		keyword string
	}{
		{"delete", "DELETE FROM customers", KindForbiddenCommand, "DELETE"},
		{"stacked", "SELECT 1; DROP TABLE customers", KindMultiStatement, ""},
		{"union", "SELECT first_name FROM customers UNION SELECT email FROM customers", KindSuspiciousSyntax, ""},
		{"comment", "SELECT * FROM customers -- hi", KindSuspiciousSyntax, ""},
		{"sleep", "SELECT pg_sleep(10)", KindForbiddenCommand, "PG_SLEEP"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			live := &recordingExecutor{}
			p := New(Options{Generator: fakeGenerator{sql: tt.sql}, Live: fakeLive{exec: live}})

			resp, err := p.Run(context.Background(), Request{Question: "anything"})
			perr := requireKind(t, err, tt.kind)
			assert.Equal(t, tt.keyword, perr.Keyword)
			assert.Equal(t, StateRejected, resp.State)
			assert.Empty(t, live.sql, "rejected SQL must not reach a connector")
		})
	}
}

func TestRun_ModelSQLGetsLimit(t *testing.T) {
	live := &recordingExecutor{rows: &types.Rows{Columns: []string{"n"}, Data: [][]any{{int64(1)}}}}
	p := New(Options{
		Generator: fakeGenerator{sql: "SELECT * FROM transactions LIMIT 5000;"},
		Live:      fakeLive{exec: live},
		Validator: validator.New(validator.Policy{MaxRows: 100}),
	})

	resp, err := p.Run(context.Background(), Request{Question: "all transactions", Dialect: "oracle"})
	require.NoError(t, err)
	assert.Equal(t, types.SourceLLM, resp.Source)
	assert.False(t, resp.Mock)
	assert.Equal(t, "SELECT * FROM transactions FETCH FIRST 100 ROWS ONLY", live.sql)
	require.Len(t, resp.Corrections, 1)
	assert.Contains(t, resp.Corrections[0], "LimitExceeded")
}

func TestRun_ModelFailureFallsBack(t *testing.T) {
	for name, gen := range map[string]fakeGenerator{
		"error": {err: errors.New("api down")},
		"empty": {sql: "  "},
	} {
		t.Run(name, func(t *testing.T) {
			p := New(Options{Generator: gen, Mock: openMock(t)})
			resp, err := p.Run(context.Background(), Request{Question: "Show me customers with defaulted loans"})
			require.NoError(t, err)
			assert.Equal(t, types.SourceKeyword, resp.Source)
			assert.Equal(t, "loan_risk", resp.Rule)
			assert.True(t, p.GeneratorConfigured())
		})
	}
}

func TestRun_LiveBindsAdaptedPlaceholders(t *testing.T) {
	live := &recordingExecutor{rows: &types.Rows{}}
	p := New(Options{Live: fakeLive{exec: live}})

	_, err := p.Run(context.Background(), Request{Question: "transactions over $5,000", Dialect: "mysql"})
	require.NoError(t, err)
	assert.Contains(t, live.sql, "amount > ?")
	assert.Equal(t, []any{int64(5000)}, live.args)
}

func TestRun_QuestionScreening(t *testing.T) {
	p := New(Options{Mock: openMock(t), MaxQuestionLength: 50})

	tests := []struct {
		question string
		kind     ErrorKind
	}{
		{"", KindInvalidQuestion},
		{"   ", KindInvalidQuestion},
		{strings.Repeat("a", 51), KindInvalidQuestion},
		{"customers; drop table", KindSuspiciousSyntax},
		{"customers -- all", KindSuspiciousSyntax},
		{"customers /* x */", KindSuspiciousSyntax},
		{"customers union users", KindSuspiciousSyntax},
		{"run xp_cmdshell", KindSuspiciousSyntax},
		{"<script>alert(1)</script>", KindSuspiciousSyntax},
	}
	for _, tt := range tests {
		resp, err := p.Run(context.Background(), Request{Question: tt.question})
		requireKind(t, err, tt.kind)
		assert.Equal(t, StateRejected, resp.State, tt.question)
	}

	// Words that merely contain a marker are fine.
	_, err := p.Run(context.Background(), Request{Question: "customers at the reunion"})
	assert.NoError(t, err)
	_, err = p.Run(context.Background(), Request{Question: strings.Repeat("é", 50)})
	assert.NoError(t, err, "length counts characters")
}

func TestRun_UnsupportedDialect(t *testing.T) {
	p := New(Options{Mock: openMock(t)})
	resp, err := p.Run(context.Background(), Request{Question: "customers", Dialect: "sqlserver"})
	requireKind(t, err, KindDialectUnsupported)
	assert.Equal(t, StateRejected, resp.State)
}

func TestRun_Timeout(t *testing.T) {
	live := &recordingExecutor{block: true}
	p := New(Options{Live: fakeLive{exec: live}, Timeout: 20 * time.Millisecond})

	resp, err := p.Run(context.Background(), Request{Question: "customers"})
	perr := requireKind(t, err, KindExecutionTimeout)
	assert.Equal(t, StateFailed, resp.State)
	assert.Equal(t, "Query execution timed out", perr.PublicMessage())
}

func TestRun_ExecutionFailureIsGeneric(t *testing.T) {
	live := &recordingExecutor{err: errors.New(`pq: relation "secret_table" does not exist`)}
	p := New(Options{Live: fakeLive{exec: live}})

	_, err := p.Run(context.Background(), Request{Question: "customers"})
	perr := requireKind(t, err, KindExecutionFailed)
	assert.NotContains(t, perr.PublicMessage(), "secret_table")
	assert.Contains(t, perr.Error(), "secret_table", "cause is kept for logs")
}

func TestRun_ConnectorFallback(t *testing.T) {
	mock := openMock(t)

	for _, liveErr := range []error{database.ErrNotConfigured, database.ErrUnavailable} {
		p := New(Options{Live: fakeLive{err: liveErr}, Mock: mock})
		resp, err := p.Run(context.Background(), Request{Question: "latest transactions"})
		require.NoError(t, err)
		assert.True(t, resp.Mock)
		assert.Len(t, resp.Result.Rows, 20)
	}

	p := New(Options{Live: fakeLive{err: database.ErrUnavailable}})
	resp, err := p.Run(context.Background(), Request{Question: "latest transactions"})
	requireKind(t, err, KindConnectorUnavailable)
	assert.Equal(t, StateFailed, resp.State)
}

func TestRun_Truncates(t *testing.T) {
	r, err := mockdb.Open(context.Background(), mockdb.Options{MaxRows: 3})
	require.NoError(t, err)
	defer r.Close()

	p := New(Options{Mock: r})
	resp, err := p.Run(context.Background(), Request{Question: "list customers"})
	require.NoError(t, err)
	assert.Len(t, resp.Result.Rows, 3)
	assert.True(t, resp.Result.Truncated)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Query.DefaultDialect = "mysql"
	cfg.Query.MaxRows = 50

	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, dialect.MySQL, opts.DefaultDialect)
	assert.Equal(t, 50, opts.Validator.Policy().MaxRows)

	cfg.Query.DefaultDialect = "db2"
	_, err = OptionsFromConfig(cfg)
	assert.ErrorIs(t, err, dialect.ErrDialectUnsupported)
}

func TestError_Is(t *testing.T) {
	err := &Error{Kind: KindForbiddenCommand, Keyword: "DROP"}
	assert.ErrorIs(t, err, &Error{Kind: KindForbiddenCommand})
	assert.NotErrorIs(t, err, &Error{Kind: KindMultiStatement})
	assert.Equal(t, "Query rejected: forbidden command DROP", err.PublicMessage())
	assert.True(t, KindForbiddenCommand.Rejected())
	assert.False(t, KindExecutionTimeout.Rejected())
}
