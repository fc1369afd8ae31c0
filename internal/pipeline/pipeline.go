// Package pipeline turns a question into an executed, bounded, read-only
// query. Each request moves linearly through
//
//	RECEIVED -> SYNTHESIZED -> VALIDATED -> ADAPTED -> EXECUTED
//
// and stops at REJECTED or FAILED on the first error.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dbsmedya/nlquery/internal/config"
	"github.com/dbsmedya/nlquery/internal/database"
	"github.com/dbsmedya/nlquery/internal/dialect"
	"github.com/dbsmedya/nlquery/internal/llm"
	"github.com/dbsmedya/nlquery/internal/logger"
	"github.com/dbsmedya/nlquery/internal/schema"
	"github.com/dbsmedya/nlquery/internal/synth"
	"github.com/dbsmedya/nlquery/internal/types"
	"github.com/dbsmedya/nlquery/internal/validator"
)

// DefaultMaxQuestionLength bounds question length in characters.
const DefaultMaxQuestionLength = 1000

// DefaultTimeout bounds query execution.
const DefaultTimeout = 30 * time.Second

// injectionMarkers are refused in questions before any SQL is produced.
var injectionMarkers = []string{"--", "/*", "*/", ";", "xp_", "sp_", "<script"}

// LiveExecutors resolves a database connector per dialect.
// *database.Manager satisfies it.
type LiveExecutors interface {
	Executor(target dialect.Target) (types.Executor, error)
}

// MockExecutors serves the synthetic dataset per dialect.
// *mockdb.Responder satisfies it.
type MockExecutors interface {
	Executor(target dialect.Target) types.Executor
}

// Options wires a Pipeline. Catalog is required; everything else has a default.
type Options struct {
	Catalog           *schema.Catalog
	Validator         *validator.Validator
	Synthesizer       *synth.Synthesizer
	Generator         llm.Generator
	Live              LiveExecutors
	Mock              MockExecutors
	DefaultDialect    dialect.Target
	Timeout           time.Duration
	MaxQuestionLength int
	Logger            *logger.Logger
}

// Request is one question for one dialect. An empty Dialect selects the default.
type Request struct {
	ID       string
	Question string
	Dialect  string
}

// Response records how far a request got and, once executed, its result.
type Response struct {
	State       State
	Dialect     dialect.Target
	Source      types.Source
	Rule        string
	Explanation string
	// SQL is the validated statement adapted to Dialect.
	SQL         string
	Corrections []string
	Mock        bool
	Result      *types.QueryResult
}

// Pipeline is safe for concurrent use; it holds no per-request state.
type Pipeline struct {
	catalog        *schema.Catalog
	schemaText     string
	validator      *validator.Validator
	synth          *synth.Synthesizer
	generator      llm.Generator
	live           LiveExecutors
	mock           MockExecutors
	defaultDialect dialect.Target
	timeout        time.Duration
	maxQuestionLen int
	logger         *logger.Logger
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		catalog:        opts.Catalog,
		validator:      opts.Validator,
		synth:          opts.Synthesizer,
		generator:      opts.Generator,
		live:           opts.Live,
		mock:           opts.Mock,
		defaultDialect: opts.DefaultDialect,
		timeout:        opts.Timeout,
		maxQuestionLen: opts.MaxQuestionLength,
		logger:         opts.Logger,
	}
	if p.catalog == nil {
		p.catalog = schema.Banking()
	}
	p.schemaText = p.catalog.Text()
	if p.validator == nil {
		p.validator = validator.New(validator.Policy{})
	}
	if p.synth == nil {
		p.synth = synth.New()
	}
	if !p.defaultDialect.Valid() {
		p.defaultDialect = dialect.Postgres
	}
	if p.timeout <= 0 {
		p.timeout = DefaultTimeout
	}
	if p.maxQuestionLen <= 0 {
		p.maxQuestionLen = DefaultMaxQuestionLength
	}
	if p.logger == nil {
		p.logger = logger.NewNop()
	}
	return p
}

// OptionsFromConfig fills the policy fields of Options from configuration.
// Collaborators (Live, Mock, Generator) are left to the caller.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	target, err := dialect.ParseTarget(cfg.Query.DefaultDialect)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Catalog: schema.Banking(),
		Validator: validator.New(validator.Policy{
			MaxRows:            cfg.Query.MaxRows,
			AllowSetOperations: cfg.Query.AllowSetOperations,
		}),
		DefaultDialect:    target,
		Timeout:           cfg.Query.Timeout,
		MaxQuestionLength: cfg.Query.MaxQuestionLength,
	}, nil
}

// Catalog returns the schema questions are answered against.
func (p *Pipeline) Catalog() *schema.Catalog { return p.catalog }

// GeneratorConfigured reports whether a language model is wired in.
func (p *Pipeline) GeneratorConfigured() bool { return p.generator != nil }

// Run answers one request. On failure the returned Response carries the
// terminal state and the error is a *Error.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Response, error) {
	resp := &Response{State: StateReceived}
	log := p.logger
	if req.ID != "" {
		log = log.WithRequest(req.ID)
	}

	fail := func(state State, err *Error) (*Response, error) {
		resp.State = state
		log.WithStage(string(state)).Infow("query not answered", "state", state, "kind", err.Kind, "error", err.Error())
		return resp, err
	}

	question, qerr := p.checkQuestion(req.Question)
	if qerr != nil {
		return fail(StateRejected, qerr)
	}
	target := p.defaultDialect
	if strings.TrimSpace(req.Dialect) != "" {
		t, err := dialect.ParseTarget(req.Dialect)
		if err != nil {
			return fail(StateRejected, newError(KindDialectUnsupported, "", err))
		}
		target = t
	}
	resp.Dialect = target
	log = log.WithDialect(target.String())
	log.Debugw("question received", "length", utf8.RuneCountInString(question))

	cand, err := p.candidate(ctx, question, log)
	if err != nil {
		return fail(StateFailed, newError(KindNoMatch, "", err))
	}
	resp.State = StateSynthesized
	resp.Source, resp.Rule, resp.Explanation = cand.Source, cand.Rule, cand.Explanation
	log.Debugw("candidate produced", "source", cand.Source, "rule", cand.Rule, "sql", cand.SQL)

	verdict := p.validator.Validate(cand.SQL)
	if !verdict.Accepted {
		return fail(StateRejected, fromViolation(verdict.Violation))
	}
	resp.State = StateValidated
	for _, c := range verdict.Corrections {
		resp.Corrections = append(resp.Corrections, c.Error())
	}

	adapted, err := dialect.Adapt(verdict.NormalizedSQL, target)
	if err != nil {
		if errors.Is(err, dialect.ErrDialectUnsupported) {
			return fail(StateRejected, newError(KindDialectUnsupported, "", err))
		}
		return fail(StateRejected, newError(KindSuspiciousSyntax, "placeholders", err))
	}
	resp.State = StateAdapted
	resp.SQL = adapted

	exec, mock, perr := p.executor(target, log)
	if perr != nil {
		return fail(StateFailed, perr)
	}
	resp.Mock = mock

	execCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	start := time.Now()
	rows, err := exec.Execute(execCtx, adapted, cand.Args)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			return fail(StateFailed, newError(KindExecutionTimeout, "", err))
		}
		return fail(StateFailed, newError(KindExecutionFailed, "", err))
	}

	resp.State = StateExecuted
	resp.Result = &types.QueryResult{
		SQL:             adapted,
		Columns:         rows.Columns,
		Rows:            rows.Maps(),
		ExecutionTimeMS: float64(elapsed.Microseconds()) / 1000,
		Truncated:       rows.Truncated,
	}
	log.Infow("query executed", "source", cand.Source, "rows", rows.Len(), "truncated", rows.Truncated,
		"mock", mock, "duration_ms", resp.Result.ExecutionTimeMS)
	return resp, nil
}

// checkQuestion trims the question and screens it for length and markers
// that only make sense in SQL.
func (p *Pipeline) checkQuestion(question string) (string, *Error) {
	question = strings.TrimSpace(question)
	n := utf8.RuneCountInString(question)
	if n == 0 {
		return "", newError(KindInvalidQuestion, "question is empty", nil)
	}
	if n > p.maxQuestionLen {
		return "", newError(KindInvalidQuestion, "question is too long", nil)
	}

	lower := strings.ToLower(question)
	for _, marker := range injectionMarkers {
		if strings.Contains(lower, marker) {
			return "", &Error{Kind: KindSuspiciousSyntax, Detail: "question contains SQL syntax"}
		}
	}
	for _, word := range strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	}) {
		if word == "union" {
			return "", &Error{Kind: KindSuspiciousSyntax, Detail: "question contains SQL syntax"}
		}
	}
	return question, nil
}

// candidate asks the model first and falls back to the keyword rules when it
// is not configured or fails to answer.
func (p *Pipeline) candidate(ctx context.Context, question string, log *logger.Logger) (types.Candidate, error) {
	if p.generator != nil {
		cand, err := p.generator.Generate(ctx, question, p.schemaText)
		if err == nil && strings.TrimSpace(cand.SQL) != "" {
			cand.Source = types.SourceLLM
			return cand, nil
		}
		if err == nil {
			err = llm.ErrEmptyResponse
		}
		log.Warnw("model generation failed, using keyword rules", "error", err)
	}
	return p.synth.Synthesize(question, p.catalog)
}

// executor picks the live connector for target, or the mock dataset when the
// dialect is not configured or could not be reached.
func (p *Pipeline) executor(target dialect.Target, log *logger.Logger) (types.Executor, bool, *Error) {
	var liveErr error = database.ErrNotConfigured
	if p.live != nil {
		exec, err := p.live.Executor(target)
		if err == nil {
			return exec, false, nil
		}
		if !errors.Is(err, database.ErrNotConfigured) && !errors.Is(err, database.ErrUnavailable) {
			return nil, false, newError(KindInternal, "", err)
		}
		liveErr = err
	}
	if p.mock == nil {
		return nil, false, newError(KindConnectorUnavailable, "", liveErr)
	}
	log.Debugw("serving from mock dataset", "reason", liveErr.Error())
	return p.mock.Executor(target), true, nil
}

func fromViolation(v *validator.Violation) *Error {
	if v == nil {
		return newError(KindInternal, "", nil)
	}
	e := &Error{Keyword: v.Keyword, Detail: v.Reason, Err: v}
	switch v.Kind {
	case validator.KindEmptyQuery:
		e.Kind = KindEmptyQuery
	case validator.KindMultiStatement:
		e.Kind = KindMultiStatement
	case validator.KindForbiddenCommand:
		e.Kind = KindForbiddenCommand
	case validator.KindSuspiciousSyntax:
		e.Kind = KindSuspiciousSyntax
		if e.Detail == "" && e.Keyword != "" {
			e.Detail = strings.ToUpper(e.Keyword) + " is not allowed"
			e.Keyword = ""
		}
	default:
		e.Kind = KindInternal
	}
	return e
}
