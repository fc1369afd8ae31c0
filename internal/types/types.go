// Package types contains shared types used across multiple packages to avoid import cycles.
package types

import "context"

// Source identifies which generator produced a candidate query.
type Source string

const (
	SourceLLM     Source = "llm"
	SourceKeyword Source = "keyword"
)

// Candidate is a proposed SQL statement awaiting validation.
// SQL uses ordinal $n placeholders bound by Args.
type Candidate struct {
	SQL         string
	Args        []any
	Source      Source
	Explanation string
	Rule        string // keyword rule that produced it, empty for model output
}

// Rows is a bounded result set with column order preserved.
type Rows struct {
	Columns   []string
	Data      [][]any
	Truncated bool // more rows existed than the configured maximum
}

// Len returns the number of rows.
func (r *Rows) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Data)
}

// Maps returns every row keyed by column name.
func (r *Rows) Maps() []map[string]any {
	out := make([]map[string]any, 0, r.Len())
	if r == nil {
		return out
	}
	for _, row := range r.Data {
		m := make(map[string]any, len(r.Columns))
		for i, col := range r.Columns {
			if i < len(row) {
				m[col] = row[i]
			}
		}
		out = append(out, m)
	}
	return out
}

// Executor runs a validated, dialect-adapted statement and returns its rows.
type Executor interface {
	Execute(ctx context.Context, sql string, args []any) (*Rows, error)
}

// QueryResult is the executed outcome of a question.
type QueryResult struct {
	SQL             string
	Columns         []string
	Rows            []map[string]any
	ExecutionTimeMS float64
	Truncated       bool
}
