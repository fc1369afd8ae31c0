// Package validator decides whether a candidate SQL statement is a single
// bounded read-only query. It works on the token stream produced by sqlutil,
// so keywords inside string literals and quoted identifiers never match and
// case or whitespace tricks do not hide them.
package validator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dbsmedya/nlquery/internal/sqlutil"
)

// DefaultMaxRows is the row ceiling used when a Policy does not set one.
const DefaultMaxRows = 1000

// Policy configures the validator.
type Policy struct {
	// MaxRows is the ceiling every accepted statement is limited to.
	MaxRows int
	// AllowSetOperations admits UNION, INTERSECT, EXCEPT and MINUS.
	// They are rejected by default as a common exfiltration technique.
	AllowSetOperations bool
}

// Verdict is the outcome of validating one statement.
type Verdict struct {
	Accepted bool
	// NormalizedSQL is the accepted statement without a trailing semicolon,
	// ending in exactly one "LIMIT n [OFFSET m]" clause with n <= MaxRows.
	NormalizedSQL string
	// RowLimit is the n of that clause.
	RowLimit int64
	// Violation is set when the statement was rejected.
	Violation *Violation
	// Corrections lists non-fatal rewrites, such as a clamped row limit.
	Corrections []Violation
}

// Err returns the violation as an error, or nil when accepted.
func (v Verdict) Err() error {
	if v.Violation == nil {
		return nil
	}
	return v.Violation
}

// Validator enforces a Policy. It holds no mutable state and is safe for
// concurrent use.
type Validator struct {
	policy Policy
}

// New creates a Validator, defaulting MaxRows to DefaultMaxRows.
func New(policy Policy) *Validator {
	if policy.MaxRows <= 0 {
		policy.MaxRows = DefaultMaxRows
	}
	return &Validator{policy: policy}
}

// Policy returns the effective policy.
func (v *Validator) Policy() Policy {
	return v.policy
}

// Validate checks sql and, when accepted, returns it with an enforced row limit.
// Checks run in order and stop at the first violation:
//
//  1. empty input
//  2. tokenization
//  3. leading keyword must be SELECT or WITH
//  4. at most one statement, a single trailing semicolon is allowed
//  5. a WITH must end in a SELECT
//  6. forbidden keywords, functions and packages anywhere
//  7. comments
//  8. MySQL escapes and variables that tokenize ambiguously
//  9. set operations, unless allowed
//  10. row limit enforcement
func (v *Validator) Validate(sql string) Verdict {
	if strings.TrimSpace(sql) == "" {
		return reject(&Violation{Kind: KindEmptyQuery})
	}

	tokens, err := sqlutil.Tokenize(sql)
	code := withoutComments(tokens)
	if err != nil {
		// A recognisable command in front of the bad input is still reported as such.
		if vio := checkLeadingKeyword(code); vio != nil && vio.Kind == KindForbiddenCommand {
			return reject(vio)
		}
		return reject(suspicious("unparseable statement"))
	}
	if len(code) == 0 {
		return reject(suspicious("comment"))
	}

	if vio := checkLeadingKeyword(code); vio != nil {
		return reject(vio)
	}

	stmt, end, vio := singleStatement(code, len(sql))
	if vio != nil {
		return reject(vio)
	}
	if vio := checkTerminalSelect(stmt); vio != nil {
		return reject(vio)
	}
	if vio := checkForbidden(stmt); vio != nil {
		return reject(vio)
	}
	for _, tok := range tokens {
		if tok.IsComment() {
			return reject(suspicious("comment"))
		}
	}
	if vio := checkAmbiguousSyntax(stmt); vio != nil {
		return reject(vio)
	}
	if !v.policy.AllowSetOperations {
		for _, tok := range stmt {
			if tok.Kind == sqlutil.Word && setOperations[tok.Value] {
				return reject(&Violation{Kind: KindSuspiciousSyntax, Keyword: tok.Value})
			}
		}
	}

	return v.enforceLimit(sql[:end], stmt)
}

func reject(vio *Violation) Verdict {
	return Verdict{Violation: vio}
}

func withoutComments(tokens []sqlutil.Token) []sqlutil.Token {
	out := make([]sqlutil.Token, 0, len(tokens))
	for _, tok := range tokens {
		if !tok.IsComment() {
			out = append(out, tok)
		}
	}
	return out
}

// checkLeadingKeyword accepts SELECT or WITH, optionally behind opening parentheses.
func checkLeadingKeyword(code []sqlutil.Token) *Violation {
	i := 0
	for i < len(code) && code[i].Kind == sqlutil.LParen {
		i++
	}
	if i == len(code) {
		return suspicious("no statement")
	}
	tok := code[i]
	switch {
	case tok.IsKeyword("SELECT"), tok.IsKeyword("WITH"):
		return nil
	case tok.Kind == sqlutil.Word:
		return forbidden(tok.Value)
	default:
		return suspicious("statement does not start with a keyword")
	}
}

// singleStatement returns the tokens of the only statement and the byte offset
// where its text ends. Anything after the first semicolon is another statement.
func singleStatement(code []sqlutil.Token, inputLen int) ([]sqlutil.Token, int, *Violation) {
	for i, tok := range code {
		if tok.Kind != sqlutil.Semicolon {
			continue
		}
		if i != len(code)-1 {
			return nil, 0, &Violation{Kind: KindMultiStatement}
		}
		return code[:i], tok.Pos, nil
	}
	return code, inputLen, nil
}

// checkTerminalSelect walks past the common table expressions of a WITH and
// requires the statement they feed to be a SELECT.
func checkTerminalSelect(stmt []sqlutil.Token) *Violation {
	i := 0
	for i < len(stmt) && stmt[i].Kind == sqlutil.LParen {
		i++
	}
	if !stmt[i].IsKeyword("WITH") {
		return nil
	}
	base := stmt[i].Depth
	malformed := suspicious("malformed common table expression")

	j := i + 1
	if j < len(stmt) && stmt[j].IsKeyword("RECURSIVE") {
		j++
	}
	for {
		for j < len(stmt) && !(stmt[j].Depth == base && stmt[j].IsKeyword("AS")) {
			j++
		}
		j++
		for j < len(stmt) && (stmt[j].IsKeyword("NOT") || stmt[j].IsKeyword("MATERIALIZED")) {
			j++
		}
		if j >= len(stmt) || stmt[j].Kind != sqlutil.LParen {
			return malformed
		}
		j++
		for j < len(stmt) && !(stmt[j].Kind == sqlutil.RParen && stmt[j].Depth == base) {
			j++
		}
		j++
		if j < len(stmt) && stmt[j].Kind == sqlutil.Comma && stmt[j].Depth == base {
			j++
			continue
		}
		break
	}

	for j < len(stmt) && stmt[j].Kind == sqlutil.LParen {
		j++
	}
	if j >= len(stmt) {
		return malformed
	}
	switch term := stmt[j]; {
	case term.IsKeyword("SELECT"):
		return nil
	case term.Kind == sqlutil.Word:
		return forbidden(term.Value)
	default:
		return malformed
	}
}

// checkForbidden matches bare words against every list. Quoted identifiers
// are only matched as function or package names, since engines resolve
// "pg_sleep"(1) to the same function while "delete" is an ordinary column.
func checkForbidden(stmt []sqlutil.Token) *Violation {
	for i, tok := range stmt {
		var name string
		switch tok.Kind {
		case sqlutil.Word:
			name = tok.Value
		case sqlutil.QuotedIdent:
			name = strings.ToUpper(tok.Value)
		default:
			continue
		}
		next := sqlutil.TokenKind(-1)
		if i+1 < len(stmt) {
			next = stmt[i+1].Kind
		}
		switch {
		case tok.Kind == sqlutil.Word && forbiddenKeywords[name] && !(functionKeywords[name] && next == sqlutil.LParen):
			return forbidden(name)
		case next == sqlutil.LParen && isForbiddenFunction(name):
			return forbidden(name)
		case next == sqlutil.Dot && forbiddenPackages[name]:
			return forbidden(name)
		}
	}
	return nil
}

// checkAmbiguousSyntax rejects constructs the target engines do not read
// alike: backslash escapes inside strings or double-quoted names (MySQL
// treats both as escapes), Oracle alternative quoting, system variables and
// in-query assignment.
func checkAmbiguousSyntax(stmt []sqlutil.Token) *Violation {
	for _, tok := range stmt {
		switch {
		case tok.Kind == sqlutil.String && tok.Quote == 'q':
			return suspicious("alternative quoting")
		case (tok.Quote == '\'' || tok.Quote == '"') && strings.ContainsRune(tok.Value, '\\'):
			return suspicious("backslash in string literal")
		case tok.Kind == sqlutil.Operator && tok.Text == "@@":
			return suspicious("system variable")
		case tok.Kind == sqlutil.Operator && tok.Text == ":=":
			return suspicious("assignment")
		}
	}
	return nil
}

// enforceLimit rewrites the top-level row limit to "LIMIT n [OFFSET m]" with
// n clamped to MaxRows, appending one when absent.
func (v *Validator) enforceLimit(body string, stmt []sqlutil.Token) Verdict {
	limit, ok, err := sqlutil.FindRowLimit(stmt)
	if err != nil {
		return reject(suspicious("malformed row limit"))
	}

	max := int64(v.policy.MaxRows)
	verdict := Verdict{Accepted: true, RowLimit: max}
	base := body
	offset := ""
	if ok {
		base = sqlutil.WithoutRowLimit(body, limit)
		offset = limit.OffsetText
		switch {
		case !limit.CountIsInt:
			verdict.Corrections = append(verdict.Corrections, Violation{
				Kind:   KindLimitExceeded,
				Reason: fmt.Sprintf("row limit %q replaced by %d", limit.CountText, max),
			})
		case limit.Count > max:
			verdict.Corrections = append(verdict.Corrections, Violation{
				Kind:   KindLimitExceeded,
				Reason: fmt.Sprintf("row limit %d reduced to %d", limit.Count, max),
			})
		default:
			verdict.RowLimit = limit.Count
		}
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(base))
	b.WriteString(" LIMIT ")
	b.WriteString(strconv.FormatInt(verdict.RowLimit, 10))
	if offset != "" {
		b.WriteString(" OFFSET ")
		b.WriteString(offset)
	}
	verdict.NormalizedSQL = b.String()
	return verdict
}

// Validate checks sql against a default Policy.
func Validate(sql string) Verdict {
	return New(Policy{}).Validate(sql)
}
