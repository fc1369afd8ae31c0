package dialect

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dbsmedya/nlquery/internal/sqlutil"
)

// ErrPlaceholderOrder is returned when ordinal placeholders cannot be turned
// into positional ones without reordering the arguments.
var ErrPlaceholderOrder = errors.New("placeholders must appear in order 1..n for positional binding")

// ErrNamedPlaceholder is returned for :name placeholders, which have no
// ordinal to carry across dialects.
var ErrNamedPlaceholder = errors.New("named placeholders are not supported")

// Adapt rewrites a validated statement for target. The trailing row limit
// becomes LIMIT n [OFFSET m] for Postgres and MySQL, and
// [OFFSET m ROWS] FETCH FIRST|NEXT n ROWS ONLY for Oracle. Placeholders become
// $n, ? or :n and quoted identifiers are re-quoted for the target. Adapt never
// adds or reorders clauses, and adapting its own output again returns it
// unchanged.
//
// Adapt does not check safety. Callers pass it only validator output.
func Adapt(sql string, target Target) (string, error) {
	if !target.Valid() {
		return "", fmt.Errorf("%w: %s", ErrDialectUnsupported, target)
	}

	tokens, err := sqlutil.Tokenize(sql)
	if err != nil {
		return "", fmt.Errorf("adapt: %w", err)
	}
	end := len(sql)
	if n := len(tokens); n > 0 && tokens[n-1].Kind == sqlutil.Semicolon {
		end = tokens[n-1].Pos
		tokens = tokens[:n-1]
	}

	text, err := rewriteTokens(sql[:end], tokens, target)
	if err != nil {
		return "", err
	}

	tokens, err = sqlutil.Tokenize(text)
	if err != nil {
		return "", fmt.Errorf("adapt: %w", err)
	}
	code := make([]sqlutil.Token, 0, len(tokens))
	for _, tok := range tokens {
		if !tok.IsComment() {
			code = append(code, tok)
		}
	}
	limit, ok, err := sqlutil.FindRowLimit(code)
	if err != nil {
		return "", fmt.Errorf("adapt: %w", err)
	}
	if !ok {
		return strings.TrimSpace(text), nil
	}
	head := strings.TrimSpace(sqlutil.WithoutRowLimit(text, limit))
	return head + " " + target.limitClause(limit.CountText, limit.OffsetText), nil
}

// rewriteTokens renumbers placeholders and re-quotes identifiers.
func rewriteTokens(src string, tokens []sqlutil.Token, target Target) (string, error) {
	var edits []sqlutil.Edit
	positional := 0
	for _, tok := range tokens {
		switch tok.Kind {
		case sqlutil.Placeholder:
			positional++
			n, err := ordinal(tok, positional)
			if err != nil {
				return "", err
			}
			if target == MySQL && n != positional {
				return "", ErrPlaceholderOrder
			}
			if text := target.Placeholder(n); text != tok.Text {
				edits = append(edits, sqlutil.Edit{Start: tok.Pos, End: tok.End, Text: text})
			}
		case sqlutil.QuotedIdent:
			if tok.Quote != target.identQuote() {
				edits = append(edits, sqlutil.Edit{Start: tok.Pos, End: tok.End, Text: QuoteIdentifier(tok.Value, target)})
			}
		}
	}
	return sqlutil.ApplyEdits(src, edits), nil
}

// ordinal returns the 1-based parameter number of a placeholder token. A
// positional ? takes its position among all placeholders.
func ordinal(tok sqlutil.Token, position int) (int, error) {
	if tok.Text == "?" {
		return position, nil
	}
	n, err := strconv.Atoi(tok.Text[1:])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s", ErrNamedPlaceholder, tok.Text)
	}
	return n, nil
}
