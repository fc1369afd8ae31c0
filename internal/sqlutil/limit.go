package sqlutil

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// LimitForm identifies how a row-limit clause was written.
type LimitForm int

const (
	// FormLimit is LIMIT n [OFFSET m] or MySQL's LIMIT m, n.
	FormLimit LimitForm = iota
	// FormFetch is [OFFSET m ROWS] FETCH FIRST|NEXT n ROWS ONLY.
	FormFetch
)

// RowLimit describes the trailing top-level row-limit clause of a statement.
type RowLimit struct {
	Form LimitForm
	// Start and End delimit the whole clause as byte offsets into the source.
	Start, End int
	// Count is the integer row count. It is only meaningful when CountIsInt.
	Count      int64
	CountIsInt bool
	// CountText is the raw count expression, e.g. "10", "$1" or "ALL".
	CountText string
	// OffsetText is the raw offset expression, empty when the clause has none.
	OffsetText string
}

// ErrMalformedLimit is returned when a top-level LIMIT, OFFSET or FETCH clause
// does not match any supported shape.
var ErrMalformedLimit = errors.New("malformed row limit clause")

// FindRowLimit locates the row-limit clause at parenthesis depth zero.
// Comment and trailing semicolon tokens must already be removed.
// ok is false when the statement has no row limit.
func FindRowLimit(tokens []Token) (limit RowLimit, ok bool, err error) {
	start := -1
	for i, tok := range tokens {
		if tok.Depth == 0 && (tok.IsKeyword("LIMIT") || tok.IsKeyword("OFFSET") || tok.IsKeyword("FETCH")) {
			start = i
			break
		}
	}
	if start < 0 {
		return RowLimit{}, false, nil
	}

	p := &limitParser{tokens: tokens, i: start}
	if err := p.parse(); err != nil {
		return RowLimit{}, false, err
	}
	if !p.sawCount {
		// A bare OFFSET bounds nothing.
		return RowLimit{}, false, ErrMalformedLimit
	}

	limit = RowLimit{
		Form:       p.form,
		Start:      tokens[start].Pos,
		End:        tokens[len(tokens)-1].End,
		CountText:  p.count,
		OffsetText: p.offset,
	}
	if n, err := strconv.ParseInt(p.count, 10, 64); err == nil && n >= 0 {
		limit.Count, limit.CountIsInt = n, true
	}
	return limit, true, nil
}

type limitParser struct {
	tokens   []Token
	i        int
	form     LimitForm
	count    string
	offset   string
	sawCount bool
}

func (p *limitParser) done() bool { return p.i >= len(p.tokens) }

func (p *limitParser) peek() Token { return p.tokens[p.i] }

func (p *limitParser) accept(kw ...string) bool {
	if p.done() {
		return false
	}
	for _, k := range kw {
		if p.peek().IsKeyword(k) {
			p.i++
			return true
		}
	}
	return false
}

func (p *limitParser) parse() error {
	for !p.done() {
		switch {
		case p.accept("LIMIT"):
			if p.sawCount {
				return ErrMalformedLimit
			}
			expr, err := p.expr("OFFSET", "FETCH", "LIMIT")
			if err != nil {
				return err
			}
			p.form, p.count, p.sawCount = FormLimit, expr, true
			if !p.done() && p.peek().Kind == Comma {
				// MySQL LIMIT offset, count
				p.i++
				count, err := p.expr("OFFSET", "FETCH", "LIMIT")
				if err != nil || p.offset != "" {
					return ErrMalformedLimit
				}
				p.offset, p.count = expr, count
			}
		case p.accept("OFFSET"):
			if p.offset != "" {
				return ErrMalformedLimit
			}
			expr, err := p.expr("ROW", "ROWS", "LIMIT", "FETCH")
			if err != nil {
				return err
			}
			p.offset = expr
			p.accept("ROW", "ROWS")
		case p.accept("FETCH"):
			if p.sawCount || !p.accept("FIRST", "NEXT") {
				return ErrMalformedLimit
			}
			count := "1"
			if !p.done() && !p.peek().IsKeyword("ROW") && !p.peek().IsKeyword("ROWS") {
				expr, err := p.expr("ROW", "ROWS")
				if err != nil {
					return err
				}
				count = expr
			}
			if !p.accept("ROW", "ROWS") || !p.accept("ONLY") {
				return ErrMalformedLimit
			}
			p.form, p.count, p.sawCount = FormFetch, count, true
		default:
			return ErrMalformedLimit
		}
	}
	return nil
}

// clauseWords end a limit expression; seeing one after the limit is malformed.
var clauseWords = map[string]bool{
	"UNION": true, "INTERSECT": true, "EXCEPT": true, "MINUS": true,
	"SELECT": true, "FROM": true, "WHERE": true, "GROUP": true, "HAVING": true,
	"ORDER": true, "WINDOW": true, "FOR": true, "INTO": true,
}

// expr consumes tokens up to the next stop keyword or comma and returns their text.
func (p *limitParser) expr(stops ...string) (string, error) {
	begin := p.i
	for !p.done() {
		tok := p.peek()
		if tok.Depth == 0 && (tok.Kind == Comma || tok.Kind == Word && clauseWords[tok.Value]) {
			break
		}
		stop := false
		for _, s := range stops {
			if tok.Depth == 0 && tok.IsKeyword(s) {
				stop = true
				break
			}
		}
		if stop {
			break
		}
		p.i++
	}
	if p.i == begin {
		return "", ErrMalformedLimit
	}
	return Join(p.tokens[begin:p.i]), nil
}

// Join renders tokens back to text separated by single spaces, except around
// dots and inside parentheses.
func Join(tokens []Token) string {
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			prev := tokens[i-1]
			if prev.Kind != Dot && prev.Kind != LParen && tok.Kind != Dot && tok.Kind != RParen && tok.Kind != Comma && tok.Kind != LParen {
				b.WriteByte(' ')
			}
		}
		b.WriteString(tok.Text)
	}
	return b.String()
}

// Edit replaces the byte range [Start, End) of a source string with Text.
type Edit struct {
	Start, End int
	Text       string
}

// ApplyEdits applies non-overlapping edits to src.
func ApplyEdits(src string, edits []Edit) string {
	if len(edits) == 0 {
		return src
	}
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var b strings.Builder
	last := 0
	for _, e := range sorted {
		b.WriteString(src[last:e.Start])
		b.WriteString(e.Text)
		last = e.End
	}
	b.WriteString(src[last:])
	return b.String()
}

// WithoutRowLimit returns src with the clause removed and trailing space trimmed.
func WithoutRowLimit(src string, limit RowLimit) string {
	return strings.TrimRightFunc(src[:limit.Start], isSpace) + src[limit.End:]
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}
