// Package dialect rewrites validated SQL for a target engine: row-limit
// syntax, bind placeholders and identifier quoting.
package dialect

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dbsmedya/nlquery/internal/sqlutil"
)

// Target is a SQL engine the pipeline can execute against.
type Target int

const (
	Postgres Target = iota + 1
	MySQL
	Oracle
)

// ErrDialectUnsupported is returned for an unknown target or target name.
var ErrDialectUnsupported = errors.New("unsupported SQL dialect")

var targetNames = map[Target]string{
	Postgres: "postgresql",
	MySQL:    "mysql",
	Oracle:   "oracle",
}

// All returns every supported target.
func All() []Target {
	return []Target{Postgres, MySQL, Oracle}
}

// String returns the wire name: postgresql, mysql or oracle.
func (t Target) String() string {
	if name, ok := targetNames[t]; ok {
		return name
	}
	return "Target(" + strconv.Itoa(int(t)) + ")"
}

// Valid reports whether t is a supported target.
func (t Target) Valid() bool {
	_, ok := targetNames[t]
	return ok
}

// ParseTarget parses a target name, case-insensitively. "postgres" is
// accepted as an alias of "postgresql".
func ParseTarget(name string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgresql", "postgres":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	case "oracle":
		return Oracle, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrDialectUnsupported, name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Target) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrDialectUnsupported, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Target) UnmarshalText(text []byte) error {
	parsed, err := ParseTarget(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Placeholder renders the n-th (1-based) bind parameter.
func (t Target) Placeholder(n int) string {
	switch t {
	case MySQL:
		return "?"
	case Oracle:
		return ":" + strconv.Itoa(n)
	default:
		return "$" + strconv.Itoa(n)
	}
}

func (t Target) identQuote() rune {
	if t == MySQL {
		return '`'
	}
	return '"'
}

// QuoteIdentifier quotes name for t: backticks for MySQL, double quotes
// otherwise. Embedded quote characters are doubled.
func QuoteIdentifier(name string, t Target) string {
	return sqlutil.QuoteWith(name, t.identQuote())
}

// limitClause renders a row limit in t's form.
func (t Target) limitClause(count, offset string) string {
	if t == Oracle {
		if offset == "" {
			return "FETCH FIRST " + count + " ROWS ONLY"
		}
		return "OFFSET " + offset + " ROWS FETCH NEXT " + count + " ROWS ONLY"
	}
	if offset == "" {
		return "LIMIT " + count
	}
	return "LIMIT " + count + " OFFSET " + offset
}
