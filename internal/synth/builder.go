package synth

import (
	"strconv"
	"strings"
)

// selectStmt assembles a single-line SELECT. Every identifier placed in it
// comes from the catalog, which only admits plain identifiers.
type selectStmt struct {
	columns []string
	from    string
	joins   []string
	where   []string
	groupBy []string
	orderBy []string
	limit   int
}

func (s selectStmt) String() string {
	parts := []string{"SELECT"}
	if len(s.columns) == 0 {
		parts = append(parts, "*")
	} else {
		parts = append(parts, strings.Join(s.columns, ", "))
	}
	parts = append(parts, "FROM", s.from)
	parts = append(parts, s.joins...)
	if len(s.where) > 0 {
		parts = append(parts, "WHERE", strings.Join(s.where, " AND "))
	}
	if len(s.groupBy) > 0 {
		parts = append(parts, "GROUP BY", strings.Join(s.groupBy, ", "))
	}
	if len(s.orderBy) > 0 {
		parts = append(parts, "ORDER BY", strings.Join(s.orderBy, ", "))
	}
	if s.limit > 0 {
		parts = append(parts, "LIMIT", strconv.Itoa(s.limit))
	}
	return strings.Join(parts, " ")
}

func qualify(alias string, columns ...string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = alias + "." + c
	}
	return out
}

// inList renders "col = 'a'" for one literal and "col IN ('a', 'b')" for several.
func inList(column string, literals []string) string {
	if len(literals) == 1 {
		return column + " = " + literals[0]
	}
	return column + " IN (" + strings.Join(literals, ", ") + ")"
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
