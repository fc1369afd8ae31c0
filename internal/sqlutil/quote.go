package sqlutil

import (
	"regexp"
	"strings"
)

// QuoteWith quotes an identifier with the given quote character, escaping any
// embedded quote by doubling it.
// Example: ("my_table", '`') -> "`my_table`"
// Example: (`we"ird`, '"') -> `"we""ird"`
func QuoteWith(name string, quote rune) string {
	q := string(quote)
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// QuoteString renders s as a single-quoted SQL string literal.
func QuoteString(s string) string {
	return QuoteWith(s, '\'')
}

// validIdentifierRegex restricts catalog identifiers to letters, digits and
// underscores, starting with a letter or underscore.
var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z_][a-zA-Z0-9_]*$")

// IsValidIdentifier checks if a name is usable unquoted in every supported dialect.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// QuoteIdentifierSafe quotes an identifier after validating it.
// Returns an error if the identifier contains invalid characters.
func QuoteIdentifierSafe(name string, quote rune) (string, error) {
	if !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	return QuoteWith(name, quote), nil
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must start with a letter or underscore and contain only alphanumeric characters and underscores)"
}
