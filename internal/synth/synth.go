// Package synth turns a natural-language question into SQL with an ordered
// list of keyword rules. It is the fallback when no language model is
// configured and the baseline any generated SQL is held to.
package synth

import (
	"errors"

	"github.com/dbsmedya/nlquery/internal/schema"
	"github.com/dbsmedya/nlquery/internal/types"
)

const (
	// DefaultLimit bounds the catch-all and filter queries.
	DefaultLimit = 15
	// RecentLimit bounds "recent/latest" queries.
	RecentLimit = 20
	// DefaultRankingLimit is used when a ranking question names no count.
	DefaultRankingLimit = 10
	// MaxRankingLimit caps counts taken from the question.
	MaxRankingLimit = 100
)

// ErrNoMatch is returned only when the catalog has no table to query.
var ErrNoMatch = errors.New("no table can be inferred from the schema")

// errSkip lets a matched rule hand over to the next one when the catalog
// lacks what it needs.
var errSkip = errors.New("rule does not apply to this catalog")

// Rule pairs a predicate over the normalized question with a SQL template.
type Rule struct {
	Name  string
	Match func(q *Question) bool
	Build func(q *Question, cat *schema.Catalog) (types.Candidate, error)
}

// Synthesizer evaluates rules in order; the first rule that matches and
// builds wins.
type Synthesizer struct {
	rules []Rule
}

// New returns a Synthesizer using DefaultRules.
func New() *Synthesizer {
	return &Synthesizer{rules: DefaultRules()}
}

// NewWithRules returns a Synthesizer with a custom rule order.
func NewWithRules(rules []Rule) *Synthesizer {
	return &Synthesizer{rules: rules}
}

// RuleNames lists the rules in evaluation order.
func (s *Synthesizer) RuleNames() []string {
	names := make([]string, len(s.rules))
	for i, r := range s.rules {
		names[i] = r.Name
	}
	return names
}

// Synthesize builds a candidate for question against cat.
func (s *Synthesizer) Synthesize(question string, cat *schema.Catalog) (types.Candidate, error) {
	if cat.IsEmpty() {
		return types.Candidate{}, ErrNoMatch
	}

	q := NewQuestion(question)
	for _, rule := range s.rules {
		if !rule.Match(q) {
			continue
		}
		cand, err := rule.Build(q, cat)
		if errors.Is(err, errSkip) {
			continue
		}
		if err != nil {
			return types.Candidate{}, err
		}
		cand.Source = types.SourceKeyword
		cand.Rule = rule.Name
		return cand, nil
	}
	return types.Candidate{}, ErrNoMatch
}

// Synthesize runs the default rules.
func Synthesize(question string, cat *schema.Catalog) (types.Candidate, error) {
	return New().Synthesize(question, cat)
}
