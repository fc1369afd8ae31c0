package synth

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// numberWords covers the spelled-out counts people use in ranking questions.
var numberWords = map[string]float64{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
	"thirty": 30, "forty": 40, "fifty": 50, "hundred": 100,
}

// Question is a normalized question ready for rule matching.
type Question struct {
	Text  string
	Words []string
	set   map[string]bool
}

// Normalize lowercases the question, drops currency symbols and thousands
// separators inside numbers, replaces other punctuation with spaces and
// collapses whitespace. "$1,000.50!" becomes "1000.50".
func Normalize(question string) string {
	rs := []rune(strings.ToLower(question))
	var b strings.Builder
	for i, r := range rs {
		betweenDigits := i > 0 && i+1 < len(rs) && isDigit(rs[i-1]) && isDigit(rs[i+1])
		switch {
		case unicode.IsLetter(r) || isDigit(r):
			b.WriteRune(r)
		case r == ',' && betweenDigits:
		case r == '.' && betweenDigits:
			b.WriteRune(r)
		case r == '\'' || r == '’':
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NewQuestion normalizes and indexes a question.
func NewQuestion(question string) *Question {
	text := Normalize(question)
	words := strings.Fields(text)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return &Question{Text: text, Words: words, set: set}
}

// Has reports whether any of the terms occurs. A term containing a space is
// matched as a phrase on word boundaries.
func (q *Question) Has(terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(term, " ") {
			if strings.Contains(" "+q.Text+" ", " "+term+" ") {
				return true
			}
			continue
		}
		if q.set[term] {
			return true
		}
	}
	return false
}

// Numbers returns every numeric token in question order.
func (q *Question) Numbers() []float64 {
	var out []float64
	for _, w := range q.Words {
		if n, ok := parseNumber(w); ok {
			out = append(out, n)
		}
	}
	return out
}

// FirstNumber returns the first numeric token.
func (q *Question) FirstNumber() (float64, bool) {
	for _, w := range q.Words {
		if n, ok := parseNumber(w); ok {
			return n, true
		}
	}
	return 0, false
}

// NumberAfter returns the first number that follows one of the phrases within
// two words, e.g. "over 5000" or "greater than usd 5000".
func (q *Question) NumberAfter(phrases ...string) (float64, bool) {
	for _, phrase := range phrases {
		pw := strings.Fields(phrase)
		for i := 0; i+len(pw) <= len(q.Words); i++ {
			if !wordsEqual(q.Words[i:i+len(pw)], pw) {
				continue
			}
			end := i + len(pw)
			for j := end; j < len(q.Words) && j < end+2; j++ {
				if n, ok := parseNumber(q.Words[j]); ok {
					return n, true
				}
			}
		}
	}
	return 0, false
}

func wordsEqual(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// parseNumber accepts digits with an optional decimal part and a k/m suffix,
// or a spelled-out number word.
func parseNumber(w string) (float64, bool) {
	if n, ok := numberWords[w]; ok {
		return n, true
	}
	if w == "" || !isDigit(rune(w[0])) {
		return 0, false
	}
	mult := 1.0
	switch {
	case strings.HasSuffix(w, "k"):
		mult, w = 1e3, strings.TrimSuffix(w, "k")
	case strings.HasSuffix(w, "m"):
		mult, w = 1e6, strings.TrimSuffix(w, "m")
	}
	n, err := strconv.ParseFloat(w, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n * mult, true
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
