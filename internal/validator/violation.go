package validator

import "fmt"

// Kind is the category of a rejected or corrected statement.
type Kind string

const (
	KindEmptyQuery       Kind = "EmptyQuery"
	KindMultiStatement   Kind = "MultiStatement"
	KindForbiddenCommand Kind = "ForbiddenCommand"
	KindSuspiciousSyntax Kind = "SuspiciousSyntax"
	KindLimitExceeded    Kind = "LimitExceeded"
)

// Violation describes why a statement was rejected, or for LimitExceeded,
// what was corrected. It never carries tokenizer or driver text.
type Violation struct {
	Kind Kind
	// Keyword is the offending keyword or function, upper-cased.
	Keyword string
	// Reason is a short fixed description for SuspiciousSyntax and corrections.
	Reason string
}

func (v *Violation) Error() string {
	switch {
	case v.Keyword != "":
		return fmt.Sprintf("%s: %s", v.Kind, v.Keyword)
	case v.Reason != "":
		return fmt.Sprintf("%s: %s", v.Kind, v.Reason)
	default:
		return string(v.Kind)
	}
}

// Is matches another *Violation of the same kind.
func (v *Violation) Is(target error) bool {
	t, ok := target.(*Violation)
	return ok && t.Kind == v.Kind
}

func forbidden(keyword string) *Violation {
	return &Violation{Kind: KindForbiddenCommand, Keyword: keyword}
}

func suspicious(reason string) *Violation {
	return &Violation{Kind: KindSuspiciousSyntax, Reason: reason}
}
