package pipeline

import (
	"fmt"
)

// ErrorKind classifies a pipeline failure.
type ErrorKind string

const (
	KindNoMatch              ErrorKind = "NoMatch"
	KindForbiddenCommand     ErrorKind = "ForbiddenCommand"
	KindMultiStatement       ErrorKind = "MultiStatement"
	KindSuspiciousSyntax     ErrorKind = "SuspiciousSyntax"
	KindLimitExceeded        ErrorKind = "LimitExceeded"
	KindDialectUnsupported   ErrorKind = "DialectUnsupported"
	KindExecutionTimeout     ErrorKind = "ExecutionTimeout"
	KindConnectorUnavailable ErrorKind = "ConnectorUnavailable"
	KindExecutionFailed      ErrorKind = "ExecutionFailed"
	KindInvalidQuestion      ErrorKind = "InvalidQuestion"
	KindEmptyQuery           ErrorKind = "EmptyQuery"
	KindInternal             ErrorKind = "Internal"
)

// Error is returned by Run. Err keeps the underlying cause for logs; it is
// never part of PublicMessage.
type Error struct {
	Kind    ErrorKind
	Keyword string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	msg := e.PublicMessage()
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// PublicMessage is safe to return to clients: it names the category and the
// offending keyword or fixed reason, never driver or parser output.
func (e *Error) PublicMessage() string {
	switch e.Kind {
	case KindForbiddenCommand:
		if e.Keyword != "" {
			return fmt.Sprintf("Query rejected: forbidden command %s", e.Keyword)
		}
		return "Query rejected: forbidden command"
	case KindMultiStatement:
		return "Query rejected: multiple statements are not allowed"
	case KindSuspiciousSyntax:
		if e.Detail != "" {
			return "Query rejected: suspicious syntax (" + e.Detail + ")"
		}
		return "Query rejected: suspicious syntax"
	case KindEmptyQuery:
		return "Query rejected: empty query"
	case KindInvalidQuestion:
		if e.Detail != "" {
			return "Invalid question: " + e.Detail
		}
		return "Invalid question"
	case KindNoMatch:
		return "Could not generate a query for this question"
	case KindDialectUnsupported:
		return "Unsupported database type"
	case KindExecutionTimeout:
		return "Query execution timed out"
	case KindConnectorUnavailable:
		return "Database unavailable"
	case KindExecutionFailed:
		return "Query execution failed"
	default:
		return "Internal error"
	}
}

// Rejected reports whether the kind is a refusal of the input rather than a
// failure while serving it.
func (k ErrorKind) Rejected() bool {
	switch k {
	case KindForbiddenCommand, KindMultiStatement, KindSuspiciousSyntax,
		KindEmptyQuery, KindInvalidQuestion, KindDialectUnsupported:
		return true
	}
	return false
}

func newError(kind ErrorKind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}
