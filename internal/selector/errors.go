package selector

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes selector errors.
type ErrorCode string

const (
	// ErrCodeEmptyQuery indicates the trimmed query is empty.
	ErrCodeEmptyQuery ErrorCode = "EMPTY_QUERY"

	// ErrCodeExpectedTerm indicates a name or '(' was required and absent.
	ErrCodeExpectedTerm ErrorCode = "EXPECTED_TERM"

	// ErrCodeUnbalancedParentheses indicates a '(' without ')' or a stray ')'.
	ErrCodeUnbalancedParentheses ErrorCode = "UNBALANCED_PARENTHESES"

	// ErrCodeExpectedOperator indicates a term directly followed by another term.
	ErrCodeExpectedOperator ErrorCode = "EXPECTED_OPERATOR"

	// ErrCodeUnknownTerm indicates a name that matches no source.
	ErrCodeUnknownTerm ErrorCode = "UNKNOWN_TERM"
)

// Error is a structured query error.
type Error struct {
	Code ErrorCode

	// Location is the 0-based rune offset of the problem (parser errors).
	Location int

	// Term is the offending name (ErrCodeUnknownTerm).
	Term string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeEmptyQuery:
		return fmt.Sprintf("%s: empty query", e.Code)
	case ErrCodeExpectedTerm:
		return fmt.Sprintf("%s: expected a name or '(' at %d", e.Code, e.Location)
	case ErrCodeUnbalancedParentheses:
		return fmt.Sprintf("%s: unbalanced parentheses at %d", e.Code, e.Location)
	case ErrCodeExpectedOperator:
		return fmt.Sprintf("%s: expected '|' or '&' at %d", e.Code, e.Location)
	case ErrCodeUnknownTerm:
		return fmt.Sprintf("%s: unknown source %q", e.Code, e.Term)
	}
	return fmt.Sprintf("%s: at %d", e.Code, e.Location)
}

// IsParseError reports whether the error is a syntax error, as opposed to
// an empty query or an unknown name.
func (e *Error) IsParseError() bool {
	switch e.Code {
	case ErrCodeExpectedTerm, ErrCodeUnbalancedParentheses, ErrCodeExpectedOperator:
		return true
	}
	return false
}

// AsError extracts a selector *Error from err.
// Uses errors.As to handle wrapped errors.
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsUnknownTerm returns true if the error is an unknown source name.
func IsUnknownTerm(err error) bool {
	se, ok := AsError(err)
	return ok && se.Code == ErrCodeUnknownTerm
}

func errAt(code ErrorCode, location int) *Error {
	return &Error{Code: code, Location: location}
}
