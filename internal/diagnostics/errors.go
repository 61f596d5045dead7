package diagnostics

import (
	"fmt"
	"strings"

	ts "github.com/funvibe/tynorm/internal/typesystem"
)

type ErrorCode string

const (
	ErrN001 ErrorCode = "N001" // overflow normalizing an opaque type
	ErrN002 ErrorCode = "N002" // overflow normalizing a type alias
	ErrN003 ErrorCode = "N003" // unsatisfied obligation
	ErrN004 ErrorCode = "N004" // ambiguous obligation
	ErrN005 ErrorCode = "N005" // syntax error
	ErrN006 ErrorCode = "N006" // nesting limit reached
	ErrN007 ErrorCode = "N007" // invalid definition
	ErrN008 ErrorCode = "N008" // overflow evaluating a projection
)

// RecursiveAliasNote is attached to alias overflows.
const RecursiveAliasNote = "in case this is a recursive type alias, consider using a struct, enum, or union instead"

// DiagnosticError is a located, coded error.
type DiagnosticError struct {
	Code    ErrorCode
	Span    ts.Span
	Message string
	Notes   []string
}

func NewError(code ErrorCode, span ts.Span, message string) *DiagnosticError {
	return &DiagnosticError{Code: code, Span: span, Message: message}
}

// Errorf builds a diagnostic with a formatted message.
func Errorf(code ErrorCode, span ts.Span, format string, args ...interface{}) *DiagnosticError {
	return NewError(code, span, fmt.Sprintf(format, args...))
}

// WithNote appends a note and returns the same diagnostic.
func (e *DiagnosticError) WithNote(note string) *DiagnosticError {
	e.Notes = append(e.Notes, note)
	return e
}

func (e *DiagnosticError) Error() string {
	var sb strings.Builder
	if !e.Span.IsZero() {
		sb.WriteString(e.Span.String())
		sb.WriteString(": ")
	}
	fmt.Fprintf(&sb, "error[%s]: %s", e.Code, e.Message)
	for _, n := range e.Notes {
		sb.WriteString("\n  note: ")
		sb.WriteString(n)
	}
	return sb.String()
}

// OverflowDiagnostic builds the diagnostic for a recursion overflow while
// normalizing term. Projections and associated constants get their own
// wording without the recursive alias note.
func OverflowDiagnostic(term ts.Term, span ts.Span, opaque bool) *DiagnosticError {
	switch {
	case opaque:
		return Errorf(ErrN001, span, "overflow normalizing the opaque type `%s`", term)
	case IsProjection(term):
		return Errorf(ErrN008, span, "overflow evaluating the projection `%s`", term)
	}
	return Errorf(ErrN002, span, "overflow normalizing the type alias `%s`", term).WithNote(RecursiveAliasNote)
}

// IsProjection reports whether term is resolved through impl selection
// rather than by expanding a definition body.
func IsProjection(term ts.Term) bool {
	switch t := term.(type) {
	case *ts.TAlias:
		return t.Kind == ts.Projection || t.Kind == ts.Inherent
	case *ts.CAlias:
		return t.Assoc
	}
	return false
}
