// Package evalerr defines the eight fatal error kinds of the evaluator
// (§7). Every one is constructed with github.com/pkg/errors so a caller
// printing "%+v" sees the stack from the point of failure to the pass
// boundary, the way cuelang.org/go and dolthub/go-mysql-server annotate
// their own evaluation errors. None of these kinds are caught or
// retried internally; a failed pass leaves the caller's inputs
// unchanged (§7).
package evalerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind names one of the fatal error kinds: the eight of §7 plus
// UnknownExpression and InvalidOperand.
type Kind string

const (
	UnresolvedPath         Kind = "UnresolvedPath"
	TypeMismatch           Kind = "TypeMismatch"
	IndexOutOfBounds       Kind = "IndexOutOfBounds"
	Unimplemented          Kind = "Unimplemented"
	UnsubstitutedVarying   Kind = "UnsubstitutedVarying"
	UnsupportedListElement Kind = "UnsupportedListElement"
	ShapeOrderingUnmatched Kind = "ShapeOrderingUnmatched"
	UnexpectedGPI          Kind = "UnexpectedGPI"
	// UnknownExpression is not one of §7's eight kinds but is required
	// by §4.4's "Unknown kind" rule; it shares the same fatal,
	// uncaught treatment.
	UnknownExpression Kind = "UnknownExpression"
	// InvalidOperand is named by §4.2 for UPlus, which is always
	// rejected; it is not one of §7's eight kinds but is fatal in the
	// same way.
	InvalidOperand Kind = "InvalidOperand"
)

// Error captures the offending expression or path alongside the kind,
// so a diagnostic can point back at what the translation actually
// contained (§7: "All errors are surfaced to the caller with the
// offending expression/path captured for diagnostics.").
type Error struct {
	Kind Kind
	// Subject is the canonical string form of the offending path or a
	// short description of the offending expression.
	Subject string
	Msg     string
}

func (e *Error) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s at %s: %s", e.Kind, e.Subject, e.Msg)
}

// New constructs a stack-traced error of the given kind.
func New(kind Kind, subject, format string, args ...interface{}) error {
	return errors.WithStack(&Error{
		Kind:    kind,
		Subject: subject,
		Msg:     fmt.Sprintf(format, args...),
	})
}

// Is reports whether err is an *Error of the given kind, unwrapping any
// github.com/pkg/errors stack annotation along the way.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err if it is an *Error, and false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
