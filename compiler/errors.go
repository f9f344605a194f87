package compiler

import (
	"errors"
	"fmt"
)

// Kinds of compilation failures. A *CompilationError unwraps to one of them.
var (
	// ErrCountMismatch means the number of directives bound by the markup differs
	// from the length of the directive list.
	ErrCountMismatch = errors.New("directive count mismatch")
	// ErrUnresolvedMarker means a marker comment references a directive that does not exist.
	ErrUnresolvedMarker = errors.New("unresolved marker")
	// ErrUnresolvedPlaceholder means an inline placeholder does not name an existing directive.
	ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")
	// ErrDuplicateReference means a directive is referenced by more than one
	// placeholder or marker.
	ErrDuplicateReference = errors.New("directive referenced more than once")
	// ErrBehaviorInterpolation means an attached behavior was mixed with other content in a value.
	ErrBehaviorInterpolation = errors.New("attached behavior used in interpolation")
)

// CompilationError reports a template whose markup and directive list do not match.
type CompilationError struct {
	Kind     error
	Index    int // offending directive index, -1 when not applicable
	Located  int
	Expected int
	Detail   string
}

func (e *CompilationError) Error() string {
	msg := "template compilation failed: " + e.Kind.Error()
	if e.Kind == ErrCountMismatch {
		msg += fmt.Sprintf(": located %d of %d directive(s)", e.Located, e.Expected)
	} else if e.Index >= 0 {
		msg += fmt.Sprintf(": directive index %d (have %d)", e.Index, e.Expected)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *CompilationError) Unwrap() error {
	return e.Kind
}
