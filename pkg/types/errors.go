package types

import "fmt"

// ErrorCode represents a structured engine error code.
type ErrorCode string

// Error codes grouped by detection phase.
const (
	// Static errors (compile time, always fatal)
	ErrUndeclaredVariable ErrorCode = "XPST0008"
	ErrUnknownFunction    ErrorCode = "XPST0017"
	ErrStaticType         ErrorCode = "XPST0005"
	ErrUnknownPrefix      ErrorCode = "XPST0081"
	ErrSyntax             ErrorCode = "XPST0003"

	// Type errors (statically detected or raised during evaluation)
	ErrTypeMismatch        ErrorCode = "XPTY0004"
	ErrMixedNodesAndAtomic ErrorCode = "XPTY0018"
	ErrAxisOnAtomic        ErrorCode = "XPTY0020"

	// Dynamic errors
	ErrNoContextItem       ErrorCode = "XPDY0002"
	ErrUnboundReference    ErrorCode = "XPDY0050"
	ErrBadEffectiveBoolean ErrorCode = "FORG0006"
	ErrCastFailed          ErrorCode = "FORG0001"
	ErrEmptyNotAllowed     ErrorCode = "FORG0003"
	ErrMoreThanOne         ErrorCode = "FORG0004"
	ErrDivisionByZero      ErrorCode = "FOAR0001"
	ErrNumericOverflow     ErrorCode = "FOAR0002"
	ErrNotComparable       ErrorCode = "FOTY0013"
	ErrUnknownCollation    ErrorCode = "FOCH0002"
	ErrRecursionTooDeep    ErrorCode = "XTDE0560"
	ErrBadCardinality      ErrorCode = "XTTE0505"
	ErrContentTypeMismatch ErrorCode = "XTTE0510"

	// Update-consistency errors (result-document pipeline)
	ErrResultURIConflict ErrorCode = "XTDE1490"
	ErrResultURIRead     ErrorCode = "XTRE1500"
)

// ErrorKind classifies an error within the engine taxonomy.
type ErrorKind int

const (
	// StaticError is detected at compile/type-check time and always
	// aborts compilation.
	StaticError ErrorKind = iota
	// TypeError is a type-related dynamic error; it may be promoted to
	// static when provable at compile time.
	TypeError
	// DynamicError is detected only during evaluation.
	DynamicError
	// UpdateConsistencyError reports a read/write conflict on a result
	// destination within a single run.
	UpdateConsistencyError
)

func (k ErrorKind) String() string {
	switch k {
	case StaticError:
		return "static error"
	case TypeError:
		return "type error"
	case DynamicError:
		return "dynamic error"
	case UpdateConsistencyError:
		return "update consistency error"
	}
	return "error"
}

// Location identifies a source position for diagnostics.
type Location struct {
	Line   int
	Column int
	Module string
}

// IsZero reports whether no location information is present.
func (l Location) IsZero() bool { return l.Line == 0 && l.Column == 0 && l.Module == "" }

func (l Location) String() string {
	if l.Module != "" {
		return fmt.Sprintf("%s:%d:%d", l.Module, l.Line, l.Column)
	}
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Error represents a structured engine error.
type Error struct {
	Kind    ErrorKind
	Code    ErrorCode
	Message string
	Loc     Location
	// Reported is set once the error has been delivered to an error
	// listener, so that catch-annotate-rethrow layers do not notify the
	// listener twice.
	Reported bool
	Err      error
}

// NewStaticError creates a compile-time error.
func NewStaticError(code ErrorCode, message string) *Error {
	return &Error{Kind: StaticError, Code: code, Message: message}
}

// NewTypeError creates a type error.
func NewTypeError(code ErrorCode, message string) *Error {
	return &Error{Kind: TypeError, Code: code, Message: message}
}

// NewDynamicError creates a runtime error.
func NewDynamicError(code ErrorCode, message string) *Error {
	return &Error{Kind: DynamicError, Code: code, Message: message}
}

// NewUpdateError creates an update-consistency error.
func NewUpdateError(code ErrorCode, message string) *Error {
	return &Error{Kind: UpdateConsistencyError, Code: code, Message: message}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if !e.Loc.IsZero() {
		return fmt.Sprintf("%s at %s: %s", e.Code, e.Loc, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error { return e.Err }

// WithLocation attaches a source location if none is present yet.
// Wrapper expressions call this while rethrowing so the innermost
// location wins.
func (e *Error) WithLocation(loc Location) *Error {
	if e.Loc.IsZero() {
		e.Loc = loc
	}
	return e
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// AsEngineError converts any error to *Error, wrapping foreign errors as
// dynamic errors so every fault reaching a run boundary carries a code.
func AsEngineError(err error) *Error {
	if err == nil {
		return nil
	}
	if ee, ok := err.(*Error); ok {
		return ee
	}
	return &Error{Kind: DynamicError, Code: "FOER0000", Message: err.Error(), Err: err}
}
