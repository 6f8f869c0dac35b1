// Package errs defines the closed error taxonomy shared by every component
// in this module. It stays on top of the standard library's error type
// rather than reaching for a third-party error-taxonomy package, keeping
// each wrapped cause reachable through Unwrap just as `fmt.Errorf("...: %w", err)`
// does.
package errs

import "errors"

// Kind is one member of the closed error-kind set used across the module.
type Kind string

const (
	// InputError kinds.
	MalformedField     Kind = "MalformedField"
	UnsupportedType    Kind = "UnsupportedType"
	RangeViolation     Kind = "RangeViolation"
	InconsistentTier   Kind = "InconsistentTier"
	ExpiredOrBackwards Kind = "ExpiredOrBackwards"

	// SignatureError kinds.
	BadSignature  Kind = "BadSignature"
	UnknownSigner Kind = "UnknownSigner"

	// StateError kinds.
	TaskNotPending    Kind = "TaskNotPending"
	TaskExpired       Kind = "TaskExpired"
	DuplicateResponse Kind = "DuplicateResponse"
	UnknownOperator   Kind = "UnknownOperator"
	Cancelled         Kind = "Cancelled"

	// InternalError kinds.
	CodecOverflow Kind = "CodecOverflow"
	Unexpected    Kind = "Unexpected"
)

// Category is the outer grouping each Kind is classified under.
type Category string

const (
	Input     Category = "InputError"
	Signature Category = "SignatureError"
	State     Category = "StateError"
	Internal  Category = "InternalError"
)

var categoryOf = map[Kind]Category{
	MalformedField:     Input,
	UnsupportedType:    Input,
	RangeViolation:     Input,
	InconsistentTier:   Input,
	ExpiredOrBackwards: Input,

	BadSignature:  Signature,
	UnknownSigner: Signature,

	TaskNotPending:    State,
	TaskExpired:       State,
	DuplicateResponse: State,
	UnknownOperator:   State,
	Cancelled:         State,

	CodecOverflow: Internal,
	Unexpected:    Internal,
}

// Error is the concrete error type returned across this module. Field names
// the offending input field when relevant.
type Error struct {
	Kind  Kind
	Field string
	cause error
}

func New(kind Kind, field string) *Error {
	return &Error{Kind: kind, Field: field}
}

func Wrap(kind Kind, field string, cause error) *Error {
	return &Error{Kind: kind, Field: field, cause: cause}
}

func (e *Error) Error() string {
	msg := string(categoryOf[e.Kind]) + ": " + string(e.Kind)
	if e.Field != "" {
		msg += " (field=" + e.Field + ")"
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Category() Category { return categoryOf[e.Kind] }

// Is reports whether err is (or wraps) an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
