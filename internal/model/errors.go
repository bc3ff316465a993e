package model

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthorization
	KindNotFound
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Error is a domain error carrying its kind and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so callers can test against the
// Err* kind sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Message == "" || t.Message == e.Message)
}

// Kind sentinels. Compare with errors.Is.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrAuthorization = &Error{Kind: KindAuthorization}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrStore         = &Error{Kind: KindStore}
)

var (
	ErrTitleRequired        = &Error{Kind: KindValidation, Message: "title is required"}
	ErrSubtaskTitleRequired = &Error{Kind: KindValidation, Message: "subtask title is required"}
	ErrContentRequired      = &Error{Kind: KindValidation, Message: "content is required"}
	ErrTaskNotFound         = &Error{Kind: KindNotFound, Message: "task not found"}
	ErrNoteNotFound         = &Error{Kind: KindNotFound, Message: "note not found"}
	ErrNotOwner             = &Error{Kind: KindAuthorization, Message: "not authorized"}
)

// InvalidList reports an unknown list category.
func InvalidList(l List) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf("invalid list %q", string(l))}
}

// StoreError wraps a persistence failure.
func StoreError(op string, err error) error {
	return &Error{Kind: KindStore, Message: op, Err: err}
}

// KindOf returns the kind of err, or 0 when err is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
