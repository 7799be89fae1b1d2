package hackernews

// errors.go defines the errors returned to API callers

import (
	"errors"
	"fmt"
)

// Kind classifies an API error
type Kind int

const (
	Opaque       Kind = iota // unclassified failure, eg from the database
	OutOfRange               // pagination argument outside its bounds
	InvalidLink              // malformed url when posting a link
	LinkNotFound             // comment posted on a link that is malformed or does not exist
	EmptyComment             // comment with no body
)

var kindCodes = [...]string{
	Opaque:       "",
	OutOfRange:   "OUT_OF_RANGE",
	InvalidLink:  "INVALID_LINK",
	LinkNotFound: "LINK_NOT_FOUND",
	EmptyComment: "EMPTY_COMMENT",
}

// String returns the code sent in the "extensions" of a GraphQL error
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindCodes) {
		return ""
	}
	return kindCodes[k]
}

// Error is an error that is reported to the API caller with a descriptive message.
// The engine adds the Code to the GraphQL error as extensions.code.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Code() string { return e.Kind.String() }

// Is allows errors.Is to match any *Error of the same kind against the sentinels below
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrOutOfRange   = &Error{Kind: OutOfRange}
	ErrInvalidLink  = &Error{Kind: InvalidLink}
	ErrLinkNotFound = &Error{Kind: LinkNotFound}
	ErrEmptyComment = &Error{Kind: EmptyComment}
)

func errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of an API error or Opaque for any other error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Opaque
}
