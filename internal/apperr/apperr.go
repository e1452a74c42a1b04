// Package apperr is the error taxonomy shared by services and HTTP handlers.
// Services return *Error values; handlers map the Kind to a status code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindPayloadTooLarge
	KindInvalidEncoding
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindPayloadTooLarge:
		return "payload_too_large"
	case KindInvalidEncoding:
		return "invalid_encoding"
	case KindUpstream:
		return "upstream_failure"
	default:
		return "internal"
	}
}

// Error carries a client-facing Detail and an optional wrapped cause that is
// only logged.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(detail string) *Error      { return &Error{Kind: KindValidation, Detail: detail} }
func Unauthenticated(detail string) *Error { return &Error{Kind: KindUnauthenticated, Detail: detail} }
func Forbidden(detail string) *Error       { return &Error{Kind: KindForbidden, Detail: detail} }
func NotFound(detail string) *Error        { return &Error{Kind: KindNotFound, Detail: detail} }
func Conflict(detail string) *Error        { return &Error{Kind: KindConflict, Detail: detail} }
func PayloadTooLarge(detail string) *Error { return &Error{Kind: KindPayloadTooLarge, Detail: detail} }
func InvalidEncoding(detail string) *Error { return &Error{Kind: KindInvalidEncoding, Detail: detail} }

// Upstream wraps a failed call to an external collaborator (LLM, vector
// store, object storage). Detail stays generic.
func Upstream(detail string, err error) *Error {
	return &Error{Kind: KindUpstream, Detail: detail, Err: err}
}

// Internal wraps an unexpected failure (database, encoding).
func Internal(detail string, err error) *Error {
	return &Error{Kind: KindInternal, Detail: detail, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to its response status.
func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation, KindConflict, KindInvalidEncoding:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// PublicDetail is the message safe to return to a client.
func PublicDetail(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		switch ae.Kind {
		case KindInternal:
			return "internal server error"
		case KindUpstream:
			if ae.Detail != "" {
				return ae.Detail
			}
			return "upstream service failed"
		}
		return ae.Detail
	}
	return "internal server error"
}
