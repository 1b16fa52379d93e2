// Package apperr defines the error taxonomy surfaced to API callers. Every
// failure a handler reports carries one of these kinds; anything else is
// collapsed to KindInternal at the boundary.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindUnauthenticated      Kind = "unauthenticated"
	KindForbidden            Kind = "forbidden"
	KindNotFound             Kind = "not_found"
	KindInvalidTransition    Kind = "invalid_transition"
	KindValidationFailed     Kind = "validation_failed"
	KindSubscriptionInactive Kind = "subscription_inactive"
	KindTrialExpired         Kind = "trial_expired"
	KindFeatureDisabled      Kind = "feature_disabled"
	KindLimitReached         Kind = "limit_reached"
	KindUpstreamUnavailable  Kind = "upstream_unavailable"
	KindInternal             Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from err, defaulting to KindInternal for
// unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the caller-visible message for err. Unclassified errors get
// a generic message so internal detail never leaks.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// HTTPStatus maps an error kind to its response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden, KindFeatureDisabled:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidTransition:
		return http.StatusConflict
	case KindValidationFailed:
		return http.StatusBadRequest
	case KindSubscriptionInactive, KindTrialExpired:
		return http.StatusPaymentRequired
	case KindLimitReached:
		return http.StatusTooManyRequests
	case KindUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
