// internal/app/system/apperr/apperr.go
// Package apperr defines the error kinds returned by the social and group
// services. Transports map a Kind to a status code with HTTPStatus; the
// Message is safe to show to users.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Kind classifies a failure independent of transport.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindUnauthorized    Kind = "unauthorized"
	KindNotFound        Kind = "not_found"
	KindForbidden       Kind = "forbidden"
	KindConflict        Kind = "conflict"
	KindExternalService Kind = "external_service_failure"
	KindTooManyRequests Kind = "too_many_requests"
	KindInternal        Kind = "internal"
)

// Machine-readable codes carried alongside a Kind.
const (
	CodeSelfRequest           = "SelfRequest"
	CodeAlreadyFriends        = "AlreadyFriends"
	CodeDuplicatePending      = "DuplicatePending"
	CodeInvalidID             = "InvalidID"
	CodeInvalidName           = "InvalidName"
	CodeInvalidDescription    = "InvalidDescription"
	CodeMembershipCapExceeded = "MembershipCapExceeded"
	CodeNoNewMembers          = "NoNewMembers"
	CodeNotAMember            = "NotAMember"
	CodeSelfKick              = "SelfKick"
	CodeCannotKickCreator     = "CannotKickCreator"
	CodeRateLimited           = "RateLimited"
	CodeMirrorFailed          = "MirrorFailed"
	CodeNotFound              = "NotFound"
	CodeForbidden             = "Forbidden"
	CodeUnauthorized          = "Unauthorized"
	CodeInternal              = "Internal"
)

// Direction tells a DuplicatePending caller who sent the existing request.
type Direction string

const (
	// DirectionOutgoing: the caller already sent a request to this user.
	DirectionOutgoing Direction = "outgoing"
	// DirectionIncoming: this user already sent the caller a request.
	DirectionIncoming Direction = "incoming"
)

// Error is the structured failure returned by services.
type Error struct {
	Kind    Kind
	Code    string
	Message string

	// RequestID and Direction are only set for DuplicatePending.
	RequestID primitive.ObjectID
	Direction Direction

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error without an underlying cause.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap builds an Error that keeps err for logging and errors.Is.
func Wrap(err error, kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// Validation, NotFound, Forbidden and Conflict are shorthands for New.
func Validation(code, message string) *Error { return New(KindValidation, code, message) }
func NotFound(message string) *Error         { return New(KindNotFound, CodeNotFound, message) }
func Forbidden(message string) *Error        { return New(KindForbidden, CodeForbidden, message) }
func Conflict(code, message string) *Error   { return New(KindConflict, code, message) }

// Unauthorized reports a request without a signed-in user.
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, CodeUnauthorized, message)
}

// Internal wraps a store or driver failure. The message stays generic.
func Internal(err error) *Error {
	return Wrap(err, KindInternal, CodeInternal, "Internal server error")
}

// DuplicatePending reports an existing pending request between the caller
// and another user, attributing its direction from the caller's side.
func DuplicatePending(requestID primitive.ObjectID, dir Direction) *Error {
	msg := "You have already sent a friend request to this user"
	if dir == DirectionIncoming {
		msg = "This user has already sent you a friend request"
	}
	return &Error{
		Kind:      KindConflict,
		Code:      CodeDuplicatePending,
		Message:   msg,
		RequestID: requestID,
		Direction: dir,
	}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindInternal
}

// CodeOf returns the Code of err, or "" for foreign errors.
func CodeOf(err error) string {
	if ae, ok := As(err); ok {
		return ae.Code
	}
	return ""
}

// HTTPStatus maps a Kind to the status code used by the JSON API.
func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindExternalService:
		return http.StatusBadGateway
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Response is the JSON error body written by the API.
type Response struct {
	Kind      Kind      `json:"kind"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"requestId,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// ResponseOf builds the body for err. Foreign errors become Internal.
func ResponseOf(err error) Response {
	ae, ok := As(err)
	if !ok {
		ae = Internal(err)
	}
	resp := Response{Kind: ae.Kind, Code: ae.Code, Message: ae.Message, Direction: ae.Direction}
	if !ae.RequestID.IsZero() {
		resp.RequestID = ae.RequestID.Hex()
	}
	return resp
}
