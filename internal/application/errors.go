package application

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies every failure the identity services can report.
// Handlers switch on it to pick a status code and a short error code.
type Kind int

const (
	KindFatal Kind = iota
	KindValidation
	KindConflict
	KindInvalidCredentials
	KindUnrecognizedHash
	KindEmailNotConfirmed
	KindUserNotFound
	KindSocialTokenInvalid
	KindSocialTokenExpired
	KindEmailMissing
	KindCodeMismatch
	KindLinkingRequiresConfirmation
	KindUnavailable
	KindSocialAlreadyLinked
)

var kindNames = map[Kind]string{
	KindFatal:                       "fatal",
	KindValidation:                  "validation",
	KindConflict:                    "conflict",
	KindInvalidCredentials:          "invalid_credentials",
	KindUnrecognizedHash:            "unrecognized_hash",
	KindEmailNotConfirmed:           "email_not_confirmed",
	KindUserNotFound:                "user_not_found",
	KindSocialTokenInvalid:          "social_token_invalid",
	KindSocialTokenExpired:          "social_token_expired",
	KindEmailMissing:                "email_missing",
	KindCodeMismatch:                "code_mismatch",
	KindLinkingRequiresConfirmation: "linking_requires_confirmation",
	KindUnavailable:                 "unavailable",
	KindSocialAlreadyLinked:         "social_already_linked",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the error type returned by the services.
type Error struct {
	Kind  Kind
	Op    string // e.g. "credential.register"
	Field string // offending input field, set for KindValidation
	Err   error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.String()
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrCodeMismatch) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrValidation                  = &Error{Kind: KindValidation}
	ErrConflict                    = &Error{Kind: KindConflict}
	ErrInvalidCredentials          = &Error{Kind: KindInvalidCredentials}
	ErrUnrecognizedHash            = &Error{Kind: KindUnrecognizedHash}
	ErrEmailNotConfirmed           = &Error{Kind: KindEmailNotConfirmed}
	ErrUserNotFound                = &Error{Kind: KindUserNotFound}
	ErrSocialTokenInvalid          = &Error{Kind: KindSocialTokenInvalid}
	ErrSocialTokenExpired          = &Error{Kind: KindSocialTokenExpired}
	ErrEmailMissing                = &Error{Kind: KindEmailMissing}
	ErrCodeMismatch                = &Error{Kind: KindCodeMismatch}
	ErrLinkingRequiresConfirmation = &Error{Kind: KindLinkingRequiresConfirmation}
	ErrUnavailable                 = &Error{Kind: KindUnavailable}
	ErrSocialAlreadyLinked         = &Error{Kind: KindSocialAlreadyLinked}
)

// KindOf returns the kind carried by err. Plain context deadline errors count as
// KindUnavailable; anything unclassified is KindFatal.
func KindOf(err error) Kind {
	if err == nil {
		return KindFatal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindUnavailable
	}
	return KindFatal
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func validationError(op, field, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Field: field, Err: errors.New(msg)}
}

// storeError classifies an unexpected adapter failure: a timed out call is
// KindUnavailable, anything else is fatal.
func storeError(op string, err error) *Error {
	if isTimeout(err) {
		return newError(KindUnavailable, op, err)
	}
	return newError(KindFatal, op, err)
}
