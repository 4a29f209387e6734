package errors

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failures the auth subsystem reports to callers.
type Kind int

const (
	KindUnknown Kind = iota
	KindInputEmpty
	KindInputInvalid
	KindUserExists
	KindUserDoesNotExist
	KindPasswordIncorrect
	KindTokenEmpty
	KindTokenInvalid
	KindTooManyAttempts
	KindRateLimited
)

var kindNames = map[Kind]string{
	KindUnknown:           "UnknownError",
	KindInputEmpty:        "InputIsEmpty",
	KindInputInvalid:      "InputIsInvalid",
	KindUserExists:        "UserExists",
	KindUserDoesNotExist:  "UserDoesNotExist",
	KindPasswordIncorrect: "PasswordIsNotCorrect",
	KindTokenEmpty:        "TokenIsEmpty",
	KindTokenInvalid:      "TokenIsInvalid",
	KindTooManyAttempts:   "TooManyAttempts",
	KindRateLimited:       "RateLimited",
}

var kindMessages = map[Kind]string{
	KindUnknown:           "Unknown Error",
	KindInputEmpty:        "The input is empty",
	KindInputInvalid:      "The input is invalid",
	KindUserExists:        "User already exists",
	KindUserDoesNotExist:  "User does not exist",
	KindPasswordIncorrect: "Password is not correct",
	KindTokenEmpty:        "Token is empty",
	KindTokenInvalid:      "Token is invalid",
	KindTooManyAttempts:   "Too many attempts, try again later",
	KindRateLimited:       "Too many requests, slow down",
}

// String returns the stable diagnostic code of the kind.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return kindNames[KindUnknown]
}

// Message returns the client-facing text of the kind.
func (k Kind) Message() string {
	if m, ok := kindMessages[k]; ok {
		return m
	}
	return kindMessages[KindUnknown]
}

// Error is a sentinel tagged with its Kind. Detail is added by wrapping it.
type Error struct {
	kind Kind
}

func (e *Error) Error() string { return e.kind.Message() }

func (e *Error) Kind() Kind { return e.kind }

var (
	ErrInternal          = &Error{kind: KindUnknown}
	ErrInputEmpty        = &Error{kind: KindInputEmpty}
	ErrInputInvalid      = &Error{kind: KindInputInvalid}
	ErrUserExists        = &Error{kind: KindUserExists}
	ErrUserDoesNotExist  = &Error{kind: KindUserDoesNotExist}
	ErrPasswordIncorrect = &Error{kind: KindPasswordIncorrect}
	ErrTokenEmpty        = &Error{kind: KindTokenEmpty}
	ErrTokenInvalid      = &Error{kind: KindTokenInvalid}
	ErrTooManyAttempts   = &Error{kind: KindTooManyAttempts}
	ErrRateLimited       = &Error{kind: KindRateLimited}
)

func NewInputEmpty(msg string) error {
	return fmt.Errorf("%w: %s", ErrInputEmpty, msg)
}

func NewInputInvalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInputInvalid, msg)
}

func WrapInternal(err error, context string) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, context, err)
}

// KindOf reports the Kind carried by err. Errors that do not wrap one of the
// sentinels above are unanticipated and classify as KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

func IsInputEmpty(err error) bool {
	return errors.Is(err, ErrInputEmpty)
}

func IsInputInvalid(err error) bool {
	return errors.Is(err, ErrInputInvalid)
}

func IsInternal(err error) bool {
	return err != nil && KindOf(err) == KindUnknown
}

func IsUserExists(err error) bool {
	return errors.Is(err, ErrUserExists)
}

func IsUserDoesNotExist(err error) bool {
	return errors.Is(err, ErrUserDoesNotExist)
}

func IsPasswordIncorrect(err error) bool {
	return errors.Is(err, ErrPasswordIncorrect)
}

func IsTokenEmpty(err error) bool {
	return errors.Is(err, ErrTokenEmpty)
}

func IsTokenInvalid(err error) bool {
	return errors.Is(err, ErrTokenInvalid)
}

func IsTooManyAttempts(err error) bool {
	return errors.Is(err, ErrTooManyAttempts)
}

func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
