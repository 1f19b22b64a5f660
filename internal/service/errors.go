package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrBadgeNotFound = errors.New("badge number not found")
	ErrAccountExists = errors.New("account already exists for badge")
	ErrNoAccount     = errors.New("no account exists for badge")
	ErrUnauthorized  = errors.New("invalid credentials")
	ErrLocked        = errors.New("badge is locked out")
	ErrInvalidCode   = errors.New("invalid one-time code")
	ErrCodeExpired   = errors.New("one-time code expired")
	ErrPINValidation = errors.New("pin must be 4 to 8 digits")
	ErrNoSupervisor  = errors.New("no supervisor contact on record")
	ErrUpstream      = errors.New("upstream provider failure")
)

// PINMismatchError is returned on a failed PIN verification and carries how
// many attempts remain before the lockout arms (0 once locked).
type PINMismatchError struct {
	AttemptsLeft int
}

func (e *PINMismatchError) Error() string {
	return fmt.Sprintf("invalid pin, %d attempts left", e.AttemptsLeft)
}

func (e *PINMismatchError) Unwrap() error {
	return ErrUnauthorized
}
