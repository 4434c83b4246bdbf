package worksmachine

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by a Mind wraps exactly one of these so that
// callers can classify it with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrState             = errors.New("state error")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
)

var (
	ErrInvalidAmount          = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrMilestoneBoundExceeded = fmt.Errorf("%w: milestone bound exceeded", ErrValidation)
	ErrRequestedOutOfBounds   = fmt.Errorf("%w: requested amount out of bounds", ErrValidation)
	ErrDuplicate              = fmt.Errorf("%w: already exists", ErrValidation)
	ErrBadSequence            = fmt.Errorf("%w: bad sequence", ErrValidation)
	ErrBadSignature           = fmt.Errorf("%w: bad signature", ErrValidation)
	ErrUnknownKind            = fmt.Errorf("%w: unknown event kind", ErrValidation)
	ErrMalformed              = fmt.Errorf("%w: malformed content", ErrValidation)

	ErrInvalidStatus = fmt.Errorf("%w: invalid status", ErrState)
	ErrNotRemovable  = fmt.Errorf("%w: milestone is not removable", ErrState)
	ErrAlreadyVoted  = fmt.Errorf("%w: already voted", ErrState)

	ErrInsufficientBalance  = fmt.Errorf("%w: account balance too low", ErrInsufficientFunds)
	ErrInsufficientTreasury = fmt.Errorf("%w: treasury has too little available", ErrInsufficientFunds)
	ErrReserveUnderflow     = fmt.Errorf("%w: reserved funds too low", ErrInsufficientFunds)
)

// Category returns the top level category of err, or nil if err is not one of ours.
func Category(err error) error {
	for _, c := range []error{ErrValidation, ErrState, ErrInsufficientFunds, ErrNotFound, ErrUnauthorized} {
		if errors.Is(err, c) {
			return c
		}
	}
	return nil
}
