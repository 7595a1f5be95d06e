package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidState        = errors.New("invalid state")
	ErrInsufficientPayment = errors.New("Insufficient payment")
	ErrKYCRequired         = errors.New("KYC verification required")
	ErrInvalidProof        = errors.New("Invalid proof")
	ErrNotFound            = errors.New("not found")

	ErrInvalidAmount       = fmt.Errorf("%w: Amount must be greater than 0", ErrInvalidInput)
	ErrInvalidDueDate      = fmt.Errorf("%w: Due date must be in the future", ErrInvalidInput)
	ErrInvalidCommitment   = fmt.Errorf("%w: commitment must be a non-zero field element", ErrInvalidInput)
	ErrInvalidLevel        = fmt.Errorf("%w: Invalid KYC level", ErrInvalidInput)
	ErrInvalidPeriod       = fmt.Errorf("%w: Validity period must be greater than 0", ErrInvalidInput)
	ErrPeriodTooLong       = fmt.Errorf("%w: Validity period must be at most 100 years", ErrInvalidInput)
	ErrInvalidPublicInputs = fmt.Errorf("%w: public inputs", ErrInvalidInput)

	ErrOnlyCreatorCanSend   = fmt.Errorf("%w: Only creator can send", ErrUnauthorized)
	ErrOnlyCreatorCanCancel = fmt.Errorf("%w: Only creator can cancel", ErrUnauthorized)
	ErrNotVerifier          = fmt.Errorf("%w: Not an authorized verifier", ErrUnauthorized)

	ErrCommitmentMismatch = fmt.Errorf("%w: public inputs do not bind the stored commitment", ErrInvalidProof)
	ErrStaleProof         = fmt.Errorf("%w: proof timestamp outside the accepted window", ErrInvalidProof)
)
