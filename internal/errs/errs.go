// Package errs defines the error taxonomy shared by every program in the
// module. Sentinels are compared with errors.Is; the Kind of any wrapped error
// is recovered with KindOf.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the caller should react to it.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindAddressDerivation
	KindState
	KindCollaborator
	KindNotImplemented
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindAddressDerivation:
		return "ADDRESS_DERIVATION"
	case KindState:
		return "STATE"
	case KindCollaborator:
		return "COLLABORATOR"
	case KindNotImplemented:
		return "NOT_IMPLEMENTED"
	default:
		return "UNKNOWN"
	}
}

// Error is a program error with a stable numeric code.
type Error struct {
	Kind Kind
	Code uint32
	Name string
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newError(kind Kind, code uint32, name, msg string) *Error {
	return &Error{Kind: kind, Code: code, Name: name, Msg: msg}
}

// Validation errors: signer/writable/owner checks and malformed input.
var (
	ErrMissingSignature       = newError(KindValidation, 1, "MissingSignature", "missing required signature")
	ErrNotWritable            = newError(KindValidation, 2, "NotWritable", "account must be writable")
	ErrOwnerMismatch          = newError(KindValidation, 3, "OwnerMismatch", "account owner mismatch")
	ErrUnexpectedCollaborator = newError(KindValidation, 4, "UnexpectedCollaborator", "unexpected collaborator program")
	ErrNotAdmin               = newError(KindValidation, 5, "NotAdmin", "signer is not the booth admin")
	ErrBufferTooSmall         = newError(KindValidation, 6, "BufferTooSmall", "buffer size must exceed the header size")
	ErrEmptyInput             = newError(KindValidation, 7, "EmptyInput", "input data is empty")
	ErrInvalidFee             = newError(KindValidation, 8, "InvalidFee", "fee must be between 0 and 10000 bps")
	ErrInvalidInstruction     = newError(KindValidation, 9, "InvalidInstruction", "invalid instruction data")
	ErrNotEnoughAccounts      = newError(KindValidation, 10, "NotEnoughAccounts", "not enough account keys")
)

// Address derivation errors: the presented address is forged or stale.
var (
	ErrAddressMismatch = newError(KindAddressDerivation, 20, "AddressMismatch", "derived address does not match account")
)

// State errors: the accounts are in the wrong lifecycle state.
var (
	ErrAccountNotFound     = newError(KindState, 30, "AccountNotFound", "account not found")
	ErrAccountAlreadyInUse = newError(KindState, 31, "AccountAlreadyInUse", "account already in use")
	ErrBufferNotEmpty      = newError(KindState, 32, "BufferNotEmpty", "buffer is not empty")
	ErrUnknownMint         = newError(KindState, 33, "UnknownMint", "mint is not part of the booth pair")
	ErrInvalidAccountData  = newError(KindState, 34, "InvalidAccountData", "unexpected account data")
	ErrArithmeticOverflow  = newError(KindState, 35, "ArithmeticOverflow", "arithmetic overflow")
	ErrWriteConflict       = newError(KindState, 36, "WriteConflict", "account modified by a concurrent transaction")
)

// Collaborator errors: a token, allocation or oracle dependency refused.
var (
	ErrInsufficientVaultBalance = newError(KindCollaborator, 40, "InsufficientVaultBalance", "vault balance too low")
	ErrOracleUnavailable        = newError(KindCollaborator, 41, "OracleUnavailable", "oracle could not provide a fresh rate")
	ErrPaymentFailed            = newError(KindCollaborator, 42, "PaymentFailed", "payment burn rejected")
	ErrInsufficientFunds        = newError(KindCollaborator, 43, "InsufficientFunds", "insufficient funds")
	ErrMintMismatch             = newError(KindCollaborator, 44, "MintMismatch", "token account mint mismatch")
)

var ErrNotImplemented = newError(KindNotImplemented, 50, "NotImplemented", "not implemented")

// Wrap returns an error that matches both sentinel and cause under errors.Is.
func Wrap(sentinel *Error, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// Wrapf annotates sentinel with a formatted detail message.
func Wrapf(sentinel *Error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}
