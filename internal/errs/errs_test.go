package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrap_MatchesSentinelAndCause(t *testing.T) {
	cause := errors.New("rpc timeout")
	err := Wrap(ErrOracleUnavailable, cause)

	if !errors.Is(err, ErrOracleUnavailable) {
		t.Error("wrapped error must match sentinel")
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped error must match cause")
	}
	if KindOf(err) != KindCollaborator {
		t.Errorf("KindOf: got %s want %s", KindOf(err), KindCollaborator)
	}
}

func TestWrap_NilCauseReturnsSentinel(t *testing.T) {
	if err := Wrap(ErrEmptyInput, nil); err != ErrEmptyInput {
		t.Errorf("got %v want sentinel", err)
	}
}

func TestKindOf_ThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("deposit: %w", Wrapf(ErrUnknownMint, "mint %s", "abc"))
	if KindOf(err) != KindState {
		t.Errorf("KindOf: got %s want %s", KindOf(err), KindState)
	}
	e, ok := As(err)
	if !ok || e.Name != "UnknownMint" {
		t.Errorf("As: got %+v ok=%v", e, ok)
	}
}

func TestKindOf_ForeignError(t *testing.T) {
	if KindOf(errors.New("boom")) != KindUnknown {
		t.Error("foreign errors must be KindUnknown")
	}
}

func TestCodes_Unique(t *testing.T) {
	all := []*Error{
		ErrMissingSignature, ErrNotWritable, ErrOwnerMismatch, ErrUnexpectedCollaborator,
		ErrNotAdmin, ErrBufferTooSmall, ErrEmptyInput, ErrInvalidFee, ErrInvalidInstruction,
		ErrNotEnoughAccounts, ErrAddressMismatch, ErrAccountNotFound, ErrAccountAlreadyInUse,
		ErrBufferNotEmpty, ErrUnknownMint, ErrInvalidAccountData, ErrArithmeticOverflow, ErrWriteConflict,
		ErrInsufficientVaultBalance, ErrOracleUnavailable, ErrPaymentFailed,
		ErrInsufficientFunds, ErrMintMismatch, ErrNotImplemented,
	}
	seen := make(map[uint32]string)
	for _, e := range all {
		if prev, ok := seen[e.Code]; ok {
			t.Errorf("code %d used by %s and %s", e.Code, prev, e.Name)
		}
		seen[e.Code] = e.Name
	}
}
