package vm

import (
	"errors"

	gethvm "github.com/ethereum/go-ethereum/core/vm"
)

// ClassifyError maps an error returned by the go-ethereum interpreter to the
// halt taxonomy. The second return value refines HaltOutOfGas and is
// OutOfGasBasic for every other reason. The boolean reports whether the error
// was recognized; revert errors and engine-internal failures are deliberately
// not classified here.
//
// Frame-internal conditions (call depth, balance, static-call violations) are
// classified too, so callers running per-frame instrumentation can reuse this
// table. A finalized transaction result must not carry them.
func ClassifyError(err error) (HaltReason, OutOfGasError, bool) {
	switch {
	case errors.Is(err, gethvm.ErrOutOfGas):
		return HaltOutOfGas, OutOfGasBasic, true
	case errors.Is(err, gethvm.ErrCodeStoreOutOfGas):
		// Charging the code deposit exhausted the remaining gas.
		return HaltOutOfGas, OutOfGasBasic, true
	case errors.Is(err, gethvm.ErrGasUintOverflow):
		// Gas computation overflowed uint64, e.g. absurd memory operands.
		return HaltOutOfGas, OutOfGasInvalidOperand, true
	case errors.Is(err, gethvm.ErrInvalidJump):
		return HaltInvalidJump, OutOfGasBasic, true
	case errors.Is(err, gethvm.ErrReturnDataOutOfBounds):
		return HaltOutOfOffset, OutOfGasBasic, true
	case errors.Is(err, gethvm.ErrContractAddressCollision):
		return HaltCreateCollision, OutOfGasBasic, true
	case errors.Is(err, gethvm.ErrMaxCodeSizeExceeded):
		return HaltCreateContractSizeLimit, OutOfGasBasic, true
	case errors.Is(err, gethvm.ErrMaxInitCodeSizeExceeded):
		return HaltCreateInitCodeSizeLimit, OutOfGasBasic, true
	case errors.Is(err, gethvm.ErrInvalidCode):
		// go-ethereum rejects deployed code beginning with 0xEF (EIP-3541).
		return HaltCreateContractStartingWithEF, OutOfGasBasic, true
	case errors.Is(err, gethvm.ErrNonceUintOverflow):
		return HaltNonceOverflow, OutOfGasBasic, true
	case errors.Is(err, gethvm.ErrDepth):
		return HaltCallTooDeep, OutOfGasBasic, true
	case errors.Is(err, gethvm.ErrInsufficientBalance):
		return HaltOutOfFunds, OutOfGasBasic, true
	case errors.Is(err, gethvm.ErrWriteProtection):
		return HaltStateChangeDuringStaticCall, OutOfGasBasic, true
	}

	// go-ethereum returns these as pointers and declares Error on the
	// pointer receivers only.
	var underflow *gethvm.ErrStackUnderflow
	if errors.As(err, &underflow) {
		return HaltStackUnderflow, OutOfGasBasic, true
	}
	var overflow *gethvm.ErrStackOverflow
	if errors.As(err, &overflow) {
		return HaltStackOverflow, OutOfGasBasic, true
	}
	var invalidOp *gethvm.ErrInvalidOpCode
	if errors.As(err, &invalidOp) {
		// go-ethereum prints the designated invalid instruction (0xFE) as
		// INVALID; every other undefined byte renders as "not defined".
		if invalidOp.Error() == "invalid opcode: INVALID" {
			return HaltInvalidFEOpcode, OutOfGasBasic, true
		}
		return HaltOpcodeNotFound, OutOfGasBasic, true
	}

	return 0, 0, false
}
