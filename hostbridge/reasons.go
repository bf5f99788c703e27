package hostbridge

import (
	"fmt"

	"github.com/hostvm/evmbridge/core/vm"
)

// SuccessReason mirrors vm.SuccessReason across the host boundary. The
// ordinals are a stable external contract: hosts persist and compare them
// numerically, so values are only ever appended.
type SuccessReason uint8

const (
	SuccessReasonStop SuccessReason = iota
	SuccessReasonReturn
	SuccessReasonSelfDestruct
)

// ExceptionalHalt is the host-facing halt taxonomy. It carries only the halt
// reasons that may legitimately terminate a top-level execution; the
// frame-internal reasons the interpreter resolves before returning have no
// value here and crossing the boundary with one is a contract violation.
// Ordinals are stable; out-of-gas sub-kinds are collapsed into OutOfGas.
type ExceptionalHalt uint8

const (
	HaltReasonOutOfGas ExceptionalHalt = iota
	HaltReasonOpcodeNotFound
	HaltReasonInvalidFEOpcode
	HaltReasonInvalidJump
	HaltReasonNotActivated
	HaltReasonStackUnderflow
	HaltReasonStackOverflow
	HaltReasonOutOfOffset
	HaltReasonCreateCollision
	HaltReasonPrecompileError
	HaltReasonNonceOverflow
	HaltReasonCreateContractSizeLimit
	HaltReasonCreateContractStartingWithEF
	HaltReasonCreateInitCodeSizeLimit
)

// String returns a human-readable string for the reason.
func (r SuccessReason) String() string {
	switch r {
	case SuccessReasonStop:
		return "stop"
	case SuccessReasonReturn:
		return "return"
	case SuccessReasonSelfDestruct:
		return "self_destruct"
	}
	return "unknown"
}

// String returns a human-readable string for the halt reason.
func (r ExceptionalHalt) String() string {
	switch r {
	case HaltReasonOutOfGas:
		return "out_of_gas"
	case HaltReasonOpcodeNotFound:
		return "opcode_not_found"
	case HaltReasonInvalidFEOpcode:
		return "invalid_fe_opcode"
	case HaltReasonInvalidJump:
		return "invalid_jump"
	case HaltReasonNotActivated:
		return "not_activated"
	case HaltReasonStackUnderflow:
		return "stack_underflow"
	case HaltReasonStackOverflow:
		return "stack_overflow"
	case HaltReasonOutOfOffset:
		return "out_of_offset"
	case HaltReasonCreateCollision:
		return "create_collision"
	case HaltReasonPrecompileError:
		return "precompile_error"
	case HaltReasonNonceOverflow:
		return "nonce_overflow"
	case HaltReasonCreateContractSizeLimit:
		return "create_contract_size_limit"
	case HaltReasonCreateContractStartingWithEF:
		return "create_contract_starting_with_ef"
	case HaltReasonCreateInitCodeSizeLimit:
		return "create_init_code_size_limit"
	}
	return "unknown"
}

func successReasonFromVM(r vm.SuccessReason) SuccessReason {
	switch r {
	case vm.SuccessStop:
		return SuccessReasonStop
	case vm.SuccessReturn:
		return SuccessReasonReturn
	case vm.SuccessSelfDestruct:
		return SuccessReasonSelfDestruct
	default:
		panic(fmt.Sprintf("hostbridge: unknown success reason %d", r))
	}
}

// VMReason returns the interpreter-side reason. Round-trips with
// successReasonFromVM for every defined value.
func (r SuccessReason) VMReason() vm.SuccessReason {
	switch r {
	case SuccessReasonStop:
		return vm.SuccessStop
	case SuccessReasonReturn:
		return vm.SuccessReturn
	case SuccessReasonSelfDestruct:
		return vm.SuccessSelfDestruct
	default:
		panic(fmt.Sprintf("hostbridge: unknown success reason %d", r))
	}
}

// exceptionalHaltFromVM narrows an interpreter halt reason to the external
// taxonomy. The out-of-gas sub-kind is dropped here. A frame-internal reason
// has no external value; one reaching this function is an engine bug and
// panics.
func exceptionalHaltFromVM(r vm.HaltReason) ExceptionalHalt {
	switch r {
	case vm.HaltOutOfGas:
		return HaltReasonOutOfGas
	case vm.HaltOpcodeNotFound:
		return HaltReasonOpcodeNotFound
	case vm.HaltInvalidFEOpcode:
		return HaltReasonInvalidFEOpcode
	case vm.HaltInvalidJump:
		return HaltReasonInvalidJump
	case vm.HaltNotActivated:
		return HaltReasonNotActivated
	case vm.HaltStackUnderflow:
		return HaltReasonStackUnderflow
	case vm.HaltStackOverflow:
		return HaltReasonStackOverflow
	case vm.HaltOutOfOffset:
		return HaltReasonOutOfOffset
	case vm.HaltCreateCollision:
		return HaltReasonCreateCollision
	case vm.HaltPrecompileError:
		return HaltReasonPrecompileError
	case vm.HaltNonceOverflow:
		return HaltReasonNonceOverflow
	case vm.HaltCreateContractSizeLimit:
		return HaltReasonCreateContractSizeLimit
	case vm.HaltCreateContractStartingWithEF:
		return HaltReasonCreateContractStartingWithEF
	case vm.HaltCreateInitCodeSizeLimit:
		return HaltReasonCreateInitCodeSizeLimit
	case vm.HaltOverflowPayment, vm.HaltStateChangeDuringStaticCall,
		vm.HaltCallNotAllowedInsideStatic, vm.HaltOutOfFunds, vm.HaltCallTooDeep:
		panic(fmt.Sprintf("hostbridge: frame-internal halt reason %s crossed the host boundary", r))
	default:
		panic(fmt.Sprintf("hostbridge: unknown halt reason %d", r))
	}
}

// VMReason returns the interpreter-side reason and out-of-gas sub-kind. The
// sub-kind was collapsed on the way out, so OutOfGas always reconstructs the
// basic one; the other reasons carry the zero sub-kind.
func (r ExceptionalHalt) VMReason() (vm.HaltReason, vm.OutOfGasError) {
	switch r {
	case HaltReasonOutOfGas:
		return vm.HaltOutOfGas, vm.OutOfGasBasic
	case HaltReasonOpcodeNotFound:
		return vm.HaltOpcodeNotFound, 0
	case HaltReasonInvalidFEOpcode:
		return vm.HaltInvalidFEOpcode, 0
	case HaltReasonInvalidJump:
		return vm.HaltInvalidJump, 0
	case HaltReasonNotActivated:
		return vm.HaltNotActivated, 0
	case HaltReasonStackUnderflow:
		return vm.HaltStackUnderflow, 0
	case HaltReasonStackOverflow:
		return vm.HaltStackOverflow, 0
	case HaltReasonOutOfOffset:
		return vm.HaltOutOfOffset, 0
	case HaltReasonCreateCollision:
		return vm.HaltCreateCollision, 0
	case HaltReasonPrecompileError:
		return vm.HaltPrecompileError, 0
	case HaltReasonNonceOverflow:
		return vm.HaltNonceOverflow, 0
	case HaltReasonCreateContractSizeLimit:
		return vm.HaltCreateContractSizeLimit, 0
	case HaltReasonCreateContractStartingWithEF:
		return vm.HaltCreateContractStartingWithEF, 0
	case HaltReasonCreateInitCodeSizeLimit:
		return vm.HaltCreateInitCodeSizeLimit, 0
	default:
		panic(fmt.Sprintf("hostbridge: unknown halt reason %d", r))
	}
}

// A reason added to vm without a mapping arm here must fail at startup, not
// on first traffic. init walks every defined interpreter value.
func init() {
	for r := vm.SuccessReason(0); r < vm.SuccessReasonCount; r++ {
		if successReasonFromVM(r).VMReason() != r {
			panic(fmt.Sprintf("hostbridge: success reason %s does not round-trip", r))
		}
	}
	for r := vm.HaltReason(0); r < vm.HaltReasonCount; r++ {
		if r.Internal() {
			continue
		}
		back, _ := exceptionalHaltFromVM(r).VMReason()
		if back != r {
			panic(fmt.Sprintf("hostbridge: halt reason %s does not round-trip", r))
		}
	}
}
