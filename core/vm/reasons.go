package vm

// SuccessReason describes which terminating instruction ended a successful
// execution. It is set once when the interpreter finalizes the frame and is
// immutable afterwards.
type SuccessReason uint8

const (
	SuccessStop SuccessReason = iota
	SuccessReturn
	SuccessSelfDestruct

	// SuccessReasonCount is the number of defined success reasons. It is the
	// upper bound for Valid and for the correspondence checks performed by the
	// host-facing layer at startup.
	SuccessReasonCount
)

// HaltReason describes why an execution terminated exceptionally, consuming
// all remaining gas. The first fourteen values may appear on a finalized
// transaction result. The reasons from HaltOverflowPayment onwards are
// produced only inside call frames during execution; a finalized result never
// carries them, and the host-facing layer treats their appearance as an
// engine bug.
type HaltReason uint8

const (
	HaltOutOfGas HaltReason = iota
	HaltOpcodeNotFound
	HaltInvalidFEOpcode
	HaltInvalidJump
	HaltNotActivated
	HaltStackUnderflow
	HaltStackOverflow
	HaltOutOfOffset
	HaltCreateCollision
	HaltPrecompileError
	HaltNonceOverflow
	HaltCreateContractSizeLimit
	HaltCreateContractStartingWithEF
	HaltCreateInitCodeSizeLimit

	// Frame-internal reasons. Kept after the externally visible block so the
	// ordinals of the block above stay frozen.
	HaltOverflowPayment
	HaltStateChangeDuringStaticCall
	HaltCallNotAllowedInsideStatic
	HaltOutOfFunds
	HaltCallTooDeep

	// HaltReasonCount is the number of defined halt reasons.
	HaltReasonCount
)

// OutOfGasError refines HaltOutOfGas with the allocation site that ran dry.
// The refinement exists for diagnostics only; the host-facing contract folds
// every sub-kind into a single out-of-gas value.
type OutOfGasError uint8

const (
	OutOfGasBasic OutOfGasError = iota
	OutOfGasMemoryLimit
	OutOfGasMemory
	OutOfGasPrecompile
	OutOfGasInvalidOperand

	// OutOfGasErrorCount is the number of defined out-of-gas sub-kinds.
	OutOfGasErrorCount
)

// Valid reports whether r is a defined success reason.
func (r SuccessReason) Valid() bool { return r < SuccessReasonCount }

// Valid reports whether r is a defined halt reason.
func (r HaltReason) Valid() bool { return r < HaltReasonCount }

// Valid reports whether e is a defined out-of-gas sub-kind.
func (e OutOfGasError) Valid() bool { return e < OutOfGasErrorCount }

// Internal reports whether r is confined to intermediate call frames. Such
// reasons must be resolved by the interpreter before it finalizes the
// transaction result.
func (r HaltReason) Internal() bool {
	switch r {
	case HaltOverflowPayment,
		HaltStateChangeDuringStaticCall,
		HaltCallNotAllowedInsideStatic,
		HaltOutOfFunds,
		HaltCallTooDeep:
		return true
	}
	return false
}

// String returns a human-readable string for the reason.
func (r SuccessReason) String() string {
	switch r {
	case SuccessStop:
		return "stop"
	case SuccessReturn:
		return "return"
	case SuccessSelfDestruct:
		return "self destruct"
	}
	return "unknown"
}

// String returns a human-readable string for the reason.
func (r HaltReason) String() string {
	switch r {
	case HaltOutOfGas:
		return "out of gas"
	case HaltOpcodeNotFound:
		return "opcode not found"
	case HaltInvalidFEOpcode:
		return "invalid FE opcode"
	case HaltInvalidJump:
		return "invalid jump destination"
	case HaltNotActivated:
		return "feature not activated"
	case HaltStackUnderflow:
		return "stack underflow"
	case HaltStackOverflow:
		return "stack overflow"
	case HaltOutOfOffset:
		return "access out of offset"
	case HaltCreateCollision:
		return "create collision"
	case HaltPrecompileError:
		return "precompile error"
	case HaltNonceOverflow:
		return "nonce overflow"
	case HaltCreateContractSizeLimit:
		return "created contract exceeds size limit"
	case HaltCreateContractStartingWithEF:
		return "created contract starts with 0xEF"
	case HaltCreateInitCodeSizeLimit:
		return "create initcode exceeds size limit"
	case HaltOverflowPayment:
		return "overflow payment"
	case HaltStateChangeDuringStaticCall:
		return "state change during static call"
	case HaltCallNotAllowedInsideStatic:
		return "call not allowed inside static call"
	case HaltOutOfFunds:
		return "out of funds"
	case HaltCallTooDeep:
		return "call too deep"
	}
	return "unknown"
}

// String returns a human-readable string for the sub-kind.
func (e OutOfGasError) String() string {
	switch e {
	case OutOfGasBasic:
		return "basic"
	case OutOfGasMemoryLimit:
		return "memory limit"
	case OutOfGasMemory:
		return "memory"
	case OutOfGasPrecompile:
		return "precompile"
	case OutOfGasInvalidOperand:
		return "invalid operand"
	}
	return "unknown"
}
