// Package core defines the termination-result model of a transaction
// execution: the outcome record an execution engine finalizes once a
// transaction stops running, before any host-facing marshalling.
package core

import (
	"fmt"

	"github.com/hostvm/evmbridge/core/vm"
	"github.com/hostvm/evmbridge/membuf"
)

// TerminationResult is the outcome record of one completed transaction
// execution. Exactly one of Success, Revert and Halt implements it, and each
// variant carries only the fields of its own mode. Results are immutable once
// constructed.
type TerminationResult interface {
	// GasUsed returns the gas consumed by the execution. It is present on
	// every variant and never exceeds the gas limit that produced the result.
	GasUsed() uint64

	isTermination()
}

// Output is the data returned by a successful execution. CallOutput and
// CreateOutput are the only implementations.
type Output interface {
	isOutput()
}

// CallOutput is the return data of a successful message call.
type CallOutput struct {
	ReturnValue *membuf.Buffer
}

// CreateOutput is the outcome payload of a successful contract creation.
// Address is nil when no contract address was assigned; it is never a
// zero-filled placeholder.
type CreateOutput struct {
	ReturnValue *membuf.Buffer
	Address     *Address
}

func (*CallOutput) isOutput()   {}
func (*CreateOutput) isOutput() {}

// Log is one event record emitted during execution. Slice position within
// Success.Logs is the emission order and must be preserved by every consumer.
type Log struct {
	Address Address
	Topics  []Hash
	Data    *membuf.Buffer
}

// Success is a normal termination via STOP, RETURN or SELFDESTRUCT.
type Success struct {
	Reason      vm.SuccessReason
	UsedGas     uint64
	RefundedGas uint64
	Logs        []*Log
	Output      Output
}

// Revert is a termination via REVERT: unused gas is returned to the caller
// and the output carries the revert payload.
type Revert struct {
	UsedGas uint64
	Output  *membuf.Buffer
}

// Halt is an exceptional termination consuming all remaining gas.
// OutOfGas refines the reason and is meaningful only when Reason is
// vm.HaltOutOfGas.
type Halt struct {
	Reason   vm.HaltReason
	OutOfGas vm.OutOfGasError
	UsedGas  uint64
}

func (s *Success) GasUsed() uint64 { return s.UsedGas }
func (r *Revert) GasUsed() uint64  { return r.UsedGas }
func (h *Halt) GasUsed() uint64    { return h.UsedGas }

func (*Success) isTermination() {}
func (*Revert) isTermination()  {}
func (*Halt) isTermination()    {}

// NewSuccess validates and builds a Success result. The output is required;
// logs may be empty but individual entries must be complete.
func NewSuccess(reason vm.SuccessReason, usedGas, refundedGas uint64, logs []*Log, output Output) (*Success, error) {
	if !reason.Valid() {
		return nil, fmt.Errorf("invalid success reason %d", reason)
	}
	if output == nil {
		return nil, fmt.Errorf("success result requires an output")
	}
	switch out := output.(type) {
	case *CallOutput:
		if out.ReturnValue == nil {
			return nil, fmt.Errorf("call output requires a return value buffer")
		}
	case *CreateOutput:
		if out.ReturnValue == nil {
			return nil, fmt.Errorf("create output requires a return value buffer")
		}
	default:
		return nil, fmt.Errorf("unsupported output type %T", output)
	}
	for i, log := range logs {
		if log == nil || log.Data == nil {
			return nil, fmt.Errorf("log %d is incomplete", i)
		}
	}
	return &Success{
		Reason:      reason,
		UsedGas:     usedGas,
		RefundedGas: refundedGas,
		Logs:        logs,
		Output:      output,
	}, nil
}

// NewRevert validates and builds a Revert result. The payload buffer is
// required; it may be empty.
func NewRevert(usedGas uint64, output *membuf.Buffer) (*Revert, error) {
	if output == nil {
		return nil, fmt.Errorf("revert result requires an output buffer")
	}
	return &Revert{UsedGas: usedGas, Output: output}, nil
}

// NewHalt validates and builds a Halt result. Frame-internal reasons are
// accepted here: the engine produces them mid-execution, and rejecting them
// is the host-facing layer's contract, not the model's.
func NewHalt(reason vm.HaltReason, outOfGas vm.OutOfGasError, usedGas uint64) (*Halt, error) {
	if !reason.Valid() {
		return nil, fmt.Errorf("invalid halt reason %d", reason)
	}
	if reason == vm.HaltOutOfGas && !outOfGas.Valid() {
		return nil, fmt.Errorf("invalid out-of-gas sub-kind %d", outOfGas)
	}
	return &Halt{Reason: reason, OutOfGas: outOfGas, UsedGas: usedGas}, nil
}

// Discard releases every payload buffer res still owns. It is the path for
// a result that is dropped without being handed off; a result whose buffers
// were already moved elsewhere must not be discarded.
func Discard(res TerminationResult) {
	switch r := res.(type) {
	case *Success:
		if r == nil {
			return
		}
		for _, log := range r.Logs {
			if log != nil && log.Data != nil {
				log.Data.Release()
			}
		}
		switch out := r.Output.(type) {
		case *CallOutput:
			if out.ReturnValue != nil {
				out.ReturnValue.Release()
			}
		case *CreateOutput:
			if out.ReturnValue != nil {
				out.ReturnValue.Release()
			}
		}
	case *Revert:
		if r != nil && r.Output != nil {
			r.Output.Release()
		}
	}
}
