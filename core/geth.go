package core

import (
	"errors"
	"fmt"

	gethcommon "github.com/ethereum/go-ethereum/common"
	gethcore "github.com/ethereum/go-ethereum/core"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethvm "github.com/ethereum/go-ethereum/core/vm"

	"github.com/hostvm/evmbridge/core/vm"
	"github.com/hostvm/evmbridge/membuf"
)

// AddressFromCommon converts a go-ethereum address.
func AddressFromCommon(a gethcommon.Address) Address { return Address(a) }

// Common converts the address to its go-ethereum form.
func (a Address) Common() gethcommon.Address { return gethcommon.Address(a) }

// HashFromCommon converts a go-ethereum hash.
func HashFromCommon(h gethcommon.Hash) Hash { return Hash(h) }

// Common converts the hash to its go-ethereum form.
func (h Hash) Common() gethcommon.Hash { return gethcommon.Hash(h) }

// FromCallResult builds the termination result of one message call from the
// artifacts go-ethereum hands back: the execution result, the refund counter
// the state database accumulated, and the logs of the transaction.
//
// Ownership of the artifact slices (return data, log data) moves into the
// returned result; callers must not reuse them.
func FromCallResult(res *gethcore.ExecutionResult, gasRefunded uint64, logs []*gethtypes.Log) (TerminationResult, error) {
	return fromResult(res, gasRefunded, logs, func(ret *membuf.Buffer) Output {
		return &CallOutput{ReturnValue: ret}
	})
}

// FromCreateResult is FromCallResult for contract creations. deployed is the
// address assigned to the new contract; nil records that no address was
// assigned and maps to an absent address, never a zero-filled one.
func FromCreateResult(res *gethcore.ExecutionResult, gasRefunded uint64, logs []*gethtypes.Log, deployed *gethcommon.Address) (TerminationResult, error) {
	return fromResult(res, gasRefunded, logs, func(ret *membuf.Buffer) Output {
		out := &CreateOutput{ReturnValue: ret}
		if deployed != nil {
			addr := AddressFromCommon(*deployed)
			out.Address = &addr
		}
		return out
	})
}

func fromResult(res *gethcore.ExecutionResult, gasRefunded uint64, logs []*gethtypes.Log, mkOutput func(*membuf.Buffer) Output) (TerminationResult, error) {
	if res == nil {
		return nil, fmt.Errorf("nil execution result")
	}

	if res.Err == nil {
		converted, err := convertLogs(logs)
		if err != nil {
			return nil, err
		}
		// go-ethereum does not report which instruction ended the frame, so
		// the reason is inferred: RETURN hands data back, STOP does not.
		// Callers with interpreter instrumentation (e.g. SELFDESTRUCT
		// tracking) construct Success directly instead.
		reason := vm.SuccessStop
		if len(res.ReturnData) > 0 {
			reason = vm.SuccessReturn
		}
		return NewSuccess(reason, res.UsedGas, gasRefunded, converted, mkOutput(membuf.From(res.ReturnData)))
	}

	// The state journal unwinds failed executions, so no logs can survive.
	if len(logs) > 0 {
		return nil, fmt.Errorf("failed execution cannot carry %d logs", len(logs))
	}

	if errors.Is(res.Err, gethvm.ErrExecutionReverted) {
		return NewRevert(res.UsedGas, membuf.From(res.ReturnData))
	}

	reason, outOfGas, ok := vm.ClassifyError(res.Err)
	if !ok {
		return nil, fmt.Errorf("unclassifiable execution error: %w", res.Err)
	}
	return NewHalt(reason, outOfGas, res.UsedGas)
}

func convertLogs(logs []*gethtypes.Log) ([]*Log, error) {
	if len(logs) == 0 {
		return nil, nil
	}
	out := make([]*Log, len(logs))
	for i, l := range logs {
		if l == nil {
			return nil, fmt.Errorf("log %d is nil", i)
		}
		topics := make([]Hash, len(l.Topics))
		for j, topic := range l.Topics {
			topics[j] = HashFromCommon(topic)
		}
		out[i] = &Log{
			Address: AddressFromCommon(l.Address),
			Topics:  topics,
			Data:    membuf.From(l.Data),
		}
	}
	return out, nil
}
