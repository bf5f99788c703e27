package core

import (
	"bytes"
	"testing"

	"github.com/hostvm/evmbridge/core/vm"
	"github.com/hostvm/evmbridge/membuf"
)

func TestNewSuccessValidation(t *testing.T) {
	output := &CallOutput{ReturnValue: membuf.From([]byte{1})}

	if _, err := NewSuccess(vm.SuccessReason(99), 21000, 0, nil, output); err == nil {
		t.Fatalf("invalid reason accepted")
	}
	if _, err := NewSuccess(vm.SuccessReturn, 21000, 0, nil, nil); err == nil {
		t.Fatalf("nil output accepted")
	}
	if _, err := NewSuccess(vm.SuccessReturn, 21000, 0, nil, &CallOutput{}); err == nil {
		t.Fatalf("call output without return value accepted")
	}
	if _, err := NewSuccess(vm.SuccessReturn, 21000, 0, nil, &CreateOutput{}); err == nil {
		t.Fatalf("create output without return value accepted")
	}
	if _, err := NewSuccess(vm.SuccessReturn, 21000, 0, []*Log{nil}, output); err == nil {
		t.Fatalf("nil log entry accepted")
	}
	if _, err := NewSuccess(vm.SuccessReturn, 21000, 0, []*Log{{}}, output); err == nil {
		t.Fatalf("log without data buffer accepted")
	}

	res, err := NewSuccess(vm.SuccessStop, 21000, 120, nil, output)
	if err != nil {
		t.Fatalf("valid success rejected: %v", err)
	}
	if res.GasUsed() != 21000 || res.RefundedGas != 120 {
		t.Fatalf("gas fields lost: used=%d refunded=%d", res.GasUsed(), res.RefundedGas)
	}
}

func TestNewRevertValidation(t *testing.T) {
	if _, err := NewRevert(50000, nil); err == nil {
		t.Fatalf("nil output accepted")
	}
	res, err := NewRevert(50000, membuf.From(nil))
	if err != nil {
		t.Fatalf("empty revert payload rejected: %v", err)
	}
	if res.GasUsed() != 50000 {
		t.Fatalf("gas lost: %d", res.GasUsed())
	}
}

func TestNewHaltValidation(t *testing.T) {
	if _, err := NewHalt(vm.HaltReasonCount, vm.OutOfGasBasic, 100); err == nil {
		t.Fatalf("invalid reason accepted")
	}
	if _, err := NewHalt(vm.HaltOutOfGas, vm.OutOfGasError(42), 100); err == nil {
		t.Fatalf("invalid out-of-gas sub-kind accepted")
	}

	// Frame-internal reasons are representable in the model; only the
	// host-facing mapping rejects them.
	res, err := NewHalt(vm.HaltCallTooDeep, vm.OutOfGasBasic, 100)
	if err != nil {
		t.Fatalf("frame-internal reason rejected at construction: %v", err)
	}
	if !res.Reason.Internal() {
		t.Fatalf("reason lost its frame-internal classification")
	}
}

func TestVariantsAreExclusive(t *testing.T) {
	output := &CallOutput{ReturnValue: membuf.From([]byte{0xde, 0xad})}
	success, _ := NewSuccess(vm.SuccessReturn, 21000, 0, nil, output)
	revert, _ := NewRevert(50000, membuf.From([]byte{0x08}))
	halt, _ := NewHalt(vm.HaltOutOfGas, vm.OutOfGasBasic, 100000)

	for _, res := range []TerminationResult{success, revert, halt} {
		matches := 0
		if _, ok := res.(*Success); ok {
			matches++
		}
		if _, ok := res.(*Revert); ok {
			matches++
		}
		if _, ok := res.(*Halt); ok {
			matches++
		}
		if matches != 1 {
			t.Fatalf("%T matches %d variants, want exactly 1", res, matches)
		}
	}
}

func TestDiscardReleasesBuffers(t *testing.T) {
	data := membuf.From([]byte{0x01})
	ret := membuf.From([]byte{0x02, 0x03})
	success, _ := NewSuccess(vm.SuccessReturn, 21000, 0,
		[]*Log{{Address: Address{0xaa}, Data: data}},
		&CallOutput{ReturnValue: ret})
	Discard(success)
	if data.Refs() != 0 || ret.Refs() != 0 {
		t.Fatalf("success buffers still held: data=%d ret=%d", data.Refs(), ret.Refs())
	}

	payload := membuf.From([]byte{0x08})
	revert, _ := NewRevert(50000, payload)
	Discard(revert)
	if payload.Refs() != 0 {
		t.Fatalf("revert payload still held: %d", payload.Refs())
	}

	halt, _ := NewHalt(vm.HaltOutOfGas, vm.OutOfGasBasic, 100000)
	Discard(halt) // owns no buffers
}

func TestAddressHashHelpers(t *testing.T) {
	if _, err := AddressFromBytes(make([]byte, 19)); err == nil {
		t.Fatalf("short address accepted")
	}
	if _, err := HashFromBytes(make([]byte, 33)); err == nil {
		t.Fatalf("long hash accepted")
	}

	raw := make([]byte, AddressLength)
	raw[0], raw[19] = 0xAB, 0xCD
	addr, err := AddressFromBytes(raw)
	if err != nil {
		t.Fatalf("valid address rejected: %v", err)
	}
	if addr.Hex() != "0xab000000000000000000000000000000000000cd" {
		t.Fatalf("hex mismatch: %s", addr.Hex())
	}
	if !bytes.Equal(addr.Bytes(), raw) {
		t.Fatalf("bytes round-trip mismatch: %x", addr.Bytes())
	}
}
