package hostbridge

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"

	"github.com/hostvm/evmbridge/core"
	"github.com/hostvm/evmbridge/membuf"
)

// ResultKind names the variant an ExecutionResult carries.
type ResultKind uint8

const (
	ResultSuccess ResultKind = iota
	ResultRevert
	ResultHalt
)

// String returns a human-readable string for the kind.
func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultRevert:
		return "revert"
	case ResultHalt:
		return "halt"
	}
	return "unknown"
}

// Output is the host-facing outcome payload of a successful execution.
// CallOutput and CreateOutput are the only implementations.
type Output interface {
	isOutput()
}

// CallOutput is the bridged return data of a message call.
type CallOutput struct {
	ReturnValue HostBuffer
}

// CreateOutput is the bridged outcome of a contract creation. Address is a
// 20-byte view when an address was assigned and nil when none was; an absent
// address is never rendered as a zero-filled one.
type CreateOutput struct {
	ReturnValue HostBuffer
	Address     HostBuffer
}

func (*CallOutput) isOutput()   {}
func (*CreateOutput) isOutput() {}

// ExecutionLog is one bridged event record. Address and Topics are small
// host-owned copies; Data is a zero-copy view of the emitting buffer.
type ExecutionLog struct {
	Address HostBuffer
	Topics  []HostBuffer
	Data    HostBuffer
}

// SuccessResult is the host-facing form of core.Success. Gas fields are
// 256-bit so no host-side numeric type is forced to truncate them.
type SuccessResult struct {
	Reason      SuccessReason
	GasUsed     *uint256.Int
	GasRefunded *uint256.Int
	Logs        []*ExecutionLog
	Output      Output
}

// RevertResult is the host-facing form of core.Revert. Output carries the
// revert payload byte for byte.
type RevertResult struct {
	GasUsed *uint256.Int
	Output  HostBuffer
}

// HaltResult is the host-facing form of core.Halt.
type HaltResult struct {
	Reason  ExceptionalHalt
	GasUsed *uint256.Int
}

// ExecutionResult holds exactly one of the three variants.
type ExecutionResult struct {
	Success *SuccessResult
	Revert  *RevertResult
	Halt    *HaltResult

	// every host view created for this result, in registration order
	views []HostBuffer
}

// Kind reports which variant is set.
func (r *ExecutionResult) Kind() ResultKind {
	switch {
	case r.Success != nil:
		return ResultSuccess
	case r.Revert != nil:
		return ResultRevert
	case r.Halt != nil:
		return ResultHalt
	}
	panic("hostbridge: empty execution result")
}

// Free deterministically reclaims every host view of the result, running the
// release callbacks of the zero-copy ones. Calling Free again is a no-op.
// Hosts that reclaim on teardown (TableHost.Close, a collected JS scope) make
// Free optional; it is the explicit path.
func (r *ExecutionResult) Free(h Host) error {
	var merr *multierror.Error
	for i := len(r.views) - 1; i >= 0; i-- {
		if err := h.DropBuffer(r.views[i]); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	r.views = nil
	return merr.ErrorOrNil()
}

// Marshaller converts internal termination results for one host.
type Marshaller struct {
	host    Host
	log     zerolog.Logger
	metrics *Metrics
}

// MarshalOption configures a Marshaller.
type MarshalOption func(*Marshaller)

// WithLogger routes marshalling diagnostics to l.
func WithLogger(l zerolog.Logger) MarshalOption {
	return func(m *Marshaller) { m.log = l }
}

// WithMetrics records bridge activity on mt.
func WithMetrics(mt *Metrics) MarshalOption {
	return func(m *Marshaller) { m.metrics = mt }
}

// NewMarshaller builds a Marshaller for h. Without options it logs nowhere
// and keeps no metrics.
func NewMarshaller(h Host, opts ...MarshalOption) *Marshaller {
	m := &Marshaller{
		host:    h,
		log:     zerolog.Nop(),
		metrics: NilMetrics(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewExecutionResult converts res for h with default options. See
// Marshaller.Marshal.
func NewExecutionResult(h Host, res core.TerminationResult) (*ExecutionResult, error) {
	return NewMarshaller(h).Marshal(res)
}

// Marshal converts one termination result into host vocabulary, moving
// ownership of its payload buffers into the host. On error no partial result
// escapes: views already registered are dropped and buffers not yet
// transferred are released, then the first failure is returned. Callers that
// need the source result afterwards must Retain its buffers before calling.
//
// Marshal is synchronous and performs no locking of its own; one result is
// converted by one goroutine.
func (m *Marshaller) Marshal(res core.TerminationResult) (*ExecutionResult, error) {
	if res == nil {
		return nil, errorf("marshal result", KindBadElement, "nil termination result")
	}

	st := &marshalState{pending: make(map[*membuf.Buffer]struct{})}
	out, err := m.marshal(st, res)
	if err != nil {
		m.metrics.BridgeFailures.Add(1)
		if uerr := st.unwind(m.host); uerr != nil {
			m.log.Error().Err(uerr).Msg("cleanup after aborted marshal failed")
		}
		return nil, err
	}

	out.views = st.views
	switch out.Kind() {
	case ResultSuccess:
		m.metrics.SuccessResults.Add(1)
	case ResultRevert:
		m.metrics.RevertResults.Add(1)
	case ResultHalt:
		m.metrics.HaltResults.Add(1)
	}
	m.log.Debug().
		Stringer("kind", out.Kind()).
		Int("views", len(out.views)).
		Msg("result marshalled")
	return out, nil
}

func (m *Marshaller) marshal(st *marshalState, res core.TerminationResult) (*ExecutionResult, error) {
	switch r := res.(type) {
	case *core.Success:
		if r == nil {
			return nil, errorf("marshal result", KindBadElement, "nil success result")
		}
		s, err := m.marshalSuccess(st, r)
		if err != nil {
			return nil, err
		}
		return &ExecutionResult{Success: s}, nil
	case *core.Revert:
		if r == nil {
			return nil, errorf("marshal result", KindBadElement, "nil revert result")
		}
		rev, err := m.marshalRevert(st, r)
		if err != nil {
			return nil, err
		}
		return &ExecutionResult{Revert: rev}, nil
	case *core.Halt:
		if r == nil {
			return nil, errorf("marshal result", KindBadElement, "nil halt result")
		}
		return &ExecutionResult{Halt: m.marshalHalt(r)}, nil
	default:
		return nil, errorf("marshal result", KindBadElement, "unknown result type %T", res)
	}
}

func (m *Marshaller) marshalSuccess(st *marshalState, res *core.Success) (*SuccessResult, error) {
	// Everything owned must be accounted for before the first fallible step
	// so an abort can release what was not yet moved.
	for _, l := range res.Logs {
		if l != nil {
			st.adopt(l.Data)
		}
	}
	st.adopt(outputPayload(res.Output))

	var logs []*ExecutionLog
	for i, l := range res.Logs {
		el, err := m.marshalLog(st, l)
		if err != nil {
			return nil, fmt.Errorf("log %d: %w", i, err)
		}
		logs = append(logs, el)
	}

	out, err := m.marshalOutput(st, res.Output)
	if err != nil {
		return nil, err
	}

	return &SuccessResult{
		Reason:      successReasonFromVM(res.Reason),
		GasUsed:     uint256.NewInt(res.UsedGas),
		GasRefunded: uint256.NewInt(res.RefundedGas),
		Logs:        logs,
		Output:      out,
	}, nil
}

func (m *Marshaller) marshalRevert(st *marshalState, res *core.Revert) (*RevertResult, error) {
	out, err := m.moved(st, "bridge revert output", res.Output)
	if err != nil {
		return nil, err
	}
	return &RevertResult{
		GasUsed: uint256.NewInt(res.UsedGas),
		Output:  out,
	}, nil
}

func (m *Marshaller) marshalHalt(res *core.Halt) *HaltResult {
	return &HaltResult{
		Reason:  exceptionalHaltFromVM(res.Reason),
		GasUsed: uint256.NewInt(res.UsedGas),
	}
}

func (m *Marshaller) marshalOutput(st *marshalState, out core.Output) (Output, error) {
	switch o := out.(type) {
	case *core.CallOutput:
		ret, err := m.moved(st, "bridge call return value", o.ReturnValue)
		if err != nil {
			return nil, err
		}
		return &CallOutput{ReturnValue: ret}, nil
	case *core.CreateOutput:
		ret, err := m.moved(st, "bridge create return value", o.ReturnValue)
		if err != nil {
			return nil, err
		}
		ext := &CreateOutput{ReturnValue: ret}
		if o.Address != nil {
			addr, err := m.copied(st, "bridge deployed address", o.Address[:])
			if err != nil {
				return nil, err
			}
			ext.Address = addr
		}
		return ext, nil
	default:
		return nil, errorf("marshal output", KindBadElement, "unknown output type %T", out)
	}
}

func outputPayload(out core.Output) *membuf.Buffer {
	switch o := out.(type) {
	case *core.CallOutput:
		return o.ReturnValue
	case *core.CreateOutput:
		return o.ReturnValue
	default:
		return nil
	}
}

// copied bridges a small fixed-width value as a host-owned copy.
func (m *Marshaller) copied(st *marshalState, op string, b []byte) (HostBuffer, error) {
	v, err := m.host.NewBuffer(b)
	if err != nil {
		return nil, asBridgeError(op, KindAllocFailed, err)
	}
	st.views = append(st.views, v)
	m.metrics.BridgedBuffers.Add(1)
	m.metrics.BridgedBytes.Add(float64(len(b)))
	return v, nil
}

// moved bridges an owned payload buffer zero-copy, transferring its one
// reference to the host.
func (m *Marshaller) moved(st *marshalState, op string, buf *membuf.Buffer) (HostBuffer, error) {
	st.unpend(buf)
	n := 0
	if buf != nil {
		n = buf.Len()
	}
	v, err := bridgeOwned(m.host, op, buf)
	if err != nil {
		return nil, err
	}
	st.views = append(st.views, v)
	m.metrics.BridgedBuffers.Add(1)
	m.metrics.BridgedBytes.Add(float64(n))
	return v, nil
}

// marshalState tracks what one conversion has done to enable all-or-nothing
// cleanup. Every owned payload buffer of the source result is in exactly one
// place at any time: pending (not yet moved), a registered view (the host
// will release it), or already released by a failed bridge.
type marshalState struct {
	views   []HostBuffer
	pending map[*membuf.Buffer]struct{}
}

func (st *marshalState) adopt(buf *membuf.Buffer) {
	if buf != nil {
		st.pending[buf] = struct{}{}
	}
}

func (st *marshalState) unpend(buf *membuf.Buffer) {
	if buf != nil {
		delete(st.pending, buf)
	}
}

// unwind reverses a partial conversion: registered views are dropped newest
// first, which runs their release callbacks, then still-pending buffers are
// released directly.
func (st *marshalState) unwind(h Host) error {
	var merr *multierror.Error
	for i := len(st.views) - 1; i >= 0; i-- {
		if err := h.DropBuffer(st.views[i]); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	st.views = nil
	for buf := range st.pending {
		buf.Release()
	}
	st.pending = nil
	return merr.ErrorOrNil()
}
