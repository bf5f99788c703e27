package gojahost

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/hostvm/evmbridge/hostbridge"
)

// Bind exposes res to scripts under the given global name. Gas values are
// decimal strings, reasons are their stable ordinals, buffers are the
// ArrayBuffers created when the result was marshalled. The bound object
// shares the result's views; reclaiming them detaches what scripts see.
//
// The shape is one of
//
//	{kind: "success", success: {reason, gasUsed, gasRefunded, logs, output}}
//	{kind: "revert",  revert:  {gasUsed, output}}
//	{kind: "halt",    halt:    {reason, gasUsed}}
//
// where logs are {address, topics, data} and a create output carries an
// address key only when an address was assigned.
func (h *Host) Bind(name string, res *hostbridge.ExecutionResult) error {
	if res == nil {
		return fmt.Errorf("gojahost: bind %s: nil execution result", name)
	}
	obj, err := h.resultObject(res)
	if err != nil {
		return fmt.Errorf("gojahost: bind %s: %w", name, err)
	}
	if err := h.rt.Set(name, obj); err != nil {
		return fmt.Errorf("gojahost: bind %s: %w", name, err)
	}
	return nil
}

// builder accumulates the first Set failure so call sites stay linear.
type builder struct {
	obj *goja.Object
	err error
}

func (h *Host) newBuilder() *builder {
	return &builder{obj: h.rt.NewObject()}
}

func (b *builder) set(name string, v interface{}) {
	if b.err == nil {
		b.err = b.obj.Set(name, v)
	}
}

func (b *builder) done() (*goja.Object, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.obj, nil
}

func (h *Host) resultObject(res *hostbridge.ExecutionResult) (*goja.Object, error) {
	b := h.newBuilder()
	b.set("kind", res.Kind().String())

	switch res.Kind() {
	case hostbridge.ResultSuccess:
		inner, err := h.successObject(res.Success)
		if err != nil {
			return nil, err
		}
		b.set("success", inner)
	case hostbridge.ResultRevert:
		inner, err := h.revertObject(res.Revert)
		if err != nil {
			return nil, err
		}
		b.set("revert", inner)
	case hostbridge.ResultHalt:
		inner, err := h.haltObject(res.Halt)
		if err != nil {
			return nil, err
		}
		b.set("halt", inner)
	}
	return b.done()
}

func (h *Host) successObject(s *hostbridge.SuccessResult) (*goja.Object, error) {
	b := h.newBuilder()
	b.set("reason", uint8(s.Reason))
	b.set("gasUsed", s.GasUsed.Dec())
	b.set("gasRefunded", s.GasRefunded.Dec())

	logs := make([]interface{}, len(s.Logs))
	for i, l := range s.Logs {
		lo, err := h.logObject(l)
		if err != nil {
			return nil, fmt.Errorf("log %d: %w", i, err)
		}
		logs[i] = lo
	}
	b.set("logs", h.rt.NewArray(logs...))

	out, err := h.outputObject(s.Output)
	if err != nil {
		return nil, err
	}
	b.set("output", out)
	return b.done()
}

func (h *Host) revertObject(r *hostbridge.RevertResult) (*goja.Object, error) {
	out, err := h.bufferValue(r.Output)
	if err != nil {
		return nil, err
	}
	b := h.newBuilder()
	b.set("gasUsed", r.GasUsed.Dec())
	b.set("output", out)
	return b.done()
}

func (h *Host) haltObject(r *hostbridge.HaltResult) (*goja.Object, error) {
	b := h.newBuilder()
	b.set("reason", uint8(r.Reason))
	b.set("gasUsed", r.GasUsed.Dec())
	return b.done()
}

func (h *Host) logObject(l *hostbridge.ExecutionLog) (*goja.Object, error) {
	addr, err := h.bufferValue(l.Address)
	if err != nil {
		return nil, err
	}
	topics := make([]interface{}, len(l.Topics))
	for i, topic := range l.Topics {
		topics[i], err = h.bufferValue(topic)
		if err != nil {
			return nil, fmt.Errorf("topic %d: %w", i, err)
		}
	}
	data, err := h.bufferValue(l.Data)
	if err != nil {
		return nil, err
	}

	b := h.newBuilder()
	b.set("address", addr)
	b.set("topics", h.rt.NewArray(topics...))
	b.set("data", data)
	return b.done()
}

func (h *Host) outputObject(out hostbridge.Output) (*goja.Object, error) {
	switch o := out.(type) {
	case *hostbridge.CallOutput:
		ret, err := h.bufferValue(o.ReturnValue)
		if err != nil {
			return nil, err
		}
		b := h.newBuilder()
		b.set("returnValue", ret)
		return b.done()
	case *hostbridge.CreateOutput:
		ret, err := h.bufferValue(o.ReturnValue)
		if err != nil {
			return nil, err
		}
		b := h.newBuilder()
		b.set("returnValue", ret)
		if o.Address != nil {
			addr, err := h.bufferValue(o.Address)
			if err != nil {
				return nil, err
			}
			b.set("address", addr)
		}
		return b.done()
	default:
		return nil, fmt.Errorf("unknown output type %T", out)
	}
}

// bufferValue unwraps a view created by this host back to its ArrayBuffer.
func (h *Host) bufferValue(v hostbridge.HostBuffer) (goja.ArrayBuffer, error) {
	jv, ok := v.(*view)
	if !ok || jv.host != h {
		return goja.ArrayBuffer{}, fmt.Errorf("view does not belong to this host")
	}
	return jv.ab, nil
}
