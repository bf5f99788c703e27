package hostbridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hostvm/evmbridge/core"
	"github.com/hostvm/evmbridge/core/vm"
	"github.com/hostvm/evmbridge/membuf"
)

func TestMarshalBatch(t *testing.T) {
	host := NewTableHost()
	defer host.Close()
	m := NewMarshaller(host)

	mustRevert := func(gas uint64, b []byte) *core.Revert {
		r, err := core.NewRevert(gas, membuf.From(b))
		require.NoError(t, err)
		return r
	}
	mustHalt := func(reason vm.HaltReason) *core.Halt {
		h, err := core.NewHalt(reason, 0, 10)
		require.NoError(t, err)
		return h
	}

	results := []core.TerminationResult{
		callSuccess(t, 21000, 0, membuf.From([]byte{0xde, 0xad}), nil),
		mustRevert(50000, []byte{0x08, 0xc3}),
		mustHalt(vm.HaltInvalidJump),
		callSuccess(t, 30000, 5, membuf.From([]byte{0x01}), []*core.Log{
			{Address: core.Address{1}, Data: membuf.From([]byte{0x02})},
		}),
		mustRevert(60000, nil),
		mustHalt(vm.HaltCreateCollision),
	}

	out, err := m.MarshalBatch(context.Background(), results, 3)
	require.NoError(t, err)
	require.Len(t, out, len(results))

	wantKinds := []ResultKind{ResultSuccess, ResultRevert, ResultHalt, ResultSuccess, ResultRevert, ResultHalt}
	for i, er := range out {
		require.NotNil(t, er, "result %d", i)
		require.Equal(t, wantKinds[i], er.Kind(), "result %d", i)
	}
	require.Equal(t, []byte{0xde, 0xad}, out[0].Success.Output.(*CallOutput).ReturnValue.Bytes())
	require.Equal(t, []byte{0x08, 0xc3}, out[1].Revert.Output.Bytes())

	for _, er := range out {
		require.NoError(t, er.Free(host))
	}
	require.Equal(t, 0, host.Len())
}

func TestMarshalBatchFailure(t *testing.T) {
	host := NewTableHost()
	defer host.Close()
	m := NewMarshaller(host)

	buffers := []*membuf.Buffer{
		membuf.From([]byte{1}),
		membuf.From([]byte{2}),
		membuf.From([]byte{3}),
	}
	results := []core.TerminationResult{
		callSuccess(t, 1, 0, buffers[0], nil),
		nil, // poisons the batch
		callSuccess(t, 2, 0, buffers[1], nil),
		callSuccess(t, 3, 0, buffers[2], nil),
	}

	out, err := m.MarshalBatch(context.Background(), results, 2)
	require.Error(t, err)
	require.True(t, IsBadElement(err))
	require.Nil(t, out)

	require.Equal(t, 0, host.Len(), "a failed batch leaves nothing live")
	for i, buf := range buffers {
		require.Equal(t, 0, buf.Refs(), "buffer %d must be reclaimed", i)
	}
}

func TestMarshalBatchCancelled(t *testing.T) {
	host := NewTableHost()
	defer host.Close()
	m := NewMarshaller(host)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	buf := membuf.From([]byte{1})
	out, err := m.MarshalBatch(ctx, []core.TerminationResult{
		callSuccess(t, 1, 0, buf, nil),
	}, 1)
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, out)
	require.Equal(t, 0, buf.Refs(), "unreached inputs are discarded")
	require.Equal(t, 0, host.Len())
}

func TestMarshalBatchEmpty(t *testing.T) {
	host := NewTableHost()
	defer host.Close()

	out, err := NewMarshaller(host).MarshalBatch(context.Background(), nil, 4)
	require.NoError(t, err)
	require.Nil(t, out)
}
