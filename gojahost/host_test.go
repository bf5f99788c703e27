package gojahost

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/require"

	"github.com/hostvm/evmbridge/hostbridge"
)

func TestHostCopiesOwnedBuffers(t *testing.T) {
	host := NewHost(goja.New())
	defer host.Close()

	src := []byte{1, 2, 3}
	v, err := host.NewBuffer(src)
	require.NoError(t, err)

	src[0] = 9
	require.Equal(t, []byte{1, 2, 3}, v.Bytes())
}

func TestHostExternalBufferAliases(t *testing.T) {
	host := NewHost(goja.New())
	defer host.Close()

	data := []byte{4, 5, 6}
	released := 0
	v, err := host.NewExternalBuffer(data, func() { released++ })
	require.NoError(t, err)
	require.Same(t, &data[0], &v.Bytes()[0], "external view must not copy")
	require.Equal(t, 1, host.Len())

	require.NoError(t, host.DropBuffer(v))
	require.Equal(t, 1, released)
	require.Equal(t, 0, host.Len())

	require.NoError(t, host.Close())
	require.Equal(t, 1, released, "close must not rerun the callback")
}

func TestHostReleaseTwice(t *testing.T) {
	host := NewHost(goja.New())
	defer host.Close()

	v, err := host.NewExternalBuffer([]byte{1}, func() {})
	require.NoError(t, err)
	id := v.(*view).id

	require.NoError(t, host.Release(id))
	require.ErrorIs(t, host.Release(id), hostbridge.ErrDroppedBuffer)
	require.ErrorIs(t, host.Release(9999), hostbridge.ErrUnknownBuffer)
	require.ErrorIs(t, host.Release(0), hostbridge.ErrUnknownBuffer)

	require.Panics(t, func() { v.Bytes() }, "dropped view must poison")
}

func TestHostForeignView(t *testing.T) {
	host := NewHost(goja.New())
	other := NewHost(goja.New())
	defer host.Close()
	defer other.Close()

	v, err := other.NewBuffer([]byte{1})
	require.NoError(t, err)

	require.True(t, hostbridge.IsBadElement(host.DropBuffer(v)))
	require.Equal(t, 1, other.Len())
}

func TestHostClosed(t *testing.T) {
	host := NewHost(goja.New())

	released := 0
	_, err := host.NewExternalBuffer([]byte{1}, func() { released++ })
	require.NoError(t, err)

	require.NoError(t, host.Close())
	require.Equal(t, 1, released)
	require.NoError(t, host.Close(), "second close is a no-op")

	_, err = host.NewBuffer([]byte{1})
	require.True(t, hostbridge.IsHostClosed(err))
	require.ErrorIs(t, err, hostbridge.ErrHostClosed)
}

func TestHostCloseSurvivesPanickingRelease(t *testing.T) {
	host := NewHost(goja.New())

	ran := 0
	_, err := host.NewExternalBuffer([]byte{1}, func() { ran++ })
	require.NoError(t, err)
	_, err = host.NewExternalBuffer([]byte{2}, func() { panic("double free") })
	require.NoError(t, err)
	_, err = host.NewExternalBuffer([]byte{3}, func() { ran++ })
	require.NoError(t, err)

	err = host.Close()
	require.Error(t, err)
	require.Contains(t, err.Error(), "panicked")
	require.Equal(t, 2, ran, "healthy callbacks still run")
}
