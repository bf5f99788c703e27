package hostbridge

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableHostCopiesOwnedBuffers(t *testing.T) {
	host := NewTableHost()
	defer host.Close()

	src := []byte{1, 2, 3}
	view, err := host.NewBuffer(src)
	require.NoError(t, err)

	src[0] = 9
	require.Equal(t, []byte{1, 2, 3}, view.Bytes())
	require.Equal(t, 3, view.Len())
}

func TestTableHostExternalBufferAliases(t *testing.T) {
	host := NewTableHost()
	defer host.Close()

	data := []byte{4, 5, 6}
	released := 0
	view, err := host.NewExternalBuffer(data, func() { released++ })
	require.NoError(t, err)

	require.Same(t, &data[0], &view.Bytes()[0], "external view must not copy")

	require.NoError(t, host.DropBuffer(view))
	require.Equal(t, 1, released)

	require.NoError(t, host.Close())
	require.Equal(t, 1, released, "close must not rerun the callback")
}

func TestTableHostDropTwice(t *testing.T) {
	host := NewTableHost()
	defer host.Close()

	view, err := host.NewExternalBuffer([]byte{1}, func() {})
	require.NoError(t, err)
	handle := view.(*tableBuffer).Handle()

	require.NoError(t, host.Drop(handle))

	err = host.Drop(handle)
	require.ErrorIs(t, err, ErrDroppedBuffer)
	require.True(t, IsBadElement(err))

	err = host.DropBuffer(view)
	require.ErrorIs(t, err, ErrDroppedBuffer)
}

func TestTableHostUnknownHandle(t *testing.T) {
	host := NewTableHost()
	defer host.Close()

	require.ErrorIs(t, host.Drop(Handle(0)), ErrUnknownBuffer)
	require.ErrorIs(t, host.Drop(Handle(12345)), ErrUnknownBuffer)
}

func TestTableHostForeignView(t *testing.T) {
	host := NewTableHost()
	other := NewTableHost()
	defer host.Close()
	defer other.Close()

	view, err := other.NewBuffer([]byte{1})
	require.NoError(t, err)

	err = host.DropBuffer(view)
	require.True(t, IsBadElement(err))
	require.Equal(t, 1, other.Len(), "foreign drop must not touch the owner")
}

func TestTableHostDroppedViewPoisons(t *testing.T) {
	host := NewTableHost()
	defer host.Close()

	view, err := host.NewExternalBuffer([]byte{1, 2}, func() {})
	require.NoError(t, err)
	require.NoError(t, host.DropBuffer(view))

	require.Panics(t, func() { view.Bytes() })
	require.Panics(t, func() { view.Len() })
}

func TestTableHostQuota(t *testing.T) {
	host := NewTableHost(WithQuota(2))
	defer host.Close()

	first, err := host.NewBuffer([]byte{1})
	require.NoError(t, err)
	_, err = host.NewBuffer([]byte{2})
	require.NoError(t, err)

	_, err = host.NewBuffer([]byte{3})
	require.True(t, IsQuotaExceeded(err))
	require.ErrorIs(t, err, ErrQuotaExceeded)

	require.NoError(t, host.DropBuffer(first))
	_, err = host.NewBuffer([]byte{3})
	require.NoError(t, err, "quota frees up with the dropped view")
}

func TestTableHostFailNextAlloc(t *testing.T) {
	host := NewTableHost()
	defer host.Close()

	boom := errors.New("arena exhausted")
	host.FailNextAlloc(boom)

	_, err := host.NewExternalBuffer([]byte{1}, func() { t.Fatal("callback registered on failure") })
	require.True(t, IsAllocFailed(err))
	require.ErrorIs(t, err, boom)

	_, err = host.NewBuffer([]byte{1})
	require.NoError(t, err, "injection is one-shot")
}

func TestTableHostClosed(t *testing.T) {
	host := NewTableHost()
	require.NoError(t, host.Close())
	require.NoError(t, host.Close(), "second close is a no-op")

	_, err := host.NewBuffer([]byte{1})
	require.True(t, IsHostClosed(err))
	require.ErrorIs(t, err, ErrHostClosed)
}

func TestTableHostCloseRunsReleases(t *testing.T) {
	host := NewTableHost()

	released := make(map[int]int)
	for i := 0; i < 4; i++ {
		i := i
		_, err := host.NewExternalBuffer([]byte{byte(i)}, func() { released[i]++ })
		require.NoError(t, err)
	}
	require.Equal(t, 4, host.Len())

	require.NoError(t, host.Close())
	require.Equal(t, 0, host.Len())
	for i := 0; i < 4; i++ {
		require.Equal(t, 1, released[i], "callback %d", i)
	}
}

func TestTableHostCloseSurvivesPanickingRelease(t *testing.T) {
	host := NewTableHost()

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

func TestTableHostConcurrentUse(t *testing.T) {
	host := NewTableHost()
	defer host.Close()

	const goroutines = 16
	const perGoroutine = 50

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				view, err := host.NewExternalBuffer([]byte{byte(i)}, func() {})
				if err != nil {
					t.Error(err)
					return
				}
				if i%2 == 0 {
					if err := host.DropBuffer(view); err != nil {
						t.Error(err)
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	require.Equal(t, goroutines*perGoroutine/2, host.Len())
}
