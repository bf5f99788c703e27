package hostbridge

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// Handle identifies one live view in a TableHost. The key type is uintptr so
// handles can cross an FFI boundary as opaque pointers. Zero is reserved for
// "null" and never issued; issued handles are never reused.
type Handle uintptr

// TableHost is an in-process Host backed by a handle table. It is the
// reference implementation for embedders and the harness for tests: views
// are tracked by handle, reclaimed explicitly through Drop or Close, and a
// reclaimed view poisons itself so a stale access fails loudly instead of
// reading freed memory.
//
// TableHost is safe for concurrent use.
type TableHost struct {
	log     zerolog.Logger
	metrics *Metrics
	quota   int

	seq uintptr

	mu      sync.Mutex
	closed  bool
	failErr error
	entries map[Handle]*tableEntry
}

type tableEntry struct {
	view    *tableBuffer
	release func()
}

// tableBuffer is the HostBuffer of a TableHost.
type tableBuffer struct {
	host    *TableHost
	handle  Handle
	data    []byte
	dropped atomic.Bool
}

// Handle returns the table handle of the view.
func (b *tableBuffer) Handle() Handle { return b.handle }

func (b *tableBuffer) Len() int {
	if b.dropped.Load() {
		panic("hostbridge: access of dropped buffer view")
	}
	return len(b.data)
}

func (b *tableBuffer) Bytes() []byte {
	if b.dropped.Load() {
		panic("hostbridge: access of dropped buffer view")
	}
	return b.data
}

// TableOption configures a TableHost.
type TableOption func(*TableHost)

// WithTableLogger routes host diagnostics to l.
func WithTableLogger(l zerolog.Logger) TableOption {
	return func(t *TableHost) { t.log = l }
}

// WithTableMetrics records host activity on m.
func WithTableMetrics(m *Metrics) TableOption {
	return func(t *TableHost) { t.metrics = m }
}

// WithQuota caps the number of live views; registrations beyond the cap fail
// with a KindQuotaExceeded error. Zero means unlimited.
func WithQuota(n int) TableOption {
	return func(t *TableHost) { t.quota = n }
}

// NewTableHost builds an empty host table.
func NewTableHost(opts ...TableOption) *TableHost {
	t := &TableHost{
		log:     zerolog.Nop(),
		metrics: NilMetrics(),
		entries: make(map[Handle]*tableEntry),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewBuffer copies b into a table-owned allocation.
func (t *TableHost) NewBuffer(b []byte) (HostBuffer, error) {
	data := make([]byte, len(b))
	copy(data, b)
	return t.register("new buffer", data, nil)
}

// NewExternalBuffer registers a borrowed view over data. release runs exactly
// once, on Drop or Close. On error nothing was registered and release will
// not run.
func (t *TableHost) NewExternalBuffer(data []byte, release func()) (HostBuffer, error) {
	return t.register("new external buffer", data, release)
}

func (t *TableHost) register(op string, data []byte, release func()) (HostBuffer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, newError(op, KindHostClosed, ErrHostClosed)
	}
	if t.failErr != nil {
		err := t.failErr
		t.failErr = nil
		return nil, newError(op, KindAllocFailed, err)
	}
	if t.quota > 0 && len(t.entries) >= t.quota {
		return nil, newError(op, KindQuotaExceeded, fmt.Errorf("%w: %d views live", ErrQuotaExceeded, len(t.entries)))
	}

	h := Handle(atomic.AddUintptr(&t.seq, 1))
	view := &tableBuffer{host: t, handle: h, data: data}
	t.entries[h] = &tableEntry{view: view, release: release}
	t.metrics.LiveViews.Set(float64(len(t.entries)))
	return view, nil
}

// FailNextAlloc makes the next registration fail with err wrapped in a
// KindAllocFailed error. Test hook.
func (t *TableHost) FailNextAlloc(err error) {
	t.mu.Lock()
	t.failErr = err
	t.mu.Unlock()
}

// Len reports the number of live views.
func (t *TableHost) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Drop reclaims the view h, running its release callback. A handle that was
// already dropped reports ErrDroppedBuffer; one that was never issued
// reports ErrUnknownBuffer.
func (t *TableHost) Drop(h Handle) error {
	t.mu.Lock()
	e, ok := t.entries[h]
	if ok {
		delete(t.entries, h)
	}
	live := len(t.entries)
	issued := uintptr(h) != 0 && uintptr(h) <= atomic.LoadUintptr(&t.seq)
	t.mu.Unlock()

	if !ok {
		// Handles are never reused, so an issued handle missing from the
		// table has been dropped before.
		if issued {
			return newError("drop view", KindBadElement, fmt.Errorf("%w: handle %d", ErrDroppedBuffer, h))
		}
		return newError("drop view", KindBadElement, fmt.Errorf("%w: handle %d", ErrUnknownBuffer, h))
	}

	e.view.dropped.Store(true)
	if e.release != nil {
		e.release()
		t.metrics.ReleasesRun.Add(1)
	}
	t.metrics.LiveViews.Set(float64(live))
	return nil
}

// DropBuffer reclaims the view v. It is Drop keyed by the view itself.
func (t *TableHost) DropBuffer(v HostBuffer) error {
	b, ok := v.(*tableBuffer)
	if !ok || b.host != t {
		return errorf("drop view", KindBadElement, "view does not belong to this host")
	}
	return t.Drop(b.handle)
}

// Close reclaims every live view and shuts the table down. Release callbacks
// run exactly once each; a panicking callback is captured and reported so the
// remaining views are still reclaimed. Close after Close is a no-op.
func (t *TableHost) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	entries := t.entries
	t.entries = nil
	t.mu.Unlock()

	if len(entries) > 0 {
		t.log.Debug().Int("views", len(entries)).Msg("dropping live views on close")
	}

	var merr *multierror.Error
	for h, e := range entries {
		e.view.dropped.Store(true)
		if e.release == nil {
			continue
		}
		if err := runRelease(e.release); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("view %d: %w", h, err))
			continue
		}
		t.metrics.ReleasesRun.Add(1)
	}
	t.metrics.LiveViews.Set(0)
	return merr.ErrorOrNil()
}

func runRelease(release func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("release callback panicked: %v", r)
		}
	}()
	release()
	return nil
}
