// Package gojahost embeds the bridge into a goja JavaScript runtime.
//
// Buffers surface to scripts as ArrayBuffers. External buffers wrap their
// source bytes without copying, so a script reads the same memory the
// execution produced; reclaiming a view detaches its ArrayBuffer and then
// runs the release callback.
//
// A Host is bound to one runtime and shares its single-threaded discipline:
// nothing here is safe for concurrent use.
package gojahost

import (
	"fmt"

	"github.com/dop251/goja"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/hostvm/evmbridge/hostbridge"
)

// Host implements hostbridge.Host over a goja runtime.
type Host struct {
	rt  *goja.Runtime
	log zerolog.Logger

	seq    uint64
	live   map[uint64]*view
	closed bool
}

var _ hostbridge.Host = (*Host)(nil)

// view is the HostBuffer of a goja Host.
type view struct {
	host    *Host
	id      uint64
	ab      goja.ArrayBuffer
	release func()
	dropped bool
}

func (v *view) Len() int {
	if v.dropped {
		panic("gojahost: access of dropped buffer view")
	}
	return len(v.ab.Bytes())
}

func (v *view) Bytes() []byte {
	if v.dropped {
		panic("gojahost: access of dropped buffer view")
	}
	return v.ab.Bytes()
}

// Option configures a Host.
type Option func(*Host)

// WithLogger routes host diagnostics to l.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Host) { h.log = l }
}

// NewHost builds a Host over rt.
func NewHost(rt *goja.Runtime, opts ...Option) *Host {
	h := &Host{
		rt:   rt,
		log:  zerolog.Nop(),
		live: make(map[uint64]*view),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewBuffer copies b into a fresh ArrayBuffer.
func (h *Host) NewBuffer(b []byte) (hostbridge.HostBuffer, error) {
	data := make([]byte, len(b))
	copy(data, b)
	return h.register(data, nil)
}

// NewExternalBuffer wraps data in an ArrayBuffer without copying. release
// runs exactly once, when the view is reclaimed through Release, DropBuffer
// or Close. On error nothing was registered and release will not run.
func (h *Host) NewExternalBuffer(data []byte, release func()) (hostbridge.HostBuffer, error) {
	return h.register(data, release)
}

func (h *Host) register(data []byte, release func()) (hostbridge.HostBuffer, error) {
	if h.closed {
		return nil, &hostbridge.BridgeError{
			Op:   "new array buffer",
			Kind: hostbridge.KindHostClosed,
			Err:  hostbridge.ErrHostClosed,
		}
	}
	h.seq++
	v := &view{
		host:    h,
		id:      h.seq,
		ab:      h.rt.NewArrayBuffer(data),
		release: release,
	}
	h.live[v.id] = v
	return v, nil
}

// Len reports the number of live views.
func (h *Host) Len() int {
	return len(h.live)
}

// Release reclaims the view id: the ArrayBuffer is detached so scripts can
// no longer read it, then the release callback runs. Releasing twice
// reports ErrDroppedBuffer.
func (h *Host) Release(id uint64) error {
	v, ok := h.live[id]
	if !ok {
		if id != 0 && id <= h.seq {
			return &hostbridge.BridgeError{
				Op:   "release view",
				Kind: hostbridge.KindBadElement,
				Err:  fmt.Errorf("%w: view %d", hostbridge.ErrDroppedBuffer, id),
			}
		}
		return &hostbridge.BridgeError{
			Op:   "release view",
			Kind: hostbridge.KindBadElement,
			Err:  fmt.Errorf("%w: view %d", hostbridge.ErrUnknownBuffer, id),
		}
	}
	delete(h.live, id)
	h.reclaim(v)
	return nil
}

// DropBuffer reclaims the view v. It is Release keyed by the view itself.
func (h *Host) DropBuffer(v hostbridge.HostBuffer) error {
	jv, ok := v.(*view)
	if !ok || jv.host != h {
		return &hostbridge.BridgeError{
			Op:   "release view",
			Kind: hostbridge.KindBadElement,
			Err:  fmt.Errorf("view does not belong to this host"),
		}
	}
	return h.Release(jv.id)
}

// Close reclaims every live view and shuts the host down. Release callbacks
// run exactly once each; a panicking callback is captured and reported so
// the remaining views are still reclaimed. Close after Close is a no-op.
func (h *Host) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true

	if len(h.live) > 0 {
		h.log.Debug().Int("views", len(h.live)).Msg("releasing live views on close")
	}

	var merr *multierror.Error
	for id, v := range h.live {
		if err := h.reclaimSafe(v); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("view %d: %w", id, err))
		}
	}
	h.live = nil
	return merr.ErrorOrNil()
}

func (h *Host) reclaim(v *view) {
	v.dropped = true
	v.ab.Detach()
	if v.release != nil {
		v.release()
	}
}

func (h *Host) reclaimSafe(v *view) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("release callback panicked: %v", r)
		}
	}()
	h.reclaim(v)
	return nil
}
