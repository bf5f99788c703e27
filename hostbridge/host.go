// Package hostbridge converts execution results into the buffer and enum
// vocabulary of an embedding host runtime.
//
// Conversion moves ownership. Variable-length payloads of the source result
// (return data, revert output, log data) are registered with the host as
// zero-copy views and the host becomes responsible for running their release
// callbacks. Small fixed-width values (addresses, log topics) are copied into
// host-owned buffers instead. A failure while bridging any element aborts the
// whole result: views already registered are dropped, buffers not yet
// transferred are released, and the caller receives a typed error in place of
// a partial result.
package hostbridge

// HostBuffer is a host-owned byte view. For external buffers the bytes alias
// the source allocation; the view stays valid until the host reclaims it.
type HostBuffer interface {
	Len() int
	Bytes() []byte
}

// Host is the allocation and registration facility of an embedding runtime.
// Implementations decide what "reclaim" means for their environment; the
// bridge only requires that a registered release callback runs exactly once.
type Host interface {
	// NewBuffer copies b into a host-owned allocation.
	NewBuffer(b []byte) (HostBuffer, error)

	// NewExternalBuffer registers a borrowed view over data without copying.
	// The host runs release exactly once when the view is reclaimed. On error
	// the callback has not been registered and will not run; the caller still
	// owns data.
	NewExternalBuffer(data []byte, release func()) (HostBuffer, error)

	// DropBuffer deterministically reclaims one view created by this host,
	// running its release callback if it has one. Dropping a view twice or
	// passing a view of another host is an error.
	DropBuffer(v HostBuffer) error
}
