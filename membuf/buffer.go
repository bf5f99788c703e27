// Package membuf provides immutable, reference-counted byte buffers for
// payloads that cross an ownership boundary. A Buffer never grows and never
// reallocates, so its backing array is stable for the buffer's whole lifetime
// and can safely back zero-copy views held elsewhere.
package membuf

import "sync"

// payload size classes for pooled copies. Buffers above the largest class are
// allocated directly and handed back to the garbage collector on release.
var classSizes = [...]int{64, 256, 1024, 4096, 16384, 65536}

var classPools [len(classSizes)]sync.Pool

func init() {
	for i := range classPools {
		size := classSizes[i]
		classPools[i].New = func() interface{} {
			b := make([]byte, size)
			return &b
		}
	}
}

func classFor(n int) int {
	for i, size := range classSizes {
		if n <= size {
			return i
		}
	}
	return -1
}

// Buffer is an owned, contiguous, immutable byte region. The zero value is
// not usable; construct with From or Copy. Callers must not mutate the slice
// returned by Bytes.
//
// Ownership is counted: Retain adds a reference, Release drops one. The
// reference dropping the count to zero destroys the buffer. Releasing or
// retaining a destroyed buffer is a programming error and panics.
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	refs   int32
	pooled int // pool class index, -1 when not pooled
}

// From adopts b as the buffer's backing array. The caller hands over
// ownership and must not touch b afterwards. A nil or empty slice yields a
// valid empty buffer.
func From(b []byte) *Buffer {
	return &Buffer{data: b, refs: 1, pooled: -1}
}

// Copy duplicates b into a pool-backed allocation, leaving ownership of b
// with the caller.
func Copy(b []byte) *Buffer {
	if len(b) == 0 {
		return &Buffer{refs: 1, pooled: -1}
	}
	class := classFor(len(b))
	if class < 0 {
		dup := make([]byte, len(b))
		copy(dup, b)
		return &Buffer{data: dup, refs: 1, pooled: -1}
	}
	payload := classPools[class].Get().(*[]byte)
	n := copy((*payload)[:len(b)], b)
	return &Buffer{data: (*payload)[:n], refs: 1, pooled: class}
}

// Bytes returns the backing slice. The result aliases the buffer's memory and
// is valid until the last reference is released.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refs <= 0 {
		panic("membuf: access of destroyed buffer")
	}
	return b.data
}

// Len returns the buffer length in bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refs <= 0 {
		panic("membuf: access of destroyed buffer")
	}
	return len(b.data)
}

// Retain adds a reference and returns b for chaining.
func (b *Buffer) Retain() *Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refs <= 0 {
		panic("membuf: retain of destroyed buffer")
	}
	b.refs++
	return b
}

// Release drops one reference. The call that drops the last reference returns
// pooled memory to its pool and poisons the buffer so later use panics.
// Releasing more often than retained panics: a double release means two
// owners believed they held the last reference, which is exactly the bug the
// count exists to surface.
func (b *Buffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refs <= 0 {
		panic("membuf: release of destroyed buffer")
	}
	b.refs--
	if b.refs > 0 {
		return
	}
	if b.pooled >= 0 {
		payload := b.data[:cap(b.data)]
		classPools[b.pooled].Put(&payload)
	}
	b.data = nil
}

// Refs returns the current reference count. It exists for tests and
// diagnostics; production code must not branch on it.
func (b *Buffer) Refs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int(b.refs)
}
