package hostbridge

import (
	"github.com/hostvm/evmbridge/membuf"
)

// bridgeOwned moves buf into the host as a zero-copy view. The view's bytes
// alias the buffer's backing array and the buffer's own Release becomes the
// host's reclamation callback, so the allocation lives exactly as long as
// the view. If registration fails the buffer is released here; there is one
// release on every path.
func bridgeOwned(h Host, op string, buf *membuf.Buffer) (HostBuffer, error) {
	if buf == nil {
		return nil, errorf(op, KindBadElement, "nil payload buffer")
	}
	v, err := h.NewExternalBuffer(buf.Bytes(), buf.Release)
	if err != nil {
		buf.Release()
		return nil, asBridgeError(op, KindAllocFailed, err)
	}
	return v, nil
}
