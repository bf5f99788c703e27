package hostbridge

import (
	"errors"
	"fmt"
)

// Sentinel errors of the host boundary. They arrive wrapped in a BridgeError
// and are matched with errors.Is.
var (
	// ErrHostClosed reports an operation on a host that was shut down.
	ErrHostClosed = errors.New("host is closed")

	// ErrDroppedBuffer reports a second reclaim of an already dropped view.
	ErrDroppedBuffer = errors.New("buffer view already dropped")

	// ErrUnknownBuffer reports a view or handle the host never issued.
	ErrUnknownBuffer = errors.New("unknown buffer view")

	// ErrQuotaExceeded reports that the host refused a new view because its
	// live-view quota is exhausted.
	ErrQuotaExceeded = errors.New("host buffer quota exceeded")
)

// ErrorKind classifies a host-boundary failure.
type ErrorKind uint8

const (
	KindUnclassified ErrorKind = iota
	KindAllocFailed
	KindQuotaExceeded
	KindHostClosed
	KindBadElement
)

// String returns a human-readable string for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindUnclassified:
		return "unclassified"
	case KindAllocFailed:
		return "alloc_failed"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindHostClosed:
		return "host_closed"
	case KindBadElement:
		return "bad_element"
	}
	return "unknown"
}

// BridgeError is a recoverable host-boundary failure. Contract violations
// (an internal-only halt reason crossing the boundary, a double release) are
// never represented as a BridgeError; those panic.
type BridgeError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("hostbridge: %s: %s", e.Op, e.Err)
}

func (e *BridgeError) Unwrap() error {
	return e.Err
}

func newError(op string, kind ErrorKind, err error) *BridgeError {
	return &BridgeError{Op: op, Kind: kind, Err: err}
}

func errorf(op string, kind ErrorKind, format string, args ...any) *BridgeError {
	return &BridgeError{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// asBridgeError keeps an existing BridgeError intact and wraps anything else.
func asBridgeError(op string, kind ErrorKind, err error) error {
	var be *BridgeError
	if errors.As(err, &be) {
		return err
	}
	return newError(op, kind, err)
}

func hasKind(err error, kind ErrorKind) bool {
	var be *BridgeError
	return errors.As(err, &be) && be.Kind == kind
}

// IsAllocFailed reports whether err is a host allocation failure.
func IsAllocFailed(err error) bool { return hasKind(err, KindAllocFailed) }

// IsQuotaExceeded reports whether err is a live-view quota rejection.
func IsQuotaExceeded(err error) bool { return hasKind(err, KindQuotaExceeded) }

// IsHostClosed reports whether err is an operation on a closed host.
func IsHostClosed(err error) bool { return hasKind(err, KindHostClosed) }

// IsBadElement reports whether err is a malformed or foreign input element.
func IsBadElement(err error) bool { return hasKind(err, KindBadElement) }
