package hostbridge

import (
	"github.com/hostvm/evmbridge/core"
)

// marshalLog bridges one event record. The 20-byte address and 32-byte
// topics are copied into host buffers; the variable-length payload is moved
// zero-copy. A failure on any element fails the log, and the caller fails
// the whole result.
func (m *Marshaller) marshalLog(st *marshalState, l *core.Log) (*ExecutionLog, error) {
	if l == nil {
		return nil, errorf("bridge log", KindBadElement, "nil log entry")
	}
	if l.Data == nil {
		return nil, errorf("bridge log", KindBadElement, "log entry without data buffer")
	}

	addr, err := m.copied(st, "bridge log address", l.Address[:])
	if err != nil {
		return nil, err
	}

	var topics []HostBuffer
	if len(l.Topics) > 0 {
		topics = make([]HostBuffer, len(l.Topics))
		for i := range l.Topics {
			topics[i], err = m.copied(st, "bridge log topic", l.Topics[i][:])
			if err != nil {
				return nil, err
			}
		}
	}

	data, err := m.moved(st, "bridge log data", l.Data)
	if err != nil {
		return nil, err
	}

	return &ExecutionLog{
		Address: addr,
		Topics:  topics,
		Data:    data,
	}, nil
}
