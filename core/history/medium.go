package history

import "sync"

// DefaultKey is the key the conversation log is stored under.
const DefaultKey = "claude-voice-chat"

// Medium is the key-value storage the history is persisted to. Read returns
// nil data and a nil error when the key does not exist. A Store without a
// Medium keeps the log in memory only.
type Medium interface {
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
}

// MemoryMedium keeps values in process memory. It is mainly useful for tests
// and for running without persistence.
type MemoryMedium struct {
	mu     sync.Mutex
	values map[string][]byte
}

func NewMemoryMedium() *MemoryMedium {
	return &MemoryMedium{values: map[string][]byte{}}
}

func (m *MemoryMedium) Read(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.values[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), value...), nil
}

func (m *MemoryMedium) Write(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = append([]byte(nil), data...)
	return nil
}
