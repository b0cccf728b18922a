package credstore

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is an exported constant or variable used by the account engine.
//
// ErrNotFound is returned by Load when no snapshot has been saved.
var ErrNotFound = errors.New("credstore: no snapshot stored")

// Memory defines a public type used by goaccount APIs.
//
// Memory keeps the snapshot in process memory only. It is the default store
// when the engine is built without an explicit one.
type Memory struct {
	mu   sync.Mutex
	data []byte
	set  bool
}

// NewMemory describes the newmemory operation and its observable behavior.
//
// NewMemory does not mutate shared global state and can be used concurrently.
func NewMemory() *Memory {
	return &Memory{}
}

// Save stores a copy of data, replacing any previous snapshot.
func (m *Memory) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	m.set = true
	return nil
}

// Load returns a copy of the stored snapshot or ErrNotFound.
func (m *Memory) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return nil, ErrNotFound
	}
	return append([]byte(nil), m.data...), nil
}

// Clear removes the stored snapshot. Clearing an empty store is not an error.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	m.set = false
	return nil
}
