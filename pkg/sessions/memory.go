package sessions

import (
	"context"
	"sync"

	"github.com/halcyonhq/halcyon/pkg/halsdk"
)

// Memory is an in-memory SessionStore for a single logical session. It is
// safe for concurrent use and hands out copies so callers cannot mutate the
// persisted state behind its back.
type Memory struct {
	mu   sync.Mutex
	data map[string]any
}

// NewMemory creates an empty in-memory session store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	return cloneData(m.data), nil
}

func (m *Memory) Save(_ context.Context, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = cloneData(data)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

// Disabled is a SessionStore whose mechanism is administratively disabled.
// Authentication against it fails fast with halsdk.ErrSessionUnavailable.
type Disabled struct{}

func (Disabled) Unavailable() bool { return true }

func (Disabled) Load(context.Context) (map[string]any, error) {
	return nil, halsdk.ErrSessionUnavailable
}

func (Disabled) Save(context.Context, map[string]any) error {
	return halsdk.ErrSessionUnavailable
}

func (Disabled) Clear(context.Context) error {
	return halsdk.ErrSessionUnavailable
}

func cloneData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
