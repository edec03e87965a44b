package session

import (
	"context"
	"sync"
)

// Manager owns the controllers of all devices.
type Manager struct {
	deps Deps

	mu          sync.Mutex
	controllers map[Key]*Controller
}

func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:        deps.withDefaults(),
		controllers: make(map[Key]*Controller),
	}
}

// Open returns the loaded controller for device and set, creating it on
// first use. A controller in another mode is switched to mode.
func (m *Manager) Open(ctx context.Context, device string, setID int64, mode Mode) (*Controller, error) {
	key := Key{Device: device, SetID: setID}

	m.mu.Lock()
	c, ok := m.controllers[key]
	if !ok {
		c = New(key, mode, m.deps)
		m.controllers[key] = c
	}
	m.mu.Unlock()

	if c.Mode() != mode {
		if err := c.SetMode(ctx, mode); err != nil {
			return nil, err
		}
		return c, nil
	}
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the controller for device and set without loading it.
func (m *Manager) Get(device string, setID int64) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.controllers[Key{Device: device, SetID: setID}]
	return c, ok
}

// Destroy discards the session of device for the set.
func (m *Manager) Destroy(ctx context.Context, device string, setID int64) error {
	key := Key{Device: device, SetID: setID}

	m.mu.Lock()
	c, ok := m.controllers[key]
	delete(m.controllers, key)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return c.Destroy(ctx)
}

// DestroySet drops every controller of the set without touching storage.
// Callers remove the stored snapshots themselves.
func (m *Manager) DestroySet(setID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for key := range m.controllers {
		if key.SetID == setID {
			delete(m.controllers, key)
			n++
		}
	}
	return n
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.controllers)
}
