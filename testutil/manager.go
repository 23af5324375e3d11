package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kbukum/ormtest/logger"
)

// Manager starts, stops and resets a group of test components together.
type Manager struct {
	components []TestComponent
	log        *logger.Logger
	mu         sync.RWMutex
}

// NewManager creates a new test component manager.
func NewManager() *Manager {
	return &Manager{
		components: make([]TestComponent, 0),
		log:        logger.Get("testutil"),
	}
}

// Add registers a test component with the manager.
func (m *Manager) Add(component TestComponent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component)
}

// Components returns all registered components.
func (m *Manager) Components() []TestComponent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]TestComponent, len(m.components))
	copy(result, m.components)
	return result
}

// Get retrieves a component by name, or nil.
func (m *Manager) Get(name string) TestComponent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, comp := range m.components {
		if comp.Name() == name {
			return comp
		}
	}
	return nil
}

// StartAll starts all registered components in order, stopping at the first failure.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, comp := range m.components {
		if err := comp.Start(ctx); err != nil {
			return fmt.Errorf("failed to start component %s: %w", comp.Name(), err)
		}
		m.log.Debug("Test component started", map[string]interface{}{
			logger.FieldComponent: comp.Name(),
		})
	}
	return nil
}

// StopAll stops all registered components in reverse order. Failures do not
// stop the remaining components; they are joined into the returned error.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []error
	for i := len(m.components) - 1; i >= 0; i-- {
		comp := m.components[i]
		if err := comp.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop component %s: %w", comp.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// ResetAll resets all registered components, stopping at the first failure.
func (m *Manager) ResetAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, comp := range m.components {
		if err := comp.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset component %s: %w", comp.Name(), err)
		}
	}
	return nil
}
