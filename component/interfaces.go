package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component represents a lifecycle-managed infrastructure component.
type Component interface {
	// Name returns the unique name of the component.
	Name() string

	// Start initializes and starts the component.
	Start(ctx context.Context) error

	// Stop shuts down the component and releases resources.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}
