// Package producer defines the interface for fanning persisted tracking
// events out to downstream consumers (e.g. Kafka).
package producer

import (
	"context"

	"tracklix/tracking/internal/tracking/domain"
)

// Producer emits persisted tracking events. Callers use it best-effort:
// log and ignore errors; a fan-out failure never fails the ingest.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly.
	Emit(ctx context.Context, event *domain.Event) error
	// Close releases resources (e.g. the Kafka writer). Safe to call if
	// already closed.
	Close() error
}
