// Package repository defines persistence for tracking entities, sessions
// and events.
package repository

import (
	"context"

	"github.com/google/uuid"

	"tracklix/tracking/internal/tracking/domain"
)

// InsertResult reports the outcome of an idempotent insert.
type InsertResult int

const (
	// Inserted means a new row was written.
	Inserted InsertResult = iota
	// AlreadyExists means a row with the same key was present and the
	// insert was a no-op. Not an error: concurrent first-sighting of the
	// same entity converges through this result.
	AlreadyExists
)

// Repository defines persistence for the tracking pipeline. Lookups
// return (nil, nil) when no row matches; errors are reserved for store
// failures.
type Repository interface {
	GetEntity(ctx context.Context, entityID uuid.UUID) (*domain.Entity, error)
	GetEntityByCompanyAndProduction(ctx context.Context, companyID uuid.UUID, production string) (*domain.Entity, error)
	ListEntities(ctx context.Context, limit int) ([]*domain.Entity, error)
	// InsertEntity writes the entity, treating a duplicate key as a
	// successful no-op.
	InsertEntity(ctx context.Context, e *domain.Entity) (InsertResult, error)

	GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error)
	ListSessions(ctx context.Context, entityID uuid.UUID, limit int) ([]*domain.Session, error)
	InsertSession(ctx context.Context, s *domain.Session) error

	ListEventsBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]*domain.Event, error)
	InsertEvent(ctx context.Context, e *domain.Event) error

	// Administrative deletes; never called by the ingestion pipeline.
	DeleteEntityCascade(ctx context.Context, entityID uuid.UUID) error
	DeleteSessionCascade(ctx context.Context, sessionID uuid.UUID) error
}
