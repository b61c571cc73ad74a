package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"tracklix/tracking/internal/tracking/domain"
)

// MemoryRepository is an in-memory Repository implementation, used in
// tests and when running without a database.
type MemoryRepository struct {
	mu       sync.RWMutex
	entities map[uuid.UUID]*domain.Entity
	sessions map[uuid.UUID]*domain.Session
	events   []*domain.Event
}

// NewMemoryRepository returns an empty in-memory tracking repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		entities: make(map[uuid.UUID]*domain.Entity),
		sessions: make(map[uuid.UUID]*domain.Session),
	}
}

func (r *MemoryRepository) GetEntity(ctx context.Context, entityID uuid.UUID) (*domain.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[entityID]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r *MemoryRepository) GetEntityByCompanyAndProduction(ctx context.Context, companyID uuid.UUID, production string) (*domain.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entities {
		if e.CompanyID == companyID && e.Production == production {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) ListEntities(ctx context.Context, limit int) ([]*domain.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Entity, 0, len(r.entities))
	for _, e := range r.entities {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) InsertEntity(ctx context.Context, e *domain.Entity) (InsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entities[e.EntityID]; ok {
		return AlreadyExists, nil
	}
	cp := *e
	r.entities[e.EntityID] = &cp
	return Inserted, nil
}

func (r *MemoryRepository) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) ListSessions(ctx context.Context, entityID uuid.UUID, limit int) ([]*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Session
	for _, s := range r.sessions {
		if s.EntityID == entityID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) InsertSession(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.SessionID] = &cp
	return nil
}

func (r *MemoryRepository) ListEventsBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Event
	for _, e := range r.events {
		if e.SessionID == sessionID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) InsertEvent(ctx context.Context, e *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.events = append(r.events, &cp)
	return nil
}

func (r *MemoryRepository) DeleteEntityCascade(ctx context.Context, entityID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entities, entityID)
	for id, s := range r.sessions {
		if s.EntityID == entityID {
			delete(r.sessions, id)
		}
	}
	kept := r.events[:0]
	for _, e := range r.events {
		if e.EntityID != entityID {
			kept = append(kept, e)
		}
	}
	r.events = kept
	return nil
}

func (r *MemoryRepository) DeleteSessionCascade(ctx context.Context, sessionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	kept := r.events[:0]
	for _, e := range r.events {
		if e.SessionID != sessionID {
			kept = append(kept, e)
		}
	}
	r.events = kept
	return nil
}
