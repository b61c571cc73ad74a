// Package worker drains the admission queue and persists tracking events,
// resolving (or idempotently creating) the owning entity and session for
// each submission.
package worker

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tracklix/tracking/internal/tracking/domain"
	"tracklix/tracking/internal/tracking/producer"
	"tracklix/tracking/internal/tracking/queue"
	"tracklix/tracking/internal/tracking/repository"
)

// itemTimeout bounds the store calls for one submission. A timed-out item
// counts as failed; the loop moves on.
const itemTimeout = 10 * time.Second

// DefaultProductions are the production codes ensured on first sight of a
// company when none are configured.
var DefaultProductions = []string{"PT", "PY", "FD"}

// Worker is the single consumer of the admission queue. Items are
// processed to completion one at a time; one item's failure never stops
// the loop.
type Worker struct {
	queue       *queue.Queue
	repo        repository.Repository
	producer    producer.Producer // nil disables fan-out
	productions []string

	processed atomic.Int64
	failed    atomic.Int64

	done chan struct{}
	nowF func() time.Time
}

// New returns a worker reading from q and persisting through repo.
// p may be nil; then persisted events are not fanned out. productions may
// be nil; then DefaultProductions is used.
func New(q *queue.Queue, repo repository.Repository, p producer.Producer, productions []string) *Worker {
	if len(productions) == 0 {
		productions = DefaultProductions
	}
	return &Worker{
		queue:       q,
		repo:        repo,
		producer:    p,
		productions: productions,
		done:        make(chan struct{}),
		nowF:        func() time.Time { return time.Now().UTC() },
	}
}

// Run consumes submissions until the queue is closed and drained, then
// returns. Each item uses a fresh timeout context derived from Background,
// so shutdown never cancels an item mid-flight.
func (w *Worker) Run() {
	defer close(w.done)
	for sub := range w.queue.Items() {
		ctx, cancel := context.WithTimeout(context.Background(), itemTimeout)
		if err := w.process(ctx, sub); err != nil {
			w.failed.Add(1)
			log.Printf("worker: failed to process event for company %s session %s: %v",
				sub.CompanyID, sub.SessionID, err)
		} else {
			w.processed.Add(1)
		}
		cancel()
	}
	log.Printf("worker: queue drained, stopping")
}

// Done is closed after Run has drained the queue and returned.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Processed returns the cumulative count of successfully persisted items.
func (w *Worker) Processed() int64 { return w.processed.Load() }

// Failed returns the cumulative count of items that failed resolution or
// persistence.
func (w *Worker) Failed() int64 { return w.failed.Load() }

func (w *Worker) process(ctx context.Context, sub domain.Submission) error {
	sess, err := w.resolveSession(ctx, sub)
	if err != nil {
		return err
	}

	event := sub.ToEvent(sess, w.nowF())
	if err := w.repo.InsertEvent(ctx, event); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	if w.producer != nil {
		// Best-effort fan-out; the event is already persisted.
		if err := w.producer.Emit(ctx, event); err != nil {
			log.Printf("worker: event fan-out failed for session %s: %v", event.SessionID, err)
		}
	}
	return nil
}

// resolveSession reuses the session for a known token, otherwise ensures
// the owning entity and creates a new session.
func (w *Worker) resolveSession(ctx context.Context, sub domain.Submission) (*domain.Session, error) {
	if sub.SessionID != uuid.Nil {
		sess, err := w.repo.GetSession(ctx, sub.SessionID)
		if err != nil {
			return nil, fmt.Errorf("get session: %w", err)
		}
		if sess != nil {
			return sess, nil
		}
	}

	entity, err := w.ensureEntity(ctx, sub.CompanyID, sub.Payload.Production)
	if err != nil {
		return nil, err
	}

	sessionID := sub.SessionID
	if sessionID == uuid.Nil {
		sessionID = uuid.New()
	}
	now := w.nowF()
	startedAt := now
	if sub.Payload.Timestamp != nil {
		startedAt = sub.Payload.Timestamp.UTC()
	}
	sess := &domain.Session{
		SessionID:      sessionID,
		EntityID:       entity.EntityID,
		EmployeeID:     sub.EmployeeID,
		CompanyID:      sub.CompanyID,
		StartedAt:      startedAt,
		LastActivityAt: startedAt,
		EndedAt:        nil,
		CreatedAt:      now,
	}
	if err := w.repo.InsertSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// ensureEntity returns the entity for (companyID, production), creating
// entities for every configured production code on first sight of the
// company. Duplicate inserts are no-ops, so concurrent workers racing on
// the same company converge on the deterministic ids.
func (w *Worker) ensureEntity(ctx context.Context, companyID uuid.UUID, production string) (*domain.Entity, error) {
	existing, err := w.repo.GetEntityByCompanyAndProduction(ctx, companyID, production)
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	codes := w.productions
	if !containsFold(codes, production) {
		codes = append(append([]string{}, codes...), production)
	}
	now := w.nowF()
	for _, code := range codes {
		e := &domain.Entity{
			EntityID:   domain.DeriveEntityID(code, companyID),
			CompanyID:  companyID,
			Production: code,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if _, err := w.repo.InsertEntity(ctx, e); err != nil {
			return nil, fmt.Errorf("insert entity %s/%s: %w", code, companyID, err)
		}
	}

	created, err := w.repo.GetEntityByCompanyAndProduction(ctx, companyID, production)
	if err != nil {
		return nil, fmt.Errorf("get entity after create: %w", err)
	}
	if created == nil {
		return nil, fmt.Errorf("entity %s/%s missing after create", production, companyID)
	}
	return created, nil
}

func containsFold(codes []string, code string) bool {
	for _, c := range codes {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}
