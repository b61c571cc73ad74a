package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"tracklix/tracking/internal/tracking/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a tracking repository that uses the given
// db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const entityColumns = "entity_id, company_id, production, created_at, updated_at"

// GetEntity returns the entity for entityID, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetEntity(ctx context.Context, entityID uuid.UUID) (*domain.Entity, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+entityColumns+" FROM main_entities WHERE entity_id = $1", entityID)
	return scanEntity(row)
}

// GetEntityByCompanyAndProduction returns the entity for the pair, or nil
// if not found.
func (r *PostgresRepository) GetEntityByCompanyAndProduction(ctx context.Context, companyID uuid.UUID, production string) (*domain.Entity, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+entityColumns+" FROM main_entities WHERE company_id = $1 AND production = $2", companyID, production)
	return scanEntity(row)
}

// ListEntities returns up to limit entities, newest first. Returns
// (nil, error) only on database errors.
func (r *PostgresRepository) ListEntities(ctx context.Context, limit int) ([]*domain.Entity, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+entityColumns+" FROM main_entities ORDER BY created_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Entity
	for rows.Next() {
		var e domain.Entity
		if err := rows.Scan(&e.EntityID, &e.CompanyID, &e.Production, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// InsertEntity writes the entity. A duplicate entity_id is reported as
// AlreadyExists, never as an error, so racing first-sighters converge.
func (r *PostgresRepository) InsertEntity(ctx context.Context, e *domain.Entity) (InsertResult, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO main_entities (entity_id, company_id, production, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (entity_id) DO NOTHING`,
		e.EntityID, e.CompanyID, e.Production, e.CreatedAt.UTC(), e.UpdatedAt.UTC())
	if err != nil {
		return Inserted, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Inserted, err
	}
	if n == 0 {
		return AlreadyExists, nil
	}
	return Inserted, nil
}

const sessionColumns = "session_id, entity_id, employee_id, company_id, started_at, last_activity_at, ended_at, created_at"

// GetSession returns the session for sessionID, or nil if not found.
func (r *PostgresRepository) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM tracking_sessions WHERE session_id = $1", sessionID)
	return scanSession(row)
}

// ListSessions returns up to limit sessions for the entity, newest first.
func (r *PostgresRepository) ListSessions(ctx context.Context, entityID uuid.UUID, limit int) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM tracking_sessions WHERE entity_id = $1 ORDER BY started_at DESC LIMIT $2",
		entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		var s domain.Session
		var ended sql.NullTime
		if err := rows.Scan(&s.SessionID, &s.EntityID, &s.EmployeeID, &s.CompanyID,
			&s.StartedAt, &s.LastActivityAt, &ended, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.EndedAt = ptrFromNullTime(ended)
		out = append(out, &s)
	}
	return out, rows.Err()
}

// InsertSession persists the session. The session must have SessionID set.
func (r *PostgresRepository) InsertSession(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tracking_sessions
			(session_id, entity_id, employee_id, company_id, started_at, last_activity_at, ended_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.SessionID, s.EntityID, s.EmployeeID, s.CompanyID,
		s.StartedAt.UTC(), s.LastActivityAt.UTC(), nullTimeFromPtr(s.EndedAt), s.CreatedAt.UTC())
	return err
}

const eventColumns = "id, entity_id, session_id, event_type, event_name, page_name, component_name, " +
	"timestamp, refer, expose_time, employee_id, company_id, device_type, os_version, browser_version, " +
	"page_url, page_title, properties"

// ListEventsBySession returns up to limit events for the session, newest
// first.
func (r *PostgresRepository) ListEventsBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]*domain.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM tracking_events WHERE session_id = $1 ORDER BY timestamp DESC LIMIT $2",
		sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.EntityID, &e.SessionID, &e.EventType, &e.EventName,
			&e.PageName, &e.ComponentName, &e.Timestamp, &e.Refer, &e.ExposeTime,
			&e.EmployeeID, &e.CompanyID, &e.DeviceType, &e.OsVersion, &e.BrowserVersion,
			&e.PageURL, &e.PageTitle, &e.Properties); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// InsertEvent persists the event. Events are append-only.
func (r *PostgresRepository) InsertEvent(ctx context.Context, e *domain.Event) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tracking_events
			(id, entity_id, session_id, event_type, event_name, page_name, component_name,
			 timestamp, refer, expose_time, employee_id, company_id, device_type, os_version,
			 browser_version, page_url, page_title, properties)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		e.ID, e.EntityID, e.SessionID, e.EventType, e.EventName, e.PageName, e.ComponentName,
		e.Timestamp.UTC(), e.Refer, e.ExposeTime, e.EmployeeID, e.CompanyID, e.DeviceType,
		e.OsVersion, e.BrowserVersion, e.PageURL, e.PageTitle, e.Properties)
	return err
}

// DeleteEntityCascade removes the entity and everything owned by it.
func (r *PostgresRepository) DeleteEntityCascade(ctx context.Context, entityID uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	statements := []string{
		"DELETE FROM tracking_events WHERE entity_id = $1",
		"DELETE FROM tracking_sessions WHERE entity_id = $1",
		"DELETE FROM main_entities WHERE entity_id = $1",
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, entityID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteSessionCascade removes the session and its events.
func (r *PostgresRepository) DeleteSessionCascade(ctx context.Context, sessionID uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tracking_events WHERE session_id = $1", sessionID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM tracking_sessions WHERE session_id = $1", sessionID); err != nil {
		return err
	}
	return tx.Commit()
}

func scanEntity(row *sql.Row) (*domain.Entity, error) {
	var e domain.Entity
	err := row.Scan(&e.EntityID, &e.CompanyID, &e.Production, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var s domain.Session
	var ended sql.NullTime
	err := row.Scan(&s.SessionID, &s.EntityID, &s.EmployeeID, &s.CompanyID,
		&s.StartedAt, &s.LastActivityAt, &ended, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.EndedAt = ptrFromNullTime(ended)
	return &s, nil
}

func nullTimeFromPtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func ptrFromNullTime(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}
