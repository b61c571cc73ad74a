package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"tracklix/tracking/internal/analytics/domain"
)

// PostgresRepository aggregates directly over the tracking tables. Events
// do not carry a production column, so production filters join through
// main_entities on entity_id.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an analytics repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// DailyOverview aggregates the UTC day starting at dayStart.
func (r *PostgresRepository) DailyOverview(ctx context.Context, dayStart time.Time) (*domain.DailyOverview, error) {
	dayStart = dayStart.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.AddDate(0, 0, 1)

	overview := &domain.DailyOverview{DateUTC: dayStart}

	err := r.db.QueryRowContext(ctx, `
		SELECT count(*), count(DISTINCT employee_id), count(DISTINCT company_id)
		FROM tracking_events
		WHERE timestamp >= $1 AND timestamp < $2`,
		dayStart, dayEnd,
	).Scan(&overview.TotalEvents, &overview.DailyActiveUsers, &overview.ActiveCompanies)
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx,
		"SELECT count(*) FROM tracking_sessions WHERE started_at >= $1 AND started_at < $2",
		dayStart, dayEnd,
	).Scan(&overview.Sessions)
	if err != nil {
		return nil, err
	}
	return overview, nil
}

// EventVolume buckets event counts between start and end by bucket.
// Buckets of a day or longer truncate to days, anything shorter to hours.
func (r *PostgresRepository) EventVolume(ctx context.Context, start, end time.Time, bucket time.Duration, eventType, production string) ([]domain.VolumePoint, error) {
	unit := "hour"
	if bucket >= 24*time.Hour {
		unit = "day"
	}

	where, args := eventWindow(start, end, eventType, production)
	query := fmt.Sprintf(`
		SELECT date_trunc('%s', e.timestamp) AS bucket, count(*)
		FROM tracking_events e
		%s
		GROUP BY bucket
		ORDER BY bucket`, unit, where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.VolumePoint
	for rows.Next() {
		var p domain.VolumePoint
		if err := rows.Scan(&p.BucketStartUTC, &p.Events); err != nil {
			return nil, err
		}
		p.BucketStartUTC = p.BucketStartUTC.UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// FeatureUsage counts events per event name in the window, most used
// first, with each name's share of the filtered total.
func (r *PostgresRepository) FeatureUsage(ctx context.Context, start, end time.Time, eventType, production string) ([]domain.FeatureUsage, error) {
	where, args := eventWindow(start, end, eventType, production)
	query := fmt.Sprintf(`
		SELECT e.event_name, count(*)
		FROM tracking_events e
		%s
		GROUP BY e.event_name
		ORDER BY count(*) DESC, e.event_name`, where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FeatureUsage
	var total int64
	for rows.Next() {
		var u domain.FeatureUsage
		if err := rows.Scan(&u.EventName, &u.Count); err != nil {
			return nil, err
		}
		total += u.Count
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		out[i].Percentage = percentage(out[i].Count, total)
	}
	return out, nil
}

// UserActivationFunnel counts sessions per funnel stage in the window:
// sessions started, sessions with at least one event, and sessions with
// at least one click.
func (r *PostgresRepository) UserActivationFunnel(ctx context.Context, start, end time.Time, production string) ([]domain.FunnelCount, error) {
	counts := make([]domain.FunnelCount, 0, len(domain.FunnelStages))

	started, err := r.countValue(ctx, `
		SELECT count(*)
		FROM tracking_sessions s
		JOIN main_entities m ON m.entity_id = s.entity_id
		WHERE s.started_at >= $1 AND s.started_at <= $2`, start, end, production, "m.production = $3")
	if err != nil {
		return nil, err
	}
	counts = append(counts, domain.FunnelCount{Stage: domain.StageSessionStart, Sessions: started})

	firstEvent, err := r.countValue(ctx, `
		SELECT count(DISTINCT e.session_id)
		FROM tracking_events e
		JOIN main_entities m ON m.entity_id = e.entity_id
		WHERE e.timestamp >= $1 AND e.timestamp <= $2`, start, end, production, "m.production = $3")
	if err != nil {
		return nil, err
	}
	counts = append(counts, domain.FunnelCount{Stage: domain.StageFirstEvent, Sessions: firstEvent})

	meaningful, err := r.countValue(ctx, `
		SELECT count(DISTINCT e.session_id)
		FROM tracking_events e
		JOIN main_entities m ON m.entity_id = e.entity_id
		WHERE e.timestamp >= $1 AND e.timestamp <= $2 AND lower(e.event_type) = 'click'`,
		start, end, production, "m.production = $3")
	if err != nil {
		return nil, err
	}
	counts = append(counts, domain.FunnelCount{Stage: domain.StageMeaningfulEvent, Sessions: meaningful})

	return counts, nil
}

func (r *PostgresRepository) countValue(ctx context.Context, base string, start, end time.Time, production, productionClause string) (int64, error) {
	args := []any{start.UTC(), end.UTC()}
	query := base
	if production != "" {
		query += " AND " + productionClause
		args = append(args, production)
	}
	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// eventWindow builds the WHERE clause shared by the event aggregations,
// joining main_entities only when a production filter is present.
func eventWindow(start, end time.Time, eventType, production string) (string, []any) {
	clauses := []string{"e.timestamp >= $1", "e.timestamp <= $2"}
	args := []any{start.UTC(), end.UTC()}
	join := ""

	if eventType != "" {
		args = append(args, eventType)
		clauses = append(clauses, fmt.Sprintf("e.event_type = $%d", len(args)))
	}
	if production != "" {
		join = "JOIN main_entities m ON m.entity_id = e.entity_id\n\t\t"
		args = append(args, production)
		clauses = append(clauses, fmt.Sprintf("m.production = $%d", len(args)))
	}
	return join + "WHERE " + strings.Join(clauses, " AND "), args
}

func percentage(count, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)*100.0/float64(total)*100) / 100
}
