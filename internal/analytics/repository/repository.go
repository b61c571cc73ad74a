// Package repository provides read-side aggregation queries over the
// tracking tables.
package repository

import (
	"context"
	"time"

	"tracklix/tracking/internal/analytics/domain"
)

// Repository answers the reporting queries. Implementations aggregate over
// the same tables the ingestion path writes to and never mutate them.
type Repository interface {
	// DailyOverview aggregates the UTC day starting at dayStart.
	DailyOverview(ctx context.Context, dayStart time.Time) (*domain.DailyOverview, error)

	// EventVolume buckets event counts between start and end (inclusive)
	// by bucket. eventType and production filter when non-empty.
	EventVolume(ctx context.Context, start, end time.Time, bucket time.Duration, eventType, production string) ([]domain.VolumePoint, error)

	// FeatureUsage counts events per event name between start and end
	// (inclusive), most used first. eventType and production filter when
	// non-empty. Percentages are relative to the filtered total.
	FeatureUsage(ctx context.Context, start, end time.Time, eventType, production string) ([]domain.FeatureUsage, error)

	// UserActivationFunnel returns raw per-stage session counts between
	// start and end (inclusive). production filters when non-empty.
	UserActivationFunnel(ctx context.Context, start, end time.Time, production string) ([]domain.FunnelCount, error)
}
