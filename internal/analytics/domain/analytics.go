// Package domain holds the read-side reporting model computed over
// tracked entities, sessions, and events.
package domain

import (
	"math"
	"strings"
	"time"
)

// Activation funnel stages, in order.
const (
	StageSessionStart    = "session_start"
	StageFirstEvent      = "first_event"
	StageMeaningfulEvent = "meaningful_event"
)

// FunnelStages is the canonical stage order for the user activation funnel.
var FunnelStages = []string{StageSessionStart, StageFirstEvent, StageMeaningfulEvent}

// DailyOverview aggregates one UTC day of activity.
type DailyOverview struct {
	DateUTC          time.Time `json:"date_utc"`
	DailyActiveUsers int64     `json:"dau"`
	TotalEvents      int64     `json:"total_events"`
	Sessions         int64     `json:"sessions"`
	ActiveCompanies  int64     `json:"active_companies"`
}

// VolumePoint is one time bucket of the event volume series.
type VolumePoint struct {
	BucketStartUTC time.Time `json:"bucket_start_utc"`
	Events         int64     `json:"events"`
}

// FeatureUsage is the share of events carrying one event name within a window.
type FeatureUsage struct {
	EventName  string  `json:"event_name"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// FunnelCount is a raw per-stage session count as read from storage.
type FunnelCount struct {
	Stage    string `json:"stage"`
	Sessions int64  `json:"sessions"`
}

// FunnelStep is a funnel stage with its conversion rate from the stage before.
type FunnelStep struct {
	Stage                  string  `json:"stage"`
	Sessions               int64   `json:"sessions"`
	ConversionFromPrevious float64 `json:"conversion_from_previous"`
}

// Window is a normalized query window. Bucket is the time-series
// granularity for endpoints that bucket by time.
type Window struct {
	Start  time.Time
	End    time.Time
	Bucket time.Duration
}

// NormalizeRange maps a client range string onto a concrete window ending
// at end (or now when end is zero). "7d" and its variants yield a seven
// day window with daily buckets; anything else falls back to the last 24
// hours with hourly buckets.
func NormalizeRange(raw string, end time.Time) Window {
	if end.IsZero() {
		end = time.Now().UTC()
	}
	end = end.UTC()

	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "7d", "7day", "7days", "7":
		return Window{Start: end.AddDate(0, 0, -7), End: end, Bucket: 24 * time.Hour}
	default:
		return Window{Start: end.Add(-24 * time.Hour), End: end, Bucket: time.Hour}
	}
}

// BuildFunnel orders raw stage counts by the canonical stage order and
// computes each stage's conversion rate relative to the previous stage.
// The first stage (and any stage following an empty one) reports 100.
func BuildFunnel(counts []FunnelCount) []FunnelStep {
	byStage := make(map[string]int64, len(counts))
	for _, c := range counts {
		byStage[c.Stage] = c.Sessions
	}

	steps := make([]FunnelStep, 0, len(FunnelStages))
	var previous int64 = -1
	for _, stage := range FunnelStages {
		sessions, ok := byStage[stage]
		if !ok {
			continue
		}
		conversion := 100.0
		if previous > 0 {
			conversion = math.Round(float64(sessions)*100.0/float64(previous)*100) / 100
		}
		steps = append(steps, FunnelStep{
			Stage:                  stage,
			Sessions:               sessions,
			ConversionFromPrevious: conversion,
		})
		previous = sessions
	}
	return steps
}
