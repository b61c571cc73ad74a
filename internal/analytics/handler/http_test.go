package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"tracklix/tracking/internal/analytics/domain"
)

type stubRepo struct {
	overview *domain.DailyOverview
	points   []domain.VolumePoint
	usage    []domain.FeatureUsage
	counts   []domain.FunnelCount
	err      error

	lastDay        time.Time
	lastStart      time.Time
	lastEnd        time.Time
	lastBucket     time.Duration
	lastEventType  string
	lastProduction string
}

func (s *stubRepo) DailyOverview(ctx context.Context, dayStart time.Time) (*domain.DailyOverview, error) {
	s.lastDay = dayStart
	if s.overview == nil {
		s.overview = &domain.DailyOverview{DateUTC: dayStart}
	}
	return s.overview, s.err
}

func (s *stubRepo) EventVolume(ctx context.Context, start, end time.Time, bucket time.Duration, eventType, production string) ([]domain.VolumePoint, error) {
	s.lastStart, s.lastEnd, s.lastBucket = start, end, bucket
	s.lastEventType, s.lastProduction = eventType, production
	return s.points, s.err
}

func (s *stubRepo) FeatureUsage(ctx context.Context, start, end time.Time, eventType, production string) ([]domain.FeatureUsage, error) {
	s.lastStart, s.lastEnd = start, end
	s.lastEventType, s.lastProduction = eventType, production
	return s.usage, s.err
}

func (s *stubRepo) UserActivationFunnel(ctx context.Context, start, end time.Time, production string) ([]domain.FunnelCount, error) {
	s.lastStart, s.lastEnd = start, end
	s.lastProduction = production
	return s.counts, s.err
}

func serve(repo *stubRepo, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	New(repo).Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestOverview_UsesProvidedDate(t *testing.T) {
	repo := &stubRepo{}
	rec := serve(repo, "/analytics/overview?date=2024-01-02T15:30:00Z")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body)
	}
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if repo.lastDay != want {
		t.Errorf("day = %v, want %v", repo.lastDay, want)
	}
}

func TestOverview_DefaultsToToday(t *testing.T) {
	repo := &stubRepo{}
	rec := serve(repo, "/analytics/overview")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	want := time.Now().UTC().Truncate(24 * time.Hour)
	if repo.lastDay != want {
		t.Errorf("day = %v, want %v", repo.lastDay, want)
	}
}

func TestOverview_RejectsMalformedDate(t *testing.T) {
	rec := serve(&stubRepo{}, "/analytics/overview?date=yesterday")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestEventVolume_DefaultWindowAndFilters(t *testing.T) {
	repo := &stubRepo{points: []domain.VolumePoint{{Events: 10}}}
	rec := serve(repo, "/analytics/event-volume?eventType=Click&production=PT&endUtc=2024-02-08T12:00:00Z")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	end := time.Date(2024, 2, 8, 12, 0, 0, 0, time.UTC)
	if repo.lastEnd != end || repo.lastStart != end.Add(-24*time.Hour) {
		t.Errorf("window = [%v, %v]", repo.lastStart, repo.lastEnd)
	}
	if repo.lastBucket != time.Hour {
		t.Errorf("bucket = %v, want 1h", repo.lastBucket)
	}
	if repo.lastEventType != "Click" || repo.lastProduction != "PT" {
		t.Errorf("filters = %q, %q", repo.lastEventType, repo.lastProduction)
	}
}

func TestEventVolume_SevenDayRangeUsesDailyBuckets(t *testing.T) {
	repo := &stubRepo{}
	rec := serve(repo, "/analytics/event-volume?range=7d&endUtc=2024-03-10T00:00:00Z")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	end := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	if repo.lastStart != end.AddDate(0, 0, -7) || repo.lastBucket != 24*time.Hour {
		t.Errorf("start = %v, bucket = %v", repo.lastStart, repo.lastBucket)
	}
}

func TestEventVolume_EmptyResultIsEmptyArray(t *testing.T) {
	rec := serve(&stubRepo{}, "/analytics/event-volume")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want empty array", got)
	}
}

func TestFeatureUsage_PassesWindowAndReturnsUsage(t *testing.T) {
	repo := &stubRepo{usage: []domain.FeatureUsage{
		{EventName: "Click_Demo_Button", Count: 3, Percentage: 75},
		{EventName: "View_Demo_Page", Count: 1, Percentage: 25},
	}}
	rec := serve(repo, "/analytics/usage?range=7d&eventType=Click")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var usage []domain.FeatureUsage
	if err := json.Unmarshal(rec.Body.Bytes(), &usage); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(usage) != 2 || usage[0].Percentage != 75 {
		t.Errorf("usage = %+v", usage)
	}
	if repo.lastEventType != "Click" {
		t.Errorf("eventType = %q", repo.lastEventType)
	}
}

func TestFunnel_OrdersStagesAndComputesConversion(t *testing.T) {
	repo := &stubRepo{counts: []domain.FunnelCount{
		{Stage: domain.StageMeaningfulEvent, Sessions: 20},
		{Stage: domain.StageSessionStart, Sessions: 100},
		{Stage: domain.StageFirstEvent, Sessions: 50},
	}}
	rec := serve(repo, "/analytics/funnel/user-activation?production=PT")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var steps []domain.FunnelStep
	if err := json.Unmarshal(rec.Body.Bytes(), &steps); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(steps))
	}
	if steps[0].Stage != domain.StageSessionStart || steps[0].ConversionFromPrevious != 100 {
		t.Errorf("step 0 = %+v", steps[0])
	}
	if steps[1].ConversionFromPrevious != 50 || steps[2].ConversionFromPrevious != 40 {
		t.Errorf("conversions = %v, %v", steps[1].ConversionFromPrevious, steps[2].ConversionFromPrevious)
	}
	if repo.lastProduction != "PT" {
		t.Errorf("production = %q", repo.lastProduction)
	}
}

func TestQueryFailureReturns500(t *testing.T) {
	repo := &stubRepo{err: errors.New("connection reset")}
	for _, target := range []string{
		"/analytics/overview",
		"/analytics/event-volume",
		"/analytics/usage",
		"/analytics/funnel/user-activation",
	} {
		if rec := serve(repo, target); rec.Code != http.StatusInternalServerError {
			t.Errorf("%s: status = %d, want 500", target, rec.Code)
		}
	}
}
