package domain

import (
	"testing"
	"time"
)

func TestNormalizeRange_DefaultsTo24hHourly(t *testing.T) {
	end := time.Date(2024, 2, 8, 12, 0, 0, 0, time.UTC)

	for _, raw := range []string{"", "24h", "garbage", " 24H "} {
		w := NormalizeRange(raw, end)
		if w.End != end {
			t.Errorf("range %q: end = %v, want %v", raw, w.End, end)
		}
		if w.Start != end.Add(-24*time.Hour) {
			t.Errorf("range %q: start = %v", raw, w.Start)
		}
		if w.Bucket != time.Hour {
			t.Errorf("range %q: bucket = %v, want 1h", raw, w.Bucket)
		}
	}
}

func TestNormalizeRange_SevenDayVariants(t *testing.T) {
	end := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	for _, raw := range []string{"7d", "7D", "7day", "7days", "7", " 7d "} {
		w := NormalizeRange(raw, end)
		if w.Start != end.AddDate(0, 0, -7) {
			t.Errorf("range %q: start = %v", raw, w.Start)
		}
		if w.Bucket != 24*time.Hour {
			t.Errorf("range %q: bucket = %v, want 24h", raw, w.Bucket)
		}
	}
}

func TestNormalizeRange_ZeroEndUsesNow(t *testing.T) {
	before := time.Now().UTC()
	w := NormalizeRange("24h", time.Time{})
	after := time.Now().UTC()

	if w.End.Before(before) || w.End.After(after) {
		t.Errorf("end = %v, want between %v and %v", w.End, before, after)
	}
}

func TestBuildFunnel_ComputesConversions(t *testing.T) {
	steps := BuildFunnel([]FunnelCount{
		{Stage: StageMeaningfulEvent, Sessions: 25},
		{Stage: StageSessionStart, Sessions: 100},
		{Stage: StageFirstEvent, Sessions: 80},
	})

	if len(steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(steps))
	}
	want := []FunnelStep{
		{Stage: StageSessionStart, Sessions: 100, ConversionFromPrevious: 100},
		{Stage: StageFirstEvent, Sessions: 80, ConversionFromPrevious: 80},
		{Stage: StageMeaningfulEvent, Sessions: 25, ConversionFromPrevious: 31.25},
	}
	for i, s := range steps {
		if s != want[i] {
			t.Errorf("step %d = %+v, want %+v", i, s, want[i])
		}
	}
}

func TestBuildFunnel_EmptyPreviousStageReportsFull(t *testing.T) {
	steps := BuildFunnel([]FunnelCount{
		{Stage: StageSessionStart, Sessions: 0},
		{Stage: StageFirstEvent, Sessions: 5},
	})

	if len(steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(steps))
	}
	if steps[1].ConversionFromPrevious != 100 {
		t.Errorf("conversion after empty stage = %v, want 100", steps[1].ConversionFromPrevious)
	}
}
