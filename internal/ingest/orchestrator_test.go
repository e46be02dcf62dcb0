package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/claude/vitalsync/internal/dates"
	"github.com/claude/vitalsync/internal/garmin"
	"github.com/claude/vitalsync/internal/models"
	"github.com/claude/vitalsync/internal/storage"
)

// fakeSource scripts per-date fetch outcomes. Errors are consumed in order;
// once the script for a date is exhausted the fetch succeeds.
type fakeSource struct {
	failures map[string][]error
	payload  garmin.DayPayload
	calls    int
}

func (f *fakeSource) FetchDay(_ context.Context, d dates.Date) (garmin.DayPayload, error) {
	f.calls++
	if errs := f.failures[d.String()]; len(errs) > 0 {
		err := errs[0]
		f.failures[d.String()] = errs[1:]
		return nil, err
	}
	if f.payload != nil {
		return f.payload, nil
	}
	return garmin.DayPayload{
		"sleep": json.RawMessage(`{"dailySleepDTO":{}}`),
		"steps": json.RawMessage(`[]`),
	}, nil
}

type fakeProvider struct {
	src garmin.Source
	err error
}

func (f *fakeProvider) ClientFor(int64) (garmin.Source, error) {
	return f.src, f.err
}

func testOrchestrator(t *testing.T, src garmin.Source) (*Orchestrator, *storage.Store, *[]time.Duration) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.Open(t.TempDir(), log)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	o := New(store, &fakeProvider{src: src}, log)
	var slept []time.Duration
	o.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return o, store, &slept
}

func mustDate(t *testing.T, s string) dates.Date {
	t.Helper()
	d, err := dates.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

// TestEnsureRangeIdempotent verifies that a second run over an already
// ensured range performs zero upstream fetches.
func TestEnsureRangeIdempotent(t *testing.T) {
	src := &fakeSource{}
	o, _, _ := testOrchestrator(t, src)
	ctx := context.Background()
	start, end := mustDate(t, "2025-05-01"), mustDate(t, "2025-05-03")

	res, err := o.EnsureRange(ctx, 1, start, end, nil, false)
	if err != nil {
		t.Fatalf("first EnsureRange: %v", err)
	}
	if res.DaysStored != 3 {
		t.Fatalf("DaysStored = %d, want 3", res.DaysStored)
	}
	firstCalls := src.calls

	res, err = o.EnsureRange(ctx, 1, start, end, nil, false)
	if err != nil {
		t.Fatalf("second EnsureRange: %v", err)
	}
	if src.calls != firstCalls {
		t.Errorf("second run made %d fetches, want 0", src.calls-firstCalls)
	}
	if res.DaysMissing != 0 || res.DaysStored != 0 {
		t.Errorf("second run result = %+v, want nothing missing or stored", res)
	}
}

// TestEnsureRangeRetryBackoff verifies that a date rate-limited on the first
// two attempts succeeds on the third, with backoffs of 5s then 10s.
func TestEnsureRangeRetryBackoff(t *testing.T) {
	src := &fakeSource{failures: map[string][]error{
		"2025-05-01": {&garmin.RateLimitedError{}, &garmin.RateLimitedError{}},
	}}
	o, store, slept := testOrchestrator(t, src)
	ctx := context.Background()
	d := mustDate(t, "2025-05-01")

	res, err := o.EnsureRange(ctx, 1, d, d, nil, false)
	if err != nil {
		t.Fatalf("EnsureRange: %v", err)
	}
	if res.DaysStored != 1 || res.FetchAttempts != 3 {
		t.Errorf("result = %+v, want 1 stored after 3 attempts", res)
	}
	want := []time.Duration{5 * time.Second, 10 * time.Second}
	if len(*slept) != len(want) || (*slept)[0] != want[0] || (*slept)[1] != want[1] {
		t.Errorf("backoffs = %v, want %v", *slept, want)
	}

	has, err := store.HasData(ctx, 1, d)
	if err != nil || !has {
		t.Errorf("HasData = %v, %v, want true", has, err)
	}
}

// TestEnsureRangeFailingDayDoesNotAbortBatch verifies that a date exhausting
// its retries is recorded as failed, stays missing, and leaves the other
// dates stored.
func TestEnsureRangeFailingDayDoesNotAbortBatch(t *testing.T) {
	boom := &garmin.TransientError{Err: errors.New("boom")}
	src := &fakeSource{failures: map[string][]error{
		"2025-05-02": {boom, boom, boom},
	}}
	o, store, _ := testOrchestrator(t, src)
	ctx := context.Background()
	start, end := mustDate(t, "2025-05-01"), mustDate(t, "2025-05-03")

	res, err := o.EnsureRange(ctx, 1, start, end, nil, false)
	if err != nil {
		t.Fatalf("EnsureRange: %v", err)
	}
	if res.DaysStored != 2 {
		t.Errorf("DaysStored = %d, want 2", res.DaysStored)
	}
	if len(res.FailedDates) != 1 || res.FailedDates[0].Date != mustDate(t, "2025-05-02") {
		t.Errorf("FailedDates = %v, want the middle date", res.FailedDates)
	}

	// The failed date must still look missing so the next run retries it.
	has, err := store.HasData(ctx, 1, mustDate(t, "2025-05-02"))
	if err != nil {
		t.Fatalf("HasData: %v", err)
	}
	if has {
		t.Error("failed date has stored data, want still missing")
	}
}

// TestEnsureRangeForceRefetchesAll verifies that force treats every date as
// missing even when data exists.
func TestEnsureRangeForceRefetchesAll(t *testing.T) {
	src := &fakeSource{}
	o, _, _ := testOrchestrator(t, src)
	ctx := context.Background()
	start, end := mustDate(t, "2025-05-01"), mustDate(t, "2025-05-02")

	if _, err := o.EnsureRange(ctx, 1, start, end, nil, false); err != nil {
		t.Fatalf("seed EnsureRange: %v", err)
	}
	before := src.calls

	res, err := o.EnsureRange(ctx, 1, start, end, nil, true)
	if err != nil {
		t.Fatalf("forced EnsureRange: %v", err)
	}
	if src.calls-before != 2 {
		t.Errorf("forced run made %d fetches, want 2", src.calls-before)
	}
	if res.DaysStored != 2 {
		t.Errorf("DaysStored = %d, want 2", res.DaysStored)
	}
}

// TestEnsureRangeCategorySplit verifies the per-category split, including
// the raw catch-all for unrecognized keys.
func TestEnsureRangeCategorySplit(t *testing.T) {
	src := &fakeSource{payload: garmin.DayPayload{
		"sleep":      json.RawMessage(`{"dailySleepDTO":{}}`),
		"resting_hr": json.RawMessage(`{"restingHeartRate":52}`),
		"mystery":    json.RawMessage(`{"x":1}`),
	}}
	o, store, _ := testOrchestrator(t, src)
	ctx := context.Background()
	d := mustDate(t, "2025-05-01")

	if _, err := o.EnsureRange(ctx, 1, d, d, nil, false); err != nil {
		t.Fatalf("EnsureRange: %v", err)
	}

	day, err := store.Day(ctx, 1, d)
	if err != nil {
		t.Fatalf("Day: %v", err)
	}
	if _, ok := day[models.CategorySleep]; !ok {
		t.Error("sleep category missing")
	}
	if _, ok := day[models.CategoryRestingHeartRate]; !ok {
		t.Error("resting_heart_rate category missing")
	}
	raw, ok := day[models.CategoryRaw]
	if !ok {
		t.Fatal("raw catch-all missing")
	}
	var extras map[string]json.RawMessage
	if err := json.Unmarshal(raw, &extras); err != nil {
		t.Fatalf("decoding catch-all: %v", err)
	}
	if _, ok := extras["mystery"]; !ok {
		t.Errorf("catch-all = %v, want mystery key", extras)
	}
}

// TestEnsureDay verifies the availability check path: present data short
// circuits, a day missing a required category is refetched whole.
func TestEnsureDay(t *testing.T) {
	src := &fakeSource{payload: garmin.DayPayload{
		"sleep": json.RawMessage(`{}`),
		"hrv":   json.RawMessage(`{}`),
	}}
	o, store, _ := testOrchestrator(t, src)
	ctx := context.Background()
	d := mustDate(t, "2025-05-01")

	// Seed only the sleep category, as if a prior partial fetch happened.
	if err := store.Upsert(ctx, 1, d, models.CategorySleep, json.RawMessage(`{}`), time.Now()); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}

	ok, err := o.EnsureDay(ctx, 1, d, []models.Category{models.CategorySleep})
	if err != nil {
		t.Fatalf("EnsureDay: %v", err)
	}
	if !ok || src.calls != 0 {
		t.Errorf("satisfied day: ok=%v calls=%d, want true with 0 fetches", ok, src.calls)
	}

	ok, err = o.EnsureDay(ctx, 1, d, []models.Category{models.CategorySleep, models.CategoryHRV})
	if err != nil {
		t.Fatalf("EnsureDay with missing category: %v", err)
	}
	if !ok || src.calls != 1 {
		t.Errorf("partial day: ok=%v calls=%d, want true with 1 fetch", ok, src.calls)
	}

	missing, err := store.MissingCategories(ctx, 1, d, []models.Category{models.CategoryHRV})
	if err != nil {
		t.Fatalf("MissingCategories: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("hrv still missing after EnsureDay")
	}
}

// TestEnsureRangeCancellation verifies that cancelling during backoff aborts
// without persisting the in-flight date.
func TestEnsureRangeCancellation(t *testing.T) {
	src := &fakeSource{failures: map[string][]error{
		"2025-05-01": {&garmin.RateLimitedError{}, &garmin.RateLimitedError{}, &garmin.RateLimitedError{}},
	}}
	o, store, _ := testOrchestrator(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	o.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	d := mustDate(t, "2025-05-01")
	if _, err := o.EnsureRange(ctx, 1, d, d, nil, false); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	has, err := store.HasData(context.Background(), 1, d)
	if err != nil {
		t.Fatalf("HasData: %v", err)
	}
	if has {
		t.Error("cancelled date has stored data, want still missing")
	}
}
