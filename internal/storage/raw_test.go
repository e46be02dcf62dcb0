package storage

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/claude/vitalsync/internal/dates"
	"github.com/claude/vitalsync/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(t.TempDir(), log)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func date(t *testing.T, s string) dates.Date {
	t.Helper()
	d, err := dates.Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return d
}

// TestUpsertReplace verifies that writing the same (user, date, category)
// key twice leaves exactly one record holding the second payload.
func TestUpsertReplace(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	d := date(t, "2025-05-01")

	if err := s.Upsert(ctx, 1, d, models.CategorySleep, json.RawMessage(`{"v":1}`), time.Now()); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := s.Upsert(ctx, 1, d, models.CategorySleep, json.RawMessage(`{"v":2}`), time.Now()); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	day, err := s.Day(ctx, 1, d)
	if err != nil {
		t.Fatalf("Day: %v", err)
	}
	if len(day) != 1 {
		t.Fatalf("got %d categories, want 1", len(day))
	}
	if got := string(day[models.CategorySleep]); got != `{"v":2}` {
		t.Errorf("payload = %s, want second write", got)
	}
}

// TestHasDataAndDatesWithData verifies existence checks scope correctly to
// user and date window.
func TestHasDataAndDatesWithData(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	d1 := date(t, "2025-05-01")
	d2 := date(t, "2025-05-03")
	if err := s.Upsert(ctx, 1, d1, models.CategorySteps, json.RawMessage(`[]`), time.Now()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, 1, d2, models.CategorySteps, json.RawMessage(`[]`), time.Now()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, 2, d1, models.CategorySteps, json.RawMessage(`[]`), time.Now()); err != nil {
		t.Fatalf("upsert other user: %v", err)
	}

	has, err := s.HasData(ctx, 1, d1)
	if err != nil {
		t.Fatalf("HasData: %v", err)
	}
	if !has {
		t.Error("HasData(d1) = false, want true")
	}

	has, err = s.HasData(ctx, 1, date(t, "2025-05-02"))
	if err != nil {
		t.Fatalf("HasData: %v", err)
	}
	if has {
		t.Error("HasData(2025-05-02) = true, want false")
	}

	existing, err := s.DatesWithData(ctx, 1, d1, date(t, "2025-05-05"))
	if err != nil {
		t.Fatalf("DatesWithData: %v", err)
	}
	if len(existing) != 2 || !existing[d1] || !existing[d2] {
		t.Errorf("DatesWithData = %v, want {d1, d2}", existing)
	}
}

// TestMissingCategories verifies the set difference against stored
// categories for a date.
func TestMissingCategories(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	d := date(t, "2025-05-01")

	if err := s.Upsert(ctx, 1, d, models.CategorySleep, json.RawMessage(`{}`), time.Now()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	required := []models.Category{models.CategorySleep, models.CategoryHRV, models.CategoryStress}
	missing, err := s.MissingCategories(ctx, 1, d, required)
	if err != nil {
		t.Fatalf("MissingCategories: %v", err)
	}
	if len(missing) != 2 {
		t.Fatalf("missing = %v, want [hrv stress]", missing)
	}
	if missing[0] != models.CategoryHRV || missing[1] != models.CategoryStress {
		t.Errorf("missing = %v, want [hrv stress]", missing)
	}
}

// TestQueryRange verifies the per-date-per-category read path with and
// without a category filter.
func TestQueryRange(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	d1 := date(t, "2025-05-01")
	d2 := date(t, "2025-05-02")
	fetched := time.Now()
	writes := []struct {
		d   dates.Date
		c   models.Category
		pay string
	}{
		{d1, models.CategorySleep, `{"sleep":1}`},
		{d1, models.CategoryHRV, `{"hrv":1}`},
		{d2, models.CategorySleep, `{"sleep":2}`},
	}
	for _, w := range writes {
		if err := s.Upsert(ctx, 1, w.d, w.c, json.RawMessage(w.pay), fetched); err != nil {
			t.Fatalf("upsert %s/%s: %v", w.d, w.c, err)
		}
	}

	all, err := s.Query(ctx, 1, d1, d2, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(all) != 2 || len(all[d1]) != 2 || len(all[d2]) != 1 {
		t.Errorf("unfiltered query shape wrong: %v", all)
	}

	onlySleep, err := s.Query(ctx, 1, d1, d2, []models.Category{models.CategorySleep})
	if err != nil {
		t.Fatalf("filtered Query: %v", err)
	}
	if len(onlySleep[d1]) != 1 || string(onlySleep[d1][models.CategorySleep]) != `{"sleep":1}` {
		t.Errorf("filtered query = %v, want only sleep payloads", onlySleep)
	}
}
