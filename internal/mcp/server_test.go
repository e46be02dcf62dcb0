package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/claude/vitalsync/internal/dates"
)

// TestUserIDFromContextDefault verifies the default user ID (1) when no value
// is set in the context.
func TestUserIDFromContextDefault(t *testing.T) {
	ctx := context.Background()
	if id := UserIDFromContext(ctx); id != 1 {
		t.Errorf("UserIDFromContext(empty) = %d, want 1", id)
	}
}

// TestUserIDFromContextSet verifies the user ID is extracted from context
// after being set by WithUserID.
func TestUserIDFromContextSet(t *testing.T) {
	ctx := WithUserID(context.Background(), 42)
	if id := UserIDFromContext(ctx); id != 42 {
		t.Errorf("UserIDFromContext = %d, want 42", id)
	}
}

// TestDefaultDateRange verifies range defaults (last 7 days) and parsing.
func TestDefaultDateRange(t *testing.T) {
	// Both empty: 7 days ending today.
	start, end, err := defaultDateRange("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := start.DaysUntil(end); got != 6 {
		t.Errorf("default span = %d days apart, want 6", got)
	}
	if end != dates.Of(time.Now()) {
		t.Errorf("end = %s, want today", end)
	}

	// Explicit bounds.
	start, end, err = defaultDateRange("2025-01-01", "2025-01-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.String() != "2025-01-01" || end.String() != "2025-01-31" {
		t.Errorf("range = %s..%s, want 2025-01-01..2025-01-31", start, end)
	}

	// Invalid.
	if _, _, err := defaultDateRange("not-a-date", ""); err == nil {
		t.Error("expected error for invalid date")
	}
}

// TestDateOrYesterday verifies the default anchor date.
func TestDateOrYesterday(t *testing.T) {
	d, err := dateOrYesterday("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := dates.Of(time.Now()).AddDays(-1); d != want {
		t.Errorf("dateOrYesterday(\"\") = %s, want %s", d, want)
	}

	d, err = dateOrYesterday("2025-05-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2025-05-01" {
		t.Errorf("dateOrYesterday = %s, want 2025-05-01", d)
	}

	if _, err := dateOrYesterday("bad"); err == nil {
		t.Error("expected error for invalid date")
	}
}
