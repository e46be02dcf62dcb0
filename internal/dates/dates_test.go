package dates

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, s string) Date {
	t.Helper()
	d, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return d
}

// TestResolveRange verifies the four input combinations all produce an
// inclusive, ascending sequence.
func TestResolveRange(t *testing.T) {
	today := New(2025, time.May, 20)
	start := New(2025, time.May, 1)
	end := New(2025, time.May, 5)

	cases := []struct {
		name  string
		start *Date
		end   *Date
		days  int
		first string
		last  string
		count int
	}{
		{"both bounds", &start, &end, 7, "2025-05-01", "2025-05-05", 5},
		{"start only", &start, nil, 3, "2025-05-01", "2025-05-03", 3},
		{"end only", nil, &end, 3, "2025-05-03", "2025-05-05", 3},
		{"neither", nil, nil, 7, "2025-05-14", "2025-05-20", 7},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveRange(tc.start, tc.end, tc.days, today)
			if len(got) != tc.count {
				t.Fatalf("len = %d, want %d", len(got), tc.count)
			}
			if got[0].String() != tc.first {
				t.Errorf("first = %s, want %s", got[0], tc.first)
			}
			if got[len(got)-1].String() != tc.last {
				t.Errorf("last = %s, want %s", got[len(got)-1], tc.last)
			}
			for i := 1; i < len(got); i++ {
				if got[i-1].DaysUntil(got[i]) != 1 {
					t.Errorf("sequence not contiguous ascending at %d: %s -> %s", i, got[i-1], got[i])
				}
			}
		})
	}
}

// TestCoalesceContiguous verifies adjacent dates merge into minimal ranges
// and a gap starts a new range.
func TestCoalesceContiguous(t *testing.T) {
	in := []Date{
		mustParse(t, "2025-05-01"),
		mustParse(t, "2025-05-02"),
		mustParse(t, "2025-05-03"),
		mustParse(t, "2025-05-10"),
	}

	got := CoalesceContiguous(in)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Start.String() != "2025-05-01" || got[0].End.String() != "2025-05-03" {
		t.Errorf("range[0] = (%s, %s), want (2025-05-01, 2025-05-03)", got[0].Start, got[0].End)
	}
	if got[1].Start.String() != "2025-05-10" || got[1].End.String() != "2025-05-10" {
		t.Errorf("range[1] = (%s, %s), want degenerate 2025-05-10", got[1].Start, got[1].End)
	}
}

// TestCoalesceContiguousUnsorted verifies input order does not matter and
// duplicates collapse.
func TestCoalesceContiguousUnsorted(t *testing.T) {
	in := []Date{
		mustParse(t, "2025-05-02"),
		mustParse(t, "2025-05-01"),
		mustParse(t, "2025-05-02"),
	}

	got := CoalesceContiguous(in)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Start.String() != "2025-05-01" || got[0].End.String() != "2025-05-02" {
		t.Errorf("range = (%s, %s), want (2025-05-01, 2025-05-02)", got[0].Start, got[0].End)
	}
}

// TestCoalesceContiguousEdgeCases covers the empty and singleton inputs.
func TestCoalesceContiguousEdgeCases(t *testing.T) {
	if got := CoalesceContiguous(nil); got != nil {
		t.Errorf("empty input: got %v, want nil", got)
	}

	d := mustParse(t, "2025-05-01")
	got := CoalesceContiguous([]Date{d})
	if len(got) != 1 || got[0].Start != d || got[0].End != d {
		t.Errorf("singleton: got %v, want [(d, d)]", got)
	}
}

// TestCoalesceContiguousMinimal verifies no two returned ranges are
// calendar-adjacent, i.e. the result cannot be merged further.
func TestCoalesceContiguousMinimal(t *testing.T) {
	var in []Date
	base := mustParse(t, "2025-01-01")
	for _, off := range []int{0, 1, 2, 4, 5, 9, 20, 21, 22, 23} {
		in = append(in, base.AddDays(off))
	}

	got := CoalesceContiguous(in)
	covered := map[Date]bool{}
	for i, r := range got {
		for _, d := range r.Dates() {
			covered[d] = true
		}
		if i > 0 && got[i-1].End.DaysUntil(r.Start) <= 1 {
			t.Errorf("ranges %d and %d are mergeable: %v %v", i-1, i, got[i-1], r)
		}
	}
	for _, d := range in {
		if !covered[d] {
			t.Errorf("date %s not covered by any range", d)
		}
	}
}

// TestDateJSONRoundTrip verifies the ISO-8601 JSON form.
func TestDateJSONRoundTrip(t *testing.T) {
	d := mustParse(t, "2025-05-01")
	data, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2025-05-01"` {
		t.Errorf("marshal = %s, want %q", data, `"2025-05-01"`)
	}

	var back Date
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != d {
		t.Errorf("round trip = %v, want %v", back, d)
	}
}
