// Package report aggregates derived metrics over a period into a summary
// with simple trends, and renders a markdown report from it.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/claude/vitalsync/internal/dates"
	"github.com/claude/vitalsync/internal/metrics"
)

// minTrendDays is the minimum period length for a meaningful trend.
const minTrendDays = 7

// Trend is the percent change of the second half of a period against the
// first half.
type Trend struct {
	Direction     string  `json:"direction"` // up, down or neutral
	PercentChange float64 `json:"percent_change"`
}

// MetricSummary aggregates one metric over the period. Total is only set for
// metrics where summing makes sense.
type MetricSummary struct {
	DailyAvg float64  `json:"daily_avg"`
	Total    *float64 `json:"total,omitempty"`
	Days     int      `json:"days"`
	Trend    Trend    `json:"trend"`
}

// Summary is the aggregated view of a period.
type Summary struct {
	Start   dates.Date               `json:"start"`
	End     dates.Date               `json:"end"`
	Days    int                      `json:"days"`
	Metrics map[string]MetricSummary `json:"metrics"`
}

// Generator builds summaries and markdown reports from derived metrics.
type Generator struct {
	extractor *metrics.Extractor
	log       *slog.Logger
}

// NewGenerator creates a report generator over the metrics extractor.
func NewGenerator(extractor *metrics.Extractor, log *slog.Logger) *Generator {
	return &Generator{extractor: extractor, log: log}
}

// Summary aggregates the period [start, end]. Days without a value for a
// metric are skipped, not counted as zero.
func (g *Generator) Summary(ctx context.Context, userID int64, start, end dates.Date) (*Summary, error) {
	days := dates.Range{Start: start, End: end}.Dates()

	sleepByDate, err := g.extractor.SleepMetricsRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	series := map[string][]float64{}
	for _, d := range days {
		if m, ok := sleepByDate[d]; ok {
			if m.TotalSleepSeconds != nil {
				series["sleep_hours"] = append(series["sleep_hours"], float64(*m.TotalSleepSeconds)/3600)
			}
			if m.SleepEfficiencyPct != nil {
				series["sleep_efficiency_pct"] = append(series["sleep_efficiency_pct"], *m.SleepEfficiencyPct)
			}
		}

		rec, err := g.extractor.RecoveryMetrics(ctx, userID, d)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		if rec.RestingHeartRate != nil {
			series["resting_heart_rate"] = append(series["resting_heart_rate"], float64(*rec.RestingHeartRate))
		}
		if rec.HRVRMSSD != nil {
			series["hrv_rmssd"] = append(series["hrv_rmssd"], *rec.HRVRMSSD)
		}
		if rec.BodyBatteryMax != nil {
			series["body_battery_max"] = append(series["body_battery_max"], float64(*rec.BodyBatteryMax))
		}
		if rec.AvgStressLevel != nil {
			series["avg_stress_level"] = append(series["avg_stress_level"], *rec.AvgStressLevel)
		}
	}

	summary := &Summary{Start: start, End: end, Days: len(days), Metrics: map[string]MetricSummary{}}
	for name, vals := range series {
		ms := MetricSummary{DailyAvg: mean(vals), Days: len(vals), Trend: computeTrend(vals)}
		if name == "sleep_hours" {
			total := sum(vals)
			ms.Total = &total
		}
		summary.Metrics[name] = ms
	}

	g.log.Info("built period summary", "user", userID, "start", start, "end", end,
		"metrics", len(summary.Metrics))
	return summary, nil
}

// Markdown renders the period summary as a markdown report.
func (g *Generator) Markdown(ctx context.Context, userID int64, start, end dates.Date) (string, error) {
	summary, err := g.Summary(ctx, userID, start, end)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Health Report: %s to %s\n\n", summary.Start, summary.End)

	if len(summary.Metrics) == 0 {
		b.WriteString("No data available for this period.\n")
		return b.String(), nil
	}

	b.WriteString("| Metric | Daily Average | Total | Trend |\n")
	b.WriteString("|--------|---------------|-------|-------|\n")

	rows := []struct {
		key   string
		label string
		unit  string
	}{
		{"sleep_hours", "Sleep Duration", "h"},
		{"sleep_efficiency_pct", "Sleep Efficiency", "%"},
		{"resting_heart_rate", "Resting HR", "bpm"},
		{"hrv_rmssd", "HRV (Nightly Avg)", "ms"},
		{"body_battery_max", "Body Battery Max", ""},
		{"avg_stress_level", "Avg Stress Level", ""},
	}
	for _, row := range rows {
		ms, ok := summary.Metrics[row.key]
		if !ok {
			continue
		}
		total := "-"
		if ms.Total != nil {
			total = fmt.Sprintf("%.1f %s", *ms.Total, row.unit)
		}
		fmt.Fprintf(&b, "| %s | %.1f %s | %s | %s |\n",
			row.label, ms.DailyAvg, row.unit, total, formatTrend(ms.Trend))
	}

	fmt.Fprintf(&b, "\nCovering %d days; metrics are averaged over the days that have data.\n", summary.Days)
	return b.String(), nil
}

// computeTrend compares the second half of the series against the first.
// Short or flat-starting series are neutral.
func computeTrend(vals []float64) Trend {
	if len(vals) < minTrendDays {
		return Trend{Direction: "neutral"}
	}

	firstAvg := mean(vals[:len(vals)/2])
	lastAvg := mean(vals[len(vals)/2:])
	if firstAvg == 0 {
		return Trend{Direction: "neutral"}
	}

	pct := (lastAvg - firstAvg) / firstAvg * 100
	direction := "neutral"
	switch {
	case pct > 0:
		direction = "up"
	case pct < 0:
		direction = "down"
	}
	return Trend{Direction: direction, PercentChange: math.Round(pct*100) / 100}
}

func formatTrend(t Trend) string {
	switch t.Direction {
	case "up":
		return fmt.Sprintf("↑ %+.1f%%", t.PercentChange)
	case "down":
		return fmt.Sprintf("↓ %+.1f%%", t.PercentChange)
	default:
		return "—"
	}
}

func sum(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return sum(vals) / float64(len(vals))
}
