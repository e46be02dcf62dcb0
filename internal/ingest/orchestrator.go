// Package ingest fills the raw-record store on demand: it works out which
// dates are missing, groups them into contiguous ranges, fetches each day
// with retry and backoff, and splits the per-day document into per-category
// records.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/claude/vitalsync/internal/dates"
	"github.com/claude/vitalsync/internal/garmin"
	"github.com/claude/vitalsync/internal/models"
	"github.com/claude/vitalsync/internal/storage"
)

const (
	maxAttempts = 3
	backoffUnit = 5 * time.Second
)

// categoryKeys maps the upstream per-day document keys to stored categories.
// Keys missing from this table are bucketed under the raw catch-all.
var categoryKeys = map[string]models.Category{
	"steps":           models.CategorySteps,
	"sleep":           models.CategorySleep,
	"hrv":             models.CategoryHRV,
	"stress":          models.CategoryStress,
	"respiration":     models.CategoryRespiration,
	"spo2":            models.CategorySpO2,
	"resting_hr":      models.CategoryRestingHeartRate,
	"body_battery":    models.CategoryBodyBattery,
	"activities":      models.CategoryActivities,
	"heartRateValues": models.CategoryHeartRate,
	"floors":          models.CategoryFloors,
	"hydration":       models.CategoryHydration,
}

// SourceProvider yields an authenticated upstream source for a user.
type SourceProvider interface {
	ClientFor(userID int64) (garmin.Source, error)
}

var _ SourceProvider = (*garmin.SessionProvider)(nil)

// DateError records a date whose fetch failed after all retries. Nothing is
// persisted for such a date; on the next run it is still missing.
type DateError struct {
	Date   dates.Date `json:"date"`
	Reason string     `json:"reason"`
}

// Result summarizes one EnsureRange run.
type Result struct {
	DaysRequested int         `json:"days_requested"`
	DaysMissing   int         `json:"days_missing"`
	DaysStored    int         `json:"days_stored"`
	FetchAttempts int         `json:"fetch_attempts"`
	FailedDates   []DateError `json:"failed_dates,omitempty"`
}

// Orchestrator coordinates gap detection, fetching and storing for one call
// at a time per user. Cross-user calls are independent.
type Orchestrator struct {
	store   *storage.Store
	sources SourceProvider
	log     *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an orchestrator over the raw store and a source provider.
func New(store *storage.Store, sources SourceProvider, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:   store,
		sources: sources,
		log:     log,
		now:     time.Now,
		sleep:   ctxSleep,
	}
}

// EnsureRange makes sure every date in [start, end] has stored data, fetching
// only what is missing. When required categories are given, a date already
// holding some categories but missing a required one counts as missing. With
// force every date in the range is refetched. Returns a summary; a failing
// date is recorded there and does not abort the rest of the batch.
func (o *Orchestrator) EnsureRange(ctx context.Context, userID int64, start, end dates.Date, required []models.Category, force bool) (*Result, error) {
	all := dates.Range{Start: start, End: end}.Dates()
	result := &Result{DaysRequested: len(all)}

	missing, err := o.missingDates(ctx, userID, all, required, force)
	if err != nil {
		return nil, err
	}
	result.DaysMissing = len(missing)
	if len(missing) == 0 {
		return result, nil
	}

	src, err := o.sources.ClientFor(userID)
	if err != nil {
		return nil, fmt.Errorf("creating upstream client: %w", err)
	}

	for _, r := range dates.CoalesceContiguous(missing) {
		batchID := uuid.NewString()
		fetchedAt := o.now()
		o.log.Info("fetching range", "user", userID, "batch", batchID,
			"start", r.Start, "end", r.End)

		for _, d := range r.Dates() {
			payload, err := o.fetchWithRetry(ctx, src, d, result)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, garmin.ErrNotAuthenticated) {
					return result, err
				}
				o.log.Error("giving up on date", "user", userID, "date", d, "error", err)
				result.FailedDates = append(result.FailedDates, DateError{Date: d, Reason: err.Error()})
				continue
			}
			if err := o.storeDay(ctx, userID, d, payload, fetchedAt); err != nil {
				return result, err
			}
			result.DaysStored++
		}
	}

	o.log.Info("range ensured", "user", userID,
		"requested", result.DaysRequested, "missing", result.DaysMissing,
		"stored", result.DaysStored, "failed", len(result.FailedDates))
	return result, nil
}

// EnsureDay makes sure one date has all required categories stored, fetching
// the day fresh when any is missing. Reports whether data is available.
func (o *Orchestrator) EnsureDay(ctx context.Context, userID int64, date dates.Date, required []models.Category) (bool, error) {
	needed, err := o.dayNeedsFetch(ctx, userID, date, required)
	if err != nil {
		return false, err
	}
	if !needed {
		return true, nil
	}

	// A partially stored day is refetched whole so its categories share one
	// fetch timestamp.
	res, err := o.EnsureRange(ctx, userID, date, date, required, true)
	if err != nil {
		return false, err
	}
	return res.DaysStored > 0, nil
}

// missingDates filters the full date list down to the dates that need a
// fetch.
func (o *Orchestrator) missingDates(ctx context.Context, userID int64, all []dates.Date, required []models.Category, force bool) ([]dates.Date, error) {
	if force {
		return all, nil
	}
	if len(all) == 0 {
		return nil, nil
	}

	existing, err := o.store.DatesWithData(ctx, userID, all[0], all[len(all)-1])
	if err != nil {
		return nil, err
	}

	var missing []dates.Date
	for _, d := range all {
		if !existing[d] {
			missing = append(missing, d)
			continue
		}
		if len(required) > 0 {
			lacking, err := o.store.MissingCategories(ctx, userID, d, required)
			if err != nil {
				return nil, err
			}
			if len(lacking) > 0 {
				missing = append(missing, d)
			}
		}
	}
	return missing, nil
}

func (o *Orchestrator) dayNeedsFetch(ctx context.Context, userID int64, date dates.Date, required []models.Category) (bool, error) {
	has, err := o.store.HasData(ctx, userID, date)
	if err != nil {
		return false, err
	}
	if !has {
		return true, nil
	}
	if len(required) == 0 {
		return false, nil
	}
	lacking, err := o.store.MissingCategories(ctx, userID, date, required)
	if err != nil {
		return false, err
	}
	return len(lacking) > 0, nil
}

// fetchWithRetry fetches one date with up to maxAttempts attempts, backing
// off attempt*5s between them. Rate limits and transient failures retry the
// same way; they only log differently.
func (o *Orchestrator) fetchWithRetry(ctx context.Context, src garmin.Source, d dates.Date, result *Result) (garmin.DayPayload, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.FetchAttempts++

		payload, err := src.FetchDay(ctx, d)
		if err == nil {
			return payload, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, garmin.ErrNotAuthenticated) {
			return nil, err
		}
		if attempt == maxAttempts {
			break
		}

		wait := backoffUnit * time.Duration(attempt)
		if garmin.IsRateLimited(err) {
			o.log.Warn("rate limited, backing off", "date", d, "attempt", attempt, "wait", wait)
		} else {
			o.log.Warn("fetch failed, backing off", "date", d, "attempt", attempt, "wait", wait, "error", err)
		}
		if err := o.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

// storeDay splits the per-day document into category records and upserts
// each one. Unrecognized keys are collected into the raw catch-all so nothing
// the upstream sent is dropped.
func (o *Orchestrator) storeDay(ctx context.Context, userID int64, d dates.Date, payload garmin.DayPayload, fetchedAt time.Time) error {
	extras := make(map[string]json.RawMessage)

	for key, body := range payload {
		cat, ok := categoryKeys[key]
		if !ok {
			extras[key] = body
			continue
		}
		if err := o.store.Upsert(ctx, userID, d, cat, body, fetchedAt); err != nil {
			return err
		}
	}

	if len(extras) > 0 {
		body, err := json.Marshal(extras)
		if err != nil {
			return fmt.Errorf("encoding catch-all payload for %s: %w", d, err)
		}
		if err := o.store.Upsert(ctx, userID, d, models.CategoryRaw, body, fetchedAt); err != nil {
			return err
		}
	}
	return nil
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
