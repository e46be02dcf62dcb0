package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/claude/vitalsync/internal/dates"
	"github.com/claude/vitalsync/internal/models"
)

// Upsert writes one raw record, replacing any prior record with the same
// (user, date, category) key.
func (s *Store) Upsert(ctx context.Context, userID int64, date dates.Date, category models.Category, payload json.RawMessage, fetchedAt time.Time) error {
	u, err := s.forUser(userID)
	if err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	_, err = u.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO raw_records (user_id, date, category, payload, fetched_at)
		 VALUES (?, ?, ?, ?, ?)`,
		userID, date.String(), string(category), string(payload), fetchedAt.UTC())
	if err != nil {
		return storageErr("upsert", fmt.Errorf("writing %s/%s for user %d: %w", date, category, userID, err))
	}
	return nil
}

// HasData reports whether any category is stored for the user/date.
func (s *Store) HasData(ctx context.Context, userID int64, date dates.Date) (bool, error) {
	u, err := s.forUser(userID)
	if err != nil {
		return false, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	var count int
	err = u.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM raw_records WHERE user_id = ? AND date = ?`,
		userID, date.String()).Scan(&count)
	if err != nil {
		return false, storageErr("read", fmt.Errorf("checking %s for user %d: %w", date, userID, err))
	}
	return count > 0, nil
}

// DatesWithData returns the set of dates in [start, end] that have at least
// one stored category.
func (s *Store) DatesWithData(ctx context.Context, userID int64, start, end dates.Date) (map[dates.Date]bool, error) {
	u, err := s.forUser(userID)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	rows, err := u.db.QueryContext(ctx,
		`SELECT DISTINCT date FROM raw_records
		 WHERE user_id = ? AND date BETWEEN ? AND ?
		 ORDER BY date`,
		userID, start.String(), end.String())
	if err != nil {
		return nil, storageErr("read", fmt.Errorf("listing dates for user %d: %w", userID, err))
	}
	defer rows.Close()

	existing := make(map[dates.Date]bool)
	for rows.Next() {
		var ds string
		if err := rows.Scan(&ds); err != nil {
			return nil, storageErr("read", fmt.Errorf("scanning date row: %w", err))
		}
		d, err := dates.Parse(ds)
		if err != nil {
			return nil, storageErr("read", err)
		}
		existing[d] = true
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read", err)
	}
	return existing, nil
}

// MissingCategories returns the subset of required categories that have no
// stored record for the user/date.
func (s *Store) MissingCategories(ctx context.Context, userID int64, date dates.Date, required []models.Category) ([]models.Category, error) {
	u, err := s.forUser(userID)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	rows, err := u.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM raw_records WHERE user_id = ? AND date = ?`,
		userID, date.String())
	if err != nil {
		return nil, storageErr("read", fmt.Errorf("listing categories for user %d on %s: %w", userID, date, err))
	}
	defer rows.Close()

	stored := make(map[models.Category]bool)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, storageErr("read", fmt.Errorf("scanning category row: %w", err))
		}
		stored[models.Category(c)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read", err)
	}

	var missing []models.Category
	for _, c := range required {
		if !stored[c] {
			missing = append(missing, c)
		}
	}
	return missing, nil
}

// DayData is the stored payloads for one date, keyed by category.
type DayData map[models.Category]json.RawMessage

// Query returns the stored payloads for [start, end], optionally filtered to
// specific categories, organized per date per category.
func (s *Store) Query(ctx context.Context, userID int64, start, end dates.Date, categories []models.Category) (map[dates.Date]DayData, error) {
	u, err := s.forUser(userID)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	query := `SELECT date, category, payload FROM raw_records
		 WHERE user_id = ? AND date BETWEEN ? AND ?`
	args := []any{userID, start.String(), end.String()}
	if len(categories) > 0 {
		query += ` AND category IN (?` + repeat(",?", len(categories)-1) + `)`
		for _, c := range categories {
			args = append(args, string(c))
		}
	}
	query += ` ORDER BY date, category`

	rows, err := u.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("read", fmt.Errorf("querying range %s..%s for user %d: %w", start, end, userID, err))
	}
	defer rows.Close()

	result := make(map[dates.Date]DayData)
	for rows.Next() {
		var ds, cat, payload string
		if err := rows.Scan(&ds, &cat, &payload); err != nil {
			return nil, storageErr("read", fmt.Errorf("scanning record row: %w", err))
		}
		d, err := dates.Parse(ds)
		if err != nil {
			return nil, storageErr("read", err)
		}
		if result[d] == nil {
			result[d] = make(DayData)
		}
		result[d][models.Category(cat)] = json.RawMessage(payload)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read", err)
	}
	return result, nil
}

// Day returns the stored payloads for a single date.
func (s *Store) Day(ctx context.Context, userID int64, date dates.Date) (DayData, error) {
	byDate, err := s.Query(ctx, userID, date, date, nil)
	if err != nil {
		return nil, err
	}
	return byDate[date], nil
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
