package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/claude/vitalsync/internal/dates"
	"github.com/claude/vitalsync/internal/garmin"
	"github.com/claude/vitalsync/internal/models"
	"github.com/claude/vitalsync/internal/storage"
)

// syncRequest drives POST /sync. Start/End are ISO dates; Days applies when
// either bound is omitted.
type syncRequest struct {
	Start      *dates.Date       `json:"start,omitempty"`
	End        *dates.Date       `json:"end,omitempty"`
	Days       int               `json:"days,omitempty"`
	Categories []models.Category `json:"categories,omitempty"`
	Force      bool              `json:"force,omitempty"`
}

type ensureRequest struct {
	Date       dates.Date        `json:"date"`
	Categories []models.Category `json:"categories,omitempty"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Days <= 0 {
		req.Days = 7
	}

	span := dates.ResolveRange(req.Start, req.End, req.Days, dates.Of(time.Now()))
	if len(span) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty date range"})
		return
	}

	result, err := s.syncer.EnsureRange(r.Context(), userID, span[0], span[len(span)-1], req.Categories, req.Force)
	if err != nil {
		s.writeSyncError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEnsure(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var req ensureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Date.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date is required"})
		return
	}

	available, err := s.syncer.EnsureDay(r.Context(), userID, req.Date, req.Categories)
	if err != nil {
		s.writeSyncError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}

func (s *Server) handleQueryData(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	start, end, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var categories []models.Category
	for _, c := range r.URL.Query()["category"] {
		categories = append(categories, models.Category(c))
	}

	byDate, err := s.raw.Query(r.Context(), userID, start, end, categories)
	if err != nil {
		s.writeSyncError(w, err)
		return
	}

	// JSON object keys must be strings.
	out := make(map[string]storage.DayData, len(byDate))
	for d, day := range byDate {
		out[d.String()] = day
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSleepMetrics(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	date, err := dateParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	m, err := s.metrics.SleepWithBaselines(r.Context(), userID, date)
	if err != nil {
		s.writeSyncError(w, err)
		return
	}
	if m == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no sleep data for " + date.String()})
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleRecoveryMetrics(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	date, err := dateParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	m, err := s.metrics.RecoveryWithBaselines(r.Context(), userID, date)
	if err != nil {
		s.writeSyncError(w, err)
		return
	}
	if m == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no recovery data for " + date.String()})
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleBaselines(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	date, err := dateParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	lookback := 0
	if v := r.URL.Query().Get("lookback"); v != "" {
		lookback, err = strconv.Atoi(v)
		if err != nil || lookback < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid lookback"})
			return
		}
	}

	baselines, err := s.metrics.Baselines(r.Context(), userID, date, lookback)
	if err != nil {
		s.writeSyncError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, baselines)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	start, end, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	md, err := s.reporter.Markdown(r.Context(), userID, start, end)
	if err != nil {
		s.writeSyncError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(md))
}

// writeSyncError maps the error taxonomy onto HTTP statuses.
func (s *Server) writeSyncError(w http.ResponseWriter, err error) {
	var storageErr *storage.StorageError
	var rateLimited *garmin.RateLimitedError

	switch {
	case errors.Is(err, garmin.ErrNotAuthenticated):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "user not authenticated with Garmin"})
	case errors.As(err, &rateLimited):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "upstream rate limited"})
	case errors.As(err, &storageErr):
		s.log.Error("storage error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
	default:
		s.log.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return 0, false
	}
	return id, true
}

func dateParam(r *http.Request) (dates.Date, error) {
	v := r.URL.Query().Get("date")
	if v == "" {
		return dates.Date{}, fmt.Errorf("date parameter required")
	}
	return dates.Parse(v)
}

// parseDateRange reads start/end/days query parameters. Defaults to the last
// 7 days ending today.
func parseDateRange(r *http.Request) (dates.Date, dates.Date, error) {
	var start, end *dates.Date

	if v := r.URL.Query().Get("start"); v != "" {
		d, err := dates.Parse(v)
		if err != nil {
			return dates.Date{}, dates.Date{}, err
		}
		start = &d
	}
	if v := r.URL.Query().Get("end"); v != "" {
		d, err := dates.Parse(v)
		if err != nil {
			return dates.Date{}, dates.Date{}, err
		}
		end = &d
	}

	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return dates.Date{}, dates.Date{}, fmt.Errorf("invalid days")
		}
		days = n
	}

	span := dates.ResolveRange(start, end, days, dates.Of(time.Now()))
	if len(span) == 0 {
		return dates.Date{}, dates.Date{}, fmt.Errorf("empty date range")
	}
	return span[0], span[len(span)-1], nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
