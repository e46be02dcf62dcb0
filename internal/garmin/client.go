// Package garmin talks to the Garmin Connect wellness API. It produces one
// JSON document per user per day, keyed by data kind (sleep, steps, hrv, ...),
// which the ingestion layer splits into per-category records.
package garmin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/claude/vitalsync/internal/dates"
)

// DayPayload is the combined upstream response for one day, keyed by data
// kind. Values are the verbatim JSON bodies returned by each endpoint; a kind
// whose fetch failed carries an {"error": "..."} stub instead.
type DayPayload map[string]json.RawMessage

// Source yields the per-day upstream document. The fetch is per-day because
// that is the upstream contract; range scheduling lives in the ingestion
// layer.
type Source interface {
	FetchDay(ctx context.Context, date dates.Date) (DayPayload, error)
}

// endpoint describes one wellness API call contributing a key to DayPayload.
type endpoint struct {
	key  string
	path func(date dates.Date, profileID string) string
}

// Fetch order and key names follow the upstream document layout. Keys here
// are the raw payload keys; the ingestion layer maps them to categories.
var endpoints = []endpoint{
	{"sleep", func(d dates.Date, pid string) string {
		return "/wellness-service/wellness/dailySleepData/" + pid + "?date=" + d.String() + "&nonSleepBufferMinutes=60"
	}},
	{"steps", func(d dates.Date, pid string) string {
		return "/wellness-service/wellness/dailySummaryChart/" + pid + "?date=" + d.String()
	}},
	{"hrv", func(d dates.Date, _ string) string {
		return "/hrv-service/hrv/" + d.String()
	}},
	{"stress", func(d dates.Date, _ string) string {
		return "/wellness-service/wellness/dailyStress/" + d.String()
	}},
	{"respiration", func(d dates.Date, _ string) string {
		return "/wellness-service/wellness/daily/respiration/" + d.String()
	}},
	{"spo2", func(d dates.Date, _ string) string {
		return "/wellness-service/wellness/daily/spo2/" + d.String()
	}},
	{"resting_hr", func(d dates.Date, _ string) string {
		return "/usersummary-service/stats/heartRate/daily/" + d.String() + "/" + d.String()
	}},
	{"body_battery", func(d dates.Date, _ string) string {
		return "/wellness-service/wellness/bodyBattery/reports/daily?startDate=" + d.String() + "&endDate=" + d.String()
	}},
	{"activities", func(d dates.Date, _ string) string {
		return "/activitylist-service/activities/fordate/" + d.String()
	}},
}

// Client fetches wellness data for one authenticated user.
type Client struct {
	http      *resty.Client
	profileID string
	log       *slog.Logger
}

// NewClient builds a client around an authenticated session token. profileID
// is the Garmin display name used in profile-scoped endpoint paths.
func NewClient(baseURL, accessToken, profileID string, timeout time.Duration, log *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(accessToken).
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient, profileID: profileID, log: log}
}

// FetchDay calls every wellness endpoint for one date and assembles the
// combined document. A failing endpoint degrades its key to an error stub so
// the rest of the day survives. A rate limit aborts the whole day: once the
// upstream says 429, hitting the remaining endpoints would only extend the
// penalty window.
func (c *Client) FetchDay(ctx context.Context, date dates.Date) (DayPayload, error) {
	payload := make(DayPayload, len(endpoints))

	for _, ep := range endpoints {
		body, err := c.get(ctx, ep.path(date, c.profileID))
		if err != nil {
			if IsRateLimited(err) || ctx.Err() != nil {
				return nil, err
			}
			c.log.Warn("fetching data kind failed", "kind", ep.key, "date", date, "error", err)
			stub, _ := json.Marshal(map[string]string{"error": err.Error()})
			payload[ep.key] = stub
			continue
		}
		payload[ep.key] = body
	}
	return payload, nil
}

// get performs one authenticated GET and classifies failures into the retry
// taxonomy.
func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransientError{Err: err}
	}

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return nil, &RateLimitedError{RetryAfter: retryAfter(resp)}
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return nil, fmt.Errorf("%w: upstream returned %d", ErrNotAuthenticated, resp.StatusCode())
	case resp.StatusCode() >= 500:
		return nil, &TransientError{Err: fmt.Errorf("upstream returned %d", resp.StatusCode())}
	case resp.StatusCode() != http.StatusOK:
		return nil, fmt.Errorf("upstream returned %d for %s", resp.StatusCode(), path)
	}

	body := resp.Body()
	if len(body) == 0 {
		body = []byte("null")
	}
	return json.RawMessage(body), nil
}

func retryAfter(resp *resty.Response) time.Duration {
	v := resp.Header().Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
