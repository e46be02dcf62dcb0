package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/claude/vitalsync/internal/dates"
	"github.com/claude/vitalsync/internal/models"
	"github.com/claude/vitalsync/internal/storage"
)

// HTTPClient implements DataSource by calling the VitalSync REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	http *resty.Client
}

// Compile-time check: *HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("X-API-Key", apiKey).
		SetTimeout(30 * time.Second)
	return &HTTPClient{http: client}
}

func (c *HTTPClient) get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode(), resp.Body())
	}
	return resp.Body(), nil
}

func userPath(userID int64, suffix string) string {
	return fmt.Sprintf("/api/v1/users/%d%s", userID, suffix)
}

func rangeParams(start, end dates.Date) map[string]string {
	return map[string]string{
		"start": start.String(),
		"end":   end.String(),
	}
}

func (c *HTTPClient) QueryRaw(ctx context.Context, userID int64, start, end dates.Date, categories []models.Category) (map[dates.Date]storage.DayData, error) {
	params := url.Values{
		"start": {start.String()},
		"end":   {end.String()},
	}
	for _, cat := range categories {
		params.Add("category", string(cat))
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get(userPath(userID, "/data"))
	if err != nil {
		return nil, fmt.Errorf("httpclient: data query: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("httpclient: data query returned %d: %s", resp.StatusCode(), resp.Body())
	}

	var byDay map[string]storage.DayData
	if err := json.Unmarshal(resp.Body(), &byDay); err != nil {
		return nil, fmt.Errorf("httpclient: decode raw data: %w", err)
	}

	out := make(map[dates.Date]storage.DayData, len(byDay))
	for key, day := range byDay {
		d, err := dates.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("httpclient: bad date key %q: %w", key, err)
		}
		out[d] = day
	}
	return out, nil
}

func (c *HTTPClient) SleepMetrics(ctx context.Context, userID int64, date dates.Date) (*models.SleepMetricsWithBaselines, error) {
	body, err := c.get(ctx, userPath(userID, "/metrics/sleep"), map[string]string{"date": date.String()})
	if err != nil {
		return nil, err
	}

	var m models.SleepMetricsWithBaselines
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("httpclient: decode sleep metrics: %w", err)
	}
	return &m, nil
}

func (c *HTTPClient) RecoveryMetrics(ctx context.Context, userID int64, date dates.Date) (*models.RecoveryMetricsWithBaselines, error) {
	body, err := c.get(ctx, userPath(userID, "/metrics/recovery"), map[string]string{"date": date.String()})
	if err != nil {
		return nil, err
	}

	var m models.RecoveryMetricsWithBaselines
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("httpclient: decode recovery metrics: %w", err)
	}
	return &m, nil
}

func (c *HTTPClient) Baselines(ctx context.Context, userID int64, date dates.Date, lookback int) (map[string]models.BaselineData, error) {
	params := map[string]string{"date": date.String()}
	if lookback > 0 {
		params["lookback"] = fmt.Sprintf("%d", lookback)
	}

	body, err := c.get(ctx, userPath(userID, "/baselines"), params)
	if err != nil {
		return nil, err
	}

	var baselines map[string]models.BaselineData
	if err := json.Unmarshal(body, &baselines); err != nil {
		return nil, fmt.Errorf("httpclient: decode baselines: %w", err)
	}
	return baselines, nil
}

func (c *HTTPClient) Report(ctx context.Context, userID int64, start, end dates.Date) (string, error) {
	body, err := c.get(ctx, userPath(userID, "/report"), rangeParams(start, end))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
