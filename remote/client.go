package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/timzifer/aquasync/config"
)

// Client defines the backend operations required by the synchronization
// engine. The plant argument of Sensors is optional; an empty string requests
// the mode default simulation instead of a plant-specific one.
type Client interface {
	Mode(ctx context.Context) (string, error)
	SetMode(ctx context.Context, mode string) error
	Plants(ctx context.Context) ([]string, error)
	Sensors(ctx context.Context, plant string) (SensorReading, error)
	Recommendations(ctx context.Context) (Recommendation, error)
	Recipes(ctx context.Context) ([]RecipeEntry, error)
	AddRecipe(ctx context.Context, stub RecipeStub) error
	Comparison(ctx context.Context) ([]ComparisonEntry, error)
	History(ctx context.Context, limit int) ([]HistoryEntry, error)
	Actuators(ctx context.Context) (ActuatorState, error)
	SetActuator(ctx context.Context, device string, value interface{}) error
}

// ClientFactory creates clients for the configured endpoint.
type ClientFactory func(cfg config.EndpointConfig) (Client, error)

// StatusError reports a non-2xx response from the backend.
type StatusError struct {
	Status int
	Path   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Path, e.Status)
}

type httpClient struct {
	base *url.URL
	hc   *http.Client
}

// NewHTTPClientFactory returns a factory that creates JSON-over-HTTP clients.
func NewHTTPClientFactory() ClientFactory {
	return func(cfg config.EndpointConfig) (Client, error) {
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("remote base URL is required")
		}
		base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
		if err != nil {
			return nil, fmt.Errorf("parse remote base URL %s: %w", cfg.BaseURL, err)
		}
		timeout := cfg.Timeout.Duration
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		return &httpClient{base: base, hc: &http.Client{Timeout: timeout}}, nil
	}
}

func (c *httpClient) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	target := *c.base
	target.Path = strings.TrimRight(target.Path, "/") + path
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Status: resp.StatusCode, Path: path}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *httpClient) postJSON(ctx context.Context, path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", path, err)
	}
	target := *c.base
	target.Path = strings.TrimRight(target.Path, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode, Path: path}
	}
	return nil
}

func (c *httpClient) Mode(ctx context.Context) (string, error) {
	var payload struct {
		Mode string `json:"mode"`
	}
	if err := c.getJSON(ctx, "/mode", nil, &payload); err != nil {
		return "", err
	}
	return payload.Mode, nil
}

func (c *httpClient) SetMode(ctx context.Context, mode string) error {
	return c.postJSON(ctx, "/mode", map[string]string{"mode": mode})
}

func (c *httpClient) Plants(ctx context.Context) ([]string, error) {
	var plants []string
	if err := c.getJSON(ctx, "/plants", nil, &plants); err != nil {
		return nil, err
	}
	return plants, nil
}

func (c *httpClient) Sensors(ctx context.Context, plant string) (SensorReading, error) {
	var query url.Values
	if plant != "" {
		query = url.Values{"plant": []string{plant}}
	}
	var reading SensorReading
	if err := c.getJSON(ctx, "/sensors", query, &reading); err != nil {
		return nil, err
	}
	return reading, nil
}

func (c *httpClient) Recommendations(ctx context.Context) (Recommendation, error) {
	var rec Recommendation
	if err := c.getJSON(ctx, "/ai", nil, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *httpClient) Recipes(ctx context.Context) ([]RecipeEntry, error) {
	var recipes []RecipeEntry
	if err := c.getJSON(ctx, "/recipes", nil, &recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

func (c *httpClient) AddRecipe(ctx context.Context, stub RecipeStub) error {
	return c.postJSON(ctx, "/recipes", stub)
}

func (c *httpClient) Comparison(ctx context.Context) ([]ComparisonEntry, error) {
	var entries []ComparisonEntry
	if err := c.getJSON(ctx, "/traditional_vs_aquaponics", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *httpClient) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	query := url.Values{"limit": []string{strconv.Itoa(limit)}}
	var entries []HistoryEntry
	if err := c.getJSON(ctx, "/sensors/history", query, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *httpClient) Actuators(ctx context.Context) (ActuatorState, error) {
	var state ActuatorState
	if err := c.getJSON(ctx, "/actuators", nil, &state); err != nil {
		return nil, err
	}
	return state, nil
}

func (c *httpClient) SetActuator(ctx context.Context, device string, value interface{}) error {
	return c.postJSON(ctx, "/actuators/"+url.PathEscape(device), map[string]interface{}{"state": value})
}
