package simgrid

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/antonahmetgaliev/skf/internal/domain/standings"
	"github.com/antonahmetgaliev/skf/internal/platform/logging"
	"github.com/antonahmetgaliev/skf/internal/platform/resilience"
)

const (
	defaultBaseURL   = "https://www.thesimgrid.com"
	defaultListLimit = 200
	maxResponseBytes = 6 << 20
	// The standings page sits behind Cloudflare, which rejects obvious
	// non-browser clients; the page fetch sends a browser User-Agent.
	browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

var (
	// ErrRateLimited marks an upstream 429 so the caller can decide to serve
	// stale cached standings instead of failing the request.
	ErrRateLimited = crerr.New("simgrid rate limited")

	errSimgridTransient = crerr.New("simgrid transient failure")
)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig

	// DisableHTMLFallback turns off the standings page scrape, leaving
	// api-only standings when the JSON lacks per-race positions.
	DisableHTMLFallback bool
}

// Client proxies The SimGrid API and, when the API lacks per-race finishing
// positions, enriches standings by scraping the public standings page.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	noHTMLFallback bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		noHTMLFallback: cfg.DisableHTMLFallback,
	}
}

func (c *Client) ListChampionships(ctx context.Context, limit int) ([]standings.ChampionshipSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := map[string]string{
		"limit":  strconv.Itoa(limit),
		"offset": "0",
	}

	var payload []championshipListItemPayload
	if _, err := c.doJSON(ctx, "/api/v1/championships", query, &payload); err != nil {
		return nil, fmt.Errorf("fetch championships: %w", err)
	}

	out := make([]standings.ChampionshipSummary, 0, len(payload))
	for _, item := range payload {
		out = append(out, standings.ChampionshipSummary{ID: item.ID, Name: item.Name})
	}
	return out, nil
}

func (c *Client) GetChampionship(ctx context.Context, championshipID int64) (standings.ChampionshipDetails, error) {
	if championshipID <= 0 {
		return standings.ChampionshipDetails{}, fmt.Errorf("championship id must be greater than zero")
	}

	var payload championshipDetailsPayload
	path := fmt.Sprintf("/api/v1/championships/%d", championshipID)
	if _, err := c.doJSON(ctx, path, nil, &payload); err != nil {
		return standings.ChampionshipDetails{}, fmt.Errorf("fetch championship id=%d: %w", championshipID, err)
	}

	return standings.ChampionshipDetails{
		ID:                     payload.ID,
		Name:                   payload.Name,
		StartDate:              payload.StartDate,
		EndDate:                payload.EndDate,
		Capacity:               payload.Capacity,
		SpotsTaken:             payload.SpotsTaken,
		AcceptingRegistrations: payload.AcceptingRegistrations,
		HostName:               payload.HostName,
		GameName:               payload.GameName,
		URL:                    payload.URL,
	}, nil
}

// GetStandings resolves the combined standings view for one championship:
// fetch the upstream JSON, normalize it, and when no per-race positions came
// back, try the HTML standings page as a best-effort fallback. Upstream JSON
// failures propagate to the caller; the HTML path never does.
func (c *Client) GetStandings(ctx context.Context, championshipID int64) (standings.Data, error) {
	if championshipID <= 0 {
		return standings.Data{}, fmt.Errorf("championship id must be greater than zero")
	}

	var payload any
	path := fmt.Sprintf("/api/v1/championships/%d/standings", championshipID)
	if _, err := c.doJSON(ctx, path, nil, &payload); err != nil {
		return standings.Data{}, fmt.Errorf("fetch standings championship_id=%d: %w", championshipID, err)
	}

	data := parseStandingsPayload(payload)
	if c.noHTMLFallback || hasRacePositions(data) || len(data.Races) == 0 {
		return data, nil
	}

	pageHTML, err := c.fetchStandingsPage(ctx, championshipID)
	if err != nil {
		c.logger.WarnContext(ctx, "standings page fetch failed, serving api-only standings",
			"championship_id", championshipID,
			"error", err,
		)
		return data, nil
	}

	return mergeHTMLRacePositions(data, extractHTMLSnapshot(pageHTML)), nil
}

func (c *Client) fetchStandingsPage(ctx context.Context, championshipID int64) (string, error) {
	pageURL := fmt.Sprintf("%s/championships/%d/standings", c.baseURL, championshipID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build standings page request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch standings page: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("standings page status=%d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read standings page: %w", err)
	}
	return string(raw), nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) ([]byte, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "simgrid circuit breaker rejected request", "state", c.breaker.State())
			return nil, fmt.Errorf("%w: simgrid is temporarily unavailable", err)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	out, err, _ := c.flight.Do(path+"?"+values.Encode(), func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isTransientFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decode simgrid payload: %w", err)
	}

	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errSimgridTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errSimgridTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode == http.StatusTooManyRequests:
				// Surfaced unretried so the caller can fall back to cache.
				return nil, fmt.Errorf("%w: status=%d body=%s", ErrRateLimited, resp.StatusCode, abbreviateBody(raw))
			case resp.StatusCode >= http.StatusInternalServerError:
				lastErr = fmt.Errorf("%w: status=%d body=%s", errSimgridTransient, resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, fmt.Errorf("simgrid status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("simgrid request failed")
	}
	c.logger.WarnContext(ctx, "simgrid request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func isTransientFailure(err error) bool {
	return err != nil && stderrors.Is(err, errSimgridTransient)
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}

type championshipListItemPayload struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type championshipDetailsPayload struct {
	ID                     int64   `json:"id"`
	Name                   string  `json:"name"`
	StartDate              *string `json:"start_date"`
	EndDate                *string `json:"end_date"`
	Capacity               *int64  `json:"capacity"`
	SpotsTaken             *int64  `json:"spots_taken"`
	AcceptingRegistrations bool    `json:"accepting_registrations"`
	HostName               string  `json:"host_name"`
	GameName               string  `json:"game_name"`
	URL                    string  `json:"url"`
}
