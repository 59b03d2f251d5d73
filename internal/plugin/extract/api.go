package extract

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"eltorch/internal/plugin"
)

// APIConfig is the wire shape of an api extractor's config. RateLimit is in
// requests per second; zero means unlimited.
type APIConfig struct {
	Type      string  `json:"type"`
	URL       string  `json:"url"`
	RateLimit float64 `json:"rate_limit"`
	Timeout   int     `json:"timeout_seconds"`
}

// API fetches a JSON array of objects from an HTTP endpoint. Each object
// becomes one Dataset row; the column set is the union of object keys
// observed across the response, in first-seen order.
//
// Unlike the per-tenant limiter cache this was adapted from, there is one
// caller per task invocation, so a single *rate.Limiter built fresh from the
// task's own config is sufficient; nothing needs to be shared or expired.
type API struct {
	client *http.Client
}

// NewAPI constructs an API extractor. Matches plugin.ExtractorFactory.
func NewAPI() plugin.Extractor {
	return &API{client: &http.Client{}}
}

func (a *API) Extract(ctx context.Context, config json.RawMessage) (*plugin.Dataset, error) {
	var cfg APIConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return nil, plugin.NewExtractError("api.parseConfig", false, err)
	}
	if cfg.URL == "" {
		return nil, plugin.NewExtractError("api.parseConfig", false, errors.New("url is required"))
	}

	reqCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Timeout)*time.Second)
		defer cancel()
	}

	if cfg.RateLimit > 0 {
		limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
		if err := limiter.Wait(reqCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, &plugin.CancelledError{Op: "api.rateLimit"}
			}
			return nil, plugin.NewExtractError("api.rateLimit", true, err)
		}
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, cfg.URL, nil)
	if err != nil {
		return nil, plugin.NewExtractError("api.buildRequest", false, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, &plugin.CancelledError{Op: "api.fetch"}
		}
		return nil, plugin.NewExtractError("api.fetch", true, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, plugin.NewExtractError("api.readBody", true, err)
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, plugin.NewExtractError("api.fetch", true, statusError(resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, plugin.NewExtractError("api.fetch", false, statusError(resp.StatusCode))
	}

	var records []map[string]any
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, plugin.NewExtractError("api.decodeBody", false, err)
	}

	return buildDataset(records), nil
}

func buildDataset(records []map[string]any) *plugin.Dataset {
	var columns []string
	seen := make(map[string]bool)
	for _, record := range records {
		for key := range record {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	return &plugin.Dataset{Columns: columns, Rows: records}
}

type apiStatusError struct {
	code int
}

func statusError(code int) error {
	return &apiStatusError{code: code}
}

func (e *apiStatusError) Error() string {
	return http.StatusText(e.code)
}
