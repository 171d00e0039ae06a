package nbp_client

import (
	"context"
	"encoding/json"
	"fmt"
	"gw-wallet-ledger/internal/custom_err"
	"gw-wallet-ledger/internal/metrics"
	"gw-wallet-ledger/internal/models"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultURL is the NBP "table C" endpoint (bid/ask rates against PLN).
const DefaultURL = "https://api.nbp.pl/api/exchangerates/tables/c/?format=json"

type Config struct {
	URL          string
	Timeout      time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
}

type Client struct {
	url          string
	httpClient   *http.Client
	maxAttempts  int
	retryBackoff time.Duration
	metrics      *metrics.Metrics
	log          *slog.Logger
}

func NewClient(cfg Config, m *metrics.Metrics, log *slog.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	return &Client{
		url: cfg.URL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxAttempts:  cfg.MaxAttempts,
		retryBackoff: cfg.RetryBackoff,
		metrics:      m,
		log:          log,
	}
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// FetchRates downloads the current table and returns currency code -> ask rate.
func (c *Client) FetchRates(ctx context.Context) (map[string]float64, error) {
	const op = "nbp_client.FetchRates"

	start := time.Now()
	var lastStatus int

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.retryBackoff * time.Duration(1<<(attempt-1))
			c.log.Warn("rate provider unavailable, retrying",
				slog.String("op", op),
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", c.maxAttempts),
				slog.Int("status", lastStatus),
				slog.Duration("delay", delay))

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("%s: %w", op, ctx.Err())
			}
		}

		c.metrics.ObserveFetchAttempt()

		body, status, err := c.get(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if retryableStatus(status) {
			lastStatus = status
			continue
		}
		if status < 200 || status > 299 {
			return nil, fmt.Errorf("%s: status %d: %w", op, status, custom_err.ErrUpstream)
		}

		rates, err := parseRates(body)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if duration := time.Since(start); duration > time.Second {
			c.log.Warn("медленный запрос курсов",
				slog.String("op", op),
				slog.Duration("duration", duration))
		}

		return rates, nil
	}

	return nil, fmt.Errorf("%s: status %d after %d attempts: %w",
		op, lastStatus, c.maxAttempts, custom_err.ErrUpstreamUnavailable)
}

func (c *Client) get(ctx context.Context) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building http request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading body: %w", err)
	}

	return body, resp.StatusCode, nil
}

func parseRates(body []byte) (map[string]float64, error) {
	var tables []models.NBPTable
	if err := json.Unmarshal(body, &tables); err != nil {
		return nil, fmt.Errorf("decoding json: %v: %w", err, custom_err.ErrMalformedRates)
	}
	if len(tables) == 0 || len(tables[0].Rates) == 0 {
		return nil, fmt.Errorf("empty table: %w", custom_err.ErrMalformedRates)
	}

	rates := make(map[string]float64, len(tables[0].Rates))
	for _, r := range tables[0].Rates {
		code := strings.ToUpper(strings.TrimSpace(r.Code))
		if code == "" || r.Ask <= 0 {
			return nil, fmt.Errorf("bad entry %q ask=%v: %w", r.Code, r.Ask, custom_err.ErrMalformedRates)
		}
		rates[code] = r.Ask
	}

	return rates, nil
}
