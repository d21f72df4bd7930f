/*
Package remote talks to optional NLP model servers over JSON/HTTP.

Embedding, sentiment and dependency-parse backends can each be served by an
external process. Every call goes through a circuit breaker so a dead model
server fails fast and the caller drops to its local fallback instead of
waiting on timeouts.
*/
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/khanglvm/tripsense/internal/metrics"
)

// ErrUnavailable is returned when the breaker is open or the endpoint is unset.
var ErrUnavailable = errors.New("remote backend unavailable")

// BreakerConfig controls when a backend is considered down.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// Client posts JSON payloads to a single endpoint.
type Client struct {
	name     string
	endpoint string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[[]byte]
	logger   zerolog.Logger
}

// NewClient creates a client for endpoint. name labels logs and metrics.
func NewClient(name, endpoint string, timeout time.Duration, bc BreakerConfig, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if bc.FailureThreshold == 0 {
		bc.FailureThreshold = 5
	}
	if bc.OpenTimeout <= 0 {
		bc.OpenTimeout = 30 * time.Second
	}

	logger = logger.With().Str("backend", name).Logger()
	metrics.BreakerState.WithLabelValues(name).Set(0)

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     bc.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bc.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.BreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &Client{
		name:     name,
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		breaker:  breaker,
		logger:   logger,
	}
}

// Endpoint returns the configured URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// PostJSON sends payload and decodes the response body into out.
func (c *Client) PostJSON(ctx context.Context, payload, out any) error {
	if c == nil || c.endpoint == "" {
		return ErrUnavailable
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", c.name, err)
	}

	raw, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordDegradation(c.name, "breaker_open")
			return fmt.Errorf("%w: %s: %v", ErrUnavailable, c.name, err)
		}
		return err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", c.name, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", c.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d: %s", c.name, resp.StatusCode, truncate(raw, 200))
	}
	return raw, nil
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
