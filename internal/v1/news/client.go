// Package news proxies an upstream news feed for the assistant service.
package news

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/metrics"
)

// ErrNotConfigured is returned while no feed URL is set; the endpoint
// reports unavailable rather than failing the whole service.
var ErrNotConfigured = errors.New("news feed URL not configured")

// Client fetches the upstream feed behind a circuit breaker.
type Client struct {
	feedURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

// NewClient builds a news client; feedURL may be empty.
func NewClient(feedURL string) *Client {
	st := gobreaker.Settings{
		Name:        "news",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			var stateVal float64
			switch to {
			case gobreaker.StateClosed:
				stateVal = 0
			case gobreaker.StateOpen:
				stateVal = 1
			case gobreaker.StateHalfOpen:
				stateVal = 2
			}
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateVal)
		},
	}

	return &Client{
		feedURL:    feedURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cb:         gobreaker.NewCircuitBreaker(st),
	}
}

// Fetch returns the raw upstream feed body.
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	if c.feedURL == "" {
		return nil, ErrNotConfigured
	}

	result, err := c.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("news upstream returned %d", resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	})
	if err != nil {
		metrics.UpstreamFailures.WithLabelValues("news").Inc()
		return nil, err
	}
	return result.([]byte), nil
}
