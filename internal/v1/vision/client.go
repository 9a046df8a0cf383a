// Package vision calls the vision analysis backend on behalf of the
// assistant service.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/metrics"
)

// Analysis is the backend's verdict on one frame.
type Analysis struct {
	Insight          *string  `json:"insight"`
	SceneDescription string   `json:"scene_description"`
	ObjectsDetected  []string `json:"objects_detected"`
	ShouldRespond    bool     `json:"should_respond"`
	Confidence       float64  `json:"confidence"`
	Suggestions      []string `json:"suggestions,omitempty"`
	Timestamp        int64    `json:"timestamp"`
}

// analyzeRequest is the backend wire format: the frame travels base64-encoded
// in a JSON body.
type analyzeRequest struct {
	Frame  string `json:"frame"`
	UserID string `json:"user_id"`
}

// Client calls the vision backend behind a circuit breaker so a dead model
// server fails fast instead of holding request goroutines.
type Client struct {
	backendURL string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

// NewClient builds a vision client for the given backend URL.
func NewClient(backendURL string) *Client {
	st := gobreaker.Settings{
		Name:        "vision",
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
		backendURL: backendURL,
		httpClient: &http.Client{Timeout: 90 * time.Second},
		cb:         gobreaker.NewCircuitBreaker(st),
	}
}

// Analyze sends one image to the backend and returns its analysis.
func (c *Client) Analyze(ctx context.Context, image []byte, userID string) (*Analysis, error) {
	body, err := json.Marshal(analyzeRequest{
		Frame:  base64.StdEncoding.EncodeToString(image),
		UserID: userID,
	})
	if err != nil {
		return nil, fmt.Errorf("encode vision request: %w", err)
	}

	result, err := c.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.backendURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("vision backend returned %d", resp.StatusCode)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}

		var analysis Analysis
		if err := json.Unmarshal(data, &analysis); err != nil {
			return nil, fmt.Errorf("decode vision response: %w", err)
		}
		return &analysis, nil
	})
	if err != nil {
		metrics.UpstreamFailures.WithLabelValues("vision").Inc()
		return nil, err
	}
	return result.(*Analysis), nil
}
