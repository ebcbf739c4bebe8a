package models

import (
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryConfig defines retry behavior for model downloads.
type RetryConfig struct {
	MaxRetries      int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	RetryableErrors []int // HTTP status codes that should be retried
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialDelay:    1 * time.Second,
		MaxDelay:        30 * time.Second,
		BackoffFactor:   2.0,
		RetryableErrors: []int{429, 500, 502, 503, 504},
	}
}

// RetryClient wraps an HTTP client with exponential-backoff retries. Large
// model downloads routinely hit transient mirror errors; the bridge transport
// deliberately does not retry (the poll loop's backoff owns that), but
// downloads do.
type RetryClient struct {
	client *http.Client
	config RetryConfig
}

// NewRetryClient creates a retrying client with the given per-request timeout.
func NewRetryClient(timeout time.Duration) *RetryClient {
	return &RetryClient{
		client: &http.Client{Timeout: timeout},
		config: DefaultRetryConfig(),
	}
}

// Do executes the request, retrying transport errors and retryable statuses.
func (c *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		reqClone := req.Clone(req.Context())

		resp, err := c.client.Do(reqClone)
		if err != nil {
			lastErr = err
			if attempt < c.config.MaxRetries {
				delay := c.calculateDelay(attempt)
				log.Warn().
					Err(err).
					Int("attempt", attempt+1).
					Dur("delay", delay).
					Str("url", req.URL.String()).
					Msg("download request failed, retrying")
				time.Sleep(delay)
				continue
			}
			return nil, lastErr
		}

		if c.shouldRetry(resp.StatusCode) && attempt < c.config.MaxRetries {
			resp.Body.Close()
			delay := c.calculateDelay(attempt)
			log.Warn().
				Int("status", resp.StatusCode).
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Str("url", req.URL.String()).
				Msg("download returned retryable error, retrying")
			time.Sleep(delay)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

func (c *RetryClient) shouldRetry(statusCode int) bool {
	for _, code := range c.config.RetryableErrors {
		if statusCode == code {
			return true
		}
	}
	return false
}

// calculateDelay computes exponential backoff with jitter (±25%).
func (c *RetryClient) calculateDelay(attempt int) time.Duration {
	delay := float64(c.config.InitialDelay) * math.Pow(c.config.BackoffFactor, float64(attempt))
	jitter := delay * 0.25 * (2*rand.Float64() - 1)
	delay += jitter
	if delay > float64(c.config.MaxDelay) {
		delay = float64(c.config.MaxDelay)
	}
	return time.Duration(delay)
}
