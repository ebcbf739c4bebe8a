package models

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testRetryClient() *RetryClient {
	return &RetryClient{
		client: &http.Client{Timeout: 5 * time.Second},
		config: RetryConfig{
			MaxRetries:      3,
			InitialDelay:    time.Millisecond,
			MaxDelay:        10 * time.Millisecond,
			BackoffFactor:   2.0,
			RetryableErrors: []int{429, 500, 502, 503, 504},
		},
	}
}

func TestRetryClientRecoversFromTransientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := testRetryClient().Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if n := hits.Load(); n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}
}

func TestRetryClientDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := testRetryClient().Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("expected 1 attempt, got %d", n)
	}
}

func TestRetryClientGivesUpAfterMaxRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := testRetryClient().Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	// The final attempt's response comes back as-is.
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if n := hits.Load(); n != 4 {
		t.Fatalf("expected 4 attempts, got %d", n)
	}
}

func TestCalculateDelayRespectsCap(t *testing.T) {
	c := testRetryClient()
	for attempt := 0; attempt < 10; attempt++ {
		if d := c.calculateDelay(attempt); d > c.config.MaxDelay {
			t.Fatalf("attempt %d: delay %v exceeds cap %v", attempt, d, c.config.MaxDelay)
		}
	}
}
