package bridge

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	controlTimeout    = 30 * time.Second
	bestEffortTimeout = 10 * time.Second
	errorBodyLimit    = 200
)

// Client issues authenticated calls to named backend endpoints under
// <backend>/functions/v1/. Every failure path resolves to a false return so
// callers only branch on the bool; nothing escapes as an error.
type Client struct {
	backendURL string
	bridgeKey  string
	anonKey    string
	control    *http.Client
	effort     *http.Client
}

// NewClient creates a transport client for the given backend and credentials.
func NewClient(backendURL, bridgeKey, anonKey string) *Client {
	return &Client{
		backendURL: strings.TrimRight(backendURL, "/"),
		bridgeKey:  bridgeKey,
		anonKey:    anonKey,
		control:    &http.Client{Timeout: controlTimeout},
		effort:     &http.Client{Timeout: bestEffortTimeout},
	}
}

// Call posts payload to endpoint and decodes the JSON response into out when
// out is non-nil. Returns false on any transport or HTTP-level failure.
func (c *Client) Call(endpoint string, payload any, out any) bool {
	return c.post(c.control, endpoint, payload, out)
}

// BestEffort posts payload to endpoint with a shorter timeout and discards
// the response. Used for streaming, heartbeats and error reports where the
// outcome is advisory.
func (c *Client) BestEffort(endpoint string, payload any) {
	c.post(c.effort, endpoint, payload, nil)
}

func (c *Client) post(hc *http.Client, endpoint string, payload any, out any) bool {
	url := c.backendURL + "/functions/v1/" + endpoint
	body, err := json.Marshal(payload)
	if err != nil {
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("encode request")
		return false
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("build request")
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.anonKey)
	req.Header.Set("x-bridge-key", c.bridgeKey)

	resp, err := hc.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("request failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		ev := log.Warn().Int("status", resp.StatusCode).Str("endpoint", endpoint).Str("body", string(snippet))
		if resp.StatusCode == http.StatusUnauthorized {
			ev.Msg("backend rejected bridge key")
		} else {
			ev.Msg("API error")
		}
		return false
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Warn().Err(err).Str("endpoint", endpoint).Msg("decode response")
			return false
		}
	}
	return true
}
