package bridge

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/priority-living/pl/pkg/api"
)

func TestClientCallSendsAuthHeaders(t *testing.T) {
	var gotPath string
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeaders = r.Header.Clone()
		var req api.PollRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(api.PollResponse{SessionID: "sess-1"})
	}))
	defer srv.Close()

	// Trailing slash on the backend URL must not produce a double slash.
	c := NewClient(srv.URL+"/", "pb_testkey", "anon-key")
	var resp api.PollResponse
	if !c.Call("bridge-poll", api.PollRequest{MachineName: "m1"}, &resp) {
		t.Fatal("expected call to succeed")
	}
	if gotPath != "/functions/v1/bridge-poll" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotHeaders.Get("Content-Type") != "application/json" {
		t.Errorf("content type %q", gotHeaders.Get("Content-Type"))
	}
	if gotHeaders.Get("apikey") != "anon-key" {
		t.Errorf("apikey header %q", gotHeaders.Get("apikey"))
	}
	if gotHeaders.Get("Authorization") != "Bearer anon-key" {
		t.Errorf("authorization header %q", gotHeaders.Get("Authorization"))
	}
	if gotHeaders.Get("x-bridge-key") != "pb_testkey" {
		t.Errorf("bridge key header %q", gotHeaders.Get("x-bridge-key"))
	}
	if resp.SessionID != "sess-1" {
		t.Errorf("session id %q", resp.SessionID)
	}
}

func TestClientCallHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "pb_bad", "anon")
	if c.Call("bridge-poll", api.PollRequest{MachineName: "m1"}, nil) {
		t.Fatal("expected call to fail on 401")
	}
}

func TestClientCallTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL, "pb_test", "anon")
	if c.Call("bridge-poll", api.PollRequest{MachineName: "m1"}, nil) {
		t.Fatal("expected call to fail when backend is down")
	}
}

func TestClientCallBadResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "pb_test", "anon")
	var resp api.PollResponse
	if c.Call("bridge-poll", api.PollRequest{MachineName: "m1"}, &resp) {
		t.Fatal("expected call to fail on undecodable body")
	}
}

func TestClientBestEffortNeverBlocksCaller(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "oops", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "pb_test", "anon")
	c.BestEffort("bridge-stream", api.StreamRequest{CommandID: "c1", Chunk: "x\n", MachineName: "m1"})
	if hits != 1 {
		t.Fatalf("expected 1 request, got %d", hits)
	}
}
