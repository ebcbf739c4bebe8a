package bridge

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/priority-living/pl/pkg/api"
)

func TestListAgents(t *testing.T) {
	var gotAction string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req api.AgentsRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotAction = req.Action
		json.NewEncoder(w).Encode(api.AgentsResponse{Agents: []api.Agent{
			{ID: "0bdcba63-1f00", Name: "scheduler", AgentType: "cron", Status: "active"},
			{ID: "7aa1fe20-9c41", Name: "notifier", AgentType: "webhook", Status: "idle"},
		}})
	}))
	defer srv.Close()

	agents, ok := ListAgents(NewClient(srv.URL, "pb_test", "anon"))
	if !ok {
		t.Fatal("expected roster fetch to succeed")
	}
	if gotAction != "list_agents" {
		t.Fatalf("action %q", gotAction)
	}
	if len(agents) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(agents))
	}
	if agents[0].Name != "scheduler" || agents[0].Status != "active" {
		t.Errorf("agent %+v", agents[0])
	}
	if agents[1].AgentType != "webhook" {
		t.Errorf("agent %+v", agents[1])
	}
}

func TestListAgentsEmptyRoster(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.AgentsResponse{})
	}))
	defer srv.Close()

	agents, ok := ListAgents(NewClient(srv.URL, "pb_test", "anon"))
	if !ok {
		t.Fatal("empty roster is still a success")
	}
	if len(agents) != 0 {
		t.Fatalf("expected no agents, got %v", agents)
	}
}

func TestListAgentsBackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	if _, ok := ListAgents(NewClient(srv.URL, "pb_bad", "anon")); ok {
		t.Fatal("expected roster fetch to fail on 401")
	}
}
