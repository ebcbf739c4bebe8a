package bridge

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestHeartbeatCadence(t *testing.T) {
	var statuses atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/bridge-status") {
			statuses.Add(1)
		}
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	hb := NewHeartbeat(NewClient(srv.URL, "pb_test", "anon"), "m1", "test", "", NopProbe{})
	hb.interval = 50 * time.Millisecond

	hb.MaybeEmit()
	if n := statuses.Load(); n != 1 {
		t.Fatalf("expected first call to emit, got %d", n)
	}

	hb.MaybeEmit()
	if n := statuses.Load(); n != 1 {
		t.Fatalf("expected no emission before the interval elapses, got %d", n)
	}

	time.Sleep(60 * time.Millisecond)
	hb.MaybeEmit()
	if n := statuses.Load(); n != 2 {
		t.Fatalf("expected emission after the interval, got %d", n)
	}
}

func TestHeartbeatSnapshot(t *testing.T) {
	hb := NewHeartbeat(NewClient("http://localhost:1", "pb_test", "anon"), "m1", "1.2.3", t.TempDir(), NopProbe{})
	snap := hb.Snapshot()
	if snap.MachineName != "m1" {
		t.Errorf("machine %q", snap.MachineName)
	}
	if snap.AgentVersion != "1.2.3" {
		t.Errorf("version %q", snap.AgentVersion)
	}
	if !strings.HasPrefix(snap.GoVersion, "go") {
		t.Errorf("go version %q", snap.GoVersion)
	}
	if snap.GPUAvailable {
		t.Error("nop probe must report no GPU")
	}
	if snap.UptimeSeconds < 0 {
		t.Errorf("uptime %d", snap.UptimeSeconds)
	}
	if snap.OSInfo == "" {
		t.Error("expected OS info")
	}
}
