package diag

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/priority-living/pl/internal/config"
)

func TestStatusUnconfigured(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{MachineName: "box-1", ModelsDir: t.TempDir()}
	Status(&buf, cfg, "test")

	out := buf.String()
	if !strings.Contains(out, "pl test") {
		t.Errorf("missing version line:\n%s", out)
	}
	if !strings.Contains(out, "box-1") {
		t.Errorf("missing machine name:\n%s", out)
	}
	if !strings.Contains(out, "not configured") {
		t.Errorf("missing bridge state:\n%s", out)
	}
}

func TestDiagnoseFlagsMissingConfiguration(t *testing.T) {
	var buf bytes.Buffer
	issues := Diagnose(&buf, config.Config{ModelsDir: t.TempDir()})
	if issues < 2 {
		t.Fatalf("expected key and backend failures, got %d issues:\n%s", issues, buf.String())
	}
	if !strings.Contains(buf.String(), "FAIL") {
		t.Errorf("missing FAIL lines:\n%s", buf.String())
	}
}

func TestDiagnoseRejectsBadKeyPrefix(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{BridgeKey: "wrong_abc", BackendURL: "http://localhost:1", ModelsDir: t.TempDir()}
	Diagnose(&buf, cfg)
	if !strings.Contains(buf.String(), "invalid bridge key format") {
		t.Errorf("missing key format failure:\n%s", buf.String())
	}
}

func TestDiagnoseHealthyBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	cfg := config.Config{BridgeKey: "pb_test", BackendURL: srv.URL, ModelsDir: t.TempDir()}
	Diagnose(&buf, cfg)
	if !strings.Contains(buf.String(), "backend reachable") {
		t.Errorf("missing backend pass:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "bridge key configured") {
		t.Errorf("missing key pass:\n%s", buf.String())
	}
}
