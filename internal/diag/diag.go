// Package diag renders the operator-facing status card and the deep
// diagnostic scan.
package diag

import (
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/priority-living/pl/internal/bridge"
	"github.com/priority-living/pl/internal/config"
	"github.com/priority-living/pl/internal/models"
	"github.com/priority-living/pl/pkg/api"
)

// Status prints a one-screen summary of the machine and bridge state.
func Status(w io.Writer, cfg config.Config, version string) {
	fmt.Fprintf(w, "pl %s\n", version)
	machine := cfg.MachineName
	if machine == "" {
		machine, _ = os.Hostname()
	}
	fmt.Fprintf(w, "  machine:  %s\n", machine)
	fmt.Fprintf(w, "  go:       %s\n", runtime.Version())
	fmt.Fprintf(w, "  os:       %s\n", osInfo())
	fmt.Fprintf(w, "  disk:     %.1f GB free\n", diskFreeGB())

	gpu := bridge.NewGPUProbe().Detect()
	if gpu.Available {
		fmt.Fprintf(w, "  gpu:      %s\n", gpu.Name)
	} else {
		fmt.Fprintf(w, "  gpu:      none (CPU only)\n")
	}

	if cfg.BridgeKey == "" {
		fmt.Fprintf(w, "  bridge:   not configured\n")
	} else {
		fmt.Fprintf(w, "  bridge:   %s\n", checkBridge(cfg))
	}
	fmt.Fprintf(w, "  models:   %d installed\n", len(models.Installed(cfg.ModelsDir)))
}

// Diagnose runs the deep checks and returns the number of fatal issues.
func Diagnose(w io.Writer, cfg config.Config) int {
	var issues []string
	pass := func(format string, args ...any) { fmt.Fprintf(w, "  ok    "+format+"\n", args...) }
	note := func(format string, args ...any) { fmt.Fprintf(w, "  note  "+format+"\n", args...) }
	fail := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		issues = append(issues, msg)
		fmt.Fprintf(w, "  FAIL  %s\n", msg)
	}

	pass("go %s on %s/%s", strings.TrimPrefix(runtime.Version(), "go"), runtime.GOOS, runtime.GOARCH)

	if gpu := bridge.NewGPUProbe().Detect(); gpu.Available {
		pass("gpu: %s", gpu.Name)
	} else {
		note("no GPU detected (CPU-only inference)")
	}

	switch {
	case cfg.BridgeKey == "":
		fail("no bridge key configured; run: pl config set bridge_key %sxxx", bridge.KeyPrefix)
	case !strings.HasPrefix(cfg.BridgeKey, bridge.KeyPrefix):
		fail("invalid bridge key format; must start with %q", bridge.KeyPrefix)
	default:
		pass("bridge key configured")
	}

	if cfg.BackendURL == "" {
		fail("no backend URL configured")
	} else if status := checkBridge(cfg); strings.HasPrefix(status, "connected") {
		pass("backend reachable")
	} else {
		fail("backend check failed: %s", status)
	}

	if free := diskFreeGB(); free < 1 {
		fail("less than 1 GB of disk free")
	} else {
		pass("%.1f GB disk free", free)
	}

	if names := models.Installed(cfg.ModelsDir); names != nil {
		pass("models directory: %d models", len(names))
	} else {
		note("models directory not created yet")
	}

	fmt.Fprintln(w)
	if len(issues) > 0 {
		fmt.Fprintf(w, "%d issue(s) found:\n", len(issues))
		for _, issue := range issues {
			fmt.Fprintf(w, "  - %s\n", issue)
		}
	} else {
		fmt.Fprintln(w, "all checks passed")
	}
	return len(issues)
}

// checkBridge makes one authenticated poll with a throwaway machine name so
// it cannot dequeue work assigned to this machine.
func checkBridge(cfg config.Config) string {
	client := bridge.NewClient(cfg.BackendURL, cfg.BridgeKey, cfg.AnonKey)
	start := time.Now()
	if client.Call("bridge-poll", api.PollRequest{MachineName: "diag-check"}, nil) {
		return fmt.Sprintf("connected (%dms)", time.Since(start).Milliseconds())
	}
	return "unreachable or rejected"
}

func osInfo() string {
	if info, err := host.Info(); err == nil {
		return fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
	}
	return fmt.Sprintf("%s %s", runtime.GOOS, runtime.GOARCH)
}

func diskFreeGB() float64 {
	home, err := os.UserHomeDir()
	if err != nil {
		return 0
	}
	usage, err := disk.Usage(home)
	if err != nil {
		return 0
	}
	return math.Round(float64(usage.Free)/(1<<30)*10) / 10
}
