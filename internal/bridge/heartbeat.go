package bridge

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/priority-living/pl/internal/models"
	"github.com/priority-living/pl/internal/telemetry"
	"github.com/priority-living/pl/pkg/api"
)

// HeartbeatInterval is the telemetry cadence. It is checked once per poll
// iteration, so actual emission drifts by at most one poll interval.
const HeartbeatInterval = 60 * time.Second

// Heartbeat reports machine telemetry to the status endpoint, independent of
// command traffic. Emission is best-effort and never affects loop control.
type Heartbeat struct {
	client    *Client
	machine   string
	version   string
	modelsDir string
	probe     GPUProbe
	interval  time.Duration
	start     time.Time
	last      time.Time
}

// NewHeartbeat creates a reporter with the standard 60s cadence.
func NewHeartbeat(client *Client, machine, version, modelsDir string, probe GPUProbe) *Heartbeat {
	if probe == nil {
		probe = NewGPUProbe()
	}
	return &Heartbeat{
		client:    client,
		machine:   machine,
		version:   version,
		modelsDir: modelsDir,
		probe:     probe,
		interval:  HeartbeatInterval,
		start:     time.Now(),
	}
}

// MaybeEmit sends a heartbeat when the cadence interval has elapsed since the
// last attempt. The timestamp advances on every attempt, success or not.
func (h *Heartbeat) MaybeEmit() {
	if !h.last.IsZero() && time.Since(h.last) < h.interval {
		return
	}
	h.last = time.Now()
	h.Emit()
}

// Emit gathers a fresh snapshot and posts it.
func (h *Heartbeat) Emit() {
	h.client.BestEffort("bridge-status", h.Snapshot())
	telemetry.Add("bridge_heartbeats", 1)
}

// Snapshot collects point-in-time machine facts. Each probe is best-effort;
// missing facts are simply omitted.
func (h *Heartbeat) Snapshot() api.StatusRequest {
	snap := api.StatusRequest{
		MachineName:     h.machine,
		AgentVersion:    h.version,
		GoVersion:       runtime.Version(),
		InstalledModels: models.Installed(h.modelsDir),
		UptimeSeconds:   int64(time.Since(h.start).Seconds()),
		OSInfo:          fmt.Sprintf("%s %s", runtime.GOOS, runtime.GOARCH),
	}
	if gpu := h.probe.Detect(); gpu.Available {
		snap.GPUAvailable = true
		snap.GPUName = gpu.Name
	}
	if info, err := host.Info(); err == nil {
		snap.OSInfo = fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
	}
	if home, err := os.UserHomeDir(); err == nil {
		if usage, err := disk.Usage(home); err == nil {
			snap.DiskFreeGB = math.Round(float64(usage.Free)/(1<<30)*10) / 10
		}
	}
	return snap
}
