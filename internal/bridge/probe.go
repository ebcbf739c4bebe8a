package bridge

import (
	"os/exec"
	"runtime"
	"strings"
)

// GPUInfo is the structured result of a capability probe.
type GPUInfo struct {
	Available bool
	Name      string
}

// GPUProbe detects optional accelerated-compute capability. Detection is
// best-effort; implementations never fail, they report absence.
type GPUProbe interface {
	Detect() GPUInfo
}

// NewGPUProbe returns the system probe: nvidia-smi when present on PATH,
// Apple silicon via runtime facts, otherwise absent.
func NewGPUProbe() GPUProbe { return systemProbe{} }

type systemProbe struct{}

func (systemProbe) Detect() GPUInfo {
	if path, err := exec.LookPath("nvidia-smi"); err == nil {
		out, err := exec.Command(path, "--query-gpu=name", "--format=csv,noheader").Output()
		if err == nil {
			if name, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n"); name != "" {
				return GPUInfo{Available: true, Name: name}
			}
		}
		return GPUInfo{Available: true, Name: "NVIDIA GPU"}
	}
	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		return GPUInfo{Available: true, Name: "Apple Silicon"}
	}
	return GPUInfo{}
}

// NopProbe always reports no GPU. Used when probing is disabled and in tests.
type NopProbe struct{}

func (NopProbe) Detect() GPUInfo { return GPUInfo{} }
