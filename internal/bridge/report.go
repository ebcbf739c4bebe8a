package bridge

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/priority-living/pl/internal/telemetry"
	"github.com/priority-living/pl/pkg/api"
)

// StreamReporter forwards partial output chunks to the backend. Streaming is
// advisory; the authoritative outcome is the final result report, so every
// failure here is silently absorbed.
type StreamReporter struct {
	client  *Client
	machine string
}

// NewStreamReporter creates a reporter for the given machine identity.
func NewStreamReporter(client *Client, machine string) *StreamReporter {
	return &StreamReporter{client: client, machine: machine}
}

// Chunk sends one output chunk for a command.
func (s *StreamReporter) Chunk(commandID, chunk string) {
	s.client.BestEffort("bridge-stream", api.StreamRequest{
		CommandID:   commandID,
		Chunk:       chunk,
		MachineName: s.machine,
	})
	telemetry.Add("bridge_stream_chunks", 1)
}

// ErrorReporter ships unexpected agent failures to the backend for offline
// diagnosis, via the result endpoint with a null command id and a negative
// exit code. Best-effort: a failed report is itself swallowed.
type ErrorReporter struct {
	client  *Client
	machine string
	version string
}

// NewErrorReporter creates a reporter with agent identity metadata.
func NewErrorReporter(client *Client, machine, version string) *ErrorReporter {
	return &ErrorReporter{client: client, machine: machine, version: version}
}

// Report serializes the error with a captured stack trace and sends it.
func (r *ErrorReporter) Report(err error) {
	if r == nil || err == nil {
		return
	}
	hostname, _ := os.Hostname()
	detail, encodeErr := json.Marshal(map[string]string{
		"error_type":    fmt.Sprintf("%T", err),
		"error_message": err.Error(),
		"stack":         string(debug.Stack()),
		"agent_version": r.version,
		"go_version":    runtime.Version(),
		"os":            fmt.Sprintf("%s %s", runtime.GOOS, runtime.GOARCH),
		"machine":       hostname,
	})
	if encodeErr != nil {
		return
	}
	r.client.BestEffort("bridge-result", api.ResultRequest{
		CommandID:   nil,
		ExitCode:    ExitInternal,
		Output:      string(detail),
		MachineName: r.machine,
	})
}
