package api

// v0 contains the public wire types for the bridge protocol. All calls are
// POSTs with JSON bodies to named endpoints under /functions/v1/.

// PollRequest asks the backend for work and keeps the session alive.
// SessionID is nil until the backend assigns one on the first poll.
type PollRequest struct {
	MachineName  string   `json:"machine_name"`
	SessionID    *string  `json:"session_id"`
	Capabilities []string `json:"capabilities"`
}

// PollResponse carries an optional command assignment. Command and CommandID
// are both empty when the backend has no work for this machine.
type PollResponse struct {
	SessionID string `json:"session_id"`
	Command   string `json:"command"`
	CommandID string `json:"command_id"`
}

// StreamRequest forwards one chunk of partial command output.
type StreamRequest struct {
	CommandID   string `json:"command_id"`
	Chunk       string `json:"chunk"`
	MachineName string `json:"machine_name"`
}

// ResultRequest reports a final command outcome. CommandID is nil for
// agent self-reported errors, which also carry a negative exit code.
type ResultRequest struct {
	CommandID   *string `json:"command_id"`
	ExitCode    int     `json:"exit_code"`
	Output      string  `json:"output"`
	MachineName string  `json:"machine_name"`
}

// AgentsRequest asks the poll endpoint for the agent roster instead of work.
// The backend multiplexes roster queries over bridge-poll via the action field.
type AgentsRequest struct {
	Action string `json:"action"`
}

// Agent is one backend-registered agent bound to a bridge key.
type Agent struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AgentType string `json:"agent_type"`
	Status    string `json:"status"`
}

// AgentsResponse carries the roster for the caller's bridge key.
type AgentsResponse struct {
	Agents []Agent `json:"agents"`
}

// StatusRequest is the heartbeat telemetry payload.
type StatusRequest struct {
	MachineName     string   `json:"machine_name"`
	AgentVersion    string   `json:"agent_version"`
	GPUAvailable    bool     `json:"gpu_available"`
	GPUName         string   `json:"gpu_name,omitempty"`
	GoVersion       string   `json:"go_version"`
	InstalledModels []string `json:"installed_models"`
	UptimeSeconds   int64    `json:"uptime_seconds"`
	OSInfo          string   `json:"os_info"`
	DiskFreeGB      float64  `json:"disk_free_gb"`
}
