package bridge

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/priority-living/pl/internal/telemetry"
	"github.com/priority-living/pl/pkg/api"
)

// KeyPrefix is the required bridge key prefix. Keys that do not match are a
// startup-fatal condition; nothing is attempted with a malformed key.
const KeyPrefix = "pb_"

const (
	fatalRestartDelay = 10 * time.Second
	loopErrorPause    = 5 * time.Second
	commandPreviewLen = 80
)

// capabilities is the fixed advertisement sent with every poll.
var capabilities = []string{"execute", "file_transfer", "stream"}

// Journal records executed commands for offline inspection. Failures are
// logged and never affect the loop.
type Journal interface {
	Record(commandID, command string, exitCode int, duration time.Duration, outputBytes int, truncated bool) error
}

// Options configures a Worker.
type Options struct {
	MachineName       string
	BridgeKey         string
	BackendURL        string
	AnonKey           string
	PollInterval      time.Duration
	HeartbeatInterval time.Duration // zero means the standard 60s cadence
	AutoRestart       bool
	Version           string
	ModelsDir         string
	Journal           Journal
	Probe             GPUProbe
}

// Worker is the poll/execute/report loop. It owns the session identity and
// runs exactly one command at a time; polling, execution and streaming are
// strictly interleaved on a single logical thread.
type Worker struct {
	opts      Options
	client    *Client
	exec      *Executor
	heartbeat *Heartbeat
	stream    *StreamReporter
	errs      *ErrorReporter
	backoff   *Backoff
	sessionID string
	running   atomic.Bool
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// New validates the options and wires up a worker. A missing or malformed
// bridge key and a non-positive poll interval are startup-fatal.
func New(opts Options) (*Worker, error) {
	if !strings.HasPrefix(opts.BridgeKey, KeyPrefix) {
		return nil, fmt.Errorf("invalid bridge key: must start with %q", KeyPrefix)
	}
	if opts.BackendURL == "" {
		return nil, fmt.Errorf("backend URL is required")
	}
	if opts.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %v", opts.PollInterval)
	}
	if opts.MachineName == "" {
		if host, err := os.Hostname(); err == nil && host != "" {
			opts.MachineName = host
		} else {
			opts.MachineName = "unknown"
		}
	}

	client := NewClient(opts.BackendURL, opts.BridgeKey, opts.AnonKey)
	hb := NewHeartbeat(client, opts.MachineName, opts.Version, opts.ModelsDir, opts.Probe)
	if opts.HeartbeatInterval > 0 {
		hb.interval = opts.HeartbeatInterval
	}

	w := &Worker{
		opts:      opts,
		client:    client,
		exec:      NewExecutor(),
		heartbeat: hb,
		stream:    NewStreamReporter(client, opts.MachineName),
		errs:      NewErrorReporter(client, opts.MachineName, opts.Version),
		backoff:   NewBackoff(),
		stopCh:    make(chan struct{}),
	}
	w.running.Store(true)
	return w, nil
}

// Stop requests a graceful shutdown. The loop performs no new poll; any
// in-flight command completes and its result is reported before exit.
func (w *Worker) Stop() {
	w.running.Store(false)
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// SessionID returns the backend-assigned session token, empty until the
// first successful poll.
func (w *Worker) SessionID() string { return w.sessionID }

// Serve runs the poll loop until shutdown. Iteration-level errors are
// absorbed inside the loop with a short pause; only a fatal escape of the
// loop itself triggers a relaunch here, after a fixed delay, and only when
// auto-restart is enabled.
func (w *Worker) Serve() {
	log.Info().
		Str("backend", w.opts.BackendURL).
		Str("machine", w.opts.MachineName).
		Dur("poll_interval", w.opts.PollInterval).
		Bool("auto_restart", w.opts.AutoRestart).
		Msg("bridge worker starting")

	for w.running.Load() {
		if !w.runLoop() {
			break // only a shutdown request exits the loop non-fatally
		}
		if !w.running.Load() || !w.opts.AutoRestart {
			break
		}
		log.Warn().Dur("delay", fatalRestartDelay).Msg("restarting poll loop")
		w.sleep(fatalRestartDelay)
	}
	log.Info().Msg("worker stopped")
	telemetry.LogSummary()
}

// runLoop drives iterations until shutdown. A panic escaping iteration-level
// recovery is reported and surfaces as a fatal loop exit.
func (w *Worker) runLoop() (fatal bool) {
	defer func() {
		if r := recover(); r != nil {
			fatal = true
			err := fmt.Errorf("fatal loop error: %v", r)
			log.Error().Err(err).Msg("poll loop died")
			w.errs.Report(err)
		}
	}()
	for w.running.Load() {
		w.iterate()
	}
	return false
}

// iterate is one poll cycle: heartbeat cadence check, poll, optional command
// execution with streaming, final result report, inter-iteration sleep.
// Anything unexpected is reported and followed by a short pause; the loop is
// designed to survive indefinitely absent operator shutdown.
func (w *Worker) iterate() {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("loop error: %v", r)
			log.Warn().Err(err).Msg("loop iteration failed")
			w.errs.Report(err)
			w.sleep(loopErrorPause)
		}
	}()

	w.heartbeat.MaybeEmit()

	telemetry.Add("bridge_polls", 1)
	req := api.PollRequest{MachineName: w.opts.MachineName, Capabilities: capabilities}
	if w.sessionID != "" {
		sid := w.sessionID
		req.SessionID = &sid
	}
	var resp api.PollResponse
	if !w.client.Call("bridge-poll", req, &resp) {
		telemetry.Add("bridge_poll_failures", 1)
		delay := w.backoff.Failure()
		if w.backoff.Failures() > backoffThreshold {
			log.Warn().Dur("delay", delay).Int("consecutive_failures", w.backoff.Failures()).Msg("backing off")
		}
		w.sleep(delay)
		return
	}
	w.backoff.Success()

	if resp.SessionID != "" {
		w.sessionID = resp.SessionID
	}
	if resp.Command != "" && resp.CommandID != "" {
		w.handleCommand(resp.CommandID, resp.Command)
	}
	w.sleep(w.opts.PollInterval)
}

// handleCommand executes one backend-assigned command, streams its output
// and reports the final result unconditionally, blocked and timed-out
// outcomes included.
func (w *Worker) handleCommand(id, command string) {
	preview := command
	if len(preview) > commandPreviewLen {
		preview = preview[:commandPreviewLen] + "..."
	}
	log.Info().Str("command_id", id).Str("command", preview).Msg("received command")
	telemetry.Add("bridge_commands", 1)

	start := time.Now()
	res := w.exec.Execute(command, func(line string) {
		w.stream.Chunk(id, line)
	})
	elapsed := time.Since(start)

	switch {
	case res.ExitCode == ExitBlocked:
		telemetry.Add("bridge_commands_blocked", 1)
	case res.TimedOut:
		telemetry.Add("bridge_commands_timeout", 1)
	case res.ExitCode != 0:
		telemetry.Add("bridge_commands_failed", 1)
	}

	cmdID := id
	w.client.Call("bridge-result", api.ResultRequest{
		CommandID:   &cmdID,
		ExitCode:    res.ExitCode,
		Output:      res.Output,
		MachineName: w.opts.MachineName,
	}, nil)
	log.Info().Str("command_id", id).Int("exit_code", res.ExitCode).Dur("duration", elapsed).Msg("command finished")

	if w.opts.Journal != nil {
		if err := w.opts.Journal.Record(id, command, res.ExitCode, elapsed, len(res.Output), res.Truncated); err != nil {
			log.Warn().Err(err).Msg("journal record failed")
		}
	}
}

// sleep waits for d or until shutdown is requested, whichever comes first.
func (w *Worker) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-w.stopCh:
	}
}
