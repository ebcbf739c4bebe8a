package bridge

import (
	"bufio"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// MaxOutputChars caps the accumulated output per command.
	MaxOutputChars = 50000
	// ExecTimeout is the wall-clock ceiling for a single command.
	ExecTimeout = 300 * time.Second

	truncationMark = "\n... [output truncated] ..."
)

// Sentinel exit codes. Blocked commands get their own code so the backend can
// tell a policy refusal from an ordinary failing command; timeouts and
// internal launch errors share the conventional -1.
const (
	ExitBlocked  = -2
	ExitTimeout  = -1
	ExitInternal = -1
)

// Result is the final outcome of one command execution.
type Result struct {
	ExitCode  int
	Output    string
	Truncated bool
	TimedOut  bool
}

// Executor runs a command through the shell with merged stderr, incremental
// line reads, an output cap and a wall-clock ceiling.
type Executor struct {
	Timeout   time.Duration
	MaxOutput int
	Dir       string // working directory; the invoking user's home when empty
}

// NewExecutor returns an executor with production limits.
func NewExecutor() *Executor {
	return &Executor{Timeout: ExecTimeout, MaxOutput: MaxOutputChars}
}

// Execute runs command and returns its result. onChunk, when non-nil, is
// invoked for each output line as it is produced, before the process exits.
// Dangerous commands are refused locally without spawning anything.
func (e *Executor) Execute(command string, onChunk func(string)) Result {
	if IsDangerous(command) {
		return Result{ExitCode: ExitBlocked, Output: "command blocked: potentially dangerous operation"}
	}

	dir := e.Dir
	if dir == "" {
		dir, _ = os.UserHomeDir()
	}
	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = dir

	pr, pw, err := os.Pipe()
	if err != nil {
		return Result{ExitCode: ExitInternal, Output: "execution error: " + err.Error()}
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return Result{ExitCode: ExitInternal, Output: "execution error: " + err.Error()}
	}
	pw.Close() // the child owns the write end now
	defer pr.Close()

	var timedOut atomic.Bool
	timer := time.AfterFunc(e.Timeout, func() {
		timedOut.Store(true)
		_ = cmd.Process.Kill()
	})
	defer timer.Stop()

	var buf strings.Builder
	truncated := false
	reader := bufio.NewReader(pr)
	for {
		line, readErr := reader.ReadString('\n')
		if len(line) > 0 {
			if onChunk != nil {
				onChunk(line)
			}
			buf.WriteString(line)
			if buf.Len() > e.MaxOutput {
				buf.WriteString(truncationMark)
				truncated = true
				log.Debug().Int("limit", e.MaxOutput).Msg("output cap reached, killing process")
				_ = cmd.Process.Kill()
				break
			}
		}
		if readErr != nil {
			break
		}
	}

	waitErr := cmd.Wait()
	if timedOut.Load() {
		return Result{ExitCode: ExitTimeout, Output: "command timed out (5 min limit)", TimedOut: true}
	}
	return Result{ExitCode: exitCode(waitErr), Output: buf.String(), Truncated: truncated}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exit *exec.ExitError
	if errors.As(err, &exit) {
		return exit.ExitCode()
	}
	return ExitInternal
}
