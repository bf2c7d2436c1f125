// Package executor runs AI code-modification jobs as supervised
// subprocesses and parses their output streams into lifecycle events.
package executor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/nimishchaudhari/aider-resolver/internal/instruction"
	"github.com/nimishchaudhari/aider-resolver/internal/logging"
)

// GracePeriod is the time to wait after termination is requested before
// hard-killing the subprocess.
const GracePeriod = 5 * time.Second

// DefaultTimeout bounds a job's wall-clock time when the config does not
// override it.
const DefaultTimeout = 30 * time.Minute

// State is the engine's per-job execution state.
type State string

const (
	StateIdle      State = "idle"
	StateSpawning  State = "spawning"
	StateStreaming State = "streaming"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
	StateCancelled State = "cancelled"
)

// terminal reports whether the state is a terminal one.
func (s State) terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateTimedOut, StateCancelled:
		return true
	}
	return false
}

// Config contains executor settings loaded from the config file.
type Config struct {
	// Command is the path to the aider CLI (default: "aider").
	Command string `yaml:"command,omitempty"`

	// ExtraArgs are additional arguments appended to every invocation.
	ExtraArgs []string `yaml:"extra_args,omitempty"`

	// Timeout is the hard wall-clock limit per job (default: "30m").
	Timeout string `yaml:"timeout,omitempty"`

	// AutoCreatePR controls whether a pull request is opened after a
	// successful run with changed files.
	AutoCreatePR bool `yaml:"auto_create_pr"`
}

// DefaultConfig returns default executor configuration.
func DefaultConfig() *Config {
	return &Config{
		Command:      "aider",
		Timeout:      "30m",
		AutoCreatePR: true,
	}
}

// TimeoutDuration parses the configured timeout, falling back to the
// default when unset or unparseable.
func (c *Config) TimeoutDuration() time.Duration {
	if c == nil || c.Timeout == "" {
		return DefaultTimeout
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// Job binds one instruction to a selected model and working directory.
// It exists only for the duration of one Execute call.
type Job struct {
	ID          string
	Instruction *instruction.Instruction
	Model       *ModelDescriptor

	// WorkDir is a checkout already on a fresh branch, prepared by the
	// caller. The engine never touches the worktree itself.
	WorkDir string
}

// Result is the immutable outcome of one job. One Result is produced for
// every job that passes the cost gate, synthetic on hard failure.
type Result struct {
	Success        bool
	FinalState     State
	ChangedFiles   []string
	CommitID       string
	ErrorMessage   string
	RawOutput      string
	CostUsed       float64
	ModelUsed      string
	ElapsedSeconds float64
}

// Engine supervises one subprocess job at a time.
type Engine struct {
	cfg *Config

	// env holds credential variables (API keys) appended to the
	// subprocess environment. Never logged.
	env []string

	log *slog.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
}

// NewEngine creates an execution engine. credentials are KEY=VALUE pairs
// passed to the subprocess environment.
func NewEngine(cfg *Config, credentials []string) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Command == "" {
		cfg.Command = "aider"
	}
	return &Engine{
		cfg:   cfg,
		env:   credentials,
		state: StateIdle,
		log:   logging.WithComponent("executor"),
	}
}

// State returns the engine's current job state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// setState transitions the job state. Terminal transitions are one-shot:
// once a terminal state is reached, later transitions are ignored so the
// loser of the timeout/exit race has no effect.
func (e *Engine) setState(s State) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.terminal() {
		return false
	}
	e.state = s
	return true
}

// Cancel terminates the running subprocess. Safe to call at any time
// between spawn and exit; callers must treat a cancelled job the same as
// a failed one for cost and reporting purposes.
func (e *Engine) Cancel() {
	e.mu.Lock()
	cancel := e.cancel
	wasRunning := e.state == StateSpawning || e.state == StateStreaming
	if wasRunning {
		e.state = StateCancelled
	}
	e.mu.Unlock()

	if wasRunning && cancel != nil {
		e.log.Info("Job cancellation requested")
		cancel()
	}
}

// buildArgs assembles the aider command line from the instruction and
// selected model. Credentials travel via the environment, never argv.
func (e *Engine) buildArgs(job *Job) []string {
	args := []string{
		"--message", job.Instruction.Text,
		"--model", job.Model.Name,
		"--yes-always",
		"--no-stream",
	}
	args = append(args, e.cfg.ExtraArgs...)
	args = append(args, job.Instruction.Files...)
	return args
}

// Execute runs one job to completion. Progress events are delivered to
// the events channel with non-blocking sends so a slow consumer can never
// stall the subprocess output pipe; when the channel is full, events are
// dropped rather than buffered.
//
// A non-nil Result is always returned. Spawn failures produce a synthetic
// failure result with zero cost; timeouts and cancellations retain any
// partial output for diagnostics.
func (e *Engine) Execute(ctx context.Context, job *Job, events chan<- ProgressEvent) *Result {
	start := time.Now()
	timeout := e.cfg.TimeoutDuration()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	e.mu.Lock()
	e.state = StateSpawning
	e.cancel = cancel
	e.mu.Unlock()

	e.emit(events, ProgressEvent{Step: StepSetup, Status: StatusInProgress, Message: "starting " + e.cfg.Command})

	cmd := exec.CommandContext(runCtx, e.cfg.Command, e.buildArgs(job)...)
	cmd.Dir = job.WorkDir
	cmd.Env = append(os.Environ(), e.env...)

	e.log.Info("Spawning backend",
		slog.String("job_id", job.ID),
		slog.String("command", e.cfg.Command),
		slog.String("model", job.Model.Name),
		slog.Duration("timeout", timeout),
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return e.spawnFailure(job, start, fmt.Sprintf("create stdout pipe: %v", err), events)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return e.spawnFailure(job, start, fmt.Sprintf("create stderr pipe: %v", err), events)
	}

	if err := cmd.Start(); err != nil {
		return e.spawnFailure(job, start, fmt.Sprintf("start %s: %v", e.cfg.Command, err), events)
	}
	e.setState(StateStreaming)
	e.log.Debug("Backend started", slog.Int("pid", cmd.Process.Pid))

	var output strings.Builder
	var outputMu sync.Mutex
	var wg sync.WaitGroup

	cmdDone := make(chan struct{})

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()

			outputMu.Lock()
			output.WriteString(line)
			output.WriteByte('\n')
			outputMu.Unlock()

			if ev, ok := matchLine(line); ok {
				e.emit(events, ev)
			}
		}
		// An over-long line aborts the scan. Keep what was parsed so far
		// and drain the rest so the subprocess never blocks on a full pipe.
		if err := scanner.Err(); err != nil {
			e.log.Warn("Output scan aborted",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()))
			_, _ = io.Copy(io.Discard, r)
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	// Hard-kill monitor: when the context fires (timeout or Cancel) the
	// process gets GracePeriod to exit before SIGKILL.
	go func() {
		select {
		case <-cmdDone:
		case <-runCtx.Done():
			select {
			case <-cmdDone:
			case <-time.After(GracePeriod):
				if cmd.Process != nil {
					e.log.Warn("Grace period expired, killing subprocess",
						slog.Int("pid", cmd.Process.Pid))
					_ = cmd.Process.Kill()
				}
			}
		}
	}()

	wg.Wait()
	waitErr := cmd.Wait()
	close(cmdDone)

	outputMu.Lock()
	raw := output.String()
	outputMu.Unlock()

	elapsed := time.Since(start)
	result := &Result{
		RawOutput:      raw,
		ModelUsed:      job.Model.Name,
		CostUsed:       approximateCost(len(raw), job.Model),
		ElapsedSeconds: elapsed.Seconds(),
	}

	switch {
	case e.State() == StateCancelled:
		result.FinalState = StateCancelled
		result.ErrorMessage = "execution cancelled"
		e.emit(events, ProgressEvent{Step: StepFinalize, Status: StatusFailed, Message: result.ErrorMessage})

	case runCtx.Err() == context.DeadlineExceeded:
		e.setState(StateTimedOut)
		result.FinalState = StateTimedOut
		result.ErrorMessage = fmt.Sprintf("execution timed out after %s", timeout)
		e.emit(events, ProgressEvent{Step: StepFinalize, Status: StatusFailed, Message: result.ErrorMessage})

	case waitErr != nil:
		e.setState(StateFailed)
		result.FinalState = StateFailed
		result.ErrorMessage = fmt.Sprintf("backend exited with error: %v", waitErr)
		e.emit(events, ProgressEvent{Step: StepFinalize, Status: StatusFailed, Message: result.ErrorMessage})

	default:
		e.setState(StateCompleted)
		result.Success = true
		result.FinalState = StateCompleted
		e.emit(events, ProgressEvent{Step: StepFinalize, Status: StatusCompleted, Message: "execution finished"})
	}

	// Partial output is scanned even on failure so diagnostics include
	// whatever the backend managed to report.
	result.ChangedFiles = scanChangedFiles(raw)
	result.CommitID = scanCommitID(raw)

	e.log.Info("Job finished",
		slog.String("job_id", job.ID),
		slog.String("state", string(result.FinalState)),
		slog.Int("changed_files", len(result.ChangedFiles)),
		slog.Float64("cost_used", result.CostUsed),
		slog.Duration("elapsed", elapsed.Round(time.Millisecond)),
	)

	return result
}

// spawnFailure produces the synthetic zero-cost result for jobs whose
// subprocess never started.
func (e *Engine) spawnFailure(job *Job, start time.Time, msg string, events chan<- ProgressEvent) *Result {
	e.setState(StateFailed)
	e.log.Error("Backend spawn failed", slog.String("job_id", job.ID), slog.String("error", msg))
	e.emit(events, ProgressEvent{Step: StepSetup, Status: StatusFailed, Message: msg})
	return &Result{
		FinalState:     StateFailed,
		ErrorMessage:   msg,
		ModelUsed:      job.Model.Name,
		ElapsedSeconds: time.Since(start).Seconds(),
	}
}

// emit performs a non-blocking send. Rendering must never stall stream
// consumption, so a full channel drops the event instead of waiting.
func (e *Engine) emit(events chan<- ProgressEvent, ev ProgressEvent) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	default:
		e.log.Debug("Progress event dropped", slog.String("step", ev.Step))
	}
}

// approximateCost estimates spend from output volume: roughly four bytes
// per token against the model's per-kilotoken price. A coarse proxy for
// actual billing, reconciled into the ledger as-is.
func approximateCost(outputBytes int, model *ModelDescriptor) float64 {
	if model == nil || model.CostPerKiloTokens <= 0 {
		return 0
	}
	tokens := float64(outputBytes) / 4
	return tokens / 1000 * model.CostPerKiloTokens
}
