// Package core manages the ced-core backend process: spawning it with
// piped standard streams, tracking its exit, and tearing it down.
package core

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/cedar/internal/logging"
)

const (
	// EnvBinPath names the environment variable overriding the backend
	// executable path.
	EnvBinPath = "CED_BIN_PATH"
	// DefaultBin is the backend executable resolved on PATH when
	// nothing overrides it.
	DefaultBin = "ced-core"
)

// ResolvePath picks the backend executable: the explicit path when
// given, then CED_BIN_PATH, then the default.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvBinPath); env != "" {
		return env
	}
	return DefaultBin
}

// State represents the backend process state.
type State int

const (
	// StateCreated indicates the process has not been started yet.
	StateCreated State = iota
	// StateRunning indicates the process is running.
	StateRunning
	// StateExited indicates the process exited on its own.
	StateExited
	// StateKilled indicates the process was ended by a signal.
	StateKilled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Backend is the ced-core child process. It reads newline-delimited
// request frames on stdin and writes response frames on stdout;
// closing its stdin tells it to exit.
type Backend struct {
	// ID uniquely identifies this backend instance in logs and
	// telemetry.
	ID string

	// Path is the executable to run.
	Path string

	// Args is extra argv passed to the executable.
	Args []string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	started   time.Time
	done      chan struct{}
	state     atomic.Int32
	exitCode  atomic.Int32
	exitErr   error
	mu        sync.RWMutex
	waitOnce  sync.Once
	stdinOnce sync.Once
	stdinErr  error

	log *logging.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the backend's logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Backend) {
		b.log = l
	}
}

// New creates a backend for the given executable. Nothing runs until
// Start.
func New(path string, args []string, opts ...Option) *Backend {
	b := &Backend{
		ID:   uuid.New().String(),
		Path: path,
		Args: args,
		done: make(chan struct{}),
		log:  logging.Null,
	}
	b.state.Store(int32(StateCreated))
	b.exitCode.Store(-1)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start launches the process with all three standard streams piped.
// Pipes already created are closed again if a later step fails.
func (b *Backend) Start() error {
	if b.State() != StateCreated {
		return ErrAlreadyStarted
	}

	cmd := exec.Command(b.Path, b.Args...)

	var created []io.Closer
	cleanup := func() {
		for _, c := range created {
			_ = c.Close()
		}
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	created = append(created, stdin)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cleanup()
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	created = append(created, stdout)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		cleanup()
		return fmt.Errorf("create stderr pipe: %w", err)
	}
	created = append(created, stderr)

	if err := cmd.Start(); err != nil {
		cleanup()
		return fmt.Errorf("start %s: %w", b.Path, err)
	}

	b.cmd = cmd
	b.stdin = stdin
	b.stdout = stdout
	b.stderr = stderr
	b.started = time.Now()
	b.state.Store(int32(StateRunning))

	b.log.Info("backend started (pid %d)", cmd.Process.Pid)

	go b.waitLoop()

	return nil
}

// waitLoop waits for the process to exit and records the outcome.
func (b *Backend) waitLoop() {
	b.waitOnce.Do(func() {
		err := b.cmd.Wait()

		b.mu.Lock()
		b.exitErr = err
		b.mu.Unlock()

		exitCode := 0
		state := StateExited

		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
				if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
					state = StateKilled
				}
			} else {
				exitCode = -1
			}
		}

		b.exitCode.Store(int32(exitCode))
		b.state.Store(int32(state))
		close(b.done)
	})
}

// Stdin returns the backend's request stream.
func (b *Backend) Stdin() io.Writer {
	return b.stdin
}

// Stdout returns the backend's response stream.
func (b *Backend) Stdout() io.Reader {
	return b.stdout
}

// CloseInput closes the backend's stdin, signaling it to finish its
// remaining input and exit. Safe to call more than once.
func (b *Backend) CloseInput() error {
	b.stdinOnce.Do(func() {
		if b.stdin != nil {
			b.stdinErr = b.stdin.Close()
		}
	})
	return b.stdinErr
}

// DrainStderr starts a goroutine forwarding the backend's stderr lines
// to the logger until the stream closes.
func (b *Backend) DrainStderr() {
	if b.stderr == nil {
		return
	}
	log := b.log.WithComponent("ced-core")
	go func() {
		scanner := bufio.NewScanner(b.stderr)
		for scanner.Scan() {
			log.Warn("%s", scanner.Text())
		}
	}()
}

// Done returns a channel closed when the process exits.
func (b *Backend) Done() <-chan struct{} {
	return b.done
}

// State returns the current process state.
func (b *Backend) State() State {
	return State(b.state.Load())
}

// IsRunning returns true while the process is running.
func (b *Backend) IsRunning() bool {
	return b.State() == StateRunning
}

// ExitCode returns the exit code, or -1 before the process exits.
func (b *Backend) ExitCode() int {
	return int(b.exitCode.Load())
}

// ExitError returns any error from waiting on the process.
func (b *Backend) ExitError() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.exitErr
}

// PID returns the process id, or -1 before Start.
func (b *Backend) PID() int {
	if b.cmd == nil || b.cmd.Process == nil {
		return -1
	}
	return b.cmd.Process.Pid
}

// Signal sends a signal to the running process.
func (b *Backend) Signal(sig os.Signal) error {
	if !b.IsRunning() {
		return ErrNotStarted
	}
	return b.cmd.Process.Signal(sig)
}

// Shutdown ends the process: SIGTERM first, then SIGKILL when it is
// still running after the timeout. Returns once the process has
// exited.
func (b *Backend) Shutdown(timeout time.Duration) error {
	if !b.IsRunning() {
		return nil
	}

	if err := b.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("terminate backend: %w", err)
	}

	select {
	case <-b.done:
		return nil
	case <-time.After(timeout):
	}

	if err := b.Signal(syscall.SIGKILL); err != nil && b.IsRunning() {
		return fmt.Errorf("kill backend: %w", err)
	}
	<-b.done
	return nil
}

// Runtime returns how long the process has been running, or its total
// runtime after exit.
func (b *Backend) Runtime() time.Duration {
	if b.started.IsZero() {
		return 0
	}
	return time.Since(b.started)
}

// Sentinel errors for the core package.
var (
	// ErrNotStarted is returned when operations require a started process.
	ErrNotStarted = fmt.Errorf("backend not started")

	// ErrAlreadyStarted is returned when starting an already started process.
	ErrAlreadyStarted = fmt.Errorf("backend already started")
)
