// Package process is the single place where vaihde starts subprocesses.
//
// Both git invocations and post-commands are described by a Spec value and
// executed through a Runner, so exit status, stdout and stderr are captured
// the same way everywhere and tests can substitute a fake Runner.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Spec describes one subprocess invocation.
type Spec struct {
	// Name is the executable to run (looked up in PATH).
	Name string

	// Args are passed to the executable unchanged; no shell is involved
	// unless Name is itself a shell.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env holds variables layered over the inherited environment.
	Env map[string]string

	// Stdin is connected to the child's standard input when non-nil.
	Stdin io.Reader

	// Stdout and Stderr receive the child's output live, in addition to
	// the copy captured in Result.
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command line for log and error messages.
func (s Spec) String() string {
	return strings.Join(append([]string{s.Name}, s.Args...), " ")
}

// ShellSpec returns a Spec that runs command through the platform shell
// (sh -c on Unix, cmd /C on Windows).
func ShellSpec(command string) Spec {
	if runtime.GOOS == "windows" {
		return Spec{Name: "cmd", Args: []string{"/C", command}}
	}
	return Spec{Name: "sh", Args: []string{"-c", command}}
}

// Result is the outcome of a finished subprocess.
type Result struct {
	// ExitCode is the process exit status, or -1 if the process could
	// not be started or was killed by a signal.
	ExitCode int

	// Stdout and Stderr hold everything the process wrote.
	Stdout string
	Stderr string

	// Duration is the wall-clock run time.
	Duration time.Duration
}

// Runner executes process specifications.
type Runner interface {
	Run(ctx context.Context, spec Spec) (Result, error)
}

// DefaultWaitDelay bounds how long Run keeps reading output after the
// process itself has exited.
const DefaultWaitDelay = 2 * time.Second

// Exec is the Runner backed by os/exec.
type Exec struct {
	// WaitDelay is how long to wait for stdout and stderr to close once the
	// process has exited. A background child that inherited them (for
	// example "npm run dev &") would otherwise hold Run open until it exits.
	WaitDelay time.Duration

	logger *zap.Logger
}

// NewExec creates an Exec runner. A nil logger disables logging.
func NewExec(logger *zap.Logger) *Exec {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exec{WaitDelay: DefaultWaitDelay, logger: logger}
}

// Run starts the process described by spec and waits for it to finish.
//
// A non-nil error is returned when the process could not be started, when
// it exited with a non-zero status, or when ctx was cancelled. The Result
// is populated in every case.
func (e *Exec) Run(ctx context.Context, spec Spec) (Result, error) {
	// #nosec G204 -- commands come from the user's own configuration or from vaihde itself
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	// cmd.Environ includes PWD for Dir, matching what a shell would export.
	cmd.Env = mergeEnv(cmd.Environ(), spec.Env)
	cmd.Stdin = spec.Stdin
	cmd.WaitDelay = e.WaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = teeWriter(&stdout, spec.Stdout)
	cmd.Stderr = teeWriter(&stderr, spec.Stderr)

	e.logger.Debug("exec", zap.String("cmd", spec.String()), zap.String("dir", spec.Dir))

	start := time.Now()
	err := cmd.Run()
	res := Result{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if errors.Is(err, exec.ErrWaitDelay) {
		// The process exited successfully; only a background child still
		// held its output open.
		e.logger.Debug("output left open by a background process", zap.String("cmd", spec.String()))
		err = nil
	}
	if err == nil {
		return res, nil
	}

	res.ExitCode = -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s: %w", spec, ctxErr)
	}
	return res, fmt.Errorf("%s: %w", spec, err)
}

func teeWriter(capture *bytes.Buffer, live io.Writer) io.Writer {
	if live == nil {
		return capture
	}
	return io.MultiWriter(live, capture)
}

// mergeEnv returns base with overrides applied. Overridden keys are removed
// from base and appended in sorted order so the result is deterministic.
func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	env := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[key]; ok {
			continue
		}
		env = append(env, kv)
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}
	return env
}
