// Package runner executes the configured post-commands inside a new worktree.
package runner

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/shlex"
	"go.uber.org/zap"

	"github.com/shinji-kodama/vaihde/internal/model"
	"github.com/shinji-kodama/vaihde/internal/process"
)

// Runner runs post-commands strictly one after another and stops at the
// first one that fails.
type Runner struct {
	exec   process.Runner
	stdout io.Writer
	stderr io.Writer
	logger *zap.Logger
}

// NewRunner creates a Runner that streams command output to stdout and
// stderr. Nil writers discard the output.
func NewRunner(exec process.Runner, stdout, stderr io.Writer, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	return &Runner{exec: exec, stdout: stdout, stderr: stderr, logger: logger}
}

// Run executes cmds inside worktreePath.
//
// A failing command yields a PostCommandFailed *model.Error naming its 1-based
// position, its command line and its exit status (-1 if it never started).
// Commands after the failing one are not run.
func (r *Runner) Run(ctx context.Context, worktreePath string, cmds []model.CommandSpec) error {
	for i, c := range cmds {
		n := i + 1

		spec, err := buildSpec(c)
		if err != nil {
			return model.WrapError(model.KindPostCommandFailed,
				fmt.Sprintf("post-command #%d %q failed (exit status -1)", n, c.Run), err)
		}
		spec.Dir = worktreePath
		if c.Dir != "" {
			spec.Dir = filepath.Join(worktreePath, c.Dir)
		}
		spec.Env = c.Env
		spec.Stdout = r.stdout
		spec.Stderr = r.stderr

		r.logger.Info("running post-command", zap.Int("index", n), zap.String("run", c.Run), zap.String("dir", spec.Dir))

		res, err := r.exec.Run(ctx, spec)
		if err != nil {
			return model.PathError(model.KindPostCommandFailed, spec.Dir,
				fmt.Sprintf("post-command #%d %q failed (exit status %d)", n, c.Run, res.ExitCode), err)
		}

		r.logger.Debug("post-command finished", zap.Int("index", n), zap.Duration("duration", res.Duration))
	}
	return nil
}

// buildSpec turns a command specification into a process specification.
// Shell commands go through the platform shell; the rest are split into
// words with POSIX shell quoting rules and executed directly.
func buildSpec(c model.CommandSpec) (process.Spec, error) {
	if c.Shell {
		return process.ShellSpec(c.Run), nil
	}

	words, err := shlex.Split(c.Run)
	if err != nil {
		return process.Spec{}, fmt.Errorf("cannot split command: %w", err)
	}
	if len(words) == 0 {
		return process.Spec{}, fmt.Errorf("command %q has no words", c.Run)
	}
	return process.Spec{Name: words[0], Args: words[1:]}, nil
}
