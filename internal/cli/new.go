package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/vaihde/internal/config"
	"github.com/shinji-kodama/vaihde/internal/model"
	"github.com/shinji-kodama/vaihde/internal/process"
	"github.com/shinji-kodama/vaihde/internal/provision"
	"github.com/shinji-kodama/vaihde/internal/runner"
	"github.com/shinji-kodama/vaihde/internal/seed"
	"github.com/shinji-kodama/vaihde/internal/worktree"
)

// newFlags holds the flag values for the new command.
type newFlags struct {
	branch string // --branch: branch name (default: the worktree name)
	base   string // --base: start point for a new branch (default: HEAD)
}

// NewNewCommand creates the "new" cobra command.
func NewNewCommand() *cobra.Command {
	flags := &newFlags{}

	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a new worktree",
		Long: `Create a new git worktree at <worktree_root>/<name>.

The command:
  - Creates the worktree, checking out branch <name> (created if missing)
  - Copies the files listed in copy.files from the main checkout
  - Runs post_commands inside the new worktree, stopping at the first failure

A worktree whose file copy or commands failed is left on disk.

Examples:
  vaihde new feature-auth
  vaihde new --base main bugfix-login
  vaihde new --branch topic/api api`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runNew(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.branch, "branch", "", "Branch to check out or create (default: <name>)")
	cmd.Flags().StringVar(&flags.base, "base", "", "Start point for a new branch (default: HEAD)")

	return cmd
}

// runNew provisions one worktree and reports the result.
func runNew(cmd *cobra.Command, name string, flags *newFlags) error {
	cwd, err := os.Getwd()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}

	// Post-command output goes to the terminal. With --json stdout is
	// reserved for the result document, so it is sent to stderr instead.
	commandOut := cmd.OutOrStdout()
	if IsJSONOutput() {
		commandOut = cmd.ErrOrStderr()
	}

	exec := process.NewExec(logger.Named("exec"))
	p := provision.New(
		newResolver(),
		worktree.NewManager(exec, logger.Named("git")),
		seed.NewSeeder(logger.Named("seed")),
		runner.NewRunner(exec, commandOut, cmd.ErrOrStderr(), logger.Named("run")),
		logger.Named("provision"),
	)

	wt, err := p.Provision(cmd.Context(), provision.Request{
		Dir:    cwd,
		Name:   name,
		Branch: flags.branch,
		Base:   flags.base,
	})
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(cmd.OutOrStdout(), wt)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created worktree: %s\n", wt.Path)
	fmt.Fprintf(cmd.OutOrStdout(), "  Branch: %s\n", wt.Branch)
	return nil
}

// newResolver returns the config resolver honoring --config.
func newResolver() *config.Resolver {
	r := config.NewResolver(logger.Named("config"))
	r.Override = configFile
	return r
}

// repoRoot returns the canonical worktree of the repository containing the
// current directory.
func repoRoot(ctx context.Context) (*worktree.Manager, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}

	wm := worktree.NewManager(process.NewExec(logger.Named("exec")), logger.Named("git"))
	root, err := wm.CanonicalWorktree(ctx, cwd)
	if err != nil {
		return nil, "", model.WrapCLIError(model.ExitGeneralError, "not inside a git repository", err)
	}
	return wm, root, nil
}
