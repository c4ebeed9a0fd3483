package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shinji-kodama/vaihde/internal/config"
	"github.com/shinji-kodama/vaihde/internal/model"
)

// initFlags holds the flag values for the init command.
type initFlags struct {
	global       bool   // --global: write the per-repository global file
	worktreeRoot string // --worktree-root: value for worktree_root
}

// NewInitCommand creates the "init" cobra command.
func NewInitCommand() *cobra.Command {
	flags := &initFlags{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter config file",
		Long: `Create a commented starter config for this repository.

By default vaihde.toml is written to the repository root. With --global the
file is written to the per-repository global path instead. Nothing is
written when any config for this repository already exists.

Examples:
  vaihde init
  vaihde init --global --worktree-root ~/worktrees/app`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.global, "global", false, "Write the global config instead of vaihde.toml")
	cmd.Flags().StringVar(&flags.worktreeRoot, "worktree-root", "", "Directory for new worktrees (default: ~/worktrees/<repo>)")

	return cmd
}

func runInit(cmd *cobra.Command, flags *initFlags) error {
	_, root, err := repoRoot(cmd.Context())
	if err != nil {
		return err
	}

	resolver := newResolver()
	existing, found, err := resolver.Find(root)
	if err != nil {
		return err
	}
	if found {
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("config already exists: %s", existing.Path))
	}

	path, scope := config.LocalPath(root), model.ScopeLocal
	if flags.global {
		path, scope = resolver.GlobalPath(root), model.ScopeGlobal
	}

	worktreeRoot := flags.worktreeRoot
	if worktreeRoot == "" {
		worktreeRoot = "~/worktrees/" + filepath.Base(root)
	}

	if err := config.Scaffold(path, worktreeRoot); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to create config", err)
	}
	logger.Debug("config created", zap.String("path", path))

	if IsJSONOutput() {
		return printJSON(cmd.OutOrStdout(), map[string]string{"path": path, "scope": scope.String()})
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", path)
	return err
}
