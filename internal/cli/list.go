package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shinji-kodama/vaihde/internal/model"
	"github.com/shinji-kodama/vaihde/internal/worktree"
)

// NewListCommand creates the "list" cobra command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the worktrees of this repository",
		Long: `List every git worktree of the current repository, the main checkout first.

This is a view of "git worktree list"; vaihde keeps no record of its own.

Examples:
  vaihde list
  vaihde list --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd)
		},
	}
}

func runList(cmd *cobra.Command) error {
	wm, root, err := repoRoot(cmd.Context())
	if err != nil {
		return err
	}

	worktrees, err := wm.List(cmd.Context(), root)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to list worktrees", err)
	}
	logger.Debug("listed worktrees", zap.Int("count", len(worktrees)))

	if IsJSONOutput() {
		return printListResultJSON(cmd.OutOrStdout(), worktrees)
	}
	printListResultText(cmd.OutOrStdout(), worktrees)
	return nil
}

// listWorktreeJSON is the JSON output structure for a single worktree.
type listWorktreeJSON struct {
	worktree.Info
	Name   string `json:"name"`
	Branch string `json:"branch"`
}

func printListResultJSON(w io.Writer, worktrees []worktree.Info) error {
	type resultJSON struct {
		Worktrees []listWorktreeJSON `json:"worktrees"`
	}

	// Use an empty slice instead of nil so the output shows [] not null.
	result := resultJSON{Worktrees: make([]listWorktreeJSON, 0, len(worktrees))}
	for _, wt := range worktrees {
		result.Worktrees = append(result.Worktrees, listWorktreeJSON{
			Info:   wt,
			Name:   filepath.Base(wt.Path),
			Branch: wt.ShortBranch(),
		})
	}
	return printJSON(w, result)
}

// printListResultText outputs the worktrees as a text table:
//
//	NAME           BRANCH          HEAD      PATH
//	app            main            1a2b3c4   /src/app
//	feature-auth   feature-auth    5d6e7f8   /home/me/worktrees/app/feature-auth
func printListResultText(w io.Writer, worktrees []worktree.Info) {
	if len(worktrees) == 0 {
		fmt.Fprintln(w, "No worktrees found.")
		return
	}

	fmt.Fprintf(w, "%-20s %-20s %-9s %s\n", "NAME", "BRANCH", "HEAD", "PATH")
	for _, wt := range worktrees {
		path := wt.Path
		if notes := FormatWorktreeNotes(wt); notes != "" {
			path += " " + notes
		}
		fmt.Fprintf(w, "%-20s %-20s %-9s %s\n",
			filepath.Base(wt.Path),
			FormatBranch(wt),
			shortHash(wt.HEAD),
			path,
		)
	}
}

// FormatBranch returns the short branch name, or a marker for worktrees
// without one.
func FormatBranch(wt worktree.Info) string {
	switch {
	case wt.IsBare:
		return "(bare)"
	case wt.Detached || wt.Branch == "":
		return "(detached)"
	default:
		return wt.ShortBranch()
	}
}

// FormatWorktreeNotes lists the lock and prune markers of wt in brackets,
// or "" when it has none.
func FormatWorktreeNotes(wt worktree.Info) string {
	var notes []string
	if wt.Locked {
		notes = append(notes, "locked")
	}
	if wt.Prunable {
		notes = append(notes, "prunable")
	}
	if len(notes) == 0 {
		return ""
	}
	return "[" + strings.Join(notes, ", ") + "]"
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	if hash == "" {
		return "-"
	}
	return hash
}
