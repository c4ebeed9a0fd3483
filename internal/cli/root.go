// Package cli implements the cobra-based CLI commands for vaihde.
//
// Each subcommand (new, list, config-path, init) is defined in its own file
// within this package. This file defines the root command that serves as
// the parent for all subcommands and handles global flags, logging setup
// and the translation of errors into exit codes.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shinji-kodama/vaihde/internal/logging"
	"github.com/shinji-kodama/vaihde/internal/model"
	"github.com/shinji-kodama/vaihde/internal/provision"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	// When true, results and errors are printed as JSON documents.
	jsonOutput bool

	// verbose lowers the console log level to debug.
	verbose bool

	// logFile, when set, receives a JSON copy of every log entry.
	logFile string

	// configFile replaces config discovery with an explicit file.
	configFile string
)

// logger is built by the root command's PersistentPreRunE and shared by
// every subcommand. It is a no-op logger until then.
var (
	logger      = zap.NewNop()
	closeLogger = func() {}
)

// Version, Commit, and Date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
// This is the entry point for the entire CLI application.
//
// The root command itself does not perform any action. It only provides
// help text and global flags; the work is done by the subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vaihde",
		Short: "Create git worktrees with seeded files and setup commands",
		Long: `vaihde creates git worktrees on demand below a configured root directory,
copies selected files (such as .env) from the main checkout into them, and
runs a sequence of setup commands inside each new worktree.

Configuration is read from vaihde.toml in the repository root, or from a
per-repository file in ~/.config/vaihde (see "vaihde config-path").`,

		// SilenceUsage prevents cobra from printing usage on every error.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		// Version is displayed when --version flag is used.
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, closeFn, err := logging.New(logging.Config{
				Verbose:  verbose,
				Console:  cmd.ErrOrStderr(),
				FilePath: logFile,
			})
			if err != nil {
				return model.WrapCLIError(model.ExitGeneralError, "failed to set up logging", err)
			}
			logger, closeLogger = l, closeFn
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this file")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Use this config file instead of searching for one")

	rootCmd.AddCommand(NewNewCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewConfigPathCommand())
	rootCmd.AddCommand(NewInitCommand())

	return rootCmd
}

// Execute runs the root command and exits with the matching exit code.
// This is the main entry point called from main.go.
func Execute(ctx context.Context, rootCmd *cobra.Command) {
	os.Exit(Run(ctx, rootCmd))
}

// Run executes rootCmd, prints any error to the command's stderr and
// returns the process exit code.
func Run(ctx context.Context, rootCmd *cobra.Command) int {
	err := rootCmd.ExecuteContext(ctx)
	defer func() {
		closeLogger()
		logger, closeLogger = zap.NewNop(), func() {}
	}()

	if err == nil {
		return int(model.ExitSuccess)
	}
	printError(rootCmd.ErrOrStderr(), err)
	return int(ExitCodeFor(err))
}

// ExitCodeFor maps an error returned by a command to a process exit code.
//
// CLIError values carry their own code. An interrupted run exits with 130.
// Errors tagged with a model.ErrorKind use the code of their stage; any
// other error is a general failure.
func ExitCodeFor(err error) model.ExitCode {
	if err == nil {
		return model.ExitSuccess
	}

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	if errors.Is(err, context.Canceled) {
		return model.ExitInterrupted
	}
	if kind, ok := model.KindOf(err); ok {
		return kind.ExitCode()
	}
	return model.ExitGeneralError
}

// errorJSON is the JSON error document printed with --json.
type errorJSON struct {
	Error errorDetailJSON `json:"error"`
}

type errorDetailJSON struct {
	Kind     string `json:"kind,omitempty"`
	Stage    string `json:"stage,omitempty"`
	Message  string `json:"message"`
	Path     string `json:"path,omitempty"`
	Worktree string `json:"worktree,omitempty"`
	ExitCode int    `json:"exitCode"`
}

// printError outputs an error in the appropriate format (JSON or text)
// based on the --json global flag.
//
// Text errors read "Error: <kind>: <message>". When a later stage failed
// the path of the worktree that was left behind is printed as well.
func printError(w io.Writer, err error) {
	detail := errorDetailJSON{
		Message:  err.Error(),
		ExitCode: int(ExitCodeFor(err)),
	}

	var stageErr *provision.StageError
	if errors.As(err, &stageErr) {
		detail.Stage = stageErr.Stage.String()
		detail.Message = stageErr.Err.Error()
		if stageErr.Worktree != nil {
			detail.Worktree = stageErr.Worktree.Path
		}
	}

	var modelErr *model.Error
	if errors.As(err, &modelErr) {
		detail.Kind = modelErr.Kind.String()
		detail.Path = modelErr.Path
	}

	if jsonOutput {
		// stderr is used for errors even in JSON mode, because stdout
		// is reserved for successful command output.
		data, _ := json.MarshalIndent(errorJSON{Error: detail}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if detail.Kind != "" {
		fmt.Fprintf(w, "Error: %s: %s\n", detail.Kind, detail.Message)
	} else {
		fmt.Fprintf(w, "Error: %s\n", detail.Message)
	}
	if detail.Worktree != "" {
		fmt.Fprintf(w, "The worktree was left in place: %s\n", detail.Worktree)
	}
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}

// printJSON writes v to w as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to encode output", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
