package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewConfigPathCommand creates the "config-path" cobra command.
func NewConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config-path",
		Short: "Show the global config path for this repository",
		Long: `Print the path of the per-repository global config file.

The file name is derived from the repository root, so every repository
has its own global file:

  /src/app → ~/.config/vaihde/src__app.toml`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			_, root, err := repoRoot(cmd.Context())
			if err != nil {
				return err
			}

			path := newResolver().GlobalPath(root)
			if IsJSONOutput() {
				return printJSON(cmd.OutOrStdout(), map[string]string{"path": path})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
}
