package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const templateHeader = "# Vaihde configuration\n\n# Root directory for new worktrees (required)\n"

const templateFooter = `
# Files to copy from the main worktree (optional)
# [copy]
# files = [".env", ".env.local"]

# Commands to run after creating a worktree (optional)
# [[post_commands]]
# run = "uv sync"
#
# [[post_commands]]
# run = "npm install"
# dir = "web"
`

// ErrConfigExists is returned by Scaffold when the target file is present.
var ErrConfigExists = errors.New("config already exists")

// Template renders the commented starter config for worktreeRoot.
func Template(worktreeRoot string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(templateHeader)

	root := struct {
		WorktreeRoot string `toml:"worktree_root"`
	}{WorktreeRoot: worktreeRoot}
	if err := toml.NewEncoder(&buf).Encode(root); err != nil {
		return nil, fmt.Errorf("failed to encode worktree_root: %w", err)
	}

	buf.WriteString(templateFooter)
	return buf.Bytes(), nil
}

// Scaffold writes the starter config to path, creating parent directories.
// An existing file is never overwritten.
func Scaffold(path, worktreeRoot string) error {
	data, err := Template(worktreeRoot)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
