package model

import (
	"fmt"
	"strings"
)

// ConfigScope tells where a resolved configuration was loaded from.
type ConfigScope string

const (
	// ScopeLocal is a config file inside the repository root (vaihde.toml).
	ScopeLocal ConfigScope = "local"

	// ScopeGlobal is a per-repository file in the user's config directory.
	ScopeGlobal ConfigScope = "global"

	// ScopeExplicit is a file named on the command line with --config.
	ScopeExplicit ConfigScope = "explicit"
)

// String returns the string representation of ConfigScope.
func (s ConfigScope) String() string {
	return string(s)
}

// Config is the effective, validated configuration for one invocation.
//
// It is produced by the config resolver and handed read-only to every
// other component. Defaults are explicit: an absent copy list or command
// list is an empty slice, never a special "unset" marker.
type Config struct {
	// WorktreeRoot is the absolute directory under which new worktrees
	// are created. Always non-empty after resolution.
	WorktreeRoot string `json:"worktreeRoot"`

	// CopyFiles lists paths, relative to the canonical worktree, that are
	// copied into every new worktree in the listed order.
	CopyFiles []string `json:"copyFiles"`

	// PostCommands are run, in order, inside the new worktree.
	PostCommands []CommandSpec `json:"postCommands"`

	// Source is the path of the file the configuration was loaded from.
	Source string `json:"source"`

	// Scope records whether Source is the local or the global file.
	Scope ConfigScope `json:"scope"`
}

// CommandSpec is one entry of post_commands.
type CommandSpec struct {
	// Run is the command line. Never empty.
	Run string `json:"run"`

	// Dir is an optional working directory relative to the new worktree
	// root. Empty means the worktree root itself.
	Dir string `json:"dir,omitempty"`

	// Shell selects how Run is executed: through the platform shell when
	// true (the default), or split into words and executed directly.
	Shell bool `json:"shell"`

	// Env holds extra environment variables layered over the inherited
	// process environment.
	Env map[string]string `json:"env,omitempty"`
}

// Worktree describes a worktree created by vaihde. It is produced once by
// the worktree creator and never mutated afterwards.
type Worktree struct {
	// Name is the identifier requested by the caller; it is also the
	// directory name under the worktree root.
	Name string `json:"name"`

	// Branch is the git branch checked out in the worktree.
	Branch string `json:"branch"`

	// Path is the absolute, symlink-resolved location on disk.
	Path string `json:"path"`
}

// ValidateIdentifier checks that name can be used as a single path segment
// below the worktree root. Separators, parent or current directory segments
// and NUL bytes are rejected.
func ValidateIdentifier(name string) error {
	switch {
	case name == "":
		return NewError(KindInvalidIdentifier, "worktree name must not be empty")
	case name == "." || name == "..":
		return NewError(KindInvalidIdentifier, fmt.Sprintf("invalid worktree name %q: directory segments are not allowed", name))
	case strings.ContainsAny(name, `/\`):
		return NewError(KindInvalidIdentifier, fmt.Sprintf("invalid worktree name %q: must not contain path separators", name))
	case strings.ContainsRune(name, 0):
		return NewError(KindInvalidIdentifier, fmt.Sprintf("invalid worktree name %q: must not contain NUL bytes", name))
	}
	return nil
}
