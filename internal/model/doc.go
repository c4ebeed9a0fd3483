// Package model defines the domain types and value objects for vaihde.
//
// This package contains pure data structures with no external dependencies.
// The Config, CommandSpec and Worktree values are transient: they live for
// the duration of one invocation and are never persisted. Git itself is the
// source of truth for which worktrees exist.
//
// The package also defines the error taxonomy (ErrorKind, Error), the exit
// codes (ExitCode) and the CLIError type that carries an exit code for
// process exit handling.
package model
