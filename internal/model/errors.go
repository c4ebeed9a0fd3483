package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the provisioning workflow can report.
//
// ErrorKind implements error so a kind can be used directly as a target for
// errors.Is:
//
//	if errors.Is(err, model.KindConfigNotFound) { ... }
type ErrorKind string

const (
	// KindConfigNotFound means neither a local nor a global config exists.
	KindConfigNotFound ErrorKind = "ConfigNotFound"

	// KindConfigInvalid means a config file exists but could not be decoded
	// or failed validation.
	KindConfigInvalid ErrorKind = "ConfigInvalid"

	// KindInvalidIdentifier means the requested worktree name is not a
	// single safe path segment.
	KindInvalidIdentifier ErrorKind = "InvalidIdentifier"

	// KindWorktreeAlreadyExists means the target directory is already present.
	KindWorktreeAlreadyExists ErrorKind = "WorktreeAlreadyExists"

	// KindWorktreeCreationFailed means git (or creating worktree_root) failed.
	KindWorktreeCreationFailed ErrorKind = "WorktreeCreationFailed"

	// KindCopySourceMissing means a listed file is absent from the canonical worktree.
	KindCopySourceMissing ErrorKind = "CopySourceMissing"

	// KindCopyWriteFailed means a seeded file could not be written.
	KindCopyWriteFailed ErrorKind = "CopyWriteFailed"

	// KindPostCommandFailed means a post-command exited non-zero or could not start.
	KindPostCommandFailed ErrorKind = "PostCommandFailed"
)

// Error satisfies the error interface.
func (k ErrorKind) Error() string {
	return string(k)
}

// String returns the string representation of ErrorKind.
func (k ErrorKind) String() string {
	return string(k)
}

// ExitCode maps an error kind to the exit code of the stage it belongs to.
func (k ErrorKind) ExitCode() ExitCode {
	switch k {
	case KindConfigNotFound, KindConfigInvalid:
		return ExitConfigError
	case KindInvalidIdentifier, KindWorktreeAlreadyExists, KindWorktreeCreationFailed:
		return ExitCreateError
	case KindCopySourceMissing, KindCopyWriteFailed:
		return ExitSeedError
	case KindPostCommandFailed:
		return ExitCommandError
	default:
		return ExitGeneralError
	}
}

// Error is a tagged failure produced by one of the provisioning components.
type Error struct {
	// Kind is the failure classification.
	Kind ErrorKind

	// Message is the human-readable description.
	Message string

	// Path names the file or directory involved, if any.
	Path string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the ErrorKind of e.
func (e *Error) Is(target error) bool {
	kind, ok := target.(ErrorKind)
	return ok && kind == e.Kind
}

// NewError creates an Error of the given kind.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates an Error of the given kind wrapping err.
func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// PathError creates an Error of the given kind that names a path.
func PathError(kind ErrorKind, path, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Path: path, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, and false if
// there is none.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// ExitCode defines the CLI exit codes. Every provisioning stage has its own
// code so scripts can tell where a run stopped.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates the configuration was missing or invalid.
	ExitConfigError ExitCode = 2

	// ExitCreateError indicates the worktree could not be created.
	ExitCreateError ExitCode = 3

	// ExitSeedError indicates copying files into the worktree failed.
	ExitSeedError ExitCode = 4

	// ExitCommandError indicates a post-command failed.
	ExitCommandError ExitCode = 5

	// ExitInterrupted indicates the run was stopped by a signal.
	ExitInterrupted ExitCode = 130
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
