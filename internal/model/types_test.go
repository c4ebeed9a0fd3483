package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConfigScope_String verifies string representation of config scopes.
func TestConfigScope_String(t *testing.T) {
	assert.Equal(t, "local", ScopeLocal.String())
	assert.Equal(t, "global", ScopeGlobal.String())
	assert.Equal(t, "explicit", ScopeExplicit.String())
}

// TestValidateIdentifier checks that only single, safe path segments are
// accepted as worktree names.
func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple name", "feature", false},
		{"with hyphens", "feature-auth", false},
		{"with dots", "v1.2", false},
		{"leading dot file", ".hidden", false},
		{"underscore", "my_branch", false},
		{"empty", "", true},
		{"current dir", ".", true},
		{"parent dir", "..", true},
		{"forward slash", "feature/auth", true},
		{"backslash", `feature\auth`, true},
		{"traversal", "../escape", true},
		{"nul byte", "bad\x00name", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.input)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, KindInvalidIdentifier)
		})
	}
}

// TestErrorKind_ExitCode verifies that each kind maps to its stage's exit code.
func TestErrorKind_ExitCode(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want ExitCode
	}{
		{KindConfigNotFound, ExitConfigError},
		{KindConfigInvalid, ExitConfigError},
		{KindInvalidIdentifier, ExitCreateError},
		{KindWorktreeAlreadyExists, ExitCreateError},
		{KindWorktreeCreationFailed, ExitCreateError},
		{KindCopySourceMissing, ExitSeedError},
		{KindCopyWriteFailed, ExitSeedError},
		{KindPostCommandFailed, ExitCommandError},
		{ErrorKind("Unknown"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.ExitCode())
		})
	}
}

// TestError verifies message formatting, unwrapping and kind matching.
func TestError(t *testing.T) {
	t.Run("simple error", func(t *testing.T) {
		err := NewError(KindConfigNotFound, "no config found")
		assert.Equal(t, "no config found", err.Error())
		assert.Nil(t, err.Unwrap())
		assert.True(t, errors.Is(err, KindConfigNotFound))
		assert.False(t, errors.Is(err, KindConfigInvalid))
	})

	t.Run("wrapped error", func(t *testing.T) {
		inner := errors.New("permission denied")
		err := PathError(KindCopyWriteFailed, ".env", "failed to write .env", inner)
		assert.Equal(t, "failed to write .env: permission denied", err.Error())
		assert.Equal(t, ".env", err.Path)
		assert.True(t, errors.Is(err, inner))
		assert.True(t, errors.Is(err, KindCopyWriteFailed))
	})

	t.Run("kind survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("stage failed: %w", WrapError(KindPostCommandFailed, "command 2 failed", nil))
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindPostCommandFailed, kind)
		assert.ErrorIs(t, err, KindPostCommandFailed)
	})

	t.Run("KindOf on foreign error", func(t *testing.T) {
		_, ok := KindOf(errors.New("boom"))
		assert.False(t, ok)
	})
}

// TestCLIError verifies the custom error type used for exit code mapping.
func TestCLIError(t *testing.T) {
	t.Run("simple error", func(t *testing.T) {
		err := NewCLIError(ExitConfigError, "no vaihde config found")
		assert.Equal(t, ExitConfigError, err.Code)
		assert.Equal(t, "no vaihde config found", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("wrapped error", func(t *testing.T) {
		inner := errors.New("exit status 1")
		err := WrapCLIError(ExitCommandError, "post-command failed", inner)
		assert.Equal(t, ExitCommandError, err.Code)
		assert.Contains(t, err.Error(), "exit status 1")
		assert.Equal(t, inner, err.Unwrap())
	})

	// Verify errors.Is works with unwrapped errors (Go 1.13+ error chain).
	t.Run("errors.Is chain", func(t *testing.T) {
		inner := NewError(KindWorktreeAlreadyExists, "exists")
		err := WrapCLIError(ExitCreateError, "create failed", inner)
		assert.True(t, errors.Is(err, inner))
		assert.True(t, errors.Is(err, KindWorktreeAlreadyExists))
	})
}
