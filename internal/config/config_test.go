package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shinji-kodama/vaihde/internal/model"
)

// testEnv is a fake repository root plus an isolated global config directory.
type testEnv struct {
	repoRoot string
	resolver *Resolver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		repoRoot: t.TempDir(),
		resolver: &Resolver{
			GlobalDir: t.TempDir(),
			HomeDir:   "/home/tester",
			logger:    zap.NewNop(),
		},
	}
}

func (e *testEnv) writeLocal(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.repoRoot, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (e *testEnv) writeGlobal(t *testing.T, ext, content string) string {
	t.Helper()
	path := filepath.Join(e.resolver.GlobalDir, MangledName(e.repoRoot)+ext)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// --- precedence ---

// TestResolve_LocalWinsOverGlobal verifies that a project-local file is
// preferred when both files declare a worktree_root.
func TestResolve_LocalWinsOverGlobal(t *testing.T) {
	env := newTestEnv(t)
	local := env.writeLocal(t, "vaihde.toml", `worktree_root = "/srv/local"`)
	env.writeGlobal(t, ".toml", `worktree_root = "/srv/global"`)

	cfg, err := env.resolver.Resolve(env.repoRoot)
	require.NoError(t, err)

	assert.Equal(t, filepath.Clean("/srv/local"), cfg.WorktreeRoot)
	assert.Equal(t, local, cfg.Source)
	assert.Equal(t, model.ScopeLocal, cfg.Scope)
}

// TestResolve_GlobalFallback verifies the global file is used without a local one.
func TestResolve_GlobalFallback(t *testing.T) {
	env := newTestEnv(t)
	global := env.writeGlobal(t, ".toml", `worktree_root = "/srv/global"`)

	cfg, err := env.resolver.Resolve(env.repoRoot)
	require.NoError(t, err)

	assert.Equal(t, filepath.Clean("/srv/global"), cfg.WorktreeRoot)
	assert.Equal(t, global, cfg.Source)
	assert.Equal(t, model.ScopeGlobal, cfg.Scope)
}

// TestResolve_NotFound verifies the error names both candidate locations.
func TestResolve_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.resolver.Resolve(env.repoRoot)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.KindConfigNotFound)
	assert.Contains(t, err.Error(), LocalPath(env.repoRoot))
	assert.Contains(t, err.Error(), env.resolver.GlobalPath(env.repoRoot))
}

// TestResolve_TomlBeforeYaml verifies ordering among local formats.
func TestResolve_TomlBeforeYaml(t *testing.T) {
	env := newTestEnv(t)
	env.writeLocal(t, "vaihde.yaml", "worktree_root: /srv/yaml\n")
	env.writeLocal(t, "vaihde.toml", `worktree_root = "/srv/toml"`)

	cfg, err := env.resolver.Resolve(env.repoRoot)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean("/srv/toml"), cfg.WorktreeRoot)
}

// TestCandidates verifies the full ordered candidate list.
func TestCandidates(t *testing.T) {
	env := newTestEnv(t)

	candidates := env.resolver.Candidates(env.repoRoot)
	require.Len(t, candidates, 8)

	assert.Equal(t, filepath.Join(env.repoRoot, "vaihde.toml"), candidates[0].Path)
	assert.Equal(t, model.ScopeLocal, candidates[0].Scope)
	assert.Equal(t, env.resolver.GlobalPath(env.repoRoot), candidates[4].Path)
	assert.Equal(t, model.ScopeGlobal, candidates[4].Scope)
}

// --- decoding ---

// TestResolve_FullToml verifies every recognised key of the TOML format.
func TestResolve_FullToml(t *testing.T) {
	env := newTestEnv(t)
	env.writeLocal(t, "vaihde.toml", `
worktree_root = "/srv/wt"

[copy]
files = [".env", "config/local.json"]

[[post_commands]]
run = "npm install"
dir = "web"

[[post_commands]]
run = "make setup"
shell = false
env = { MODE = "dev" }
`)

	cfg, err := env.resolver.Resolve(env.repoRoot)
	require.NoError(t, err)

	assert.Equal(t, []string{".env", filepath.Join("config", "local.json")}, cfg.CopyFiles)
	require.Len(t, cfg.PostCommands, 2)

	assert.Equal(t, "npm install", cfg.PostCommands[0].Run)
	assert.Equal(t, "web", cfg.PostCommands[0].Dir)
	assert.True(t, cfg.PostCommands[0].Shell, "shell defaults to true")

	assert.Equal(t, "make setup", cfg.PostCommands[1].Run)
	assert.False(t, cfg.PostCommands[1].Shell)
	assert.Equal(t, map[string]string{"MODE": "dev"}, cfg.PostCommands[1].Env)
}

// TestResolve_Defaults verifies explicit empty defaults for optional sections.
func TestResolve_Defaults(t *testing.T) {
	env := newTestEnv(t)
	env.writeLocal(t, "vaihde.toml", `worktree_root = "/srv/wt"`)

	cfg, err := env.resolver.Resolve(env.repoRoot)
	require.NoError(t, err)

	assert.NotNil(t, cfg.CopyFiles)
	assert.Empty(t, cfg.CopyFiles)
	assert.NotNil(t, cfg.PostCommands)
	assert.Empty(t, cfg.PostCommands)
}

// TestResolve_Yaml verifies YAML config files.
func TestResolve_Yaml(t *testing.T) {
	env := newTestEnv(t)
	env.writeLocal(t, "vaihde.yml", `
worktree_root: /srv/wt
copy:
  files: [".env"]
post_commands:
  - run: echo hi
`)

	cfg, err := env.resolver.Resolve(env.repoRoot)
	require.NoError(t, err)
	assert.Equal(t, []string{".env"}, cfg.CopyFiles)
	require.Len(t, cfg.PostCommands, 1)
	assert.Equal(t, "echo hi", cfg.PostCommands[0].Run)
}

// TestResolve_JsonWithComments verifies JSONC comment and trailing comma support.
func TestResolve_JsonWithComments(t *testing.T) {
	env := newTestEnv(t)
	env.writeGlobal(t, ".json", `{
  // where worktrees go
  "worktree_root": "/srv/wt",
  "copy": {"files": [".env",]},
}`)

	cfg, err := env.resolver.Resolve(env.repoRoot)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean("/srv/wt"), cfg.WorktreeRoot)
	assert.Equal(t, []string{".env"}, cfg.CopyFiles)
}

// TestResolve_UnknownKeyWarns verifies that unknown TOML keys are logged.
func TestResolve_UnknownKeyWarns(t *testing.T) {
	env := newTestEnv(t)
	core, logs := observer.New(zapcore.WarnLevel)
	env.resolver.logger = zap.New(core)

	env.writeLocal(t, "vaihde.toml", `
worktree_root = "/srv/wt"
post_command = "typo"
`)

	_, err := env.resolver.Resolve(env.repoRoot)
	require.NoError(t, err)

	entries := logs.FilterMessage("ignoring unknown config key").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "post_command", entries[0].ContextMap()["key"])
}

// --- worktree_root resolution ---

func TestResolve_WorktreeRootResolution(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX paths")
	}

	tests := []struct {
		name string
		root string
		want func(env *testEnv) string
	}{
		{"absolute", "/srv/wt", func(*testEnv) string { return "/srv/wt" }},
		{"home", "~/worktrees/app", func(*testEnv) string { return "/home/tester/worktrees/app" }},
		{"bare tilde", "~", func(*testEnv) string { return "/home/tester" }},
		{"relative to repo", "../wt", func(e *testEnv) string { return filepath.Join(filepath.Dir(e.repoRoot), "wt") }},
		{"unclean", "/srv//wt/./x/..", func(*testEnv) string { return "/srv/wt" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.writeLocal(t, "vaihde.toml", `worktree_root = "`+tt.root+`"`)

			cfg, err := env.resolver.Resolve(env.repoRoot)
			require.NoError(t, err)
			assert.Equal(t, tt.want(env), cfg.WorktreeRoot)
		})
	}
}

// --- invalid configurations ---

func TestResolve_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		message string
	}{
		{"malformed toml", "vaihde.toml", `worktree_root = `, "failed to parse"},
		{"malformed yaml", "vaihde.yaml", "worktree_root: [unclosed", "failed to parse"},
		{"malformed json", "vaihde.json", `{"worktree_root": }`, "failed to parse"},
		{"wrong type", "vaihde.toml", `worktree_root = 42`, "failed to parse"},
		{"missing worktree_root", "vaihde.toml", `[copy]` + "\n" + `files = ["a"]`, "worktree_root"},
		{"blank worktree_root", "vaihde.toml", `worktree_root = "  "`, "worktree_root"},
		{"empty yaml", "vaihde.yaml", "", "worktree_root"},
		{"absolute copy file", "vaihde.toml", "worktree_root = \"/w\"\n[copy]\nfiles = [\"/etc/passwd\"]", "copy.files[0]"},
		{"escaping copy file", "vaihde.toml", "worktree_root = \"/w\"\n[copy]\nfiles = [\"../secret\"]", "copy.files[0]"},
		{"dot copy file", "vaihde.toml", "worktree_root = \"/w\"\n[copy]\nfiles = [\".\"]", "copy.files[0]"},
		{"empty copy file", "vaihde.toml", "worktree_root = \"/w\"\n[copy]\nfiles = [\"ok\", \"\"]", "copy.files[1]"},
		{"missing run", "vaihde.toml", "worktree_root = \"/w\"\n[[post_commands]]\ndir = \"x\"", "post_commands[0]"},
		{"copy dir holds worktree_root", "vaihde.toml", "worktree_root = \"tmp/wt\"\n[copy]\nfiles = [\"tmp\"]", "contains worktree_root"},
		{"copy dir is worktree_root", "vaihde.toml", "worktree_root = \"wt\"\n[copy]\nfiles = [\"wt\"]", "contains worktree_root"},
		{"escaping dir", "vaihde.toml", "worktree_root = \"/w\"\n[[post_commands]]\nrun = \"ls\"\ndir = \"../..\"", "post_commands[0].dir"},
		{"absolute dir", "vaihde.toml", "worktree_root = \"/w\"\n[[post_commands]]\nrun = \"ls\"\ndir = \"/tmp\"", "post_commands[0].dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			path := env.writeLocal(t, tt.file, tt.content)

			_, err := env.resolver.Resolve(env.repoRoot)
			require.Error(t, err)
			assert.ErrorIs(t, err, model.KindConfigInvalid)
			assert.Contains(t, err.Error(), tt.message)
			assert.Contains(t, err.Error(), path, "error should name the config file")
		})
	}
}

// TestResolve_CandidateIsDirectory verifies a directory in place of a file is invalid.
func TestResolve_CandidateIsDirectory(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.Mkdir(filepath.Join(env.repoRoot, "vaihde.toml"), 0755))

	_, err := env.resolver.Resolve(env.repoRoot)
	assert.ErrorIs(t, err, model.KindConfigInvalid)
}

// TestLoad_ExplicitFile verifies loading a file outside the candidate list.
func TestLoad_ExplicitFile(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte(`worktree_root = "wt"`), 0644))

	cfg, err := env.resolver.Load(Candidate{Path: path, Scope: model.ScopeExplicit}, env.repoRoot)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(env.repoRoot, "wt"), cfg.WorktreeRoot)
	assert.Equal(t, model.ScopeExplicit, cfg.Scope)

	_, err = env.resolver.Load(Candidate{Path: path + ".missing"}, env.repoRoot)
	assert.ErrorIs(t, err, model.KindConfigNotFound)

	other := filepath.Join(t.TempDir(), "custom.ini")
	require.NoError(t, os.WriteFile(other, []byte(`worktree_root = "wt"`), 0644))
	_, err = env.resolver.Load(Candidate{Path: other}, env.repoRoot)
	assert.ErrorIs(t, err, model.KindConfigInvalid)
}

// --- paths ---

func TestMangledName(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX paths")
	}
	assert.Equal(t, "Users__akx__build__foo", MangledName("/Users/akx/build/foo"))
	assert.Equal(t, "srv__repo", MangledName("/srv/repo/"))
}

func TestMangledName_ResolvesSymlinks(t *testing.T) {
	target := t.TempDir()
	link := filepath.Join(t.TempDir(), "link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	assert.Equal(t, MangledName(target), MangledName(link))
}

func TestDefaultGlobalDir(t *testing.T) {
	t.Run("XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/xdg")
		assert.Equal(t, filepath.Join("/xdg", "vaihde"), DefaultGlobalDir())
	})

	t.Run("home fallback", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("HOME", home)
		t.Setenv("USERPROFILE", home)
		assert.Equal(t, filepath.Join(home, ".config", "vaihde"), DefaultGlobalDir())
	})
}

func TestGlobalPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX paths")
	}
	assert.Equal(t, "/cfg/srv__repo.toml", GlobalPath("/cfg", "/srv/repo"))
	assert.Equal(t, "/srv/repo/vaihde.toml", LocalPath("/srv/repo"))
}

// TestResolve_Override verifies that an explicit file bypasses the search.
func TestResolve_Override(t *testing.T) {
	env := newTestEnv(t)
	env.writeLocal(t, "vaihde.toml", `worktree_root = "/srv/local"`)
	path := filepath.Join(t.TempDir(), "other.yaml")
	require.NoError(t, os.WriteFile(path, []byte("worktree_root: /srv/other\n"), 0644))

	env.resolver.Override = path
	cfg, err := env.resolver.Resolve(env.repoRoot)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean("/srv/other"), cfg.WorktreeRoot)
	assert.Equal(t, model.ScopeExplicit, cfg.Scope)

	env.resolver.Override = path + ".missing"
	_, err = env.resolver.Resolve(env.repoRoot)
	assert.ErrorIs(t, err, model.KindConfigNotFound)
}

// TestResolve_CopyBesideWorktreeRoot verifies that copy entries merely
// sharing a prefix with worktree_root are accepted.
func TestResolve_CopyBesideWorktreeRoot(t *testing.T) {
	env := newTestEnv(t)
	env.writeLocal(t, "vaihde.toml", "worktree_root = \"tmp/wt\"\n[copy]\nfiles = [\"tmp/wt-notes.txt\", \"tmpfiles\"]")

	cfg, err := env.resolver.Resolve(env.repoRoot)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("tmp", "wt-notes.txt"), "tmpfiles"}, cfg.CopyFiles)
}
