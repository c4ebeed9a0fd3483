// Package config resolves the effective vaihde configuration for a repository.
//
// Resolution walks a short, ordered list of candidate files and the first
// one that exists wins:
//
//  1. vaihde.toml (or .yaml/.yml/.json) in the repository root
//  2. <global dir>/<mangled repository root>.toml (or .yaml/.yml/.json)
//
// The global directory is $XDG_CONFIG_HOME/vaihde, ~/.config/vaihde by
// default. Resolution is read-only: nothing is created or modified.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/shinji-kodama/vaihde/internal/model"
)

// Candidate is one place a configuration file may live.
type Candidate struct {
	Path  string
	Scope model.ConfigScope
}

// Resolver locates, decodes and validates configuration files.
type Resolver struct {
	// GlobalDir holds the per-repository global files.
	GlobalDir string

	// HomeDir is substituted for a leading "~" in worktree_root.
	HomeDir string

	// Override, when set, is loaded instead of searching the candidates.
	Override string

	logger *zap.Logger
}

// NewResolver creates a Resolver using DefaultGlobalDir and the user's home
// directory. A nil logger disables logging.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	home, _ := os.UserHomeDir()
	return &Resolver{
		GlobalDir: DefaultGlobalDir(),
		HomeDir:   home,
		logger:    logger,
	}
}

// Candidates lists every file Resolve will look at for repoRoot, in
// priority order.
func (r *Resolver) Candidates(repoRoot string) []Candidate {
	candidates := make([]Candidate, 0, len(localFileNames)+len(globalExtensions))
	for _, name := range localFileNames {
		candidates = append(candidates, Candidate{
			Path:  filepath.Join(repoRoot, name),
			Scope: model.ScopeLocal,
		})
	}

	stem := filepath.Join(r.GlobalDir, MangledName(repoRoot))
	for _, ext := range globalExtensions {
		candidates = append(candidates, Candidate{
			Path:  stem + ext,
			Scope: model.ScopeGlobal,
		})
	}
	return candidates
}

// GlobalPath returns the preferred global config path for repoRoot.
func (r *Resolver) GlobalPath(repoRoot string) string {
	return GlobalPath(r.GlobalDir, repoRoot)
}

// Find returns the first existing candidate for repoRoot, or false if none
// exists.
func (r *Resolver) Find(repoRoot string) (Candidate, bool, error) {
	for _, c := range r.Candidates(repoRoot) {
		info, err := os.Stat(c.Path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Candidate{}, false, model.PathError(model.KindConfigInvalid, c.Path,
				fmt.Sprintf("cannot access config %s", c.Path), err)
		}
		if info.IsDir() {
			return Candidate{}, false, model.PathError(model.KindConfigInvalid, c.Path,
				fmt.Sprintf("config path %s is a directory", c.Path), nil)
		}
		return c, true, nil
	}
	return Candidate{}, false, nil
}

// Resolve returns the effective configuration for repoRoot.
//
// Errors are *model.Error values: ConfigNotFound when no candidate exists,
// ConfigInvalid when the winning file cannot be decoded or fails validation.
func (r *Resolver) Resolve(repoRoot string) (*model.Config, error) {
	if r.Override != "" {
		return r.Load(Candidate{Path: r.Override, Scope: model.ScopeExplicit}, repoRoot)
	}

	c, ok, err := r.Find(repoRoot)
	if err != nil {
		return nil, err
	}
	if !ok {
		local := LocalPath(repoRoot)
		return nil, model.PathError(model.KindConfigNotFound, local,
			fmt.Sprintf("no vaihde config found: create %s or %s", local, r.GlobalPath(repoRoot)), nil)
	}

	r.logger.Debug("using config", zap.String("path", c.Path), zap.Stringer("scope", c.Scope))
	return r.Load(c, repoRoot)
}

// Load reads and validates the configuration file described by c.
// Relative worktree roots are resolved against repoRoot.
func (r *Resolver) Load(c Candidate, repoRoot string) (*model.Config, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		kind := model.KindConfigInvalid
		if errors.Is(err, fs.ErrNotExist) {
			kind = model.KindConfigNotFound
		}
		return nil, model.PathError(kind, c.Path, fmt.Sprintf("cannot read config %s", c.Path), err)
	}

	fc, unknown, err := decodeFile(c.Path, data)
	if err != nil {
		return nil, model.PathError(model.KindConfigInvalid, c.Path,
			fmt.Sprintf("failed to parse %s", c.Path), err)
	}
	for _, key := range unknown {
		r.logger.Warn("ignoring unknown config key", zap.String("key", key), zap.String("path", c.Path))
	}

	cfg, err := r.validate(fc, c, repoRoot)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate turns the decoded file into a model.Config, applying explicit
// defaults and rejecting values that would escape the worktree.
func (r *Resolver) validate(fc *fileConfig, c Candidate, repoRoot string) (*model.Config, error) {
	invalid := func(format string, args ...any) error {
		return model.PathError(model.KindConfigInvalid, c.Path,
			fmt.Sprintf("%s: %s", c.Path, fmt.Sprintf(format, args...)), nil)
	}

	root := strings.TrimSpace(fc.WorktreeRoot)
	if root == "" {
		return nil, invalid("missing required 'worktree_root'")
	}
	root = expandHome(root, r.HomeDir)
	if !filepath.IsAbs(root) {
		root = filepath.Join(repoRoot, root)
	}

	cfg := &model.Config{
		WorktreeRoot: filepath.Clean(root),
		CopyFiles:    make([]string, 0, len(fc.Copy.Files)),
		PostCommands: make([]model.CommandSpec, 0, len(fc.PostCommands)),
		Source:       c.Path,
		Scope:        c.Scope,
	}

	for i, f := range fc.Copy.Files {
		rel := filepath.FromSlash(f)
		if !filepath.IsLocal(rel) || filepath.Clean(rel) == "." {
			return nil, invalid("copy.files[%d] %q must be a relative path inside the repository", i, f)
		}
		rel = filepath.Clean(rel)
		if within(cfg.WorktreeRoot, filepath.Join(repoRoot, rel)) {
			return nil, invalid("copy.files[%d] %q contains worktree_root %s", i, f, cfg.WorktreeRoot)
		}
		cfg.CopyFiles = append(cfg.CopyFiles, rel)
	}

	for i, pc := range fc.PostCommands {
		if strings.TrimSpace(pc.Run) == "" {
			return nil, invalid("post_commands[%d] is missing 'run'", i)
		}
		dir := filepath.FromSlash(pc.Dir)
		if dir != "" {
			if !filepath.IsLocal(dir) {
				return nil, invalid("post_commands[%d].dir %q must be a relative path inside the worktree", i, pc.Dir)
			}
			dir = filepath.Clean(dir)
		}
		shell := true
		if pc.Shell != nil {
			shell = *pc.Shell
		}
		cfg.PostCommands = append(cfg.PostCommands, model.CommandSpec{
			Run:   pc.Run,
			Dir:   dir,
			Shell: shell,
			Env:   pc.Env,
		})
	}

	return cfg, nil
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && (rel == "." || filepath.IsLocal(rel))
}
