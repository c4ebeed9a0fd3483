package worktree

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"github.com/shinji-kodama/vaihde/internal/model"
	"github.com/shinji-kodama/vaihde/internal/process"
)

// ErrNotRepository is returned when a directory is not inside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// Info holds metadata about a single git worktree entry as parsed from
// `git worktree list --porcelain` output.
//
// Example porcelain output for a single worktree block:
//
//	worktree /path/to/feature-branch
//	HEAD abc123def456
//	branch refs/heads/feature-branch
type Info struct {
	// Path is the absolute filesystem path to the worktree directory.
	Path string `json:"path"`

	// Branch is the full branch reference (e.g., "refs/heads/main").
	// Empty if the worktree is in a detached HEAD state.
	Branch string `json:"branch,omitempty"`

	// HEAD is the commit SHA that the worktree currently points to.
	HEAD string `json:"head,omitempty"`

	// IsBare marks the entry of a bare repository.
	IsBare bool `json:"bare,omitempty"`

	// Detached marks a worktree with a detached HEAD.
	Detached bool `json:"detached,omitempty"`

	// Locked marks a worktree locked with `git worktree lock`.
	Locked bool `json:"locked,omitempty"`

	// Prunable marks a worktree whose directory no longer exists.
	Prunable bool `json:"prunable,omitempty"`
}

// ShortBranch returns Branch without the refs/heads/ prefix.
func (i Info) ShortBranch() string {
	return strings.TrimPrefix(i.Branch, "refs/heads/")
}

// Request is a caller's ask for a new worktree.
type Request struct {
	// Name is the worktree identifier and directory name. Required.
	Name string

	// Branch is the branch to check out. Defaults to Name.
	Branch string

	// Base is the commit-ish a new branch starts from. Empty means HEAD.
	// Ignored when Branch already exists.
	Base string
}

// GitError reports a failed git invocation together with its diagnostic output.
type GitError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

// Error satisfies the error interface. Git's stderr is included verbatim.
func (e *GitError) Error() string {
	msg := fmt.Sprintf("git %s failed", strings.Join(e.Args, " "))
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Stderr)
	}
	return msg
}

// Unwrap returns the underlying process error.
func (e *GitError) Unwrap() error {
	return e.Err
}

// Manager provides git worktree operations by invoking the git CLI.
type Manager struct {
	runner process.Runner
	logger *zap.Logger
}

// NewManager creates a Manager that runs git through runner.
// A nil logger disables logging.
func NewManager(runner process.Runner, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{runner: runner, logger: logger}
}

// Create provisions the worktree described by req below cfg.WorktreeRoot.
//
// The target path is cfg.WorktreeRoot/req.Name. Validation and the existence
// check happen before git is invoked, so an invalid or already-used name
// never reaches a subprocess. Errors are *model.Error values of kind
// InvalidIdentifier, WorktreeAlreadyExists or WorktreeCreationFailed.
func (m *Manager) Create(ctx context.Context, repoPath string, cfg *model.Config, req Request) (*model.Worktree, error) {
	if err := model.ValidateIdentifier(req.Name); err != nil {
		return nil, err
	}

	branch := req.Branch
	if branch == "" {
		branch = req.Name
	}
	for _, ref := range []string{branch, req.Base} {
		if strings.HasPrefix(ref, "-") {
			return nil, model.NewError(model.KindInvalidIdentifier,
				fmt.Sprintf("invalid ref %q: must not start with '-'", ref))
		}
	}

	target := filepath.Join(cfg.WorktreeRoot, req.Name)
	if _, err := os.Lstat(target); err == nil {
		return nil, model.PathError(model.KindWorktreeAlreadyExists, target,
			fmt.Sprintf("worktree directory already exists: %s", target), nil)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, model.PathError(model.KindWorktreeCreationFailed, target,
			fmt.Sprintf("cannot inspect %s", target), err)
	}

	if err := os.MkdirAll(cfg.WorktreeRoot, 0o755); err != nil {
		return nil, model.PathError(model.KindWorktreeCreationFailed, cfg.WorktreeRoot,
			fmt.Sprintf("cannot create worktree root %s", cfg.WorktreeRoot), err)
	}

	if err := m.Add(ctx, repoPath, branch, target, req.Base); err != nil {
		return nil, model.PathError(model.KindWorktreeCreationFailed, target,
			fmt.Sprintf("failed to create worktree %q", req.Name), err)
	}

	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		resolved = target
	}
	return &model.Worktree{Name: req.Name, Branch: branch, Path: resolved}, nil
}

// Add creates a new git worktree at worktreePath.
//
// This method handles two cases:
//  1. If the branch does NOT already exist: creates a new branch from baseBranch
//     using `git worktree add -b <branch> <worktreePath> <baseBranch>`.
//  2. If the branch already exists: checks out the existing branch into the
//     new worktree using `git worktree add <worktreePath> <branch>`.
//
// If baseBranch is empty, HEAD is used as the starting point for the new branch.
func (m *Manager) Add(ctx context.Context, repoPath, branch, worktreePath, baseBranch string) error {
	if m.BranchExists(ctx, repoPath, branch) {
		m.logger.Debug("checking out existing branch", zap.String("branch", branch))
		_, err := m.git(ctx, repoPath, "worktree", "add", worktreePath, branch)
		return err
	}

	args := []string{"worktree", "add", "-b", branch, worktreePath}
	if baseBranch != "" {
		args = append(args, baseBranch)
	}
	_, err := m.git(ctx, repoPath, args...)
	return err
}

// List returns information about all worktrees of the repository at repoPath.
func (m *Manager) List(ctx context.Context, repoPath string) ([]Info, error) {
	output, err := m.git(ctx, repoPath, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parsePorcelainOutput(output), nil
}

// RepoRoot returns the top-level directory of the work tree containing dir.
//
// For a linked worktree this is the linked worktree's root, not the main
// checkout; use CanonicalWorktree for that.
func (m *Manager) RepoRoot(ctx context.Context, dir string) (string, error) {
	output, err := m.git(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrNotRepository, dir, err)
	}
	return strings.TrimSpace(output), nil
}

// CanonicalWorktree returns the path of the main worktree of the repository
// containing dir. Git always lists the main worktree first; when the
// repository is bare there is no main checkout and the work tree containing
// dir is used instead.
func (m *Manager) CanonicalWorktree(ctx context.Context, dir string) (string, error) {
	repoRoot, err := m.RepoRoot(ctx, dir)
	if err != nil {
		return "", err
	}

	worktrees, err := m.List(ctx, repoRoot)
	if err != nil {
		return "", err
	}
	if len(worktrees) > 0 && !worktrees[0].IsBare && worktrees[0].Path != "" {
		return worktrees[0].Path, nil
	}
	return repoRoot, nil
}

// BranchExists checks whether refs/heads/<branch> exists in the repository.
//
// The lookup is done with go-git, which reads refs and packed-refs without a
// subprocess. Repositories go-git cannot open (unsupported extensions, for
// example) fall back to `git rev-parse --verify`.
func (m *Manager) BranchExists(ctx context.Context, repoPath, branch string) bool {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err == nil {
		_, refErr := repo.Reference(plumbing.NewBranchReferenceName(branch), false)
		if refErr == nil {
			return true
		}
		if errors.Is(refErr, plumbing.ErrReferenceNotFound) {
			return false
		}
		err = refErr
	}
	m.logger.Debug("go-git lookup failed, falling back to git", zap.Error(err))

	_, err = m.git(ctx, repoPath, "rev-parse", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

// git executes a git command in repoPath and returns its stdout.
//
// The repoPath parameter is passed to git via the -C flag, which causes git
// to change to that directory before doing anything else. On failure a
// *GitError carrying git's stderr is returned.
func (m *Manager) git(ctx context.Context, repoPath string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", repoPath}, args...)

	res, err := m.runner.Run(ctx, process.Spec{Name: "git", Args: fullArgs})
	if err != nil {
		return "", &GitError{
			Args:     args,
			ExitCode: res.ExitCode,
			Stderr:   strings.TrimSpace(res.Stderr),
			Err:      err,
		}
	}
	return res.Stdout, nil
}

// parsePorcelainOutput parses the output of `git worktree list --porcelain`
// into a slice of Info structs.
//
// The porcelain format uses blank lines to separate worktree blocks.
// Each block contains key-value pairs (space-separated) and optional
// standalone markers like "bare", "detached", "locked" or "prunable".
func parsePorcelainOutput(output string) []Info {
	var worktrees []Info

	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")

	var current *Info
	for _, line := range lines {
		if line == "" {
			if current != nil {
				worktrees = append(worktrees, *current)
				current = nil
			}
			continue
		}

		key, value, _ := strings.Cut(line, " ")
		if key == "worktree" {
			current = &Info{Path: value}
			continue
		}
		if current == nil {
			continue
		}

		switch key {
		case "HEAD":
			current.HEAD = value
		case "branch":
			current.Branch = value
		case "bare":
			current.IsBare = true
		case "detached":
			current.Detached = true
		case "locked":
			current.Locked = true
		case "prunable":
			current.Prunable = true
		}
	}

	if current != nil {
		worktrees = append(worktrees, *current)
	}

	return worktrees
}
