// Package provision runs the worktree provisioning workflow: resolve the
// configuration, create the worktree, seed it with files from the canonical
// worktree, then run the post-commands.
//
// Each stage runs only if the previous one succeeded. Nothing is rolled back
// on failure: a worktree whose seeding or commands failed stays on disk for
// the operator to inspect.
package provision

import (
	"context"

	"go.uber.org/zap"

	"github.com/shinji-kodama/vaihde/internal/model"
	"github.com/shinji-kodama/vaihde/internal/worktree"
)

// ConfigSource resolves the configuration of a repository.
type ConfigSource interface {
	Resolve(repoRoot string) (*model.Config, error)
}

// VCS discovers repositories and creates worktrees.
type VCS interface {
	CanonicalWorktree(ctx context.Context, dir string) (string, error)
	Create(ctx context.Context, repoPath string, cfg *model.Config, req worktree.Request) (*model.Worktree, error)
}

// Seeder copies files between worktrees.
type Seeder interface {
	Seed(ctx context.Context, canonical, dest string, files []string) error
}

// CommandRunner runs post-commands inside a worktree.
type CommandRunner interface {
	Run(ctx context.Context, worktreePath string, cmds []model.CommandSpec) error
}

// Request describes one provisioning run.
type Request struct {
	// Dir is any directory inside the repository, usually the current
	// working directory.
	Dir string

	// Name is the worktree identifier.
	Name string

	// Branch overrides the branch name (default: Name).
	Branch string

	// Base is the start point of a new branch (default: HEAD).
	Base string
}

// Provisioner sequences the workflow stages. A Provisioner is meant for a
// single run; State reports how far that run got.
type Provisioner struct {
	config   ConfigSource
	vcs      VCS
	seeder   Seeder
	commands CommandRunner
	logger   *zap.Logger

	state State
}

// New creates a Provisioner. A nil logger disables logging.
func New(config ConfigSource, vcs VCS, seeder Seeder, commands CommandRunner, logger *zap.Logger) *Provisioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{
		config:   config,
		vcs:      vcs,
		seeder:   seeder,
		commands: commands,
		logger:   logger,
		state:    StateIdle,
	}
}

// State returns the current workflow state.
func (p *Provisioner) State() State {
	return p.state
}

// Provision runs every stage for req and returns the new worktree.
// Errors are always *StageError values.
func (p *Provisioner) Provision(ctx context.Context, req Request) (*model.Worktree, error) {
	p.state = StateIdle
	log := p.logger.With(zap.String("name", req.Name))

	// The name is checked before any git call; it belongs to the create stage.
	if err := model.ValidateIdentifier(req.Name); err != nil {
		return nil, p.fail(StageCreate, nil, err)
	}

	// Stage 1: canonical worktree and configuration.
	log.Debug("resolving configuration", zap.String("dir", req.Dir))
	canonical, err := p.vcs.CanonicalWorktree(ctx, req.Dir)
	if err != nil {
		return nil, p.fail(StageConfig, nil, err)
	}
	cfg, err := p.config.Resolve(canonical)
	if err != nil {
		return nil, p.fail(StageConfig, nil, err)
	}
	p.state = StateConfigResolved
	log.Info("configuration resolved",
		zap.String("source", cfg.Source),
		zap.Stringer("scope", cfg.Scope),
		zap.String("worktree_root", cfg.WorktreeRoot))

	// Stage 2: git worktree.
	log.Debug("creating worktree", zap.String("repo", canonical))
	wt, err := p.vcs.Create(ctx, canonical, cfg, worktree.Request{
		Name:   req.Name,
		Branch: req.Branch,
		Base:   req.Base,
	})
	if err != nil {
		return nil, p.fail(StageCreate, nil, err)
	}
	p.state = StateWorktreeCreated
	log.Info("worktree created", zap.String("path", wt.Path), zap.String("branch", wt.Branch))

	// Stage 3: seed files.
	log.Debug("seeding files", zap.Int("count", len(cfg.CopyFiles)))
	if err := p.seeder.Seed(ctx, canonical, wt.Path, cfg.CopyFiles); err != nil {
		return nil, p.fail(StageSeed, wt, err)
	}
	p.state = StateFilesSeeded
	log.Info("files seeded", zap.Strings("files", cfg.CopyFiles))

	// Stage 4: post-commands.
	log.Debug("running post-commands", zap.Int("count", len(cfg.PostCommands)))
	if err := p.commands.Run(ctx, wt.Path, cfg.PostCommands); err != nil {
		return nil, p.fail(StageCommands, wt, err)
	}
	p.state = StateCommandsRun
	log.Info("post-commands finished", zap.Int("count", len(cfg.PostCommands)))

	p.state = StateDone
	return wt, nil
}

func (p *Provisioner) fail(stage Stage, wt *model.Worktree, err error) error {
	p.state = StateFailed
	p.logger.Debug("stage failed", zap.Stringer("stage", stage), zap.Error(err))
	return &StageError{Stage: stage, Err: err, Worktree: wt}
}
