package provision

import (
	"fmt"

	"github.com/shinji-kodama/vaihde/internal/model"
)

// Stage names one step of the provisioning workflow.
type Stage string

const (
	// StageConfig locates the repository and resolves its configuration.
	StageConfig Stage = "config"

	// StageCreate creates the git worktree.
	StageCreate Stage = "create"

	// StageSeed copies files from the canonical worktree.
	StageSeed Stage = "seed"

	// StageCommands runs the post-commands.
	StageCommands Stage = "commands"
)

// String returns the string representation of Stage.
func (s Stage) String() string {
	return string(s)
}

// State is the position of a Provisioner in the workflow.
//
//	Idle → ConfigResolved → WorktreeCreated → FilesSeeded → CommandsRun → Done
//
// Any stage may instead move the Provisioner to Failed, which is terminal.
type State int

const (
	StateIdle State = iota
	StateConfigResolved
	StateWorktreeCreated
	StateFilesSeeded
	StateCommandsRun
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:            "Idle",
	StateConfigResolved:  "ConfigResolved",
	StateWorktreeCreated: "WorktreeCreated",
	StateFilesSeeded:     "FilesSeeded",
	StateCommandsRun:     "CommandsRun",
	StateDone:            "Done",
	StateFailed:          "Failed",
}

// String returns the string representation of State.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// StageError reports which stage of the workflow failed.
type StageError struct {
	Stage Stage
	Err   error

	// Worktree is the worktree left on disk when a stage after creation
	// failed, nil otherwise.
	Worktree *model.Worktree
}

// Error satisfies the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *StageError) Unwrap() error {
	return e.Err
}
