// Package worktree provides the git integration for vaihde.
//
// Mutating operations (git worktree add) are performed by invoking the git
// binary through the process package, so vaihde behaves exactly like the
// git the user runs in their terminal. Read-only branch lookups go through
// go-git first and fall back to the git binary when go-git cannot open the
// repository.
//
// The Manager provides methods for creating and listing worktrees, and for
// discovering the repository root and the canonical (main) worktree.
package worktree
