// Package gitops drives the git worktree the execution backend edits:
// branch preparation before a job and push after it. The execution engine
// itself never touches the worktree.
package gitops

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Worktree runs git operations against one checkout.
type Worktree struct {
	path string
}

// NewWorktree creates git operations for a checkout path.
func NewWorktree(path string) *Worktree {
	return &Worktree{path: path}
}

// Path returns the checkout path.
func (w *Worktree) Path() string {
	return w.path
}

func (w *Worktree) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = w.path
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, output)
	}
	return strings.TrimSpace(string(output)), nil
}

// CreateBranch creates and checks out a new branch.
func (w *Worktree) CreateBranch(ctx context.Context, name string) error {
	_, err := w.run(ctx, "checkout", "-b", name)
	return err
}

// SwitchBranch checks out an existing branch.
func (w *Worktree) SwitchBranch(ctx context.Context, name string) error {
	_, err := w.run(ctx, "checkout", name)
	return err
}

// CurrentBranch returns the checked-out branch name.
func (w *Worktree) CurrentBranch(ctx context.Context) (string, error) {
	return w.run(ctx, "branch", "--show-current")
}

// HeadCommit returns the SHA of the current HEAD commit.
func (w *Worktree) HeadCommit(ctx context.Context) (string, error) {
	return w.run(ctx, "rev-parse", "HEAD")
}

// HasUncommittedChanges reports whether the worktree is dirty.
func (w *Worktree) HasUncommittedChanges(ctx context.Context) (bool, error) {
	out, err := w.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// Pull fetches and merges the given branch from origin.
func (w *Worktree) Pull(ctx context.Context, branch string) error {
	_, err := w.run(ctx, "pull", "origin", branch)
	return err
}

// Push pushes the given branch to origin, setting the upstream.
func (w *Worktree) Push(ctx context.Context, branch string) error {
	_, err := w.run(ctx, "push", "-u", "origin", branch)
	return err
}

// PrepareBranch readies the worktree for a job: refuses a dirty tree,
// switches to the base branch, pulls it, and creates the job branch.
// A pull failure is non-fatal so offline checkouts still work.
func (w *Worktree) PrepareBranch(ctx context.Context, baseBranch, jobBranch string) error {
	dirty, err := w.HasUncommittedChanges(ctx)
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("worktree %s has uncommitted changes", w.path)
	}

	if err := w.SwitchBranch(ctx, baseBranch); err != nil {
		return err
	}
	_ = w.Pull(ctx, baseBranch)

	return w.CreateBranch(ctx, jobBranch)
}
