// Package gitls enumerates the files git knows about in a repository.
// The git binary is invoked through a CommandRunner interface so tests can
// substitute fakes without a real repository.
package gitls

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrGitNotFound indicates the git binary is not installed or not on PATH.
// This is fatal for the whole run.
var ErrGitNotFound = errors.New("git command not found")

// ErrNotARepository indicates the queried path is not inside a git
// repository. The caller skips that root and continues.
var ErrNotARepository = errors.New("not a git repository")

// CommandRunner executes an external command and returns its stdout and
// stderr separately.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes the command, capturing stdout and stderr.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Lister returns the tracked and untracked-but-not-ignored file paths of
// a repository, relative to its root.
type Lister interface {
	ListFiles(ctx context.Context, repoRoot string) ([]string, error)
}

// GitLister implements Lister by shelling out to git ls-files.
type GitLister struct {
	// Runner executes git commands (defaults to ExecRunner if nil).
	Runner CommandRunner
}

// NewGitLister creates a GitLister using the real git binary.
func NewGitLister() *GitLister {
	return &GitLister{Runner: ExecRunner{}}
}

// NewGitListerWithRunner creates a GitLister with a custom command runner.
// Useful for testing.
func NewGitListerWithRunner(runner CommandRunner) *GitLister {
	return &GitLister{Runner: runner}
}

// ListFiles returns the de-duplicated list of paths git sees in repoRoot:
// cached plus others, minus standard ignores, excluding empty directories.
func (l *GitLister) ListFiles(ctx context.Context, repoRoot string) ([]string, error) {
	runner := l.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	stdout, stderr, err := runner.Run(ctx, "git",
		"-C", repoRoot,
		"ls-files", "--cached", "--others", "--exclude-standard",
		"-z", "--no-empty-directory",
	)
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: is git installed?", ErrGitNotFound)
		}
		lowered := strings.ToLower(stderr)
		if strings.Contains(lowered, "not a git repository") || strings.Contains(lowered, "not a git dir") {
			return nil, fmt.Errorf("%s: %w", repoRoot, ErrNotARepository)
		}
		return nil, fmt.Errorf("git ls-files failed for %s: %w: %s", repoRoot, err, strings.TrimSpace(stderr))
	}

	seen := make(map[string]bool)
	var files []string
	for _, p := range strings.Split(stdout, "\x00") {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		files = append(files, p)
	}
	return files, nil
}
