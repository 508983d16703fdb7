// Package git publishes generated artifacts so the delivery controller's
// next reconciliation can see them.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/stackinfra/infractl/internal/bootstrap"
)

// CommandRunner executes a git command and returns its combined output.
// Injectable for tests.
type CommandRunner func(ctx context.Context, dir string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// PublishError indicates the artifacts could not be pushed upstream. It is
// fatal: sync orchestration must not run against artifacts the controller
// cannot fetch.
type PublishError struct {
	Step  string
	Cause error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish failed: %s: %v", e.Step, e.Cause)
}

func (e *PublishError) Unwrap() error { return e.Cause }

// Commit is the result of a publish.
type Commit struct {
	// Hash is the commit hash, empty for a NoOp.
	Hash string

	// NoOp is true when the working tree already matched the last commit
	// and nothing was published.
	NoOp bool
}

// Publisher stages, commits, and pushes generated artifact paths.
type Publisher struct {
	root     string
	run      CommandRunner
	observer bootstrap.Observer
}

// NewPublisher creates a Publisher for the repository at root.
func NewPublisher(root string, observer bootstrap.Observer) *Publisher {
	return &Publisher{root: root, run: execRunner, observer: observer}
}

// RepoRoot resolves the enclosing git repository root.
func RepoRoot(ctx context.Context) (string, error) {
	out, err := execRunner(ctx, "", "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("not inside a git repository: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Clean reports whether the given paths show no difference against the last
// committed version.
func (p *Publisher) Clean(ctx context.Context, paths []string) (bool, error) {
	args := append([]string{"status", "--porcelain", "--"}, paths...)
	out, err := p.run(ctx, p.root, args...)
	if err != nil {
		return false, &PublishError{Step: "status", Cause: err}
	}
	return strings.TrimSpace(string(out)) == "", nil
}

// Publish stages exactly the given paths and pushes a commit with the given
// message. An unchanged working tree returns a NoOp commit, never an empty
// commit and never an error.
func (p *Publisher) Publish(ctx context.Context, paths []string, message string) (*Commit, error) {
	clean, err := p.Clean(ctx, paths)
	if err != nil {
		return nil, err
	}
	if clean {
		p.observer.Printf("artifacts unchanged, nothing to publish")
		return &Commit{NoOp: true}, nil
	}

	addArgs := append([]string{"add", "--"}, paths...)
	if _, err := p.run(ctx, p.root, addArgs...); err != nil {
		return nil, &PublishError{Step: "stage", Cause: err}
	}

	if _, err := p.run(ctx, p.root, "commit", "-m", message); err != nil {
		return nil, &PublishError{Step: "commit", Cause: err}
	}

	hashOut, err := p.run(ctx, p.root, "rev-parse", "HEAD")
	if err != nil {
		return nil, &PublishError{Step: "resolve commit", Cause: err}
	}
	hash := strings.TrimSpace(string(hashOut))

	if _, err := p.run(ctx, p.root, "push"); err != nil {
		return nil, &PublishError{Step: "push", Cause: err}
	}

	p.observer.Printf("published %s", hash)
	return &Commit{Hash: hash}, nil
}
