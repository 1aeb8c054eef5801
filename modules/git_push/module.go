// Package git_push commits the working tree of a repository with a fixed
// author identity and optionally pushes it to its remote. A run that
// produced no file changes still records an empty commit, so the history
// shows every pipeline run.
package git_push

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/epigrid/epigridgo/internal/ctxlog"
	"github.com/epigrid/epigridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'git_push' runner.
type Input struct {
	RepoPath    string `epi:"repo_path"`
	Message     string `epi:"message"`
	AuthorName  string `epi:"author_name"`
	AuthorEmail string `epi:"author_email"`
	Remote      string `epi:"remote"`
	Push        bool   `epi:"push"`
	Username    string `epi:"username"`
	Token       string `epi:"token"`
}

// Deps is an empty struct because this runner does not use any resources.
type Deps struct{}

// Output reports the created commit.
type Output struct {
	Commit string `cty:"commit"`
	Pushed bool   `cty:"pushed"`
}

// OnRunGitPush stages everything in the repository, commits with the fixed
// author identity, and pushes when requested.
func OnRunGitPush(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx)

	repo, err := git.PlainOpen(input.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %q: %w", input.RepoPath, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	if err := worktree.AddGlob("."); err != nil && !errors.Is(err, git.ErrGlobNoMatches) {
		return nil, fmt.Errorf("failed to stage changes: %w", err)
	}

	author := &object.Signature{
		Name:  input.AuthorName,
		Email: input.AuthorEmail,
		When:  time.Now(),
	}
	hash, err := worktree.Commit(input.Message, &git.CommitOptions{
		Author:            author,
		AllowEmptyCommits: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	logger.Info("Commit created.", "hash", hash.String(), "message", input.Message)

	out := &Output{Commit: hash.String()}
	if !input.Push {
		return out, nil
	}

	pushOpts := &git.PushOptions{RemoteName: input.Remote}
	if input.Token != "" {
		username := input.Username
		if username == "" {
			username = "git"
		}
		pushOpts.Auth = &http.BasicAuth{Username: username, Password: input.Token}
	}

	if err := repo.PushContext(ctx, pushOpts); err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			logger.Info("Remote already up to date.")
			out.Pushed = true
			return out, nil
		}
		return nil, fmt.Errorf("failed to push to %q: %w", input.Remote, err)
	}

	logger.Info("Pushed to remote.", "remote", input.Remote)
	out.Pushed = true
	return out, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunGitPush", &registry.RegisteredRunner{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunGitPush,
	})
}
