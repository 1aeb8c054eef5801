package git_push

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	// Seed an initial commit so HEAD exists.
	path := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(path, []byte("data\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("init", &git.CommitOptions{
		Author: &object.Signature{Name: "init", Email: "init@test"},
	})
	require.NoError(t, err)
	return dir
}

func TestOnRunGitPush_CommitsChanges(t *testing.T) {
	dir := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.csv"), []byte("a,b\n"), 0o644))

	out, err := OnRunGitPush(context.Background(), &Deps{}, &Input{
		RepoPath:    dir,
		Message:     "Nightly data refresh",
		AuthorName:  "epigrid-bot",
		AuthorEmail: "bot@epigrid.dev",
	})
	require.NoError(t, err)
	require.NotEmpty(t, out.Commit)
	assert.False(t, out.Pushed)

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "Nightly data refresh", commit.Message)
	assert.Equal(t, "epigrid-bot", commit.Author.Name)
	assert.Equal(t, "bot@epigrid.dev", commit.Author.Email)
}

func TestOnRunGitPush_AllowsEmptyCommit(t *testing.T) {
	dir := initRepo(t)

	out, err := OnRunGitPush(context.Background(), &Deps{}, &Input{
		RepoPath:    dir,
		Message:     "Nightly data refresh",
		AuthorName:  "epigrid-bot",
		AuthorEmail: "bot@epigrid.dev",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Commit)
}

func TestOnRunGitPush_MissingRepo(t *testing.T) {
	_, err := OnRunGitPush(context.Background(), &Deps{}, &Input{
		RepoPath: t.TempDir(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open repository")
}
