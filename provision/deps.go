package provision

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/Yoga07/stagehand/pipeline"
)

// DepFetcher fetches an external source dependency into its destination.
// Implementations must be idempotent: fetching an already-present dependency
// refreshes it instead of failing.
type DepFetcher interface {
	Fetch(ctx context.Context, dep pipeline.SourceDep) error
}

// GitFetcher fetches source dependencies with git. Destinations are resolved
// against a base directory, conventionally a sibling of the workspace so a
// dependency checkout sits next to the repository under build.
type GitFetcher struct {
	baseDir string
}

// NewGitFetcher creates a GitFetcher placing dependencies under baseDir.
func NewGitFetcher(baseDir string) *GitFetcher {
	return &GitFetcher{baseDir: baseDir}
}

// Fetch implements DepFetcher. A missing destination is cloned; an existing
// clone is fetched and, when a ref is pinned, checked out again. Both paths
// leave the destination in the same state, so retries are safe.
func (f *GitFetcher) Fetch(ctx context.Context, dep pipeline.SourceDep) error {
	dest := filepath.Join(f.baseDir, dep.Path)

	repo, err := git.PlainOpen(dest)
	switch {
	case err == nil:
		return f.refresh(ctx, repo, dep)
	case errors.Is(err, git.ErrRepositoryNotExists):
		return f.clone(ctx, dest, dep)
	default:
		return WrapErrorf(err, "opening %q", dest)
	}
}

func (f *GitFetcher) clone(ctx context.Context, dest string, dep pipeline.SourceDep) error {
	opts := &git.CloneOptions{URL: dep.Repo}
	if dep.Ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(dep.Ref)
		opts.SingleBranch = true
	}
	if _, err := git.PlainCloneContext(ctx, dest, false, opts); err != nil {
		return WrapErrorf(err, "cloning %q", dep.Repo)
	}
	return nil
}

func (f *GitFetcher) refresh(ctx context.Context, repo *git.Repository, dep pipeline.SourceDep) error {
	err := repo.FetchContext(ctx, &git.FetchOptions{})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return WrapErrorf(err, "fetching %q", dep.Repo)
	}

	if dep.Ref == "" {
		return nil
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return WrapErrorf(err, "worktree for %q", dep.Repo)
	}
	err = worktree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(dep.Ref),
	})
	if err != nil {
		return WrapErrorf(err, "checking out %q of %q", dep.Ref, dep.Repo)
	}
	return nil
}
