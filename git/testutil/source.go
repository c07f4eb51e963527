// Package testutil provides helpers for tests that fetch from real
// repositories. Source repositories are created on disk with go-git, so
// they can be fetched through the file transport without any network.
package testutil

import (
	"path"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// SourceRepo is a non-bare repository on disk that plays the remote.
type SourceRepo struct {
	// Path is the absolute path of the repository; it doubles as a remote URL.
	Path string

	t    testing.TB
	repo *gogit.Repository
	fs   billy.Filesystem
}

// NewSourceRepo creates a repository at dir whose HEAD points at branch and
// commits files to it. dir should end in ".git" when the repository is
// addressed through a virtual path.
//
// Example:
//
//	src := testutil.NewSourceRepo(t, filepath.Join(t.TempDir(), "org", "repo.git"),
//	    testutil.TestBranchMain, testutil.DefaultFiles())
//	hash := src.Commit(map[string]string{"new.txt": "hi"}, testutil.TestFeatureCommit)
func NewSourceRepo(t testing.TB, dir, branch string, files map[string]string) *SourceRepo {
	t.Helper()

	repo, err := gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(branch)},
	})
	require.NoError(t, err, "failed to init source repository")

	wt, err := repo.Worktree()
	require.NoError(t, err)

	s := &SourceRepo{Path: dir, t: t, repo: repo, fs: wt.Filesystem}
	if len(files) > 0 {
		s.Commit(files, TestInitialCommit)
	}
	return s
}

// Commit writes files (path → content) and commits them, returning the new
// commit hash. Parent directories are created as needed.
func (s *SourceRepo) Commit(files map[string]string, message string) plumbing.Hash {
	s.t.Helper()

	wt, err := s.repo.Worktree()
	require.NoError(s.t, err)

	for name, content := range files {
		require.NoError(s.t, s.fs.MkdirAll(path.Dir(name), 0o755))
		require.NoError(s.t, util.WriteFile(s.fs, name, []byte(content), 0o644))
		_, err := wt.Add(name)
		require.NoError(s.t, err)
	}
	return s.commit(wt, message)
}

// Remove deletes files and commits the removal.
func (s *SourceRepo) Remove(message string, names ...string) plumbing.Hash {
	s.t.Helper()

	wt, err := s.repo.Worktree()
	require.NoError(s.t, err)

	for _, name := range names {
		_, err := wt.Remove(name)
		require.NoError(s.t, err)
	}
	return s.commit(wt, message)
}

// Symlink commits a symbolic link at name pointing to target.
func (s *SourceRepo) Symlink(name, target, message string) plumbing.Hash {
	s.t.Helper()

	wt, err := s.repo.Worktree()
	require.NoError(s.t, err)

	require.NoError(s.t, s.fs.MkdirAll(path.Dir(name), 0o755))
	require.NoError(s.t, s.fs.Symlink(target, name))
	_, err = wt.Add(name)
	require.NoError(s.t, err)
	return s.commit(wt, message)
}

// Branch creates branch at the current HEAD commit without checking it out.
func (s *SourceRepo) Branch(branch string) plumbing.Hash {
	s.t.Helper()

	head := s.Head()
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(branch), head)
	require.NoError(s.t, s.repo.Storer.SetReference(ref))
	return head
}

// Head returns the commit HEAD points at.
func (s *SourceRepo) Head() plumbing.Hash {
	s.t.Helper()

	head, err := s.repo.Head()
	require.NoError(s.t, err)
	return head.Hash()
}

// Repository exposes the underlying go-git repository.
func (s *SourceRepo) Repository() *gogit.Repository {
	return s.repo
}

func (s *SourceRepo) commit(wt *gogit.Worktree, message string) plumbing.Hash {
	hash, err := wt.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  TestAuthor,
			Email: TestEmail,
			When:  time.Now(),
		},
	})
	require.NoError(s.t, err, "failed to commit to source repository")
	return hash
}
