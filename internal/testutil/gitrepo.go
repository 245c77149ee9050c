// Package testutil builds throwaway git repositories for tests.
package testutil

import (
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// BaseTime is the author/committer time of the first commit. Each further
// commit is one minute later so committer-time ordering is deterministic.
var BaseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// GitRepo is a repository on disk under t.TempDir().
type GitRepo struct {
	t    testing.TB
	Dir  string
	Repo *gogit.Repository
	n    int
}

// Person is a commit author.
type Person struct {
	Name  string
	Email string
}

// DefaultAuthor is used when CommitAs is not called.
var DefaultAuthor = Person{Name: "Alice Example", Email: "alice@example.com"}

// NewGitRepo initialises an empty repository.
func NewGitRepo(t testing.TB) *GitRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	return &GitRepo{t: t, Dir: dir, Repo: repo}
}

// Commit creates an empty commit on HEAD by DefaultAuthor and returns its id.
func (g *GitRepo) Commit(message string) string {
	g.t.Helper()
	return g.CommitAs(DefaultAuthor, message)
}

// CommitAs creates an empty commit authored by p.
func (g *GitRepo) CommitAs(p Person, message string) string {
	g.t.Helper()
	return g.commit(p, p, message, nil)
}

// CommitWithCommitter creates a commit whose committer differs from the author.
func (g *GitRepo) CommitWithCommitter(author, committer Person, message string) string {
	g.t.Helper()
	return g.commit(author, committer, message, nil)
}

// Merge creates a merge commit with HEAD and other as parents.
func (g *GitRepo) Merge(other, message string) string {
	g.t.Helper()
	head, err := g.Repo.Head()
	require.NoError(g.t, err)
	return g.commit(DefaultAuthor, DefaultAuthor, message, []plumbing.Hash{head.Hash(), plumbing.NewHash(other)})
}

func (g *GitRepo) commit(author, committer Person, message string, parents []plumbing.Hash) string {
	wt, err := g.Repo.Worktree()
	require.NoError(g.t, err)

	when := BaseTime.Add(time.Duration(g.n) * time.Minute)
	g.n++

	hash, err := wt.Commit(message, &gogit.CommitOptions{
		AllowEmptyCommits: true,
		Author:            &object.Signature{Name: author.Name, Email: author.Email, When: when},
		Committer:         &object.Signature{Name: committer.Name, Email: committer.Email, When: when},
		Parents:           parents,
	})
	require.NoError(g.t, err)
	return hash.String()
}

// Branch creates a branch at commit without checking it out.
func (g *GitRepo) Branch(name, commit string) {
	g.t.Helper()
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), plumbing.NewHash(commit))
	require.NoError(g.t, g.Repo.Storer.SetReference(ref))
}

// Checkout moves HEAD to the named branch.
func (g *GitRepo) Checkout(branch string) {
	g.t.Helper()
	wt, err := g.Repo.Worktree()
	require.NoError(g.t, err)
	require.NoError(g.t, wt.Checkout(&gogit.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(branch)}))
}

// Tag creates a lightweight tag.
func (g *GitRepo) Tag(name, commit string) {
	g.t.Helper()
	_, err := g.Repo.CreateTag(name, plumbing.NewHash(commit), nil)
	require.NoError(g.t, err)
}

// AnnotatedTag creates an annotated tag.
func (g *GitRepo) AnnotatedTag(name, commit, message string) {
	g.t.Helper()
	_, err := g.Repo.CreateTag(name, plumbing.NewHash(commit), &gogit.CreateTagOptions{
		Tagger:  &object.Signature{Name: DefaultAuthor.Name, Email: DefaultAuthor.Email, When: BaseTime},
		Message: message,
	})
	require.NoError(g.t, err)
}
