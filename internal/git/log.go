package git

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// Signature identifies an author or committer.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Commit is the subset of a git commit the changelog needs.
type Commit struct {
	Hash        string
	Message     string
	Author      Signature
	Committer   Signature
	ParentCount int
}

// ShortHash returns the first seven characters of the commit id.
func (c Commit) ShortHash() string {
	if len(c.Hash) > 7 {
		return c.Hash[:7]
	}
	return c.Hash
}

// Time is the committer time, used for ordering.
func (c Commit) Time() time.Time {
	return c.Committer.When
}

// IsMerge reports whether the commit has more than one parent.
func (c Commit) IsMerge() bool {
	return c.ParentCount > 1
}

// CommitLog returns commits reachable from toInclusive but not from
// fromExclusive, newest first. An empty fromExclusive walks the whole history;
// an empty toInclusive means HEAD.
func (r *Repository) CommitLog(fromExclusive, toInclusive string) ([]Commit, error) {
	if toInclusive == "" {
		toInclusive = "HEAD"
	}
	to, err := r.resolveHash(toInclusive)
	if err != nil {
		return nil, err
	}

	exclude := make(map[plumbing.Hash]struct{})
	if fromExclusive != "" {
		from, err := r.resolveHash(fromExclusive)
		if err != nil {
			return nil, err
		}
		if err := r.walk(from, func(c *object.Commit) error {
			exclude[c.Hash] = struct{}{}
			return nil
		}); err != nil {
			return nil, fmt.Errorf("walking history of %s: %w", fromExclusive, err)
		}
	}

	var commits []Commit
	err = r.walk(to, func(c *object.Commit) error {
		if _, skip := exclude[c.Hash]; skip {
			return nil
		}
		commits = append(commits, toCommit(c))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking history of %s: %w", toInclusive, err)
	}

	logDebug("[git] CommitLog %s..%s: %d commits", fromExclusive, toInclusive, len(commits))
	return commits, nil
}

// walk visits every commit reachable from start ordered by committer time.
// Missing parents of a shallow clone end the walk instead of failing it.
func (r *Repository) walk(start plumbing.Hash, fn func(*object.Commit) error) error {
	iter, err := r.repo.Log(&git.LogOptions{From: start, Order: git.LogOrderCommitterTime})
	if err != nil {
		return err
	}
	defer iter.Close()

	err = iter.ForEach(fn)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		logDebug("[git] history truncated below %s (shallow clone?)", start)
		return nil
	}
	if errors.Is(err, storer.ErrStop) {
		return nil
	}
	return err
}

func toCommit(c *object.Commit) Commit {
	return Commit{
		Hash:    c.Hash.String(),
		Message: strings.TrimRight(c.Message, "\n"),
		Author: Signature{
			Name:  c.Author.Name,
			Email: c.Author.Email,
			When:  c.Author.When,
		},
		Committer: Signature{
			Name:  c.Committer.Name,
			Email: c.Committer.Email,
			When:  c.Committer.When,
		},
		ParentCount: c.NumParents(),
	}
}
