// Package git provides the version-control access relsync needs: tag listing
// with peeled commit ids, commit log walking between two revisions, local tag
// creation and deletion, and shallow-clone detection. It uses the go-git
// library for every operation except signed tags, which fall back to the git
// CLI because go-git cannot reach the user's signing agent.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// debugLogger is a function that logs debug messages when debug mode is enabled.
// By default, it's a no-op. Set it via SetDebugLogger to enable debug output.
var debugLogger func(format string, args ...any)

// SetDebugLogger configures the debug logger for git operations.
// Pass nil to disable debug logging.
func SetDebugLogger(logger func(format string, args ...any)) {
	debugLogger = logger
}

// logDebug logs a debug message if the debug logger is set.
func logDebug(format string, args ...any) {
	if debugLogger != nil {
		debugLogger(format, args...)
	}
}

// Repository wraps an opened go-git repository.
type Repository struct {
	repo *git.Repository
	root string
}

// Open opens the repository containing path, walking up to the .git
// directory. An empty path means the current working directory.
func Open(path string) (*Repository, error) {
	if path == "" {
		var err error
		path, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting current directory: %w", err)
		}
	}

	logDebug("[git] opening repository at %s", path)

	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", path, err)
	}

	root := path
	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}

	logDebug("[git] repository opened successfully (root %s)", root)
	return &Repository{repo: repo, root: root}, nil
}

// Wrap adopts an already opened go-git repository (used with in-memory
// repositories in tests).
func Wrap(repo *git.Repository, root string) *Repository {
	return &Repository{repo: repo, root: root}
}

// Root returns the worktree root directory.
func (r *Repository) Root() string {
	return r.root
}

// CurrentBranch returns the name of the checked out branch.
// Returns empty string if in detached HEAD state.
func (r *Repository) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("getting HEAD reference: %w", err)
	}

	if !head.Name().IsBranch() {
		logDebug("[git] CurrentBranch: detached HEAD state")
		return "", nil
	}

	branch := head.Name().Short()
	logDebug("[git] CurrentBranch: %s", branch)
	return branch, nil
}

// Head returns the commit id HEAD points at.
func (r *Repository) Head() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("getting HEAD reference: %w", err)
	}
	return head.Hash().String(), nil
}

// IsShallow reports whether the clone has truncated history. Tag resolution
// and commit ranges may be incomplete in that case.
func (r *Repository) IsShallow() (bool, error) {
	shallow, err := r.repo.Storer.Shallow()
	if err != nil {
		return false, fmt.Errorf("reading shallow commits: %w", err)
	}
	return len(shallow) > 0, nil
}

// RemoteURL returns the first URL of the named remote, or "" when the remote
// is not configured.
func (r *Repository) RemoteURL(name string) (string, error) {
	remote, err := r.repo.Remote(name)
	if err == git.ErrRemoteNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading remote %s: %w", name, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", nil
	}
	return urls[0], nil
}

// tokenVars are tried in order for HTTPS remotes without GIT_USERNAME.
var tokenVars = []string{"RELSYNC_RELEASE__TOKEN", "GITHUB_TOKEN", "GITEA_TOKEN"}

// authFor picks credentials for a remote URL: the SSH agent for SSH remotes,
// otherwise GIT_USERNAME/GIT_PASSWORD or the first service token set.
func authFor(url string) transport.AuthMethod {
	if isSSHURL(url) {
		auth, err := ssh.NewSSHAgentAuth("git")
		if err != nil {
			logDebug("[git] no SSH agent auth for %s: %v", url, err)
			return nil
		}
		return auth
	}
	if user := os.Getenv("GIT_USERNAME"); user != "" {
		return &http.BasicAuth{Username: user, Password: os.Getenv("GIT_PASSWORD")}
	}
	for _, name := range tokenVars {
		if token := os.Getenv(name); token != "" {
			// GitHub and Gitea accept a token in place of the user name.
			return &http.BasicAuth{Username: token}
		}
	}
	return nil
}

func isSSHURL(url string) bool {
	for _, prefix := range []string{"git@", "ssh://", "git+ssh://"} {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

// DefaultFetchTimeout bounds FetchTags when the caller's context has no deadline.
const DefaultFetchTimeout = 60 * time.Second

// FetchTags fetches tags from every configured remote so tag resolution sees
// the full set. Failures are logged and reported through the returned bool;
// an unreachable remote is not fatal for a release run.
func (r *Repository) FetchTags(ctx context.Context) (bool, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultFetchTimeout)
		defer cancel()
	}

	remotes, err := r.repo.Remotes()
	if err != nil {
		logDebug("[git] FetchTags: no remotes: %v", err)
		return true, nil
	}

	allSucceeded := true
	for _, remote := range remotes {
		if err := ctx.Err(); err != nil {
			logDebug("[git] FetchTags: context cancelled, stopping fetch")
			return false, nil
		}
		if err := r.fetchRemoteTags(ctx, remote); err != nil {
			logDebug("[git] FetchTags: remote '%s' failed: %v", remote.Config().Name, err)
			allSucceeded = false
		}
	}

	logDebug("[git] FetchTags: completed, all succeeded: %v", allSucceeded)
	return allSucceeded, nil
}

// fetchRemoteTags mirrors refs/tags/* from one remote.
func (r *Repository) fetchRemoteTags(ctx context.Context, remote *git.Remote) error {
	cfg := remote.Config()
	if len(cfg.URLs) == 0 {
		return nil
	}
	url := cfg.URLs[0]
	if isSSHURL(url) && strings.TrimSpace(os.Getenv("SSH_AUTH_SOCK")) == "" {
		logDebug("[git] not fetching tags from %s: SSH remote without an agent", cfg.Name)
		return nil
	}

	logDebug("[git] fetching tags from %s (%s)", cfg.Name, url)
	err := r.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: cfg.Name,
		Auth:       authFor(url),
		Tags:       git.AllTags,
		RefSpecs:   []config.RefSpec{"+refs/tags/*:refs/tags/*"},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetching tags from %s: %w", cfg.Name, err)
	}
	return nil
}

// resolveHash turns a revision into a commit hash.
func (r *Repository) resolveHash(rev string) (plumbing.Hash, error) {
	h, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolving revision %s: %w", rev, err)
	}
	return *h, nil
}
