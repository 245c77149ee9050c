package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Tag is a tag name with the commit it ultimately points at. Annotated and
// lightweight tags look the same once peeled.
type Tag struct {
	Name string
	// Commit is the peeled commit id.
	Commit string
	// Time is the committer time of the peeled commit.
	Time      time.Time
	Annotated bool
}

// ErrTagNotFound is returned by Peel and DeleteTag for unknown tags.
var ErrTagNotFound = errors.New("tag not found")

// ListTags returns every tag peeled to its commit, sorted by name. Tags that
// do not point at a commit (tree or blob tags) are skipped.
func (r *Repository) ListTags() ([]Tag, error) {
	iter, err := r.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	var tags []Tag
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		tag, ok, err := r.peelRef(ref)
		if err != nil {
			return err
		}
		if ok {
			tags = append(tags, tag)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterating tags: %w", err)
	}

	sort.Slice(tags, func(i, j int) bool {
		return tags[i].Name < tags[j].Name
	})

	logDebug("[git] ListTags: found %d tags", len(tags))
	return tags, nil
}

// peelRef follows annotated tag objects until a commit is reached.
func (r *Repository) peelRef(ref *plumbing.Reference) (Tag, bool, error) {
	tag := Tag{Name: ref.Name().Short()}
	hash := ref.Hash()

	for {
		tagObj, err := r.repo.TagObject(hash)
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			break
		}
		if err != nil {
			return Tag{}, false, fmt.Errorf("reading tag object %s: %w", tag.Name, err)
		}
		tag.Annotated = true
		if tagObj.TargetType != plumbing.TagObject && tagObj.TargetType != plumbing.CommitObject {
			logDebug("[git] skipping tag %s: points at a %s", tag.Name, tagObj.TargetType)
			return Tag{}, false, nil
		}
		hash = tagObj.Target
	}

	commit, err := r.repo.CommitObject(hash)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		logDebug("[git] skipping tag %s: target %s is not a commit", tag.Name, hash)
		return Tag{}, false, nil
	}
	if err != nil {
		return Tag{}, false, fmt.Errorf("reading commit for tag %s: %w", tag.Name, err)
	}

	tag.Commit = commit.Hash.String()
	tag.Time = commit.Committer.When
	return tag, true, nil
}

// Peel returns the commit id the named tag points at.
func (r *Repository) Peel(name string) (string, error) {
	ref, err := r.repo.Tag(name)
	if errors.Is(err, git.ErrTagNotFound) {
		return "", fmt.Errorf("%w: %s", ErrTagNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("reading tag %s: %w", name, err)
	}
	tag, ok, err := r.peelRef(ref)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("tag %s does not point at a commit", name)
	}
	return tag.Commit, nil
}

// Resolve turns any revision (branch, tag, hash, HEAD) into a commit id.
func (r *Repository) Resolve(rev string) (string, error) {
	h, err := r.resolveHash(rev)
	if err != nil {
		return "", err
	}
	return h.String(), nil
}

// TagOptions controls local tag creation.
type TagOptions struct {
	// Message makes the tag annotated when non-empty.
	Message string
	// Sign creates a signed tag through the git CLI.
	Sign bool
}

// CreateTag tags target (any revision). Creating a tag that already points at
// the same commit is a no-op; pointing elsewhere is an error.
func (r *Repository) CreateTag(ctx context.Context, name, target string, opts TagOptions) error {
	hash, err := r.resolveHash(target)
	if err != nil {
		return err
	}

	if existing, err := r.Peel(name); err == nil {
		if existing == hash.String() {
			logDebug("[git] CreateTag: %s already at %s", name, existing)
			return nil
		}
		return fmt.Errorf("tag %s already exists at %s", name, existing)
	}

	if opts.Sign {
		return r.createSignedTag(ctx, name, hash, opts.Message)
	}

	var tagOpts *git.CreateTagOptions
	if opts.Message != "" {
		tagOpts = &git.CreateTagOptions{
			Tagger:  r.tagger(),
			Message: opts.Message,
		}
	}

	if _, err := r.repo.CreateTag(name, hash, tagOpts); err != nil {
		return fmt.Errorf("creating tag %s: %w", name, err)
	}

	logDebug("[git] CreateTag: %s -> %s", name, hash)
	return nil
}

// tagger reads user.name/user.email from git config with a fixed fallback.
func (r *Repository) tagger() *object.Signature {
	sig := &object.Signature{Name: "relsync", Email: "relsync@localhost", When: time.Now()}
	cfg, err := r.repo.ConfigScoped(config.GlobalScope)
	if err != nil {
		return sig
	}
	if cfg.User.Name != "" && cfg.User.Email != "" {
		sig.Name = cfg.User.Name
		sig.Email = cfg.User.Email
	}
	return sig
}

// createSignedTag shells out because go-git can only sign with an in-process
// key, while users keep theirs in gpg-agent or ssh-agent.
func (r *Repository) createSignedTag(ctx context.Context, name string, hash plumbing.Hash, message string) error {
	if message == "" {
		message = name
	}
	cmd := exec.CommandContext(ctx, "git", "tag", "-s", "-m", message, name, hash.String())
	cmd.Dir = r.root
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git tag -s %s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	logDebug("[git] CreateTag: signed %s -> %s", name, hash)
	return nil
}

// DeleteTag removes a local tag. Deleting a missing tag succeeds.
func (r *Repository) DeleteTag(name string) error {
	err := r.repo.DeleteTag(name)
	if errors.Is(err, git.ErrTagNotFound) {
		logDebug("[git] DeleteTag: %s not present", name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("deleting tag %s: %w", name, err)
	}
	return nil
}
