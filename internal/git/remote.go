package git

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// RemoteRefs is the tag and branch listing of one remote.
type RemoteRefs struct {
	Tags     []string
	Branches []string
}

// ListRemote lists tags and branches advertised by the named remote, sorted
// by name.
func (r *Repository) ListRemote(ctx context.Context, name string) (RemoteRefs, error) {
	remote, err := r.repo.Remote(name)
	if err != nil {
		return RemoteRefs{}, fmt.Errorf("reading remote %s: %w", name, err)
	}
	var url string
	if urls := remote.Config().URLs; len(urls) > 0 {
		url = urls[0]
	}

	logDebug("[git] listing refs of remote '%s' (%s)", name, url)
	refs, err := remote.ListContext(ctx, &git.ListOptions{Auth: authFor(url)})
	if err != nil {
		return RemoteRefs{}, fmt.Errorf("listing remote %s: %w", name, err)
	}

	var out RemoteRefs
	for _, ref := range refs {
		switch {
		case ref.Name().IsTag():
			out.Tags = append(out.Tags, ref.Name().Short())
		case ref.Name().IsBranch():
			out.Branches = append(out.Branches, ref.Name().Short())
		}
	}
	sort.Strings(out.Tags)
	sort.Strings(out.Branches)
	return out, nil
}

// PushTag pushes a local tag to the named remote. Pushing a tag the remote
// already has at the same object is a no-op.
func (r *Repository) PushTag(ctx context.Context, remoteName, tag string) error {
	ref := plumbing.NewTagReferenceName(tag)
	url, err := r.RemoteURL(remoteName)
	if err != nil {
		return err
	}

	logDebug("[git] pushing %s to remote '%s'", ref, remoteName)
	err = r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		Auth:       authFor(url),
		RefSpecs:   []config.RefSpec{config.RefSpec(ref + ":" + ref)},
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pushing tag %s to %s: %w", tag, remoteName, err)
	}
	return nil
}

// DeleteRemoteTag removes a tag from the named remote. A tag the remote does
// not have counts as deleted.
func (r *Repository) DeleteRemoteTag(ctx context.Context, remoteName, tag string) error {
	ref := plumbing.NewTagReferenceName(tag)
	url, err := r.RemoteURL(remoteName)
	if err != nil {
		return err
	}

	logDebug("[git] deleting %s from remote '%s'", ref, remoteName)
	err = r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		Auth:       authFor(url),
		RefSpecs:   []config.RefSpec{config.RefSpec(":" + ref)},
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("deleting tag %s from %s: %w", tag, remoteName, err)
	}
	return nil
}
