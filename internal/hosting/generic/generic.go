// Package generic implements hosting.API for a plain git server. Such a server
// has no release objects: a release is its pushed tag, and the body only
// lives in the local changelog file.
package generic

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ariel-frischer/relsync/internal/git"
	"github.com/ariel-frischer/relsync/internal/hosting"
)

// Remote is the part of the local repository used to reach the server.
type Remote interface {
	ListRemote(ctx context.Context, name string) (git.RemoteRefs, error)
	PushTag(ctx context.Context, remoteName, tag string) error
	DeleteRemoteTag(ctx context.Context, remoteName, tag string) error
}

// Client maps release operations onto tag pushes.
type Client struct {
	remote     Remote
	remoteName string
	log        zerolog.Logger

	mu   sync.Mutex
	ids  map[string]int64
	tags map[int64]string
	// refs caches the remote listing until the next tag push or delete.
	refs *git.RemoteRefs
}

// New returns a client pushing to remoteName (usually "origin").
func New(remote Remote, remoteName string, log zerolog.Logger) *Client {
	if remoteName == "" {
		remoteName = "origin"
	}
	return &Client{
		remote:     remote,
		remoteName: remoteName,
		log:        log.With().Str("service", string(hosting.Generic)).Logger(),
		ids:        make(map[string]int64),
		tags:       make(map[int64]string),
	}
}

var _ hosting.API = (*Client)(nil)

func (c *Client) listing(ctx context.Context) (git.RemoteRefs, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refs != nil {
		return *c.refs, nil
	}
	refs, err := c.remote.ListRemote(ctx, c.remoteName)
	if err != nil {
		return git.RemoteRefs{}, err
	}
	c.refs = &refs
	return refs, nil
}

func (c *Client) invalidate() {
	c.mu.Lock()
	c.refs = nil
	c.mu.Unlock()
}

// idFor hands out stable per-run identifiers so GetRelease can find a tag
// again.
func (c *Client) idFor(tag string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.ids[tag]; ok {
		return id
	}
	id := int64(len(c.ids) + 1)
	c.ids[tag] = id
	c.tags[id] = tag
	return id
}

func (c *Client) release(tag string) *hosting.Release {
	return &hosting.Release{ID: c.idFor(tag), TagName: tag, Name: tag}
}

func (c *Client) FindReleaseByTag(ctx context.Context, tag string) (*hosting.Release, error) {
	refs, err := c.listing(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(refs.Tags, tag) {
		return nil, nil
	}
	return c.release(tag), nil
}

func (c *Client) GetRelease(ctx context.Context, id int64) (*hosting.Release, error) {
	c.mu.Lock()
	tag, ok := c.tags[id]
	c.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return c.FindReleaseByTag(ctx, tag)
}

// CreateRelease pushes the tag. Name, body and flags have nowhere to go.
func (c *Client) CreateRelease(ctx context.Context, req hosting.ReleaseRequest) (*hosting.Release, error) {
	defer c.invalidate()
	if err := c.remote.PushTag(ctx, c.remoteName, req.TagName); err != nil {
		return nil, err
	}
	c.log.Debug().Str("tag", req.TagName).Msg("pushed release tag")
	r := c.release(req.TagName)
	r.Name = req.Name
	r.Body = req.Body
	r.TargetCommitish = req.TargetCommitish
	return r, nil
}

func (c *Client) UpdateRelease(ctx context.Context, id int64, _ hosting.ReleasePatch) (*hosting.Release, error) {
	c.log.Debug().Int64("release", id).Msg("release metadata is not stored on a plain git server")
	r, err := c.GetRelease(ctx, id)
	if err != nil || r != nil {
		return r, err
	}
	return nil, fmt.Errorf("release %d: %w", id, hosting.ErrUnsupported)
}

// DeleteRelease succeeds; the tag carrying the release is removed by DeleteTag.
func (c *Client) DeleteRelease(context.Context, int64) error {
	return nil
}

func (c *Client) DeleteTag(ctx context.Context, tag string) error {
	defer c.invalidate()
	return c.remote.DeleteRemoteTag(ctx, c.remoteName, tag)
}

func (c *Client) ListAssets(context.Context, int64) ([]hosting.Asset, error) {
	return nil, nil
}

func (c *Client) UploadAsset(_ context.Context, _ int64, name, _ string) (*hosting.Asset, error) {
	return nil, fmt.Errorf("uploading asset %s: %w", name, hosting.ErrUnsupported)
}

func (c *Client) DeleteAsset(_ context.Context, _ int64, asset hosting.Asset) error {
	return fmt.Errorf("deleting asset %s: %w", asset.Name, hosting.ErrUnsupported)
}

func (c *Client) ListTags(ctx context.Context) ([]string, error) {
	refs, err := c.listing(ctx)
	return refs.Tags, err
}

func (c *Client) ListBranches(ctx context.Context) ([]string, error) {
	refs, err := c.listing(ctx)
	return refs.Branches, err
}

func (c *Client) FindMilestoneByTitle(context.Context, string) (*hosting.Milestone, error) {
	return nil, nil
}

func (c *Client) CloseMilestone(_ context.Context, m hosting.Milestone) error {
	return fmt.Errorf("closing milestone %s: %w", m.Title, hosting.ErrUnsupported)
}

func (c *Client) FindIssue(context.Context, int) (*hosting.Issue, error) {
	return nil, nil
}

func (c *Client) LabelIssue(_ context.Context, number int, _ string) error {
	return fmt.Errorf("labelling issue #%d: %w", number, hosting.ErrUnsupported)
}

func (c *Client) CommentIssue(_ context.Context, number int, _ string) error {
	return fmt.Errorf("commenting on issue #%d: %w", number, hosting.ErrUnsupported)
}

func (c *Client) SetIssueMilestone(_ context.Context, number int, _ hosting.Milestone) error {
	return fmt.Errorf("setting milestone on issue #%d: %w", number, hosting.ErrUnsupported)
}

func (c *Client) FindUserByEmail(context.Context, string) (*hosting.Identity, error) {
	return nil, nil
}
