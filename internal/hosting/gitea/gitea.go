// Package gitea implements hosting.API on the Gitea REST API.
package gitea

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"code.gitea.io/sdk/gitea"

	"github.com/ariel-frischer/relsync/internal/hosting"
)

const pageSize = 50

// labelColor is used when a release label has to be created first.
const labelColor = "#2ea44f"

// Options configures a Gitea client.
type Options struct {
	// URL is the server root, e.g. https://gitea.example.com.
	URL   string
	Owner string
	Repo  string
	Token string
	HTTP  hosting.ClientOptions
}

// Client talks to one repository. The SDK carries its context on the client,
// so calls are serialized per Client.
type Client struct {
	g     *gitea.Client
	url   string
	owner string
	repo  string
}

// New builds a client. The server version probe is skipped; relsync only
// uses endpoints present since Gitea 1.13.
func New(opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("gitea: server url is required")
	}
	if opts.Owner == "" || opts.Repo == "" {
		return nil, fmt.Errorf("gitea: owner and repository name are required")
	}
	options := []gitea.ClientOption{
		gitea.SetGiteaVersion(""),
		gitea.SetHTTPClient(hosting.NewHTTPClient(opts.HTTP)),
	}
	if opts.Token != "" {
		options = append(options, gitea.SetToken(opts.Token))
	}
	if opts.HTTP.UserAgent != "" {
		options = append(options, gitea.SetUserAgent(opts.HTTP.UserAgent))
	}
	g, err := gitea.NewClient(opts.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("gitea: %w", err)
	}
	return &Client{g: g, url: strings.TrimSuffix(opts.URL, "/"), owner: opts.Owner, repo: opts.Repo}, nil
}

var _ hosting.API = (*Client)(nil)

func (c *Client) with(ctx context.Context) *gitea.Client {
	c.g.SetContext(ctx)
	return c.g
}

func isNotFound(resp *gitea.Response) bool {
	return resp != nil && resp.Response != nil && resp.StatusCode == http.StatusNotFound
}

func nextPage(resp *gitea.Response) int {
	if resp == nil {
		return 0
	}
	return resp.NextPage
}

func toRelease(r *gitea.Release) *hosting.Release {
	return &hosting.Release{
		ID:              r.ID,
		TagName:         r.TagName,
		Name:            r.Title,
		Body:            r.Note,
		TargetCommitish: r.Target,
		Draft:           r.IsDraft,
		Prerelease:      r.IsPrerelease,
		URL:             r.HTMLURL,
	}
}

func toMilestone(m *gitea.Milestone) *hosting.Milestone {
	return &hosting.Milestone{ID: m.ID, Title: m.Title, Open: m.State == gitea.StateOpen}
}

func (c *Client) FindReleaseByTag(ctx context.Context, tag string) (*hosting.Release, error) {
	r, resp, err := c.with(ctx).GetReleaseByTag(c.owner, c.repo, tag)
	if isNotFound(resp) {
		return c.findDraftByTag(ctx, tag)
	}
	if err != nil {
		return nil, fmt.Errorf("finding release %s: %w", tag, err)
	}
	return toRelease(r), nil
}

func (c *Client) findDraftByTag(ctx context.Context, tag string) (*hosting.Release, error) {
	draft := true
	releases, _, err := c.with(ctx).ListReleases(c.owner, c.repo, gitea.ListReleasesOptions{
		ListOptions: gitea.ListOptions{PageSize: pageSize},
		IsDraft:     &draft,
	})
	if err != nil {
		return nil, fmt.Errorf("listing releases: %w", err)
	}
	for _, r := range releases {
		if r.IsDraft && r.TagName == tag {
			return toRelease(r), nil
		}
	}
	return nil, nil
}

func (c *Client) GetRelease(ctx context.Context, id int64) (*hosting.Release, error) {
	r, resp, err := c.with(ctx).GetRelease(c.owner, c.repo, id)
	if isNotFound(resp) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting release %d: %w", id, err)
	}
	return toRelease(r), nil
}

func (c *Client) CreateRelease(ctx context.Context, req hosting.ReleaseRequest) (*hosting.Release, error) {
	title := req.Name
	if title == "" {
		// Gitea rejects untitled releases.
		title = req.TagName
	}
	r, _, err := c.with(ctx).CreateRelease(c.owner, c.repo, gitea.CreateReleaseOption{
		TagName:      req.TagName,
		Target:       req.TargetCommitish,
		Title:        title,
		Note:         req.Body,
		IsDraft:      req.Draft,
		IsPrerelease: req.Prerelease,
	})
	if err != nil {
		return nil, fmt.Errorf("creating release %s: %w", req.TagName, err)
	}
	return toRelease(r), nil
}

func (c *Client) UpdateRelease(ctx context.Context, id int64, p hosting.ReleasePatch) (*hosting.Release, error) {
	form := gitea.EditReleaseOption{IsDraft: p.Draft, IsPrerelease: p.Prerelease}
	if p.Name != nil {
		form.Title = *p.Name
	}
	if p.Body != nil {
		form.Note = *p.Body
	}
	r, _, err := c.with(ctx).EditRelease(c.owner, c.repo, id, form)
	if err != nil {
		return nil, fmt.Errorf("updating release %d: %w", id, err)
	}
	return toRelease(r), nil
}

func (c *Client) DeleteRelease(ctx context.Context, id int64) error {
	resp, err := c.with(ctx).DeleteRelease(c.owner, c.repo, id)
	if err != nil && !isNotFound(resp) {
		return fmt.Errorf("deleting release %d: %w", id, err)
	}
	return nil
}

func (c *Client) DeleteTag(ctx context.Context, tag string) error {
	resp, err := c.with(ctx).DeleteTag(c.owner, c.repo, tag)
	if err != nil && !isNotFound(resp) {
		return fmt.Errorf("deleting tag %s: %w", tag, err)
	}
	return nil
}

func (c *Client) ListAssets(ctx context.Context, releaseID int64) ([]hosting.Asset, error) {
	var out []hosting.Asset
	opts := gitea.ListReleaseAttachmentsOptions{ListOptions: gitea.ListOptions{Page: 1, PageSize: pageSize}}
	for {
		attachments, resp, err := c.with(ctx).ListReleaseAttachments(c.owner, c.repo, releaseID, opts)
		if err != nil {
			return nil, fmt.Errorf("listing assets of release %d: %w", releaseID, err)
		}
		for _, a := range attachments {
			out = append(out, hosting.Asset{ID: a.ID, Name: a.Name, Size: a.Size, URL: a.DownloadURL})
		}
		if nextPage(resp) == 0 {
			return out, nil
		}
		opts.Page = nextPage(resp)
	}
}

func (c *Client) UploadAsset(ctx context.Context, releaseID int64, name, path string) (*hosting.Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening asset %s: %w", path, err)
	}
	defer f.Close()

	a, _, err := c.with(ctx).CreateReleaseAttachment(c.owner, c.repo, releaseID, f, name)
	if err != nil {
		return nil, fmt.Errorf("uploading asset %s: %w", name, err)
	}
	return &hosting.Asset{ID: a.ID, Name: a.Name, Size: a.Size, URL: a.DownloadURL}, nil
}

func (c *Client) DeleteAsset(ctx context.Context, releaseID int64, asset hosting.Asset) error {
	resp, err := c.with(ctx).DeleteReleaseAttachment(c.owner, c.repo, releaseID, asset.ID)
	if err != nil && !isNotFound(resp) {
		return fmt.Errorf("deleting asset %s: %w", asset.Name, err)
	}
	return nil
}

func (c *Client) ListTags(ctx context.Context) ([]string, error) {
	var out []string
	opts := gitea.ListRepoTagsOptions{ListOptions: gitea.ListOptions{Page: 1, PageSize: pageSize}}
	for {
		tags, resp, err := c.with(ctx).ListRepoTags(c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing remote tags: %w", err)
		}
		for _, t := range tags {
			out = append(out, t.Name)
		}
		if nextPage(resp) == 0 {
			return out, nil
		}
		opts.Page = nextPage(resp)
	}
}

func (c *Client) ListBranches(ctx context.Context) ([]string, error) {
	var out []string
	opts := gitea.ListRepoBranchesOptions{ListOptions: gitea.ListOptions{Page: 1, PageSize: pageSize}}
	for {
		branches, resp, err := c.with(ctx).ListRepoBranches(c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing remote branches: %w", err)
		}
		for _, b := range branches {
			out = append(out, b.Name)
		}
		if nextPage(resp) == 0 {
			return out, nil
		}
		opts.Page = nextPage(resp)
	}
}

func (c *Client) FindMilestoneByTitle(ctx context.Context, title string) (*hosting.Milestone, error) {
	m, resp, err := c.with(ctx).GetMilestoneByName(c.owner, c.repo, title)
	if isNotFound(resp) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding milestone %s: %w", title, err)
	}
	return toMilestone(m), nil
}

func (c *Client) CloseMilestone(ctx context.Context, m hosting.Milestone) error {
	closed := gitea.StateClosed
	if _, _, err := c.with(ctx).EditMilestone(c.owner, c.repo, m.ID, gitea.EditMilestoneOption{State: &closed}); err != nil {
		return fmt.Errorf("closing milestone %s: %w", m.Title, err)
	}
	return nil
}

func (c *Client) FindIssue(ctx context.Context, number int) (*hosting.Issue, error) {
	i, resp, err := c.with(ctx).GetIssue(c.owner, c.repo, int64(number))
	if isNotFound(resp) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting issue #%d: %w", number, err)
	}
	out := &hosting.Issue{Number: int(i.Index), Title: i.Title, Closed: i.State == gitea.StateClosed}
	for _, l := range i.Labels {
		out.Labels = append(out.Labels, l.Name)
	}
	if i.Milestone != nil {
		out.Milestone = toMilestone(i.Milestone)
	}
	return out, nil
}

// LabelIssue attaches label by name, creating the repository label when it
// does not exist yet. Gitea only accepts label IDs on issues.
func (c *Client) LabelIssue(ctx context.Context, number int, label string) error {
	id, err := c.labelID(ctx, label)
	if err != nil {
		return err
	}
	if _, _, err := c.with(ctx).AddIssueLabels(c.owner, c.repo, int64(number), gitea.IssueLabelsOption{Labels: []int64{id}}); err != nil {
		return fmt.Errorf("labelling issue #%d: %w", number, err)
	}
	return nil
}

func (c *Client) labelID(ctx context.Context, name string) (int64, error) {
	opts := gitea.ListLabelsOptions{ListOptions: gitea.ListOptions{Page: 1, PageSize: pageSize}}
	for {
		labels, resp, err := c.with(ctx).ListRepoLabels(c.owner, c.repo, opts)
		if err != nil {
			return 0, fmt.Errorf("listing labels: %w", err)
		}
		for _, l := range labels {
			if l.Name == name {
				return l.ID, nil
			}
		}
		if nextPage(resp) == 0 {
			break
		}
		opts.Page = nextPage(resp)
	}
	l, _, err := c.with(ctx).CreateLabel(c.owner, c.repo, gitea.CreateLabelOption{Name: name, Color: labelColor})
	if err != nil {
		return 0, fmt.Errorf("creating label %s: %w", name, err)
	}
	return l.ID, nil
}

func (c *Client) CommentIssue(ctx context.Context, number int, body string) error {
	if _, _, err := c.with(ctx).CreateIssueComment(c.owner, c.repo, int64(number), gitea.CreateIssueCommentOption{Body: body}); err != nil {
		return fmt.Errorf("commenting on issue #%d: %w", number, err)
	}
	return nil
}

func (c *Client) SetIssueMilestone(ctx context.Context, number int, m hosting.Milestone) error {
	id := m.ID
	if _, _, err := c.with(ctx).EditIssue(c.owner, c.repo, int64(number), gitea.EditIssueOption{Milestone: &id}); err != nil {
		return fmt.Errorf("setting milestone on issue #%d: %w", number, err)
	}
	return nil
}

// FindUserByEmail relies on the server matching e-mail addresses in user
// search, which only works for addresses the user made public.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*hosting.Identity, error) {
	users, _, err := c.with(ctx).SearchUsers(gitea.SearchUsersOption{
		ListOptions: gitea.ListOptions{Page: 1, PageSize: 10},
		KeyWord:     email,
	})
	if err != nil {
		return nil, fmt.Errorf("searching user %s: %w", email, err)
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return &hosting.Identity{Username: u.UserName, URL: c.url + "/" + u.UserName}, nil
		}
	}
	return nil, nil
}
