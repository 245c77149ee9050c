// Package github implements hosting.API on the GitHub REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	gh "github.com/google/go-github/v74/github"

	"github.com/ariel-frischer/relsync/internal/hosting"
)

const perPage = 100

// Options configures a GitHub client.
type Options struct {
	Owner string
	Repo  string
	Token string
	// APIEndpoint selects a GitHub Enterprise server, e.g.
	// https://github.example.com/api/v3/. Empty means github.com.
	APIEndpoint string
	HTTP        hosting.ClientOptions
}

// Client talks to one repository.
type Client struct {
	gh    *gh.Client
	owner string
	repo  string
}

// New builds a client with the configured timeouts and token.
func New(opts Options) (*Client, error) {
	if opts.Owner == "" || opts.Repo == "" {
		return nil, fmt.Errorf("github: owner and repository name are required")
	}
	c := gh.NewClient(hosting.NewHTTPClient(opts.HTTP))
	if opts.Token != "" {
		c = c.WithAuthToken(opts.Token)
	}
	if opts.APIEndpoint != "" {
		upload := strings.Replace(opts.APIEndpoint, "/api/v3", "/api/uploads", 1)
		var err error
		if c, err = c.WithEnterpriseURLs(opts.APIEndpoint, upload); err != nil {
			return nil, fmt.Errorf("github: invalid api endpoint %q: %w", opts.APIEndpoint, err)
		}
	}
	if opts.HTTP.UserAgent != "" {
		c.UserAgent = opts.HTTP.UserAgent
	}
	return Wrap(c, opts.Owner, opts.Repo), nil
}

// Wrap adapts an existing go-github client.
func Wrap(c *gh.Client, owner, repo string) *Client {
	return &Client{gh: c, owner: owner, repo: repo}
}

var _ hosting.API = (*Client)(nil)

func isNotFound(resp *gh.Response, err error) bool {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return true
	}
	var er *gh.ErrorResponse
	return errors.As(err, &er) && er.Response != nil && er.Response.StatusCode == http.StatusNotFound
}

func toRelease(r *gh.RepositoryRelease) *hosting.Release {
	if r == nil {
		return nil
	}
	return &hosting.Release{
		ID:              r.GetID(),
		TagName:         r.GetTagName(),
		Name:            r.GetName(),
		Body:            r.GetBody(),
		TargetCommitish: r.GetTargetCommitish(),
		Draft:           r.GetDraft(),
		Prerelease:      r.GetPrerelease(),
		URL:             r.GetHTMLURL(),
	}
}

func (c *Client) FindReleaseByTag(ctx context.Context, tag string) (*hosting.Release, error) {
	r, resp, err := c.gh.Repositories.GetReleaseByTag(ctx, c.owner, c.repo, tag)
	if isNotFound(resp, err) {
		// Drafts are not addressable by tag; scan the first page of releases.
		return c.findDraftByTag(ctx, tag)
	}
	if err != nil {
		return nil, fmt.Errorf("finding release %s: %w", tag, err)
	}
	return toRelease(r), nil
}

func (c *Client) findDraftByTag(ctx context.Context, tag string) (*hosting.Release, error) {
	releases, _, err := c.gh.Repositories.ListReleases(ctx, c.owner, c.repo, &gh.ListOptions{PerPage: perPage})
	if err != nil {
		return nil, fmt.Errorf("listing releases: %w", err)
	}
	for _, r := range releases {
		if r.GetDraft() && r.GetTagName() == tag {
			return toRelease(r), nil
		}
	}
	return nil, nil
}

func (c *Client) GetRelease(ctx context.Context, id int64) (*hosting.Release, error) {
	r, resp, err := c.gh.Repositories.GetRelease(ctx, c.owner, c.repo, id)
	if isNotFound(resp, err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting release %d: %w", id, err)
	}
	return toRelease(r), nil
}

func (c *Client) CreateRelease(ctx context.Context, req hosting.ReleaseRequest) (*hosting.Release, error) {
	in := &gh.RepositoryRelease{
		TagName:    gh.Ptr(req.TagName),
		Name:       gh.Ptr(req.Name),
		Body:       gh.Ptr(req.Body),
		Draft:      gh.Ptr(req.Draft),
		Prerelease: gh.Ptr(req.Prerelease),
	}
	if req.TargetCommitish != "" {
		in.TargetCommitish = gh.Ptr(req.TargetCommitish)
	}
	if req.DiscussionCategory != "" {
		in.DiscussionCategoryName = gh.Ptr(req.DiscussionCategory)
	}
	r, _, err := c.gh.Repositories.CreateRelease(ctx, c.owner, c.repo, in)
	if err != nil {
		return nil, fmt.Errorf("creating release %s: %w", req.TagName, err)
	}
	return toRelease(r), nil
}

func (c *Client) UpdateRelease(ctx context.Context, id int64, p hosting.ReleasePatch) (*hosting.Release, error) {
	in := &gh.RepositoryRelease{
		Name:                   p.Name,
		Body:                   p.Body,
		Draft:                  p.Draft,
		Prerelease:             p.Prerelease,
		DiscussionCategoryName: p.DiscussionCategory,
	}
	r, _, err := c.gh.Repositories.EditRelease(ctx, c.owner, c.repo, id, in)
	if err != nil {
		return nil, fmt.Errorf("updating release %d: %w", id, err)
	}
	return toRelease(r), nil
}

func (c *Client) DeleteRelease(ctx context.Context, id int64) error {
	resp, err := c.gh.Repositories.DeleteRelease(ctx, c.owner, c.repo, id)
	if err != nil && !isNotFound(resp, err) {
		return fmt.Errorf("deleting release %d: %w", id, err)
	}
	return nil
}

func (c *Client) DeleteTag(ctx context.Context, tag string) error {
	resp, err := c.gh.Git.DeleteRef(ctx, c.owner, c.repo, "tags/"+tag)
	if err != nil && !isNotFound(resp, err) && !isUnprocessable(resp) {
		return fmt.Errorf("deleting tag %s: %w", tag, err)
	}
	return nil
}

// isUnprocessable covers GitHub answering 422 "Reference does not exist".
func isUnprocessable(resp *gh.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusUnprocessableEntity
}

func (c *Client) ListAssets(ctx context.Context, releaseID int64) ([]hosting.Asset, error) {
	var out []hosting.Asset
	opts := &gh.ListOptions{PerPage: perPage}
	for {
		assets, resp, err := c.gh.Repositories.ListReleaseAssets(ctx, c.owner, c.repo, releaseID, opts)
		if err != nil {
			return nil, fmt.Errorf("listing assets of release %d: %w", releaseID, err)
		}
		for _, a := range assets {
			out = append(out, hosting.Asset{
				ID:   a.GetID(),
				Name: a.GetName(),
				Size: int64(a.GetSize()),
				URL:  a.GetBrowserDownloadURL(),
			})
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) UploadAsset(ctx context.Context, releaseID int64, name, path string) (*hosting.Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening asset %s: %w", path, err)
	}
	defer f.Close()

	a, _, err := c.gh.Repositories.UploadReleaseAsset(ctx, c.owner, c.repo, releaseID, &gh.UploadOptions{Name: name}, f)
	if err != nil {
		return nil, fmt.Errorf("uploading asset %s: %w", name, err)
	}
	return &hosting.Asset{ID: a.GetID(), Name: a.GetName(), Size: int64(a.GetSize()), URL: a.GetBrowserDownloadURL()}, nil
}

func (c *Client) DeleteAsset(ctx context.Context, _ int64, asset hosting.Asset) error {
	resp, err := c.gh.Repositories.DeleteReleaseAsset(ctx, c.owner, c.repo, asset.ID)
	if err != nil && !isNotFound(resp, err) {
		return fmt.Errorf("deleting asset %s: %w", asset.Name, err)
	}
	return nil
}

func (c *Client) ListTags(ctx context.Context) ([]string, error) {
	var out []string
	opts := &gh.ListOptions{PerPage: perPage}
	for {
		tags, resp, err := c.gh.Repositories.ListTags(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing remote tags: %w", err)
		}
		for _, t := range tags {
			out = append(out, t.GetName())
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) ListBranches(ctx context.Context) ([]string, error) {
	var out []string
	opts := &gh.BranchListOptions{ListOptions: gh.ListOptions{PerPage: perPage}}
	for {
		branches, resp, err := c.gh.Repositories.ListBranches(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing remote branches: %w", err)
		}
		for _, b := range branches {
			out = append(out, b.GetName())
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) FindMilestoneByTitle(ctx context.Context, title string) (*hosting.Milestone, error) {
	opts := &gh.MilestoneListOptions{State: "all", ListOptions: gh.ListOptions{PerPage: perPage}}
	for {
		milestones, resp, err := c.gh.Issues.ListMilestones(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing milestones: %w", err)
		}
		for _, m := range milestones {
			if m.GetTitle() == title {
				return &hosting.Milestone{ID: int64(m.GetNumber()), Title: m.GetTitle(), Open: m.GetState() == "open"}, nil
			}
		}
		if resp.NextPage == 0 {
			return nil, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) CloseMilestone(ctx context.Context, m hosting.Milestone) error {
	_, _, err := c.gh.Issues.EditMilestone(ctx, c.owner, c.repo, int(m.ID), &gh.Milestone{State: gh.Ptr("closed")})
	if err != nil {
		return fmt.Errorf("closing milestone %s: %w", m.Title, err)
	}
	return nil
}

func (c *Client) FindIssue(ctx context.Context, number int) (*hosting.Issue, error) {
	i, resp, err := c.gh.Issues.Get(ctx, c.owner, c.repo, number)
	if isNotFound(resp, err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting issue #%d: %w", number, err)
	}
	out := &hosting.Issue{Number: i.GetNumber(), Title: i.GetTitle(), Closed: i.GetState() == "closed"}
	for _, l := range i.Labels {
		out.Labels = append(out.Labels, l.GetName())
	}
	if m := i.GetMilestone(); m != nil {
		out.Milestone = &hosting.Milestone{ID: int64(m.GetNumber()), Title: m.GetTitle(), Open: m.GetState() == "open"}
	}
	return out, nil
}

func (c *Client) LabelIssue(ctx context.Context, number int, label string) error {
	if _, _, err := c.gh.Issues.AddLabelsToIssue(ctx, c.owner, c.repo, number, []string{label}); err != nil {
		return fmt.Errorf("labelling issue #%d: %w", number, err)
	}
	return nil
}

func (c *Client) CommentIssue(ctx context.Context, number int, body string) error {
	if _, _, err := c.gh.Issues.CreateComment(ctx, c.owner, c.repo, number, &gh.IssueComment{Body: gh.Ptr(body)}); err != nil {
		return fmt.Errorf("commenting on issue #%d: %w", number, err)
	}
	return nil
}

func (c *Client) SetIssueMilestone(ctx context.Context, number int, m hosting.Milestone) error {
	req := &gh.IssueRequest{Milestone: gh.Ptr(int(m.ID))}
	if _, _, err := c.gh.Issues.Edit(ctx, c.owner, c.repo, number, req); err != nil {
		return fmt.Errorf("setting milestone on issue #%d: %w", number, err)
	}
	return nil
}

func (c *Client) FindUserByEmail(ctx context.Context, email string) (*hosting.Identity, error) {
	res, _, err := c.gh.Search.Users(ctx, email+" in:email", &gh.SearchOptions{ListOptions: gh.ListOptions{PerPage: 1}})
	if err != nil {
		return nil, fmt.Errorf("searching user %s: %w", email, err)
	}
	if len(res.Users) == 0 {
		return nil, nil
	}
	u := res.Users[0]
	return &hosting.Identity{Username: u.GetLogin(), URL: u.GetHTMLURL()}, nil
}
