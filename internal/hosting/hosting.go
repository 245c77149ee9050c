// Package hosting defines the contract relsync needs from a forge (GitHub,
// Gitea, or a plain git server) and the types that cross it.
//
// Lookups that the service answers with 404 return a nil value and a nil
// error. Deleting an object that is already gone succeeds. Every other
// failure is returned as an error.
package hosting

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by services that cannot perform an operation,
// such as attaching assets on a plain git server.
var ErrUnsupported = errors.New("operation not supported by the hosting service")

// Service names a hosting implementation.
type Service string

const (
	GitHub  Service = "github"
	Gitea   Service = "gitea"
	Generic Service = "generic"
)

// Services lists the supported services.
func Services() []Service {
	return []Service{GitHub, Gitea, Generic}
}

// Release is a remote release as read from the service.
type Release struct {
	ID              int64
	TagName         string
	Name            string
	Body            string
	TargetCommitish string
	Draft           bool
	Prerelease      bool
	URL             string
}

// ReleaseRequest creates a release.
type ReleaseRequest struct {
	TagName            string
	TargetCommitish    string
	Name               string
	Body               string
	Draft              bool
	Prerelease         bool
	DiscussionCategory string
}

// ReleasePatch updates a release. Nil fields are left unchanged.
type ReleasePatch struct {
	Name               *string
	Body               *string
	Draft              *bool
	Prerelease         *bool
	DiscussionCategory *string
}

// IsEmpty reports whether the patch changes nothing.
func (p ReleasePatch) IsEmpty() bool {
	return p.Name == nil && p.Body == nil && p.Draft == nil && p.Prerelease == nil && p.DiscussionCategory == nil
}

// Asset is a file attached to a release.
type Asset struct {
	ID   int64
	Name string
	Size int64
	URL  string
}

// AssetsByName indexes assets by file name.
func AssetsByName(assets []Asset) map[string]Asset {
	out := make(map[string]Asset, len(assets))
	for _, a := range assets {
		out[a.Name] = a
	}
	return out
}

// Milestone is identified by ID on Gitea and by number on GitHub; both are
// stored in ID.
type Milestone struct {
	ID    int64
	Title string
	Open  bool
}

// Issue is the part of an issue back-annotation needs.
type Issue struct {
	Number    int
	Title     string
	Closed    bool
	Labels    []string
	Milestone *Milestone
}

// HasLabel reports whether the issue already carries label.
func (i *Issue) HasLabel(label string) bool {
	for _, l := range i.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Identity is a user account on the service.
type Identity struct {
	Username string
	URL      string
}

// API is the set of remote operations the release reconciler uses.
type API interface {
	FindReleaseByTag(ctx context.Context, tag string) (*Release, error)
	GetRelease(ctx context.Context, id int64) (*Release, error)
	CreateRelease(ctx context.Context, req ReleaseRequest) (*Release, error)
	UpdateRelease(ctx context.Context, id int64, patch ReleasePatch) (*Release, error)
	DeleteRelease(ctx context.Context, id int64) error
	DeleteTag(ctx context.Context, tag string) error

	ListAssets(ctx context.Context, releaseID int64) ([]Asset, error)
	UploadAsset(ctx context.Context, releaseID int64, name, path string) (*Asset, error)
	DeleteAsset(ctx context.Context, releaseID int64, asset Asset) error

	ListTags(ctx context.Context) ([]string, error)
	ListBranches(ctx context.Context) ([]string, error)

	FindMilestoneByTitle(ctx context.Context, title string) (*Milestone, error)
	CloseMilestone(ctx context.Context, m Milestone) error

	FindIssue(ctx context.Context, number int) (*Issue, error)
	LabelIssue(ctx context.Context, number int, label string) error
	CommentIssue(ctx context.Context, number int, body string) error
	SetIssueMilestone(ctx context.Context, number int, m Milestone) error

	FindUserByEmail(ctx context.Context, email string) (*Identity, error)
}
