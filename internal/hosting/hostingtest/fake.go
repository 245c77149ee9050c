// Package hostingtest provides an in-memory hosting.API that records every
// call, for reconciler and pipeline tests.
package hostingtest

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ariel-frischer/relsync/internal/hosting"
)

// mutating lists the methods that change remote state.
var mutating = map[string]bool{
	"CreateRelease":     true,
	"UpdateRelease":     true,
	"DeleteRelease":     true,
	"DeleteTag":         true,
	"UploadAsset":       true,
	"DeleteAsset":       true,
	"CloseMilestone":    true,
	"LabelIssue":        true,
	"CommentIssue":      true,
	"SetIssueMilestone": true,
}

// Call is one recorded API call.
type Call struct {
	Method    string
	Args      []string
	Timestamp time.Time
	Error     error
}

// Fake is a recording in-memory forge. Seed its exported fields before use;
// the zero value is not ready, use New.
type Fake struct {
	mu sync.Mutex

	Releases   map[int64]*hosting.Release
	Assets     map[int64][]hosting.Asset
	Tags       []string
	Branches   []string
	Milestones map[string]*hosting.Milestone
	Issues     map[int]*hosting.Issue
	Comments   map[int][]string
	Users      map[string]*hosting.Identity

	// Errors makes the named method fail.
	Errors map[string]error
	// UploadErrors makes uploads of the named assets fail.
	UploadErrors map[string]error
	// DraftQuirk stores created releases as drafts regardless of the request,
	// while the create response still echoes the requested flag.
	DraftQuirk bool

	calls  []Call
	nextID int64
}

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		Releases:     make(map[int64]*hosting.Release),
		Assets:       make(map[int64][]hosting.Asset),
		Milestones:   make(map[string]*hosting.Milestone),
		Issues:       make(map[int]*hosting.Issue),
		Comments:     make(map[int][]string),
		Users:        make(map[string]*hosting.Identity),
		Errors:       make(map[string]error),
		UploadErrors: make(map[string]error),
		nextID:       100,
	}
}

var _ hosting.API = (*Fake)(nil)

// AddRelease seeds an existing release and returns its stored copy.
func (f *Fake) AddRelease(r hosting.Release, assets ...hosting.Asset) *hosting.Release {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == 0 {
		f.nextID++
		r.ID = f.nextID
	}
	f.Releases[r.ID] = &r
	f.Assets[r.ID] = append([]hosting.Asset(nil), assets...)
	if !slices.Contains(f.Tags, r.TagName) {
		f.Tags = append(f.Tags, r.TagName)
	}
	return &r
}

// ReleaseByTag returns a copy of the stored release for tag, or nil.
func (f *Fake) ReleaseByTag(tag string) *hosting.Release {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.Releases {
		if r.TagName == tag {
			c := *r
			return &c
		}
	}
	return nil
}

// AssetNames returns the sorted asset names of a release.
func (f *Fake) AssetNames(releaseID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, a := range f.Assets[releaseID] {
		names = append(names, a.Name)
	}
	sort.Strings(names)
	return names
}

// Calls returns every recorded call in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Methods returns the method names of every recorded call in order.
func (f *Fake) Methods() []string {
	var out []string
	for _, c := range f.Calls() {
		out = append(out, c.Method)
	}
	return out
}

// Mutations returns the recorded calls that change remote state.
func (f *Fake) Mutations() []Call {
	var out []Call
	for _, c := range f.Calls() {
		if mutating[c.Method] {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls, keeping the remote state.
func (f *Fake) Reset() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

// record logs a call and returns the configured error for it. Callers hold mu.
func (f *Fake) record(method string, args ...string) error {
	err := f.Errors[method]
	f.calls = append(f.calls, Call{Method: method, Args: args, Timestamp: time.Now(), Error: err})
	return err
}

func id(v int64) string { return strconv.FormatInt(v, 10) }

func (f *Fake) FindReleaseByTag(_ context.Context, tag string) (*hosting.Release, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FindReleaseByTag", tag); err != nil {
		return nil, err
	}
	for _, r := range f.Releases {
		if r.TagName == tag {
			c := *r
			return &c, nil
		}
	}
	return nil, nil
}

func (f *Fake) GetRelease(_ context.Context, releaseID int64) (*hosting.Release, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetRelease", id(releaseID)); err != nil {
		return nil, err
	}
	r, ok := f.Releases[releaseID]
	if !ok {
		return nil, nil
	}
	c := *r
	return &c, nil
}

func (f *Fake) CreateRelease(_ context.Context, req hosting.ReleaseRequest) (*hosting.Release, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateRelease", req.TagName); err != nil {
		return nil, err
	}
	for _, r := range f.Releases {
		if r.TagName == req.TagName {
			return nil, fmt.Errorf("release for %s already exists", req.TagName)
		}
	}
	f.nextID++
	stored := &hosting.Release{
		ID:              f.nextID,
		TagName:         req.TagName,
		Name:            req.Name,
		Body:            req.Body,
		TargetCommitish: req.TargetCommitish,
		Draft:           req.Draft || f.DraftQuirk,
		Prerelease:      req.Prerelease,
		URL:             "https://forge.test/releases/" + req.TagName,
	}
	f.Releases[stored.ID] = stored
	if !slices.Contains(f.Tags, req.TagName) {
		f.Tags = append(f.Tags, req.TagName)
	}
	out := *stored
	out.Draft = req.Draft
	return &out, nil
}

func (f *Fake) UpdateRelease(_ context.Context, releaseID int64, p hosting.ReleasePatch) (*hosting.Release, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateRelease", id(releaseID)); err != nil {
		return nil, err
	}
	r, ok := f.Releases[releaseID]
	if !ok {
		return nil, fmt.Errorf("release %d not found", releaseID)
	}
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Body != nil {
		r.Body = *p.Body
	}
	if p.Draft != nil {
		r.Draft = *p.Draft
	}
	if p.Prerelease != nil {
		r.Prerelease = *p.Prerelease
	}
	c := *r
	return &c, nil
}

func (f *Fake) DeleteRelease(_ context.Context, releaseID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteRelease", id(releaseID)); err != nil {
		return err
	}
	delete(f.Releases, releaseID)
	delete(f.Assets, releaseID)
	return nil
}

func (f *Fake) DeleteTag(_ context.Context, tag string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteTag", tag); err != nil {
		return err
	}
	f.Tags = slices.DeleteFunc(f.Tags, func(t string) bool { return t == tag })
	return nil
}

func (f *Fake) ListAssets(_ context.Context, releaseID int64) ([]hosting.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListAssets", id(releaseID)); err != nil {
		return nil, err
	}
	return append([]hosting.Asset(nil), f.Assets[releaseID]...), nil
}

func (f *Fake) UploadAsset(_ context.Context, releaseID int64, name, path string) (*hosting.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UploadAsset", id(releaseID), name, path); err != nil {
		return nil, err
	}
	if err := f.UploadErrors[name]; err != nil {
		f.calls[len(f.calls)-1].Error = err
		return nil, err
	}
	for _, a := range f.Assets[releaseID] {
		if a.Name == name {
			return nil, fmt.Errorf("asset %s already exists", name)
		}
	}
	f.nextID++
	a := hosting.Asset{ID: f.nextID, Name: name, URL: "https://forge.test/assets/" + name}
	f.Assets[releaseID] = append(f.Assets[releaseID], a)
	return &a, nil
}

func (f *Fake) DeleteAsset(_ context.Context, releaseID int64, asset hosting.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteAsset", id(releaseID), asset.Name); err != nil {
		return err
	}
	f.Assets[releaseID] = slices.DeleteFunc(f.Assets[releaseID], func(a hosting.Asset) bool { return a.ID == asset.ID })
	return nil
}

func (f *Fake) ListTags(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListTags"); err != nil {
		return nil, err
	}
	return append([]string(nil), f.Tags...), nil
}

func (f *Fake) ListBranches(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListBranches"); err != nil {
		return nil, err
	}
	return append([]string(nil), f.Branches...), nil
}

func (f *Fake) FindMilestoneByTitle(_ context.Context, title string) (*hosting.Milestone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FindMilestoneByTitle", title); err != nil {
		return nil, err
	}
	m, ok := f.Milestones[title]
	if !ok {
		return nil, nil
	}
	c := *m
	return &c, nil
}

func (f *Fake) CloseMilestone(_ context.Context, m hosting.Milestone) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CloseMilestone", m.Title); err != nil {
		return err
	}
	if stored, ok := f.Milestones[m.Title]; ok {
		stored.Open = false
	}
	return nil
}

func (f *Fake) FindIssue(_ context.Context, number int) (*hosting.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FindIssue", strconv.Itoa(number)); err != nil {
		return nil, err
	}
	i, ok := f.Issues[number]
	if !ok {
		return nil, nil
	}
	c := *i
	c.Labels = append([]string(nil), i.Labels...)
	return &c, nil
}

func (f *Fake) LabelIssue(_ context.Context, number int, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("LabelIssue", strconv.Itoa(number), label); err != nil {
		return err
	}
	if i, ok := f.Issues[number]; ok && !i.HasLabel(label) {
		i.Labels = append(i.Labels, label)
	}
	return nil
}

func (f *Fake) CommentIssue(_ context.Context, number int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CommentIssue", strconv.Itoa(number)); err != nil {
		return err
	}
	f.Comments[number] = append(f.Comments[number], body)
	return nil
}

func (f *Fake) SetIssueMilestone(_ context.Context, number int, m hosting.Milestone) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetIssueMilestone", strconv.Itoa(number), m.Title); err != nil {
		return err
	}
	if i, ok := f.Issues[number]; ok {
		c := m
		i.Milestone = &c
	}
	return nil
}

func (f *Fake) FindUserByEmail(_ context.Context, email string) (*hosting.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FindUserByEmail", email); err != nil {
		return nil, err
	}
	u, ok := f.Users[email]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}
