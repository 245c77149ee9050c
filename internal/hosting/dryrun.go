package hosting

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
)

// simulatedID marks releases that only exist inside a dry run.
const simulatedID int64 = -1

// DryRun wraps api so that reads pass through and writes are logged and
// skipped. A simulated create is remembered so the caller can read it back.
func DryRun(api API, log zerolog.Logger) API {
	return &dryRun{next: api, log: log.With().Bool("dry_run", true).Logger()}
}

type dryRun struct {
	next      API
	log       zerolog.Logger
	simulated *Release
}

func (d *dryRun) skip(op string) *zerolog.Event {
	return d.log.Info().Str("op", op)
}

func (d *dryRun) FindReleaseByTag(ctx context.Context, tag string) (*Release, error) {
	return d.next.FindReleaseByTag(ctx, tag)
}

func (d *dryRun) GetRelease(ctx context.Context, id int64) (*Release, error) {
	if id == simulatedID && d.simulated != nil {
		r := *d.simulated
		return &r, nil
	}
	return d.next.GetRelease(ctx, id)
}

func (d *dryRun) CreateRelease(_ context.Context, req ReleaseRequest) (*Release, error) {
	d.skip("create release").Str("tag", req.TagName).Bool("draft", req.Draft).Msg("skipped")
	d.simulated = &Release{
		ID:              simulatedID,
		TagName:         req.TagName,
		Name:            req.Name,
		Body:            req.Body,
		TargetCommitish: req.TargetCommitish,
		Draft:           req.Draft,
		Prerelease:      req.Prerelease,
	}
	r := *d.simulated
	return &r, nil
}

func (d *dryRun) UpdateRelease(ctx context.Context, id int64, patch ReleasePatch) (*Release, error) {
	d.skip("update release").Int64("release", id).Msg("skipped")
	current, err := d.GetRelease(ctx, id)
	if err != nil || current == nil {
		return &Release{ID: id}, err
	}
	applyPatch(current, patch)
	return current, nil
}

func applyPatch(r *Release, p ReleasePatch) {
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
}

func (d *dryRun) DeleteRelease(_ context.Context, id int64) error {
	d.skip("delete release").Int64("release", id).Msg("skipped")
	return nil
}

func (d *dryRun) DeleteTag(_ context.Context, tag string) error {
	d.skip("delete remote tag").Str("tag", tag).Msg("skipped")
	return nil
}

func (d *dryRun) ListAssets(ctx context.Context, releaseID int64) ([]Asset, error) {
	if releaseID == simulatedID {
		return nil, nil
	}
	return d.next.ListAssets(ctx, releaseID)
}

func (d *dryRun) UploadAsset(_ context.Context, releaseID int64, name, path string) (*Asset, error) {
	d.skip("upload asset").Int64("release", releaseID).Str("asset", name).Str("path", filepath.Base(path)).Msg("skipped")
	return &Asset{Name: name}, nil
}

func (d *dryRun) DeleteAsset(_ context.Context, releaseID int64, asset Asset) error {
	d.skip("delete asset").Int64("release", releaseID).Str("asset", asset.Name).Msg("skipped")
	return nil
}

func (d *dryRun) ListTags(ctx context.Context) ([]string, error) {
	return d.next.ListTags(ctx)
}

func (d *dryRun) ListBranches(ctx context.Context) ([]string, error) {
	return d.next.ListBranches(ctx)
}

func (d *dryRun) FindMilestoneByTitle(ctx context.Context, title string) (*Milestone, error) {
	return d.next.FindMilestoneByTitle(ctx, title)
}

func (d *dryRun) CloseMilestone(_ context.Context, m Milestone) error {
	d.skip("close milestone").Str("milestone", m.Title).Msg("skipped")
	return nil
}

func (d *dryRun) FindIssue(ctx context.Context, number int) (*Issue, error) {
	return d.next.FindIssue(ctx, number)
}

func (d *dryRun) LabelIssue(_ context.Context, number int, label string) error {
	d.skip("label issue").Int("issue", number).Str("label", label).Msg("skipped")
	return nil
}

func (d *dryRun) CommentIssue(_ context.Context, number int, _ string) error {
	d.skip("comment on issue").Int("issue", number).Msg("skipped")
	return nil
}

func (d *dryRun) SetIssueMilestone(_ context.Context, number int, m Milestone) error {
	d.skip("set issue milestone").Int("issue", number).Str("milestone", m.Title).Msg("skipped")
	return nil
}

func (d *dryRun) FindUserByEmail(ctx context.Context, email string) (*Identity, error) {
	return d.next.FindUserByEmail(ctx, email)
}
