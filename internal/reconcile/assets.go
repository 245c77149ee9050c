package reconcile

import (
	"context"
	"errors"
	"fmt"

	clierrors "github.com/ariel-frischer/relsync/internal/errors"
	"github.com/ariel-frischer/relsync/internal/hosting"
)

// assetPlan splits the desired assets against what the release already has.
type assetPlan struct {
	// upload are new assets.
	upload []Asset
	// replace are assets present remotely under the same name.
	replace []Asset
}

func planAssets(desired []Asset, remote map[string]hosting.Asset) assetPlan {
	var p assetPlan
	for _, a := range desired {
		if _, ok := remote[a.Name]; ok {
			p.replace = append(p.replace, a)
		} else {
			p.upload = append(p.upload, a)
		}
	}
	return p
}

// uploadAssets attaches every desired asset. Failures do not stop the batch;
// they are joined and returned once every asset has been attempted.
func (x *run) uploadAssets(ctx context.Context, desired []Asset, remote map[string]hosting.Asset) error {
	if len(desired) == 0 || x.out.Release == nil {
		return nil
	}
	plan := planAssets(desired, remote)
	id := x.out.Release.ID

	var errs []error
	for _, a := range plan.replace {
		err := x.reporter.Step("Replacing asset "+a.Name, func() error {
			if err := x.api.DeleteAsset(ctx, id, remote[a.Name]); err != nil {
				return clierrors.NewReleaseError("delete asset", a.Name, err)
			}
			_, err := x.api.UploadAsset(ctx, id, a.Name, a.Path)
			return clierrors.NewReleaseError("upload asset", a.Name, err)
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		x.out.Replaced = append(x.out.Replaced, a.Name)
	}
	for _, a := range plan.upload {
		err := x.reporter.Step("Uploading asset "+a.Name, func() error {
			_, err := x.api.UploadAsset(ctx, id, a.Name, a.Path)
			return clierrors.NewReleaseError("upload asset", a.Name, err)
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		x.out.Uploaded = append(x.out.Uploaded, a.Name)
	}

	if len(errs) > 0 {
		x.log.Error().Int("failed", len(errs)).Int("total", len(desired)).Msg("asset upload incomplete")
		return fmt.Errorf("%d of %d assets failed: %w", len(errs), len(desired), errors.Join(errs...))
	}
	return nil
}
