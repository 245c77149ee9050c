package release

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ariel-frischer/relsync/internal/build"
	"github.com/ariel-frischer/relsync/internal/changelog"
	"github.com/ariel-frischer/relsync/internal/config"
	clierrors "github.com/ariel-frischer/relsync/internal/errors"
	"github.com/ariel-frischer/relsync/internal/hosting"
	"github.com/ariel-frischer/relsync/internal/hosting/generic"
	"github.com/ariel-frischer/relsync/internal/hosting/gitea"
	"github.com/ariel-frischer/relsync/internal/hosting/github"
)

// NewAPI builds the hosting client for the configured service. remote backs
// the generic service and may be nil for the others.
func NewAPI(cfg config.ReleaseConfig, coords Coordinates, remote generic.Remote, log zerolog.Logger) (hosting.API, error) {
	httpOpts := hosting.ClientOptions{
		ConnectTimeout: cfg.ConnectTimeout,
		ReadTimeout:    cfg.ReadTimeout,
		UserAgent:      build.UserAgent(),
	}

	switch hosting.Service(cfg.Service) {
	case hosting.GitHub:
		if cfg.Token == "" {
			return nil, clierrors.MissingToken(cfg.Service)
		}
		c, err := github.New(github.Options{
			Owner:       coords.Owner,
			Repo:        coords.Name,
			Token:       cfg.Token,
			APIEndpoint: cfg.APIEndpoint,
			HTTP:        httpOpts,
		})
		if err != nil {
			return nil, clierrors.WrapWithMessage(err, clierrors.Configuration, "cannot create the GitHub client")
		}
		return c, nil
	case hosting.Gitea:
		if cfg.Token == "" {
			return nil, clierrors.MissingToken(cfg.Service)
		}
		c, err := gitea.New(gitea.Options{
			URL:   webBase(cfg.Host),
			Owner: coords.Owner,
			Repo:  coords.Name,
			Token: cfg.Token,
			HTTP:  httpOpts,
		})
		if err != nil {
			return nil, clierrors.WrapWithMessage(err, clierrors.Configuration, "cannot create the Gitea client")
		}
		return c, nil
	case hosting.Generic:
		return generic.New(remote, cfg.Remote, log), nil
	default:
		supported := make([]string, 0, len(hosting.Services()))
		for _, s := range hosting.Services() {
			supported = append(supported, string(s))
		}
		return nil, clierrors.UnknownService(cfg.Service, supported)
	}
}

// userLookup resolves commit emails through the hosting service.
type userLookup struct {
	api hosting.API
}

func (u userLookup) LookupUser(ctx context.Context, email string) (*changelog.User, error) {
	id, err := u.api.FindUserByEmail(ctx, email)
	if err != nil || id == nil {
		return nil, err
	}
	return &changelog.User{Username: id.Username, URL: id.URL}, nil
}
