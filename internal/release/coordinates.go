package release

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ariel-frischer/relsync/internal/config"
	"github.com/ariel-frischer/relsync/internal/hosting"
)

// Coordinates locate the repository on its hosting service.
type Coordinates struct {
	Owner string
	Name  string
	// WebURL is the browsable repository URL without a trailing slash.
	WebURL string
}

// CommitsURL is where commit links point.
func (c Coordinates) CommitsURL() string {
	if c.WebURL == "" {
		return ""
	}
	return c.WebURL + "/commits"
}

// IssueTrackerURL is the base issue numbers are appended to.
func (c Coordinates) IssueTrackerURL() string {
	if c.WebURL == "" {
		return ""
	}
	return c.WebURL + "/issues"
}

// ReleaseNotesURL is the page of the release published under tag.
func (c Coordinates) ReleaseNotesURL(tag string) string {
	if c.WebURL == "" {
		return ""
	}
	return c.WebURL + "/releases/tag/" + tag
}

// ResolveCoordinates fills owner and name from the remote URL when the
// configuration leaves them empty, and derives the web URL per service.
func ResolveCoordinates(cfg config.ReleaseConfig, remoteURL string) (Coordinates, error) {
	host, owner, name := parseRemoteURL(remoteURL)
	c := Coordinates{Owner: cfg.Owner, Name: cfg.Name}
	if c.Owner == "" {
		c.Owner = owner
	}
	if c.Name == "" {
		c.Name = name
	}

	switch hosting.Service(cfg.Service) {
	case hosting.GitHub:
		if c.Owner == "" || c.Name == "" {
			return c, fmt.Errorf("cannot determine the GitHub repository from remote %q; set release.owner and release.name", remoteURL)
		}
		base := "https://github.com"
		if cfg.Host != "" {
			base = webBase(cfg.Host)
		}
		c.WebURL = base + "/" + c.Owner + "/" + c.Name
	case hosting.Gitea:
		if c.Owner == "" || c.Name == "" {
			return c, fmt.Errorf("cannot determine the Gitea repository from remote %q; set release.owner and release.name", remoteURL)
		}
		c.WebURL = webBase(cfg.Host) + "/" + c.Owner + "/" + c.Name
	default:
		if host != "" && c.Owner != "" && c.Name != "" {
			c.WebURL = "https://" + host + "/" + c.Owner + "/" + c.Name
		}
	}
	return c, nil
}

// webBase turns "gitea.example.com" or "https://gitea.example.com/" into
// "https://gitea.example.com".
func webBase(host string) string {
	host = strings.TrimSuffix(strings.TrimSpace(host), "/")
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return host
}

// parseRemoteURL understands https, ssh:// and scp-like remotes. Unknown
// shapes yield empty strings.
func parseRemoteURL(raw string) (host, owner, name string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", ""
	}

	var path string
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", "", ""
		}
		host, path = u.Hostname(), u.Path
	} else {
		// git@github.com:owner/name.git
		at := strings.Index(raw, "@")
		colon := strings.Index(raw, ":")
		if colon < 0 || colon < at {
			return "", "", ""
		}
		host, path = raw[at+1:colon], raw[colon+1:]
	}

	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return host, "", ""
	}
	return host, path[:i], path[i+1:]
}
