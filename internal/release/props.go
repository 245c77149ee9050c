package release

import (
	"github.com/ariel-frischer/relsync/internal/config"
	"github.com/ariel-frischer/relsync/internal/template"
)

// Release property names templates can reference.
const (
	PropProjectName             = "projectName"
	PropProjectVersion          = "projectVersion"
	PropProjectEffectiveVersion = "projectEffectiveVersion"
	PropTagName                 = "tagName"
	PropPreviousTagName         = "previousTagName"
	PropReleaseName             = "releaseName"
	PropMilestoneName           = "milestoneName"
	PropRepoOwner               = "repoOwner"
	PropRepoName                = "repoName"
	PropRepoURL                 = "repoUrl"
	PropCommitsURL              = "commitsUrl"
	PropIssueTrackerURL         = "issueTrackerUrl"
	PropReleaseNotesURL         = "releaseNotesUrl"
)

// projectProps are the properties known before any tag is resolved.
func projectProps(p config.ProjectConfig, coords Coordinates, effectiveVersion string) template.Props {
	return template.Props{
		PropProjectName:             p.Name,
		PropProjectVersion:          p.Version,
		PropProjectEffectiveVersion: effectiveVersion,
		PropRepoOwner:               coords.Owner,
		PropRepoName:                coords.Name,
		PropRepoURL:                 coords.WebURL,
		PropCommitsURL:              coords.CommitsURL(),
		PropIssueTrackerURL:         coords.IssueTrackerURL(),
	}
}
