package hubmcp

import (
	"context"

	"github.com/ferro-labs/dockerhub-mcp/hub"
	"github.com/ferro-labs/dockerhub-mcp/internal/readme"
)

// LicenseUnknown is reported for every image; Docker Hub has no license field.
const LicenseUnknown = "unknown"

// InfoParams are the arguments of the get_info tool.
type InfoParams struct {
	PackageName            string `json:"package_name" jsonschema:"Image name such as nginx or bitnami/redis"`
	IncludeDependencies    *bool  `json:"include_dependencies,omitempty" jsonschema:"Report the latest tag as a dependency (default true)"`
	IncludeDevDependencies bool   `json:"include_dev_dependencies,omitempty" jsonschema:"Report other recent tags with their update dates (default false)"`
}

// InfoResult is the get_info response.
type InfoResult struct {
	PackageName     string            `json:"package_name"`
	LatestVersion   string            `json:"latest_version"`
	Description     string            `json:"description"`
	Author          string            `json:"author"`
	License         string            `json:"license"`
	Keywords        []string          `json:"keywords"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"dev_dependencies"`
	Repository      *RepositoryLink   `json:"repository,omitempty"`
	Exists          bool              `json:"exists"`
}

// GetInfo returns package-style metadata for an image.
func (s *Service) GetInfo(ctx context.Context, p InfoParams) (*InfoResult, error) {
	ref, err := hub.ParseReference(p.PackageName)
	if err != nil {
		return nil, err
	}

	missing := &InfoResult{
		PackageName:     p.PackageName,
		Keywords:        []string{},
		Dependencies:    map[string]string{},
		DevDependencies: map[string]string{},
	}

	repo, err := s.repository(ctx, ref)
	if hub.IsNotFound(err) {
		return missing, nil
	}
	if err != nil {
		return nil, err
	}
	tags, err := s.tags(ctx, ref)
	if hub.IsNotFound(err) {
		return missing, nil
	}
	if err != nil {
		return nil, err
	}

	latest := latestVersion(tags.Results)

	description := repo.Description
	if description == "" {
		description = readme.ExtractDescription(repo.FullDescription)
	}

	keywords := make([]string, 0, len(repo.Categories)+2)
	for _, c := range repo.Categories {
		keywords = append(keywords, c.Slug)
	}
	if ref.IsOfficial() {
		keywords = append(keywords, "official")
	}
	if repo.IsAutomated {
		keywords = append(keywords, "automated")
	}

	deps := map[string]string{}
	if p.IncludeDependencies == nil || *p.IncludeDependencies {
		deps["tag"] = latest
	}
	devDeps := map[string]string{}
	if p.IncludeDevDependencies {
		for _, t := range tags.Results {
			if t.Name != latest {
				devDeps[t.Name] = lastUpdatedDate(t.LastUpdated)
			}
		}
	}

	return &InfoResult{
		PackageName:     p.PackageName,
		LatestVersion:   latest,
		Description:     description,
		Author:          author(ref.Namespace),
		License:         LicenseUnknown,
		Keywords:        keywords,
		Dependencies:    deps,
		DevDependencies: devDeps,
		Repository:      repositoryLink(repo),
		Exists:          true,
	}, nil
}

// latestVersion is "latest" when that tag exists, otherwise the most
// recently updated tag. tags are ordered newest first.
func latestVersion(tags []hub.Tag) string {
	for _, t := range tags {
		if t.Name == hub.DefaultTag {
			return hub.DefaultTag
		}
	}
	if len(tags) > 0 {
		return tags[0].Name
	}
	return hub.DefaultTag
}
