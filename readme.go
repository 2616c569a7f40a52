package hubmcp

import (
	"context"

	"github.com/ferro-labs/dockerhub-mcp/hub"
	"github.com/ferro-labs/dockerhub-mcp/internal/cache"
	"github.com/ferro-labs/dockerhub-mcp/internal/logging"
	"github.com/ferro-labs/dockerhub-mcp/internal/readme"
)

// ReadmeParams are the arguments of the get_readme tool.
type ReadmeParams struct {
	PackageName     string `json:"package_name" jsonschema:"Image name such as nginx, bitnami/redis or nginx:1.27"`
	Version         string `json:"version,omitempty" jsonschema:"Tag to describe, defaults to latest or the tag in package_name"`
	IncludeExamples *bool  `json:"include_examples,omitempty" jsonschema:"Extract usage examples from the README (default true)"`
}

// Installation holds ready-to-run commands for an image.
type Installation struct {
	Pull    string `json:"pull"`
	Run     string `json:"run"`
	Compose string `json:"compose,omitempty"`
}

// BasicInfo summarises a repository.
type BasicInfo struct {
	Namespace   string `json:"namespace"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Tag         string `json:"tag"`
	IsOfficial  bool   `json:"is_official"`
	IsAutomated bool   `json:"is_automated"`
	StarCount   int    `json:"star_count"`
	PullCount   int64  `json:"pull_count"`
	LastUpdated string `json:"last_updated,omitempty"`
}

// ReadmeResult is the get_readme response. Exists is false, with empty
// content, when the image or tag is not on Docker Hub.
type ReadmeResult struct {
	PackageName   string                `json:"package_name"`
	Version       string                `json:"version"`
	Description   string                `json:"description"`
	ReadmeContent string                `json:"readme_content"`
	UsageExamples []readme.UsageExample `json:"usage_examples"`
	Installation  Installation          `json:"installation"`
	BasicInfo     *BasicInfo            `json:"basic_info,omitempty"`
	Repository    *RepositoryLink       `json:"repository,omitempty"`
	Exists        bool                  `json:"exists"`
}

// readmeTitleCompose is the title the extractor gives compose files.
const readmeTitleCompose = "Docker Compose"

// GetReadme returns the README of an image with extracted usage examples
// and installation commands.
func (s *Service) GetReadme(ctx context.Context, p ReadmeParams) (*ReadmeResult, error) {
	ref, err := hub.ParseReference(p.PackageName)
	if err != nil {
		return nil, err
	}
	if ref, err = ref.WithTag(p.Version); err != nil {
		return nil, err
	}
	includeExamples := p.IncludeExamples == nil || *p.IncludeExamples

	repo, err := s.repository(ctx, ref)
	if hub.IsNotFound(err) {
		return &ReadmeResult{
			PackageName:   p.PackageName,
			Version:       ref.Tag,
			UsageExamples: []readme.UsageExample{},
		}, nil
	}
	if err != nil {
		return nil, err
	}

	text := s.readmeText(ctx, ref, repo)
	examples := readme.ParseUsageExamples(text, includeExamples)

	description := repo.Description
	if description == "" {
		description = readme.ExtractDescription(text)
	}

	install := Installation{
		Pull: "docker pull " + ref.String(),
		Run:  "docker run -d " + ref.String(),
	}
	for _, ex := range examples {
		if ex.Title == readmeTitleCompose {
			install.Compose = ex.Code
			break
		}
	}

	return &ReadmeResult{
		PackageName:   p.PackageName,
		Version:       ref.Tag,
		Description:   description,
		ReadmeContent: readme.CleanMarkdown(text),
		UsageExamples: examples,
		Installation:  install,
		BasicInfo: &BasicInfo{
			Namespace:   ref.Namespace,
			Name:        ref.Name,
			FullName:    ref.FullName(),
			Tag:         ref.Tag,
			IsOfficial:  ref.IsOfficial(),
			IsAutomated: repo.IsAutomated,
			StarCount:   repo.StarCount,
			PullCount:   repo.PullCount,
			LastUpdated: repo.LastUpdated,
		},
		Repository: repositoryLink(repo),
		Exists:     true,
	}, nil
}

// readmeText returns the raw README markdown. Docker Hub's full
// description wins; when it is empty the linked GitHub README is fetched.
// A failing fallback degrades to no README and is not cached.
func (s *Service) readmeText(ctx context.Context, ref hub.Reference, repo *hub.Repository) string {
	if repo.FullDescription != "" {
		return repo.FullDescription
	}
	gh, ok := sourceRepo(repo)
	if !ok || s.readmes == nil {
		return ""
	}

	key := cache.ImageReadmeKey(ref.FullName(), ref.Tag)
	text, err := cache.Fetch(ctx, s.loader, key, s.cfg.Cache.InfoTTL.Std(), "fetch_readme",
		func(ctx context.Context) (string, error) {
			return s.readmes.FetchReadme(ctx, gh)
		})
	if err != nil {
		logging.FromContext(ctx, s.logger).WarnContext(ctx, "readme fallback failed",
			"image", ref.FullName(),
			"github_repo", gh.String(),
			"error_kind", hub.KindOf(err).String(),
			"error", err.Error(),
		)
		return ""
	}
	return text
}
