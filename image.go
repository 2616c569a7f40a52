package hubmcp

import (
	"context"
	"strings"

	"github.com/ferro-labs/dockerhub-mcp/github"
	"github.com/ferro-labs/dockerhub-mcp/hub"
	"github.com/ferro-labs/dockerhub-mcp/internal/cache"
)

// recentTags is how many tags get_info inspects.
const recentTags = 25

// RepositoryLink points at an image's source repository.
type RepositoryLink struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// repository returns the repository behind ref, verifying ref.Tag exists
// when it is not the default tag. Both checks share one cache entry.
func (s *Service) repository(ctx context.Context, ref hub.Reference) (*hub.Repository, error) {
	key := cache.ImageInfoKey(ref.FullName(), ref.Tag)
	return cache.Fetch(ctx, s.loader, key, s.cfg.Cache.InfoTTL.Std(), "get_repository",
		func(ctx context.Context) (*hub.Repository, error) {
			repo, err := s.registry.GetRepository(ctx, ref.Namespace, ref.Name)
			if err != nil {
				return nil, err
			}
			if ref.Tag != hub.DefaultTag {
				if _, err := s.registry.GetTagDetails(ctx, ref.Namespace, ref.Name, ref.Tag); err != nil {
					return nil, err
				}
			}
			return repo, nil
		})
}

// tags returns the most recently updated tags of ref. The key rolls over
// daily.
func (s *Service) tags(ctx context.Context, ref hub.Reference) (*hub.TagList, error) {
	key := cache.TagsKey(ref.FullName(), s.now())
	return cache.Fetch(ctx, s.loader, key, s.cfg.Cache.InfoTTL.Std(), "get_tags",
		func(ctx context.Context) (*hub.TagList, error) {
			return s.registry.GetTags(ctx, ref.Namespace, ref.Name, 1, recentTags)
		})
}

// sourceRepo finds the GitHub project linked from a repository's
// descriptions, short description first.
func sourceRepo(repo *hub.Repository) (github.Repo, bool) {
	if gh, ok := github.FindRepo(repo.Description); ok {
		return gh, true
	}
	return github.FindRepo(repo.FullDescription)
}

func repositoryLink(repo *hub.Repository) *RepositoryLink {
	gh, ok := sourceRepo(repo)
	if !ok {
		return nil
	}
	return &RepositoryLink{Type: "git", URL: gh.URL()}
}

// author is the namespace, with a display name for official images.
func author(namespace string) string {
	if namespace == hub.OfficialNamespace {
		return "Docker Official Images"
	}
	return namespace
}

// lastUpdatedDate trims an RFC 3339 timestamp to its date.
func lastUpdatedDate(ts string) string {
	if i := strings.IndexByte(ts, 'T'); i > 0 {
		return ts[:i]
	}
	return ts
}
