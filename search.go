package hubmcp

import (
	"context"
	"math"
	"strings"

	"github.com/ferro-labs/dockerhub-mcp/hub"
	"github.com/ferro-labs/dockerhub-mcp/internal/cache"
)

// Search limits.
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

// maintenanceScore is fixed: search hits carry no update date.
const maintenanceScore = 0.5

// SearchParams are the arguments of the search tool.
type SearchParams struct {
	Query      string   `json:"query" jsonschema:"Search terms"`
	Limit      int      `json:"limit,omitempty" jsonschema:"Maximum number of results, 1 to 100 (default 20)"`
	Quality    *float64 `json:"quality,omitempty" jsonschema:"Minimum quality score between 0 and 1"`
	Popularity *float64 `json:"popularity,omitempty" jsonschema:"Minimum popularity score between 0 and 1"`
	Official   *bool    `json:"is_official,omitempty" jsonschema:"Only official images (true) or only non-official images (false)"`
	Automated  *bool    `json:"is_automated,omitempty" jsonschema:"Only automated builds (true) or only manual builds (false)"`
}

// Person names a publisher or maintainer.
type Person struct {
	Username string `json:"username"`
}

// ScoreDetail breaks a score into its parts.
type ScoreDetail struct {
	Quality     float64 `json:"quality"`
	Popularity  float64 `json:"popularity"`
	Maintenance float64 `json:"maintenance"`
}

// Score rates a search hit. Final is the mean of the detail scores.
type Score struct {
	Final  float64     `json:"final"`
	Detail ScoreDetail `json:"detail"`
}

// Package is one search hit.
type Package struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Author      string   `json:"author"`
	Publisher   Person   `json:"publisher"`
	Maintainers []Person `json:"maintainers"`
	Score       Score    `json:"score"`
	SearchScore float64  `json:"searchScore"`
}

// SearchResult is the search response. Total counts the results that passed
// the score filters, including those cut off by the limit.
type SearchResult struct {
	Query    string    `json:"query"`
	Total    int       `json:"total"`
	Packages []Package `json:"packages"`
}

// Search finds images on Docker Hub and scores them.
func (s *Service) Search(ctx context.Context, p SearchParams) (*SearchResult, error) {
	query := strings.TrimSpace(p.Query)
	if query == "" {
		return nil, hub.NewValidationError("query", "must not be empty")
	}
	limit := p.Limit
	if limit == 0 {
		limit = DefaultSearchLimit
	}
	if limit < 1 || limit > MaxSearchLimit {
		return nil, hub.NewValidationError("limit", "must be between 1 and 100")
	}
	if !unitInterval(p.Quality) {
		return nil, hub.NewValidationError("quality", "must be between 0 and 1")
	}
	if !unitInterval(p.Popularity) {
		return nil, hub.NewValidationError("popularity", "must be between 0 and 1")
	}

	key := cache.SearchKey(query, limit, p.Official, p.Automated)
	res, err := cache.Fetch(ctx, s.loader, key, s.cfg.Cache.SearchTTL.Std(), "search_repositories",
		func(ctx context.Context) (*hub.SearchResults, error) {
			return s.registry.SearchRepositories(ctx, hub.SearchQuery{
				Query:     query,
				Page:      1,
				PageSize:  limit,
				Official:  p.Official,
				Automated: p.Automated,
			})
		})
	if err != nil {
		return nil, err
	}

	packages := make([]Package, 0, len(res.Results))
	for _, r := range res.Results {
		score := scoreResult(r)
		if p.Quality != nil && score.Detail.Quality < *p.Quality {
			continue
		}
		if p.Popularity != nil && score.Detail.Popularity < *p.Popularity {
			continue
		}
		packages = append(packages, toPackage(r, score))
	}
	total := len(packages)
	packages = packages[:min(total, limit)]
	for i := range packages {
		packages[i].SearchScore = 1 - float64(i)/float64(total)
	}

	return &SearchResult{Query: query, Total: total, Packages: packages}, nil
}

func unitInterval(v *float64) bool {
	return v == nil || (*v >= 0 && *v <= 1)
}

// scoreResult rates a hit. Popularity saturates at a billion pulls and
// quality at ten thousand stars; official images get full quality.
func scoreResult(r hub.SearchResult) Score {
	popularity := math.Min(1, math.Log10(float64(r.PullCount)+1)/9)

	quality := 1.0
	if !r.IsOfficial {
		quality = math.Min(1, math.Log10(float64(r.StarCount)+1)/4)
		if r.IsAutomated {
			quality = math.Min(1, quality+0.1)
		}
	}

	return Score{
		Final: (quality + popularity + maintenanceScore) / 3,
		Detail: ScoreDetail{
			Quality:     quality,
			Popularity:  popularity,
			Maintenance: maintenanceScore,
		},
	}
}

func toPackage(r hub.SearchResult, score Score) Package {
	owner := r.RepoOwner
	if owner == "" {
		if i := strings.IndexByte(r.RepoName, '/'); i > 0 {
			owner = r.RepoName[:i]
		} else {
			owner = hub.OfficialNamespace
		}
	}
	who := author(owner)

	keywords := []string{}
	if r.IsOfficial {
		keywords = append(keywords, "official")
	}
	if r.IsAutomated {
		keywords = append(keywords, "automated")
	}

	return Package{
		Name:        r.RepoName,
		Version:     hub.DefaultTag,
		Description: r.ShortDescription,
		Keywords:    keywords,
		Author:      who,
		Publisher:   Person{Username: who},
		Maintainers: []Person{{Username: who}},
		Score:       score,
	}
}
