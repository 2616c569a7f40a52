// Package hub is a client for the Docker Hub v2 REST API.
//
// The Client exposes the four calls the tool layer needs (repository, tag
// list, tag details and search). Every non-2xx response is turned into a
// classified *Error by CheckResponse, so callers can decide what to retry
// with KindOf.
package hub

// Category is a Docker Hub repository category.
type Category struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Repository mirrors GET /v2/repositories/{namespace}/{name}/.
type Repository struct {
	User            string     `json:"user"`
	Name            string     `json:"name"`
	Namespace       string     `json:"namespace"`
	RepositoryType  string     `json:"repository_type"`
	Status          int        `json:"status"`
	Description     string     `json:"description"`
	IsPrivate       bool       `json:"is_private"`
	IsAutomated     bool       `json:"is_automated"`
	StarCount       int        `json:"star_count"`
	PullCount       int64      `json:"pull_count"`
	LastUpdated     string     `json:"last_updated"`
	DateRegistered  string     `json:"date_registered"`
	FullDescription string     `json:"full_description"`
	Categories      []Category `json:"categories"`
}

// TagImage is a single platform image behind a tag.
type TagImage struct {
	Architecture string `json:"architecture"`
	OS           string `json:"os"`
	Variant      string `json:"variant,omitempty"`
	Digest       string `json:"digest"`
	Size         int64  `json:"size"`
}

// Tag mirrors a tag object from the tags endpoints.
type Tag struct {
	Name        string     `json:"name"`
	FullSize    int64      `json:"full_size"`
	LastUpdated string     `json:"last_updated"`
	Digest      string     `json:"digest"`
	TagStatus   string     `json:"tag_status"`
	Images      []TagImage `json:"images"`
}

// TagList is one page of GET /v2/repositories/{namespace}/{name}/tags.
type TagList struct {
	Count    int    `json:"count"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
	Results  []Tag  `json:"results"`
}

// SearchResult is a single hit from the repository search endpoint.
type SearchResult struct {
	RepoName         string `json:"repo_name"`
	ShortDescription string `json:"short_description"`
	StarCount        int    `json:"star_count"`
	PullCount        int64  `json:"pull_count"`
	RepoOwner        string `json:"repo_owner"`
	IsAutomated      bool   `json:"is_automated"`
	IsOfficial       bool   `json:"is_official"`
}

// SearchResults is one page of GET /v2/search/repositories/.
type SearchResults struct {
	Count    int            `json:"count"`
	Next     string         `json:"next"`
	Previous string         `json:"previous"`
	Results  []SearchResult `json:"results"`
}

// SearchQuery parameterises SearchRepositories. Nil filters are not sent.
type SearchQuery struct {
	Query     string
	Page      int
	PageSize  int
	Official  *bool
	Automated *bool
}
