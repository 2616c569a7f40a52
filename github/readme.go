// Package github fetches README files from GitHub. It is the fallback
// README source for Docker Hub repositories whose own description is empty
// but which link to a GitHub project.
package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ferro-labs/dockerhub-mcp/hub"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is the public GitHub REST API host.
const DefaultBaseURL = "https://api.github.com"

// maxReadme bounds how much README text is read from a response.
const maxReadme = 2 << 20

var repoLinkRe = regexp.MustCompile(`(?i)github\.com/([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+)`)

// Repo identifies a GitHub repository.
type Repo struct {
	Owner string
	Name  string
}

// URL returns the repository's web address.
func (r Repo) URL() string { return "https://github.com/" + r.Owner + "/" + r.Name }

// String implements fmt.Stringer.
func (r Repo) String() string { return r.Owner + "/" + r.Name }

// FindRepo returns the first github.com/<owner>/<repo> link in text.
func FindRepo(text string) (Repo, bool) {
	m := repoLinkRe.FindStringSubmatch(text)
	if m == nil {
		return Repo{}, false
	}
	name := strings.TrimSuffix(strings.TrimRight(m[2], "."), ".git")
	if name == "" {
		return Repo{}, false
	}
	return Repo{Owner: m[1], Name: name}, true
}

// Options configures NewClient.
type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
}

// Client reads README content through the GitHub contents API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewClient creates a GitHub README client. Token is optional; anonymous
// requests are subject to GitHub's lower rate limit.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid github base url %q: %w", baseURL, err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = hub.DefaultTimeout
	}

	hc := &http.Client{}
	if opts.HTTPClient != nil {
		cp := *opts.HTTPClient
		hc = &cp
	}
	if opts.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}))
	}
	hc.Timeout = timeout

	ua := opts.UserAgent
	if ua == "" {
		ua = "dockerhub-mcp"
	}
	return &Client{httpClient: hc, baseURL: baseURL, userAgent: ua}, nil
}

// FetchReadme returns the raw README of repo. A repository without a README
// (or one that does not exist) yields "" and a nil error.
func (c *Client) FetchReadme(ctx context.Context, repo Repo) (string, error) {
	subject := "README of github.com/" + repo.String()
	u := fmt.Sprintf("%s/repos/%s/%s/readme", c.baseURL, url.PathEscape(repo.Owner), url.PathEscape(repo.Name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.raw")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", hub.NewNetworkError(subject, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := hub.CheckResponse(resp, subject); err != nil {
		if hub.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReadme))
	if err != nil {
		return "", hub.NewNetworkError(subject, err)
	}
	return string(body), nil
}
