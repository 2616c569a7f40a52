package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is the public Docker Hub API host.
const DefaultBaseURL = "https://hub.docker.com"

// DefaultTimeout bounds a single outbound request.
const DefaultTimeout = 30 * time.Second

const maxErrorBody = 4 << 10

// ClientOptions configures NewClient.
type ClientOptions struct {
	BaseURL string
	// Token, when set, is sent as a bearer token (personal access token or JWT).
	Token     string
	Timeout   time.Duration
	UserAgent string
	// HTTPClient overrides the transport. Its Timeout is replaced by Timeout.
	HTTPClient *http.Client
}

// Client talks to the Docker Hub v2 API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewClient creates a Docker Hub client.
func NewClient(opts ClientOptions) (*Client, error) {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid docker hub base url %q: %w", baseURL, err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
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

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// GetRepository fetches repository metadata including the README
// (full_description).
func (c *Client) GetRepository(ctx context.Context, namespace, name string) (*Repository, error) {
	var repo Repository
	path := fmt.Sprintf("/v2/repositories/%s/%s/", url.PathEscape(namespace), url.PathEscape(name))
	if err := c.get(ctx, path, nil, "image "+namespace+"/"+name, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// GetTags fetches one page of tags, most recently updated first.
func (c *Client) GetTags(ctx context.Context, namespace, name string, page, pageSize int) (*TagList, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(max(page, 1)))
	q.Set("page_size", strconv.Itoa(clampPageSize(pageSize)))
	q.Set("ordering", "last_updated")

	var tags TagList
	path := fmt.Sprintf("/v2/repositories/%s/%s/tags", url.PathEscape(namespace), url.PathEscape(name))
	if err := c.get(ctx, path, q, "tags of image "+namespace+"/"+name, &tags); err != nil {
		return nil, err
	}
	return &tags, nil
}

// GetTagDetails fetches a single tag.
func (c *Client) GetTagDetails(ctx context.Context, namespace, name, tag string) (*Tag, error) {
	var t Tag
	path := fmt.Sprintf("/v2/repositories/%s/%s/tags/%s", url.PathEscape(namespace), url.PathEscape(name), url.PathEscape(tag))
	if err := c.get(ctx, path, nil, "tag "+namespace+"/"+name+":"+tag, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// SearchRepositories runs a repository search.
func (c *Client) SearchRepositories(ctx context.Context, sq SearchQuery) (*SearchResults, error) {
	q := url.Values{}
	q.Set("query", sq.Query)
	q.Set("page", strconv.Itoa(max(sq.Page, 1)))
	q.Set("page_size", strconv.Itoa(clampPageSize(sq.PageSize)))
	if sq.Official != nil {
		q.Set("is_official", strconv.FormatBool(*sq.Official))
	}
	if sq.Automated != nil {
		q.Set("is_automated", strconv.FormatBool(*sq.Automated))
	}

	var res SearchResults
	if err := c.get(ctx, "/v2/search/repositories/", q, "search results for "+strconv.Quote(sq.Query), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, subject string, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return NewNetworkError(subject, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := CheckResponse(resp, subject); err != nil {
		var he *Error
		if errors.As(err, &he) && he.Kind != KindNotFound {
			if body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)); len(body) > 0 {
				he.Err = errors.New(strings.TrimSpace(string(body)))
			}
		}
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewNetworkError(subject, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", subject, err)
	}
	return nil
}

func clampPageSize(n int) int {
	switch {
	case n <= 0:
		return 25
	case n > 100:
		return 100
	default:
		return n
	}
}
