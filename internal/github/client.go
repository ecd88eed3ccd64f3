// Package github provides a small client for the submission issues on GitHub.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// DefaultBaseURL is the GitHub REST API root.
const DefaultBaseURL = "https://api.github.com"

// Client is a GitHub API client for reading submission issues.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Submission is an open issue carrying a publication submission.
type Submission struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	HTMLURL   string    `json:"html_url"`
	User      string    `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

// apiIssue is the subset of the issues API response we read.
type apiIssue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	HTMLURL   string    `json:"html_url"`
	CreatedAt time.Time `json:"created_at"`
	User      struct {
		Login string `json:"login"`
	} `json:"user"`
	PullRequest *json.RawMessage `json:"pull_request"`
}

// Errors.
var (
	ErrInvalidURL   = errors.New("invalid GitHub URL format")
	ErrRepoNotFound = errors.New("repository not found (404)")
	ErrRateLimited  = errors.New("GitHub API rate limit exceeded")
	ErrUnauthorized = errors.New("GitHub API authentication failed")
	ErrAPIError     = errors.New("GitHub API error")
	ErrNetworkError = errors.New("network error connecting to GitHub")
)

// Option configures a Client.
type Option func(*Client)

// WithToken authenticates requests with a personal access token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithBaseURL points the client at another API root (tests use httptest).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new GitHub API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// urlPatterns for parsing GitHub URLs.
var (
	// Matches: https://github.com/owner/repo, https://github.com/owner/repo.git, github.com/owner/repo
	fullURLPattern = regexp.MustCompile(`^(?:https?://)?github\.com/([a-zA-Z0-9_.-]+)/([a-zA-Z0-9_.-]+?)(?:\.git)?/?$`)
	// Matches: owner/repo
	shorthandPattern = regexp.MustCompile(`^([a-zA-Z0-9_.-]+)/([a-zA-Z0-9_.-]+)$`)
)

// ParseGitHubURL parses a GitHub URL or owner/repo shorthand and returns (owner, repo).
// Supported formats:
//   - https://github.com/owner/repo
//   - https://github.com/owner/repo.git
//   - github.com/owner/repo
//   - owner/repo
func ParseGitHubURL(input string) (owner, repo string, err error) {
	input = strings.TrimSpace(input)

	if matches := fullURLPattern.FindStringSubmatch(input); matches != nil {
		return matches[1], matches[2], nil
	}
	if matches := shorthandPattern.FindStringSubmatch(input); matches != nil {
		return matches[1], matches[2], nil
	}
	return "", "", ErrInvalidURL
}

// OpenSubmissions lists open issues in owner/repo carrying label, newest
// first. Pull requests are skipped.
func (c *Client) OpenSubmissions(ctx context.Context, owner, repo, label string) ([]Submission, error) {
	q := url.Values{}
	q.Set("state", "open")
	q.Set("per_page", "100")
	if label != "" {
		q.Set("labels", label)
	}
	apiURL := fmt.Sprintf("%s/repos/%s/%s/issues?%s",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "midel-cli")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var issues []apiIssue
	if err := json.NewDecoder(resp.Body).Decode(&issues); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrAPIError, err)
	}

	subs := make([]Submission, 0, len(issues))
	for _, is := range issues {
		if is.PullRequest != nil {
			continue
		}
		subs = append(subs, Submission{
			Number:    is.Number,
			Title:     is.Title,
			HTMLURL:   is.HTMLURL,
			User:      is.User.Login,
			CreatedAt: is.CreatedAt,
		})
	}
	return subs, nil
}

func checkStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrRepoNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return ErrRateLimited
		}
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
	}
}
