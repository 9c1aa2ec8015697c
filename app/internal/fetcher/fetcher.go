package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultRepo is the repository whose log is shown when none is given
	DefaultRepo = "neoascetic/rawgithack-status"
	// DefaultAPIBase is the GitHub REST API root used for repo info
	DefaultAPIBase = "https://api.github.com"

	rawLogURL       = "https://raw.githubusercontent.com/%s/refs/heads/master/log.csv"
	defaultMaxBytes = 32 << 20
)

// ErrBadRepo is returned for repo names that are not in owner/name form
var ErrBadRepo = errors.New("repo must be in owner/name form")

var repoPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// ValidateRepo checks that repo looks like "owner/name"
func ValidateRepo(repo string) error {
	if !repoPattern.MatchString(repo) || strings.Contains(repo, "..") {
		return ErrBadRepo
	}
	return nil
}

// LogURL returns the raw log.csv URL for a GitHub repository
func LogURL(repo string) string {
	return fmt.Sprintf(rawLogURL, repo)
}

// RepoInfo is the subset of GitHub repository metadata shown on the page
type RepoInfo struct {
	Description string `json:"description" yaml:"description"`
	Homepage    string `json:"homepage" yaml:"homepage"`
	HTMLURL     string `json:"html_url" yaml:"html_url"`
}

// Client fetches health-check logs and repository metadata over HTTP.
// Concurrent requests for the same URL share one round trip.
type Client struct {
	HTTP      *http.Client
	APIBase   string
	UserAgent string
	MaxBytes  int64

	group singleflight.Group
}

// NewClient creates a client with the given request timeout
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		APIBase:   DefaultAPIBase,
		UserAgent: "statuspage",
		MaxBytes:  defaultMaxBytes,
	}
}

func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d from %s", resp.StatusCode, url)
	}

	limit := c.MaxBytes
	if limit <= 0 {
		limit = defaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", url, limit)
	}
	return body, nil
}

// shared runs fn once per key for all concurrent callers. The shared call is
// detached from any single caller's cancellation and bounded by the HTTP
// client timeout; each caller still returns as soon as its own ctx is done.
func (c *Client) shared(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return fn(detached)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// FetchLog downloads the raw log text from url
func (c *Client) FetchLog(ctx context.Context, url string) (string, error) {
	v, err := c.shared(ctx, "log:"+url, func(ctx context.Context) (interface{}, error) {
		body, err := c.get(ctx, url, "text/plain")
		if err != nil {
			return "", err
		}
		return string(body), nil
	})
	if err != nil {
		return "", fmt.Errorf("fetch log: %w", err)
	}
	return v.(string), nil
}

// FetchRepoInfo loads description and homepage for a GitHub repository
func (c *Client) FetchRepoInfo(ctx context.Context, repo string) (RepoInfo, error) {
	if err := ValidateRepo(repo); err != nil {
		return RepoInfo{}, err
	}
	base := strings.TrimSuffix(c.APIBase, "/")
	if base == "" {
		base = DefaultAPIBase
	}

	v, err := c.shared(ctx, "repo:"+repo, func(ctx context.Context) (interface{}, error) {
		body, err := c.get(ctx, base+"/repos/"+repo, "application/vnd.github+json")
		if err != nil {
			return RepoInfo{}, err
		}
		var info RepoInfo
		if err := json.Unmarshal(body, &info); err != nil {
			return RepoInfo{}, err
		}
		return info, nil
	})
	if err != nil {
		return RepoInfo{}, fmt.Errorf("fetch repo info: %w", err)
	}
	return v.(RepoInfo), nil
}
