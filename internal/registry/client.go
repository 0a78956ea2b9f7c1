package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"github.com/amromran102/gitlab-registry-explorer/internal/contextutil"
)

const (
	// PageSize is the per_page value sent on every paginated call.
	PageSize = 100

	apiPrefix      = "/api/v4"
	defaultTimeout = 30 * time.Second
	maxBodyMessage = 200
)

// Options configures a Client.
type Options struct {
	// BaseURL is the GitLab instance root, e.g. https://gitlab.com.
	BaseURL string
	Timeout time.Duration
	// TagConcurrency caps concurrent per-tag detail requests. Zero or less means unbounded.
	TagConcurrency int
}

// Client talks to the GitLab container registry API.
// The access token is passed on every call and never stored.
type Client struct {
	http           *resty.Client
	tagConcurrency int
}

// NewClient creates a new registry client.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	r := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")+apiPrefix).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "gitlab-registry-explorer/1.0")

	return &Client{
		http:           r,
		tagConcurrency: opts.TagConcurrency,
	}
}

// ListProjects returns every project the token is a member of that has the container
// registry enabled and at least one repository. Pages are fetched until an empty page;
// the repository probes for one page run concurrently before the next page is requested.
//
// On the first failing page it stops and returns what was collected so far together
// with the error (an AuthError for 401/403, a NetworkError otherwise).
func (c *Client) ListProjects(ctx context.Context, token string) ([]Project, error) {
	logger := contextutil.LoggerFromContext(ctx)
	if token == "" {
		return nil, &AuthError{Err: ErrMissingToken}
	}

	var projects []Project
	for page := 1; ; page++ {
		var batch []Project
		query := map[string]string{
			"membership": "true",
			"per_page":   strconv.Itoa(PageSize),
			"page":       strconv.Itoa(page),
		}
		if err := c.get(ctx, token, "/projects", query, &batch); err != nil {
			logger.WarnContext(ctx, "project listing stopped early",
				"page", page,
				"collected", len(projects),
				"error", err,
			)
			return projects, err
		}
		if len(batch) == 0 {
			break
		}
		projects = append(projects, c.withImages(ctx, token, batch)...)
	}

	logger.DebugContext(ctx, "listed projects", "count", len(projects))
	return projects, nil
}

// withImages keeps the registry-enabled projects of batch whose registry is non-empty,
// preserving order.
func (c *Client) withImages(ctx context.Context, token string, batch []Project) []Project {
	keep := make([]bool, len(batch))

	var g errgroup.Group
	for i, p := range batch {
		if !p.ContainerRegistryEnabled {
			continue
		}
		g.Go(func() error {
			keep[i] = len(c.ListRepositories(ctx, token, p.ID)) > 0
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Project, 0, len(batch))
	for i, p := range batch {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// ListRepositories returns the container repositories of a project.
// Failures are logged and reported as an empty list.
func (c *Client) ListRepositories(ctx context.Context, token string, projectID int) []Repository {
	logger := contextutil.LoggerFromContext(ctx)
	if token == "" {
		logger.WarnContext(ctx, "repository listing skipped", "project_id", projectID, "error", ErrMissingToken)
		return nil
	}

	var repos []Repository
	path := fmt.Sprintf("/projects/%d/registry/repositories", projectID)
	if err := c.get(ctx, token, path, nil, &repos); err != nil {
		logger.WarnContext(ctx, "repository listing failed", "project_id", projectID, "error", err)
		return nil
	}
	return repos
}

// ListTags returns the fully resolved tags of a repository, newest first.
// Names are listed page by page until an empty page, then every tag's detail is fetched
// concurrently. A failed detail call leaves that tag name-only.
//
// If a listing page fails, the tags listed so far are resolved and returned along with
// the error.
func (c *Client) ListTags(ctx context.Context, token string, projectID, repoID int) ([]Tag, error) {
	logger := contextutil.LoggerFromContext(ctx)
	if token == "" {
		return nil, &AuthError{Err: ErrMissingToken}
	}

	base := fmt.Sprintf("/projects/%d/registry/repositories/%d/tags", projectID, repoID)

	var (
		tags    []Tag
		listErr error
	)
	for page := 1; ; page++ {
		var batch []Tag
		query := map[string]string{
			"per_page": strconv.Itoa(PageSize),
			"page":     strconv.Itoa(page),
		}
		if err := c.get(ctx, token, base, query, &batch); err != nil {
			logger.WarnContext(ctx, "tag listing stopped early",
				"project_id", projectID,
				"repo_id", repoID,
				"page", page,
				"error", err,
			)
			listErr = err
			break
		}
		if len(batch) == 0 {
			break
		}
		tags = append(tags, batch...)
	}

	resolved := c.tagDetails(ctx, token, base, tags)
	SortByCreated(resolved)
	return resolved, listErr
}

func (c *Client) tagDetails(ctx context.Context, token, base string, listed []Tag) []Tag {
	logger := contextutil.LoggerFromContext(ctx)
	resolved := make([]Tag, len(listed))

	var g errgroup.Group
	if c.tagConcurrency > 0 {
		g.SetLimit(c.tagConcurrency)
	}
	for i, tag := range listed {
		g.Go(func() error {
			var detail Tag
			if err := c.get(ctx, token, base+"/"+url.PathEscape(tag.Name), nil, &detail); err != nil {
				logger.WarnContext(ctx, "tag detail unavailable", "tag", tag.Name, "error", err)
				resolved[i] = Tag{Name: tag.Name, Path: tag.Path, Location: tag.Location}
				return nil
			}
			if detail.Name == "" {
				detail.Name = tag.Name
			}
			resolved[i] = detail
			return nil
		})
	}
	_ = g.Wait()

	return resolved
}

// get issues an authenticated GET and decodes a JSON success body into out.
func (c *Client) get(ctx context.Context, token, path string, query map[string]string, out any) error {
	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		ForceContentType("application/json").
		SetResult(out)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		return &NetworkError{Op: "GET " + path, Err: err}
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &AuthError{StatusCode: code, Err: errors.New(bodyMessage(resp))}
	case !resp.IsSuccess():
		return &NetworkError{Op: "GET " + path, StatusCode: code, Err: errors.New(bodyMessage(resp))}
	}
	return nil
}

func bodyMessage(resp *resty.Response) string {
	msg := strings.TrimSpace(resp.String())
	if msg == "" {
		return http.StatusText(resp.StatusCode())
	}
	return truncate(msg, maxBodyMessage)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
