// Package tree materializes the registry hierarchy (namespace folders, projects,
// repositories, tags) on demand, caching what it fetches and applying the active
// search and tag filters to what it returns.
package tree

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_registry_client.go -package=mocks github.com/amromran102/gitlab-registry-explorer/internal/tree RegistryClient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/amromran102/gitlab-registry-explorer/internal/contextutil"
	"github.com/amromran102/gitlab-registry-explorer/internal/format"
	"github.com/amromran102/gitlab-registry-explorer/internal/registry"
)

// DefaultTagLimit is the display cutoff used when none is configured.
const DefaultTagLimit = 20

// ErrLeaf is returned when children are requested for a node that has none.
var ErrLeaf = errors.New("node has no children")

// RegistryClient is the remote API as the explorer uses it.
type RegistryClient interface {
	ListProjects(ctx context.Context, token string) ([]registry.Project, error)
	ListRepositories(ctx context.Context, token string, projectID int) []registry.Repository
	ListTags(ctx context.Context, token string, projectID, repoID int) ([]registry.Tag, error)
}

// ProjectStore persists the top-level project list between sessions.
type ProjectStore interface {
	Load(ctx context.Context) ([]registry.Project, error)
	Save(ctx context.Context, projects []registry.Project) error
}

// CredentialSource provides the access token. An empty token means none is configured.
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
}

// Messenger shows messages to the user.
type Messenger interface {
	Info(ctx context.Context, msg string)
	Error(ctx context.Context, msg string)
}

// Collapser asks the host to collapse its rendered tree back to the top level.
type Collapser interface {
	CollapseAll()
}

// Config holds the explorer's collaborators and settings.
type Config struct {
	Client       RegistryClient
	Store        ProjectStore
	Credentials  CredentialSource
	Messenger    Messenger
	Collapser    Collapser
	RegistryHost string
	TagLimit     int
	// Now is used for relative tag times; defaults to time.Now.
	Now func() time.Time
}

// Explorer resolves the children of tree nodes. It is safe for concurrent use, but no
// lock is held across network calls: a fetch racing with Refresh is discarded.
type Explorer struct {
	client       RegistryClient
	store        ProjectStore
	credentials  CredentialSource
	messenger    Messenger
	collapser    Collapser
	registryHost string
	tagLimit     int
	now          func() time.Time
	notifier     *Notifier

	mu      sync.Mutex
	cache   Cache
	filters Filters
}

// NewExplorer creates an Explorer seeded with the persisted project list.
func NewExplorer(ctx context.Context, cfg Config) (*Explorer, error) {
	if cfg.Client == nil || cfg.Store == nil || cfg.Credentials == nil {
		return nil, errors.New("explorer requires a client, a project store and a credential source")
	}

	projects, err := cfg.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load project cache: %w", err)
	}

	e := &Explorer{
		client:       cfg.Client,
		store:        cfg.Store,
		credentials:  cfg.Credentials,
		messenger:    cfg.Messenger,
		collapser:    cfg.Collapser,
		registryHost: strings.TrimRight(cfg.RegistryHost, "/"),
		tagLimit:     cfg.TagLimit,
		now:          cfg.Now,
		notifier:     NewNotifier(),
		cache:        newCache(projects),
		filters:      newFilters(),
	}
	if e.tagLimit <= 0 {
		e.tagLimit = DefaultTagLimit
	}
	if e.now == nil {
		e.now = time.Now
	}

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "explorer ready", "cached_projects", len(projects))
	return e, nil
}

// Notifier returns the change notifier fired on every state mutation.
func (e *Explorer) Notifier() *Notifier {
	return e.notifier
}

// Children returns the ordered children of parent. A nil parent is the root.
func (e *Explorer) Children(ctx context.Context, parent Node) ([]Node, error) {
	switch n := parent.(type) {
	case nil, Root:
		return e.rootChildren(ctx), nil
	case Folder:
		return e.folderChildren(ctx, n.Path), nil
	case Project:
		return e.projectChildren(ctx, n.ID), nil
	case Repository:
		return e.repositoryChildren(ctx, n.ProjectID, n.RepoID), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrLeaf, parent.Kind())
	}
}

func (e *Explorer) rootChildren(ctx context.Context) []Node {
	projects := e.projects(ctx)

	e.mu.Lock()
	search := e.filters.search
	e.mu.Unlock()

	var nodes []Node
	if search != "" {
		m := newMatcher(search)
		for _, p := range projects {
			if m.matches(p.PathWithNamespace) {
				nodes = append(nodes, projectNode(p, true))
			}
		}
		if len(nodes) == 0 {
			return []Node{Placeholder{Message: fmt.Sprintf("No projects match %q", search)}}
		}
		sortByLabel(nodes)
		return nodes
	}

	if len(projects) == 0 {
		return []Node{Placeholder{Message: "No projects with container images"}}
	}

	seen := make(map[string]bool)
	for _, p := range projects {
		ns := p.Namespace.FullPath
		if ns == "" {
			nodes = append(nodes, projectNode(p, false))
			continue
		}
		top, _, _ := strings.Cut(ns, "/")
		if !seen[top] {
			seen[top] = true
			nodes = append(nodes, Folder{Path: top})
		}
	}
	sortByLabel(nodes)
	return nodes
}

func (e *Explorer) folderChildren(ctx context.Context, path string) []Node {
	prefix := path + "/"
	seen := make(map[string]bool)

	var nodes []Node
	for _, p := range e.projects(ctx) {
		ns := p.Namespace.FullPath
		switch {
		case ns == path:
			nodes = append(nodes, projectNode(p, false))
		case strings.HasPrefix(ns, prefix):
			segment, _, _ := strings.Cut(ns[len(prefix):], "/")
			child := prefix + segment
			if !seen[child] {
				seen[child] = true
				nodes = append(nodes, Folder{Path: child})
			}
		}
	}

	if len(nodes) == 0 {
		return []Node{Placeholder{Message: "No projects"}}
	}
	sortByLabel(nodes)
	return nodes
}

// projectChildren always asks the registry; repository lists are not cached.
func (e *Explorer) projectChildren(ctx context.Context, projectID int) []Node {
	token, ok := e.token(ctx)
	if !ok {
		return []Node{Placeholder{Message: "No access token configured"}}
	}

	repos := e.client.ListRepositories(ctx, token, projectID)
	if len(repos) == 0 {
		return []Node{Placeholder{Message: "No repositories"}}
	}

	nodes := make([]Node, 0, len(repos))
	for _, r := range repos {
		nodes = append(nodes, Repository{ProjectID: projectID, RepoID: r.ID, Name: r.Label()})
	}
	return nodes
}

func (e *Explorer) repositoryChildren(ctx context.Context, projectID, repoID int) []Node {
	project, ok := e.project(ctx, projectID)
	if !ok {
		return []Node{Placeholder{Message: "Project is no longer available, refresh the tree"}}
	}

	tags := e.tags(ctx, projectID, repoID)

	e.mu.Lock()
	query := e.filters.tag(repoID)
	showAll := e.filters.showAll[repoID]
	e.mu.Unlock()

	input := FilterInput{ProjectID: projectID, RepoID: repoID, Query: query}

	m := newMatcher(query)
	filtered := make([]registry.Tag, 0, len(tags))
	for _, t := range tags {
		if m.matches(t.Name) {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 {
		msg := "No tags"
		if query != "" {
			msg = fmt.Sprintf("No tags match %q", query)
		}
		return []Node{input, Placeholder{Message: msg}}
	}

	shown := filtered
	if !showAll && len(shown) > e.tagLimit {
		shown = shown[:e.tagLimit]
	}

	now := e.now()
	nodes := make([]Node, 0, len(shown)+2)
	nodes = append(nodes, input)
	for _, t := range shown {
		nodes = append(nodes, Tag{
			ProjectID:   projectID,
			RepoID:      repoID,
			Name:        t.Name,
			ImageRef:    e.imageRef(project, t.Name),
			Description: format.TagDescription(t.CreatedAt, t.TotalSize, now),
		})
	}
	if rest := len(filtered) - len(shown); rest > 0 {
		nodes = append(nodes, ShowMore{ProjectID: projectID, RepoID: repoID, Remaining: rest})
	}
	return nodes
}

func (e *Explorer) imageRef(p registry.Project, tag string) string {
	return fmt.Sprintf("%s/%s:%s", e.registryHost, p.PathWithNamespace, tag)
}

// projects returns the cached project list, fetching and persisting it when empty.
// A failed fetch yields whatever was collected, which is shown but not cached.
func (e *Explorer) projects(ctx context.Context) []registry.Project {
	e.mu.Lock()
	cached := e.cache.projects
	generation := e.cache.generation
	e.mu.Unlock()

	if len(cached) > 0 {
		return cached
	}

	token, ok := e.token(ctx)
	if !ok {
		return nil
	}

	projects, err := e.client.ListProjects(ctx, token)
	if err != nil {
		e.report(ctx, "Failed to load projects", err)
		return projects
	}

	e.mu.Lock()
	current := generation == e.cache.generation
	if current {
		e.cache.projects = projects
	}
	e.mu.Unlock()

	if !current {
		return projects
	}
	if err := e.store.Save(ctx, projects); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to persist project cache", "error", err)
	}
	return projects
}

func (e *Explorer) project(ctx context.Context, id int) (registry.Project, bool) {
	e.mu.Lock()
	p, ok := e.cache.project(id)
	e.mu.Unlock()
	if ok {
		return p, true
	}

	for _, p := range e.projects(ctx) {
		if p.ID == id {
			return p, true
		}
	}
	return registry.Project{}, false
}

// tags returns the resolved tags of a repository, fetching them on a cache miss.
func (e *Explorer) tags(ctx context.Context, projectID, repoID int) []registry.Tag {
	e.mu.Lock()
	cached, ok := e.cache.tags[repoID]
	generation := e.cache.generation
	e.mu.Unlock()

	if ok {
		return cached
	}

	token, ok := e.token(ctx)
	if !ok {
		return nil
	}

	tags, err := e.client.ListTags(ctx, token, projectID, repoID)
	if err != nil {
		e.report(ctx, "Failed to load tags", err)
		return tags
	}

	e.mu.Lock()
	if generation == e.cache.generation {
		e.cache.tags[repoID] = tags
	}
	e.mu.Unlock()

	return tags
}

func (e *Explorer) token(ctx context.Context) (string, bool) {
	token, err := e.credentials.Token(ctx)
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to read access token", "error", err)
		e.errorMessage(ctx, "Could not read the GitLab access token: "+err.Error())
		return "", false
	}
	if token == "" {
		e.errorMessage(ctx, "No GitLab access token configured. Set one with the set-credential command.")
		return "", false
	}
	return token, true
}

func (e *Explorer) report(ctx context.Context, what string, err error) {
	contextutil.LoggerFromContext(ctx).WarnContext(ctx, strings.ToLower(what), "error", err)
	if registry.IsAuth(err) {
		e.errorMessage(ctx, what+": the GitLab access token was rejected")
		return
	}
	e.errorMessage(ctx, fmt.Sprintf("%s: %v", what, err))
}

func (e *Explorer) errorMessage(ctx context.Context, msg string) {
	if e.messenger != nil {
		e.messenger.Error(ctx, msg)
	}
}

// Refresh drops every cached level, filter and show-all flag, persists the empty
// project list and signals a change.
func (e *Explorer) Refresh(ctx context.Context) {
	e.mu.Lock()
	e.cache.clear()
	e.filters.reset()
	e.mu.Unlock()

	if err := e.store.Save(ctx, nil); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to persist empty project cache", "error", err)
	}
	e.notifier.Notify()
}

// Search returns the active global project search.
func (e *Explorer) Search() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filters.search
}

// SetSearch sets the global project search. A blank query clears it.
func (e *Explorer) SetSearch(query string) {
	e.mu.Lock()
	e.filters.setSearch(query)
	e.mu.Unlock()
	e.notifier.Notify()
}

// TagFilter returns the tag filter of a repository, or "" when none is set.
func (e *Explorer) TagFilter(repoID int) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filters.tag(repoID)
}

// SetTagFilter sets the tag filter of a repository. A blank query clears it.
func (e *Explorer) SetTagFilter(repoID int, query string) {
	e.mu.Lock()
	e.filters.setTag(repoID, query)
	e.mu.Unlock()
	e.notifier.Notify()
}

// ClearTagFilter removes the tag filter of a repository.
func (e *Explorer) ClearTagFilter(repoID int) {
	e.SetTagFilter(repoID, "")
}

// ShowAllTags lifts the display cutoff for a repository.
func (e *Explorer) ShowAllTags(repoID int) {
	e.mu.Lock()
	e.filters.showAll[repoID] = true
	e.mu.Unlock()
	e.notifier.Notify()
}

// ClearAll resets the search, every tag filter and every show-all flag, then asks the
// host to collapse its tree. Cached data is kept.
func (e *Explorer) ClearAll() {
	e.mu.Lock()
	e.filters.reset()
	e.mu.Unlock()

	e.notifier.Notify()
	if e.collapser != nil {
		e.collapser.CollapseAll()
	}
}

// Collapse is reported by the host when a node is collapsed. Collapsing a repository
// resets its tag filter and show-all flag so the next expansion starts clean.
func (e *Explorer) Collapse(node Node) {
	repo, ok := node.(Repository)
	if !ok {
		return
	}

	e.mu.Lock()
	e.filters.resetRepo(repo.RepoID)
	e.mu.Unlock()
	e.notifier.Notify()
}

// CachedTagNames returns the names of the cached tags of a repository, newest first.
func (e *Explorer) CachedTagNames(repoID int) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	tags := e.cache.tags[repoID]
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return names
}

func projectNode(p registry.Project, search bool) Project {
	return Project{
		ID:        p.ID,
		Path:      p.PathWithNamespace,
		Namespace: p.Namespace.FullPath,
		Search:    search,
	}
}
