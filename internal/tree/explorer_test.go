package tree

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/amromran102/gitlab-registry-explorer/internal/registry"
	"github.com/amromran102/gitlab-registry-explorer/internal/tree/mocks"
)

type memStore struct {
	mu       sync.Mutex
	projects []registry.Project
	saves    int
}

func (s *memStore) Load(ctx context.Context) ([]registry.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects, nil
}

func (s *memStore) Save(ctx context.Context, projects []registry.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = projects
	s.saves++
	return nil
}

type staticToken string

func (s staticToken) Token(ctx context.Context) (string, error) { return string(s), nil }

type recordingMessenger struct {
	mu     sync.Mutex
	errors []string
}

func (m *recordingMessenger) Info(ctx context.Context, msg string) {}

func (m *recordingMessenger) Error(ctx context.Context, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

type collapseCounter struct{ n int }

func (c *collapseCounter) CollapseAll() { c.n++ }

var (
	appProject = registry.Project{
		ID:                1,
		Name:              "app",
		PathWithNamespace: "g/sub/app",
		Namespace:         registry.Namespace{FullPath: "g/sub"},
	}
	toolProject = registry.Project{
		ID:                2,
		Name:              "tool",
		PathWithNamespace: "g/tool",
		Namespace:         registry.Namespace{FullPath: "g"},
	}
	webProject = registry.Project{
		ID:                3,
		Name:              "web",
		PathWithNamespace: "alpha/web",
		Namespace:         registry.Namespace{FullPath: "alpha"},
	}
)

type fixture struct {
	explorer  *Explorer
	client    *mocks.MockRegistryClient
	store     *memStore
	messenger *recordingMessenger
	collapser *collapseCounter
}

func newFixture(t *testing.T, cached []registry.Project, token string) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		client:    mocks.NewMockRegistryClient(ctrl),
		store:     &memStore{projects: cached},
		messenger: &recordingMessenger{},
		collapser: &collapseCounter{},
	}

	e, err := NewExplorer(context.Background(), Config{
		Client:       f.client,
		Store:        f.store,
		Credentials:  staticToken(token),
		Messenger:    f.messenger,
		Collapser:    f.collapser,
		RegistryHost: "registry.example.com",
		TagLimit:     20,
		Now:          func() time.Time { return time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewExplorer() error = %v", err)
	}
	f.explorer = e
	return f
}

func children(t *testing.T, e *Explorer, parent Node) []Node {
	t.Helper()
	nodes, err := e.Children(context.Background(), parent)
	if err != nil {
		t.Fatalf("Children(%v) error = %v", parent, err)
	}
	return nodes
}

func labels(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Label()
	}
	return out
}

func makeTags(n int) []registry.Tag {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tags := make([]registry.Tag, n)
	for i := range tags {
		created := base.Add(-time.Duration(i) * time.Hour)
		size := int64(1024 * (i + 1))
		tags[i] = registry.Tag{Name: fmt.Sprintf("v%02d", i), CreatedAt: &created, TotalSize: &size}
	}
	return tags
}

func TestNewExplorer_RequiresCollaborators(t *testing.T) {
	if _, err := NewExplorer(context.Background(), Config{}); err == nil {
		t.Error("NewExplorer() expected error for missing collaborators")
	}
}

func TestExplorer_FolderNavigation(t *testing.T) {
	f := newFixture(t, []registry.Project{{
		ID:                1,
		PathWithNamespace: "g/sub/app",
		Namespace:         registry.Namespace{FullPath: "g/sub"},
	}}, "tok")

	root := children(t, f.explorer, Root{})
	if len(root) != 1 || root[0] != (Folder{Path: "g"}) {
		t.Fatalf("root children = %#v, want [Folder g]", root)
	}

	sub := children(t, f.explorer, root[0])
	if len(sub) != 1 || sub[0] != (Folder{Path: "g/sub"}) {
		t.Fatalf("folder g children = %#v, want [Folder g/sub]", sub)
	}
	if sub[0].Label() != "sub" {
		t.Errorf("folder label = %q, want sub", sub[0].Label())
	}

	leaf := children(t, f.explorer, sub[0])
	if len(leaf) != 1 {
		t.Fatalf("folder g/sub children = %#v, want one project", leaf)
	}
	project, ok := leaf[0].(Project)
	if !ok || project.ID != 1 || project.Label() != "app" {
		t.Errorf("folder g/sub child = %#v (label %q), want project app", leaf[0], leaf[0].Label())
	}
}

func TestExplorer_FolderMixesProjectsAndSubfolders(t *testing.T) {
	f := newFixture(t, []registry.Project{appProject, toolProject, webProject}, "tok")

	root := children(t, f.explorer, nil)
	if got, want := labels(root), []string{"alpha", "g"}; !reflect.DeepEqual(got, want) {
		t.Errorf("root labels = %v, want %v", got, want)
	}

	g := children(t, f.explorer, Folder{Path: "g"})
	if got, want := labels(g), []string{"sub", "tool"}; !reflect.DeepEqual(got, want) {
		t.Errorf("folder g labels = %v, want %v", got, want)
	}
	if g[0].Kind() != KindFolder || g[1].Kind() != KindProject {
		t.Errorf("folder g kinds = %v, %v", g[0].Kind(), g[1].Kind())
	}
}

func TestExplorer_Search(t *testing.T) {
	f := newFixture(t, []registry.Project{appProject, toolProject, webProject}, "tok")

	before := children(t, f.explorer, Root{})

	f.explorer.SetSearch("  APP ")
	if f.explorer.Search() != "APP" {
		t.Errorf("Search() = %q, want APP", f.explorer.Search())
	}
	found := children(t, f.explorer, Root{})
	if got, want := labels(found), []string{"app (g/sub)"}; !reflect.DeepEqual(got, want) {
		t.Errorf("search labels = %v, want %v", got, want)
	}

	f.explorer.SetSearch("zzz")
	none := children(t, f.explorer, Root{})
	if len(none) != 1 || none[0].Kind() != KindPlaceholder {
		t.Errorf("no-match search = %#v, want one placeholder", none)
	}

	f.explorer.SetSearch("")
	after := children(t, f.explorer, Root{})
	if !reflect.DeepEqual(before, after) {
		t.Errorf("root after clearing search = %v, want %v", after, before)
	}
}

func TestExplorer_RootFetchesAndPersists(t *testing.T) {
	f := newFixture(t, nil, "tok")
	f.client.EXPECT().ListProjects(gomock.Any(), "tok").Return([]registry.Project{appProject}, nil).Times(1)

	first := children(t, f.explorer, Root{})
	second := children(t, f.explorer, Root{})

	if !reflect.DeepEqual(first, second) || len(first) != 1 {
		t.Errorf("root children = %v then %v", first, second)
	}
	if f.store.saves != 1 || len(f.store.projects) != 1 {
		t.Errorf("store saves = %d with %d projects, want 1 save of 1 project", f.store.saves, len(f.store.projects))
	}
}

func TestExplorer_RootPartialFailureIsNotCached(t *testing.T) {
	f := newFixture(t, nil, "tok")
	failure := &registry.NetworkError{Op: "GET /projects", StatusCode: 502, Err: errors.New("bad gateway")}

	gomock.InOrder(
		f.client.EXPECT().ListProjects(gomock.Any(), "tok").Return([]registry.Project{appProject}, failure),
		f.client.EXPECT().ListProjects(gomock.Any(), "tok").Return([]registry.Project{appProject, webProject}, nil),
	)

	partial := children(t, f.explorer, Root{})
	if got, want := labels(partial), []string{"g"}; !reflect.DeepEqual(got, want) {
		t.Errorf("partial root labels = %v, want %v", got, want)
	}
	if f.store.saves != 0 {
		t.Errorf("partial result was persisted")
	}
	if len(f.messenger.errors) != 1 {
		t.Errorf("messenger errors = %v, want one diagnostic", f.messenger.errors)
	}

	full := children(t, f.explorer, Root{})
	if got, want := labels(full), []string{"alpha", "g"}; !reflect.DeepEqual(got, want) {
		t.Errorf("root labels after refetch = %v, want %v", got, want)
	}
}

func TestExplorer_AuthFailure(t *testing.T) {
	f := newFixture(t, nil, "tok")
	f.client.EXPECT().ListProjects(gomock.Any(), "tok").
		Return(nil, &registry.AuthError{StatusCode: 401, Err: errors.New("401 Unauthorized")})

	nodes := children(t, f.explorer, Root{})
	if len(nodes) != 1 || nodes[0].Kind() != KindPlaceholder {
		t.Errorf("root children = %#v, want placeholder", nodes)
	}
	if len(f.messenger.errors) != 1 || !strings.Contains(f.messenger.errors[0], "rejected") {
		t.Errorf("messenger errors = %v, want token rejected message", f.messenger.errors)
	}
}

func TestExplorer_MissingToken(t *testing.T) {
	f := newFixture(t, nil, "")

	nodes := children(t, f.explorer, Root{})
	if len(nodes) != 1 || nodes[0].Kind() != KindPlaceholder {
		t.Errorf("root children = %#v, want placeholder", nodes)
	}
	if len(f.messenger.errors) != 1 {
		t.Errorf("messenger errors = %v, want one", f.messenger.errors)
	}
}

func TestExplorer_ProjectChildrenAlwaysFetched(t *testing.T) {
	f := newFixture(t, []registry.Project{appProject}, "tok")
	f.client.EXPECT().ListRepositories(gomock.Any(), "tok", 1).
		Return([]registry.Repository{{ID: 10, Name: "api"}, {ID: 11, Name: "", Path: "g/sub/app"}}).
		Times(2)

	for i := 0; i < 2; i++ {
		nodes := children(t, f.explorer, Project{ID: 1})
		want := []Node{
			Repository{ProjectID: 1, RepoID: 10, Name: "api"},
			Repository{ProjectID: 1, RepoID: 11, Name: "g/sub/app"},
		}
		if !reflect.DeepEqual(nodes, want) {
			t.Errorf("project children = %#v, want %#v", nodes, want)
		}
	}
}

func TestExplorer_ProjectWithoutRepositories(t *testing.T) {
	f := newFixture(t, []registry.Project{appProject}, "tok")
	f.client.EXPECT().ListRepositories(gomock.Any(), "tok", 1).Return(nil)

	nodes := children(t, f.explorer, Project{ID: 1})
	if len(nodes) != 1 || nodes[0].Label() != "No repositories" {
		t.Errorf("project children = %#v, want No repositories placeholder", nodes)
	}
}

func TestExplorer_RepositoryCutoffAndShowAll(t *testing.T) {
	f := newFixture(t, []registry.Project{appProject}, "tok")
	f.client.EXPECT().ListTags(gomock.Any(), "tok", 1, 10).Return(makeTags(30), nil).Times(1)
	repo := Repository{ProjectID: 1, RepoID: 10, Name: "api"}

	nodes := children(t, f.explorer, repo)
	if len(nodes) != 22 {
		t.Fatalf("repository children = %d, want 22", len(nodes))
	}
	if nodes[0].Kind() != KindFilterInput {
		t.Errorf("first child kind = %v, want filter-input", nodes[0].Kind())
	}
	more, ok := nodes[21].(ShowMore)
	if !ok || more.Remaining != 10 || !strings.Contains(more.Label(), "10 more") {
		t.Errorf("last child = %#v, want show-more with 10 remaining", nodes[21])
	}

	tag := nodes[1].(Tag)
	if tag.Name != "v00" || tag.ImageRef != "registry.example.com/g/sub/app:v00" {
		t.Errorf("first tag = %#v", tag)
	}
	if !strings.HasSuffix(tag.Description, "1.00 KB") {
		t.Errorf("tag description = %q, want size suffix", tag.Description)
	}

	f.explorer.ShowAllTags(10)
	all := children(t, f.explorer, repo)
	if len(all) != 31 {
		t.Fatalf("repository children after show-all = %d, want 31", len(all))
	}
	for _, n := range all {
		if n.Kind() == KindShowMore {
			t.Error("show-more present after show-all")
		}
	}
}

func TestExplorer_TagFilter(t *testing.T) {
	f := newFixture(t, []registry.Project{appProject}, "tok")
	f.client.EXPECT().ListTags(gomock.Any(), "tok", 1, 10).Return(makeTags(30), nil).Times(1)
	repo := Repository{ProjectID: 1, RepoID: 10}

	f.explorer.SetTagFilter(10, " V1")
	nodes := children(t, f.explorer, repo)
	// v10..v19
	if len(nodes) != 11 {
		t.Errorf("filtered children = %d, want 11", len(nodes))
	}
	if input := nodes[0].(FilterInput); input.Query != "V1" {
		t.Errorf("filter input query = %q, want V1", input.Query)
	}

	f.explorer.SetTagFilter(10, "nothing-matches")
	nodes = children(t, f.explorer, repo)
	if len(nodes) != 2 || nodes[0].Kind() != KindFilterInput || nodes[1].Kind() != KindPlaceholder {
		t.Errorf("no-match children = %#v, want filter-input + placeholder", nodes)
	}

	f.explorer.ClearTagFilter(10)
	if got := f.explorer.TagFilter(10); got != "" {
		t.Errorf("TagFilter() after clear = %q, want empty", got)
	}
	if got := len(children(t, f.explorer, repo)); got != 22 {
		t.Errorf("children after clearing filter = %d, want 22", got)
	}
}

func TestExplorer_EmptyRepository(t *testing.T) {
	f := newFixture(t, []registry.Project{appProject}, "tok")
	f.client.EXPECT().ListTags(gomock.Any(), "tok", 1, 10).Return([]registry.Tag{}, nil)

	nodes := children(t, f.explorer, Repository{ProjectID: 1, RepoID: 10})
	if got, want := labels(nodes), []string{"Filter tags…", "No tags"}; !reflect.DeepEqual(got, want) {
		t.Errorf("empty repository labels = %v, want %v", got, want)
	}
}

func TestExplorer_CollapseRepositoryResetsState(t *testing.T) {
	f := newFixture(t, []registry.Project{appProject}, "tok")
	repo := Repository{ProjectID: 1, RepoID: 10}

	f.explorer.SetTagFilter(10, "v1")
	f.explorer.SetTagFilter(11, "keep")
	f.explorer.ShowAllTags(10)
	f.explorer.Collapse(repo)
	f.explorer.Collapse(Folder{Path: "g"})

	if f.explorer.TagFilter(10) != "" {
		t.Error("collapse should clear the repository filter")
	}
	if f.explorer.TagFilter(11) != "keep" {
		t.Error("collapse should not clear other repositories")
	}
	f.explorer.mu.Lock()
	showAll := f.explorer.filters.showAll[10]
	f.explorer.mu.Unlock()
	if showAll {
		t.Error("collapse should clear show-all")
	}
}

func TestExplorer_ClearAll(t *testing.T) {
	f := newFixture(t, []registry.Project{appProject}, "tok")
	f.client.EXPECT().ListTags(gomock.Any(), "tok", 1, 10).Return(makeTags(3), nil).Times(1)
	repo := Repository{ProjectID: 1, RepoID: 10}

	children(t, f.explorer, repo)
	f.explorer.SetSearch("app")
	f.explorer.SetTagFilter(10, "v0")
	f.explorer.ShowAllTags(10)
	version := f.explorer.Notifier().Version()

	f.explorer.ClearAll()

	if f.explorer.Search() != "" || f.explorer.TagFilter(10) != "" {
		t.Error("ClearAll() should clear both filter scopes")
	}
	if f.collapser.n != 1 {
		t.Errorf("collapse requests = %d, want 1", f.collapser.n)
	}
	if f.explorer.Notifier().Version() <= version {
		t.Error("ClearAll() should signal a change")
	}
	// Tag cache survives: no second ListTags call.
	if got := len(children(t, f.explorer, repo)); got != 4 {
		t.Errorf("children after ClearAll() = %d, want 4", got)
	}
	if names := f.explorer.CachedTagNames(10); len(names) != 3 {
		t.Errorf("CachedTagNames() = %v, want 3 names", names)
	}
}

func TestExplorer_Refresh(t *testing.T) {
	f := newFixture(t, []registry.Project{appProject}, "tok")
	f.client.EXPECT().ListTags(gomock.Any(), "tok", 1, 10).Return(makeTags(2), nil).Times(2)
	f.client.EXPECT().ListProjects(gomock.Any(), "tok").Return([]registry.Project{appProject}, nil).Times(1)
	repo := Repository{ProjectID: 1, RepoID: 10}

	children(t, f.explorer, repo)
	f.explorer.SetSearch("app")
	f.explorer.SetTagFilter(10, "v")
	version := f.explorer.Notifier().Version()

	f.explorer.Refresh(context.Background())

	if f.explorer.Search() != "" || f.explorer.TagFilter(10) != "" {
		t.Error("Refresh() should clear filters")
	}
	if f.store.saves != 1 || len(f.store.projects) != 0 {
		t.Errorf("Refresh() should persist an empty project list, got %d saves / %d projects", f.store.saves, len(f.store.projects))
	}
	if f.explorer.Notifier().Version() != version+1 {
		t.Error("Refresh() should signal a change")
	}
	if names := f.explorer.CachedTagNames(10); len(names) != 0 {
		t.Errorf("CachedTagNames() after refresh = %v, want none", names)
	}

	// Both levels are fetched again.
	if got := len(children(t, f.explorer, repo)); got != 3 {
		t.Errorf("children after refresh = %d, want 3", got)
	}
}

func TestExplorer_RefreshDuringFetchDiscardsResult(t *testing.T) {
	f := newFixture(t, []registry.Project{appProject}, "tok")
	repo := Repository{ProjectID: 1, RepoID: 10}

	f.client.EXPECT().ListProjects(gomock.Any(), "tok").Return([]registry.Project{appProject}, nil).AnyTimes()
	f.client.EXPECT().ListTags(gomock.Any(), "tok", 1, 10).
		DoAndReturn(func(ctx context.Context, token string, projectID, repoID int) ([]registry.Tag, error) {
			f.explorer.Refresh(ctx)
			return makeTags(2), nil
		})
	f.client.EXPECT().ListTags(gomock.Any(), "tok", 1, 10).Return(makeTags(2), nil)

	if got := len(children(t, f.explorer, repo)); got != 3 {
		t.Errorf("children = %d, want 3", got)
	}
	if names := f.explorer.CachedTagNames(10); len(names) != 0 {
		t.Errorf("stale fetch populated the cache: %v", names)
	}
	children(t, f.explorer, repo)
	if names := f.explorer.CachedTagNames(10); len(names) != 2 {
		t.Errorf("CachedTagNames() = %v, want 2 names", names)
	}
}

func TestExplorer_TagFailureIsNotCached(t *testing.T) {
	f := newFixture(t, []registry.Project{appProject}, "tok")
	repo := Repository{ProjectID: 1, RepoID: 10}
	gomock.InOrder(
		f.client.EXPECT().ListTags(gomock.Any(), "tok", 1, 10).Return(makeTags(1), &registry.NetworkError{Op: "GET", Err: errors.New("reset")}),
		f.client.EXPECT().ListTags(gomock.Any(), "tok", 1, 10).Return(makeTags(2), nil),
	)

	if got := len(children(t, f.explorer, repo)); got != 2 {
		t.Errorf("children with partial tags = %d, want 2", got)
	}
	if got := len(children(t, f.explorer, repo)); got != 3 {
		t.Errorf("children after refetch = %d, want 3", got)
	}
}

func TestExplorer_LeafHasNoChildren(t *testing.T) {
	f := newFixture(t, nil, "tok")
	for _, leaf := range []Node{Tag{Name: "v1"}, ShowMore{}, FilterInput{}, Placeholder{}} {
		if _, err := f.explorer.Children(context.Background(), leaf); !errors.Is(err, ErrLeaf) {
			t.Errorf("Children(%s) error = %v, want ErrLeaf", leaf.Kind(), err)
		}
	}
}

func TestExplorer_MutationsNotify(t *testing.T) {
	f := newFixture(t, nil, "tok")
	ch, cancel := f.explorer.Notifier().Subscribe()
	defer cancel()

	mutations := []func(){
		func() { f.explorer.SetSearch("x") },
		func() { f.explorer.SetTagFilter(1, "x") },
		func() { f.explorer.ClearTagFilter(1) },
		func() { f.explorer.ShowAllTags(1) },
		func() { f.explorer.ClearAll() },
		func() { f.explorer.Refresh(context.Background()) },
	}
	for i, mutate := range mutations {
		mutate()
		select {
		case <-ch:
		default:
			t.Errorf("mutation %d did not signal", i)
		}
	}
}
