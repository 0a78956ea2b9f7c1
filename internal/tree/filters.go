package tree

import (
	"strings"

	"golang.org/x/text/cases"
)

// Filters holds the global project search, the per-repository tag filters and the
// show-all set. It never touches cached data. Not safe for concurrent use; the
// Explorer guards it.
type Filters struct {
	search  string
	tags    map[int]string
	showAll map[int]bool
}

func newFilters() Filters {
	return Filters{
		tags:    make(map[int]string),
		showAll: make(map[int]bool),
	}
}

func (f *Filters) setSearch(query string) {
	f.search = strings.TrimSpace(query)
}

func (f *Filters) setTag(repoID int, query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		delete(f.tags, repoID)
		return
	}
	f.tags[repoID] = query
}

func (f *Filters) tag(repoID int) string {
	return f.tags[repoID]
}

func (f *Filters) resetRepo(repoID int) {
	delete(f.tags, repoID)
	delete(f.showAll, repoID)
}

func (f *Filters) reset() {
	f.search = ""
	clear(f.tags)
	clear(f.showAll)
}

// matcher tests values against one case-folded query. Not safe for concurrent use.
type matcher struct {
	fold  cases.Caser
	query string
}

// newMatcher folds query once so each match only folds the value.
func newMatcher(query string) *matcher {
	fold := cases.Fold()
	return &matcher{fold: fold, query: fold.String(query)}
}

// matches reports whether value contains the query, ignoring case. An empty query matches.
func (m *matcher) matches(value string) bool {
	if m.query == "" {
		return true
	}
	return strings.Contains(m.fold.String(value), m.query)
}
