package tree

import (
	"fmt"
	"strings"
)

// Kind discriminates tree nodes.
type Kind string

const (
	KindRoot        Kind = "root"
	KindFolder      Kind = "folder"
	KindProject     Kind = "project"
	KindRepository  Kind = "repository"
	KindFilterInput Kind = "filter-input"
	KindTag         Kind = "tag"
	KindShowMore    Kind = "show-more"
	KindPlaceholder Kind = "placeholder"
)

// Node is one entry of the registry tree. Each kind carries only the fields it needs.
type Node interface {
	Kind() Kind
	Label() string
}

// Root is the invisible top of the tree.
type Root struct{}

// Folder groups projects under a namespace path such as "group/subgroup".
type Folder struct {
	Path string
}

// Project is a project with at least one container repository.
type Project struct {
	ID        int
	Path      string
	Namespace string
	// Search marks nodes produced by a global search; they are labelled with their namespace.
	Search bool
}

// Repository is a container repository of a project.
type Repository struct {
	ProjectID int
	RepoID    int
	Name      string
}

// FilterInput is the per-repository tag filter affordance, always first under a repository.
type FilterInput struct {
	ProjectID int
	RepoID    int
	Query     string
}

// Tag is an image tag with its pullable reference.
type Tag struct {
	ProjectID   int
	RepoID      int
	Name        string
	ImageRef    string
	Description string
}

// ShowMore lifts the display cutoff of a repository.
type ShowMore struct {
	ProjectID int
	RepoID    int
	Remaining int
}

// Placeholder stands in for an empty result.
type Placeholder struct {
	Message string
}

func (Root) Kind() Kind        { return KindRoot }
func (Folder) Kind() Kind      { return KindFolder }
func (Project) Kind() Kind     { return KindProject }
func (Repository) Kind() Kind  { return KindRepository }
func (FilterInput) Kind() Kind { return KindFilterInput }
func (Tag) Kind() Kind         { return KindTag }
func (ShowMore) Kind() Kind    { return KindShowMore }
func (Placeholder) Kind() Kind { return KindPlaceholder }

func (Root) Label() string { return "" }

func (f Folder) Label() string { return lastSegment(f.Path) }

func (p Project) Label() string {
	if p.Search && p.Namespace != "" {
		return fmt.Sprintf("%s (%s)", lastSegment(p.Path), p.Namespace)
	}
	return lastSegment(p.Path)
}

func (r Repository) Label() string { return r.Name }

func (f FilterInput) Label() string {
	if f.Query == "" {
		return "Filter tags…"
	}
	return "Filter: " + f.Query
}

func (t Tag) Label() string { return t.Name }

func (s ShowMore) Label() string { return fmt.Sprintf("Show all (%d more)", s.Remaining) }

func (p Placeholder) Label() string { return p.Message }

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
