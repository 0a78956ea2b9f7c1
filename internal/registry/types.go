package registry

import (
	"slices"
	"strings"
	"time"
)

// Namespace is the group chain a project belongs to.
type Namespace struct {
	FullPath string `json:"full_path"`
}

// Project is a GitLab project as returned by the projects listing.
// The JSON shape doubles as the persisted cache format.
type Project struct {
	ID                       int       `json:"id"`
	Name                     string    `json:"name"`
	PathWithNamespace        string    `json:"path_with_namespace"`
	Namespace                Namespace `json:"namespace"`
	ContainerRegistryEnabled bool      `json:"container_registry_enabled"`
}

// Label returns the last segment of the project path.
func (p Project) Label() string {
	path := p.PathWithNamespace
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	if path == "" {
		return p.Name
	}
	return path
}

// Repository is a container repository inside a project's registry.
type Repository struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	ProjectID int    `json:"project_id"`
	Location  string `json:"location"`
}

// Label returns the repository name, or its path for the project's root repository
// (GitLab reports that one with an empty name).
func (r Repository) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Path
}

// Tag is an image tag. CreatedAt and TotalSize are only known once the
// per-tag detail has been merged in.
type Tag struct {
	Name      string     `json:"name"`
	Path      string     `json:"path,omitempty"`
	Location  string     `json:"location,omitempty"`
	Digest    string     `json:"digest,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	TotalSize *int64     `json:"total_size,omitempty"`
}

var epoch = time.Unix(0, 0).UTC()

func (t Tag) created() time.Time {
	if t.CreatedAt == nil {
		return epoch
	}
	return *t.CreatedAt
}

// SortByCreated orders tags newest first. Tags without a timestamp sort as the epoch,
// so they end up last; equal timestamps keep their listing order.
func SortByCreated(tags []Tag) {
	slices.SortStableFunc(tags, func(a, b Tag) int {
		return b.created().Compare(a.created())
	})
}
