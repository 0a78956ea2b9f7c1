package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/amromran102/gitlab-registry-explorer/internal/contextutil"
	"github.com/amromran102/gitlab-registry-explorer/internal/registry"
)

// ProjectsKey is the key the top-level project list is persisted under.
const ProjectsKey = "gitlabRegistryExplorer.projects"

// ProjectCache persists the top-level project list as one JSON array.
type ProjectCache struct {
	kv *KVRepo
}

// NewProjectCache creates a new ProjectCache.
func NewProjectCache(kv *KVRepo) *ProjectCache {
	return &ProjectCache{kv: kv}
}

// Load returns the persisted projects. An absent or unreadable value is an empty list.
func (c *ProjectCache) Load(ctx context.Context) ([]registry.Project, error) {
	raw, ok, err := c.kv.Get(ctx, ProjectsKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var projects []registry.Project
	if err := json.Unmarshal([]byte(raw), &projects); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "ignoring invalid persisted project cache", "error", err)
		return nil, nil
	}
	return projects, nil
}

// Save replaces the persisted projects. A nil slice is stored as an empty array.
func (c *ProjectCache) Save(ctx context.Context, projects []registry.Project) error {
	if projects == nil {
		projects = []registry.Project{}
	}
	raw, err := json.Marshal(projects)
	if err != nil {
		return fmt.Errorf("failed to encode projects: %w", err)
	}
	return c.kv.Update(ctx, ProjectsKey, string(raw))
}
