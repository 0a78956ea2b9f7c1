package tree

import "github.com/amromran102/gitlab-registry-explorer/internal/registry"

// Cache holds fetched hierarchy levels: the top-level project list and the resolved
// tags per repository. Repositories are deliberately not cached.
//
// generation changes on every clear so fetches that started earlier can tell their
// result belongs to a previous generation.
type Cache struct {
	projects   []registry.Project
	tags       map[int][]registry.Tag
	generation uint64
}

func newCache(projects []registry.Project) Cache {
	return Cache{
		projects: projects,
		tags:     make(map[int][]registry.Tag),
	}
}

func (c *Cache) project(id int) (registry.Project, bool) {
	for _, p := range c.projects {
		if p.ID == id {
			return p, true
		}
	}
	return registry.Project{}, false
}

func (c *Cache) clear() {
	c.projects = nil
	clear(c.tags)
	c.generation++
}
