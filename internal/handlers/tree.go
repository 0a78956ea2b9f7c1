package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/amromran102/gitlab-registry-explorer/internal/contextutil"
	"github.com/amromran102/gitlab-registry-explorer/internal/tree"
)

// TreeExplorer resolves and collapses tree nodes.
type TreeExplorer interface {
	Children(ctx context.Context, parent tree.Node) ([]tree.Node, error)
	Collapse(node tree.Node)
}

// ChangeFeed reports and broadcasts tree changes.
type ChangeFeed interface {
	Version() uint64
	Subscribe() (<-chan struct{}, func())
}

// CollapseCounter reports how many collapse-all requests were made.
type CollapseCounter interface {
	Generation() uint64
}

// TreeHandler serves the registry tree to the UI.
type TreeHandler struct {
	explorer TreeExplorer
	changes  ChangeFeed
	collapse CollapseCounter
}

// NewTreeHandler creates a new TreeHandler.
func NewTreeHandler(explorer TreeExplorer, changes ChangeFeed, collapse CollapseCounter) *TreeHandler {
	return &TreeHandler{
		explorer: explorer,
		changes:  changes,
		collapse: collapse,
	}
}

// NodeRef identifies an expandable node. It is the query of the children endpoint and
// the body of the collapse endpoint.
type NodeRef struct {
	Kind      string `json:"kind"`
	Path      string `json:"path,omitempty"`
	ProjectID int    `json:"project_id,omitempty"`
	RepoID    int    `json:"repo_id,omitempty"`
}

// NodeResponse is one rendered tree node.
type NodeResponse struct {
	Kind        string `json:"kind"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Tooltip     string `json:"tooltip,omitempty"`
	Path        string `json:"path,omitempty"`
	ProjectID   int    `json:"project_id,omitempty"`
	RepoID      int    `json:"repo_id,omitempty"`
	ImageRef    string `json:"image_ref,omitempty"`
	Query       string `json:"query,omitempty"`
	Remaining   int    `json:"remaining,omitempty"`
	Expandable  bool   `json:"expandable"`
}

// ChildrenResponse lists the children of a node.
type ChildrenResponse struct {
	Version uint64         `json:"version"`
	Nodes   []NodeResponse `json:"nodes"`
}

// VersionResponse lets the UI poll for changes.
type VersionResponse struct {
	Version  uint64 `json:"version"`
	Collapse uint64 `json:"collapse"`
}

// Children handles GET /api/tree/children.
func (h *TreeHandler) Children(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	ref, err := nodeRefFromQuery(r.URL.Query())
	if err != nil {
		logger.WarnContext(ctx, "invalid node reference", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	parent, err := ref.node()
	if err != nil {
		logger.WarnContext(ctx, "invalid node reference", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	nodes, err := h.explorer.Children(ctx, parent)
	if errors.Is(err, tree.ErrLeaf) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to resolve children")
		return
	}

	resp := ChildrenResponse{
		Version: h.changes.Version(),
		Nodes:   make([]NodeResponse, 0, len(nodes)),
	}
	for _, n := range nodes {
		resp.Nodes = append(resp.Nodes, toNodeResponse(n))
	}
	writeJSON(w, ctx, resp)
}

// Collapse handles POST /api/tree/collapse.
func (h *TreeHandler) Collapse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var ref NodeRef
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	node, err := ref.node()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.explorer.Collapse(node)
	w.WriteHeader(http.StatusNoContent)
}

// Version handles GET /api/tree/version.
func (h *TreeHandler) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r.Context(), VersionResponse{
		Version:  h.changes.Version(),
		Collapse: h.collapse.Generation(),
	})
}

// Events handles GET /api/tree/events. It streams the version as a Server-Sent Event on
// every change until the client disconnects.
func (h *TreeHandler) Events(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.ErrorContext(ctx, "streaming not supported by response writer")
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	changes, cancel := h.changes.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	send := func() bool {
		_, err := fmt.Fprintf(w, "data: {\"version\":%d,\"collapse\":%d}\n\n", h.changes.Version(), h.collapse.Generation())
		if err != nil {
			logger.DebugContext(ctx, "event stream closed", "error", err)
			return false
		}
		flusher.Flush()
		return true
	}

	if !send() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			if !send() {
				return
			}
		}
	}
}

func nodeRefFromQuery(q url.Values) (NodeRef, error) {
	ref := NodeRef{Kind: q.Get("kind"), Path: q.Get("path")}

	var err error
	if ref.ProjectID, err = optionalID(q, "project_id"); err != nil {
		return NodeRef{}, err
	}
	if ref.RepoID, err = optionalID(q, "repo_id"); err != nil {
		return NodeRef{}, err
	}
	return ref, nil
}

func optionalID(q url.Values, key string) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return id, nil
}

// node converts the reference into a tree node. Only expandable kinds are accepted.
func (ref NodeRef) node() (tree.Node, error) {
	switch tree.Kind(ref.Kind) {
	case "", tree.KindRoot:
		return tree.Root{}, nil
	case tree.KindFolder:
		if ref.Path == "" {
			return nil, errors.New("folder requires a path")
		}
		return tree.Folder{Path: ref.Path}, nil
	case tree.KindProject:
		if ref.ProjectID <= 0 {
			return nil, errors.New("project requires project_id")
		}
		return tree.Project{ID: ref.ProjectID, Path: ref.Path}, nil
	case tree.KindRepository:
		if ref.ProjectID <= 0 || ref.RepoID <= 0 {
			return nil, errors.New("repository requires project_id and repo_id")
		}
		return tree.Repository{ProjectID: ref.ProjectID, RepoID: ref.RepoID}, nil
	default:
		return nil, fmt.Errorf("kind %q cannot be expanded", ref.Kind)
	}
}

func toNodeResponse(n tree.Node) NodeResponse {
	resp := NodeResponse{Kind: string(n.Kind()), Label: n.Label()}

	switch v := n.(type) {
	case tree.Folder:
		resp.Path = v.Path
		resp.Tooltip = v.Path
		resp.Expandable = true
	case tree.Project:
		resp.Path = v.Path
		resp.ProjectID = v.ID
		resp.Tooltip = v.Path
		resp.Expandable = true
	case tree.Repository:
		resp.ProjectID = v.ProjectID
		resp.RepoID = v.RepoID
		resp.Expandable = true
	case tree.FilterInput:
		resp.ProjectID = v.ProjectID
		resp.RepoID = v.RepoID
		resp.Query = v.Query
		resp.Tooltip = "Filter the tags of this repository"
	case tree.Tag:
		resp.ProjectID = v.ProjectID
		resp.RepoID = v.RepoID
		resp.ImageRef = v.ImageRef
		resp.Description = v.Description
		resp.Tooltip = v.ImageRef
	case tree.ShowMore:
		resp.ProjectID = v.ProjectID
		resp.RepoID = v.RepoID
		resp.Remaining = v.Remaining
	}
	return resp
}
