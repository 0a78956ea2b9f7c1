package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_command_service.go -package=mocks github.com/amromran102/gitlab-registry-explorer/internal/service CommandService
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_host.go -package=mocks github.com/amromran102/gitlab-registry-explorer/internal/service Clipboard,Terminal

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/amromran102/gitlab-registry-explorer/internal/contextutil"
	"github.com/amromran102/gitlab-registry-explorer/internal/tree"
)

// Command names accepted by Execute.
const (
	CmdRefresh               = "refresh"
	CmdSetCredential         = "set-credential"
	CmdSearchProjects        = "search-projects"
	CmdClearFilters          = "clear-filters"
	CmdFilterTagsForRepo     = "filter-tags-for-repo"
	CmdTagSuggestions        = "tag-suggestions"
	CmdClearTagFilterForRepo = "clear-tag-filter-for-repo"
	CmdCopyImageReference    = "copy-image-reference"
	CmdRunExternalPull       = "run-external-pull"
	CmdRunExternalScan       = "run-external-scan"
	CmdShowAllTagsForRepo    = "show-all-tags-for-repo"
)

// Explorer is the part of the tree explorer the commands drive.
type Explorer interface {
	Children(ctx context.Context, parent tree.Node) ([]tree.Node, error)
	Refresh(ctx context.Context)
	SetSearch(query string)
	ClearAll()
	SetTagFilter(repoID int, query string)
	ClearTagFilter(repoID int)
	TagFilter(repoID int) string
	ShowAllTags(repoID int)
	CachedTagNames(repoID int) []string
}

// CredentialStore keeps the access token in secret storage.
type CredentialStore interface {
	Token(ctx context.Context) (string, error)
	Store(ctx context.Context, token string) error
}

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	Write(ctx context.Context, text string) error
}

// Terminal spawns a shell command.
type Terminal interface {
	Run(ctx context.Context, command string) error
}

// Messenger shows messages to the user.
type Messenger interface {
	Info(ctx context.Context, msg string)
	Error(ctx context.Context, msg string)
}

// Command is one host command invocation. Fields a command does not use are ignored.
type Command struct {
	Name     string
	Query    string
	RepoID   int
	ImageRef string
	Token    string
}

// Result describes what a command did.
type Result struct {
	Message     string
	Filter      string
	Suggestions []string
}

// CommandService executes host commands.
type CommandService interface {
	Execute(ctx context.Context, cmd Command) (Result, error)
}

// Deps holds the collaborators of the command service.
type Deps struct {
	Explorer    Explorer
	Credentials CredentialStore
	Clipboard   Clipboard
	Terminal    Terminal
	Messenger   Messenger
}

type commandService struct {
	explorer    Explorer
	credentials CredentialStore
	clipboard   Clipboard
	terminal    Terminal
	messenger   Messenger
}

// NewCommandService creates a new CommandService.
func NewCommandService(deps Deps) CommandService {
	return &commandService{
		explorer:    deps.Explorer,
		credentials: deps.Credentials,
		clipboard:   deps.Clipboard,
		terminal:    deps.Terminal,
		messenger:   deps.Messenger,
	}
}

// imageRefPattern accepts the characters of a registry image reference and nothing a
// shell would interpret. The first character is alphanumeric so a reference can never
// be read as a command-line flag.
var imageRefPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/:@-]*$`)

// Execute dispatches cmd by name.
func (s *commandService) Execute(ctx context.Context, cmd Command) (Result, error) {
	logger := contextutil.LoggerFromContext(ctx).With("command", cmd.Name)
	ctx = contextutil.WithLogger(ctx, logger)

	var (
		res Result
		err error
	)
	switch cmd.Name {
	case CmdRefresh:
		res, err = s.refresh(ctx)
	case CmdSetCredential:
		res, err = s.setCredential(ctx, cmd.Token)
	case CmdSearchProjects:
		s.explorer.SetSearch(cmd.Query)
		res = Result{Message: "Search updated", Filter: strings.TrimSpace(cmd.Query)}
	case CmdClearFilters:
		s.explorer.ClearAll()
		res = Result{Message: "Filters cleared"}
	case CmdFilterTagsForRepo:
		res, err = s.filterTags(ctx, cmd.RepoID, cmd.Query)
	case CmdTagSuggestions:
		res, err = s.tagSuggestions(cmd.RepoID)
	case CmdClearTagFilterForRepo:
		if err = validateRepoID(cmd.RepoID); err == nil {
			s.explorer.ClearTagFilter(cmd.RepoID)
			res = Result{Message: "Tag filter cleared"}
		}
	case CmdShowAllTagsForRepo:
		if err = validateRepoID(cmd.RepoID); err == nil {
			s.explorer.ShowAllTags(cmd.RepoID)
			res = Result{Message: "Showing all tags"}
		}
	case CmdCopyImageReference:
		res, err = s.copyImageReference(ctx, cmd.ImageRef)
	case CmdRunExternalPull:
		res, err = s.runExternal(ctx, "docker pull", cmd.ImageRef)
	case CmdRunExternalScan:
		res, err = s.runExternal(ctx, "trivy image", cmd.ImageRef)
	default:
		return Result{}, fmt.Errorf("unknown command %q: %w", cmd.Name, ErrNotFound)
	}

	if err != nil {
		logger.WarnContext(ctx, "command failed", "error", err)
		return Result{}, err
	}
	logger.DebugContext(ctx, "command executed")
	return res, nil
}

// refresh clears everything and resolves the root again so the project cache is warm.
func (s *commandService) refresh(ctx context.Context) (Result, error) {
	s.explorer.Refresh(ctx)
	if _, err := s.explorer.Children(ctx, tree.Root{}); err != nil {
		return Result{}, WrapError(err, "failed to reload projects")
	}
	return Result{Message: "Registry tree refreshed"}, nil
}

func (s *commandService) setCredential(ctx context.Context, token string) (Result, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Result{}, &ValidationError{Field: "token", Message: "cannot be empty"}
	}

	if err := s.credentials.Store(ctx, token); err != nil {
		s.messenger.Error(ctx, "Could not save the GitLab access token")
		return Result{}, externalError(err, "failed to store access token")
	}
	s.messenger.Info(ctx, "GitLab access token saved")

	return s.refresh(ctx)
}

func (s *commandService) filterTags(ctx context.Context, repoID int, query string) (Result, error) {
	if err := validateRepoID(repoID); err != nil {
		return Result{}, err
	}
	s.explorer.SetTagFilter(repoID, query)
	return Result{
		Message:     "Tag filter updated",
		Filter:      s.explorer.TagFilter(repoID),
		Suggestions: s.explorer.CachedTagNames(repoID),
	}, nil
}

func (s *commandService) tagSuggestions(repoID int) (Result, error) {
	if err := validateRepoID(repoID); err != nil {
		return Result{}, err
	}
	return Result{
		Filter:      s.explorer.TagFilter(repoID),
		Suggestions: s.explorer.CachedTagNames(repoID),
	}, nil
}

func (s *commandService) copyImageReference(ctx context.Context, ref string) (Result, error) {
	if err := validateImageRef(ref); err != nil {
		return Result{}, err
	}
	if err := s.clipboard.Write(ctx, ref); err != nil {
		s.messenger.Error(ctx, "Could not copy "+ref+" to the clipboard")
		return Result{}, externalError(err, "failed to copy image reference")
	}
	s.messenger.Info(ctx, "Copied "+ref)
	return Result{Message: "Copied " + ref}, nil
}

func (s *commandService) runExternal(ctx context.Context, tool, ref string) (Result, error) {
	if err := validateImageRef(ref); err != nil {
		return Result{}, err
	}
	command := tool + " " + ref
	if err := s.terminal.Run(ctx, command); err != nil {
		s.messenger.Error(ctx, "Could not run "+command)
		return Result{}, externalError(err, "failed to run external command")
	}
	return Result{Message: "Started " + command}, nil
}

func validateRepoID(repoID int) error {
	if repoID <= 0 {
		return &ValidationError{Field: "repo_id", Message: "must be a positive integer"}
	}
	return nil
}

func validateImageRef(ref string) error {
	if !imageRefPattern.MatchString(ref) {
		return &ValidationError{Field: "image_ref", Message: "must be a registry image reference"}
	}
	return nil
}
