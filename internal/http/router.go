package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/amromran102/gitlab-registry-explorer/internal/handlers"
	"github.com/amromran102/gitlab-registry-explorer/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Commands    service.CommandService
	Explorer    handlers.TreeExplorer
	Changes     handlers.ChangeFeed
	Collapse    handlers.CollapseCounter
	Messages    handlers.MessageSource
	Store       handlers.Pinger
	Credentials handlers.TokenSource

	// AllowedOrigins lists the browser origins permitted to call the API.
	AllowedOrigins []string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(CORS(deps.AllowedOrigins))

	treeHandler := handlers.NewTreeHandler(deps.Explorer, deps.Changes, deps.Collapse)
	commandHandler := handlers.NewCommandHandler(deps.Commands)
	messagesHandler := handlers.NewMessagesHandler(deps.Messages)
	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Credentials)

	r.Route("/api", func(r chi.Router) {
		r.Route("/tree", func(r chi.Router) {
			r.Get("/children", treeHandler.Children)
			r.Post("/collapse", treeHandler.Collapse)
			r.Get("/version", treeHandler.Version)
			r.Get("/events", treeHandler.Events)
		})
		r.Method(http.MethodPost, "/commands/{name}", commandHandler)
		r.Method(http.MethodGet, "/messages", messagesHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
	})

	return r
}
