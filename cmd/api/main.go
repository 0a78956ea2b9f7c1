package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	nethttp "net/http"
	"os"
	"time"

	"github.com/amromran102/gitlab-registry-explorer/internal/config"
	"github.com/amromran102/gitlab-registry-explorer/internal/host"
	"github.com/amromran102/gitlab-registry-explorer/internal/http"
	"github.com/amromran102/gitlab-registry-explorer/internal/registry"
	"github.com/amromran102/gitlab-registry-explorer/internal/secrets"
	"github.com/amromran102/gitlab-registry-explorer/internal/service"
	"github.com/amromran102/gitlab-registry-explorer/internal/storage"
	"github.com/amromran102/gitlab-registry-explorer/internal/tree"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	kvRepo := storage.NewKVRepo(db)
	projectCache := storage.NewProjectCache(kvRepo)

	ctx := context.Background()

	credentials := secrets.NewKeyring()
	if err := bootstrapToken(ctx, credentials, cfg.GitLabToken); err != nil {
		log.Fatalf("Failed to bootstrap access token: %v", err)
	}

	client := registry.NewClient(registry.Options{
		BaseURL:        cfg.GitLabURL,
		Timeout:        cfg.HTTPTimeout,
		TagConcurrency: cfg.TagDetailConcurrency,
	})

	messages := host.NewMessageLog()
	collapse := &host.CollapseSignal{}

	explorer, err := tree.NewExplorer(ctx, tree.Config{
		Client:       client,
		Store:        projectCache,
		Credentials:  credentials,
		Messenger:    messages,
		Collapser:    collapse,
		RegistryHost: cfg.RegistryHost,
		TagLimit:     cfg.TagDisplayLimit,
	})
	if err != nil {
		log.Fatalf("Failed to create registry explorer: %v", err)
	}
	slog.Info("Registry explorer ready", "gitlab_url", cfg.GitLabURL, "registry_host", cfg.RegistryHost)

	commands := service.NewCommandService(service.Deps{
		Explorer:    explorer,
		Credentials: credentials,
		Clipboard:   host.NewClipboard(),
		Terminal:    host.NewTerminal(),
		Messenger:   messages,
	})

	router := http.NewRouter(&http.Deps{
		Commands:    commands,
		Explorer:    explorer,
		Changes:     explorer.Notifier(),
		Collapse:    collapse,
		Messages:    messages,
		Store:       kvRepo,
		Credentials: credentials,

		AllowedOrigins: cfg.AllowedOrigins,
	})

	addr := net.JoinHostPort(cfg.BindAddress, cfg.APIPort)
	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("Starting API server", "addr", addr, "allowed_origins", cfg.AllowedOrigins)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}

// bootstrapToken stores token in the keychain unless one is already stored there.
func bootstrapToken(ctx context.Context, credentials *secrets.Keyring, token string) error {
	if token == "" {
		return nil
	}
	stored, err := credentials.Token(ctx)
	if err != nil {
		return err
	}
	if stored != "" {
		slog.Debug("Keychain token present, ignoring GITLAB_TOKEN")
		return nil
	}
	if err := credentials.Store(ctx, token); err != nil {
		return err
	}
	slog.Info("Access token stored from GITLAB_TOKEN")
	return nil
}
