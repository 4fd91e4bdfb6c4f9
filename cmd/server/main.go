// StudyMesh tutoring agent server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"

	"github.com/studymesh/studymesh/config"
	"github.com/studymesh/studymesh/logging"
	"github.com/studymesh/studymesh/mode"
	"github.com/studymesh/studymesh/model"
	"github.com/studymesh/studymesh/model/anthropic"
	"github.com/studymesh/studymesh/model/openai"
	"github.com/studymesh/studymesh/server"
	"github.com/studymesh/studymesh/session"
	"github.com/studymesh/studymesh/skill"
	"github.com/studymesh/studymesh/store"
	"github.com/studymesh/studymesh/syncer"
	"github.com/studymesh/studymesh/tool"
)

func main() {
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(slogger)
	logger := logging.NewSlogAdapter(slogger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("Starting server", "port", cfg.Port)

	registry, err := tool.NewDefaultRegistry(logger)
	if err != nil {
		slog.Error("Failed to build tool registry", "error", err)
		os.Exit(1)
	}

	library := skill.NewLibrary(skill.DefaultSource(), logger)
	if err := library.Register(skill.DefaultSkills()...); err != nil {
		slog.Error("Failed to register skills", "error", err)
		os.Exit(1)
	}
	composer := mode.NewComposer(library, registry, logger)

	resolver := buildModelResolver(cfg)

	data := store.NewInMemory()
	pusher := syncer.NewHTTPPusher(cfg.SyncEndpoint, cfg.SyncToken, nil)
	manager := session.NewManager(registry, composer, resolver, data.Deps, pusher, cfg.SyncDebounce, logger)
	manager.SetHistoryLoader(pusher.History)

	auth := server.NewAuthenticator(cfg.JWTSecret)
	guard := server.NewPollingGuard(server.GuardConfig{
		Window:      cfg.Guard.Window,
		MaxRequests: cfg.Guard.MaxRequests,
		MinInterval: cfg.Guard.MinInterval,
		Penalty:     cfg.Guard.Penalty,
	})
	srv := server.New(manager, composer, auth, guard, logger)

	httpSrv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     srv.Handler(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Periodically drop idle limiter keys.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				guard.Prune()
			}
		}
	}()

	<-ctx.Done()
	stop()
	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	if err := manager.CloseAll(shutdownCtx); err != nil {
		slog.Warn("Final sync flush incomplete", "error", err)
	}
	slog.Info("Server stopped successfully")
}

// buildModelResolver maps each mode's model id to a provider adapter. Ids
// with a claude prefix go to Anthropic, everything else to OpenAI; missing
// keys simply leave that provider unregistered and unresolvable.
func buildModelResolver(cfg *config.Config) model.Resolver {
	resolver := model.NewStaticResolver(nil)
	for _, id := range []string{"claude-3-5-sonnet-20241022", "claude-3-5-haiku-20241022"} {
		if cfg.AnthropicAPIKey == "" {
			continue
		}
		modelID := id
		resolver.Register(modelID, anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = anthropicsdk.Model(modelID)
			o.APIKey = cfg.AnthropicAPIKey
		}))
	}
	for _, id := range []string{"gpt-4o-mini", "gpt-4o"} {
		if cfg.OpenAIAPIKey == "" {
			continue
		}
		modelID := id
		resolver.Register(modelID, openai.NewModel(func(o *openai.Options) {
			o.Model = modelID
			o.APIKey = cfg.OpenAIAPIKey
		}))
	}
	return resolver
}
