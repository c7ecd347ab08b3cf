package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/resumedraft/internal/api"
	"github.com/dgallion1/resumedraft/internal/config"
	"github.com/dgallion1/resumedraft/internal/editor"
	"github.com/dgallion1/resumedraft/internal/export"
	"github.com/dgallion1/resumedraft/internal/llm"
	"github.com/dgallion1/resumedraft/internal/pipeline"
	"github.com/dgallion1/resumedraft/internal/profile"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	model := llm.NewClient(cfg.OllamaURL, cfg.OllamaModel, cfg.LLMTimeout, log)
	profiles, closeProfiles, err := openProfileStore(cfg)
	if err != nil {
		log.Error("profile store unavailable", "store", cfg.ProfileStore, "error", err)
		os.Exit(1)
	}

	// Initialize the live document and the generation pipeline.
	ed := editor.New(log)
	orch := pipeline.NewOrchestrator(cfg, model, ed, log)
	orch.Start(ctx)

	exporter := export.NewService(&export.PDFRenderer{
		ChromePath: cfg.ChromePath,
		Paper:      export.ParsePaper(cfg.PDFPaper),
	})

	// Initialize HTTP server.
	srv := api.NewServer(api.Deps{
		Editor:       ed,
		Orchestrator: orch,
		LLM:          model,
		Profiles:     profiles,
		Exporter:     exporter,
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		model.Close()
		closeProfiles.Close()
	}()

	log.Info("starting resumedraft",
		"port", cfg.Port,
		"model", cfg.OllamaModel,
		"profile_store", cfg.ProfileStore,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openProfileStore(cfg config.Config) (profile.Store, io.Closer, error) {
	switch cfg.ProfileStore {
	case config.StoreRedis:
		rs, err := profile.NewRedisStore(cfg.RedisAddr, cfg.RedisKey)
		if err != nil {
			return nil, nil, err
		}
		return rs, rs, nil
	default:
		return profile.NewFileStore(cfg.ProfilePath), nopCloser{}, nil
	}
}
