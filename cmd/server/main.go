package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hookmill/hookmill/internal/api"
	"github.com/hookmill/hookmill/internal/config"
	"github.com/hookmill/hookmill/internal/engine"
	"github.com/hookmill/hookmill/internal/store"
)

func main() {
	cfg := config.Load()

	// Open storage; degrades to in-memory when SQLite is unusable.
	repo := store.Open(cfg.DBPath)
	defer repo.Close()

	// Seed the persisted credential from the environment on first run.
	ctx := context.Background()
	settings, err := repo.LoadSettings(ctx)
	if err != nil {
		log.Fatalf("load settings: %v", err)
	}
	if settings.APIKey == "" && cfg.APIKey != "" {
		settings.APIKey = cfg.APIKey
		if err := repo.SaveSettings(ctx, settings); err != nil {
			log.Fatalf("save settings: %v", err)
		}
	}

	var client engine.StreamClient
	if cfg.StubStream {
		log.Println("LLM_STUB set, using stub stream client")
		client = &engine.StubStreamClient{}
	} else {
		client = engine.NewOpenRouterClient(
			engine.WithBaseURL(cfg.BaseURL),
			engine.WithRetryDelay(cfg.RetryDelay),
		)
	}

	slot := &engine.StreamSlot{}
	orch := engine.NewOrchestrator(client, repo, repo, slot)
	refine := engine.NewRefineSession(client, repo, repo, slot)
	seeds := engine.NewSeedExtractor(cfg.HTTPTimeout)

	srv := api.New(repo, orch, refine, seeds, cfg.CORSOrigin)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Handler(),
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("shutting down...")
		orch.Stop()
		httpServer.Shutdown(context.Background())
	}()

	fmt.Printf("hookmill server listening on http://localhost:%s\n", cfg.Port)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
