package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/syllasync/syllasync/internal/api"
	"github.com/syllasync/syllasync/internal/auth"
	"github.com/syllasync/syllasync/internal/config"
	"github.com/syllasync/syllasync/internal/gcal"
	httpserver "github.com/syllasync/syllasync/internal/http"
)

func main() {
	log.Println("Starting SyllaSync server...")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cookies := auth.NewCookies(cfg)
	authService := auth.NewService(cfg, cookies)
	gateway := gcal.New()
	apiHandler := api.NewHandler(cfg, authService, gateway)

	r := httpserver.NewRouter(cfg, authService, apiHandler)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
