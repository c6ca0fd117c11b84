package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bananalabs-oss/stocking/internal/backend"
	"github.com/bananalabs-oss/stocking/internal/config"
	"github.com/bananalabs-oss/stocking/internal/notify"
	"github.com/bananalabs-oss/stocking/internal/rooms"
	"github.com/bananalabs-oss/stocking/internal/router"
	"github.com/bananalabs-oss/stocking/internal/session"
)

func main() {
	log.Printf("Starting Stocking")

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("Stocking Configuration:")
	log.Printf("  Host:       %s", cfg.Host)
	log.Printf("  Port:       %s", cfg.Port)
	log.Printf("  Database:   %s", cfg.DatabaseURL)
	log.Printf("  Redis:      %t", cfg.RedisURL != "")
	log.Printf("  Public URL: %s", cfg.PublicURL)
	log.Printf("  Min size:   %d", cfg.MinParticipants)

	ctx := context.Background()

	st, kind, err := backend.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", kind, err)
	}
	defer st.Close()

	var notifier notify.Notifier
	if cfg.RedisURL != "" {
		notifier, err = notify.NewRedisNotifier(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
	} else {
		notifier = notify.NewHub()
	}
	defer notifier.Close()

	coord := session.New(st, session.Options{
		MinParticipants: cfg.MinParticipants,
		DrawAttempts:    cfg.DrawAttempts,
		Notifier:        notifier,
	})

	h := rooms.NewHandler(coord, cfg.PublicURL)
	r := router.Setup(h, router.Options{
		ServiceToken: cfg.ServiceToken,
		CORSOrigins:  cfg.CORSOrigins,
	})

	addr := cfg.Addr()
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Printf("Stocking listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutting down Stocking...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Printf("Stocking stopped")
}
