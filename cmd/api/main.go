package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"edge-tradesim/internal/app"
	"edge-tradesim/internal/config"
	"edge-tradesim/internal/httpserver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.RequireServer(); err != nil {
		log.Fatal(err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		log.Fatal(err)
	}
	a.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("server listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
	log.Printf("health endpoint: http://localhost%s/health", cfg.HTTPAddr)
	if cfg.MirrorURL != "" {
		log.Printf("mirroring events to %s", cfg.MirrorURL)
	}
	// Serve returns only once in-flight handlers are done with the store.
	if err := httpserver.Serve(ctx, srv, ln, 10*time.Second); err != nil {
		log.Printf("serve: %v", err)
	}
	stop()
	if err := a.Close(); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
