package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardev/dealflow-be/internal/auth"
	"github.com/ardev/dealflow-be/internal/config"
	"github.com/ardev/dealflow-be/internal/entitlement"
	"github.com/ardev/dealflow-be/internal/server"
	"github.com/ardev/dealflow-be/internal/session"
	"github.com/ardev/dealflow-be/internal/storage/postgres"
	"github.com/joho/godotenv"
)

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	defer store.Close()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	authority := auth.NewLocalAuthority(store, tokens)
	resolver := entitlement.NewResolver(cfg.EntitlementFunctionURL, cfg.EntitlementTimeout, nil, store)

	bootstrapper := session.NewBootstrapper(authority, resolver)
	if err := bootstrapper.Start(ctx); err != nil {
		log.Fatalf("bootstrap session: %v", err)
	}
	defer bootstrapper.Close()

	srv := server.New(cfg, server.Stores{Users: store, Deals: store, Subscriptions: store}, authority, bootstrapper)

	go func() {
		log.Printf("dealflow backend listening on %s", cfg.HTTPAddress())
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
}
