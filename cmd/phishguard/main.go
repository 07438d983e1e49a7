package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/phishguard/phishguard/internal/auth"
	"github.com/phishguard/phishguard/internal/feedback"
	"github.com/phishguard/phishguard/internal/scan"
	"github.com/phishguard/phishguard/internal/server"
	"github.com/phishguard/phishguard/internal/store"
)

func main() {
	// .env is optional; environment variables win when both are set.
	_ = godotenv.Load()

	listenAddr := flag.String("listen", envOr("PHISHGUARD_LISTEN", ":8080"), "HTTP listen address")
	dbPath := flag.String("db", envOr("PHISHGUARD_DB_PATH", "./phishguard.db"), "SQLite database path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	db, err := store.NewSQLiteStore(ctx, *dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	tokenSecret := os.Getenv("PHISHGUARD_TOKEN_SECRET")
	if tokenSecret == "" || tokenSecret == "change-me-in-production" {
		if os.Getenv("PHISHGUARD_ENV") == "production" {
			log.Fatal("PHISHGUARD_TOKEN_SECRET must be set to a strong random value in production (try: openssl rand -hex 32)")
		}
		// Allow an insecure default for local development only.
		log.Println("WARNING: using insecure default token secret -- set PHISHGUARD_TOKEN_SECRET for production")
		tokenSecret = "insecure-dev-only-token-secret-do-not-use"
	}

	cfg := server.Config{
		ListenAddr:    *listenAddr,
		DBPath:        *dbPath,
		AdminUsername: envOr("PHISHGUARD_ADMIN_USERNAME", "admin"),
		AdminPassword: os.Getenv("PHISHGUARD_ADMIN_PASSWORD"),
		TokenSecret:   tokenSecret,
		VirusTotalKey: os.Getenv("PHISHGUARD_VIRUSTOTAL_KEY"),
		ClassifierURL: os.Getenv("PHISHGUARD_CLASSIFIER_URL"),
	}
	if cfg.AdminPassword == "" {
		if os.Getenv("PHISHGUARD_ENV") == "production" {
			log.Fatal("PHISHGUARD_ADMIN_PASSWORD must be set in production")
		}
		log.Println("WARNING: using insecure default admin password -- set PHISHGUARD_ADMIN_PASSWORD for production")
		cfg.AdminPassword = "admin"
	}

	scanOpts := []scan.Option{
		scan.WithReputation(scan.NewVirusTotalClient(cfg.VirusTotalKey)),
	}
	if cfg.ClassifierURL != "" {
		scanOpts = append(scanOpts, scan.WithClassifier(scan.NewHTTPClassifier(cfg.ClassifierURL)))
	}
	scanner := scan.NewScanner(logger, scanOpts...)

	fb := feedback.NewService(db, logger)

	authn := auth.New(auth.Config{
		Username:    cfg.AdminUsername,
		Password:    cfg.AdminPassword,
		TokenSecret: cfg.TokenSecret,
	}, logger)

	// Periodically drop expired revocations and stale attempt counters.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				authn.PurgeRevoked(time.Now())
			}
		}
	}()

	srv := server.NewServer(cfg, scanner, fb, authn, logger)
	defer srv.Stop()

	httpSrv := &http.Server{
		Addr:    *listenAddr,
		Handler: srv.Handler(),
	}

	go func() {
		log.Printf("Listening on %s", *listenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
