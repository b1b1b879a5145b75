package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions"

	"forum-api/core"
)

func main() {
	cfg, err := core.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	if err := core.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	var sessionStore core.SessionStore
	switch cfg.SessionBackend {
	case "redis":
		redisClient, err := core.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer redisClient.Close()
		sessionStore = core.NewRedisSessionStore(redisClient, cfg.SessionTTL)
	default:
		mem := core.NewMemorySessionStore(cfg.SessionTTL)
		go mem.StartSweeper(ctx, time.Minute)
		sessionStore = mem
	}

	principals, err := core.NewLRUPrincipalContext(cfg.PrincipalCacheSize)
	if err != nil {
		log.Fatalf("failed to create principal registry: %v", err)
	}

	// Gorilla cookie store carries the transport session identifier.
	cookieStore := sessions.NewCookieStore([]byte(cfg.SessionKey))

	accounts := core.NewPgAccountRepository(db)
	if err := core.BootstrapModerator(ctx, accounts, cfg); err != nil {
		log.Fatalf("bootstrap moderator failed: %v", err)
	}

	router, err := core.NewRouter(cfg, core.RouterDeps{
		CookieStore: cookieStore,
		Accounts:    accounts,
		Posts:       core.NewPgPostRepository(db),
		Sessions:    sessionStore,
		Principals:  principals,
		Verifier:    core.BcryptVerifier{},
		StartedAt:   time.Now(),
	})
	if err != nil {
		log.Fatalf("failed to build router: %v", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("starting api server on %s (sessions=%s)", srv.Addr, cfg.SessionBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %v", err)
	}
}
