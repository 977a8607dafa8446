package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/playvault/backend/internal/app"
	"github.com/playvault/backend/internal/config"
	"github.com/playvault/backend/internal/database"
	"github.com/playvault/backend/internal/fulfillment"
	"github.com/playvault/backend/internal/gamification"
	"github.com/playvault/backend/internal/middleware"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	container := app.NewContainer(cfg)

	// Initialize database
	db, err := do.Invoke[*sql.DB](container)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize handlers
	svc := do.MustInvoke[*gamification.Service](container)
	handler := app.NewRouter(app.Routes{
		Config:       cfg,
		Users:        svc,
		Gamification: do.MustInvoke[*gamification.Handler](container),
		Fulfillment:  do.MustInvoke[*fulfillment.Handler](container),
		Limiter:      do.MustInvoke[middleware.Limiter](container),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errWg, errCtx := errgroup.WithContext(ctx)

	errWg.Go(func() error {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	errWg.Go(func() error {
		<-errCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		log.Println("Server shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := errWg.Wait(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
