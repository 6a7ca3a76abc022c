package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/inamate/kfedit/internal/auth"
	"github.com/inamate/kfedit/internal/collab"
	"github.com/inamate/kfedit/internal/config"
	"github.com/inamate/kfedit/internal/document"
	"github.com/inamate/kfedit/internal/engine"
	"github.com/inamate/kfedit/internal/export"
	mw "github.com/inamate/kfedit/internal/middleware"
	"github.com/inamate/kfedit/internal/property"
	"github.com/inamate/kfedit/internal/store"
)

// backend is what the services need from storage. Both *store.Store and
// *store.Memory provide it.
type backend interface {
	auth.UserStore
	property.Store
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := run(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db backend
	switch cfg.Storage {
	case "memory":
		slog.Warn("using in-memory storage, nothing survives a restart")
		db = store.NewMemory()
	case "postgres":
		pool, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()

		pg := store.New(pool)
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		db = pg
	default:
		return fmt.Errorf("unknown storage %q", cfg.Storage)
	}

	opts := engine.Options{
		PanelWidth:   float64(cfg.PanelWidth),
		PanelHeight:  float64(cfg.PanelHeight),
		YFract:       cfg.YFract,
		AspectLocked: cfg.AspectLocked,
	}

	authService := auth.NewService(db, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	propertyService := property.NewService(db, opts, cfg.Interpolator)
	propertyHandler := property.NewHandler(propertyService)

	// The playground property lives only in its room.
	docLoader := func(ctx context.Context, propertyID string) (*document.Property, error) {
		if propertyID == collab.PlaygroundPropertyID {
			doc := document.NewSampleProperty()
			doc.ID = collab.PlaygroundPropertyID
			return doc, nil
		}
		return propertyService.Load(ctx, propertyID)
	}
	docSaver := func(ctx context.Context, doc *document.Property) error {
		if doc.ID == collab.PlaygroundPropertyID {
			return nil
		}
		return propertyService.SaveLive(ctx, doc)
	}

	hub := collab.NewHub(docLoader, docSaver, opts)
	propertyService.SetListener(hub)

	exportHandler := export.NewHandler(propertyService, cfg.FfmpegPath, cfg.ExportWorkers)
	wsHandler := collab.NewHandler(hub, authService, propertyService, cfg.OriginPatterns())

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)
	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	propertyHandler.Routes(api)
	exportHandler.Routes(api)

	// WebSocket endpoint
	r.HandleFunc("/ws/properties/{propertyId}", wsHandler.ServeWS)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run()
		return nil
	})

	g.Go(func() error {
		slog.Info("server starting", "addr", addr, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		// Stop the hub last so rooms save edits that arrived during shutdown
		slog.Info("saving live properties...")
		hub.Stop()
		return err
	})

	return g.Wait()
}
