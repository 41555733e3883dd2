package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"solar-bess-sizer/internal/api"
	"solar-bess-sizer/internal/api/handlers"
	"solar-bess-sizer/internal/costs"
	"solar-bess-sizer/internal/data"
	"solar-bess-sizer/internal/profile"
	"solar-bess-sizer/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func main() {
	// Get configuration from environment
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}
	production := os.Getenv("API_ENV") == "production"

	log, err := newLogger(production)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := buildDeps(ctx, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer cleanup()

	if production {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(deps)

	origins := []string{"*"}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins = strings.Split(v, ",")
	}
	handler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("starting API server", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// buildDeps opens the run store and loads the optional cost and location files.
func buildDeps(ctx context.Context, log *zap.Logger) (handlers.Deps, func(), error) {
	storePath := os.Getenv("STORE_PATH")
	if storePath == "" {
		storePath = "./data/runs.db"
	}
	if err := os.MkdirAll(filepath.Dir(storePath), 0o755); err != nil {
		return handlers.Deps{}, nil, err
	}
	st, err := store.Open(storePath)
	if err != nil {
		return handlers.Deps{}, nil, err
	}
	log.Info("run store opened", zap.String("path", storePath))

	cache := profile.NewCache(24 * time.Hour)
	go cache.Run(ctx, 10*time.Minute)

	deps := handlers.Deps{
		Store:    st,
		Profiles: &profile.ClearSkyProvider{Cache: cache, Logger: log},
		Logger:   log,
	}

	if path := os.Getenv("COSTS_FILE"); path != "" {
		b, err := costs.LoadFile(path)
		if err != nil {
			_ = st.Close()
			return handlers.Deps{}, nil, err
		}
		deps.Costs = b
		log.Info("cost tables loaded", zap.String("path", path), zap.Int("records", b.Lookup.Table.Len()))
	}

	locPath := data.GetDefaultLocationsPath()
	if list, err := data.LoadLocations(locPath); err == nil {
		deps.Locations = list
		if deps.Costs != nil && len(deps.Costs.Lookup.Places) == 0 {
			deps.Costs.Lookup.Places = list.Places()
		}
		log.Info("locations loaded", zap.String("path", locPath), zap.Int("count", len(list.Locations)))
	} else {
		log.Warn("locations not loaded", zap.String("path", locPath), zap.Error(err))
	}
	if deps.Costs != nil {
		deps.Costs.Lookup.Logger = log
	}

	return deps, func() { _ = st.Close() }, nil
}
