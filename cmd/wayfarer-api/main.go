// README: Entry point; loads config, wires services and runs the HTTP server until a signal arrives.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wayfarer/internal/ai"
	"wayfarer/internal/config"
	httptransport "wayfarer/internal/http"
	"wayfarer/internal/infra"
	"wayfarer/internal/itinerary"
	"wayfarer/internal/maps"
	"wayfarer/internal/modules/expense"
	"wayfarer/internal/modules/location"
	"wayfarer/internal/modules/plan"
	"wayfarer/internal/modules/quota"
	"wayfarer/internal/service"
	"wayfarer/internal/voice"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := infra.NewLogger(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dashscope := ai.NewDashScope(ai.DashScopeConfig{
		APIKey:   cfg.AI.DashScopeKey,
		Endpoint: cfg.AI.DashScopeEndpoint,
		Model:    cfg.AI.DashScopeModel,
		Timeout:  cfg.AI.Timeout,
	})
	if !dashscope.Configured() {
		logger.Warn("dashscope api key not set; generation requests will fail")
	}

	deps := httptransport.ServerDeps{
		Logger:         logger,
		Relay:          dashscope,
		AllowOrigins:   cfg.HTTP.AllowOrigins,
		GeneratePerMin: cfg.HTTP.GeneratePerMin,
		GenerateBurst:  cfg.HTTP.GenerateBurst,
	}

	var handler http.Handler
	if cfg.Firebase.ProjectID == "" {
		logger.Warn("firebase project not configured; serving the generation shim only")
		handler = httptransport.NewServer(deps).Shim()
	} else {
		cleanup, err := wireAPI(ctx, cfg, logger, dashscope, &deps)
		if err != nil {
			logger.Fatal("startup failed", zap.Error(err))
		}
		defer cleanup()
		handler = httptransport.NewServer(deps).Routes()
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Fatal("http server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("http server stopped")
}

// wireAPI builds the authenticated surface and fills deps. The returned
// function releases the clients it opened.
func wireAPI(ctx context.Context, cfg config.Config, logger *zap.Logger, dashscope *ai.DashScope, deps *httptransport.ServerDeps) (func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	verifier, err := infra.NewFirebaseVerifier(ctx, infra.FirebaseOptions{
		ProjectID:       cfg.Firebase.ProjectID,
		CredentialsFile: cfg.Firebase.CredentialsFile,
		CheckRevoked:    cfg.Firebase.CheckRevoked,
	})
	if err != nil {
		return cleanup, err
	}
	deps.Verifier = verifier

	db, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return cleanup, err
	}
	closers = append(closers, db.Close)
	if cfg.DB.AutoMigrate {
		if err := infra.ApplyMigrations(ctx, db, cfg.DB.MigrationsDir); err != nil {
			return cleanup, err
		}
		logger.Info("migrations applied", zap.String("dir", cfg.DB.MigrationsDir))
	}

	var generator ai.Generator = dashscope
	if cfg.AI.Provider == config.ProviderGemini {
		gemini, err := ai.NewGemini(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiModel)
		if err != nil {
			return cleanup, err
		}
		closers = append(closers, gemini.Close)
		generator = gemini
	}

	var (
		geocoder itinerary.Geocoder
		routes   service.RouteEstimator
		places   service.PlaceSearcher
	)
	if cfg.Maps.APIKey != "" {
		client, err := maps.NewClient(cfg.Maps.APIKey)
		if err != nil {
			return cleanup, err
		}
		locale := maps.Locale{Language: cfg.Maps.Language, Region: cfg.Maps.Region}

		var cache location.Cache
		rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("redis unavailable; geocoding without cache", zap.Error(err))
		} else {
			closers = append(closers, func() { _ = rdb.Close() })
			cache = location.NewStore(rdb)
		}
		geocoder = location.NewService(cache, maps.NewGeocoder(client, locale), logger)
		routes = maps.NewRouteService(client, locale)
		places = maps.NewPlacesService(client, locale)
	} else {
		logger.Warn("maps api key not set; coordinate enrichment, routes and places are disabled")
	}

	if cfg.Speech.Enabled {
		client, err := voice.NewClient(ctx, cfg.Speech.CredentialsFile)
		if err != nil {
			return cleanup, err
		}
		closers = append(closers, func() { _ = client.Close() })
		deps.Recognizer = voice.NewRecognizer(client, voice.Config{
			LanguageCode: cfg.Speech.LanguageCode,
			Interim:      true,
		}, logger)
	}

	plans := plan.NewService(plan.NewStore(db))
	deps.Plans = plans
	deps.Expenses = expense.NewService(expense.NewStore(db), plans)
	deps.Quota = quota.NewService(quota.NewStore(db), cfg.Quota.MonthlyGenerations)
	deps.Planner = service.NewTripPlanner(generator, geocoder, routes, places, logger)

	logger.Info("api wired",
		zap.String("generator", generator.Name()),
		zap.Bool("maps", geocoder != nil),
		zap.Bool("speech", deps.Recognizer != nil))
	return cleanup, nil
}
