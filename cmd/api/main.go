package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/01moynul/palett-api/internal/assist"
	"github.com/01moynul/palett-api/internal/auth"
	"github.com/01moynul/palett-api/internal/config"
	"github.com/01moynul/palett-api/internal/credits"
	"github.com/01moynul/palett-api/internal/database"
	"github.com/01moynul/palett-api/internal/fal"
	"github.com/01moynul/palett-api/internal/handlers"
	"github.com/01moynul/palett-api/internal/logger"
	"github.com/01moynul/palett-api/internal/routes"
	"github.com/gin-gonic/gin"
)

func main() {
	// 0. --- Load Configuration (.env + environment) ---
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(config.EnvDevelopment)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}
	log := logger.New(cfg.Env)
	for _, w := range cfg.Warnings {
		log.Warn().Msg(w)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. --- Database Connection ---
	db, err := database.Open(ctx, database.Options{
		Driver:          cfg.DBDriver,
		DSN:             cfg.DBDSN,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	// 2. --- Credit Ledger ---
	costs, err := credits.LoadCostTable(cfg.CostsFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.CostsFile).Msg("failed to load cost table")
	}
	ledger := credits.New(database.NewLedgerStore(db), costs)

	// 3. --- Application Setup ---
	app := handlers.New(db, ledger, auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL), log, handlers.Settings{
		SignupCredits: cfg.SignupCredits,
		UploadDir:     cfg.UploadDir,
		BaseURL:       cfg.BaseURL,
	})

	// 4. --- Generation Provider ---
	if falClient := fal.NewClient(cfg.FalBaseURL, cfg.FalKey, cfg.FalTimeout); falClient.Configured() {
		app.Fal = falClient
	} else {
		log.Warn().Msg("FAL_KEY not set, generation routes will answer 503")
	}

	// 5. --- Prompt Assistant (optional) ---
	if cfg.GeminiAPIKey != "" {
		assistant, err := assist.NewService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize prompt assistant")
		}
		defer assistant.Close()
		app.Assist = assistant
	} else {
		log.Info().Msg("GEMINI_API_KEY not set, prompt assistant disabled")
	}

	// --- Router Setup ---
	router := routes.SetupRouter(app, routes.Options{
		CORSOrigin:            cfg.CORSOrigin,
		UploadDir:             cfg.UploadDir,
		GenerateRatePerMinute: cfg.GenerateRatePerMinute,
		GenerateBurst:         cfg.GenerateBurst,
	})

	// --- Start Server ---
	srv := newServer(cfg, router)

	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("starting Palett API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
}

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
