package main

import (
	"context"
	"errors"
	"time"

	"github.com/01moynul/palett-api/internal/config"
	"github.com/01moynul/palett-api/internal/database"
	"github.com/01moynul/palett-api/internal/logger"
	"github.com/01moynul/palett-api/internal/seed"
)

// Development-only fallbacks.
const (
	devAdminPassword = "admin-password"
	devUserPassword  = "user-password"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(config.EnvDevelopment)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}
	log := logger.New(cfg.Env)

	adminPassword, userPassword, usedDefaults, err := seedPasswords(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("missing seed passwords")
	}
	if usedDefaults {
		log.Warn().Msg("using development seed passwords")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.Open(ctx, database.Options{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	if err := seed.Run(ctx, database.NewAccountStore(db), seed.Defaults(adminPassword, userPassword), log); err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}
	log.Info().Msg("seeding complete")
}

// seedPasswords falls back to development passwords outside production.
func seedPasswords(cfg *config.Config) (admin, user string, usedDefaults bool, err error) {
	admin, user = cfg.SeedAdminPassword, cfg.SeedUserPassword
	if admin != "" && user != "" {
		return admin, user, false, nil
	}
	if cfg.IsProduction() {
		return "", "", false, errors.New("SEED_ADMIN_PASSWORD and SEED_USER_PASSWORD are required in production")
	}
	if admin == "" {
		admin = devAdminPassword
	}
	if user == "" {
		user = devUserPassword
	}
	return admin, user, true, nil
}
