// Package seed creates the default admin and test accounts.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/01moynul/palett-api/internal/database"
	"github.com/01moynul/palett-api/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Account is one account to seed.
type Account struct {
	Email    string
	Name     string
	Password string
	Role     string
	Plan     string
	Credits  int64
}

// Defaults returns the admin and test user with the given passwords.
func Defaults(adminPassword, userPassword string) []Account {
	return []Account{
		{
			Email:    "admin@example.com",
			Name:     "Admin",
			Password: adminPassword,
			Role:     models.RoleAdmin,
			Plan:     models.PlanPremium,
			Credits:  1000,
		},
		{
			Email:    "user@example.com",
			Name:     "Test User",
			Password: userPassword,
			Role:     models.RoleUser,
			Plan:     models.PlanFree,
			Credits:  10,
		},
	}
}

// Run upserts accounts by email. Existing accounts get their name, role,
// plan and password refreshed; their credit balance is never rewritten.
func Run(ctx context.Context, store *database.AccountStore, accounts []Account, log zerolog.Logger) error {
	for _, sa := range accounts {
		if len(sa.Password) < 8 {
			return fmt.Errorf("seed %s: password must be at least 8 characters", sa.Email)
		}

		var password models.Password
		if err := password.Set(sa.Password); err != nil {
			return fmt.Errorf("seed %s: hash password: %w", sa.Email, err)
		}

		existing, err := store.GetAccountByEmail(ctx, sa.Email)
		if err != nil {
			return fmt.Errorf("seed %s: %w", sa.Email, err)
		}

		now := time.Now().UTC()
		if existing != nil {
			existing.Name = sa.Name
			existing.Role = sa.Role
			existing.Plan = sa.Plan
			existing.PasswordHash = password.Hash
			existing.UpdatedAt = now
			if err := store.UpdateProfile(ctx, existing); err != nil {
				return fmt.Errorf("seed %s: %w", sa.Email, err)
			}
			log.Info().Str("email", sa.Email).Int64("credits", existing.Credits).Msg("seed account updated")
			continue
		}

		account := &models.Account{
			ID:           uuid.NewString(),
			Email:        sa.Email,
			Name:         sa.Name,
			PasswordHash: password.Hash,
			Role:         sa.Role,
			Plan:         sa.Plan,
			Credits:      sa.Credits,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := store.CreateAccount(ctx, account); err != nil {
			return fmt.Errorf("seed %s: %w", sa.Email, err)
		}
		log.Info().Str("email", sa.Email).Int64("credits", sa.Credits).Msg("seed account created")
	}
	return nil
}
