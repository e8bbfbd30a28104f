package models

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Account roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Plan tiers
const (
	PlanFree    = "free"
	PlanPro     = "pro"
	PlanPremium = "premium"
)

// Account is the model for the 'accounts' table.
// Credits is only ever written through the credit ledger.
type Account struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	Plan         string    `json:"plan" db:"plan"`
	Credits      int64     `json:"credits" db:"credits"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// IsAdmin reports whether the account may use admin routes.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// ValidPlan reports whether plan is a known tier.
func ValidPlan(plan string) bool {
	switch plan {
	case PlanFree, PlanPro, PlanPremium:
		return true
	}
	return false
}

// Password wraps a bcrypt hash.
type Password struct {
	Plaintext *string
	Hash      string
}

func (p *Password) Set(plaintextPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintextPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.Hash = string(hash)
	p.Plaintext = &plaintextPassword
	return nil
}

func (p *Password) Matches(plaintextPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(p.Hash), []byte(plaintextPassword))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
