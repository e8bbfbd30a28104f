package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/01moynul/palett-api/internal/database"
	"github.com/01moynul/palett-api/internal/middleware"
	"github.com/01moynul/palett-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// --- Registration ---

// RegisterInput is separate from models.Account so clients cannot set an
// id, role or balance.
type RegisterInput struct {
	Name     string `json:"name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// Register handles POST /v1/auth/register
func (h *Handlers) Register(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Hash the Password ---
	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	// 3. --- Create Account Model ---
	now := h.clock()
	account := &models.Account{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: password.Hash,
		Role:         models.RoleUser,
		Plan:         models.PlanFree,
		Credits:      h.Settings.SignupCredits,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// 4. --- Save to Database ---
	if err := h.Accounts.CreateAccount(c.Request.Context(), account); err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
			return
		}
		h.Log.Error().Err(err).Msg("create account failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	// 5. --- Issue Token ---
	token, err := h.Tokens.Issue(account.ID, account.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	h.Log.Info().Str("account_id", account.ID).Msg("account registered")
	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created",
		"token":   token,
		"account": account,
	})
}

// --- Login ---

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Find Account ---
	account, err := h.Accounts.GetAccountByEmail(c.Request.Context(), strings.TrimSpace(input.Email))
	if err != nil {
		h.Log.Error().Err(err).Msg("login lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if account == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	// 3. --- Check Password ---
	password := models.Password{Hash: account.PasswordHash}
	match, err := password.Matches(input.Password)
	if err != nil || !match {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	// 4. --- Issue Token ---
	token, err := h.Tokens.Issue(account.ID, account.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"account": account,
	})
}

// Me handles GET /v1/me
func (h *Handlers) Me(c *gin.Context) {
	account, err := h.Accounts.GetAccountByID(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}
	c.JSON(http.StatusOK, account)
}
