package handlers

import (
	"errors"
	"net/http"

	"github.com/01moynul/palett-api/internal/credits"
	"github.com/01moynul/palett-api/internal/middleware"
	"github.com/gin-gonic/gin"
)

// GetCredits handles GET /v1/credits
func (h *Handlers) GetCredits(c *gin.Context) {
	ctx := c.Request.Context()
	accountID := middleware.AccountID(c)

	balance, err := h.Ledger.Balance(ctx, accountID)
	if err != nil {
		h.Log.Error().Err(err).Str("account_id", accountID).Msg("balance read failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Credit ledger temporarily unavailable, please retry"})
		return
	}

	plan := ""
	if account, err := h.Accounts.GetAccountByID(ctx, accountID); err == nil && account != nil {
		plan = account.Plan
	}

	c.JSON(http.StatusOK, gin.H{
		"credits": balance,
		"plan":    plan,
	})
}

// GetUsage handles GET /v1/credits/usage
func (h *Handlers) GetUsage(c *gin.Context) {
	limit, ok := queryLimit(c, 50, 200)
	if !ok {
		return
	}

	records, err := h.Usage.ListUsage(c.Request.Context(), middleware.AccountID(c), limit)
	if err != nil {
		h.Log.Error().Err(err).Msg("list usage failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load usage history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"usage": records})
}

// GetCosts handles GET /v1/credits/costs
func (h *Handlers) GetCosts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"costs": h.Ledger.Costs()})
}

type AddCreditsInput struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// AdminAddCredits handles POST /v1/admin/accounts/:id/credits
func (h *Handlers) AdminAddCredits(c *gin.Context) {
	// 1. --- Bind & Validate ---
	var input AddCreditsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	accountID := c.Param("id")

	// 2. --- Top Up ---
	balance, err := h.Ledger.AddCredits(c.Request.Context(), accountID, input.Amount)
	switch {
	case errors.Is(err, credits.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	case errors.Is(err, credits.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be positive"})
		return
	case err != nil:
		h.Log.Error().Err(err).Str("account_id", accountID).Msg("add credits failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Credit ledger temporarily unavailable, please retry"})
		return
	}

	h.Log.Info().
		Str("account_id", accountID).
		Str("admin_id", middleware.AccountID(c)).
		Int64("amount", input.Amount).
		Msg("credits added")

	c.JSON(http.StatusOK, gin.H{
		"accountId": accountID,
		"credits":   balance,
	})
}
