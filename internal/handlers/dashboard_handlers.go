package handlers

import (
	"net/http"
	"time"

	"github.com/01moynul/palett-api/internal/middleware"
	"github.com/01moynul/palett-api/internal/models"
	"github.com/gin-gonic/gin"
)

// DashboardStats are the KPIs on the creator dashboard.
type DashboardStats struct {
	Credits         int64  `json:"credits"`
	Plan            string `json:"plan"`
	Images          int    `json:"images"`
	Videos          int    `json:"videos"`
	CreditsSpent30d int64  `json:"creditsSpent30d"`
}

// GetDashboardStats returns KPI data for the dashboard
// GET /v1/dashboard/stats
func (h *Handlers) GetDashboardStats(c *gin.Context) {
	ctx := c.Request.Context()
	accountID := middleware.AccountID(c)

	stats := DashboardStats{}

	// 1. Account and balance
	account, err := h.Accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load account"})
		return
	}
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}
	stats.Plan = account.Plan

	stats.Credits, err = h.Ledger.Balance(ctx, accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get credit balance"})
		return
	}

	// 2. Gallery counts
	stats.Images, err = h.Assets.CountAssets(ctx, accountID, models.ContentImage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count images"})
		return
	}
	stats.Videos, err = h.Assets.CountAssets(ctx, accountID, models.ContentVideo)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count videos"})
		return
	}

	// 3. Spend over the last 30 days
	stats.CreditsSpent30d, err = h.Usage.CreditsSpentSince(ctx, accountID, h.clock().Add(-30*24*time.Hour))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sum usage"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
