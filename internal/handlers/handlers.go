package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/01moynul/palett-api/internal/assist"
	"github.com/01moynul/palett-api/internal/auth"
	"github.com/01moynul/palett-api/internal/credits"
	"github.com/01moynul/palett-api/internal/database"
	"github.com/01moynul/palett-api/internal/fal"
	"github.com/01moynul/palett-api/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Settings are the handler-level configuration values.
type Settings struct {
	SignupCredits int64
	UploadDir     string
	BaseURL       string
}

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	Accounts *database.AccountStore
	Usage    *database.LedgerStore
	Assets   *database.AssetStore
	Ledger   *credits.Ledger
	Tokens   *auth.Issuer

	// Optional collaborators; nil means the feature is not configured.
	Fal    fal.Generator
	Assist assist.Enhancer

	Log      zerolog.Logger
	Settings Settings

	now func() time.Time
}

// New wires handlers over a database connection.
func New(db *database.DB, ledger *credits.Ledger, tokens *auth.Issuer, log zerolog.Logger, settings Settings) *Handlers {
	return &Handlers{
		Accounts: database.NewAccountStore(db),
		Usage:    database.NewLedgerStore(db),
		Assets:   database.NewAssetStore(db),
		Ledger:   ledger,
		Tokens:   tokens,
		Log:      log,
		Settings: settings,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handlers) clock() time.Time {
	if h.now == nil {
		return time.Now().UTC()
	}
	return h.now()
}

// charge runs the ledger step shared by every paid route. On false the
// response has already been written and the paid action must not run.
func (h *Handlers) charge(c *gin.Context, op credits.Operation, model credits.Model, quantity int64) (credits.Result, bool) {
	accountID := middleware.AccountID(c)

	res, err := h.Ledger.Deduct(c.Request.Context(), credits.Charge{
		AccountID: accountID,
		Operation: op,
		Model:     model,
		Quantity:  quantity,
	})
	if err != nil {
		h.Log.Error().Err(err).Str("account_id", accountID).Str("operation", string(op)).Msg("credit deduction failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Credit ledger temporarily unavailable, please retry"})
		return res, false
	}
	if !res.OK() {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":    "Insufficient credits or user not found",
			"required": res.Shortfall.Required,
		})
		return res, false
	}
	return res, true
}

// providerFailed answers a provider error that happened after the charge.
// Credits are not refunded.
func (h *Handlers) providerFailed(c *gin.Context, err error, res credits.Result, endpoint string) {
	h.Log.Error().Err(err).
		Str("account_id", middleware.AccountID(c)).
		Str("endpoint", endpoint).
		Int64("credits_charged", res.Charged).
		Msg("generation failed after charge, credits not refunded")

	c.JSON(http.StatusBadGateway, gin.H{
		"error":       "Generation failed at the provider",
		"creditsUsed": res.Charged,
		"balance":     res.Balance,
	})
}

// queryLimit reads ?limit= with a default and an upper bound.
func queryLimit(c *gin.Context, def, max int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	if n > max {
		n = max
	}
	return n, true
}
