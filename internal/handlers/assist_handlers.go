package handlers

import (
	"net/http"

	"github.com/01moynul/palett-api/internal/assist"
	"github.com/01moynul/palett-api/internal/credits"
	"github.com/01moynul/palett-api/internal/middleware"
	"github.com/gin-gonic/gin"
)

// AssistInput defines the structure of the JSON request body.
type AssistInput struct {
	Prompt string `json:"prompt" binding:"required,max=1000"`
	Kind   string `json:"kind" binding:"omitempty,oneof=image video"`
}

// EnhancePrompt handles POST /v1/assist/prompt
func (h *Handlers) EnhancePrompt(c *gin.Context) {
	// 1. Parse Input
	var input AssistInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Kind == "" {
		input.Kind = assist.KindImage
	}
	if h.Assist == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Prompt assistant is not configured"})
		return
	}

	// 2. Charge before calling the model
	res, ok := h.charge(c, credits.PromptAssist, credits.NoModel, 1)
	if !ok {
		return
	}

	// 3. Call the assistant
	enhanced, err := h.Assist.Enhance(c.Request.Context(), input.Prompt, input.Kind)
	if err != nil {
		h.Log.Error().Err(err).
			Str("account_id", middleware.AccountID(c)).
			Int64("credits_charged", res.Charged).
			Msg("prompt assist failed after charge, credits not refunded")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":       "Prompt assistant unavailable",
			"creditsUsed": res.Charged,
			"balance":     res.Balance,
		})
		return
	}

	// 4. Return the answer
	c.JSON(http.StatusOK, gin.H{
		"prompt":      enhanced,
		"creditsUsed": res.Charged,
		"balance":     res.Balance,
	})
}
