package handlers

import (
	"net/http"

	"github.com/01moynul/palett-api/internal/credits"
	"github.com/01moynul/palett-api/internal/fal"
	"github.com/01moynul/palett-api/internal/middleware"
	"github.com/01moynul/palett-api/internal/models"
	"github.com/gin-gonic/gin"
)

// Batch actions
const (
	BatchUpscale           = "upscale"
	BatchBackgroundRemoval = "background-removal"
)

type BatchInput struct {
	Action    string   `json:"action" binding:"required,oneof=upscale background-removal"`
	ImageURLs []string `json:"imageUrls" binding:"required,min=1,max=10,dive,required,url"`
	Model     string   `json:"model"`
	Scale     int      `json:"scale" binding:"omitempty,min=1,max=4"`
}

// BatchFailure reports one item the provider could not process.
type BatchFailure struct {
	ImageURL string `json:"imageUrl"`
	Error    string `json:"error"`
}

// Batch handles POST /v1/generate/batch
// The whole batch is charged up front at the per-item price. Items that fail
// at the provider are reported but not refunded.
func (h *Handlers) Batch(c *gin.Context) {
	// 1. --- Bind & Validate ---
	var input BatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Scale == 0 {
		input.Scale = 2
	}
	if !h.requireFal(c) {
		return
	}

	// 2. --- Resolve Model ---
	kind := fal.KindUpscale
	if input.Action == BatchBackgroundRemoval {
		kind = fal.KindBackgroundRemoval
	}
	ep, ok := lookupEndpoint(c, kind, input.Model)
	if !ok {
		return
	}

	// 3. --- Charge Once For All Items ---
	res, ok := h.charge(c, credits.BatchProcess, credits.NoModel, int64(len(input.ImageURLs)))
	if !ok {
		return
	}
	unitCost := res.Charged / int64(len(input.ImageURLs))

	// 4. --- Process Items ---
	ctx := c.Request.Context()
	images := []models.GeneratedAsset{}
	failed := []BatchFailure{}
	for _, imageURL := range input.ImageURLs {
		var (
			out *fal.ImageResult
			err error
		)
		switch kind {
		case fal.KindUpscale:
			out, err = h.Fal.Upscale(ctx, fal.UpscaleRequest{Endpoint: ep.Path, ImageURL: imageURL, Scale: input.Scale})
		default:
			out, err = h.Fal.RemoveBackground(ctx, fal.BackgroundRequest{Endpoint: ep.Path, ImageURL: imageURL})
		}
		if err != nil {
			h.Log.Warn().Err(err).
				Str("account_id", middleware.AccountID(c)).
				Str("endpoint", ep.Path).
				Str("image_url", imageURL).
				Msg("batch item failed, credits not refunded")
			failed = append(failed, BatchFailure{ImageURL: imageURL, Error: err.Error()})
			continue
		}
		images = append(images, h.saveImages(c, out, imageAsset{
			kind:        kind,
			model:       ep.Key,
			prompt:      "Batch " + input.Action,
			originalURL: imageURL,
			unitCost:    unitCost,
		})...)
	}

	// 5. --- Respond ---
	if len(images) == 0 {
		h.Log.Error().
			Str("account_id", middleware.AccountID(c)).
			Str("endpoint", ep.Path).
			Int64("credits_charged", res.Charged).
			Msg("every batch item failed after charge, credits not refunded")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":       "Generation failed at the provider",
			"failed":      failed,
			"creditsUsed": res.Charged,
			"balance":     res.Balance,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"images":      images,
		"failed":      failed,
		"model":       ep.Key,
		"creditsUsed": res.Charged,
		"balance":     res.Balance,
	})
}
