package handlers

import (
	"net/http"

	"github.com/01moynul/palett-api/internal/credits"
	"github.com/01moynul/palett-api/internal/fal"
	"github.com/01moynul/palett-api/internal/models"
	"github.com/gin-gonic/gin"
)

// GetBillingPlans handles GET /v1/billing/plans
func (h *Handlers) GetBillingPlans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"packages":      models.CreditPackages(),
		"subscriptions": models.SubscriptionPlans(),
	})
}

// ModelInfo is one entry of the public model catalog.
type ModelInfo struct {
	fal.Endpoint
	CreditCost int64 `json:"creditCost"`
}

// kindOperation maps an endpoint kind to the operation it is billed as, and
// whether the price depends on the model.
var kindOperation = map[fal.Kind]struct {
	op       credits.Operation
	perModel bool
}{
	fal.KindTextToImage:       {credits.TextToImage, false},
	fal.KindImageToImage:      {credits.ImageToImage, false},
	fal.KindUpscale:           {credits.Upscale, false},
	fal.KindBackgroundRemoval: {credits.BackgroundRemoval, false},
	fal.KindTextToVideo:       {credits.TextToVideo, true},
	fal.KindImageToVideo:      {credits.ImageToVideo, true},
	fal.KindImageEdit:         {credits.ImageEdit, true},
}

// GetModels handles GET /v1/models?kind=
func (h *Handlers) GetModels(c *gin.Context) {
	kind := fal.Kind(c.Query("kind"))
	if _, known := kindOperation[kind]; kind != "" && !known {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown kind"})
		return
	}

	endpoints := fal.Endpoints(kind)
	out := make([]ModelInfo, 0, len(endpoints))
	for _, ep := range endpoints {
		billing := kindOperation[ep.Kind]
		model := credits.NoModel
		if billing.perModel {
			model = credits.ParseModel(ep.Key)
		}
		out = append(out, ModelInfo{Endpoint: ep, CreditCost: h.Ledger.Cost(billing.op, model)})
	}

	c.JSON(http.StatusOK, gin.H{"models": out})
}
