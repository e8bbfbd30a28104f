package handlers

import (
	"net/http"
	"strings"

	"github.com/01moynul/palett-api/internal/credits"
	"github.com/01moynul/palett-api/internal/fal"
	"github.com/01moynul/palett-api/internal/middleware"
	"github.com/01moynul/palett-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Default output sizes when the provider omits them.
const (
	defaultVideoWidth  = 1920
	defaultVideoHeight = 1080
	defaultImageSide   = 1024
)

// requireFal answers 503 when no generation provider is configured.
func (h *Handlers) requireFal(c *gin.Context) bool {
	if h.Fal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Generation provider is not configured"})
		return false
	}
	return true
}

// lookupEndpoint answers 400 for models the registry does not know.
func lookupEndpoint(c *gin.Context, kind fal.Kind, name string) (fal.Endpoint, bool) {
	ep, ok := fal.Lookup(kind, name)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown model for " + string(kind) + ": " + name})
		return fal.Endpoint{}, false
	}
	return ep, true
}

// --- Text to Image ---

type TextToImageInput struct {
	Prompt         string  `json:"prompt" binding:"required,max=2000"`
	NegativePrompt string  `json:"negativePrompt" binding:"max=2000"`
	Model          string  `json:"model"`
	ImageSize      string  `json:"imageSize" binding:"omitempty,oneof=square_hd square landscape_4_3 landscape_16_9 portrait_4_3 portrait_16_9"`
	NumImages      int     `json:"numImages" binding:"omitempty,min=1,max=4"`
	Steps          int     `json:"steps" binding:"omitempty,min=10,max=50"`
	Guidance       float64 `json:"guidance" binding:"omitempty,min=1,max=20"`
	Seed           *int64  `json:"seed"`
}

// TextToImage handles POST /v1/generate/text-to-image
func (h *Handlers) TextToImage(c *gin.Context) {
	// 1. --- Bind & Validate ---
	var input TextToImageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.NumImages == 0 {
		input.NumImages = 1
	}
	if input.Steps == 0 {
		input.Steps = 28
	}
	if input.Guidance == 0 {
		input.Guidance = 3.5
	}
	if !h.requireFal(c) {
		return
	}

	// 2. --- Resolve Model ---
	ep, ok := lookupEndpoint(c, fal.KindTextToImage, input.Model)
	if !ok {
		return
	}

	// 3. --- Charge (one unit per image) ---
	res, ok := h.charge(c, credits.TextToImage, credits.NoModel, int64(input.NumImages))
	if !ok {
		return
	}

	// 4. --- Call Provider ---
	out, err := h.Fal.GenerateImage(c.Request.Context(), fal.ImageRequest{
		Endpoint:       ep.Path,
		Prompt:         input.Prompt,
		NegativePrompt: input.NegativePrompt,
		ImageSize:      input.ImageSize,
		NumImages:      input.NumImages,
		Steps:          input.Steps,
		Guidance:       input.Guidance,
		Seed:           input.Seed,
	})
	if err != nil {
		h.providerFailed(c, err, res, ep.Path)
		return
	}

	// 5. --- Save & Respond ---
	assets := h.saveImages(c, out, imageAsset{
		kind:           fal.KindTextToImage,
		model:          ep.Key,
		prompt:         input.Prompt,
		negativePrompt: input.NegativePrompt,
		unitCost:       res.Charged / int64(input.NumImages),
	})
	h.respondImages(c, assets, ep, res)
}

// --- Image to Image ---

type ImageToImageInput struct {
	ImageURL string  `json:"imageUrl" binding:"required,url"`
	Prompt   string  `json:"prompt" binding:"required,max=2000"`
	Model    string  `json:"model"`
	Strength float64 `json:"strength" binding:"omitempty,gt=0,lte=1"`
}

// ImageToImage handles POST /v1/generate/image-to-image
func (h *Handlers) ImageToImage(c *gin.Context) {
	var input ImageToImageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.requireFal(c) {
		return
	}
	ep, ok := lookupEndpoint(c, fal.KindImageToImage, input.Model)
	if !ok {
		return
	}

	res, ok := h.charge(c, credits.ImageToImage, credits.NoModel, 1)
	if !ok {
		return
	}

	out, err := h.Fal.TransformImage(c.Request.Context(), fal.TransformRequest{
		Endpoint: ep.Path,
		ImageURL: input.ImageURL,
		Prompt:   input.Prompt,
		Strength: input.Strength,
	})
	if err != nil {
		h.providerFailed(c, err, res, ep.Path)
		return
	}

	assets := h.saveImages(c, out, imageAsset{
		kind:        fal.KindImageToImage,
		model:       ep.Key,
		prompt:      input.Prompt,
		originalURL: input.ImageURL,
		unitCost:    res.Charged,
	})
	h.respondImages(c, assets, ep, res)
}

// --- Upscale ---

type UpscaleInput struct {
	ImageURL string `json:"imageUrl" binding:"required,url"`
	Model    string `json:"model"`
	Scale    int    `json:"scale" binding:"omitempty,min=1,max=4"`
}

// Upscale handles POST /v1/generate/upscale
func (h *Handlers) Upscale(c *gin.Context) {
	var input UpscaleInput
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
	ep, ok := lookupEndpoint(c, fal.KindUpscale, input.Model)
	if !ok {
		return
	}

	res, ok := h.charge(c, credits.Upscale, credits.NoModel, 1)
	if !ok {
		return
	}

	out, err := h.Fal.Upscale(c.Request.Context(), fal.UpscaleRequest{
		Endpoint: ep.Path,
		ImageURL: input.ImageURL,
		Scale:    input.Scale,
	})
	if err != nil {
		h.providerFailed(c, err, res, ep.Path)
		return
	}

	assets := h.saveImages(c, out, imageAsset{
		kind:        fal.KindUpscale,
		model:       ep.Key,
		prompt:      "Upscaled image",
		originalURL: input.ImageURL,
		unitCost:    res.Charged,
	})
	h.respondImages(c, assets, ep, res)
}

// --- Background Removal ---

type BackgroundRemovalInput struct {
	ImageURL string `json:"imageUrl" binding:"required,url"`
}

// RemoveBackground handles POST /v1/generate/background-removal
func (h *Handlers) RemoveBackground(c *gin.Context) {
	var input BackgroundRemovalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.requireFal(c) {
		return
	}
	ep, ok := lookupEndpoint(c, fal.KindBackgroundRemoval, "")
	if !ok {
		return
	}

	res, ok := h.charge(c, credits.BackgroundRemoval, credits.NoModel, 1)
	if !ok {
		return
	}

	out, err := h.Fal.RemoveBackground(c.Request.Context(), fal.BackgroundRequest{
		Endpoint: ep.Path,
		ImageURL: input.ImageURL,
	})
	if err != nil {
		h.providerFailed(c, err, res, ep.Path)
		return
	}

	assets := h.saveImages(c, out, imageAsset{
		kind:        fal.KindBackgroundRemoval,
		model:       ep.Key,
		prompt:      "Background removed",
		originalURL: input.ImageURL,
		unitCost:    res.Charged,
	})
	h.respondImages(c, assets, ep, res)
}

// --- Image Edit ---

type ImageEditInput struct {
	ImageURL string  `json:"imageUrl" binding:"required,url"`
	Prompt   string  `json:"prompt" binding:"required,max=2000"`
	Guidance float64 `json:"guidance" binding:"omitempty,min=1,max=20"`
	Steps    int     `json:"steps" binding:"omitempty,min=10,max=50"`
}

// EditImage handles POST /v1/generate/image-edit. Editing always runs on Qwen.
func (h *Handlers) EditImage(c *gin.Context) {
	var input ImageEditInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Guidance == 0 {
		input.Guidance = 7.5
	}
	if input.Steps == 0 {
		input.Steps = 30
	}
	if !h.requireFal(c) {
		return
	}
	ep, ok := lookupEndpoint(c, fal.KindImageEdit, string(credits.Qwen))
	if !ok {
		return
	}

	res, ok := h.charge(c, credits.ImageEdit, credits.Qwen, 1)
	if !ok {
		return
	}

	out, err := h.Fal.EditImage(c.Request.Context(), fal.EditRequest{
		Endpoint: ep.Path,
		ImageURL: input.ImageURL,
		Prompt:   input.Prompt,
		Guidance: input.Guidance,
		Steps:    input.Steps,
	})
	if err != nil {
		h.providerFailed(c, err, res, ep.Path)
		return
	}

	assets := h.saveImages(c, out, imageAsset{
		kind:        fal.KindImageEdit,
		model:       ep.Key,
		prompt:      input.Prompt,
		originalURL: input.ImageURL,
		unitCost:    res.Charged,
	})
	h.respondImages(c, assets, ep, res)
}

// --- Video ---

type TextToVideoInput struct {
	Prompt      string `json:"prompt" binding:"required,max=2000"`
	Model       string `json:"model" binding:"required"`
	Duration    int    `json:"duration" binding:"omitempty,min=1,max=10"`
	AspectRatio string `json:"aspectRatio" binding:"omitempty,oneof=16:9 9:16 1:1"`
	Steps       int    `json:"steps" binding:"omitempty,min=10,max=50"`
}

// TextToVideo handles POST /v1/generate/text-to-video
func (h *Handlers) TextToVideo(c *gin.Context) {
	// 1. --- Bind & Validate ---
	var input TextToVideoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Duration == 0 {
		input.Duration = 5
	}
	if input.AspectRatio == "" {
		input.AspectRatio = "16:9"
	}
	if input.Steps == 0 {
		input.Steps = 30
	}
	if !h.requireFal(c) {
		return
	}

	// 2. --- Resolve Model ---
	model := credits.ParseModel(input.Model)
	ep, ok := lookupEndpoint(c, fal.KindTextToVideo, string(model))
	if !ok {
		return
	}

	// 3. --- Charge ---
	res, ok := h.charge(c, credits.TextToVideo, model, 1)
	if !ok {
		return
	}

	// 4. --- Call Provider ---
	out, err := h.Fal.TextToVideo(c.Request.Context(), fal.VideoRequest{
		Endpoint:    ep.Path,
		Prompt:      input.Prompt,
		Duration:    input.Duration,
		AspectRatio: input.AspectRatio,
		Steps:       input.Steps,
	})
	if err != nil {
		h.providerFailed(c, err, res, ep.Path)
		return
	}

	// 5. --- Save & Respond ---
	asset := h.saveVideo(c, out, videoAsset{
		kind:        fal.KindTextToVideo,
		model:       ep.Key,
		prompt:      input.Prompt,
		duration:    input.Duration,
		aspectRatio: input.AspectRatio,
		cost:        res.Charged,
	})
	h.respondVideo(c, asset, ep, res)
}

type ImageToVideoInput struct {
	ImageURL    string `json:"imageUrl" binding:"required,url"`
	Prompt      string `json:"prompt" binding:"max=2000"`
	Model       string `json:"model" binding:"required"`
	Duration    int    `json:"duration" binding:"omitempty,min=1,max=10"`
	AspectRatio string `json:"aspectRatio" binding:"omitempty,oneof=16:9 9:16 1:1"`
}

// ImageToVideo handles POST /v1/generate/image-to-video
func (h *Handlers) ImageToVideo(c *gin.Context) {
	var input ImageToVideoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Duration == 0 {
		input.Duration = 5
	}
	if input.AspectRatio == "" {
		input.AspectRatio = "16:9"
	}
	if !h.requireFal(c) {
		return
	}

	model := credits.ParseModel(input.Model)
	ep, ok := lookupEndpoint(c, fal.KindImageToVideo, string(model))
	if !ok {
		return
	}

	res, ok := h.charge(c, credits.ImageToVideo, model, 1)
	if !ok {
		return
	}

	out, err := h.Fal.ImageToVideo(c.Request.Context(), fal.VideoRequest{
		Endpoint:    ep.Path,
		Prompt:      input.Prompt,
		ImageURL:    input.ImageURL,
		Duration:    input.Duration,
		AspectRatio: input.AspectRatio,
	})
	if err != nil {
		h.providerFailed(c, err, res, ep.Path)
		return
	}

	prompt := input.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = "Image to video conversion"
	}
	asset := h.saveVideo(c, out, videoAsset{
		kind:        fal.KindImageToVideo,
		model:       ep.Key,
		prompt:      prompt,
		originalURL: input.ImageURL,
		duration:    input.Duration,
		aspectRatio: input.AspectRatio,
		cost:        res.Charged,
	})
	h.respondVideo(c, asset, ep, res)
}

// --- Persistence helpers ---

type imageAsset struct {
	kind           fal.Kind
	model          string
	prompt         string
	negativePrompt string
	originalURL    string
	unitCost       int64
}

// saveImages stores one gallery row per image. A failed insert is logged
// and the image is still returned; the account has already paid for it.
func (h *Handlers) saveImages(c *gin.Context, out *fal.ImageResult, meta imageAsset) []models.GeneratedAsset {
	assets := make([]models.GeneratedAsset, 0, len(out.Images))
	for _, img := range out.Images {
		a := models.GeneratedAsset{
			ID:             uuid.NewString(),
			AccountID:      middleware.AccountID(c),
			Operation:      string(meta.kind),
			Model:          meta.model,
			Prompt:         meta.prompt,
			NegativePrompt: optional(meta.negativePrompt),
			URL:            img.URL,
			OriginalURL:    optional(meta.originalURL),
			ContentType:    models.ContentImage,
			Width:          orInt(img.Width, defaultImageSide),
			Height:         orInt(img.Height, defaultImageSide),
			CreditsUsed:    meta.unitCost,
			CreatedAt:      h.clock(),
		}
		if err := h.Assets.CreateAsset(c.Request.Context(), &a); err != nil {
			h.Log.Error().Err(err).Str("account_id", a.AccountID).Str("url", a.URL).Msg("failed to save generated image")
		}
		withDownloadName(&a)
		assets = append(assets, a)
	}
	return assets
}

type videoAsset struct {
	kind        fal.Kind
	model       string
	prompt      string
	originalURL string
	duration    int
	aspectRatio string
	cost        int64
}

func (h *Handlers) saveVideo(c *gin.Context, out *fal.VideoResult, meta videoAsset) models.GeneratedAsset {
	a := models.GeneratedAsset{
		ID:          uuid.NewString(),
		AccountID:   middleware.AccountID(c),
		Operation:   string(meta.kind),
		Model:       meta.model,
		Prompt:      meta.prompt,
		URL:         out.Video.URL,
		OriginalURL: optional(meta.originalURL),
		ContentType: models.ContentVideo,
		Width:       defaultVideoWidth,
		Height:      defaultVideoHeight,
		Duration:    &meta.duration,
		AspectRatio: optional(meta.aspectRatio),
		CreditsUsed: meta.cost,
		CreatedAt:   h.clock(),
	}
	if out.Thumbnail != nil && out.Thumbnail.URL != "" {
		a.ThumbnailURL = &out.Thumbnail.URL
	}
	if err := h.Assets.CreateAsset(c.Request.Context(), &a); err != nil {
		h.Log.Error().Err(err).Str("account_id", a.AccountID).Str("url", a.URL).Msg("failed to save generated video")
	}
	withDownloadName(&a)
	return a
}

func (h *Handlers) respondImages(c *gin.Context, assets []models.GeneratedAsset, ep fal.Endpoint, res credits.Result) {
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"images":      assets,
		"model":       ep.Key,
		"creditsUsed": res.Charged,
		"balance":     res.Balance,
	})
}

func (h *Handlers) respondVideo(c *gin.Context, asset models.GeneratedAsset, ep fal.Endpoint, res credits.Result) {
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"video":       asset,
		"model":       ep.Key,
		"creditsUsed": res.Charged,
		"balance":     res.Balance,
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
