package handlers

import (
	"net/http"

	"github.com/01moynul/palett-api/internal/middleware"
	"github.com/01moynul/palett-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
)

// GetGallery handles GET /v1/gallery?limit=&type=
func (h *Handlers) GetGallery(c *gin.Context) {
	// 1. --- Parse Filters ---
	limit, ok := queryLimit(c, 50, 200)
	if !ok {
		return
	}
	contentType := c.Query("type")
	if contentType != "" && contentType != models.ContentImage && contentType != models.ContentVideo {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be image or video"})
		return
	}

	// 2. --- Load ---
	assets, err := h.Assets.ListAssets(c.Request.Context(), middleware.AccountID(c), contentType, limit)
	if err != nil {
		h.Log.Error().Err(err).Msg("list gallery failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load gallery"})
		return
	}
	for i := range assets {
		withDownloadName(&assets[i])
	}

	c.JSON(http.StatusOK, gin.H{"assets": assets})
}

// GetGalleryItem handles GET /v1/gallery/:id
func (h *Handlers) GetGalleryItem(c *gin.Context) {
	asset, err := h.Assets.GetAsset(c.Request.Context(), middleware.AccountID(c), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load asset"})
		return
	}
	if asset == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}
	withDownloadName(asset)
	c.JSON(http.StatusOK, asset)
}

// DeleteGalleryItem handles DELETE /v1/gallery/:id
func (h *Handlers) DeleteGalleryItem(c *gin.Context) {
	deleted, err := h.Assets.DeleteAsset(c.Request.Context(), middleware.AccountID(c), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete asset"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Asset deleted"})
}

// withDownloadName derives a file name like "red-fox-in-snow.png".
func withDownloadName(a *models.GeneratedAsset) {
	name := slug.Make(a.Prompt)
	if len(name) > 60 {
		name = name[:60]
	}
	if name == "" {
		name = a.ID
	}

	ext := ".png"
	if a.ContentType == models.ContentVideo {
		ext = ".mp4"
	}
	a.DownloadName = name + ext
}
