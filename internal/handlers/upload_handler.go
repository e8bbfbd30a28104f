package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/01moynul/palett-api/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MaxUploadBytes caps a single uploaded image.
const MaxUploadBytes = 10 << 20

var allowedImageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
}

// UploadImage handles POST /v1/uploads
// It saves the image under UploadDir and returns its public URL, which can
// then be passed as imageUrl to the image-based operations.
func (h *Handlers) UploadImage(c *gin.Context) {
	// 1. Get the file from the request
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if file.Size > MaxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large (max 10 MiB)"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExts[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only png, jpg, webp and gif images are accepted"})
		return
	}

	// 2. Create the upload directory if it doesn't exist
	if err := os.MkdirAll(h.Settings.UploadDir, 0o755); err != nil {
		h.Log.Error().Err(err).Str("dir", h.Settings.UploadDir).Msg("cannot create upload directory")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return
	}

	// 3. Generate a safe unique filename (uuid + extension)
	newFilename := uuid.NewString() + ext
	savePath := filepath.Join(h.Settings.UploadDir, newFilename)

	// 4. Save the file
	if err := c.SaveUploadedFile(file, savePath); err != nil {
		h.Log.Error().Err(err).Msg("save upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return
	}

	// 5. Return the public URL
	publicURL := fmt.Sprintf("%s/uploads/%s", h.Settings.BaseURL, newFilename)

	h.Log.Info().Str("account_id", middleware.AccountID(c)).Str("file", newFilename).Msg("image uploaded")
	c.JSON(http.StatusOK, gin.H{
		"url": publicURL,
	})
}
