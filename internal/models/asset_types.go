package models

import "time"

// Content types of generated assets
const (
	ContentImage = "image"
	ContentVideo = "video"
)

// GeneratedAsset is the model for the 'generated_assets' table.
type GeneratedAsset struct {
	ID             string    `json:"id" db:"id"`
	AccountID      string    `json:"accountId" db:"account_id"`
	Operation      string    `json:"operation" db:"operation"` // e.g. text-to-image
	Model          string    `json:"model" db:"model"`
	Prompt         string    `json:"prompt" db:"prompt"`
	NegativePrompt *string   `json:"negativePrompt,omitempty" db:"negative_prompt"`
	URL            string    `json:"url" db:"url"`
	ThumbnailURL   *string   `json:"thumbnailUrl,omitempty" db:"thumbnail_url"`
	OriginalURL    *string   `json:"originalUrl,omitempty" db:"original_url"`
	ContentType    string    `json:"contentType" db:"content_type"`
	Width          int       `json:"width" db:"width"`
	Height         int       `json:"height" db:"height"`
	Duration       *int      `json:"duration,omitempty" db:"duration"`
	AspectRatio    *string   `json:"aspectRatio,omitempty" db:"aspect_ratio"`
	CreditsUsed    int64     `json:"creditsUsed" db:"credits_used"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`

	// Not stored; filled in by handlers.
	DownloadName string `json:"downloadName,omitempty" db:"-"`
}
