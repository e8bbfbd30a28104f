package fal

// ImageRequest is the input of a text-to-image call.
type ImageRequest struct {
	Endpoint       string
	Prompt         string
	NegativePrompt string
	ImageSize      string
	NumImages      int
	Steps          int
	Guidance       float64
	Seed           *int64
}

type TransformRequest struct {
	Endpoint string
	ImageURL string
	Prompt   string
	Strength float64
}

type UpscaleRequest struct {
	Endpoint string
	ImageURL string
	Scale    int
}

type BackgroundRequest struct {
	Endpoint string
	ImageURL string
}

// VideoRequest serves both text-to-video and image-to-video. ImageURL is
// ignored for text-to-video and Steps for image-to-video.
type VideoRequest struct {
	Endpoint    string
	Prompt      string
	ImageURL    string
	Duration    int
	AspectRatio string
	Steps       int
}

type EditRequest struct {
	Endpoint string
	ImageURL string
	Prompt   string
	Guidance float64
	Steps    int
}

// Image is one generated image.
type Image struct {
	URL         string `json:"url"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

type ImageResult struct {
	Images []Image `json:"images"`
	Seed   *int64  `json:"seed,omitempty"`
}

// File is a generated non-image artifact.
type File struct {
	URL string `json:"url"`
}

type VideoResult struct {
	Video     File  `json:"video"`
	Thumbnail *File `json:"thumbnail,omitempty"`
}

// Endpoints answer with either "images" or a single "image".
type imageResponse struct {
	Images []Image `json:"images"`
	Image  *Image  `json:"image"`
	Seed   *int64  `json:"seed"`
}

func (r imageResponse) result() *ImageResult {
	images := r.Images
	if len(images) == 0 && r.Image != nil && r.Image.URL != "" {
		images = []Image{*r.Image}
	}
	return &ImageResult{Images: images, Seed: r.Seed}
}

// Some video endpoints put the URL at the top level.
type videoResponse struct {
	Video     *File  `json:"video"`
	URL       string `json:"url"`
	Thumbnail *File  `json:"thumbnail"`
}

func (r videoResponse) result() *VideoResult {
	out := &VideoResult{Thumbnail: r.Thumbnail}
	if r.Video != nil && r.Video.URL != "" {
		out.Video = *r.Video
	} else {
		out.Video = File{URL: r.URL}
	}
	return out
}
