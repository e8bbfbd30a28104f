package fal

import "strings"

// Kind groups endpoints by what they produce from what.
type Kind string

const (
	KindTextToImage       Kind = "text-to-image"
	KindImageToImage      Kind = "image-to-image"
	KindUpscale           Kind = "upscale"
	KindBackgroundRemoval Kind = "background-removal"
	KindTextToVideo       Kind = "text-to-video"
	KindImageToVideo      Kind = "image-to-video"
	KindImageEdit         Kind = "image-edit"
)

// Endpoint is one hosted model on the provider.
type Endpoint struct {
	Key         string `json:"key"`
	Path        string `json:"endpoint"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Kind        Kind   `json:"kind"`
}

var registry = []Endpoint{
	{"FLUX_DEV", "fal-ai/flux/dev", "FLUX Dev", "Fast, high-quality image generation", KindTextToImage},
	{"FLUX_PRO", "fal-ai/flux-pro/v1.1-ultra", "FLUX Pro", "Premium quality with advanced features", KindTextToImage},
	{"IMAGEN_4", "fal-ai/imagen4/preview", "Imagen 4", "Google's latest image generation model", KindTextToImage},
	{"IDEOGRAM", "fal-ai/ideogram/v3", "Ideogram v3", "Excellent for text and graphics", KindTextToImage},

	{"FLUX_DEV", "fal-ai/flux/dev/image-to-image", "FLUX Dev Image to Image", "Restyle an existing image from a prompt", KindImageToImage},
	{"IMAGEN_4_EDIT", "fal-ai/imagen4/preview/edit", "Imagen 4 Edit", "Prompted edits with Imagen 4", KindImageToImage},

	{"CREATIVE_UPSCALE", "fal-ai/creative-upscaler", "Creative Upscaler", "Upscale while adding detail", KindUpscale},
	{"REAL_ESRGAN", "fal-ai/real-esrgan", "Real-ESRGAN", "Faithful upscaling", KindUpscale},

	{"BIREFNET", "fal-ai/birefnet", "BiRefNet", "Background removal", KindBackgroundRemoval},

	{"HAILUO", "fal-ai/minimax/video-01", "Hailuo", "MiniMax video generation", KindTextToVideo},
	{"KLING", "fal-ai/kling-video/v1/standard/text-to-video", "Kling", "Kling text to video", KindTextToVideo},
	{"LUMA", "fal-ai/luma-dream-machine", "Luma Dream Machine", "Luma text to video", KindTextToVideo},
	{"WAN_T2V", "fal-ai/wan-t2v", "Wan", "Wan text to video", KindTextToVideo},

	{"HAILUO", "fal-ai/minimax/video-01/image-to-video", "Hailuo", "Animate an image with MiniMax", KindImageToVideo},
	{"KLING", "fal-ai/kling-video/v1/standard/image-to-video", "Kling", "Animate an image with Kling", KindImageToVideo},
	{"LUMA", "fal-ai/luma-dream-machine/image-to-video", "Luma Dream Machine", "Animate an image with Luma", KindImageToVideo},
	{"WAN_I2V", "fal-ai/wan-i2v", "Wan", "Animate an image with Wan", KindImageToVideo},

	{"QWEN", "fal-ai/qwen-image-edit", "Qwen Image Edit", "Instruction based image editing", KindImageEdit},
}

// Default endpoint keys per kind, used when a request names no model.
var defaults = map[Kind]string{
	KindTextToImage:       "FLUX_DEV",
	KindImageToImage:      "FLUX_DEV",
	KindUpscale:           "CREATIVE_UPSCALE",
	KindBackgroundRemoval: "BIREFNET",
	KindImageEdit:         "QWEN",
}

// Lookup resolves a model key (case-insensitive) or a full endpoint path for
// kind. An empty name selects the kind's default, if it has one.
func Lookup(kind Kind, name string) (Endpoint, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		def, ok := defaults[kind]
		if !ok {
			return Endpoint{}, false
		}
		name = def
	}

	for _, ep := range registry {
		if ep.Kind != kind {
			continue
		}
		if strings.EqualFold(ep.Key, name) || ep.Path == name {
			return ep, true
		}
	}
	return Endpoint{}, false
}

// Endpoints lists the registry for kind, or every endpoint when kind is "".
func Endpoints(kind Kind) []Endpoint {
	out := make([]Endpoint, 0, len(registry))
	for _, ep := range registry {
		if kind == "" || ep.Kind == kind {
			out = append(out, ep)
		}
	}
	return out
}
