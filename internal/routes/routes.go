package routes

import (
	"net/http"

	"github.com/01moynul/palett-api/internal/handlers"
	"github.com/01moynul/palett-api/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Options are the router-level settings.
type Options struct {
	CORSOrigin            string
	UploadDir             string
	GenerateRatePerMinute int
	GenerateBurst         int
}

func SetupRouter(h *handlers.Handlers, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLog(h.Log))

	// CORS must run before anything that can abort.
	router.Use(middleware.CORS(opts.CORSOrigin))

	// Uploaded images are public so the provider can fetch them.
	router.Static("/uploads", opts.UploadDir)

	authRequired := middleware.Auth(h.Tokens)
	limiter := middleware.NewAccountRateLimiter(opts.GenerateRatePerMinute, opts.GenerateBurst)

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		v1.POST("/auth/register", h.Register)
		v1.POST("/auth/login", h.Login)

		// --- Catalog Routes (Public) ---
		v1.GET("/billing/plans", h.GetBillingPlans)
		v1.GET("/models", h.GetModels)
		v1.GET("/credits/costs", h.GetCosts)

		// --- Protected Routes (Login Required) ---
		protected := v1.Group("")
		protected.Use(authRequired)
		{
			protected.GET("/me", h.Me)

			protected.GET("/credits", h.GetCredits)
			protected.GET("/credits/usage", h.GetUsage)
			protected.GET("/dashboard/stats", h.GetDashboardStats)

			protected.GET("/gallery", h.GetGallery)
			protected.GET("/gallery/:id", h.GetGalleryItem)
			protected.DELETE("/gallery/:id", h.DeleteGalleryItem)

			protected.POST("/uploads", h.UploadImage)

			protected.POST("/assist/prompt", limiter.Limit(), h.EnhancePrompt)
		}

		// --- Generation Routes (paid, rate limited) ---
		generate := v1.Group("/generate")
		generate.Use(authRequired, limiter.Limit())
		{
			generate.POST("/text-to-image", h.TextToImage)
			generate.POST("/image-to-image", h.ImageToImage)
			generate.POST("/upscale", h.Upscale)
			generate.POST("/background-removal", h.RemoveBackground)
			generate.POST("/text-to-video", h.TextToVideo)
			generate.POST("/image-to-video", h.ImageToVideo)
			generate.POST("/image-edit", h.EditImage)
			generate.POST("/batch", h.Batch)
		}

		// --- Admin-Only Routes ---
		admin := v1.Group("/admin")
		admin.Use(authRequired, middleware.RequireAdmin())
		{
			admin.POST("/accounts/:id/credits", h.AdminAddCredits)
		}
	}

	return router
}
