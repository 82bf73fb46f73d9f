package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/image-watermark/internal/http/handlers"
	"github.com/phambaophuc/image-watermark/internal/http/middleware"
	"go.uber.org/zap"
)

const (
	multipartForm = "multipart/form-data"
	jsonBody      = "application/json"
)

type Router struct {
	watermarkHandler *handlers.WatermarkHandler
	logger           *zap.Logger
}

func NewRouter(
	watermarkHandler *handlers.WatermarkHandler,
	logger *zap.Logger,
) *Router {
	return &Router{
		watermarkHandler: watermarkHandler,
		logger:           logger,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.ErrorHandler(r.logger))
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())

	// API version 1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", r.watermarkHandler.HealthCheck)
		v1.GET("/stats", r.watermarkHandler.GetStats)

		wm := v1.Group("/watermark")
		{
			form := middleware.ValidateContentType(multipartForm)

			wm.POST("", form, r.watermarkHandler.Embed)
			wm.POST("/params", form, r.watermarkHandler.Params)
			wm.POST("/upload", form, r.watermarkHandler.Upload)
			wm.POST("/batch", form, r.watermarkHandler.Batch)

			wm.POST("/jobs", middleware.ValidateContentType(jsonBody), r.watermarkHandler.CreateJob)
			wm.GET("/jobs/:id", r.watermarkHandler.GetJob)
		}
	}

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "OK",
			"message": "Image watermarking is running",
		})
	})

	return router
}
