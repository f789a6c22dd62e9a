package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Brownie44l1/zeroshot-api/internal/handlers"
	"github.com/Brownie44l1/zeroshot-api/internal/middleware"
)

// Setup creates and configures the Gin router
func Setup(h *handlers.Handler, logger *zap.Logger, maxUploadBytes int64) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = maxUploadBytes

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	router.GET("/health", h.Health)
	router.POST("/classify-text", h.ClassifyText)
	router.POST("/classify-image", h.ClassifyImage)

	return router
}
