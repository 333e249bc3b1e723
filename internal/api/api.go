// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/cra-planner/internal/api/handlers"
	"github.com/andresuchdata/cra-planner/internal/api/middleware"
)

// maxUploadMemory bounds the multipart form held in memory; larger uploads
// spill to temp files.
const maxUploadMemory = 32 << 20

type Services struct {
	Planner handlers.Planner
	// Metrics serves the Prometheus exposition format. Optional.
	Metrics http.Handler
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = maxUploadMemory

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", handlers.RunIDHeader, middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if services == nil {
		return router
	}

	if services.Metrics != nil {
		router.GET("/metrics", gin.WrapH(services.Metrics))
	}

	if services.Planner != nil {
		h := handlers.NewReportHandler(services.Planner)
		apiGroup := router.Group("/api/v1")
		{
			apiGroup.GET("/warehouses", h.ListWarehouses)
			apiGroup.POST("/inventory/refresh", h.RefreshInventory)
			apiGroup.POST("/reports", h.GenerateReport)

			runs := apiGroup.Group("/runs")
			{
				runs.GET("", h.ListRuns)
				runs.GET("/:id", h.GetRun)
			}

			archive := apiGroup.Group("/archive")
			{
				archive.GET("", h.ListArchive)
				archive.GET("/download", h.DownloadArchived)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
