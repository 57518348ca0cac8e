package handler

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"propchat/internal/config"
	"propchat/internal/observability"
	"propchat/internal/service"
)

// BuildInfo is reported by /health and /version
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// NewRouter wires middleware and every route onto a fresh gin engine
func NewRouter(
	cfg *config.ServerConfig,
	searchService *service.SearchService,
	registry *prometheus.Registry,
	logger zerolog.Logger,
	build BuildInfo,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), observability.GinMetrics(), observability.GinLogger(logger))

	corsConfig := cors.DefaultConfig()
	origins := splitList(cfg.AllowedOrigins)
	if len(origins) == 0 || slices.Contains(origins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	corsConfig.AllowMethods = splitList(cfg.AllowedMethods)
	corsConfig.AllowHeaders = splitList(cfg.AllowedHeaders)
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "OK",
			"message":    "Property search API is running",
			"version":    build.Version,
			"git_commit": build.GitCommit,
		})
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    build.Version,
			"build_time": build.BuildTime,
			"git_commit": build.GitCommit,
		})
	})

	if registry != nil {
		router.GET("/metrics", gin.WrapH(observability.MetricsHandler(registry)))
	}

	chatHandler := NewChatHandler(searchService)
	savedHandler := NewSavedHandler(searchService)
	feedbackHandler := NewFeedbackHandler(searchService)

	api := router.Group("/api")
	{
		api.POST("/chat", chatHandler.Chat)
		api.POST("/chat/stream", chatHandler.ChatStream)

		api.POST("/save-property", savedHandler.Save)
		api.DELETE("/save-property/:propertyId", savedHandler.Delete)
		api.GET("/saved", savedHandler.List)

		api.POST("/feedback", feedbackHandler.Submit)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Route not found",
			"path":  c.Request.URL.Path,
		})
	})

	return router
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
