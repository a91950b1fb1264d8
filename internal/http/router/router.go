package router

import (
	"boardsync.app/mirror/internal/http/handler/webhook"
	"boardsync.app/mirror/internal/service"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	WebhookSecret string
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	yougileHandler := webhook.NewYouGileWebhookHandler(services.Ingest(), cfg.WebhookSecret)
	WebhookRouter(router.Group("/webhook"), yougileHandler)
}
