package router

import (
	"boardsync.app/mirror/internal/http/handler/webhook"
	"github.com/gin-gonic/gin"
)

func WebhookRouter(router *gin.RouterGroup, handler *webhook.YouGileWebhookHandler) {
	router.POST("/yougile", handler.HandleEvent)
}
