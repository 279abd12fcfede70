package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterDeps struct {
	Chat   *ChatHandler
	Health *HealthHandler
}

func RegisterRoutes(router *gin.Engine, deps RouterDeps) {
	router.GET("/", deps.Health.Home)
	router.GET("/health", deps.Health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.POST("/chat", deps.Chat.Stream)
}
