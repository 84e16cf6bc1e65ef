package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dymeta/config"
	"dymeta/controller"
	"dymeta/middleware"
)

func MetaAPI() *gin.Engine {
	router := gin.Default()
	// public
	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	router.POST("/auth/register", controller.Register)
	router.POST("/auth/login", controller.Login)
	// ws握手带不了自定义头，进度订阅走公开路由
	router.GET("/connect/runs/:run_id", controller.ConnectRun)

	// protected
	auth := router.Group("/api",
		middleware.RequestAuthMiddleware(),
		middleware.AuthMiddleware(config.Get().JWTSecret))
	{
		auth.GET("/me", controller.GetProfile)
		auth.POST("/enrich/runs", controller.StartRun)
		auth.GET("/enrich/runs", controller.ListRuns)
		auth.GET("/enrich/runs/:run_id", controller.GetRun)
		auth.POST("/enrich/runs/:run_id/cancel", controller.CancelRun)
		auth.POST("/enrich/fetch", controller.FetchOne)
	}
	return router
}
