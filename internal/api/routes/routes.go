package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yoockh/doclingate/internal/api/handlers"
	"github.com/yoockh/doclingate/internal/api/middleware"
)

type Deps struct {
	Convert *handlers.ConvertHandler
	History *handlers.HistoryHandler
	WS      *handlers.WSHandler
	System  *handlers.SystemHandler
	Auth    gin.HandlerFunc // defaults to middleware.JWTAuth()
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", d.System.Ping)

	authMW := d.Auth
	if authMW == nil {
		authMW = middleware.JWTAuth()
	}

	// Protected routes (JWT)
	api := r.Group("/api", authMW)

	dl := api.Group("/docling")
	dl.POST("/convert", d.Convert.Convert)
	dl.POST("/convert/file", d.Convert.ConvertFile)
	dl.POST("/convert/source", d.Convert.ConvertSource)
	dl.POST("/convert/source/async", d.Convert.ConvertSourceAsync)
	dl.GET("/status/poll/:task_id", d.Convert.PollStatus)
	dl.GET("/result/:task_id", d.Convert.Result)

	api.GET("/history", d.History.List)
	api.GET("/history/:id", d.History.Get)
	api.GET("/history/:id/download", d.History.Download)
	api.DELETE("/history/:id", d.History.Delete)

	api.GET("/me", d.System.Me)
	api.GET("/admin/features", middleware.RequireAdmin(), d.System.Features)

	// WebSocket
	r.GET("/ws/tasks/:task_id", authMW, d.WS.TaskWS)
}
