package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"soyeon/controllers"
	"soyeon/middlewares"
)

func SetupRouter(chat *controllers.ChatController, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.Logger(logger))
	r.Use(middlewares.CORS())

	r.GET("/", chat.Index)
	r.GET("/healthz", chat.Health)

	// チャットセッション
	r.POST("/chat/sessions", chat.CreateSession)
	r.DELETE("/chat/sessions/:id", chat.DeleteSession)
	r.GET("/chat/sessions/:id/messages", chat.GetMessages)
	r.POST("/chat/sessions/:id/messages", chat.PostMessage)
	r.GET("/chat/sessions/:id/ws", chat.ChatSocket)

	// 保存された記憶
	r.GET("/chat/memory", chat.GetMemory)

	return r
}
