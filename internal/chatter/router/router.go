package router

import (
	"context"

	"chatter_service/internal/chatter/app"
	"chatter_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 注册路由
// @title Chatter Service API
// @version 1.0
// @description Real-time direct-messaging delivery service
// @host localhost:8080
// @BasePath /
func RegisterRoutes(
	r *fiber.App,
	authHandler *app.AuthHandler,
	queryHandler *app.QueryHandler,
	wsHandler *app.ChatterWebsocketHandler,
) {
	r.Get("/swagger/*", swagger.HandlerDefault)

	r.Post("/register", authHandler.Register)
	r.Post("/login", authHandler.Login)
	r.Post("/logout", authHandler.Logout)

	// 以下路由都需要可解析的 identity
	r.Use(middlewares.JWTMiddleware())

	r.Get("/conversations", queryHandler.Conversations)
	r.Get("/search", queryHandler.Search)
	r.Get("/chat/:username", queryHandler.ChatHistory)

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHandler.HandleConnection(context.Background(), c)
	}))
}
