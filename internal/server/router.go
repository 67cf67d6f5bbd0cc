package server

import (
  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"
  "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

  "github.com/yungbote/jenny-backend/internal/handlers"
  "github.com/yungbote/jenny-backend/internal/middleware"
)

type RouterConfig struct {
  AskHandler      *handlers.AskHandler
  CalendarHandler *handlers.CalendarHandler
  TwilioHandler   *handlers.TwilioHandler
  DemoHandler     *handlers.DemoHandler
  AuthMiddleware  *middleware.AuthMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()
  router.Use(otelgin.Middleware("jenny-backend"))

  // Cors
  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:80",
      "http://localhost:3000",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

// ===============
// || Public    ||
// ===============
  router.GET("/health", handlers.HealthCheck)
  // Provider redirects and channel webhooks cannot carry our bearer token.
  router.GET("/calendar/connect/:provider", cfg.CalendarHandler.Connect)
  router.GET("/calendar/oauth/callback", cfg.CalendarHandler.OAuthCallback)
  if cfg.TwilioHandler != nil {
    router.POST("/webhook/twilio", cfg.TwilioHandler.Webhook)
  }

// ===============
// || Protected ||
// ===============
  protected := router.Group("/")
  protected.Use(cfg.AuthMiddleware.RequireAuth())
  protected.POST("/ask", cfg.AskHandler.Ask)
  protected.GET("/calendar/events", cfg.CalendarHandler.Events)
  if cfg.DemoHandler != nil {
    protected.POST("/demo/remember", cfg.DemoHandler.Remember)
    protected.GET("/demo/search", cfg.DemoHandler.Search)
  }

  return router
}
