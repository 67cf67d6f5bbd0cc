package main

import (
  "context"
  "fmt"
  "os"
  "time"

  "github.com/yungbote/jenny-backend/internal/agents"
  "github.com/yungbote/jenny-backend/internal/calendar"
  "github.com/yungbote/jenny-backend/internal/clients/gcp"
  "github.com/yungbote/jenny-backend/internal/clients/openai"
  "github.com/yungbote/jenny-backend/internal/clients/pinecone"
  redisclient "github.com/yungbote/jenny-backend/internal/clients/redis"
  "github.com/yungbote/jenny-backend/internal/clients/twilio"
  "github.com/yungbote/jenny-backend/internal/db"
  "github.com/yungbote/jenny-backend/internal/graph"
  "github.com/yungbote/jenny-backend/internal/handlers"
  "github.com/yungbote/jenny-backend/internal/logger"
  "github.com/yungbote/jenny-backend/internal/memory"
  "github.com/yungbote/jenny-backend/internal/middleware"
  "github.com/yungbote/jenny-backend/internal/observability"
  "github.com/yungbote/jenny-backend/internal/platform/neo4jdb"
  "github.com/yungbote/jenny-backend/internal/repos"
  "github.com/yungbote/jenny-backend/internal/router"
  "github.com/yungbote/jenny-backend/internal/scheduler"
  "github.com/yungbote/jenny-backend/internal/server"
  "github.com/yungbote/jenny-backend/internal/services"
  "github.com/yungbote/jenny-backend/internal/session"
  "github.com/yungbote/jenny-backend/internal/utils"
)

func main() {
  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Tracing (opt-in)
  shutdownOtel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
    ServiceName: "jenny-backend",
    Environment: utils.GetEnv("APP_ENV", "development", log),
    Version:     utils.GetEnv("APP_VERSION", "dev", log),
  })
  if shutdownOtel != nil {
    defer func() {
      ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
      defer cancel()
      _ = shutdownOtel(ctx)
    }()
  }

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Error("Postgres auto migration failed", "error", err)
    os.Exit(1)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  taskRepo := repos.NewTaskRepo(thePG, log)
  profileRepo := repos.NewProfileRepo(thePG, log)
  memoryRepo := repos.NewMemoryRepo(thePG, log)
  calendarAccountRepo := repos.NewCalendarAccountRepo(thePG, log)
  eventCacheRepo := repos.NewEventCacheRepo(thePG, log)

  // Redis (sessions + scheduler durability)
  redisClient, err := redisclient.NewClient(log)
  if err != nil {
    log.Error("Could not init Redis", "error", err)
    os.Exit(1)
  }

  // OpenAI
  openaiClient, err := openai.NewClient(log)
  if err != nil {
    log.Error("Could not init OpenAIClient", "error", err)
    os.Exit(1)
  }

  // Pinecone
  pineconeClient, err := pinecone.New(log, pinecone.Config{APIKey: os.Getenv("PINECONE_API_KEY")})
  if err != nil {
    log.Error("Could not init PineconeClient", "error", err)
    os.Exit(1)
  }
  vectorStore, err := pinecone.NewVectorStore(log, pineconeClient)
  if err != nil {
    log.Error("Could not init VectorStore", "error", err)
    os.Exit(1)
  }

  // Neo4j (optional)
  neo4jClient, err := neo4jdb.NewFromEnv(log)
  if err != nil {
    log.Warn("Neo4j init failed; graph features disabled", "error", err)
    neo4jClient = nil
  }
  graphStore := graph.New(log, neo4jClient)

  // GCP speech/vision (optional)
  var speechClient gcp.Speech
  if sc, err := gcp.NewSpeech(log); err != nil {
    log.Warn("Speech init failed; voice messages disabled", "error", err)
  } else {
    speechClient = sc
  }
  var visionClient gcp.Vision
  if vc, err := gcp.NewVision(log); err != nil {
    log.Warn("Vision init failed; image annotation disabled", "error", err)
  } else {
    visionClient = vc
  }

  // Twilio (optional outbound channel)
  twilioClient, err := twilio.NewFromEnv(log)
  if err != nil {
    log.Warn("Twilio init failed; reminder delivery will be log-only", "error", err)
    twilioClient = nil
  }
  if twilioClient == nil {
    log.Warn("Twilio not configured; reminder delivery will be log-only")
  }

  // Sessions
  sessionStore, err := session.NewStore(log, session.NewRedisKV(redisClient))
  if err != nil {
    log.Error("Could not init SessionStore", "error", err)
    os.Exit(1)
  }

  // Memory
  memoryService, err := memory.NewService(log, memoryRepo, openaiClient, vectorStore)
  if err != nil {
    log.Error("Could not init MemoryService", "error", err)
    os.Exit(1)
  }

  // Scheduler
  jobStore, err := scheduler.NewRedisJobStore(log, redisClient)
  if err != nil {
    log.Error("Could not init JobStore", "error", err)
    os.Exit(1)
  }
  deliver := func(ctx context.Context, job *scheduler.Job) error {
    text := "Reminder: " + job.Message
    if twilioClient != nil {
      _, err := twilioClient.SendSMS(ctx, job.UserID, text)
      return err
    }
    log.Info("Reminder fired (no delivery channel configured)", "user_id", job.UserID, "message", job.Message)
    return nil
  }
  sched, err := scheduler.New(log, jobStore, taskRepo, deliver)
  if err != nil {
    log.Error("Could not init Scheduler", "error", err)
    os.Exit(1)
  }
  if err := sched.ReconcilePending(context.Background()); err != nil {
    log.Warn("Scheduler reconciliation failed", "error", err)
  }
  sched.Start(context.Background())

  // Calendar
  oauthManager, err := calendar.NewOAuthManager(log, calendarAccountRepo)
  if err != nil {
    log.Warn("Calendar OAuth init failed; calendar connections disabled", "error", err)
    oauthManager = nil
  }
  calendarGateway := calendar.NewGateway(log, eventCacheRepo,
    calendar.NewGoogleFactory(log, calendarAccountRepo, oauthManager),
  )

  // Agents + Router
  log.Info("Setting up agents and router from main...")
  roster := []agents.Agent{
    agents.NewMemoryAgent(log, openaiClient, memoryService, graphStore),
    agents.NewTaskAgent(log, openaiClient, taskRepo, sched),
    agents.NewCalendarAgent(log, openaiClient, calendarGateway, oauthManager),
    agents.NewProfileAgent(log, openaiClient, profileRepo, memoryService),
    agents.NewGeneralAgent(log, openaiClient, memoryService),
  }
  messageRouter, err := router.New(log, openaiClient, sessionStore, graphStore, roster...)
  if err != nil {
    log.Error("Could not init Router", "error", err)
    os.Exit(1)
  }

  // Conversation front end
  conversation, err := services.NewConversation(log, messageRouter, speechClient, visionClient)
  if err != nil {
    log.Error("Could not init Conversation", "error", err)
    os.Exit(1)
  }

  // Handlers
  log.Info("Setting up handlers from main...")
  askHandler := handlers.NewAskHandler(log, conversation)
  calendarHandler := handlers.NewCalendarHandler(log, calendarGateway, oauthManager)
  twilioHandler := handlers.NewTwilioHandler(log, conversation)
  var demoHandler *handlers.DemoHandler
  if utils.GetEnvAsBool("DEMO_ROUTES_ENABLED", true, log) {
    demoHandler = handlers.NewDemoHandler(log, memoryService)
  }

  // Middleware
  authMiddleware := middleware.NewAuthMiddleware(log)

  // Router
  log.Info("Setting up router from main...")
  engine := server.NewRouter(server.RouterConfig{
    AskHandler:      askHandler,
    CalendarHandler: calendarHandler,
    TwilioHandler:   twilioHandler,
    DemoHandler:     demoHandler,
    AuthMiddleware:  authMiddleware,
  })

  port := utils.GetEnv("PORT", "8080", log)
  fmt.Printf("Server listening on :%s\n", port)
  if err := engine.Run(":" + port); err != nil {
    log.Error("Server failed", "error", err)
  }
  sched.Stop()
}
