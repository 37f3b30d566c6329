package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskflow/internal/access"
	"taskflow/internal/auth"
	"taskflow/internal/config"
	"taskflow/internal/events"
	"taskflow/internal/handler"
	"taskflow/internal/middleware"
	"taskflow/internal/repository"
	"taskflow/internal/service"
	"taskflow/internal/sweeper"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

type Server struct {
	Engine  *gin.Engine
	DB      *gorm.DB
	Config  *config.Config
	Bus     *events.Bus
	Sweeper *sweeper.Sweeper

	redis *redis.Client
	log   *logrus.Logger
}

// Handlers are the route targets mounted by NewEngine.
type Handlers struct {
	Users   *handler.UserHandler
	Boards  *handler.BoardHandler
	Tasks   *handler.TaskHandler
	Streams *handler.StreamHandler
}

func Init(cfg *config.Config, log *logrus.Logger) (*Server, error) {
	db, err := OpenDB(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := repository.AutoMigrate(db); err != nil {
		return nil, err
	}

	rdb, err := OpenRedis(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}
	store, err := NewCacheStore(cfg, rdb, log)
	if err != nil {
		return nil, err
	}
	broker := NewBroker(rdb, cfg, log)
	bus := NewBus(broker, cfg, log)

	repos := repository.NewStore(db)
	boardService := service.NewBoardService(repos, store, log)
	taskService := service.NewTaskService(repos, store, bus, log)
	guard := access.NewGuard(repos.Repositories().Boards, repos.Repositories().Tasks, log)

	h := Handlers{
		Users:   handler.NewUserHandler(repos.Repositories().Users, auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiry), log),
		Boards:  handler.NewBoardHandler(boardService, log),
		Tasks:   handler.NewTaskHandler(taskService, log),
		Streams: handler.NewStreamHandler(broker, guard, repos.Repositories().Users, log),
	}

	var sw *sweeper.Sweeper
	if cfg.SweepEnabled {
		sw = sweeper.New(repos.Repositories().Tasks, repos.Repositories().Users, bus, cfg.SweepInterval, log)
	}

	return &Server{
		Engine:  NewEngine(h, cfg.JWTSecret, log),
		DB:      db,
		Config:  cfg,
		Bus:     bus,
		Sweeper: sw,
		redis:   rdb,
		log:     log,
	}, nil
}

func NewEngine(h Handlers, jwtSecret string, log logrus.FieldLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	// Public routes
	r.GET("/health", handler.Health)
	r.POST("/register", h.Users.Register)
	r.POST("/login", h.Users.Login)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(jwtSecret))
	{
		// Board routes
		authorized.GET("/boards", h.Boards.GetAll)
		authorized.POST("/boards", h.Boards.Create)
		authorized.PUT("/boards/:id", h.Boards.Update)
		authorized.DELETE("/boards/:id", h.Boards.Delete)
		authorized.GET("/boards/:id/events", h.Streams.BoardEvents)

		// Task routes
		authorized.GET("/tasks", h.Tasks.GetByBoard)
		authorized.POST("/tasks", h.Tasks.Create)
		authorized.GET("/tasks/:id", h.Tasks.GetByID)
		authorized.PUT("/tasks/:id", h.Tasks.Update)
		authorized.PATCH("/tasks/:id", h.Tasks.Patch)
		authorized.DELETE("/tasks/:id", h.Tasks.Delete)
		authorized.PATCH("/tasks/:id/assign", h.Tasks.Assign)

		authorized.GET("/notifications/stream", h.Streams.Notifications)
	}
	return r
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("request")
	}
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: s.Engine,
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	if s.Sweeper != nil {
		go s.Sweeper.Start(ctx)
	}

	go func() {
		s.log.Infof("server running on port %s", s.Config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Fatalf("failed to listen: %s", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	s.log.Info("shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("server forced to shutdown: %s", err)
	}

	s.Bus.Close()
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	s.log.Info("server exited properly")
}
