package main

import (
	_ "taskflow/docs"
	"taskflow/internal/config"
	"taskflow/internal/logger"
	"taskflow/internal/server"
)

// @title           TaskFlow API
// @version         1.0
// @description     Boards, tasks, assignments and live change events.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @schemes http
func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	s, err := server.Init(cfg, log)
	if err != nil {
		log.Fatalf("server initialization failed: %v", err)
	}

	s.Run()
}
