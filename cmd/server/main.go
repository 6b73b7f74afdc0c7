package main

import (
	"log"

	"github.com/dozyo/internal/config"
	"github.com/dozyo/internal/db"
	"github.com/dozyo/internal/handler"
	"github.com/dozyo/internal/router"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := config.InitLogger(); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		config.Logger.Fatalf("failed to initialize database: %v", err)
	}

	// 设置并运行 Gin 服务器
	api := handler.NewAPI(db.DB, cfg)
	r := router.SetupRouter(api, cfg.SessionSecret)

	config.Logger.Infof("dozyo listening on %s", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		config.Logger.Fatalf("failed to run server: %v", err)
	}
}
