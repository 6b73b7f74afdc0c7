package main

import (
	"fmt"
	"log"

	"github.com/dozyo/internal/config"
	"github.com/dozyo/internal/db"
)

// 初始化演示账号，便于本地体验：存在则跳过
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatal("配置加载失败:", err)
	}

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	if err := db.EnsureUser("demo@dozyo.app", "demo12345"); err != nil {
		log.Fatal("创建演示用户失败:", err)
	}

	fmt.Println("演示账号就绪: demo@dozyo.app / demo12345")
}
