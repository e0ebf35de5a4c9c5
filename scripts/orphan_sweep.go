// 手动触发孤儿资产清理脚本
//
// 该功能已集成到主应用的后台定时任务中（按 video_host.cleanup_period_minutes 周期执行）。
// 此脚本仅用于手动触发，例如托管方故障恢复后批量补删。
//
// 用法: go run scripts/orphan_sweep.go

package main

import (
	"context"
	"log"
	"os"

	"course_market_backend/internal/config"
	"course_market_backend/internal/repository"
	"course_market_backend/internal/service"
	"course_market_backend/pkg/database"
	"course_market_backend/pkg/logger"

	"gopkg.in/yaml.v3"
)

func main() {
	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	logger.InitLogger(&cfg)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	storage, err := service.NewStorageService(&cfg)
	if err != nil {
		log.Fatalf("初始化存储失败: %v", err)
	}
	host := service.NewHTTPVideoHost(cfg.VideoHost)
	cleanup := service.NewCleanupService(repository.NewOrphanAssetRepository(db), storage, host)

	log.Println("手动触发孤儿资产清理...")
	deleted := cleanup.RetryParked(context.Background(), 1000)
	log.Printf("完成！本轮删除 %d 个资产", deleted)
}
