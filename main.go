package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"reelforge-backend/internal/config"
	"reelforge-backend/internal/handler"
	"reelforge-backend/internal/service"
	"reelforge-backend/internal/svc"

	"github.com/joho/godotenv"
	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/rest"
)

var configFile = flag.String("f", "etc/reelforge-backend.yaml", "the config file")

func main() {
	_ = godotenv.Load()
	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)

	server := rest.MustNewServer(c.RestConf)
	defer server.Stop()

	ctx := svc.NewServiceContext(c)
	handler.RegisterHandlers(server, ctx)

	// 启动对账工作者
	if err := ctx.ReconcileService.StartWorkers(context.Background()); err != nil {
		log.Printf("启动对账工作者失败: %v", err)
	} else {
		log.Println("对账工作者已启动")
	}

	// 启动定时清理服务
	cleanupService := service.NewCleanupService(ctx.PipelineService, ctx.PublishService)
	cleanupService.StartCleanupScheduler(context.Background())

	fmt.Printf("Starting server at %s:%d...\n", c.Host, c.Port)
	server.Start()
}
