package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/SlpAus/multiworld-tracker-backend/api"
	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/config"
	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/database"
	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/health"
	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/shutdown"
	"github.com/SlpAus/multiworld-tracker-backend/internal/platform/startup"
	"github.com/SlpAus/multiworld-tracker-backend/pkg/lifecycle"
	"github.com/SlpAus/multiworld-tracker-backend/pkg/token"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("加载配置失败: %v", err))
	}

	token.InitProcessor(cfg.Token.Secret, cfg.Token.Issuer,
		time.Duration(cfg.Token.ValidityDays)*24*time.Hour)
	database.InitDB(cfg.Database.Sqlite)
	database.InitRedis(cfg.Database.Redis)

	// 后台任务共用的生命周期管理器，停机时统一广播和等待
	manager := lifecycle.NewManager()

	if err := startup.InitializeApplication(manager); err != nil {
		panic(fmt.Sprintf("应用初始化失败，无法启动: %v", err))
	}

	// 阻塞式执行一次启动后健康检查，再转入后台巡检
	fmt.Println("正在执行启动后健康检查...")
	health.PerformCheck()
	healthHandle := manager.NewServiceHandle("redis-health-check")
	go func() {
		defer healthHandle.Close()
		health.StartRedisHealthCheck(healthHandle.Ctx())
	}()

	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Api-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(r)

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	go func() {
		fmt.Printf("服务器已准备就绪，开始监听 %s\n", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic("Failed to start server: " + err.Error())
		}
	}()

	coordinator := shutdown.NewCoordinator(manager)
	coordinator.ListenForSignalsAndShutdown(server)
}
