package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TIANLI0/reefmask/backend"
	"github.com/TIANLI0/reefmask/config"
	"github.com/TIANLI0/reefmask/handler"
	"github.com/TIANLI0/reefmask/middleware"
	"github.com/TIANLI0/reefmask/service"
	"github.com/TIANLI0/reefmask/session"
	"github.com/TIANLI0/reefmask/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	BuildID   = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

func main() {
	// 加载配置
	cfg := config.New()

	// 初始化日志
	if err := utils.InitLogger(cfg.Server.Mode, cfg.Log.Level, cfg.Log.Encoding); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.Sync()

	utils.Logger.Info("starting reefmask server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("git_branch", GitBranch))

	// 连接推理后端
	dialCtx, cancel := context.WithTimeout(context.Background(), cfg.Backend.DialTimeout)
	ws, err := backend.Dial(dialCtx, cfg.Backend.URL,
		backend.WithLogger(utils.Logger),
		backend.WithRequestTimeout(cfg.Backend.RequestTimeout))
	cancel()
	if err != nil {
		utils.Logger.Fatal("failed to connect backend", zap.String("url", cfg.Backend.URL), zap.Error(err))
	}
	defer ws.Close()

	// 初始化Redis，不可用时不缓存推理结果
	var client backend.Client = ws
	redisService := service.NewRedisService(&cfg.Redis)
	if err := redisService.Ping(context.Background()); err != nil {
		utils.Logger.Warn("redis connection failed, cache disabled", zap.Error(err))
	} else {
		utils.Logger.Info("redis connected successfully")
		client = backend.NewCached(ws, redisService, utils.Logger)
	}
	defer redisService.Close()

	imageStore := service.NewImageStore(&cfg.Storage)
	geometry := service.NewMaskGeometry()

	manager := session.NewManager(utils.Logger, cfg.Backend.MaxSessions)
	defer manager.Close()

	sessionHandler := handler.NewSessionHandler(manager, func() *session.Session {
		return session.New(cfg, client,
			session.WithLogger(utils.Logger),
			session.WithImageLoader(imageStore),
			session.WithGeometry(geometry),
			session.WithEncoder(imageStore))
	}, imageStore)

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	// 创建路由
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())

	// 健康检查和版本信息
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":   "ok",
			"version":  Version,
			"sessions": manager.Len(),
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"build_id":   BuildID,
			"git_commit": GitCommit,
			"git_branch": GitBranch,
		})
	})

	// API路由
	sessionHandler.Register(r.Group("/api/v1"))

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		utils.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	utils.Logger.Info("shutting down server")
	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Logger.Error("server shutdown failed", zap.Error(err))
	}
	utils.Logger.Info("server stopped")
}
