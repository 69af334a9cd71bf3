package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bphcerp/BPHC-Dept-IMS-sub001/config"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/api/handler"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/api/router"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/repository"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/internal/service"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/database"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/events"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/jwt"
	applogger "github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/logger"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/mailer"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/metrics"
	"github.com/bphcerp/BPHC-Dept-IMS-sub001/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("PHD_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("direct_flow_default", cfg.Workflow.DirectFlow),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var (
		rdb   *redis.Client
		cache service.PermissionCache
	)
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单、限流与权限缓存将不可用", zap.Error(err))
		rdb = nil
	} else {
		cache = rdb
	}

	// 5. 外部协作方：邮件 / 事件 / 指标 / 文件
	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Events.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.Topic)
		if err != nil {
			logger.Fatal("初始化 Kafka 发布者失败", zap.Error(err))
		}
		publisher = kp
	}
	m := metrics.New()

	// 6. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 7. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, service.Deps{
		Mailer:    mailer.New(&cfg.Mail, logger),
		Files:     service.NewLocalFileStore(cfg.Storage.UploadDir),
		Publisher: publisher,
		Metrics:   m,
		Cache:     cache,
	}, logger)
	h := handler.NewHandler(svc)

	// 8. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, m, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if err := publisher.Close(); err != nil {
		logger.Warn("关闭 Kafka 发布者异常", zap.Error(err))
	}

	// 关闭数据库连接
	if sqlDB != nil {
		sqlDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
