// TradingService 主程序
// 功能：账户查询、报价、下单（幂等、统一事务、执行失败留痕）与下单前校验
// 架构：DDD 分层 + gin HTTP + gRPC 健康检查 + Kafka 订单事件
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/wyfcoding/tradeportal/internal/trading/application"
	"github.com/wyfcoding/tradeportal/internal/trading/domain"
	"github.com/wyfcoding/tradeportal/internal/trading/infrastructure/exchange"
	"github.com/wyfcoding/tradeportal/internal/trading/infrastructure/messaging"
	"github.com/wyfcoding/tradeportal/internal/trading/infrastructure/persistence/mysql"
	quotecache "github.com/wyfcoding/tradeportal/internal/trading/infrastructure/persistence/redis"
	grpcserver "github.com/wyfcoding/tradeportal/internal/trading/interfaces/grpc"
	httphandler "github.com/wyfcoding/tradeportal/internal/trading/interfaces/http"
	"github.com/wyfcoding/tradeportal/pkg/cache"
	"github.com/wyfcoding/tradeportal/pkg/config"
	"github.com/wyfcoding/tradeportal/pkg/db"
	"github.com/wyfcoding/tradeportal/pkg/logger"
	"github.com/wyfcoding/tradeportal/pkg/metrics"
	"github.com/wyfcoding/tradeportal/pkg/middleware"
	"github.com/wyfcoding/tradeportal/pkg/mq"
	"github.com/wyfcoding/tradeportal/pkg/ratelimit"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "configs/trading/config.toml", "path to config file")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	loggerCfg := logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}
	if err := logger.Init(loggerCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger.Info(ctx, "Starting TradingService",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
	)

	// 3. 初始化数据库
	dbCfg := db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	}
	database, err := db.Init(dbCfg)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize database", "error", err)
	}
	defer database.Close()

	if cfg.Database.AutoMigrate {
		if err := mysql.AutoMigrate(database.DB); err != nil {
			logger.Fatal(ctx, "Failed to migrate database", "error", err)
		}
	}
	if cfg.Database.SeedDemoData {
		if err := mysql.SeedDemoData(ctx, database.DB, time.Now().UTC()); err != nil {
			logger.Fatal(ctx, "Failed to seed demo data", "error", err)
		}
	}

	// 4. 初始化指标
	reg := prometheus.NewRegistry()
	m := metrics.New(cfg.ServiceName)
	if err := m.Register(reg); err != nil {
		logger.Fatal(ctx, "Failed to register metrics", "error", err)
	}

	// 5. 初始化交易所客户端
	stub, err := exchange.NewStubClient(exchange.StubConfig{
		NodeID:        cfg.Exchange.NodeID,
		RejectSymbols: cfg.Exchange.RejectSymbols,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize exchange client", "error", err)
	}
	pricing := exchange.NewBreakerClient(stub, exchange.BreakerConfig{
		FailureThreshold: cfg.Exchange.BreakerFailureThreshold,
		OpenTimeout:      time.Duration(cfg.Exchange.BreakerOpenSeconds) * time.Second,
	}, m)

	// 6. 初始化 Redis（报价缓存与限流）
	var quotes domain.PricingPort = pricing
	var orderMiddleware []gin.HandlerFunc
	if cfg.Redis.Enabled {
		redisCache, err := cache.New(cache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxPoolSize:  cfg.Redis.MaxPoolSize,
			ConnTimeout:  cfg.Redis.ConnTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			logger.Fatal(ctx, "Failed to initialize Redis", "error", err)
		}
		defer redisCache.Close()

		ttl := time.Duration(cfg.Trading.QuoteCacheTTLSeconds) * time.Second
		quotes = quotecache.NewQuoteCache(pricing, redisCache, ttl)

		if cfg.RateLimit.Enabled {
			limiter := ratelimit.NewRedisRateLimiter(redisCache.GetClient())
			orderMiddleware = append(orderMiddleware, middleware.RateLimitMiddleware(limiter, ratelimit.Limit{
				Rate:   cfg.RateLimit.QPS,
				Period: time.Second,
				Burst:  cfg.RateLimit.Burst,
			}))
		}
	}

	// 7. 初始化事件发布
	var publisher domain.EventPublisher = messaging.LogPublisher{}
	if cfg.Kafka.Enabled {
		producer := mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		defer producer.Close()
		publisher = messaging.NewKafkaPublisher(producer, cfg.Kafka.Topic)
	}

	// 8. 初始化应用服务
	svc := application.NewTradingService(application.Dependencies{
		Accounts:   mysql.NewAccountRepository(database.DB),
		Orders:     mysql.NewOrderRepository(database.DB),
		UnitOfWork: mysql.NewUnitOfWork(database.DB, cfg.Database.Isolation),
		Pricing:    pricing,
		Quotes:     quotes,
		Publisher:  publisher,
		Metrics:    m,
		Engine: application.EngineConfig{
			PriceTimeout:   cfg.Exchange.PriceTimeout(),
			ExecuteTimeout: cfg.Exchange.ExecuteTimeout(),
		},
		MaxQuantity: cfg.Trading.MaxQuantity,
	})

	// 9. 创建 HTTP 服务器
	httpServer := createHTTPServer(cfg, svc, m, reg, orderMiddleware)

	// 10. 启动服务并等待退出信号
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info(gctx, "Starting HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	var healthServer *grpcserver.HealthServer
	if cfg.GRPC.Enabled {
		healthServer = grpcserver.NewHealthServer(cfg.ServiceName, database.Ping, 10*time.Second)
		addr := fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Fatal(ctx, "Failed to listen on gRPC address", "error", err)
		}
		g.Go(func() error {
			healthServer.Watch(gctx)
			return nil
		})
		g.Go(func() error {
			logger.Info(gctx, "Starting gRPC server", "addr", addr)
			return healthServer.Server().Serve(listener)
		})
	}

	// 11. 优雅关停
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(ctx, "Shutting down TradingService")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, "HTTP server shutdown error", "error", err)
		}
		if healthServer != nil {
			healthServer.Server().GracefulStop()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error(ctx, "TradingService exited with error", "error", err)
		return
	}
	logger.Info(ctx, "TradingService stopped")
}

// createHTTPServer 创建 HTTP 服务器
func createHTTPServer(cfg *config.Config, svc *application.TradingService, m *metrics.Metrics, reg *prometheus.Registry, orderMiddleware []gin.HandlerFunc) *http.Server {
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// 添加中间件
	router.Use(middleware.GinLoggingMiddleware())
	router.Use(middleware.GinRecoveryMiddleware())
	router.Use(middleware.GinCORSMiddleware())
	router.Use(middleware.GinMetricsMiddleware(m))

	// 注册路由
	httphandler.NewTradingHandler(svc, cfg.Trading.MaxQuantity).RegisterRoutes(router, orderMiddleware...)

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler(reg)))
	}

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
}
