package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"loterias-bot/internal/api"
	"loterias-bot/internal/cache"
	"loterias-bot/internal/config"
	"loterias-bot/internal/database"
	"loterias-bot/internal/engine"
	"loterias-bot/internal/loader"
	"loterias-bot/internal/logger"
	"loterias-bot/internal/metrics"
	"loterias-bot/internal/scheduler"
	"loterias-bot/internal/telegram"
)

// App 应用程序主结构
type App struct {
	config       *config.Config
	games        []config.Game
	mysql        *database.MySQLDB
	historyCache *cache.HistoryCache
	apiClient    *api.Client
	engine       *engine.Service
	telegramBot  *telegram.Bot
	syncer       *scheduler.Syncer
	collector    *metrics.Collector
	httpServer   *http.Server

	wg sync.WaitGroup
}

// NewApp 创建应用程序实例
func NewApp(configPath string) (*App, error) {
	// 加载配置
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 初始化日志
	logger.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	fmt.Println("🚀 启动彩票建议机器人...")

	games, err := cfg.BuildGames()
	if err != nil {
		return nil, fmt.Errorf("invalid game configuration: %w", err)
	}
	fmt.Printf("✅ 已加载 %d 个游戏配置\n", len(games))

	// 初始化数据库
	mysql, err := database.NewMySQLDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	fmt.Println("✅ 数据库连接成功")

	collector := metrics.NewCollector("loterias")

	// 初始化历史缓存
	historyCache := cache.NewHistoryCache(mysql, cfg.App.CacheTTL, cfg.App.CacheSize)
	fmt.Println("✅ 缓存系统初始化完成")

	svc := engine.NewService(games, mysql, historyCache, loader.NewExcelLoader(), collector, engine.Options{
		StatisticalCount:   cfg.App.StatisticalSuggestions,
		DefaultValidations: cfg.App.DefaultValidations,
		MaxValidations:     cfg.App.MaxValidations,
		AppendToDataFile:   cfg.App.AppendToDataFile,
		Seed:               cfg.App.Seed,
	})

	apiClient := api.NewClient(&cfg.API)

	app := &App{
		config:       cfg,
		games:        games,
		mysql:        mysql,
		historyCache: historyCache,
		apiClient:    apiClient,
		engine:       svc,
		collector:    collector,
	}

	// Telegram机器人是可选的，未配置token时只做同步
	var notifier scheduler.Notifier
	if cfg.Telegram.Token != "" {
		bot, err := telegram.NewBot(&cfg.Telegram, svc)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
		}
		app.telegramBot = bot
		notifier = bot
		fmt.Println("✅ Telegram机器人连接成功")
	} else {
		logger.Warn("Telegram token not configured, bot disabled")
	}

	app.syncer = scheduler.NewSyncer(games, apiClient, svc, notifier, collector)

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		mux.HandleFunc("/healthz", app.handleHealth)
		app.httpServer = &http.Server{Addr: cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	fmt.Println("🎯 应用程序初始化完成")
	return app, nil
}

// Start 启动应用程序
func (a *App) Start() error {
	fmt.Println("🔄 启动所有服务...")

	if a.config.App.ImportOnStart {
		fmt.Println("📚 从表格导入历史开奖数据...")
		imported := a.engine.ImportAll(context.Background())
		fmt.Printf("✅ 导入了 %d 期历史数据\n", imported)
	}

	if a.telegramBot != nil {
		a.telegramBot.Start()
	}

	scheduled, err := a.syncer.Start()
	if err != nil {
		return err
	}
	fmt.Printf("⏰ 已为 %d 个游戏安排开奖同步\n", scheduled)

	// 启动时先追一次最新开奖
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if n := a.syncer.SyncAll(ctx); n > 0 {
			fmt.Printf("🎯 启动同步新增 %d 期开奖\n", n)
		}
	}()

	if a.httpServer != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			logger.Infof("Metrics listening on %s", a.httpServer.Addr)
			if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("Metrics server failed: %v", err)
			}
		}()
	}

	fmt.Println("✅ 所有服务启动完成")
	fmt.Println("🔔 机器人仅在私聊中提供服务")
	fmt.Println("💡 按 Ctrl+C 停止程序")
	fmt.Println("")
	return nil
}

// Stop 停止应用程序
func (a *App) Stop() error {
	fmt.Println("🛑 正在停止应用程序...")

	a.syncer.Stop()

	if a.telegramBot != nil {
		a.telegramBot.Stop()
	}

	if a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.httpServer.Shutdown(ctx); err != nil {
			logger.Errorf("Failed to stop metrics server: %v", err)
		}
	}

	// 等待所有协程结束
	a.wg.Wait()

	a.historyCache.Close()

	// 关闭数据库连接
	if err := a.mysql.Close(); err != nil {
		logger.Errorf("Failed to close database: %v", err)
	}

	fmt.Println("✅ 应用程序已安全停止")
	return nil
}

// HealthCheck 健康检查
func (a *App) HealthCheck() map[string]interface{} {
	health := map[string]interface{}{
		"timestamp": time.Now(),
		"status":    "ok",
	}
	services := map[string]interface{}{}
	health["services"] = services

	if err := a.mysql.Ping(); err != nil {
		services["database"] = map[string]interface{}{"status": "error", "error": err.Error()}
		health["status"] = "degraded"
	} else {
		services["database"] = map[string]interface{}{"status": "ok"}
	}

	services["cache"] = map[string]interface{}{
		"status": "ok",
		"stats":  a.historyCache.GetStats(),
	}
	services["api"] = map[string]interface{}{
		"status": "ok",
		"stats":  a.apiClient.GetAPIStats(),
	}

	if a.telegramBot != nil {
		services["telegram"] = map[string]interface{}{
			"status": "ok",
			"info":   a.telegramBot.GetBotInfo(),
		}
	}

	return health
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := a.HealthCheck()
	w.Header().Set("Content-Type", "application/json")
	if health["status"] != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(health); err != nil {
		logger.Debugf("Failed to write health response: %v", err)
	}
}

func main() {
	// 配置文件路径
	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	// 创建应用程序实例
	app, err := NewApp(configPath)
	if err != nil {
		fmt.Printf("❌ 应用初始化失败: %v\n", err)
		os.Exit(1)
	}

	// 启动应用程序
	if err := app.Start(); err != nil {
		fmt.Printf("❌ 应用启动失败: %v\n", err)
		os.Exit(1)
	}

	// 设置信号处理
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// 等待停止信号
	<-sigChan

	// 优雅关闭
	if err := app.Stop(); err != nil {
		fmt.Printf("❌ 关闭时出错: %v\n", err)
		os.Exit(1)
	}
}
