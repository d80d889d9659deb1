package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"tradejournal/internal/auth"
	"tradejournal/internal/config"
	cronrunner "tradejournal/internal/cron"
	"tradejournal/internal/db"
	"tradejournal/internal/handler"
	"tradejournal/internal/logger"
	gormrepository "tradejournal/internal/repository/gorm"
	"tradejournal/internal/service"
	"tradejournal/internal/tradovate"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("TJ_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	envOnly := false
	if envOnlyRaw := os.Getenv("TJ_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	var cipher *tradovate.TokenCipher
	if cfg.Tradovate.EncryptionKey != "" {
		cipher, err = tradovate.NewTokenCipher(cfg.Tradovate.EncryptionKey)
		if err != nil {
			logger.Fatal("invalid tradovate encryption key", zap.Error(err))
		}
	} else {
		logger.Warn("tradovate token encryption disabled, tokens stored as plaintext")
	}
	brokerHTTP := &http.Client{Timeout: cfg.Tradovate.Timeout}
	brokerClient := tradovate.NewClient(brokerHTTP,
		tradovate.Credentials{ClientID: cfg.Tradovate.Demo.ClientID, ClientSecret: cfg.Tradovate.Demo.ClientSecret},
		tradovate.Credentials{ClientID: cfg.Tradovate.Live.ClientID, ClientSecret: cfg.Tradovate.Live.ClientSecret},
	)

	statsSvc := &service.DailyStatsService{Repo: store, Logger: logger}
	pnlSvc := &service.PnLService{Repo: store, Logger: logger}
	alertsEngine := &service.AlertsEngine{Repo: store, Logger: logger}
	matcher := &service.StrategyMatcher{Repo: store, Logger: logger}
	csvSvc := &service.TradeCSV{Repo: store, Stats: statsSvc, Logger: logger}
	brokerAuth := &service.BrokerAuth{
		Repo:         store,
		API:          brokerClient,
		Cipher:       cipher,
		RedirectBase: cfg.Tradovate.RedirectBase,
		Logger:       logger,
	}
	brokerSync := &service.BrokerSync{
		Repo:   store,
		API:    brokerClient,
		Cipher: cipher,
		Stats:  statsSvc,
		Logger: logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(auth.Middleware(auth.JWT{
		Secret:   []byte(cfg.Auth.JWTSecret),
		TokenTTL: cfg.Auth.TokenTTL,
	}, cfg.Auth.Disabled))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	tradesHandler := &handler.TradesHandler{Repo: store, PnL: pnlSvc, Matcher: matcher, Logger: logger}
	tradesHandler.Register(engine)
	accountsHandler := &handler.AccountsHandler{Repo: store}
	accountsHandler.Register(engine)
	strategiesHandler := &handler.StrategiesHandler{Repo: store}
	strategiesHandler.Register(engine)
	logsHandler := &handler.EmotionalLogsHandler{Repo: store}
	logsHandler.Register(engine)
	alertsHandler := &handler.AlertsHandler{Repo: store, Engine: alertsEngine, Logger: logger}
	alertsHandler.Register(engine)
	statsHandler := &handler.StatsHandler{Repo: store, Stats: statsSvc, Logger: logger}
	statsHandler.Register(engine)
	csvHandler := &handler.CSVHandler{Repo: store, CSV: csvSvc, Logger: logger}
	csvHandler.Register(engine)
	tradovateHandler := &handler.TradovateHandler{
		Auth:         brokerAuth,
		Sync:         brokerSync,
		Logger:       logger,
		FrontendBase: cfg.Tradovate.RedirectBase,
	}
	tradovateHandler.Register(engine)
	meHandler := &handler.MeHandler{Repo: store}
	meHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, ctx)
		_, err = cronRunner.Add(cfg.Cron.StatsBuild, func(ctx context.Context) {
			if err := statsSvc.RebuildAll(ctx); err != nil {
				logger.Warn("cron daily stats rebuild failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register stats rebuild failed", zap.Error(err))
		}
		_, err = cronRunner.Add(cfg.Cron.AlertScan, func(ctx context.Context) {
			if err := alertsEngine.ScanAll(ctx); err != nil {
				logger.Warn("cron alert scan failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register alert scan failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
