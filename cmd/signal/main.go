package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomcast/internal/core/domain"
	"roomcast/internal/core/services"
	httphandlers "roomcast/internal/handlers/http"
	"roomcast/internal/infrastructure/middleware"
	"roomcast/internal/infrastructure/monitoring"
	"roomcast/internal/infrastructure/repositories"
	wssignal "roomcast/internal/infrastructure/signal"
	"roomcast/pkg/config"
	"roomcast/pkg/logger"
	"roomcast/pkg/tracing"
	"roomcast/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := os.Getenv("ROOMCAST_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()
	sugar := log.Sugar()

	sugar.Infow("livekit configuration",
		"url", cfg.LiveKit.URL,
		"external_url", cfg.LiveKit.ExternalURL,
		"api_key", cfg.LiveKit.APIKey,
		"secret_length", len(cfg.LiveKit.APISecret),
	)

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "roomcast",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: os.Getenv("ROOMCAST_ENV"),
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		sugar.Fatalw("failed to initialize tracing", "error", err)
	}

	factory, err := repositories.NewRepositoryFactory(cfg, sugar)
	if err != nil {
		sugar.Fatalw("failed to create repository factory", "error", err)
	}
	defer factory.Close()

	roomService := services.NewRoomService(factory.CreateRoomRepository(), factory.CreatePeerRepository(), sugar)
	tokenService := services.NewTokenService(cfg.LiveKit.APIKey, cfg.LiveKit.APISecret, cfg.MediaURL(), cfg.LiveKit.TokenTTL)

	var metrics *monitoring.PrometheusCollector
	if cfg.Monitoring.PrometheusEnabled {
		metrics = monitoring.NewPrometheusCollector()
	}

	wsServer := wssignal.NewWebSocketServer(
		roomService,
		tokenService,
		metricsOrNil(metrics),
		func() domain.PeerID { return domain.PeerID(utils.GenerateConnectionID()) },
		sugar,
		wssignal.Options{
			PingInterval: cfg.Signal.PingInterval,
			PongTimeout:  cfg.Signal.PongTimeout,
			TokenTimeout: cfg.LiveKit.TokenTimeout,
			SendBuffer:   cfg.Signal.SendBuffer,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go wsServer.Run(ctx)

	checker := monitoring.NewHealthChecker()
	checker.AddCheck("registries", func(ctx context.Context) (bool, error) {
		if err := factory.HealthCheck(ctx); err != nil {
			return false, err
		}
		return true, nil
	}, 2*time.Second)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	tokenHandler := httphandlers.NewTokenHandler(tokenService, func(c *gin.Context) {
		status := checker.CheckAll(c.Request.Context())
		rooms, peers, _ := roomService.Stats(c.Request.Context())
		code := http.StatusOK
		if status.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":      status.Status,
			"connections": wsServer.ConnectionCount(),
			"rooms":       rooms,
			"peers":       peers,
		})
	})
	tokenHandler.SetupRoutes(router)

	router.GET("/ws", gin.WrapF(wsServer.HandleWebSocket))
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// No global read/write timeouts: WebSocket connections outlive any sane
	// value, and gorilla manages its own deadlines after the hijack.
	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		sugar.Infow("starting roomcast signaling server", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("server shutdown failed", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("tracer shutdown failed", "error", err)
	}
}

// metricsOrNil avoids a typed-nil interface when metrics are disabled.
func metricsOrNil(m *monitoring.PrometheusCollector) wssignal.Metrics {
	if m == nil {
		return nil
	}
	return m
}
