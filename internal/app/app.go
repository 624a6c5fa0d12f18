// Package app 组装并运行 AlertFi 管理后台服务
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gonglijing/alertfi/internal/auth"
	"github.com/gonglijing/alertfi/internal/circuit"
	"github.com/gonglijing/alertfi/internal/config"
	"github.com/gonglijing/alertfi/internal/dashboard"
	"github.com/gonglijing/alertfi/internal/database"
	"github.com/gonglijing/alertfi/internal/export"
	"github.com/gonglijing/alertfi/internal/graceful"
	"github.com/gonglijing/alertfi/internal/handlers"
	"github.com/gonglijing/alertfi/internal/ingest"
	"github.com/gonglijing/alertfi/internal/logger"
	"github.com/gonglijing/alertfi/internal/metrics"
	"github.com/gonglijing/alertfi/internal/notify"
	"github.com/gonglijing/alertfi/internal/status"
)

var log = logger.Named("app")

// ShutdownTimeout 优雅关闭等待时间
const ShutdownTimeout = 30 * time.Second

// Run boots the application and blocks until shutdown completes.
func Run(cfg *config.Config) error {
	ctx := context.Background()

	store, err := database.Open(ctx, database.Options{
		Path:         cfg.DBPath,
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.InitDefaultData(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("init default data: %w", err)
	}

	secretKey, err := loadOrGenerateSecretKey(cfg.JWTSecret, filepath.Dir(cfg.DBPath))
	if err != nil {
		return err
	}
	authManager := auth.NewJWTManager(secretKey, cfg.TokenTTL)

	m := metrics.New()
	gracefulMgr := graceful.NewGracefulShutdown(ShutdownTimeout)

	hub := notify.NewHub(websocketCheckOrigin(cfg.GetAllowedOrigins()))
	gracefulMgr.Go("websocket-hub", hub.Run)

	dispatcher := buildDispatcher(cfg, hub, m, gracefulMgr)
	svc := ingest.NewService(store, ingest.WithNotifier(dispatcher), ingest.WithRecorder(m))
	evaluator := status.NewEvaluator(cfg.OfflineThreshold)

	h := handlers.NewHandler(store, authManager, svc, handlers.Options{
		Evaluator:     evaluator,
		Export:        export.Options{EscapeQuotes: cfg.ExportEscapeQuotes},
		ExportLayout:  cfg.ExportTimeLayout,
		LoginFailures: cfg.LoginMaxFailures,
		LoginBlock:    cfg.LoginBlockDuration,
	})

	startBackgroundTasks(cfg, gracefulMgr, store, svc, evaluator, m)

	router := buildRouter(routeDeps{
		handler:     h,
		auth:        authManager,
		alerts:      hub,
		metrics:     m,
		ingestLimit: handlers.NewRateLimiter(cfg.IngestRateLimit),
	})

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      buildHandlerChain(cfg, router),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
	gracefulMgr.SetHTTPServer(server)
	gracefulMgr.Start()

	if err := serve(server, cfg); err != nil && !errors.Is(err, http.ErrServerClosed) {
		gracefulMgr.Shutdown()
		return fmt.Errorf("server error: %w", err)
	}

	gracefulMgr.Wait()
	return nil
}

// serve TLS 优先级：1) 自动证书 2) 指定证书 3) HTTP
func serve(server *http.Server, cfg *config.Config) error {
	switch {
	case cfg.TLSAuto && cfg.TLSDomain != "":
		return listenAndServeWithAutoCert(server, cfg)
	case cfg.TLSCertFile != "" && cfg.TLSKeyFile != "":
		log.Info("starting HTTPS", "addr", cfg.ListenAddr, "cert", cfg.TLSCertFile)
		return server.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
	default:
		log.Info("starting HTTP", "addr", cfg.ListenAddr)
		return server.ListenAndServe()
	}
}

// buildDispatcher WebSocket 必选，邮件和 Kafka 按配置启用
func buildDispatcher(cfg *config.Config, hub *notify.Hub, m *metrics.Metrics, gracefulMgr *graceful.GracefulShutdown) *notify.Dispatcher {
	dispatcher := notify.NewDispatcher(hub)

	breakerCfg := circuit.DefaultConfig()
	breakerCfg.OnStateChange = m.BreakerStateChanged

	if email := notify.NewEmailNotifier(notify.EmailConfig{
		APIURL:     cfg.EmailAPIURL,
		APIKey:     cfg.EmailAPIKey,
		Sender:     cfg.EmailSender,
		SenderName: cfg.EmailSenderName,
		Breaker:    breakerCfg,
	}, nil); email != nil {
		dispatcher.Add(email)
		log.Info("email alerts enabled", "api", cfg.EmailAPIURL)
	}

	if sink := notify.NewKafkaSink(cfg.GetKafkaBrokers(), cfg.KafkaTopic); sink != nil {
		dispatcher.Add(sink)
		gracefulMgr.AddShutdownFunc("kafka", func(context.Context) error {
			return sink.Close()
		})
		log.Info("kafka alert stream enabled", "topic", sink.Topic())
	}

	return dispatcher
}

func startBackgroundTasks(cfg *config.Config, gracefulMgr *graceful.GracefulShutdown, store *database.Store, svc *ingest.Service, evaluator *status.Evaluator, m *metrics.Metrics) {
	ref := newRefresher(store, dashboard.NewAggregator(evaluator), m, cfg.RefreshInterval)
	gracefulMgr.Go("summary-refresher", ref.Run)

	if cfg.RetentionDays > 0 {
		log.Info("starting retention cleanup", "days", cfg.RetentionDays, "interval", cfg.RetentionInterval)
		gracefulMgr.Go("retention", func(ctx context.Context) {
			store.RunRetention(ctx, cfg.RetentionDays, cfg.RetentionInterval)
		})
	}

	if cfg.MQTTBroker != "" {
		sub := ingest.NewSubscriber(ingest.SubscriberConfig{
			Broker:   cfg.MQTTBroker,
			Topic:    cfg.MQTTTopic,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
			QoS:      byte(cfg.MQTTQoS),
		}, svc)
		gracefulMgr.Go("mqtt-subscriber", func(ctx context.Context) {
			if err := sub.Run(ctx); err != nil {
				log.Error("mqtt subscriber stopped", err, "broker", cfg.MQTTBroker)
			}
		})
	}
}
