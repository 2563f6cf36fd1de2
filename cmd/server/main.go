package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	mqcontracts "github.com/gamefrenza/AI-Legal-Agent/contracts/mq"
	"github.com/gamefrenza/AI-Legal-Agent/internal/config"
	"github.com/gamefrenza/AI-Legal-Agent/internal/delivery"
	"github.com/gamefrenza/AI-Legal-Agent/internal/handler"
	"github.com/gamefrenza/AI-Legal-Agent/internal/httpserver"
	"github.com/gamefrenza/AI-Legal-Agent/internal/mqhandler"
	"github.com/gamefrenza/AI-Legal-Agent/internal/service"
	"github.com/gamefrenza/AI-Legal-Agent/internal/store"
	"github.com/gamefrenza/AI-Legal-Agent/pkg/db"
	"github.com/gamefrenza/AI-Legal-Agent/pkg/logger"
	"github.com/gamefrenza/AI-Legal-Agent/pkg/mq"
	"github.com/gamefrenza/AI-Legal-Agent/pkg/outbox"
	pkgredis "github.com/gamefrenza/AI-Legal-Agent/pkg/redis"
	"github.com/gamefrenza/AI-Legal-Agent/pkg/util"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting notification-service...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
	)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// DB
	log.Info("Initializing database connection...")
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// Outbox + notification schema
	outboxRepo := outbox.NewRepository(dbConn)
	if err := outboxRepo.InitSchema(rootCtx); err != nil {
		log.Fatal("Failed to init outbox schema", zap.Error(err))
	}
	notificationStore := store.NewPostgresStore(dbConn, outboxRepo, log)
	if err := notificationStore.InitSchema(rootCtx); err != nil {
		log.Fatal("Failed to init notification schema", zap.Error(err))
	}

	// Redis (dedup + retry counters)
	rdb := pkgredis.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	// MQ Publisher (outbox egress + DLQ parking)
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	if err := publisher.SetupDLQ(mqcontracts.RoutingKeyNotificationCreate); err != nil {
		log.Fatal("Failed to set up DLQ", zap.Error(err))
	}

	// Outbox dispatcher
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log).
		WithMaxRetries(cfg.Notify.OutboxMaxRetries)
	go dispatcher.Start(rootCtx)

	// Live delivery hub + notifier
	hub := delivery.NewHub(log)
	notifier := service.NewNotifier(notificationStore, hub, log)

	// MQ ingress: notification.create
	deduper := util.NewDeduperWithLogger(rdb, cfg.Notify.DedupTTL(), log)
	retryCounter := util.NewRetryCounter(rdb, cfg.Notify.DedupTTL())
	createHandler := mqhandler.NewNotificationCreateHandler(
		notifier, deduper, retryCounter, publisher, 5, log,
	)

	log.Info("Initializing MQ consumer for notification.create...",
		zap.String("queue", "notification.create.q"),
		zap.String("routing_key", mqcontracts.RoutingKeyNotificationCreate),
	)
	consumer, err := mq.NewConsumer(cfg.MQ.URL, "notification.create.q", mqcontracts.RoutingKeyNotificationCreate, log)
	if err != nil {
		log.Fatal("Failed to init consumer", zap.Error(err))
	}
	defer consumer.Close()

	consumer.SetHandler(createHandler.Handle)

	go func() {
		log.Info("Starting notification.create consumer...")
		if err := consumer.StartConsuming(rootCtx); err != nil {
			log.Error("Notification consumer stopped", zap.Error(err))
		}
	}()

	// HTTP + WebSocket server
	notificationHandler := handler.NewNotificationHandler(notifier, log)
	wsHandler := handler.NewWSHandler(hub, cfg.JWT.Secret, log)
	router := httpserver.NewRouter(notificationHandler, wsHandler, cfg.JWT.Secret, dbConn)

	port := cfg.Server.Port
	if port == "" {
		port = "8086"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router.Engine,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("notification-service is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down notification-service gracefully...")

	// Stop consumer and dispatcher loops
	rootCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("notification-service shutdown complete")
}
