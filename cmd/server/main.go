package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"consignment-service/config"
	"consignment-service/internal/api"
	"consignment-service/internal/broker"
	"consignment-service/internal/redisclient"
	"consignment-service/internal/service"
	"consignment-service/internal/store"
	"consignment-service/internal/util"
	"consignment-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting consignment service")

	tp, err := util.InitTracer("consignment-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	stateStore := store.NewStore(cfg.Data.File)
	if _, err := stateStore.Load(); err != nil {
		log.Fatalf("Failed to load state: %v", err)
	}
	log.Printf("State loaded from %s", cfg.Data.File)

	// The Redis mirror and Kafka audit stream are optional side channels;
	// the service stays up without them.
	var mirror *redisclient.Client
	if mirror, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Printf("Redis unavailable, inventory mirror disabled: %v", err)
		mirror = nil
	} else {
		defer mirror.Close()
		log.Println("Redis connected")
	}

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAudit)
	defer producer.Close()
	auditPublisher := broker.NewAuditPublisher(producer)
	log.Println("Kafka producer initialized")

	ledgerService := service.NewLedgerService(stateStore, mirror, auditPublisher)
	settlementService := service.NewSettlementService(stateStore, auditPublisher)
	financeService := service.NewFinanceService(stateStore, cfg.Business.LowStockThreshold)

	ctx := context.Background()
	if err := ledgerService.SyncInventoryMirror(ctx); err != nil {
		log.Printf("Failed to sync inventory mirror: %v", err)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	auditConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicAudit, cfg.Kafka.ConsumerGroup)
	auditWorker := worker.NewAuditWorker(auditConsumer)
	go func() {
		if err := auditWorker.Start(workerCtx); err != nil {
			log.Printf("Audit worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(ledgerService, settlementService, financeService)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	auditWorker.Stop()

	log.Println("Server exited")
}
