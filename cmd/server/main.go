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

	"github.com/gin-gonic/gin"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/config"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/api"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/broker"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/jobqueue"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/notifier"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/providers"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/service"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/store"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/stripeclient"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/tasks"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/util"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/vault"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/worker"
)

func main() {

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting settlement service")

	tp, err := util.InitTracer("settlement-service", cfg.Observ.JaegerEndpoint)
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

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	model, err := service.ResolvePaymentModel(cfg.Payment)
	if err != nil {
		log.Fatalf("Failed to resolve payment model: %v", err)
	}

	cipher, err := vault.NewAESCipher(cfg.Vault.KeyHex)
	if err != nil {
		log.Fatalf("Failed to initialize card vault: %v", err)
	}
	cardVault := vault.New(cipher)

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	gateway := stripeclient.New(cfg.Stripe.SecretKey)
	duffel := providers.NewDuffelClient(cfg.Providers.DuffelURL, cfg.Providers.DuffelToken)
	amadeus := providers.NewAmadeusClient(cfg.Providers.AmadeusURL, cfg.Providers.AmadeusKey, cfg.Providers.AmadeusSecret)

	runner := tasks.NewRunner()
	loyalty := service.NewLoyaltyLedger()

	orderService := service.NewOrderService(db, duffel, amadeus, cardVault, eventPublisher, model, service.AgencyCard(cfg.Payment))
	bookingService := service.NewBookingService(db, db, db, db, cardVault, eventPublisher, model)
	paymentService := service.NewPaymentService(db, gateway, orderService, cardVault, model)
	orchestrator := service.NewSettlementOrchestrator(db, db, db, gateway, orderService, loyalty, eventPublisher, runner)

	deliverer := notifier.NewLogDeliverer()
	queue, err := newQueue(cfg, deliverer.Deliver)
	if err != nil {
		log.Fatalf("Failed to initialize job queue: %v", err)
	}
	defer queue.Close()

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup)
	notificationWorker := worker.NewNotificationWorker(consumer, queue, cfg.Mail)
	go func() {
		if err := notificationWorker.Start(workerCtx); err != nil {
			log.Printf("Notification worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(bookingService, paymentService, orchestrator, queue, cfg.Stripe.WebhookSecret)
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

	// Let in-flight settlement side effects finish before the workers stop.
	runner.Wait()

	workerCancel()
	notificationWorker.Stop()

	log.Println("Server exited")
}

// newQueue picks the job queue backend: Redis when configured, otherwise the
// in-process timer queue.
func newQueue(cfg *config.Config, deliver jobqueue.DeliverFunc) (jobqueue.Queue, error) {
	if cfg.Redis.Addr == "" {
		log.Println("REDIS_ADDR not set, using in-process job queue")
		return jobqueue.NewMemoryQueue(deliver), nil
	}
	return jobqueue.NewRedisQueue(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, deliver)
}
