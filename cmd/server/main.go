package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/advisio/messaging-core/internal/api"
	"github.com/advisio/messaging-core/internal/api/handler"
	"github.com/advisio/messaging-core/internal/broker"
	"github.com/advisio/messaging-core/internal/config"
	"github.com/advisio/messaging-core/internal/db"
	"github.com/advisio/messaging-core/internal/domain"
	"github.com/advisio/messaging-core/internal/markers"
	"github.com/advisio/messaging-core/internal/metrics"
	"github.com/advisio/messaging-core/internal/presence"
	"github.com/advisio/messaging-core/internal/processor"
	"github.com/advisio/messaging-core/internal/producer"
	"github.com/advisio/messaging-core/internal/ratelimiter"
	"github.com/advisio/messaging-core/internal/repository"
	"github.com/advisio/messaging-core/internal/scheduler"
	"github.com/advisio/messaging-core/internal/transport"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- databases ----
	ctx := context.Background()
	pool, err := db.ConnectPostgres(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	mongoClient, err := db.ConnectMongo(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to mongo", zap.Error(err))
	}
	defer mongoClient.Disconnect(ctx) //nolint:errcheck
	mongoDB := mongoClient.Database(cfg.MongoDB)

	// ---- metrics ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	// ---- broker ----
	conn := broker.NewConnection(cfg.AMQPURL, logger,
		broker.WithPrefetch(cfg.Prefetch),
		broker.WithReconnectDelay(cfg.ReconnectDelay),
		broker.WithReconnectHook(m.ReconnectHook()),
	)
	if err := conn.Open(workerCtx); err != nil {
		logger.Fatal("failed to connect to broker", zap.Error(err))
	}
	defer conn.Close()

	pub := broker.NewPublisher(conn, logger, m.PublishHook())

	// Dead-letter depth gauge, refreshed by passive declare.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				if n, err := conn.QueueDepth(domain.QueueDeadLetter); err == nil {
					m.DeadLetterDepth.Set(float64(n))
				}
			}
		}
	}()

	// ---- producers ----
	emailProducer := producer.NewEmailProducer(pub, logger)
	smsProducer := producer.NewSMSProducer(pub, logger)
	events := producer.NewEventPublisher(pub, logger)

	// ---- repositories ----
	transactions := repository.NewMongoTransactionRepository(mongoDB)
	appointments := repository.NewMongoAppointmentRepository(mongoDB)
	applications := repository.NewMongoApplicationRepository(mongoDB)
	chats := repository.NewMongoChatRepository(mongoDB)
	clients := repository.NewMongoClientRepository(mongoDB)

	// ---- reconciliation markers ----
	pending := markers.NewStore[markers.PendingBooking](markers.PendingTTL)
	cancels := markers.NewStore[markers.Cancellation](markers.CancellationTTL)
	go pending.Run(workerCtx, time.Minute)
	go cancels.Run(workerCtx, time.Minute)

	tracker := presence.NewTracker()

	// ---- delayed jobs ----
	jobStore := scheduler.NewPGJobStore(pool)
	delays := scheduler.NewDelayScheduler(jobStore, logger)

	jobWorker := scheduler.NewWorker(jobStore, emailProducer, cfg.MailFrom, cfg.JobPollInterval, logger)
	jobWorker.SetMetricHooks(
		func() { m.JobsFired.Inc() },
		func() { m.JobsFailed.Inc() },
	)
	go jobWorker.Run(workerCtx)

	greeter := scheduler.NewBirthdayGreeter(clients, emailProducer, cfg.MailFrom, cfg.BirthdayHour, logger)
	go greeter.Run(workerCtx)

	// ---- processors ----
	payments := processor.NewPaymentProcessor(
		transactions, appointments, applications, emailProducer, delays, cfg.MailFrom, logger)
	scheduling := processor.NewSchedulingReconciler(appointments, pending, cancels, logger)
	chatPersist := processor.NewChatPersister(chats, tracker, logger)
	readReceipts := processor.NewReadReceiptUpdater(chats, logger)

	mailGateway := transport.NewHTTPMailGateway(cfg.MailGatewayURL, cfg.GatewayTimeout)
	smsGateway := transport.NewHTTPSMSGateway(cfg.SMSGatewayURL, cfg.GatewayTimeout)
	mailSender := processor.NewMailSender(mailGateway, logger)
	smsSender := processor.NewSMSSender(smsGateway, logger)

	// ---- consumers ----
	handlers := map[domain.Queue]broker.Handler{
		domain.QueueEmail:            mailSender.Process,
		domain.QueueSMS:              smsSender.Process,
		domain.QueuePaymentEvents:    payments.Process,
		domain.QueueSchedulingEvents: scheduling.Process,
		domain.QueueChatMessages:     chatPersist.Process,
		domain.QueueChatSeen:         readReceipts.Process,
	}

	var wg sync.WaitGroup
	for q, h := range handlers {
		c := broker.NewConsumer(conn, pub, q, h, logger, m.ConsumeHook())
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Run(workerCtx)
		}()
	}

	// ---- HTTP server ----
	webhooks := handler.NewWebhookHandler(events, cfg.PaymentWebhookSecret, logger)
	messages := handler.NewMessageHandler(emailProducer, smsProducer, logger)
	health := handler.NewHealthHandler(conn)
	bookings := handler.NewBookingHandler(pending, logger)
	presenceAPI := handler.NewPresenceHandler(tracker, logger)
	limiters := ratelimiter.New(cfg.RateLimit)

	router := api.NewRouter(webhooks, messages, health, bookings, presenceAPI, limiters, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Signal consumers and background workers to stop.
	cancelWorkers()

	// 3. Wait for in-flight deliveries to settle.
	wg.Wait()

	logger.Info("server stopped cleanly")
}
