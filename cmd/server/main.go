package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"maaztelecom/internal/changefeed"
	"maaztelecom/internal/config"
	"maaztelecom/internal/events"
	"maaztelecom/internal/handler"
	"maaztelecom/internal/infra"
	"maaztelecom/internal/metrics"
	"maaztelecom/internal/repository"
	"maaztelecom/internal/repository/memstore"
	"maaztelecom/internal/repository/mongostore"
	"maaztelecom/internal/router"
	"maaztelecom/internal/service"
	"maaztelecom/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type stores struct {
	products repository.ProductRepository
	sales    repository.SaleRepository
	ping     handler.HealthCheck
	close    func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	zerolog.TimeFieldFormat = time.RFC3339
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Str("tz", cfg.ShopTimezone).Msg("invalid shop timezone")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer st.close()

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// ── Infrastructure ───────────────────────────────────────────────────────
	storage, invoiceDir, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("failed to open invoice storage")
	}

	renderer, err := infra.NewInvoiceRenderer(cfg.ShopName, cfg.LetterheadPath, loc)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load invoice letterhead")
	}

	whatsapp := infra.NewWhatsAppClient(infra.WhatsAppConfig{
		BaseURL:     cfg.WhatsAppURL,
		InstanceID:  cfg.WhatsAppInstanceID,
		AccessToken: cfg.WhatsAppAccessToken,
		CountryCode: cfg.WhatsAppCountryCode,
		RatePerSec:  cfg.WhatsAppRatePerSec,
		Burst:       cfg.WhatsAppBurst,
		Breaker: infra.CircuitBreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			OpenTimeout:      time.Minute,
			OnStateChange: func(from, to infra.CBState) {
				log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("whatsapp: breaker transition")
				m.SetBreakerState(int(to))
			},
		},
	})
	if !whatsapp.Configured() {
		log.Warn().Msg("whatsapp gateway not configured; notifications will fail and be retried")
	}
	mailer := infra.NewMailer(cfg)

	var publisher events.Publisher = events.Noop{}
	var kafkaPub *infra.KafkaPublisher
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		kafkaPub = infra.NewKafkaPublisher(brokers, cfg.KafkaTopic, 0)
		kafkaPub.Start(ctx)
		publisher = kafkaPub
	}

	feed := changefeed.NewRedisFeed(rdb)
	dispatcher := worker.NewDispatcher(rdb)
	dlq := worker.NewDeadLetterQueue(rdb, m)

	// ── Workers ──────────────────────────────────────────────────────────────
	pool := worker.NewPool(rdb, cfg.WorkerPoolSize, m)
	pool.Register(worker.QueueInvoice, worker.NewInvoiceWorker(worker.InvoiceWorkerConfig{
		Sales:       st.sales,
		Products:    st.products,
		Renderer:    renderer,
		Storage:     storage,
		Enqueuer:    dispatcher,
		DLQ:         dlq,
		Publisher:   publisher,
		Feed:        feed,
		Metrics:     m,
		MaxAttempts: cfg.RetryMaxAttempts,
	}))
	pool.Register(worker.QueueNotification, worker.NewNotificationWorker(worker.NotificationWorkerConfig{
		Sales:       st.sales,
		Notifier:    whatsapp,
		DLQ:         dlq,
		Publisher:   publisher,
		Feed:        feed,
		Metrics:     m,
		MaxAttempts: cfg.RetryMaxAttempts,
	}))
	pool.Register(worker.QueueEmail, worker.NewEmailWorker(mailer, cfg.ShopName))
	pool.Start(ctx)

	scheduler := worker.NewRetryScheduler(worker.RetrySchedulerConfig{
		Sales:       st.sales,
		Enqueuer:    dispatcher,
		Gateway:     whatsapp,
		Pool:        pool,
		Interval:    cfg.RetryInterval(),
		MaxAttempts: cfg.RetryMaxAttempts,
		BatchSize:   cfg.RetryBatchSize,
	})
	if err := scheduler.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start retry scheduler")
	}

	// ── HTTP ─────────────────────────────────────────────────────────────────
	catalog := service.NewCatalogService(st.products, feed, publisher, loc)
	sales := service.NewSaleService(service.SaleServiceConfig{
		Sales:     st.sales,
		Products:  st.products,
		Enqueuer:  dispatcher,
		Feed:      feed,
		Publisher: publisher,
		Cache:     service.NewRedisVerifyCache(rdb, cfg.VerifyCacheTTL()),
		Metrics:   m,
		Location:  loc,
	})

	r := router.New(cfg, router.Deps{
		Catalog:  catalog,
		Sales:    sales,
		Metrics:  m,
		Gatherer: reg,
		Health: map[string]handler.HealthCheck{
			"store": st.ping,
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		InvoiceDir: invoiceDir,
		Done:       ctx.Done(),
	})

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		// No write timeout: /v1/stream responses stay open.
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("Maaz Telecom POS listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	pool.Wait()
	if kafkaPub != nil {
		kafkaPub.WaitClosed()
	}
	log.Info().Msg("server exited")
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case "mongo":
		client, err := mongostore.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDatabase)
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return &stores{
			products: mongostore.NewProductRepository(db),
			sales:    mongostore.NewSaleRepository(db),
			ping:     func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:    func() { _ = client.Disconnect(context.Background()) },
		}, nil

	case "memory":
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return &stores{
			products: memstore.NewProductStore(),
			sales:    memstore.NewSaleStore(),
			ping:     func(context.Context) error { return nil },
			close:    func() {},
		}, nil

	default:
		db, err := infra.NewDatabase(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		return &stores{
			products: repository.NewProductRepository(db),
			sales:    repository.NewSaleRepository(db),
			ping:     sqlDB.PingContext,
			close:    func() { _ = sqlDB.Close() },
		}, nil
	}
}

// openStorage returns the invoice store and, for local storage, the
// directory the router serves at /invoices.
func openStorage(ctx context.Context, cfg *config.Config) (infra.DocumentStorage, string, error) {
	if cfg.StorageDriver == "s3" {
		s, err := infra.NewS3Storage(ctx, infra.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
			PublicURL: cfg.S3PublicURL,
		})
		return s, "", err
	}
	s, err := infra.NewLocalStorage(cfg.InvoiceDir, cfg.PublicBaseURL+"/invoices")
	if err != nil {
		return nil, "", err
	}
	return s, cfg.InvoiceDir, nil
}
