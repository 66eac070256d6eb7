package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"warranty/internal/auth/token"
	"warranty/internal/platform/config"
	"warranty/internal/platform/httpserver"
	"warranty/internal/platform/logger"
	platformmetrics "warranty/internal/platform/metrics"
	platformredis "warranty/internal/platform/redis"
	"warranty/internal/warranty/events"
	"warranty/internal/warranty/events/kafka"
	"warranty/internal/warranty/handler"
	"warranty/internal/warranty/metrics"
	"warranty/internal/warranty/service"
	"warranty/internal/warranty/store/cache"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		stop()
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	domainMetrics := metrics.New(reg)

	store, err := openBackend(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()
	checks := map[string]pinger{"storage": store}

	var certificates service.CertificateStore = store.certificates
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		certificates = cache.NewRedisCertificates(store.certificates, redisClient.Client, store.instance,
			cache.WithTTL(cfg.Redis.TTL),
			cache.WithLogger(log),
			cache.WithMetrics(domainMetrics),
		)
		checks["redis"] = pingFunc(redisClient.Health)
		log.Info("certificate cache enabled", "ttl", cfg.Redis.TTL)
	}

	sink, closeSink, err := openSink(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()
	if kafkaSink, ok := sink.(*kafka.Sink); ok {
		checks["kafka"] = kafkaSink
	}

	svc := service.New(certificates, store.ledger, store.tx,
		service.WithLogger(log),
		service.WithMetrics(domainMetrics),
		service.WithEmitter(store.outbox),
	)
	jwt := token.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer)

	router := newRouter(routerDeps{
		logger:   log,
		handler:  handler.New(svc, log, jwt),
		gatherer: reg,
		http:     platformmetrics.New(reg),
		checks:   checks,
	})

	worker := events.NewWorker(store.outbox, sink,
		events.WithInterval(cfg.Outbox.Interval),
		events.WithBatchSize(cfg.Outbox.BatchSize),
		events.WithRetention(cfg.Outbox.Retention),
		events.WithLogger(log),
		events.WithMetrics(domainMetrics),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting warranty registry", "addr", cfg.Server.Addr, "storage", cfg.Storage)
		return httpserver.Serve(gctx, httpserver.New(cfg.Server.Addr, router), cfg.Server.ShutdownGrace)
	})
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("outbox worker: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// openSink returns the Kafka sink when brokers are configured, otherwise a
// sink that logs events.
func openSink(ctx context.Context, cfg config.Config, log *slog.Logger) (events.Sink, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("no kafka brokers configured; events are logged")
		return events.NewLogSink(log), func() {}, nil
	}
	sink, err := kafka.NewSink(kafka.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("create kafka sink: %w", err)
	}
	if err := sink.EnsureTopic(ctx); err != nil {
		sink.Close()
		return nil, nil, fmt.Errorf("ensure kafka topic: %w", err)
	}
	log.Info("publishing events to kafka", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	return sink, sink.Close, nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
