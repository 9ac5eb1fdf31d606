// cmd/command-consumer/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"smartbuilding-workers/internal/audit"
	"smartbuilding-workers/internal/broker"
	"smartbuilding-workers/internal/common/config"
	"smartbuilding-workers/internal/common/database"
	"smartbuilding-workers/internal/common/logger"
	"smartbuilding-workers/internal/conversion"
	"smartbuilding-workers/internal/pipeline"
	"smartbuilding-workers/internal/pipeline/dispatch"
	"smartbuilding-workers/internal/pipeline/gate"
	"smartbuilding-workers/internal/pipeline/transcribe"
	"smartbuilding-workers/internal/store"
	"smartbuilding-workers/internal/transcription"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("info", "console")
		fallback.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting command consumer...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		// Test the connection
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Optional External Services ---
	var trigger conversion.Trigger
	if cfg.Conversion.Enabled {
		zt, err := conversion.NewZeebeTrigger(
			cfg.Conversion.GatewayAddress,
			cfg.Conversion.ProcessID,
			time.Duration(cfg.Conversion.RequestTimeout)*time.Millisecond,
			log,
		)
		if err != nil {
			zapLog.Fatal("conversion trigger failed", zap.Error(err))
		}
		defer zt.Close()
		trigger = zt
		zapLog.Info("Conversion trigger connected successfully")
	}

	var provider transcription.Provider
	if cfg.Transcription.Enabled {
		provider = transcription.NewClient(
			cfg.Transcription.BaseURL,
			cfg.Transcription.APIKey,
			time.Duration(cfg.Transcription.Timeout)*time.Millisecond,
			log,
		)
		zapLog.Info("Speech provider configured")
	}

	// --- Audit Sinks ---
	sinks := audit.MultiSink{audit.NewZapSink(log)}
	if cfg.Audit.SNS.Enabled {
		snsSink, err := audit.NewSNSSink(ctx, cfg.Audit.SNS.Region, cfg.Audit.SNS.TopicARN, log)
		if err != nil {
			zapLog.Fatal("sns audit sink failed", zap.Error(err))
		}
		sinks = append(sinks, snsSink)
		zapLog.Info("SNS audit sink configured", zap.String("topic", cfg.Audit.SNS.TopicARN))
	}

	// --- Stores ---
	commands := store.NewPostgresCommandStore(pg.DB)
	nodes := store.NewPostgresNodeStore(pg.DB)
	documents := store.NewDocumentRepository(pg.DB, esClient.Client, cfg.Database.Elasticsearch.DocumentIndex)
	maintenance := store.NewPostgresMaintenanceStore(pg.DB)
	bookings := store.NewPostgresBookingStore(pg.DB)
	conversions := store.NewPostgresConversionStore(pg.DB)

	// --- Pipeline ---
	guard := dispatch.NewRedisGuard(rdb.Client, time.Duration(cfg.Pipeline.IdempotencyTTL)*time.Second)
	dispatcher := dispatch.New(guard, log)
	dispatch.RegisterAll(dispatcher, nodes, documents, maintenance, bookings, conversions, trigger, log)

	securityGate, err := gate.New(sinks, log)
	if err != nil {
		zapLog.Fatal("security gate init failed", zap.Error(err))
	}

	resolver := transcribe.NewResolver(provider, cfg.Transcription.Language, log)

	processor := pipeline.NewProcessor(
		securityGate,
		commands,
		nodes,
		resolver,
		dispatcher,
		sinks,
		log,
		cfg.Pipeline.RetryBudget,
	)

	consumer := broker.NewConsumer(
		rdb.Client,
		cfg.Broker.Queue,
		time.Duration(cfg.Broker.PollTimeout)*time.Second,
		processor,
		zapLog,
	)

	// --- Health & Metrics Server ---
	if cfg.Metrics.Enabled {
		go func() {
			http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "healthy",
					"time":   time.Now().Format(time.RFC3339),
				})
			})
			http.Handle("/metrics", promhttp.Handler())
			zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
			if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
				zapLog.Error("Health/Metrics server failed", zap.Error(err))
			}
		}()
	}

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		zapLog.Info("Shutdown signal received, stopping consumer...", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		zapLog.Fatal("consumer stopped unexpectedly", zap.Error(err))
	}

	zapLog.Info("Command consumer stopped gracefully")
}
