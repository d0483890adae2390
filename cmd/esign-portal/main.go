// cmd/esign-portal/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"esign-workflows/internal/common/aws"
	"esign-workflows/internal/common/camunda"
	"esign-workflows/internal/common/config"
	"esign-workflows/internal/common/database"
	"esign-workflows/internal/common/logger"
	"esign-workflows/internal/common/observability"
	"esign-workflows/internal/documents"
	"esign-workflows/internal/orphans"
	"esign-workflows/internal/portal"
	bulksend "esign-workflows/internal/workflows/bulk-send"
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
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting eSignature portal...",
		zap.String("environment", cfg.App.Environment),
		zap.String("address", cfg.Server.Address),
	)

	jaegerEndpoint := ""
	if cfg.Observability.TracingEnabled {
		jaegerEndpoint = cfg.Observability.JaegerEndpoint
	}
	obs := observability.New(observability.Options{
		ServiceName:    cfg.Observability.ServiceName,
		JaegerEndpoint: jaegerEndpoint,
	})
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Document library ---
	library, err := documents.New(ctx, cfg.Documents)
	if err != nil {
		zapLog.Fatal("document library init failed", zap.Error(err))
	}

	reporter, err := newOrphanReporter(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("orphan reporter init failed", zap.Error(err))
	}

	p, err := portal.New(portal.Options{
		Config:    cfg,
		Redis:     redis,
		Documents: library,
		Orphans:   reporter,
		Tracer:    obs.Tracer(),
		Recorder:  obs,
		Logger:    log,
	})
	if err != nil {
		zapLog.Fatal("portal init failed", zap.Error(err))
	}

	// --- Optional Zeebe job worker ---
	var jobHandler *bulksend.JobHandler
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      10 * time.Second,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")

		jobHandler, err = bulksend.NewJobHandler(bulksend.JobHandlerOptions{
			AppConfig:     cfg,
			Camunda:       zeebe,
			Orchestrators: p.Orchestrators,
			Logger:        log,
		})
		if err != nil {
			zapLog.Fatal("failed to create bulk send job handler", zap.Error(err))
		}
		if err := jobHandler.Register(); err != nil {
			zapLog.Fatal("failed to register bulk send job worker", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           p.Handler,
		ReadTimeout:       config.GetDuration(cfg.Server.ReadTimeout),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", srv.Addr), zap.Int("workflows", len(p.Registry.Workflows)))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	if jobHandler != nil {
		jobHandler.Close()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("Portal stopped gracefully")
}

// newOrphanReporter wires the enabled notification channels. Disabled channels
// stay nil interfaces so the reporter skips them.
func newOrphanReporter(ctx context.Context, cfg *config.Config, log logger.Logger) (*orphans.Reporter, error) {
	var email orphans.EmailSender
	var topic orphans.TopicPublisher

	n := cfg.Notifications
	if n.Email.Enabled {
		client, err := aws.NewSESClient(ctx, n.AWS.Region, n.Email.FromEmail)
		if err != nil {
			return nil, fmt.Errorf("ses client: %w", err)
		}
		email = client
	}
	if n.SNS.Enabled {
		client, err := aws.NewSNSClient(ctx, n.AWS.Region, n.SNS.TopicARN)
		if err != nil {
			return nil, fmt.Errorf("sns client: %w", err)
		}
		topic = client
	}

	return orphans.NewReporter(orphans.Config{ToAddresses: n.Email.ToAddresses}, log.Named("orphans"), email, topic), nil
}
