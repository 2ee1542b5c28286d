// cmd/risk-service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"depression-risk-service/internal/api"
	"depression-risk-service/internal/artifacts"
	"depression-risk-service/internal/common/camunda"
	"depression-risk-service/internal/common/config"
	apperrors "depression-risk-service/internal/common/errors"
	"depression-risk-service/internal/common/logger"
	"depression-risk-service/internal/common/observability"
	"depression-risk-service/internal/common/validation"
	pdr "depression-risk-service/internal/workers/assessment/predict-depression-risk"
)

// permanentError stops retryWithBackoff early.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
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

func loadConfig() (*config.Config, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := loadConfig()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting risk service...",
		zap.String("environment", cfg.App.Environment),
		zap.String("artifactSource", cfg.Artifacts.Source),
	)

	obs, err := observability.New(observability.Options{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.App.Version,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
	})
	if err != nil {
		zapLog.Fatal("observability setup failed", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Load model artifacts, retrying only while the source is unreachable ---
	var store *artifacts.Store
	err = retryWithBackoff(func() error {
		var err error
		store, err = artifacts.LoadFromConfig(ctx, cfg, log)
		if se, ok := apperrors.AsStandardError(err); ok && !se.Retryable {
			return &permanentError{err: err}
		}
		return err
	}, 10, 2*time.Second, zapLog, "artifact load")
	if err != nil {
		zapLog.Fatal("model artifacts could not be loaded", zap.Error(err))
	}
	meta := store.Metadata()
	zapLog.Info("Serving model bundle",
		zap.String("bundle", meta.Bundle),
		zap.String("version", meta.Version),
		zap.String("checksum", meta.Checksum),
		zap.String("classifier", meta.ClassifierKind),
	)

	validator, err := validation.NewAssessmentValidator()
	if err != nil {
		zapLog.Fatal("schema compile failed", zap.Error(err))
	}

	// --- HTTP transport ---
	gin.SetMode(gin.ReleaseMode)
	srv, err := api.NewServer(cfg.Server, api.Dependencies{
		Store:     store,
		Validator: validator,
		Obs:       obs,
		Logger:    log,
	})
	if err != nil {
		zapLog.Fatal("http server setup failed", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// --- Optional Zeebe job transport ---
	var (
		zeebe  *camunda.Client
		worker *camunda.CamundaWorker
	)
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")

		handler, err := pdr.NewHandler(pdr.HandlerOptions{
			AppConfig: cfg,
			Scorer:    store.Pipeline(),
			Validator: validator,
			Obs:       obs,
			Logger:    log,
		})
		if err != nil {
			zapLog.Fatal("failed to create predict-depression-risk handler", zap.Error(err))
		}
		if handler.IsEnabled() {
			wcfg := handler.GetConfig()
			worker = camunda.NewWorker(zeebe.GetClient(), pdr.TaskType, wcfg.MaxJobsActive, wcfg.Timeout, handler, log)
		} else {
			zapLog.Info("worker disabled", zap.String("taskType", pdr.TaskType))
		}
	}

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zapLog.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			zapLog.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error draining http server", zap.Error(err))
	}
	if worker != nil {
		worker.Stop()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("Risk service stopped gracefully")
}
