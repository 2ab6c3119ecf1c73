package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/finofficer/autoreply/cmd/mainconfig"
	"github.com/finofficer/autoreply/internal/api/router"
	appconfig "github.com/finofficer/autoreply/internal/config"
	"github.com/finofficer/autoreply/internal/http/handlers"
	"github.com/finofficer/autoreply/internal/pipeline"
	"github.com/finofficer/autoreply/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting autoreply API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	deps, err := mainconfig.BuildEngine(ctx, cfg, awsCfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// With the in-memory queue the API also consumes what it enqueues,
	// so a single binary serves development end to end.
	var publisher *pipeline.Publisher
	var worker *pipeline.Worker
	if cfg.UseMemoryQueue {
		queue := pipeline.NewMemoryQueue(256)
		publisher = pipeline.NewPublisher(queue, logger)
		worker = pipeline.NewWorker(deps.Engine, queue, logger,
			pipeline.WithWorkerCount(cfg.WorkerCount),
		)
		worker.Start(workerCtx)
		logger.Info("in-memory queue enabled", "workers", cfg.WorkerCount)
	} else if cfg.InboundQueueURL != "" {
		queue := pipeline.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.InboundQueueURL)
		publisher = pipeline.NewPublisher(queue, logger)
	}

	// A typed-nil *Publisher must not reach the handler's interface field,
	// so the nil case passes an untyped nil.
	var emailHandler *handlers.EmailHandler
	if publisher != nil {
		emailHandler = handlers.NewEmailHandler(publisher, deps.Engine, logger)
	} else {
		emailHandler = handlers.NewEmailHandler(nil, deps.Engine, logger)
	}
	r := router.New(&router.Config{
		Logger:           logger,
		EmailHandler:     emailHandler,
		TemplatesHandler: handlers.NewTemplatesHandler(deps.Templates),
		MetricsHandler:   promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()
	logger.Info("API server listening", "addr", srv.Addr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down API server...")
	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if worker != nil {
		worker.Wait()
	}
	logger.Info("API server stopped")
}
