package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"

	"github.com/finofficer/autoreply/cmd/mainconfig"
	appconfig "github.com/finofficer/autoreply/internal/config"
	"github.com/finofficer/autoreply/internal/pipeline"
	"github.com/finofficer/autoreply/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting autoreply worker", "env", cfg.Env)

	ctx := context.Background()
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	if cfg.InboundQueueURL == "" {
		logger.Error("INBOUND_QUEUE_URL is required")
		os.Exit(1)
	}

	deps, err := mainconfig.BuildEngine(ctx, cfg, awsCfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	queue := pipeline.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.InboundQueueURL)
	worker := pipeline.NewWorker(deps.Engine, queue, logger,
		pipeline.WithWorkerCount(cfg.WorkerCount),
	)

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	worker.Start(workerCtx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("worker stopped")
	case <-doneCtx.Done():
		logger.Error("worker shutdown timed out", "error", doneCtx.Err())
	}
}
