// Package mainconfig centralizes the shared wiring of the api and worker
// binaries: AWS SDK setup, LLM backend selection, mail provider selection
// and pipeline engine assembly.
package mainconfig

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/finofficer/autoreply/internal/config"
	"github.com/finofficer/autoreply/internal/archive"
	"github.com/finofficer/autoreply/internal/notify"
	"github.com/finofficer/autoreply/internal/observability/metrics"
	"github.com/finofficer/autoreply/internal/pipeline"
	"github.com/finofficer/autoreply/internal/reply"
	"github.com/finofficer/autoreply/internal/stage"
	"github.com/finofficer/autoreply/internal/store"
	"github.com/finofficer/autoreply/internal/tone"
	"github.com/finofficer/autoreply/pkg/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

// LoadAWSConfig centralizes AWS SDK initialization so all binaries share the
// same LocalStack/production wiring.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return aws.Config{}, err
	}

	if endpoint := cfg.AWSEndpointOverride; endpoint != "" {
		awsCfg.EndpointResolverWithOptions = aws.EndpointResolverWithOptionsFunc(
			func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
				switch service {
				case sqs.ServiceID, s3.ServiceID, sesv2.ServiceID:
					return aws.Endpoint{
						URL:           endpoint,
						PartitionID:   "aws",
						SigningRegion: cfg.AWSRegion,
					}, nil
				default:
					return aws.Endpoint{}, &aws.EndpointNotFoundError{}
				}
			},
		)
	}

	return awsCfg, nil
}

// disabledLLM always errors, so the analyzer degrades to its default
// analysis when no backend is configured.
type disabledLLM struct{}

func (disabledLLM) Complete(context.Context, tone.LLMRequest) (tone.LLMResponse, error) {
	return tone.LLMResponse{}, fmt.Errorf("no language-model backend configured")
}

// BuildAnalyzer selects the LLM backend per LLM_PROVIDER and wraps it in a
// tone analyzer. With "auto" and both backends configured, Bedrock is the
// primary and OpenAI the fallback.
func BuildAnalyzer(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) *tone.Analyzer {
	var bedrock tone.LLMClient
	if cfg.BedrockModelID != "" {
		bedrock = tone.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
	}
	var openai tone.LLMClient
	if c := tone.NewOpenAIClient(tone.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
	}); c != nil {
		openai = c
	}

	var llm tone.LLMClient
	switch cfg.LLMProvider {
	case "bedrock":
		llm = bedrock
	case "openai":
		llm = openai
	default:
		switch {
		case bedrock != nil && openai != nil:
			llm = tone.NewFallbackClient(bedrock, openai, logger)
		case bedrock != nil:
			llm = bedrock
		default:
			llm = openai
		}
	}
	if llm == nil {
		logger.Warn("no language-model backend configured, tone analysis will use defaults")
		llm = disabledLLM{}
	}

	return tone.NewAnalyzer(llm, logger,
		tone.WithTimeout(cfg.LLMTimeout),
		tone.WithSummaryMaxLen(cfg.SummaryMaxLen),
	)
}

// BuildSender selects the mail provider per EMAIL_PROVIDER. With "auto",
// SendGrid wins when its API key is set, then SES, then the logging stub.
func BuildSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	sendgrid := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger)

	var ses *notify.SESSender
	if cfg.SESFromEmail != "" {
		ses = notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
	}

	switch cfg.EmailProvider {
	case "sendgrid":
		if sendgrid != nil {
			return sendgrid
		}
	case "ses":
		if ses != nil {
			return ses
		}
	default:
		if sendgrid != nil {
			return sendgrid
		}
		if ses != nil {
			return ses
		}
	}
	logger.Warn("no mail provider configured, replies will be logged only")
	return notify.NewStubEmailSender(logger)
}

// Deps is everything BuildEngine assembled, plus the cleanup that releases
// the underlying connections.
type Deps struct {
	Engine    *pipeline.Engine
	Templates *reply.TemplateStore
	Metrics   *metrics.PipelineMetrics
	Close     func()
}

// BuildEngine assembles the full pipeline engine from configuration.
func BuildEngine(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (*Deps, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("mainconfig: DATABASE_URL is required")
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("mainconfig: connect database: %w", err)
	}
	messages := store.NewMessages(pool)

	templates := reply.NewTemplateStore(cfg.TemplateDir, logger)
	if err := templates.EnsureDefaults(); err != nil {
		pool.Close()
		return nil, err
	}
	if err := templates.Load(); err != nil {
		pool.Close()
		return nil, err
	}

	pipelineMetrics := metrics.NewPipelineMetrics(nil)
	opts := []pipeline.EngineOption{
		pipeline.WithMetrics(pipelineMetrics),
		pipeline.WithSendTimeout(cfg.SendTimeout),
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		opts = append(opts, pipeline.WithDedupe(store.NewDedupe(redisClient, cfg.DedupeTTL, nil)))
	}

	spam, validator, err := buildStages(ctx, cfg, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	opts = append(opts,
		pipeline.WithSpamChecker(spam),
		pipeline.WithAttachmentValidator(validator),
	)

	switch {
	case cfg.ArchiveBucket != "":
		opts = append(opts, pipeline.WithArchiver(
			archive.NewS3Writer(s3.NewFromConfig(awsCfg), cfg.ArchiveBucket, logger)))
	case cfg.ArchiveDir != "":
		opts = append(opts, pipeline.WithArchiver(archive.NewDirWriter(cfg.ArchiveDir, logger)))
	}

	engine := pipeline.NewEngine(
		BuildAnalyzer(cfg, awsCfg, logger),
		messages,
		templates,
		BuildSender(cfg, awsCfg, logger),
		logger,
		opts...,
	)

	return &Deps{
		Engine:    engine,
		Templates: templates,
		Metrics:   pipelineMetrics,
		Close: func() {
			pool.Close()
			if redisClient != nil {
				_ = redisClient.Close()
			}
		},
	}, nil
}

// buildStages wires the spam and attachment stages: remote MCP tool servers
// when their URLs are configured, otherwise the in-process rule
// implementations.
func buildStages(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (stage.SpamChecker, stage.AttachmentValidator, error) {
	var spam stage.SpamChecker = stage.NewRuleSpamChecker(stage.DefaultSpamRules())
	var validator stage.AttachmentValidator = stage.NewSizeTypeValidator(stage.DefaultAttachmentFilters())

	if cfg.SpamStageURL != "" {
		c, err := stage.NewStageClient(ctx, cfg.SpamStageURL, Version)
		if err != nil {
			return nil, nil, fmt.Errorf("mainconfig: spam stage: %w", err)
		}
		spam = stage.NewMCPSpamChecker(c, cfg.StageCallTimeout)
		logger.Info("spam screening delegated to stage server", "url", cfg.SpamStageURL)
	}
	if cfg.AttachmentStageURL != "" {
		c, err := stage.NewStageClient(ctx, cfg.AttachmentStageURL, Version)
		if err != nil {
			return nil, nil, fmt.Errorf("mainconfig: attachment stage: %w", err)
		}
		validator = stage.NewMCPAttachmentValidator(c, cfg.StageCallTimeout)
		logger.Info("attachment validation delegated to stage server", "url", cfg.AttachmentStageURL)
	}
	return spam, validator, nil
}
