package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	UseMemoryQueue bool
	WorkerCount    int
	DatabaseURL    string

	// Inbound queue
	InboundQueueURL string

	// LLM backend
	LLMProvider    string // "bedrock", "openai" or "auto"
	BedrockModelID string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	LLMTimeout     time.Duration
	SummaryMaxLen  int

	// Templates
	TemplateDir string

	// Archive
	ArchiveBucket string
	ArchiveDir    string

	// Mail delivery
	EmailProvider     string // "sendgrid", "ses" or "stub"
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESFromName       string
	SendTimeout       time.Duration

	// Redis (inbound dedupe)
	RedisAddr     string
	RedisPassword string
	DedupeTTL     time.Duration

	// Analysis stage servers (MCP). Empty means run the built-in rule
	// checks in process.
	SpamStageURL       string
	AttachmentStageURL string
	StageCallTimeout   time.Duration

	// AWS
	AWSRegion           string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", false),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		InboundQueueURL: getEnv("INBOUND_QUEUE_URL", ""),

		LLMProvider:    strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "auto"))),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		LLMTimeout:     getEnvAsDuration("LLM_TIMEOUT", 20*time.Second),
		SummaryMaxLen:  getEnvAsInt("SUMMARY_MAX_LEN", 200),

		TemplateDir: getEnv("TEMPLATE_DIR", "/data/templates"),

		ArchiveBucket: getEnv("ARCHIVE_BUCKET", ""),
		ArchiveDir:    getEnv("ARCHIVE_DIR", ""),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Fin Officer"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "Fin Officer"),
		SendTimeout:       getEnvAsDuration("SEND_TIMEOUT", 15*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		DedupeTTL:     getEnvAsDuration("DEDUPE_TTL", 24*time.Hour),

		SpamStageURL:       getEnv("SPAM_STAGE_URL", ""),
		AttachmentStageURL: getEnv("ATTACHMENT_STAGE_URL", ""),
		StageCallTimeout:   getEnvAsDuration("STAGE_CALL_TIMEOUT", 5*time.Second),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
