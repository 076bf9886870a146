package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	IndexBackendFile     = "file"
	IndexBackendPostgres = "postgres"

	LLMProviderOpenAI = "openai"
	LLMProviderGemini = "gemini"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	// DataPath is the SOP folder indexed when no folder is given explicitly.
	DataPath     string `envconfig:"DATA_PATH"`
	IndexPath    string `envconfig:"INDEX_PATH" default:"sop_index"`
	IndexBackend string `envconfig:"INDEX_BACKEND" default:"file"`
	TuningFile   string `envconfig:"TUNING_FILE" default:"sopbot.yaml"`

	DatabaseURL string `envconfig:"DATABASE_URL"`

	OpenAIAPIKey   string        `envconfig:"OPENAI_API_KEY" required:"true"`
	OpenAIBaseURL  string        `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel string        `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-large"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`

	LLMProvider  string `envconfig:"LLM_PROVIDER" default:"openai"`
	ChatModel    string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`

	// Mirror of the index bundle in object storage
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"sopbot-index"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Prefix    string `envconfig:"S3_PREFIX" default:"sop_index"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// APIToken protects the HTTP API when set
	APIToken string `envconfig:"API_TOKEN"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("SOPBOT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks the backend and provider selections.
func (c *Config) Validate() error {
	switch c.IndexBackend {
	case IndexBackendFile:
	case IndexBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("SOPBOT_DATABASE_URL is required for index backend %q", c.IndexBackend)
		}
	default:
		return fmt.Errorf("unknown index backend %q", c.IndexBackend)
	}

	switch c.LLMProvider {
	case LLMProviderOpenAI:
	case LLMProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("SOPBOT_GEMINI_API_KEY is required for llm provider %q", c.LLMProvider)
		}
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLMProvider)
	}

	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}
