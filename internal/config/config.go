package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	ChatModel      string `envconfig:"CHAT_MODEL" default:"gpt-4o"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL"`

	// Routing thresholds for the response pipeline
	ReturnThreshold int `envconfig:"RETURN_THRESHOLD" default:"70"`
	RetryLowerBound int `envconfig:"RETRY_LOWER_BOUND" default:"50"`

	RetrievalLimit int `envconfig:"RETRIEVAL_LIMIT" default:"5"`

	AgentTimeout time.Duration `envconfig:"AGENT_TIMEOUT" default:"30s"`

	// Per-learner budget of pipeline runs within a rolling window
	UserCallBudget int           `envconfig:"USER_CALL_BUDGET" default:"10"`
	UserCallWindow time.Duration `envconfig:"USER_CALL_WINDOW" default:"1m"`

	// Minimum independent votes before a gold-set escalation resolves
	QuorumSize int `envconfig:"QUORUM_SIZE" default:"3"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("LUGHA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.RetryLowerBound > cfg.ReturnThreshold {
		return nil, fmt.Errorf("retry lower bound %d exceeds return threshold %d", cfg.RetryLowerBound, cfg.ReturnThreshold)
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

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
