package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for memloop-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3600"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL with pgvector)
	Database DatabaseConfig `yaml:"database"`

	// Embeddings endpoint configuration (OpenAI-compatible)
	Embeddings EmbeddingsConfig `yaml:"embeddings"`

	// Ranking defaults for hybrid search
	Ranking RankingConfig `yaml:"ranking"`

	// Learning loop settings
	Learning LearningConfig `yaml:"learning"`

	// MigrationsPath is the directory containing SQL migration files.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host                string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port                int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User                string `yaml:"user" env:"PGUSER" env-default:"memloop"`
	Password            string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database            string `yaml:"database" env:"PGDATABASE" env-default:"memloop_engine"`
	MaxConnections      int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MinConnections      int32  `yaml:"min_connections" env:"PGMIN_CONNECTIONS" env-default:"2"`
	SSLMode             string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	QueryTimeoutSeconds int    `yaml:"query_timeout_seconds" env:"PGQUERY_TIMEOUT_SECONDS" env-default:"10"`
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// EmbeddingsConfig holds the OpenAI-compatible embedding endpoint settings.
type EmbeddingsConfig struct {
	Endpoint       string `yaml:"endpoint" env:"EMBEDDINGS_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model          string `yaml:"model" env:"EMBEDDINGS_MODEL" env-default:"text-embedding-3-small"`
	APIKey         string `yaml:"-" env:"EMBEDDINGS_API_KEY"` // Secret - not in YAML
	Dimensions     int    `yaml:"dimensions" env:"EMBEDDINGS_DIMENSIONS" env-default:"1536"`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"EMBEDDINGS_TIMEOUT_SECONDS" env-default:"30"`
	// Mock replaces the remote endpoint with a deterministic local
	// embedder. Local development only.
	Mock bool `yaml:"mock" env:"EMBEDDINGS_MOCK" env-default:"false"`
}

// RankingConfig holds default weights for hybrid search. Callers can
// override weights per search; these are the server-side defaults.
type RankingConfig struct {
	VectorWeight  float64 `yaml:"vector_weight" env:"RANKING_VECTOR_WEIGHT" env-default:"0.6"`
	TextWeight    float64 `yaml:"text_weight" env:"RANKING_TEXT_WEIGHT" env-default:"0.3"`
	RecencyWeight float64 `yaml:"recency_weight" env:"RANKING_RECENCY_WEIGHT" env-default:"0.1"`
	FeedbackBonus float64 `yaml:"feedback_bonus" env:"RANKING_FEEDBACK_BONUS" env-default:"0.15"`
}

// LearningConfig holds learning-loop settings.
type LearningConfig struct {
	// RefreshIntervalMinutes is how often the helpfulness refresher runs.
	RefreshIntervalMinutes int `yaml:"refresh_interval_minutes" env:"LEARNING_REFRESH_INTERVAL_MINUTES" env-default:"30"`
	// MinPatternOccurrences is the default detection threshold.
	MinPatternOccurrences int `yaml:"min_pattern_occurrences" env:"LEARNING_MIN_PATTERN_OCCURRENCES" env-default:"3"`
}

// Load reads configuration from config.yaml with environment overrides. A
// missing config.yaml is fine; the environment alone fully describes a
// deployment.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment config: %w", err)
		}
	}

	if cfg.Embeddings.Dimensions <= 0 {
		return nil, fmt.Errorf("embeddings dimensions must be positive, got %d", cfg.Embeddings.Dimensions)
	}
	if !cfg.Embeddings.Mock && cfg.Embeddings.Endpoint == "" {
		return nil, fmt.Errorf("embeddings endpoint is required")
	}

	return cfg, nil
}
