package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"samachar"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"samachar"`

	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`

	// Backend selection for the pluggable capabilities. "memory"/"hashing"
	// keep the whole pipeline in-process for local runs and tests.
	VectorBackend   string `envconfig:"VECTOR_BACKEND" default:"weaviate"`
	EmbedderBackend string `envconfig:"EMBEDDER_BACKEND" default:"gemini"`
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	EmbeddingDim    int    `envconfig:"EMBEDDING_DIM" default:"256"`

	// Indexing pipeline
	ChunkMaxTokens       int    `envconfig:"CHUNK_MAX_TOKENS" default:"512"`
	IngestionConcurrency int    `envconfig:"INGESTION_CONCURRENCY" default:"8"`
	ArtifactDir          string `envconfig:"ARTIFACT_DIR"`
	EnableIndexWorker    bool   `envconfig:"ENABLE_INDEX_WORKER" default:"false"`

	// Retrieval
	TopKDefault  int    `envconfig:"TOP_K_DEFAULT" default:"5"`
	QueryLogPath string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`

	// Server
	ServerPort    int    `envconfig:"SERVER_PORT" default:"8081"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars may be set in the shell; a missing .env is not an error.
	_ = godotenv.Load(".env")
	if cwd, err := os.Getwd(); err == nil {
		_ = godotenv.Load(filepath.Join(cwd, "../.env"))
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.ChunkMaxTokens <= 0 {
		return fmt.Errorf("%w: CHUNK_MAX_TOKENS must be positive", ErrMissingRequired)
	}
	if c.TopKDefault <= 0 {
		return fmt.Errorf("%w: TOP_K_DEFAULT must be positive", ErrMissingRequired)
	}
	switch c.VectorBackend {
	case "weaviate", "memory":
	default:
		return fmt.Errorf("%w: VECTOR_BACKEND must be weaviate or memory, got %q", ErrMissingRequired, c.VectorBackend)
	}
	switch c.EmbedderBackend {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingRequired)
		}
	case "hashing":
		if c.EmbeddingDim <= 0 {
			return fmt.Errorf("%w: EMBEDDING_DIM must be positive", ErrMissingRequired)
		}
	default:
		return fmt.Errorf("%w: EMBEDDER_BACKEND must be gemini or hashing, got %q", ErrMissingRequired, c.EmbedderBackend)
	}
	if c.VectorBackend == "weaviate" && c.WeaviateHost == "" {
		return fmt.Errorf("%w: WEAVIATE_HOST", ErrMissingRequired)
	}
	return nil
}
