package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"
	weaviateclient "github.com/weaviate/weaviate-go-client/v5/weaviate"

	wstore "samachar/backend/internal/adapter/weaviate"
	"samachar/backend/internal/chunkstore"
	"samachar/backend/internal/config"
	"samachar/backend/internal/document"
	"samachar/backend/internal/embedding"
	"samachar/backend/internal/index"
)

// ChunkBackend joins the write side (pipeline) and read side (retriever)
// of chunk content storage.
type ChunkBackend interface {
	PutChunks(ctx context.Context, chunks []document.Chunk) error
	GetChunk(ctx context.Context, chunkID string) (document.Chunk, error)
	CountChunks(ctx context.Context) (int, error)
}

type Dependencies struct {
	DB          *sql.DB
	Index       index.Index
	Chunks      ChunkBackend
	NSQProducer *nsq.Producer
}

func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	// Database
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	// Retry loop
	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		slog.Warn("failed to ping db, retrying...", "attempt", i+1)
		time.Sleep(retryDelay)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	// Migrations
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver error: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationPath, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migration instance error: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return nil, fmt.Errorf("migration up error: %w", err)
	}

	deps := &Dependencies{DB: db}

	// Vector backend
	switch cfg.VectorBackend {
	case "weaviate":
		wCfg := weaviateclient.Config{Host: cfg.WeaviateHost, Scheme: cfg.WeaviateScheme}
		wClient, err := weaviateclient.NewClient(wCfg)
		if err != nil {
			return nil, fmt.Errorf("weaviate client error: %w", err)
		}

		schemaClient := wstore.NewSchemaClient(wClient)
		ensure := func(ctx context.Context) error {
			return wstore.EnsureSchema(ctx, schemaClient)
		}
		if err := EnsureSchemaWithRetry(ctx, ensure, cfg.BootstrapRetryAttempts, retryDelay); err != nil {
			return nil, fmt.Errorf("weaviate schema error: %w", err)
		}

		store := wstore.NewStore(wClient)
		deps.Index = store
		deps.Chunks = store
	case "memory":
		deps.Index = index.NewMemory()
		deps.Chunks = chunkstore.NewMemory()
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}

	// NSQ producer, only when the index worker is on. Without it articles
	// are indexed inline on the request path.
	if cfg.EnableIndexWorker {
		producer, err := nsq.NewProducer(cfg.NSQDHost, nsq.NewConfig())
		if err != nil {
			return nil, fmt.Errorf("nsq producer error: %w", err)
		}
		deps.NSQProducer = producer
	}

	return deps, nil
}

// NewEmbedderFromConfig builds the embedding backend named by the config.
// The gemini constructor is injected so local runs and tests never touch
// the network path.
func NewEmbedderFromConfig(ctx context.Context, cfg *config.Config, newGemini func(ctx context.Context, apiKey string) (embedding.Embedder, error)) (embedding.Embedder, error) {
	switch cfg.EmbedderBackend {
	case "gemini":
		return newGemini(ctx, cfg.GeminiAPIKey)
	case "hashing":
		return embedding.NewHashingEmbedder(cfg.EmbeddingDim)
	default:
		return nil, fmt.Errorf("unknown embedder backend %q", cfg.EmbedderBackend)
	}
}

// EnsureSchemaWithRetry keeps trying the schema check while the vector
// backend is still coming up.
func EnsureSchemaWithRetry(ctx context.Context, ensure func(ctx context.Context) error, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = ensure(ctx); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}
