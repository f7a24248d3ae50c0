package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"samachar/backend/features/article"
	"samachar/backend/features/search"
	"samachar/backend/features/stats"
	"samachar/backend/internal/artifact"
	"samachar/backend/internal/config"
	"samachar/backend/internal/embedding"
	"samachar/backend/internal/middleware"
	"samachar/backend/internal/pipeline"
	"samachar/backend/internal/retrieval"
	"samachar/backend/internal/worker"
)

type App struct {
	Handler        http.Handler
	ArticleService *article.Service
	IndexConsumer  *worker.IndexConsumer

	port int
}

func New(cfg *config.Config, deps *Dependencies, embedder embedding.Embedder) (*App, error) {
	var artifacts *artifact.Store
	if cfg.ArtifactDir != "" {
		var err error
		artifacts, err = artifact.NewStore(cfg.ArtifactDir)
		if err != nil {
			return nil, fmt.Errorf("artifact store: %w", err)
		}
	}

	pipe, err := pipeline.New(embedder, deps.Index, deps.Chunks, pipeline.Config{
		MaxTokens:   cfg.ChunkMaxTokens,
		Concurrency: cfg.IngestionConcurrency,
		Artifacts:   artifacts,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	// Feature: Article
	var pub article.EventPublisher
	if deps.NSQProducer != nil {
		pub = deps.NSQProducer
	}
	articleRepo := article.NewPostgresRepo(deps.DB)
	articleService := article.NewService(articleRepo, pipe, pub)
	articleHandler := article.NewHandler(articleService)

	// Feature: Search
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retrievalService := retrieval.NewService(embedder, deps.Index, deps.Chunks, queryLogger)
	searchHandler := search.NewHandler(retrievalService, cfg.TopKDefault)

	// Feature: Stats
	statsHandler := stats.NewHandler(articleRepo, deps.Chunks)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /articles", middleware.CorrelationID(enableCORS(articleHandler.Create)))
	mux.Handle("GET /articles", middleware.CorrelationID(enableCORS(articleHandler.List)))
	mux.Handle("GET /articles/{id}", middleware.CorrelationID(enableCORS(articleHandler.Get)))
	mux.Handle("POST /articles/reindex", middleware.CorrelationID(enableCORS(articleHandler.Reindex)))

	mux.Handle("POST /query", middleware.CorrelationID(enableCORS(searchHandler.Query)))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:        mux,
		ArticleService: articleService,
		IndexConsumer:  worker.NewIndexConsumer(pipe),
		port:           cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
