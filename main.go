package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nsqio/go-nsq"

	"samachar/backend/internal/adapter/gemini"
	"samachar/backend/internal/app"
	"samachar/backend/internal/config"
	"samachar/backend/internal/embedding"
	"samachar/backend/internal/logger"
)

func main() {
	// Initialize structured logger
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer deps.DB.Close()

	embedder, err := app.NewEmbedderFromConfig(ctx, cfg,
		func(ctx context.Context, apiKey string) (embedding.Embedder, error) {
			e, err := gemini.NewEmbedder(ctx, apiKey)
			if err != nil {
				return nil, err
			}
			return e, nil
		})
	if err != nil {
		slog.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}
	if closer, ok := embedder.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	a, err := app.New(cfg, deps, embedder)
	if err != nil {
		slog.Error("failed to build app", "error", err)
		os.Exit(1)
	}

	// Index worker: pre-create the topic and attach the consumer. NSQ
	// creates topics lazily on publish, but a consumer querying lookupd
	// gets 404 until the topic exists.
	if cfg.EnableIndexWorker {
		go preCreateTopic(cfg.NSQDHost, config.TopicIndexTask)

		consumer, err := nsq.NewConsumer(config.TopicIndexTask, "backend", nsq.NewConfig())
		if err != nil {
			slog.Error("failed to create NSQ consumer", "error", err)
			os.Exit(1)
		}
		consumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
			return a.IndexConsumer.HandleMessage(m)
		}))
		if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
			slog.Error("failed to connect to NSQLookupd", "error", err)
		} else {
			slog.Info("NSQ index consumer connected", "topic", config.TopicIndexTask)
		}
		defer consumer.Stop()
	}

	if err := a.Run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// preCreateTopic hits the nsqd HTTP API (TCP port + 1) to create the topic
// before any consumer looks it up.
func preCreateTopic(nsqdHost, topic string) {
	host, _, err := net.SplitHostPort(nsqdHost)
	if err != nil {
		host = nsqdHost
	}
	url := fmt.Sprintf("http://%s:4151/topic/create?topic=%s", host, topic)

	time.Sleep(2 * time.Second)
	resp, err := http.Post(url, "application/json", nil) // #nosec G107 -- URL is built from internal NSQ config, not user input
	if err != nil {
		slog.Warn("failed to pre-create NSQ topic", "topic", topic, "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		slog.Info("NSQ topic pre-created", "topic", topic)
	}
}
