package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/technosupport/trackerd/internal/config"
	"github.com/technosupport/trackerd/internal/ingest/noengine"
	"github.com/technosupport/trackerd/internal/supervisor"
)

func main() {
	configPath := os.Getenv("TRACKERD_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	watcher, err := config.NewWatcher(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	sup := supervisor.New(supervisor.Config{
		Loaded:        watcher.Current(),
		Watcher:       watcher,
		EngineFactory: noengine.Factory{},
		HTTPAddr:      envOr("TRACKERD_HTTP_ADDR", ":8090"),
		NATSURL:       os.Getenv("NATS_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sup.Run(ctx); err != nil {
		log.Fatalf("supervisor: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
