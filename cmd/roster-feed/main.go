// Command roster-feed analyzes roster uploads published on NATS.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"roster_parser/internal/config"
	"roster_parser/internal/feed"
	"roster_parser/internal/logger"
	"roster_parser/internal/storage"
)

var CLI struct {
	EnvFile       string `help:"Environment file to load." default:".env" type:"path"`
	URL           string `help:"NATS server URL (default NATS_URL)." name:"url"`
	Subject       string `help:"Request subject (default ROSTER_SUBJECT)."`
	ResultSubject string `help:"Result subject (default ROSTER_RESULT_SUBJECT)."`
	Queue         string `help:"Queue group (default ROSTER_QUEUE_GROUP)."`
	Archive       string `help:"Archive DSN (default ROSTER_ARCHIVE_DSN)."`
	Debug         bool   `help:"Enable debug logging."`
	LogDir        string `help:"Directory for the rotating log file." type:"path"`
}

func main() {
	kong.Parse(&CLI,
		kong.Name("roster-feed"),
		kong.Description("NATS worker that analyzes roster uploads."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(CLI.EnvFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	override(&cfg.NATSURL, CLI.URL)
	override(&cfg.Subject, CLI.Subject)
	override(&cfg.ResultSubject, CLI.ResultSubject)
	override(&cfg.QueueGroup, CLI.Queue)
	override(&cfg.ArchiveDSN, CLI.Archive)
	override(&cfg.LogDir, CLI.LogDir)

	if err := logger.Init(logger.Config{Debug: CLI.Debug || cfg.Debug, Dir: cfg.LogDir, Prefix: "roster-feed"}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: init logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := &feed.Handler{
		Thresholds:    cfg.Thresholds,
		ResultSubject: cfg.ResultSubject,
	}
	if cfg.ArchiveDSN != "" {
		store, err := storage.Open(ctx, cfg.ArchiveDSN)
		if err != nil {
			logger.Fatal("open archive", "err", err)
		}
		defer func() { _ = store.Close() }()
		handler.Store = store
	}
	if cfg.ClickHouse.Enabled() {
		ch, err := storage.OpenClickHouse(ctx, cfg.ClickHouse)
		if err != nil {
			logger.Fatal("open clickhouse", "err", err)
		}
		defer func() { _ = ch.Close() }()
		if err := ch.CreateSchema(ctx); err != nil {
			logger.Fatal("clickhouse schema", "err", err)
		}
		handler.Facts = ch
	}

	w := &feed.Worker{Subject: cfg.Subject, Queue: cfg.QueueGroup, Handler: handler}
	if err := w.Run(ctx, cfg.NATSURL); err != nil {
		logger.Error("feed error", "err", err)
		os.Exit(1)
	}
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
