// Command roster-api serves roster analysis over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"roster_parser/internal/api"
	"roster_parser/internal/config"
	"roster_parser/internal/logger"
	"roster_parser/internal/storage"
)

var CLI struct {
	EnvFile string   `help:"Environment file to load." default:".env" type:"path"`
	Port    int      `help:"HTTP port (default API_PORT or 8080)."`
	Auth    bool     `help:"Require an API key (also enabled by API_AUTH)."`
	APIKeys []string `help:"Valid API keys (default API_KEYS)." name:"api-keys"`
	Archive string   `help:"Archive DSN (default ROSTER_ARCHIVE_DSN)."`
	Debug   bool     `help:"Enable debug logging."`
	LogDir  string   `help:"Directory for the rotating log file." type:"path"`
}

func main() {
	kong.Parse(&CLI,
		kong.Name("roster-api"),
		kong.Description("Roster analysis HTTP API."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(CLI.EnvFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if CLI.Port != 0 {
		cfg.APIPort = CLI.Port
	}
	if CLI.Auth {
		cfg.AuthEnabled = true
	}
	if len(CLI.APIKeys) > 0 {
		cfg.APIKeys = CLI.APIKeys
	}
	if CLI.Archive != "" {
		cfg.ArchiveDSN = CLI.Archive
	}
	if CLI.LogDir != "" {
		cfg.LogDir = CLI.LogDir
	}

	if err := logger.Init(logger.Config{Debug: CLI.Debug || cfg.Debug, Dir: cfg.LogDir, Prefix: "roster-api"}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: init logger: %v\n", err)
		os.Exit(1)
	}

	if cfg.AuthEnabled && len(cfg.APIKeys) == 0 {
		logger.Fatal("authentication enabled but no API keys provided")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store storage.Store
	if cfg.ArchiveDSN != "" {
		store, err = storage.Open(ctx, cfg.ArchiveDSN)
		if err != nil {
			logger.Fatal("open archive", "err", err)
		}
		defer func() { _ = store.Close() }()
	}

	apiCfg := api.Config{
		Port:        cfg.APIPort,
		AuthEnabled: cfg.AuthEnabled,
		APIKeys:     cfg.APIKeys,
		Thresholds:  cfg.Thresholds,
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
		apiCfg.Facts = ch
	}

	if err := api.NewServer(store, apiCfg).Run(ctx); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	logger.Info("roster API stopped")
}
