// Command docchat is a terminal client for a document question-answering
// backend. It uploads documents, asks questions with streamed answers,
// shows thread history and can expose the same operations as MCP tools.
//
// Settings come from the docchat config file, a .env file and DOCCHAT_*
// environment variables; global flags override them.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/rhuss/docchat/pkg/client"
	"github.com/rhuss/docchat/pkg/config"
	"github.com/rhuss/docchat/pkg/debug"
	"github.com/rhuss/docchat/pkg/logging"
	"github.com/rhuss/docchat/pkg/storage"
	"github.com/rhuss/docchat/pkg/storage/memory"
	"github.com/rhuss/docchat/pkg/storage/postgres"
)

func main() {
	cmd := &cli.Command{
		Name:  "docchat",
		Usage: "Chat with your documents",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "Path to config file"},
			&cli.StringFlag{Name: "log", Usage: "Log level: debug, info, warn, error"},
			&cli.StringFlag{Name: "backend", Usage: "Backend URL"},
		},
		Commands: []*cli.Command{
			uploadCommand(),
			askCommand(),
			chatCommand(),
			historyCommand(),
			threadsCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// app bundles what every subcommand needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	client *client.Client
	store  storage.TranscriptStore
}

// setup loads configuration, applies global flag overrides and builds the
// backend client and transcript store. The caller must call close.
func setup(ctx context.Context, cmd *cli.Command) (*app, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if cmd.IsSet("backend") {
		cfg.Backend.URL = cmd.String("backend")
	}
	level := cfg.Log.Level
	if cmd.IsSet("log") {
		level = cmd.String("log")
	}
	debug.Init(cfg.Log.Debug)
	if len(debug.Categories()) > 0 && !cmd.IsSet("log") {
		// Categories only print at debug level.
		level = "debug"
	}

	// Logs go to stderr so that answers on stdout stay pipeable.
	logger, err := logging.Setup(os.Stderr, level)
	if err != nil {
		return nil, err
	}

	ccfg := client.DefaultConfig(cfg.Backend.URL)
	ccfg.APIKey = cfg.Backend.APIKey
	ccfg.Timeout = cfg.Backend.Timeout
	ccfg.ReadBufferSize = cfg.Backend.ReadBufferSize
	ccfg.UserAgent = cfg.Backend.UserAgent
	c, err := client.New(ccfg)
	if err != nil {
		return nil, fmt.Errorf("creating backend client: %w", err)
	}

	store, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, client: c, store: store}, nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing store", "error", err)
		}
	}
	a.client.Close()
}

// openStore builds the configured transcript store. It returns nil when
// storage is disabled.
func openStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.TranscriptStore, error) {
	switch cfg.Type {
	case "none", "":
		logger.Debug("transcript storage disabled")
		return nil, nil
	case "memory":
		logger.Debug("transcript storage enabled", "type", "memory", "max_size", cfg.MaxSize)
		return memory.New(cfg.MaxSize), nil
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		logger.Debug("transcript storage enabled", "type", "postgres")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
