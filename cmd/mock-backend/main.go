// Command mock-backend runs an in-memory document chat backend for local
// development. Answers are deterministic and streamed in small fragments.
//
// Settings come from the docchat config file and DOCCHAT_MOCK_* variables;
// flags override both.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/rhuss/docchat/pkg/config"
	"github.com/rhuss/docchat/pkg/debug"
	"github.com/rhuss/docchat/pkg/logging"
	"github.com/rhuss/docchat/pkg/mockbackend"
)

func main() {
	cmd := &cli.Command{
		Name:  "mock-backend",
		Usage: "Serve a deterministic document chat backend",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "Path to config file"},
			&cli.StringFlag{Name: "log", Usage: "Log level: debug, info, warn, error"},
			&cli.IntFlag{Name: "port", Usage: "Listen port"},
			&cli.IntFlag{Name: "rate-limit", Usage: "Requests per minute per client (0 disables)"},
			&cli.StringFlag{Name: "api-key", Usage: "Require this bearer token"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	mc := cfg.MockBackend
	if cmd.IsSet("port") {
		mc.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("rate-limit") {
		mc.RateLimitRPM = int(cmd.Int("rate-limit"))
	}
	if cmd.IsSet("api-key") {
		mc.APIKey = cmd.String("api-key")
	}
	level := cfg.Log.Level
	if cmd.IsSet("log") {
		level = cmd.String("log")
	}

	debug.Init(cfg.Log.Debug)
	if len(debug.Categories()) > 0 && !cmd.IsSet("log") {
		level = "debug"
	}

	logger, err := logging.Setup(os.Stderr, level)
	if err != nil {
		return err
	}

	srv := mockbackend.New(mockbackend.Config{
		Addr:          fmt.Sprintf(":%d", mc.Port),
		RateLimitRPM:  mc.RateLimitRPM,
		FragmentSize:  mc.FragmentSize,
		FragmentDelay: mc.FragmentDelay,
		APIKey:        mc.APIKey,
		Metrics:       cfg.Observability.Metrics.Enabled,
		ReadTimeout:   mc.ReadTimeout,
		WriteTimeout:  mc.WriteTimeout,
	}, mockbackend.WithLogger(logger))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx)
}
