package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/rhuss/docchat/pkg/mcpserver"
)

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve document chat as MCP tools over stdio or streamable HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "http", Usage: "Listen address for streamable HTTP (default: stdio)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			opts := []mcpserver.Option{mcpserver.WithLogger(a.logger)}
			if a.store != nil {
				opts = append(opts, mcpserver.WithStore(a.store))
			}
			server := mcpserver.New(a.client, opts...)

			addr := a.cfg.MCP.HTTPAddr
			if cmd.IsSet("http") {
				addr = cmd.String("http")
			}

			ctx, stop := interruptContext(ctx)
			defer stop()

			if addr == "" {
				a.logger.Info("serving MCP over stdio")
				return mcpserver.ServeStdio(ctx, server)
			}

			httpServer := &http.Server{
				Addr:              addr,
				Handler:           mcpserver.HTTPHandler(server),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("serving MCP over streamable HTTP", "addr", addr, "path", "/mcp")
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}
}
