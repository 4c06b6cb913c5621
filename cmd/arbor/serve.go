package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/arbor/internal/api"
	"github.com/samcharles93/arbor/internal/logger"
	"github.com/samcharles93/arbor/internal/version"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		maxBuilds   int
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the compile API",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.IntFlag{
				Name:        "max-builds",
				Usage:       "number of builds kept in memory",
				Value:       64,
				Destination: &maxBuilds,
			},
		}, limitFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			fileCfg, err := LoadConfig(configFile)
			if err != nil {
				return err
			}
			applyServeConfig(cmd, fileCfg, &addr, &maxBuilds)
			cfg, err := compileConfig(cmd)
			if err != nil {
				return err
			}

			server := api.NewServer(cfg, api.NewBuildStore(maxBuilds), version.String(), log)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "buffer_length", cfg.BufferLength, "ports", cfg.Ports, "mults", cfg.Mults)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
