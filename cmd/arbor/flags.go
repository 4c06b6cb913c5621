package main

import (
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/arbor/internal/compiler"
)

var (
	configFile string
	logLevel   string
	logFormat  string
	debug      bool

	bufferLength int
	ports        int
	mults        int
	debugProgram bool
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Usage:       "path to config.yaml",
		Value:       configPath(),
		Destination: &configFile,
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

// limitFlags exposes the hardware limits a compilation is solved against.
func limitFlags() []cli.Flag {
	def := compiler.DefaultConfig()
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "buffer-length",
			Aliases:     []string{"buf"},
			Usage:       "elements per feature buffer row",
			Value:       def.BufferLength,
			Destination: &bufferLength,
		},
		&cli.IntFlag{
			Name:        "ports",
			Usage:       "number of feature ports",
			Value:       def.Ports,
			Destination: &ports,
		},
		&cli.IntFlag{
			Name:        "mults",
			Usage:       "number of multipliers",
			Value:       def.Mults,
			Destination: &mults,
		},
		&cli.BoolFlag{
			Name:        "debug-program",
			Usage:       "emit a debug instruction after every run",
			Destination: &debugProgram,
		},
	}
}

func modelArg(cmd *cli.Command, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return cmd.Args().First()
}
