package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/arbor/internal/onnx"
)

func demoCmd() *cli.Command {
	var (
		outPath string
		spec    onnx.ChainSpec
	)

	return &cli.Command{
		Name:  "demo",
		Usage: "Write a small ONNX convolution chain to compile",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output .onnx path",
				Value:       "demo.onnx",
				Destination: &outPath,
			},
			&cli.IntFlag{Name: "size", Usage: "input height and width", Value: 3, Destination: &spec.Size},
			&cli.IntFlag{Name: "channels", Usage: "input channels", Value: 1, Destination: &spec.Channels},
			&cli.IntFlag{Name: "kernel", Usage: "odd filter size", Value: 3, Destination: &spec.Kernel},
			&cli.IntFlag{Name: "layers", Usage: "number of chained convolutions", Value: 2, Destination: &spec.Layers},
			&cli.IntFlag{Name: "seed", Usage: "weight pattern offset", Destination: &spec.Seed},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			m, err := onnx.ConvChain(spec)
			if err != nil {
				return err
			}
			if err := onnx.WriteFile(outPath, m); err != nil {
				return err
			}
			fmt.Printf("wrote %s (%d layers, %dx%dx%d input)\n", outPath, spec.Layers, spec.Channels, spec.Size, spec.Size)
			return nil
		},
	}
}
