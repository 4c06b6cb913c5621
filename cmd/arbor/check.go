package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/arbor/internal/logger"
)

func checkCmd() *cli.Command {
	var (
		modelPath string
		seed      uint64
		trials    int
	)

	return &cli.Command{
		Name:      "check",
		Usage:     "Compile a model and compare simulated ops against a reference convolution",
		ArgsUsage: "[model.onnx]",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "model",
				Aliases:     []string{"m"},
				Usage:       "path to .onnx model",
				Destination: &modelPath,
			},
			&cli.Uint64Flag{
				Name:        "seed",
				Usage:       "seed of the first random input",
				Value:       1,
				Destination: &seed,
			},
			&cli.IntFlag{
				Name:        "trials",
				Usage:       "number of random inputs to check",
				Value:       1,
				Destination: &trials,
			},
		}, limitFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			art, err := loadAndCompile(ctx, cmd, modelArg(cmd, modelPath))
			if err != nil {
				return err
			}
			failed := 0
			for i := range max(trials, 1) {
				r, err := art.Check(seed + uint64(i))
				if err != nil {
					return err
				}
				fmt.Printf("seed %-6d elements=%d lowered=%t solved=%t max_abs_diff=%g\n",
					r.Seed, r.Elements, r.LoweredMatches, r.SolvedMatches, r.MaxAbsDiff)
				if !r.OK() {
					failed++
					log.Warn("simulation mismatch", "seed", r.Seed, "max_abs_diff", r.MaxAbsDiff)
				}
			}
			if failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d trials mismatched", failed, max(trials, 1)), 2)
			}
			return nil
		},
	}
}
