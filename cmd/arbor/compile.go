package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/arbor/internal/compiler"
	"github.com/samcharles93/arbor/internal/graph"
	"github.com/samcharles93/arbor/internal/isa"
	"github.com/samcharles93/arbor/internal/logger"
	"github.com/samcharles93/arbor/internal/version"
)

func compileCmd() *cli.Command {
	var (
		modelPath string
		outPath   string
		imagePath string
		listing   bool
	)

	return &cli.Command{
		Name:      "compile",
		Usage:     "Compile an ONNX model into an .arf program",
		ArgsUsage: "[model.onnx]",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "model",
				Aliases:     []string{"m"},
				Usage:       "path to .onnx model",
				Destination: &modelPath,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output .arf path (default: model path with .arf extension)",
				Destination: &outPath,
			},
			&cli.StringFlag{
				Name:        "image",
				Usage:       "also write the raw program image to this path",
				Destination: &imagePath,
			},
			&cli.BoolFlag{
				Name:        "listing",
				Aliases:     []string{"dump"},
				Usage:       "print lowered ops, solved ops and instructions",
				Destination: &listing,
			},
		}, limitFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := modelArg(cmd, modelPath)
			art, err := loadAndCompile(ctx, cmd, path)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = strings.TrimSuffix(path, filepath.Ext(path)) + ".arf"
			}
			m, err := art.WriteFile(outPath, version.String(), filepath.Base(path))
			if err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			if imagePath != "" {
				if err := os.WriteFile(imagePath, art.Image.Bytes(), 0o644); err != nil {
					return err
				}
			}
			if listing {
				if err := art.Dump(os.Stdout); err != nil {
					return err
				}
			}

			st := art.Stats
			fmt.Printf("output:        %s\n", outPath)
			fmt.Printf("build id:      %s\n", m.BuildID)
			fmt.Printf("nodes:         %d\n", st.Nodes)
			fmt.Printf("ops:           %d lowered, %d solved (%d conv, %d add)\n", st.LoweredOps, st.SolvedOps, st.Conv2, st.Add)
			fmt.Printf("instructions:  %d (%d/%d bytes)\n", st.Instructions, st.InstructionBytes, isa.WordBytes*art.Config.ISA.InstrWords)
			fmt.Printf("configuration: %d/%d bytes\n", st.ConfigurationBytes, isa.WordBytes*art.Config.ISA.ConfigWords)
			fmt.Printf("feature mem:   %d elements in %d tensors\n", st.FeatureElements, st.Tensors)
			return nil
		},
	}
}

func loadAndCompile(ctx context.Context, cmd *cli.Command, path string) (*compiler.Artifact, error) {
	if path == "" {
		return nil, errors.New("a model path is required")
	}
	cfg, err := compileConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log := logger.FromContext(ctx)
	g, err := graph.Load(path)
	if err != nil {
		return nil, err
	}
	log.Info("compiling", "model", path, "nodes", len(g.Nodes))
	return compiler.Compile(g, cfg, log)
}
