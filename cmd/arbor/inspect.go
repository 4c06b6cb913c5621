package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/arbor/internal/asm"
	"github.com/samcharles93/arbor/internal/compiler"
	"github.com/samcharles93/arbor/pkg/arf"
)

func inspectCmd() *cli.Command {
	var (
		programPath string
		asJSON      bool
		showDisasm  bool
		showTensors bool
		showWords   bool
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Inspect the contents of an .arf program",
		ArgsUsage: "[program.arf]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "program",
				Aliases:     []string{"p"},
				Usage:       "path to .arf file",
				Destination: &programPath,
			},
			&cli.BoolFlag{Name: "json", Usage: "print the manifest as JSON", Destination: &asJSON},
			&cli.BoolFlag{Name: "disasm", Usage: "disassemble the program image", Destination: &showDisasm},
			&cli.BoolFlag{Name: "tensors", Usage: "list feature-memory placements", Destination: &showTensors},
			&cli.BoolFlag{Name: "words", Usage: "hex dump the image words", Destination: &showWords},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := modelArg(cmd, programPath)
			if path == "" {
				return errors.New("a program path is required")
			}
			c, err := compiler.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			if asJSON {
				b, err := json.MarshalIndent(c.Manifest, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(os.Stdout, string(b))
				return err
			}

			printManifest(c)
			if showTensors {
				printTensors(c.Tensors)
			}
			if showDisasm {
				prog, err := asm.Disassemble(c.Image)
				if err != nil {
					return fmt.Errorf("disassemble: %w", err)
				}
				fmt.Printf("\ninstructions (%d):\n", len(prog))
				for i, in := range prog {
					fmt.Printf("%5d  %s\n", i, in)
				}
			}
			if showWords {
				fmt.Println("\nimage words:")
				for i, w := range c.Image.Words() {
					if i%8 == 0 {
						fmt.Printf("%04x:", i)
					}
					fmt.Printf(" %08x", w)
					if i%8 == 7 {
						fmt.Println()
					}
				}
			}
			return nil
		},
	}
}

func printManifest(c *compiler.Contents) {
	m := c.Manifest
	fmt.Printf("build id:    %s\n", m.BuildID)
	fmt.Printf("tool:        %s %s\n", m.Tool, m.Version)
	fmt.Printf("created:     %s\n", m.CreatedAt.Format("2006-01-02 15:04:05Z07:00"))
	if m.Source != "" {
		fmt.Printf("source:      %s\n", m.Source)
	}
	if m.Graph != "" {
		fmt.Printf("graph:       %s\n", m.Graph)
	}
	fmt.Printf("root:        %s\n", m.Root)
	fmt.Printf("result:      %s\n", m.Result)
	fmt.Printf("limits:      buffer %d, ports %d, mults %d\n", c.Config.BufferLength, c.Config.Ports, c.Config.Mults)
	fmt.Printf("debug:       %t\n", c.Flags&arf.FlagDebugProgram != 0)
	fmt.Printf("image:       %d bytes\n", len(c.Image.Bytes()))
	fmt.Printf("features:    %d bytes\n", len(c.Features))

	var st compiler.Stats
	if len(m.Stats) > 0 && json.Unmarshal(m.Stats, &st) == nil {
		fmt.Printf("ops:         %d lowered, %d solved\n", st.LoweredOps, st.SolvedOps)
		fmt.Printf("instrs:      %d (%d bytes), config %d bytes\n", st.Instructions, st.InstructionBytes, st.ConfigurationBytes)
	}
}

func printTensors(entries []arf.TensorEntry) {
	fmt.Printf("\ntensors (%d):\n", len(entries))
	for _, e := range entries {
		fmt.Printf("  %-24s offset=%-8d shape=%v elements=%d\n", e.Name, e.Offset, e.Shape, e.Elements())
	}
}
