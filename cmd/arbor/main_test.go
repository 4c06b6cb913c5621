package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/arbor/internal/compiler"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	return newApp().Run(context.Background(), append([]string{"arbor"}, args...))
}

// The commands share package-level flag destinations, so these tests do
// not run in parallel.
func TestDemoCompileInspect(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	model := filepath.Join(dir, "demo.onnx")
	program := filepath.Join(dir, "demo.arf")

	require.NoError(t, run(t, "--config", cfgPath, "--log-level", "error", "demo", "--output", model, "--size", "3", "--channels", "2", "--layers", "1"))
	image := filepath.Join(dir, "demo.bin")
	require.NoError(t, run(t, "--config", cfgPath, "--log-level", "error", "compile", "--output", program, "--image", image, "--debug-program", model))

	c, err := compiler.ReadFile(program)
	require.NoError(t, err)
	assert.Equal(t, "demo.onnx", c.Manifest.Source)
	assert.True(t, c.Config.Debug)
	assert.Equal(t, 128, c.Config.BufferLength)
	raw, err := os.ReadFile(image)
	require.NoError(t, err)
	assert.Equal(t, c.Image.Bytes(), raw)

	require.NoError(t, run(t, "--config", cfgPath, "--log-level", "error", "inspect", "--disasm", "--tensors", program))
	require.NoError(t, run(t, "--config", cfgPath, "--log-level", "error", "check", "--trials", "2", model))
}

func TestCompileUsesConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log_level: error\nbuffer_length: 4\n"), 0o644))
	model := filepath.Join(dir, "m.onnx")
	program := filepath.Join(dir, "m.arf")

	require.NoError(t, run(t, "--config", cfgPath, "demo", "--output", model, "--size", "3", "--channels", "1", "--layers", "1"))
	require.NoError(t, run(t, "--config", cfgPath, "compile", "--output", program, model))
	c, err := compiler.ReadFile(program)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Config.BufferLength)

	// An explicit flag beats the file.
	require.NoError(t, run(t, "--config", cfgPath, "compile", "--output", program, "--buffer-length", "64", model))
	c, err = compiler.ReadFile(program)
	require.NoError(t, err)
	assert.Equal(t, 64, c.Config.BufferLength)
}

func TestCompileRequiresModel(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.Error(t, run(t, "--config", cfgPath, "--log-level", "error", "compile"))
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Config{}, cfg)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_format: json\nserver_address: 0.0.0.0:9000\nmax_builds: 8\nports: 16\n"), 0o644))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "0.0.0.0:9000", cfg.ServerAddress)
	require.NotNil(t, cfg.MaxBuilds)
	assert.Equal(t, 8, *cfg.MaxBuilds)
}
