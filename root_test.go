package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"student-harvester/config"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parsed returns the harvest command with args parsed but not executed
func parsed(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := NewHarvestCmd()
	cmd.PersistentFlags().BoolP("verbose", "v", false, "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	assert.Equal(t, "student-harvester", cmd.Use)
	assert.NotNil(t, cmd.RunE)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["harvest"])
	assert.True(t, names["version"])

	for _, flag := range []string{"config", "source", "out", "settle-delay", "render-timeout", "max-pages", "headless"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), flag)
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "student-harvester version")
	assert.Contains(t, out.String(), "commit:")
}

func TestBuildConfigDefaults(t *testing.T) {
	cfg, err := buildConfig(parsed(t))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestBuildConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harvest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source_location: http://file:1\nmax_pages: 5\nsettle_delay: 3s\n"), 0o600))

	cfg, err := buildConfig(parsed(t,
		"--config", path,
		"--max-pages", "7",
		"--out", "elsewhere",
		"--headless=false",
		"--verbose",
	))
	require.NoError(t, err)

	assert.Equal(t, "http://file:1", cfg.SourceLocation, "unset flag keeps file value")
	assert.Equal(t, 3*time.Second, cfg.SettleDelay)
	assert.Equal(t, 7, cfg.MaxPages)
	assert.Equal(t, "elsewhere", cfg.OutputDirectory)
	assert.False(t, cfg.Headless)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestBuildConfigRejectsInvalid(t *testing.T) {
	_, err := buildConfig(parsed(t, "--max-pages", "0"))
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = buildConfig(parsed(t, "--missing-hometown", "merge"))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestHarvestRejectsArgs(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"harvest", "extra"})
	assert.Error(t, cmd.Execute())
}
