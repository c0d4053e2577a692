package cmd

import (
	"testing"

	"github.com/MeKo-Tech/orient/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "orient", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.Same(t, rootCmd, GetRootCommand())
}

func TestRootCommandHelp(t *testing.T) {
	out, _, err := executeCommand(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "rotations concurrently")
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	out, _, err := executeCommand(t, "--version")
	require.NoError(t, err)

	assert.Contains(t, out, "orient version "+version.Version)
	assert.Contains(t, out, "Commit:")
}

func TestRootCommandSubcommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, sub := range rootCmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, expected := range []string{"detect", "batch", "pdf", "serve", "config"} {
		assert.Contains(t, names, expected, "Expected subcommand '%s' not found", expected)
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	_, _, err := executeCommand(t, "--definitely-not-a-flag")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRootPersistentFlags(t *testing.T) {
	for _, name := range []string{"config", "verbose", "log-level", "models-dir", "strategy", "language", "backend"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "missing persistent flag %s", name)
	}
}

func TestGetConfigPicksUpBoundFlags(t *testing.T) {
	useStubDetector(t)
	dir := t.TempDir()

	_, _, err := executeCommand(t, "detect", "--language", "deu", "--format", "json",
		"--output", dir+"/out.json", dir+"/missing.png")
	require.Error(t, err)

	assert.Equal(t, "deu", GetConfig().Recognizer.Language)
}
