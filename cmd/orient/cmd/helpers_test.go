package cmd

import (
	"bytes"
	"testing"

	"github.com/MeKo-Tech/orient/internal/config"
	"github.com/MeKo-Tech/orient/internal/orientation"
	"github.com/MeKo-Tech/orient/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// useStubDetector makes every command build an engine on the deterministic
// stub recognizer for the duration of the test.
func useStubDetector(t *testing.T) *testutil.StubRecognizers {
	t.Helper()
	stubs := testutil.NewStubRecognizers()
	prev := buildDetector
	buildDetector = func(cfg *config.Config, observers ...orientation.Observer) (orientation.Detector, error) {
		return orientation.New(cfg.ToEngineConfig(), stubs.Factory(), orientation.WithObserver(orientation.MultiObserver(observers)))
	}
	t.Cleanup(func() { buildDetector = prev })
	return stubs
}

// resetFlags restores every flag of c and its children to its default, since
// cobra keeps parsed values between Execute calls.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// executeCommand runs the root command with args and returns stdout and
// stderr separately.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireFile(t *testing.T, path string) {
	t.Helper()
	require.FileExists(t, path)
}
