// Package testutil provides shared helpers for coldsign integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/systmms/coldsign/cmd/coldsign/commands"
	"github.com/systmms/coldsign/internal/config"
	"github.com/systmms/coldsign/internal/logging"
	"github.com/systmms/coldsign/pkg/signer"
)

// CLIResult captures everything one command invocation produced.
type CLIResult struct {
	// Envelope is the decoded status envelope, when stdout carried one.
	Envelope signer.Envelope
	// ExitCode is what the binary's process would have exited with.
	ExitCode int
	Stdout   string
	Stderr   string
}

// RunCLI wires the complete coldsign command tree the way the binary does and
// executes one invocation against it, with stdin supplied and both output
// streams captured. The configuration is isolated to a fresh temp directory so
// a developer's real config file never shapes a test.
func RunCLI(t *testing.T, stdin []byte, args ...string) CLIResult {
	t.Helper()
	return RunCLIWithConfig(t, filepath.Join(t.TempDir(), "config.yaml"), stdin, args...)
}

// RunCLIWithConfig is RunCLI against a specific configuration file.
func RunCLIWithConfig(t *testing.T, configPath string, stdin []byte, args ...string) CLIResult {
	t.Helper()

	var (
		configFile string
		noColor    bool
		debug      bool
	)

	cfg := &config.Config{}
	root := &cobra.Command{
		Use:           "coldsign",
		Version:       "0.0.0-test",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg.Path = configPath
			if configFile != "" {
				cfg.Path = configFile
			}
			if err := cfg.Load(); err != nil {
				return err
			}
			cfg.Logger = logging.New(debug, noColor || cfg.NoColor())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "Config file path")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		commands.NewCreateContainerCommand(cfg),
		commands.NewSignCommand(cfg),
		commands.NewSignDirectCommand(cfg),
		commands.NewSignStdinCommand(cfg),
		commands.NewCheckCommand(cfg),
		commands.NewLoginCommand(cfg),
		commands.NewLogoutCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	if args == nil {
		args = []string{}
	}
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(bytes.NewReader(stdin))
	root.SetArgs(args)

	res := CLIResult{
		ExitCode: exitCode(root.Execute()),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	if line := bytes.TrimSpace(stdout.Bytes()); len(line) > 0 && line[0] == '{' {
		require.NoError(t, json.Unmarshal(line, &res.Envelope))
	}
	return res
}

// exitCode mirrors the exit mapping in the binary's main function.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec commands.ExitCodeError
	if errors.As(err, &ec) {
		return ec.Code
	}
	return signer.StatusMissingInput
}

// WriteFile drops data into a fresh temp directory and returns the path.
func WriteFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// WriteTestConfig writes a config.yaml with the given content and returns its
// path, for passing to RunCLIWithConfig.
func WriteTestConfig(t *testing.T, content string) string {
	t.Helper()
	return WriteFile(t, "config.yaml", []byte(content))
}
