package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/systmms/coldsign/cmd/coldsign/commands"
	"github.com/systmms/coldsign/internal/config"
	cserrors "github.com/systmms/coldsign/internal/errors"
	"github.com/systmms/coldsign/internal/logging"
	"github.com/systmms/coldsign/pkg/signer"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// A fatal signal must wipe every protected buffer before the process
	// dies, same as a normal return.
	memguard.CatchInterrupt()

	err := run()
	if err == nil {
		memguard.SafeExit(0)
	}

	// The envelope on stdout already reported this failure; just carry the
	// status code out as the exit code.
	var ec commands.ExitCodeError
	if errors.As(err, &ec) {
		memguard.SafeExit(ec.Code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", cserrors.SimplifyError(err))
	memguard.SafeExit(signer.StatusMissingInput)
}

func run() error {
	// Global flags
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	// Create config placeholder
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "coldsign",
		Short: "Offline Ed25519 signing from passphrase-protected key containers",
		Long: `coldsign seals Ed25519 signing keys inside passphrase-protected encrypted
containers and signs messages with them.

The sealed key is decrypted into locked memory, used for exactly one
operation, and wiped on every exit path, including interrupts. Every
subcommand prints one JSON envelope on stdout and exits with the
envelope's status code, so host programs can drive coldsign without
parsing human output.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load config first so its presentation preferences can shape
			// the logger.
			cfg.Path = configFile
			if err := cfg.Load(); err != nil {
				return err
			}
			cfg.Logger = logging.New(debug, noColor || cfg.NoColor() || os.Getenv("NO_COLOR") != "")
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default: user config dir)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	// Add commands
	rootCmd.AddCommand(
		commands.NewCreateContainerCommand(cfg),
		commands.NewSignCommand(cfg),
		commands.NewSignDirectCommand(cfg),
		commands.NewSignStdinCommand(cfg),
		commands.NewCheckCommand(cfg),
		commands.NewLoginCommand(cfg),
		commands.NewLogoutCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd.Execute()
}
