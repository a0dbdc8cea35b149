package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/systmms/coldsign/internal/config"
	"github.com/systmms/coldsign/pkg/signer"
)

// checkPayload is the check report plus the binary version, so a host can
// pin both capabilities and tool revision from one probe.
type checkPayload struct {
	Version string `json:"version"`
	signer.CheckReport
}

func NewCheckCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe whether this host can protect key material",
		Long: `Report whether locked memory is available, along with the platform facts
that explain the answer.

The probe is read-only. When locking is unavailable, signing still refuses
to run until COLDSIGN_ALLOW_UNLOCKED_MEMORY=1 accepts plain, wiped-on-exit
buffers instead.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := newSigner(cfg).Check()

			if report.MemoryLocking {
				cfg.Logger.Info("Memory locking is available")
			} else {
				cfg.Logger.Warn("Memory locking is NOT available; raise the memlock limit (ulimit -l) or opt in to unlocked memory")
			}
			cfg.Logger.Debug("platform=%s arch=%s memlock soft=%d hard=%d",
				report.Platform, report.Arch, report.MemlockSoft, report.MemlockHard)

			payload, err := json.Marshal(checkPayload{
				Version:     cmd.Root().Version,
				CheckReport: report,
			})
			if err != nil {
				return fail(cmd, cfg, err)
			}
			return emit(cmd, signer.Envelope{StatusCode: signer.StatusOK, Payload: string(payload)})
		},
	}

	return cmd
}
