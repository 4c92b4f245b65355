package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/trialgate/internal/engine"
)

var activateFingerprint string

var activateCmd = &cobra.Command{
	Use:   "activate <token>",
	Short: "Store a license token for this device",
	Long: `Store a license token for the current fingerprint without running the gate.

The token is stored verbatim. An empty token is rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		rt, err := newRuntime(ctx, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		result, err := rt.engine.ActivateLicense(ctx, &engine.ActivateRequest{
			Token:       args[0],
			Fingerprint: activateFingerprint,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(result)
		}

		PrintSuccess("License saved")
		PrintLabelValue("Fingerprint", result.Fingerprint)
		PrintLabelValueWithColor("Next run", result.Decision.String(), stateColor(result.Decision.State))
		return nil
	},
}

func init() {
	activateCmd.Flags().StringVar(&activateFingerprint, "fingerprint", "", "Fingerprint to activate (default: this device)")
}
