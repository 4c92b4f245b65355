package cli

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/danieljhkim/trialgate/internal/engine"
)

var statusFingerprint string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the gate status",
	Long:  `Display what the next gate run would decide for this device. Nothing is written.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		rt, err := newRuntime(ctx, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		result, err := rt.engine.Status(ctx, &engine.StatusRequest{Fingerprint: statusFingerprint})
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(result)
		}

		d := result.Decision
		PrintSection("Status")
		PrintLabelValue("Fingerprint", result.Fingerprint)
		PrintLabelValueWithColor("State", string(d.State), stateColor(d.State))
		switch {
		case d.State == engine.StateTrialRunning && d.NewTrial:
			PrintLabelValue("Trial", "not started ("+formatRemaining(d.Remaining)+" available)")
		case d.State == engine.StateTrialRunning:
			PrintLabelValue("Remaining", formatRemaining(d.Remaining))
		case d.Expired:
			PrintLabelValue("Trial", "elapsed, will be marked used on the next run")
		}
		if !d.TrialStart.IsZero() {
			PrintLabelValue("Trial started", d.TrialStart.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func stateColor(s engine.State) *color.Color {
	switch s {
	case engine.StateLicensed:
		return successColor
	case engine.StateTrialRunning, engine.StateTrialNew:
		return warningColor
	default:
		return errorColor
	}
}

func init() {
	statusCmd.Flags().StringVar(&statusFingerprint, "fingerprint", "", "Fingerprint to inspect (default: this device)")
}
