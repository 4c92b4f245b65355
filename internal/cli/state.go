package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/trialgate/internal/engine"
)

var stateFingerprint string

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect and override persisted gate state",
	Long: `Inspect the persisted slots of a fingerprint and manage the lock flag.

The lock flag is an operator override: while it is set the gate blocks the fingerprint
regardless of trial or license.`,
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the persisted slots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		rt, err := newRuntime(ctx, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		result, err := rt.engine.Status(ctx, &engine.StatusRequest{Fingerprint: stateFingerprint})
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(result.Slots)
		}

		slots := result.Slots
		PrintSection("Slots")
		PrintLabelValue("Fingerprint", slots.Fingerprint)
		PrintLabelValue("Store", rt.cfg.StoreDriver)
		PrintLabelValue("Lock", strconv.FormatBool(slots.Locked))
		PrintLabelValue("License", strconv.FormatBool(slots.Licensed))
		if slots.Trial == nil {
			PrintLabelValue("Trial", "none")
			return nil
		}
		PrintLabelValue("Trial start", slots.Trial.StartTime().Local().Format("2006-01-02 15:04:05"))
		PrintLabelValue("Trial used", strconv.FormatBool(slots.Trial.Used))
		return nil
	},
}

func newLockCommand(use, short string, locked bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			rt, err := newRuntime(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.engine.SetLock(ctx, &engine.LockRequest{
				Locked:      locked,
				Fingerprint: stateFingerprint,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return outputJSON(result)
			}

			if result.Locked {
				PrintWarning("Locked " + result.Fingerprint)
			} else {
				PrintSuccess("Unlocked " + result.Fingerprint)
			}
			return nil
		},
	}
}

func init() {
	stateCmd.PersistentFlags().StringVar(&stateFingerprint, "fingerprint", "", "Fingerprint to operate on (default: this device)")

	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(newLockCommand("lock", "Set the lock flag", true))
	stateCmd.AddCommand(newLockCommand("unlock", "Clear the lock flag", false))
}
