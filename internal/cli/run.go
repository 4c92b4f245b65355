package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/trialgate/internal/engine"
)

var runPage string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the gate and load the payload if allowed",
	Long: `Run one gate pass for the current page.

The gate only activates when the page address (--page or TRIALGATE_PAGE_URL) equals
TRIALGATE_ALLOWED_PAGE. A licensed device loads the payload right away. A device in its
trial loads the payload and keeps a countdown until the trial ends. A locked device or
an expired trial shows the activation panel.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := newRuntime(ctx, true)
		if err != nil {
			return err
		}
		defer rt.Close()

		page := runPage
		if page == "" {
			page = rt.cfg.PageURL
		}

		result, err := rt.engine.Run(ctx, &engine.RunRequest{PageURL: page})
		if err != nil && !(errors.Is(err, context.Canceled) && result != nil) {
			return err
		}

		if jsonOutput {
			return outputJSON(result)
		}

		printRunResult(result)
		return nil
	},
}

func printRunResult(result *engine.RunResult) {
	if result.Skipped {
		PrintWarning("Page address does not match the allowed page. Gate inactive.")
		return
	}

	PrintSection("Gate")
	PrintLabelValue("Fingerprint", result.Fingerprint)
	PrintLabelValueWithColor("State", string(result.State), stateColor(result.State))
	PrintLabelValue("Payload loads", fmt.Sprintf("%d", result.Loads))
	if result.LoadFailures > 0 {
		PrintLabelValueWithColor("Load failures", fmt.Sprintf("%d", result.LoadFailures), errorColor)
	}
	fmt.Println()

	switch {
	case result.Activated && result.State == engine.StateLicensed:
		PrintSuccess("License activated")
	case result.Dismissed:
		PrintWarning("Activation panel closed without a license")
	}
}

func init() {
	runCmd.Flags().StringVar(&runPage, "page", "", "Current page address (default: TRIALGATE_PAGE_URL)")
}
