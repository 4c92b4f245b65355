package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/trialgate/internal/fingerprint"
)

var fingerprintVerbose bool

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint",
	Short: "Print the fingerprint of this device",
	Long: `Print the fingerprint the gate uses as the storage partition for this device.

The fingerprint is a SHA-256 digest of the user agent, locale, screen size, timezone
and hostname. It is not a credential.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := fingerprint.NewSystemProvider(rootCmd.Version).Collect(context.Background())
		if err != nil {
			return fmt.Errorf("failed to collect environment: %w", err)
		}
		fp := fingerprint.Digest(env)

		if jsonOutput {
			return outputJSON(struct {
				Fingerprint string                  `json:"fingerprint"`
				Environment fingerprint.Environment `json:"environment"`
			}{fp, env})
		}

		if !fingerprintVerbose {
			PrintInfo(fp)
			return nil
		}

		PrintSection("Fingerprint")
		PrintLabelValue("Digest", fp)
		PrintLabelValue("User agent", env.UserAgent)
		PrintLabelValue("Locale", env.Locale)
		PrintLabelValue("Screen", fmt.Sprintf("%dx%d", env.ScreenWidth, env.ScreenHeight))
		PrintLabelValue("Timezone", env.Timezone)
		PrintLabelValue("Hostname", env.Hostname)
		return nil
	},
}

func init() {
	fingerprintCmd.Flags().BoolVarP(&fingerprintVerbose, "verbose", "v", false, "Show the attributes the fingerprint is derived from")
}
