package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ragops/banditd/pkg/bandit"
)

var seedDir string

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed <state-file>",
	Short: "Seed the daemon's weights state file",
	Long: `Copy a known-good weights file into the daemon's config directory so
the next cycle starts from learned weights instead of a cold start.
The source file is validated before anything is written.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVar(&seedDir, "dir", ".", "daemon config directory to seed into")
}

func runSeed(cmd *cobra.Command, args []string) error {
	dest, err := bandit.SeedState(args[0], seedDir)
	if err != nil {
		return err
	}

	fmt.Printf("Seeded %s\n", dest)
	return nil
}
