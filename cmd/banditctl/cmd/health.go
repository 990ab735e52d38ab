package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check daemon health",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := GetClient().Health(); err != nil {
			return fmt.Errorf("daemon unhealthy: %w", err)
		}
		fmt.Println("Daemon is healthy")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
