package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	trainUnits  int
	trainFollow bool
)

// trainCmd represents the train command
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Start a training cycle",
	Long:  `Ask the daemon to start a training cycle. Only one cycle runs at a time; a second request is rejected until the active one finishes.`,
	RunE:  runTrain,
}

var trainCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel the active training cycle",
	RunE:  runTrainCancel,
}

func init() {
	rootCmd.AddCommand(trainCmd)
	trainCmd.AddCommand(trainCancelCmd)

	trainCmd.Flags().IntVar(&trainUnits, "units", 10, "total units in the cycle")
	trainCmd.Flags().BoolVar(&trainFollow, "follow", false, "poll status every 2 seconds until the cycle completes")
}

func runTrain(cmd *cobra.Command, args []string) error {
	c := GetClient()

	run, err := c.StartTraining(trainUnits)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		output, _ := json.MarshalIndent(run, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Training cycle started: %s (%d units)\n", run.ID, run.TotalUnits)
	}

	if !trainFollow {
		return nil
	}

	for {
		time.Sleep(2 * time.Second)

		snap, err := c.Status()
		if err != nil {
			return err
		}
		if snap.Done || !snap.Started {
			fmt.Println("Training cycle finished")
			displayStatus(snap)
			return nil
		}
		if !IsJSONOutput() {
			fmt.Printf("  progress: %d/%d\n", snap.Completed, snap.Total)
		}
	}
}

func runTrainCancel(cmd *cobra.Command, args []string) error {
	if err := GetClient().CancelTraining(); err != nil {
		return err
	}
	fmt.Println("Training cycle canceled")
	return nil
}
