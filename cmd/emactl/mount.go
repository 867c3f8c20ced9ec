package main

import (
	"fmt"
	"strconv"

	"github.com/emacontrol/go-ema/robot"
	"github.com/spf13/cobra"
)

var mountCmd = &cobra.Command{
	Use:   "mount SAMPLE",
	Short: "Mount a sample from the magazine onto the spinner",
	Long: `Mount moves the sample with the given 1-based magazine index onto the spinner.
The workflow stops at the first step the robot does not complete.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid sample index %q: %w", args[0], err)
		}

		return withRobot(cmd.Context(), func(r *robot.Robot) error {
			if err := r.Mount(cmd.Context(), index); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sample %d mounted\n", index)
			return nil
		})
	},
}

var unmountCmd = &cobra.Command{
	Use:   "unmount",
	Short: "Return the sample on the spinner to the magazine",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRobot(cmd.Context(), func(r *robot.Robot) error {
			if err := r.Unmount(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sample unmounted")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(unmountCmd)
}
