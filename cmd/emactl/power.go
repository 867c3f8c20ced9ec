package main

import (
	"context"
	"fmt"

	"github.com/emacontrol/go-ema/robot"
	"github.com/spf13/cobra"
)

var powerCmd = &cobra.Command{
	Use:   "power",
	Short: "Switch or query the robot power",
}

var powerOnCmd = &cobra.Command{
	Use:   "on",
	Short: "Switch the robot power on",
	Args:  cobra.NoArgs,
	RunE:  robotAction("power on", (*robot.Robot).PowerOn),
}

var powerOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Switch the robot power off",
	Args:  cobra.NoArgs,
	RunE:  robotAction("power off", (*robot.Robot).PowerOff),
}

var powerStateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the robot power state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRobot(cmd.Context(), func(r *robot.Robot) error {
			on, err := r.PowerState(cmd.Context())
			if err != nil {
				return err
			}
			if on {
				fmt.Fprintln(cmd.OutOrStdout(), "on")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "off")
			}
			return nil
		})
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the robot program",
	Args:  cobra.NoArgs,
	RunE:  robotAction("start", (*robot.Robot).Start),
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the robot motors",
	Args:  cobra.NoArgs,
	RunE:  robotAction("stop", (*robot.Robot).Stop),
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the controller error state",
	Args:  cobra.NoArgs,
	RunE:  robotAction("reset", (*robot.Robot).Reset),
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the motor controller",
	Args:  cobra.NoArgs,
	RunE:  robotAction("restart", (*robot.Robot).Restart),
}

// robotAction runs a single robot command and reports completion.
func robotAction(name string, fn func(*robot.Robot, context.Context) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		return withRobot(cmd.Context(), func(r *robot.Robot) error {
			if err := fn(r, cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: done\n", name)
			return nil
		})
	}
}

func init() {
	powerCmd.AddCommand(powerOnCmd, powerOffCmd, powerStateCmd)
	rootCmd.AddCommand(powerCmd, startCmd, stopCmd, resetCmd, restartCmd)
}
