package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var calibrationCmd = &cobra.Command{
	Use:   "calibration",
	Short: "Print the stored calibration positions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		positions, err := store.Positions(cmd.Context())
		if err != nil {
			return err
		}

		names := make([]string, 0, len(positions))
		for name := range positions {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", name, positions[name])
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(calibrationCmd)
}
