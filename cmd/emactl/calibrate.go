package main

import (
	"fmt"

	"github.com/emacontrol/go-ema/geometry"
	"github.com/emacontrol/go-ema/robot"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Record the current diffractometer and spinner positions as the calibration",
	Long: `Calibrate stores the diffractometer position given by the axis flags together with the
spinner position reported by the robot, and clears the robot's spinner offset. Run it with the
diffractometer aligned and the robot's spinner taught at the same point.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		axes, err := axesFromFlags(cmd.Flags())
		if err != nil {
			return err
		}
		setOrigin, _ := cmd.Flags().GetBool("set-origin")

		return withRobot(cmd.Context(), func(r *robot.Robot) error {
			res, err := r.CalibrateSpinner(cmd.Context(), axes, setOrigin)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "diffractometer: %s\nspinner:        %s\n", res.Diffr, res.Spinner)
			if res.Origin != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "origin:         %s\n", *res.Origin)
			}
			return nil
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Move the robot's spinner target to follow the diffractometer",
	Long: `Update sends the robot the offset between the diffractometer position given by the axis
flags and the position recorded by calibrate.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		axes, err := axesFromFlags(cmd.Flags())
		if err != nil {
			return err
		}

		return withRobot(cmd.Context(), func(r *robot.Robot) error {
			offset, err := r.UpdateSpinner(cmd.Context(), axes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "spinner offset: %s\n", offset)
			return nil
		})
	},
}

var homeCmd = &cobra.Command{
	Use:   "set-home",
	Short: "Store the diffractometer position given by the axis flags as the beam-aligned home",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		axes, err := axesFromFlags(cmd.Flags())
		if err != nil {
			return err
		}

		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		r, err := robot.New(store, robot.WithRotateSense(cfg.Geometry.RotateSense))
		if err != nil {
			return err
		}

		home, err := r.SetDiffrHome(cmd.Context(), axes)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "diffractometer home: %s\n", home)

		return nil
	},
}

func addAxisFlags(fs *pflag.FlagSet) {
	fs.Float64("samx", 0, "sample X translation (mm)")
	fs.Float64("samy", 0, "sample Y translation (mm)")
	fs.Float64("samz", 0, "sample Z translation (mm)")
	fs.Float64("omega", 0, "omega angle (degrees)")
	fs.Float64("diffh", 0, "diffractometer horizontal position (mm)")
	fs.Float64("diffv", 0, "diffractometer vertical position (mm)")
}

func axesFromFlags(fs *pflag.FlagSet) (geometry.Axes, error) {
	var a geometry.Axes
	for name, dst := range map[string]*float64{
		"samx":  &a.SamX,
		"samy":  &a.SamY,
		"samz":  &a.SamZ,
		"omega": &a.Omega,
		"diffh": &a.DiffH,
		"diffv": &a.DiffV,
	} {
		v, err := fs.GetFloat64(name)
		if err != nil {
			return geometry.Axes{}, err
		}
		*dst = v
	}

	return a, nil
}

func init() {
	calibrateCmd.Flags().Bool("set-origin", false, "also store the diffractometer origin in the robot frame")

	for _, c := range []*cobra.Command{calibrateCmd, updateCmd, homeCmd} {
		addAxisFlags(c.Flags())
		rootCmd.AddCommand(c)
	}
}
