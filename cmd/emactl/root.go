package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/emacontrol/go-ema/calib"
	"github.com/emacontrol/go-ema/config"
	"github.com/emacontrol/go-ema/logger"
	"github.com/emacontrol/go-ema/robot"
	"github.com/spf13/cobra"
)

// cfg is resolved once per invocation by the root command's PersistentPreRunE.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "emactl",
	Short: "emactl drives the beamline sample-mounting robot",
	Long: `emactl mounts and unmounts samples with the beamline robot and keeps the robot's
spinner target aligned with the diffractometer.

Connection and calibration settings are read from ~/.emactl.toml; flags override them.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "configuration file (default ~/.emactl.toml)")
	flags.String("host", "", "robot controller host")
	flags.Int("port", 0, "robot controller port")
	flags.Duration("timeout", 0, "timeout of a single robot command")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.Bool("console", false, "human readable log output")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	path, _ := flags.GetString("config")
	c, err := config.Load(path)
	if err != nil {
		return err
	}

	if flags.Changed("host") {
		c.Robot.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		c.Robot.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("timeout") {
		c.Robot.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("log-level") {
		name, _ := flags.GetString("log-level")
		if c.Log.Level, err = logger.ParseLevel(name); err != nil {
			return err
		}
	}
	if flags.Changed("console") {
		c.Log.Console, _ = flags.GetBool("console")
	}

	logger.SetDefault(logger.NewSlog(c.Log.Level, logger.Options{Console: c.Log.Console}))
	cfg = c

	return nil
}

// openStore opens the configured calibration backend.
func openStore() (calib.Store, func() error, error) {
	return cfg.OpenStore(logger.GetLogger())
}

// withRobot connects a robot to the configured controller and calls fn with it.
func withRobot(ctx context.Context, fn func(*robot.Robot) error) error {
	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	r, err := robot.New(store, robot.WithRotateSense(cfg.Geometry.RotateSense))
	if err != nil {
		return err
	}

	conn, err := cfg.ConnectionConfig()
	if err != nil {
		return err
	}
	if err := r.Connect(ctx, conn); err != nil {
		return err
	}
	defer r.Disconnect()

	return fn(r)
}
