// Command emasim serves a simulated robot controller for commissioning and integration tests.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emacontrol/go-ema/geometry"
	"github.com/emacontrol/go-ema/logger"
	"github.com/emacontrol/go-ema/simulator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "emasim",
	Short:        "emasim serves a simulated sample-mounting robot controller",
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         serve,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.Flags()
	flags.String("listen", "127.0.0.1:10000", "robot protocol listen address")
	flags.String("metrics", "127.0.0.1:9100", "Prometheus metrics listen address, empty to disable")
	flags.Duration("motion-delay", 0, "time taken by every motion command")
	flags.Bool("power-on", false, "start with the robot powered")
	flags.Float64Slice("spin-home", []float64{982, 393, -653}, "spinner position reported by getSpinHomePosition (x,y,z)")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.Bool("console", true, "human readable log output")
}

func serve(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	listen, _ := flags.GetString("listen")
	metricsAddr, _ := flags.GetString("metrics")
	delay, _ := flags.GetDuration("motion-delay")
	powerOn, _ := flags.GetBool("power-on")
	spinHome, _ := flags.GetFloat64Slice("spin-home")
	levelName, _ := flags.GetString("log-level")
	consoleOut, _ := flags.GetBool("console")

	level, err := logger.ParseLevel(levelName)
	if err != nil {
		return err
	}
	log := logger.NewSlog(level, logger.Options{Console: consoleOut})
	logger.SetDefault(log)

	if len(spinHome) != 3 {
		return fmt.Errorf("--spin-home needs 3 values, got %d", len(spinHome))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []simulator.Option{
		simulator.WithLogger(log),
		simulator.WithMotionDelay(delay),
		simulator.WithSpinHome(geometry.Pos(spinHome[0], spinHome[1], spinHome[2])),
		simulator.WithRegisterer(reg),
	}
	if powerOn {
		opts = append(opts, simulator.WithPowerOn())
	}

	ctx := cmd.Context()
	sim := simulator.New(opts...)
	if err := sim.Start(ctx, listen); err != nil {
		return err
	}
	defer sim.Close()

	serverErrors := make(chan error, 1)
	var srv *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv = &http.Server{
			Addr:              metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			log.Info("metrics listening", "addr", metricsAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				serverErrors <- err
			}
		}()
	}

	select {
	case err := <-serverErrors:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		log.Info("shutting down")
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics shutdown did not complete", "error", err)
		}
	}

	return nil
}
