// Package cmd holds the nasmond command line interface.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nasmond/nasmond/config"
	"github.com/nasmond/nasmond/daemon"
)

var (
	flagConfig string
	flagPort   string
	flagDebug  bool
)

var rootCmd = &cobra.Command{
	Use:   "nasmond",
	Short: "NAS hardware monitor for serial display panels",
	Long: `nasmond polls CPU and drive temperatures, network identity and
storage pool health, and streams the readings to a front panel display
over a serial link. Without a subcommand it runs the monitoring loop in
the foreground.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, debug := setup()
		d := daemon.New(cfg, logger, debug)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			logger.Printf("received %s, shutting down", sig)
			d.Stop()
		}()

		return d.Run(ctx)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&flagPort, "port", "p", "", "serial port override")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "verbose logging")
}

// setup loads configuration, applies flag overrides and builds the
// process logger.
func setup() (*config.Config, *log.Logger, bool) {
	cfg := config.Load(flagConfig)
	if flagPort != "" {
		cfg.Set("serial", "port", flagPort)
	}
	if flagDebug {
		cfg.Set("logging", "level", "DEBUG")
	}
	debug := cfg.LogLevel() == "DEBUG"
	return cfg, buildLogger(cfg), debug
}

func buildLogger(cfg *config.Config) *log.Logger {
	var out io.Writer = os.Stderr
	if path := cfg.LogFile(); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot open log file %s: %v\n", path, err)
		} else {
			out = io.MultiWriter(os.Stderr, f)
		}
	}
	return log.New(out, "", log.LstdFlags)
}
