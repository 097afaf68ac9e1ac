package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/nasmond/nasmond/daemon"
	"github.com/nasmond/nasmond/ui"
)

var flagWatchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show the monitor readings live in the terminal",
	Long: `Renders the same readings the front panel display would show,
refreshed in place. Nothing is sent over the serial link.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, debug := setup()
		d := daemon.New(cfg, logger, debug)
		return ui.Run(d.Collect, flagWatchInterval)
	},
}

func init() {
	watchCmd.Flags().DurationVarP(&flagWatchInterval, "interval", "i", 5*time.Second, "refresh interval")
	rootCmd.AddCommand(watchCmd)
}
