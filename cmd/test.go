package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nasmond/nasmond/collector"
	"github.com/nasmond/nasmond/daemon"
)

var flagVerbose bool

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Probe every subsystem once and report the results",
	Long: `Runs one diagnostic pass over the serial link, the temperature
sensors, the network interfaces and the storage pools, and prints a
verdict per check. Exits non-zero if any check fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, debug := setup()
		d := daemon.New(cfg, logger, debug)

		checks := d.TestSystem(cmd.Context())
		printChecks(checks)

		if flagVerbose {
			printStorageDetail(cmd, d)
		}

		if daemon.WorstStatus(checks) == daemon.CheckFail {
			return errors.New("one or more checks failed")
		}
		return nil
	},
}

func init() {
	testCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "print raw storage tool output")
	rootCmd.AddCommand(testCmd)
}

var (
	verdictOK   = color.New(color.FgGreen).SprintFunc()
	verdictWarn = color.New(color.FgYellow).SprintFunc()
	verdictFail = color.New(color.FgRed, color.Bold).SprintFunc()
	verdictSkip = color.New(color.Faint).SprintFunc()
)

func printChecks(checks []daemon.CheckResult) {
	category := ""
	for _, c := range checks {
		if c.Category != category {
			category = c.Category
			fmt.Printf("\n%s\n", color.New(color.Bold).Sprint(category))
		}
		fmt.Printf("  [%s] %-24s %s\n", verdict(c.Status), c.Name, c.Detail)
	}
	fmt.Println()
}

func verdict(s daemon.CheckStatus) string {
	switch s {
	case daemon.CheckOK:
		return verdictOK("OK")
	case daemon.CheckWarn:
		return verdictWarn("WARN")
	case daemon.CheckFail:
		return verdictFail("FAIL")
	default:
		return verdictSkip("SKIP")
	}
}

// printStorageDetail dumps the raw pool status from the underlying
// tools for each discovered pool.
func printStorageDetail(cmd *cobra.Command, d *daemon.Daemon) {
	ctx := cmd.Context()
	for _, backend := range d.Storage().Backends {
		if !backend.Available(ctx) {
			continue
		}
		names, err := backend.Discover(ctx)
		if err != nil {
			continue
		}
		for _, name := range names {
			var detail string
			switch b := backend.(type) {
			case *collector.ZFSBackend:
				detail, err = b.Status(ctx, name)
			case *collector.MdadmBackend:
				detail, err = b.Detail(ctx, name)
			default:
				continue
			}
			if err != nil {
				continue
			}
			fmt.Printf("%s\n%s\n", color.New(color.Bold).Sprintf("%s %s", backend.Type(), name), detail)
		}
	}
}
