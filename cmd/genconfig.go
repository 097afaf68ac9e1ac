package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nasmond/nasmond/config"
)

var flagForce bool

var genconfigCmd = &cobra.Command{
	Use:   "genconfig [path]",
	Short: "Write an annotated sample configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "nasmond.conf"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil && !flagForce {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		if err := config.WriteSample(path); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	},
}

func init() {
	genconfigCmd.Flags().BoolVarP(&flagForce, "force", "f", false, "overwrite an existing file")
	rootCmd.AddCommand(genconfigCmd)
}
