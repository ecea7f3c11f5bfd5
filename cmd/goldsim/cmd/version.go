package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the goldsim CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "goldsim version %s\n", version)
		fmt.Fprintln(out, "A gold trading portfolio simulator")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
