// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nprint",
	Short: "nprint - Convert network captures to the nPrint bit representation",
	Long: `nprint converts raw network packets into nPrint: a fixed-width,
protocol-agnostic bit-level representation suitable for direct consumption
by machine-learning pipelines.

Every bit position of every supported protocol header owns one column in a
stable global schema. Bits are 0 or 1 when the protocol is present in a
packet and -1 (N/A) when it is not, so every output row has the same shape
regardless of packet contents. Packets of one connection are stacked into a
fixed number of rows, padded with all-N/A rows when the connection is short.`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults apply when omitted)")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(schemaCmd)
}
