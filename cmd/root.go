package cmd

import (
	"fmt"
	"os"

	"github.com/KimSoungRyoul/aerospike-py-sub001/cmd/batch"
	"github.com/KimSoungRyoul/aerospike-py-sub001/cmd/kv"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:     "kvrt",
		Short:   "key-value client runtime",
		Version: Version,
		Long: fmt.Sprintf(`kvrt (v%s)

A key-value client runtime that runs database operations on a shared
worker pool and decodes batch reads straight into fixed width row buffers.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of kvrt",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kvrt v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(batch.BatchCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
