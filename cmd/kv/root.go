package kv

import (
	"github.com/KimSoungRyoul/aerospike-py-sub001/cmd/util"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/client"
	"github.com/spf13/cobra"
)

var (
	kvClient *client.Client
	closeKV  func()

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform single record operations",
		PersistentPreRunE:  setupKVClient,
		PersistentPostRunE: closeKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add client flags to the KV command
	util.SetupClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(putCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(existsCmd)
	KeyValueCommands.AddCommand(touchCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient connects the client used by all kv commands
func setupKVClient(cmd *cobra.Command, _ []string) error {
	var err error
	kvClient, closeKV, err = util.Connect(cmd)
	return err
}

func closeKVClient(_ *cobra.Command, _ []string) error {
	if closeKV != nil {
		closeKV()
	}
	return nil
}
