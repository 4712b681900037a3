package kv

import (
	"fmt"
	"strconv"

	"github.com/KimSoungRyoul/aerospike-py-sub001/cmd/util"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol"
	"github.com/spf13/cobra"
)

var (
	putTTL        int32
	putGeneration uint32

	putCmd = &cobra.Command{
		Use:   "put [key] [bin=value]...",
		Short: "Writes bins of a record",
		Long: `Writes bins of a record. Bins are given as name=value or name:type=value with the
types int, float, bool, str, hex and nil. A nil value deletes the bin.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := util.ParseKey(args[0])
			if err != nil {
				return err
			}
			bins, err := util.ParseBins(args[1:])
			if err != nil {
				return err
			}
			policy := protocol.WritePolicy{TTL: putTTL}
			if cmd.Flags().Changed("generation") {
				policy.Generation, policy.GenerationEQ = putGeneration, true
			}
			rec, err := kvClient.Put(cmd.Context(), key, bins, policy)
			if err != nil {
				return err
			}
			fmt.Printf("put successfully (%s)\n", util.FormatRecord(rec))
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key] [bin]...",
		Short: "Reads a record, optionally only the given bins",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := util.ParseKey(args[0])
			if err != nil {
				return err
			}
			rec, err := kvClient.Get(cmd.Context(), key, args[1:]...)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, %s\n", args[0], util.FormatRecord(rec))
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := util.ParseKey(args[0])
			if err != nil {
				return err
			}
			if err := kvClient.Delete(cmd.Context(), key, protocol.WritePolicy{}); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	existsCmd = &cobra.Command{
		Use:   "exists [key]",
		Short: "Checks if a record exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := util.ParseKey(args[0])
			if err != nil {
				return err
			}
			meta, err := kvClient.Exists(cmd.Context(), key)
			if err != nil {
				return err
			}
			if meta == nil {
				fmt.Printf("key=%s, found=false\n", args[0])
			} else {
				fmt.Printf("key=%s, found=true, %s\n", args[0], util.FormatRecord(meta))
			}
			return nil
		},
	}
	touchCmd = &cobra.Command{
		Use:   "touch [key] [ttl]",
		Short: "Resets the ttl of a record (-1 never expires)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := util.ParseKey(args[0])
			if err != nil {
				return err
			}
			ttl, err := strconv.ParseInt(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("ttl must be a number: %w", err)
			}
			meta, err := kvClient.Touch(cmd.Context(), key, int32(ttl))
			if err != nil {
				return err
			}
			fmt.Printf("touch successfully (%s)\n", util.FormatRecord(meta))
			return nil
		},
	}
)

func init() {
	putCmd.Flags().Int32Var(&putTTL, "ttl", 0, util.WrapString("TTL in seconds, 0 uses the namespace default, -1 never expires"))
	putCmd.Flags().Uint32Var(&putGeneration, "generation", 0, util.WrapString("Only write if the record has this generation"))
}
