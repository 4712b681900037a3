package kv

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/KimSoungRyoul/aerospike-py-sub001/cmd/util"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/batch"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/common"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/runtime"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for the client runtime",
		Long:    "",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)

	perfSchema = batch.Schema{batch.IntField("n", 8), batch.BytesField("s", 8)}
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. put,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the put-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests (also the batch size)"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
	key = "runtime-metrics"
	perfTestCmd.Flags().Bool(key, false, util.WrapString("Print the metrics of the shared runtime after the tests"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func run(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	fmt.Println("Performance testing tool for the client runtime")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	results := make(map[string]testing.BenchmarkResult)
	small := []protocol.Bin{{Name: "n", Value: int64(1)}, {Name: "s", Value: "test"}}

	results["put"] = benchmark("put", func(b *testing.B) {
		getKey, iter := getKeys("put")
		b.Cleanup(func() { deleteKeys("put", iter) })

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if _, err := kvClient.Put(ctx, getKey(counter), small, protocol.WritePolicy{}); err != nil {
					log.Printf("(put) - error writing record: %v\n", err)
				}
				counter++
			}
		})
	})

	results["put-large"] = benchmark("put-large", func(b *testing.B) {
		large := []protocol.Bin{{Name: "blob", Value: make([]byte, perfLargeValueSizeKB*1024)}}
		getKey, iter := getKeys("put-large")
		b.Cleanup(func() { deleteKeys("put-large", iter) })

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if _, err := kvClient.Put(ctx, getKey(counter), large, protocol.WritePolicy{}); err != nil {
					log.Printf("(put-large) - error writing record: %v", err)
				}
				counter++
			}
		})
	})

	results["get"] = benchmark("get", func(b *testing.B) {
		getKey, iter := getKeys("get")
		fillKeys("get", iter, small)
		b.Cleanup(func() { deleteKeys("get", iter) })

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if _, err := kvClient.Get(ctx, getKey(counter)); err != nil {
					log.Printf("(get) - error reading record: %v\n", err)
				}
				counter++
			}
		})
	})

	results["get-async"] = benchmark("get-async", func(b *testing.B) {
		getKey, iter := getKeys("get-async")
		fillKeys("get-async", iter, small)
		b.Cleanup(func() { deleteKeys("get-async", iter) })

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if _, err := kvClient.GetAsync(ctx, getKey(counter)).Wait(ctx); err != nil {
					log.Printf("(get-async) - error reading record: %v\n", err)
				}
				counter++
			}
		})
	})

	results["batch-read"] = benchmark("batch-read", func(b *testing.B) {
		getKey, iter := getKeys("batch-read")
		fillKeys("batch-read", iter, small)
		b.Cleanup(func() { deleteKeys("batch-read", iter) })

		keys := make([]protocol.Key, perfKeySpread)
		for i := range keys {
			keys[i] = getKey(i)
		}

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if _, err := kvClient.BatchRead(ctx, keys, perfSchema); err != nil {
					log.Printf("(batch-read) - error reading batch: %v\n", err)
				}
			}
		})
	})

	results["exists-not"] = benchmark("exists-not", func(b *testing.B) {
		getKey, _ := getKeys("exists-not")

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if _, err := kvClient.Exists(ctx, getKey(counter)); err != nil {
					log.Printf("(exists-not) - error checking record: %v\n", err)
				}
				counter++
			}
		})
	})

	results["mixed"] = benchmark("mixed", func(b *testing.B) {
		getKey, iter := getKeys("mixed")
		fillKeys("mixed", iter, small)
		b.Cleanup(func() { deleteKeys("mixed", iter) })

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				key := getKey(counter)
				var err error
				switch counter % 4 {
				case 0:
					_, err = kvClient.Put(ctx, key, small, protocol.WritePolicy{})
				case 1:
					_, err = kvClient.Get(ctx, key)
				case 2:
					err = kvClient.Delete(ctx, key, protocol.WritePolicy{})
				case 3:
					_, err = kvClient.Exists(ctx, key)
				}

				// a concurrent delete makes reads miss
				if err != nil && protocol.CodeOf(err) != protocol.ResultKeyNotFound {
					log.Printf("(mixed) - error performing operation (%d): %v\n", counter%4, err)
				}
				counter++
			}
		})
	})

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	if viper.GetBool("runtime-metrics") && viper.GetInt("workers") == 0 {
		fmt.Println()
		runtime.Default().WritePrometheus(os.Stdout)
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// benchmark runs fn unless the test is skipped and prints the result
func benchmark(test string, fn func(b *testing.B)) testing.BenchmarkResult {
	result := testing.Benchmark(func(b *testing.B) {
		if shouldSkip(test) {
			return
		}
		fn(b)
	})
	printResult(test, result)
	return result
}

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) protocol.Key, func(func(protocol.Key))) {
	namespace, set := viper.GetString("namespace"), viper.GetString("set")
	keys := make([]protocol.Key, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = protocol.MustKey(namespace, set, fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i))
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) protocol.Key {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(protocol.Key)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

func fillKeys(test string, iter func(func(protocol.Key)), bins []protocol.Bin) {
	iter(func(k protocol.Key) {
		if _, err := kvClient.Put(context.Background(), k, bins, protocol.WritePolicy{}); err != nil {
			log.Printf("(%s) - error writing record: %v\n", test, err)
		}
	})
}

func deleteKeys(test string, iter func(func(protocol.Key))) {
	iter(func(k protocol.Key) {
		err := kvClient.Delete(context.Background(), k, protocol.WritePolicy{})
		if err != nil && protocol.CodeOf(err) != protocol.ResultKeyNotFound {
			log.Printf("(%s) - error deleting record: %v\n", test, err)
		}
	})
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Namespace", "TimeoutSec", "Workers", "Serializer", "Compression", "InMemory",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			config.Namespace,
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Workers),
			config.Store.Serializer,
			config.Store.Compression,
			strconv.FormatBool(config.Store.InMemory),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
