package util

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/client"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/common"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/telemetry"
	"github.com/cstockton/go-conv"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Client configuration
// --------------------------------------------------------------------------

// SetupClientFlags adds the client connection flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	def := common.DefaultClientConfig()

	key := "namespace"
	cmd.PersistentFlags().String(key, def.Namespace, WrapString("Namespace of the records"))

	key = "set"
	cmd.PersistentFlags().String(key, def.Set, WrapString("Set of the records"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, def.TimeoutSecond, WrapString("The timeout in seconds of a single operation (0 disables the timeout)"))

	key = "workers"
	cmd.PersistentFlags().Int(key, def.Workers, WrapString("Workers of a private runtime, 0 uses the shared runtime with one worker per CPU"))

	key = "log-level"
	cmd.PersistentFlags().String(key, def.LogLevel, WrapString("Log level (debug, info, warn, error)"))

	key = "data-dir"
	cmd.PersistentFlags().String(key, def.Store.DataDir, WrapString("Directory of the embedded store, ignored with --in-memory"))

	key = "in-memory"
	cmd.PersistentFlags().Bool(key, def.Store.InMemory, WrapString("Keep the embedded store in memory only"))

	key = "serializer"
	cmd.PersistentFlags().String(key, def.Store.Serializer, WrapString("Record serializer of the embedded store (binary, json, gob)"))

	key = "compression"
	cmd.PersistentFlags().String(key, def.Store.Compression, WrapString("Record compression of the embedded store (none, zstd, lz4)"))

	key = "cluster-name"
	cmd.PersistentFlags().String(key, def.Store.ClusterName, WrapString("Cluster name reported in traces"))

	key = "tracing"
	cmd.PersistentFlags().Bool(key, def.Telemetry.Tracing, WrapString("Export a span for every operation"))

	key = "trace-exporter"
	cmd.PersistentFlags().String(key, def.Telemetry.TraceExporter, WrapString("Trace exporter (stdout, none)"))

	key = "metrics"
	cmd.PersistentFlags().Bool(key, def.Telemetry.Metrics, WrapString("Record operation latency metrics"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("kvrt")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	conf := &common.ClientConfig{
		Namespace:     viper.GetString("namespace"),
		Set:           viper.GetString("set"),
		TimeoutSecond: viper.GetInt("timeout"),
		Workers:       viper.GetInt("workers"),
		LogLevel:      viper.GetString("log-level"),
		Store: common.StoreConfig{
			DataDir:     viper.GetString("data-dir"),
			InMemory:    viper.GetBool("in-memory"),
			Serializer:  viper.GetString("serializer"),
			Compression: viper.GetString("compression"),
			ClusterName: viper.GetString("cluster-name"),
		},
		Telemetry: common.TelemetryConfig{
			Tracing:       viper.GetBool("tracing"),
			TraceExporter: viper.GetString("trace-exporter"),
			Metrics:       viper.GetBool("metrics"),
		},
	}

	return conf
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// Connect binds the flags of cmd, sets up logging and tracing and connects a client. The
// returned function closes the client and flushes pending spans.
func Connect(cmd *cobra.Command) (*client.Client, func(), error) {
	if err := BindCommandFlags(cmd); err != nil {
		return nil, nil, err
	}
	config := GetClientConfig()

	if err := common.InitLoggers(config.LogLevel); err != nil {
		return nil, nil, err
	}

	shutdown := func(context.Context) error { return nil }
	if config.Telemetry.Tracing && config.Telemetry.TraceExporter != "none" {
		var err error
		if shutdown, err = telemetry.InitTracing("kvrt", cmd.Root().Version); err != nil {
			return nil, nil, err
		}
	}

	c, err := client.Connect(cmd.Context(), *config)
	if err != nil {
		_ = shutdown(context.Background())
		return nil, nil, err
	}

	cleanup := func() {
		if err := c.Close(); err != nil {
			fmt.Printf("error closing client: %v\n", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(ctx)
	}
	return c, cleanup, nil
}

// --------------------------------------------------------------------------
// Argument parsing
// --------------------------------------------------------------------------

// ParseKey builds a key in the configured namespace and set. Keys that are integers are used
// as integer keys, all others as string keys.
func ParseKey(raw string) (protocol.Key, error) {
	var userKey any = raw
	if i, err := conv.Int64(raw); err == nil && strconv.FormatInt(i, 10) == raw {
		userKey = i
	}
	return protocol.NewKey(viper.GetString("namespace"), viper.GetString("set"), userKey)
}

// ParseBins parses bins given as name=value or name:type=value. Types are int, float, bool,
// str, hex and nil; without a type the value type is inferred.
func ParseBins(args []string) ([]protocol.Bin, error) {
	bins := make([]protocol.Bin, 0, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid bin %q, expected name=value", arg)
		}
		name, typ, _ := strings.Cut(name, ":")
		value, err := ParseValue(raw, typ)
		if err != nil {
			return nil, fmt.Errorf("invalid value for bin %s: %w", name, err)
		}
		bins = append(bins, protocol.Bin{Name: name, Value: value})
	}
	return bins, nil
}

// ParseValue converts raw to the named type
func ParseValue(raw, typ string) (any, error) {
	switch strings.ToLower(typ) {
	case "":
		return inferValue(raw), nil
	case "int":
		return conv.Int64(raw)
	case "float":
		return conv.Float64(raw)
	case "bool":
		return conv.Bool(raw)
	case "str", "string":
		return raw, nil
	case "hex", "bytes":
		return hex.DecodeString(raw)
	case "nil", "null":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown type %q", typ)
	}
}

func inferValue(raw string) any {
	switch raw {
	case "true", "false":
		b, _ := conv.Bool(raw)
		return b
	}
	if i, err := conv.Int64(raw); err == nil && strconv.FormatInt(i, 10) == raw {
		return i
	}
	if strings.ContainsAny(raw, "0123456789") {
		if f, err := conv.Float64(raw); err == nil {
			return f
		}
	}
	return raw
}

// FormatRecord renders a record on one line
func FormatRecord(rec *protocol.Record) string {
	if rec == nil {
		return "<nil>"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("gen=%d ttl=%d", rec.Generation, rec.TTL))
	for _, b := range rec.Bins {
		s, err := conv.String(b.Value)
		if err != nil {
			s = fmt.Sprintf("%v", b.Value)
		}
		sb.WriteString(fmt.Sprintf(" %s=%s", b.Name, s))
	}
	return sb.String()
}
