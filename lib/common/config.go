package common

import (
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// StoreConfig configures the embedded backend
type StoreConfig struct {
	// DataDir is the badger directory, ignored if InMemory is set
	DataDir  string
	InMemory bool
	// Serializer is one of binary, json, gob
	Serializer string
	// Compression is one of none, zstd, lz4
	Compression string
	// ClusterName is reported in traces
	ClusterName string
}

// TelemetryConfig toggles tracing and metrics
type TelemetryConfig struct {
	Tracing bool
	// TraceExporter is stdout or none
	TraceExporter string
	Metrics       bool
}

// ClientConfig holds all configuration parameters of a client
type ClientConfig struct {
	Namespace     string
	Set           string
	TimeoutSecond int
	// Workers of a private runtime, 0 uses the shared runtime
	Workers   int
	LogLevel  string
	Store     StoreConfig
	Telemetry TelemetryConfig
}

// DefaultClientConfig returns the configuration used when nothing is set
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Namespace:     "test",
		Set:           "demo",
		TimeoutSecond: 10,
		LogLevel:      "warn",
		Store: StoreConfig{
			InMemory:    true,
			Serializer:  "binary",
			Compression: "none",
			ClusterName: "embedded",
		},
		Telemetry: TelemetryConfig{
			TraceExporter: "none",
			Metrics:       true,
		},
	}
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Namespace", c.Namespace)
	addField("Set", c.Set)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	if c.Workers > 0 {
		addField("Runtime Workers", fmt.Sprintf("%d (private)", c.Workers))
	} else {
		addField("Runtime Workers", "shared")
	}
	addField("Log Level", c.LogLevel)

	addSection("Store")
	if c.Store.InMemory {
		addField("Data Directory", "(in memory)")
	} else {
		addField("Data Directory", c.Store.DataDir)
	}
	addField("Serializer", c.Store.Serializer)
	addField("Compression", c.Store.Compression)
	addField("Cluster Name", c.Store.ClusterName)

	addSection("Telemetry")
	addField("Tracing", fmt.Sprintf("%t (%s)", c.Telemetry.Tracing, c.Telemetry.TraceExporter))
	addField("Metrics", fmt.Sprintf("%t", c.Telemetry.Metrics))

	return sb.String()
}
