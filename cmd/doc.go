// Package cmd implements the command-line interface of the kvrt client runtime. It drives
// the client against the embedded store and is mostly useful to try out schemas and to
// measure the runtime.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for single record operations (put, get, del, exists, touch, perf)
//   - batch: Commands for batch reads into row buffers and batch writes from CSV
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// All flags can also be set as environment variables with the prefix KVRT_, e.g.
// KVRT_LOG_LEVEL=debug. See kvrt -help for a list of all commands.
package cmd
