// Package runtime provides the worker pool every client operation runs on.
//
// Default returns the process wide Executor. It is created lazily with one worker per CPU,
// shared by all client handles and never torn down. Code that needs a scheduler takes the
// Scheduler interface, tests pass a private New(n) executor or their own implementation.
//
// Tasks are queued on an unbounded lock-free injection queue (multi producer, a single pump
// goroutine) and picked up by whichever worker is idle first. Spawn returns a Task handle,
// BlockOn runs a function and blocks only the calling goroutine until it finished.
//
// Executor metrics (submitted, completed, panicked, queued, inflight, task duration) are
// kept in a per executor VictoriaMetrics set and can be exported with WritePrometheus.
package runtime
