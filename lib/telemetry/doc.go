// Package telemetry carries trace context across the execution bridge and records operation
// metrics.
//
// Capture runs on the caller side while the host lock is held and turns the caller's trace
// context into a plain Context value. Attach runs on a runtime worker, restores that value
// and starts a client span named "OP ns.set" so spans created inside the operation are
// parented to the caller. Tracing is skipped entirely if OTEL_SDK_DISABLED=true or
// OTEL_TRACES_EXPORTER=none.
//
// Operation latency is recorded in the Prometheus histogram
// db_client_operation_duration_seconds, labelled by namespace, set, operation and error type.
package telemetry
