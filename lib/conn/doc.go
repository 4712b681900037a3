// Package conn holds the connection handle shared by all calls of a client.
//
// A Handle owns at most one Session. Calls clone it with Acquire (short mutex, reference
// count incremented), run their network operation without any lock and Release it afterwards.
// Swap and Close replace the slot; the retired session closes its protocol client only when
// the last in-flight operation released it.
package conn
