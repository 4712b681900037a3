// Package protocol describes the contract between this runtime and the cluster client that
// actually speaks the database wire protocol. The runtime never looks behind this interface:
// seed discovery, routing, node health and retries all belong to the implementation.
//
// The package focuses on:
//   - A small value model (Key, Bin, Record) shared by the execution bridge and the batch engine
//   - The Client interface with single-operation and batch submission
//   - The server result code table and the typed protocol Error
//
// Key Components:
//
//   - Client: Submit runs one Operation, SubmitBatch reads many keys at once. Batch entries may
//     be returned in completion order, every entry carries the key it belongs to.
//
//   - ResultCode: numeric codes reported by the server. Per-record codes (KeyNotFound,
//     Generation, FilteredOut, ...) are carried inside BatchEntry values, transport level
//     failures are returned as *Error.
//
// Implementations:
//
//	The repository ships one implementation, the embedded badger backed client in
//	protocol/memory. It is used by the CLI and by integration tests.
package protocol
