// Package memory is an embedded implementation of protocol.Client on top of badger.
//
// Records are stored under namespace + digest, encoded with one of the serializers of
// package serializer. Writes increment the generation and honour the write policy (ttl,
// expected generation); ttl is enforced by badger. Batch reads run concurrently and return
// their entries in completion order, like a real cluster answering from several nodes.
//
// The store is used by the CLI and by the tests of the higher layers. The optional Latency
// setting delays every operation by a random amount which makes out of order completion and
// the lock release of the bridge observable.
package memory
