// Package host models the embedding host the runtime is exposed to: an interpreter that lets
// only one thread run interpreted code at a time (Lock, GIL) and drives coroutines from its own
// event loop (Loop).
//
// The execution bridge receives the Lock as an explicit value. Hosts without an exclusivity
// constraint pass NoLock; the bridge keeps its capture-before-release and
// reacquire-before-convert ordering either way.
package host
