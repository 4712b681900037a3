// Package bridge runs database operations for call sites that live inside a host with an
// exclusivity lock.
//
// Blocking mode (RunBlocking):
//
//  1. with the lock held: capture the trace context, clone the session from the handle
//  2. release the lock
//  3. run the operation on the runtime, blocking only the calling goroutine
//  4. reacquire the lock
//  5. convert the result or return the mapped error
//
// Non-blocking mode (RunAsync) spawns the operation immediately and returns an Awaitable.
// The host polls it; when the task finished the result is converted on the host loop with the
// lock held and the registered waker is called. Cancelling an Awaitable detaches the task: it
// runs to completion in the background and its result is dropped, an in-flight write is never
// aborted half way.
//
// Errors from the protocol client are mapped to *Error whose Class forms a hierarchy, so
// errors.Is(err, ErrRecord) matches not-found, generation and the other record errors.
package bridge
