// Package client is the CRUD and batch surface of the runtime.
//
// A Client owns a connection handle and an execution bridge. Blocking methods release the
// host lock while the operation runs on the shared runtime, async methods return a
// bridge.Awaitable whose result is delivered on the host loop. Batch reads decode straight
// into a batch.Result:
//
//	c, err := client.Connect(ctx, common.DefaultClientConfig())
//	res, err := c.BatchRead(ctx, keys, batch.Schema{batch.UintField("age", 4)})
//	age, err := res.Value(res.Index["user1"], "age")
package client
