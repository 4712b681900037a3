// Package batch decodes batch reads into packed, fixed width row buffers.
//
// A Schema lists the fields of a row. Compile turns it into a Layout: fields are packed in
// schema order without padding, the row stride is the sum of the field sizes. Materialize
// sends one batch read and writes every returned bin straight into its slot:
//
//	schema, _ := batch.ParseSchema("age:u4,name:S8,vec:(8)f4")
//	res, err := batch.Materialize(ctx, client, keys, schema, nil)
//	age, _ := res.Value(res.Index["user1"], "age")
//
// Entries are placed at the row of their input key regardless of the order the server
// answers in. Rows of missing records stay zero and carry their result code in Codes.
//
// The reverse path (ToRecords) builds records for a batch write from a row buffer with a
// _key field. Results can be exported to arrow with Result.ToArrow.
package batch
