// Package docdb provides an embedded document database for Go.
//
// A database holds collections of schema-typed documents. Document bodies
// are appended to a compressed blob log of memory-mapped data files;
// secondary indexes are rebuilt from that log whenever a collection is
// opened and answer SQL-style column predicates as compressed bitmaps.
//
// # Quick Start
//
//	ctx := context.Background()
//	db, _ := docdb.Open(ctx, "./data", "shop")
//	defer db.Close(ctx)
//
//	schema, _ := jsondoc.NewSchema([]byte(`{"fields":[
//	    {"name":"age","type":"int32"},
//	    {"name":"name","type":"string"}
//	]}`))
//	people, _ := db.CreateCollection(ctx, "people", schema,
//	    index.Info{Name: "age_vec", Type: index.TypeVector, Column: "age", Ascending: true},
//	)
//
//	id, _ := people.Insert(ctx, []byte(`{"age":42,"name":"ada"}`))
//
// # Filtering
//
// Filter evaluates a conjunction of column constraints. Every constraint is
// answered by the first index on its column that supports the operator:
//
//	ids, _ := people.Filter(ctx, index.IntConstraint("age", index.OpGreaterThanEqual, 18))
//	for id := range ids.All() {
//	    name, _ := people.StringField(ctx, id, "name")
//	    fmt.Println(id, name)
//	}
//
// A constraint on a column without a suitable index fails with
// ErrInvalidArgument.
//
// # Durability
//
// Inserts return once the documents are flushed to their data file and the
// new data length is recorded in the catalog. WithSynchronous(false) trades
// that guarantee for throughput. A multi-document insert that fails to store
// leaves none of its documents visible.
//
// # Memory
//
// Sealed data files are mapped on demand and kept in a per-collection LRU
// cache. A background monitor samples the process memory and, while it is
// above WithMemoryCleanupThreshold, asks collections round robin to unmap
// their least recently used files.
//
// # Backups
//
// Backup copies the data files, a catalog snapshot and a manifest to any
// blobstore.Store: a local directory, memory, MinIO or S3.
package docdb
