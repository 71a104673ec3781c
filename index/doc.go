// Package index implements docdb's secondary indexes and predicate
// evaluation.
//
// # Indexers
//
// Two families of indexers cover every indexable field type:
//
//   - Bitmap indexers (BitmapInteger, BitmapString) keep an inverted map
//     from each distinct value to the compressed set of document IDs that
//     hold it. Keys are kept sorted, so equality is a lookup and range
//     predicates are a bounded scan.
//   - Vector indexers (VectorInteger[T], VectorDouble, VectorString,
//     VectorBlob) keep one value per document ID in a dense slice. Lookups
//     by ID are O(1); predicates are a linear scan.
//
// Vector indexers require Insert calls in strictly increasing ID order
// with no gaps; anything else panics.
//
// # Comparison Rules
//
// Operands of a different type than the indexed field follow SQLite's
// ordering: NULL < INTEGER/REAL < TEXT < BLOB. Numeric operands against a
// string index compare as their text form (TEXT affinity). Double operands
// against integer indexes are coerced by floor/ceil so that, for example,
// "x > 2.5" matches 3 and "x = 2.5" matches nothing. Null strings and
// zero-length blobs never match.
//
// # Manager
//
// Manager owns the indexers of a collection, feeds them documents and
// answers a list of constraints with the AND of the per-constraint results:
//
//	m, _ := index.NewManager(infos, columnTypes)
//	_, _ = m.IndexDocuments(0, docs)
//	ids, _ := m.Filter([]index.Constraint{
//	    index.IntConstraint("age", index.OpGreaterThan, 30),
//	})
package index
