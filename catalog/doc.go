// Package catalog persists database metadata in SQLite.
//
// The catalog lives in "<db>.dat" inside the database directory and holds
// four kinds of records:
//
//   - collections: name, schema type and the encoded schema
//   - indexes: the index definitions of each collection, in creation order
//   - data files: the blob log inventory of each collection with the number
//     of valid bytes per file
//   - delete vectors: the deleted and never written document IDs of each
//     collection as serialized bitmaps
//
// Store.FileCatalog adapts the data file inventory of one collection to
// blob.FileCatalog. Schema changes are applied from embedded, numbered
// migrations on Open.
package catalog
