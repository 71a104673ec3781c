// Package document defines the capability interfaces docdb uses to read
// schema-typed documents.
//
// docdb never interprets document bytes itself. A [Schema] turns raw bytes
// into a [Document]; indexers and field accessors then read typed values
// through the Document methods. Nested fields are addressed with dotted
// paths ("address.city") and resolved with [Resolve], which walks
// sub-documents one token at a time.
//
// Null values use in-band sentinels: [NullString] for strings,
// [NullInt64]/[NullInt32] for integers and [NullDouble] for doubles.
//
// The jsondoc sub-package provides a JSON implementation.
package document
