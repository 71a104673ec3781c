// Package jsondoc implements docdb documents encoded as JSON objects.
//
// A schema is itself JSON:
//
//	{"fields": [
//	    {"name": "name", "type": "string"},
//	    {"name": "age", "type": "int32"},
//	    {"name": "address", "type": "complex", "fields": [
//	        {"name": "city", "type": "string"}
//	    ]}
//	]}
//
// Documents are JSON objects whose members follow the schema. Blob fields
// hold base64 strings, as produced by encoding/json for []byte. Fields
// missing from a document read as zero for numbers, the null sentinel for
// strings and an empty slice for blobs.
package jsondoc
