// Package bitmap provides the compressed document-ID set used by docdb's
// indexers and filter results.
//
// A Bitmap wraps a 64-bit Roaring bitmap. IDs are appended in ascending
// order (document IDs are dense and monotonic per collection), and results
// are combined with And/Or:
//
//	a := bitmap.Of(1, 2, 3)
//	b := bitmap.Of(2, 3, 4)
//	both := bitmap.And(a, b) // {2, 3}
//
//	for id := range both.All() {
//	    // ascending IDs
//	}
//
// Bitmaps returned by And/Or are new values; inputs are never mutated.
// A Bitmap is not safe for concurrent mutation.
package bitmap
