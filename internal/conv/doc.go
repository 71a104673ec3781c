// Package conv provides safe integer type conversion utilities.
//
// Lengths and sizes read from disk are untrusted: a corrupt record header
// may carry any uvarint. These helpers reject values the platform int cannot
// hold instead of silently truncating them.
//
// For conversions that are provably safe by domain constraints (e.g., loop
// indices, bounded counters), use direct type casts instead.
package conv
