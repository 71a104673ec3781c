// Package cache provides the LRU cache that holds docdb's memory-mapped
// data file readers.
//
// Entries carry an evictable flag. Non-evictable entries (the data file a
// collection is currently appending to) are never removed by
// PerformEviction; they become eligible once the flag is cleared.
//
// Adding never evicts. Eviction happens only when PerformEviction is called,
// typically by the memory monitor when resident memory is above its
// threshold. Evicted values are handed to the OnEvict callback outside of
// the cache lock so that releasing a mapping never blocks readers.
package cache
