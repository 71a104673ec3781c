// Package blob implements the append-only blob log that stores document
// bodies.
//
// Blobs are appended to memory-mapped data files named
// "<db>_<collection>.<fileKey>". Each data file is pre-allocated to the
// configured maximum size; when the next record would not fit, the manager
// rotates to a new file. Sealed files are opened on demand and kept in an
// LRU cache of reference-counted mappings that a memory monitor can evict.
//
// # Record Format
//
//	+-------------+---------+-------------------+---------+
//	| verAndFlags | crc16   | blobSize (uvarint)| payload |
//	|  1 byte     | 2 B LE  |  1-10 bytes       |         |
//	+-------------+---------+-------------------+---------+
//
// The top nibble of verAndFlags is the record version (1). Bit 0 marks a
// compressed payload and bit 1 selects zstd over LZ4. A compressed payload
// is uvarint(rawLength) followed by the codec block. crc16 holds the low 16
// bits of the CRC-32C of the stored payload and is verified on every read.
//
// # Durability
//
// Every Put and MultiPut flushes the written range with msync before it
// returns metadata, then records the new data length in the FileCatalog.
// A failed write rolls the write offset back, so a later write overwrites
// the partial record.
package blob
