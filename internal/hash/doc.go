// Package hash provides the CRC32-Castagnoli checksums used for data
// integrity.
//
// Blob records carry the low 16 bits of the CRC32C of their payload:
//
//	crc := hash.Checksum16(payload)
//
// Uploads to S3 send the full checksum so the service can verify the body:
//
//	sum := hash.Base64CRC32C(data)
//
// Go's crc32 package uses hardware instructions (SSE4.2, ARM CRC) when they
// are available.
package hash
