package hash

import (
	"encoding/base64"
	"hash"
	"hash/crc32"
)

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// NewCRC32C returns a new CRC32-Castagnoli hash.Hash32.
func NewCRC32C() hash.Hash32 {
	return crc32.New(crc32cTable)
}

// Checksum16 returns the low 16 bits of the CRC32C of data, as stored in
// blob record headers.
func Checksum16(data []byte) uint16 {
	return uint16(CRC32C(data))
}

// Base64CRC32C returns the big-endian CRC32C of data encoded as standard
// base64, the form S3 expects in x-amz-checksum-crc32c.
func Base64CRC32C(data []byte) string {
	sum := CRC32C(data)
	b := []byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)}
	return base64.StdEncoding.EncodeToString(b)
}
