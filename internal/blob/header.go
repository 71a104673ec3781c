package blob

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/docdb/internal/hash"
)

const (
	recordVersion = 1

	flagCompressed = 1 << 0
	flagZstd       = 1 << 1

	// fixedHeaderSize covers verAndFlags and the CRC.
	fixedHeaderSize = 3
	maxHeaderSize   = fixedHeaderSize + binary.MaxVarintLen64
)

type header struct {
	flags uint8
	crc   uint16
	size  uint64
}

func (h header) compressed() bool { return h.flags&flagCompressed != 0 }

// uvarintLen returns the number of bytes needed to encode x.
func uvarintLen(x uint64) int {
	n := 1
	for x >= 0x80 {
		x >>= 7
		n++
	}
	return n
}

func headerSize(payloadLen uint64) int {
	return fixedHeaderSize + uvarintLen(payloadLen)
}

func checksum(payload []byte) uint16 {
	return hash.Checksum16(payload)
}

// putHeader encodes h into dst, which must hold maxHeaderSize bytes.
func putHeader(dst []byte, h header) int {
	dst[0] = recordVersion<<4 | h.flags&0x0f
	binary.LittleEndian.PutUint16(dst[1:3], h.crc)
	return fixedHeaderSize + binary.PutUvarint(dst[fixedHeaderSize:], h.size)
}

// readHeader decodes the header at the start of src and returns it together
// with its encoded length.
func readHeader(src []byte) (header, int, error) {
	if len(src) < fixedHeaderSize+1 {
		return header{}, 0, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}
	if v := src[0] >> 4; v != recordVersion {
		return header{}, 0, fmt.Errorf("%w: unknown record version %d", ErrCorrupt, v)
	}
	size, n := binary.Uvarint(src[fixedHeaderSize:])
	switch {
	case n == 0:
		return header{}, 0, fmt.Errorf("%w: truncated blob size", ErrCorrupt)
	case n < 0:
		return header{}, 0, fmt.Errorf("%w: blob size varint overflows", ErrCorrupt)
	}
	return header{
		flags: src[0] & 0x0f,
		crc:   binary.LittleEndian.Uint16(src[1:3]),
		size:  size,
	}, fixedHeaderSize + n, nil
}
