package blob

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/docdb/internal/conv"
)

// Codec selects the compression algorithm for compressed records.
type Codec uint8

const (
	// CodecLZ4 uses LZ4 block compression.
	CodecLZ4 Codec = iota
	// CodecZstd uses zstd.
	CodecZstd
)

func (c Codec) String() string {
	switch c {
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("Codec(%d)", uint8(c))
	}
}

// lz4MaxRatio bounds the expansion of an LZ4 block.
const lz4MaxRatio = 255

var zstdEncoderPool sync.Pool

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

// decoder decodes records whose blobs are at most limit bytes long.
type decoder struct {
	limit uint64
	zstd  sync.Pool
}

func newDecoder(limit int64) *decoder {
	return &decoder{limit: uint64(limit)}
}

func (d *decoder) getZstd() (*zstd.Decoder, error) {
	if v := d.zstd.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(d.limit))
}

// compress returns uvarint(len(src)) followed by the compressed block, and
// the record flags for it. ok is false when compression does not shrink src.
func compress(codec Codec, src []byte) (payload []byte, flags uint8, ok bool, err error) {
	if len(src) == 0 {
		return nil, 0, false, nil
	}

	prefix := binary.AppendUvarint(nil, uint64(len(src)))
	switch codec {
	case CodecLZ4:
		buf := make([]byte, len(prefix)+lz4.CompressBlockBound(len(src)))
		copy(buf, prefix)
		n, err := lz4.CompressBlock(src, buf[len(prefix):], nil)
		if err != nil {
			return nil, 0, false, err
		}
		if n == 0 {
			return nil, 0, false, nil
		}
		payload, flags = buf[:len(prefix)+n], flagCompressed
	case CodecZstd:
		enc := getZstdEncoder()
		payload = enc.EncodeAll(src, prefix)
		zstdEncoderPool.Put(enc)
		flags = flagCompressed | flagZstd
	default:
		return nil, 0, false, fmt.Errorf("blob: unknown codec %s", codec)
	}

	if len(payload) >= len(src) {
		return nil, 0, false, nil
	}
	return payload, flags, true, nil
}

// decompress expands a compressed payload into dst, growing it if needed.
// The raw length is checked before anything is allocated.
func (d *decoder) decompress(flags uint8, payload, dst []byte) ([]byte, error) {
	rawLen, n := binary.Uvarint(payload)
	if n <= 0 {
		return nil, fmt.Errorf("%w: bad raw length", ErrCorrupt)
	}
	block := payload[n:]
	if rawLen > d.limit {
		return nil, fmt.Errorf("%w: raw length %d exceeds limit %d", ErrCorrupt, rawLen, d.limit)
	}
	zstdBlock := flags&flagZstd != 0
	if !zstdBlock && rawLen > lz4MaxRatio*uint64(len(block)) {
		return nil, fmt.Errorf("%w: raw length %d too large for %d byte block", ErrCorrupt, rawLen, len(block))
	}
	size, err := conv.Uint64ToInt(rawLen)
	if err != nil {
		return nil, fmt.Errorf("%w: raw length: %w", ErrCorrupt, err)
	}
	out := grow(dst, size)

	if zstdBlock {
		dec, err := d.getZstd()
		if err != nil {
			return nil, err
		}
		decoded, err := dec.DecodeAll(block, out[:0])
		d.zstd.Put(dec)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
		}
		if uint64(len(decoded)) != rawLen {
			return nil, fmt.Errorf("%w: decompressed %d bytes, want %d", ErrCorrupt, len(decoded), rawLen)
		}
		return decoded, nil
	}

	got, err := lz4.UncompressBlock(block, out)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4: %w", ErrCorrupt, err)
	}
	if uint64(got) != rawLen {
		return nil, fmt.Errorf("%w: decompressed %d bytes, want %d", ErrCorrupt, got, rawLen)
	}
	return out, nil
}

// grow returns buf resized to n bytes, reallocating if its capacity is too
// small.
func grow(buf []byte, n int) []byte {
	if cap(buf) < n {
		return make([]byte, n)
	}
	return buf[:n]
}
