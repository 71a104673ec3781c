package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC32C(t *testing.T) {
	// Check value of the Castagnoli polynomial.
	assert.Equal(t, uint32(0xE3069283), CRC32C([]byte("123456789")))
	assert.Equal(t, uint32(0), CRC32C(nil))
}

func TestNewCRC32C_Streaming(t *testing.T) {
	h := NewCRC32C()
	_, _ = h.Write([]byte("1234"))
	_, _ = h.Write([]byte("56789"))
	assert.Equal(t, CRC32C([]byte("123456789")), h.Sum32())
}

func TestChecksum16(t *testing.T) {
	assert.Equal(t, uint16(0x9283), Checksum16([]byte("123456789")))
}

func TestBase64CRC32C(t *testing.T) {
	assert.Equal(t, "4waSgw==", Base64CRC32C([]byte("123456789")))
	assert.Equal(t, "AAAAAA==", Base64CRC32C(nil))
}
