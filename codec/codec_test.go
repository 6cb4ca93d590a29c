package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockRoundTrip(t *testing.T) {
	payloads := [][]byte{
		nil,
		[]byte("x"),
		bytes.Repeat([]byte("tile data "), 1000),
		{0, 1, 2, 3, 255, 254, 253},
	}
	for _, c := range []Codec{None{}, Zstd{}, LZ4{}} {
		t.Run(c.Name(), func(t *testing.T) {
			for _, src := range payloads {
				blk, err := EncodeBlock(c, src)
				require.NoError(t, err)
				assert.Equal(t, c.Tag(), blk[0])

				got, err := DecodeBlock(blk)
				require.NoError(t, err)
				if len(src) == 0 {
					assert.Empty(t, got)
				} else {
					assert.Equal(t, src, got)
				}
			}
		})
	}
}

func TestZstdCompresses(t *testing.T) {
	src := bytes.Repeat([]byte("aaaaaaaaaa"), 10000)
	blk, err := EncodeBlock(Zstd{}, src)
	require.NoError(t, err)
	assert.Less(t, len(blk), len(src)/10)
}

func TestDecodeBlockErrors(t *testing.T) {
	_, err := DecodeBlock([]byte{1, 2})
	assert.Error(t, err)

	_, err = DecodeBlock([]byte{99, 0, 0, 0, 0, 0, 0, 0, 0})
	assert.Error(t, err)
}

func TestByName(t *testing.T) {
	for _, name := range []string{"none", "zstd", "lz4"} {
		c, ok := ByName(name)
		require.True(t, ok)
		assert.Equal(t, name, c.Name())
	}
	_, ok := ByName("snappy")
	assert.False(t, ok)
}
