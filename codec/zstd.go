package codec

import "github.com/klauspost/compress/zstd"

// Shared encoder/decoder: EncodeAll/DecodeAll on these are safe for
// concurrent use and avoid per-block allocation of coder state.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// Zstd compresses tile blocks with Zstandard.
type Zstd struct{}

func (Zstd) Encode(src []byte) ([]byte, error) {
	return zstdEncoder.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
}

func (Zstd) Decode(src []byte, size int) ([]byte, error) {
	return zstdDecoder.DecodeAll(src, make([]byte, 0, size))
}

func (Zstd) Tag() byte    { return TagZstd }
func (Zstd) Name() string { return "zstd" }
