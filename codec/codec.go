// Package codec centralizes tile block compression.
//
// Fragment tile blobs are stored as a one-byte codec tag followed by the
// encoded payload, so a reader can decode blobs written with any built-in
// codec. Codec selection is a compatibility boundary: removing a codec
// makes blobs written with it undecodable.
package codec

import (
	"encoding/binary"
	"fmt"
)

// Codec compresses and decompresses tile blocks.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Encode compresses src into a new slice.
	Encode(src []byte) ([]byte, error)
	// Decode decompresses src. size is the exact uncompressed length,
	// recovered from the block header.
	Decode(src []byte, size int) ([]byte, error)
	// Tag is the stable one-byte identifier stored in blob headers.
	Tag() byte
	Name() string
}

// Default is the codec used when none is configured.
var Default Codec = None{}

// Codec tags persisted in blob headers.
const (
	TagNone byte = 0
	TagZstd byte = 1
	TagLZ4  byte = 2
)

// ByTag returns the built-in codec for a blob header tag.
func ByTag(tag byte) (Codec, bool) {
	switch tag {
	case TagNone:
		return None{}, true
	case TagZstd:
		return Zstd{}, true
	case TagLZ4:
		return LZ4{}, true
	default:
		return nil, false
	}
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "none":
		return None{}, true
	case "zstd":
		return Zstd{}, true
	case "lz4":
		return LZ4{}, true
	default:
		return nil, false
	}
}

// EncodeBlock frames and compresses one tile block: tag byte, uncompressed
// length, payload.
func EncodeBlock(c Codec, src []byte) ([]byte, error) {
	if c == nil {
		c = Default
	}
	payload, err := c.Encode(src)
	if err != nil {
		return nil, fmt.Errorf("codec: encode %s block: %w", c.Name(), err)
	}
	dst := make([]byte, 0, 9+len(payload))
	dst = append(dst, c.Tag())
	dst = binary.LittleEndian.AppendUint64(dst, uint64(len(src)))
	return append(dst, payload...), nil
}

// BlockSize returns the uncompressed size recorded in a framed block's
// header, without decoding the payload.
func BlockSize(src []byte) (int, error) {
	if len(src) < 9 {
		return 0, fmt.Errorf("codec: short block header (%d bytes)", len(src))
	}
	return int(binary.LittleEndian.Uint64(src[1:9])), nil
}

// DecodeBlock decodes a framed tile block, dispatching on its header tag.
func DecodeBlock(src []byte) ([]byte, error) {
	if len(src) < 9 {
		return nil, fmt.Errorf("codec: short block header (%d bytes)", len(src))
	}
	c, ok := ByTag(src[0])
	if !ok {
		return nil, fmt.Errorf("codec: unknown codec tag %d", src[0])
	}
	size := binary.LittleEndian.Uint64(src[1:9])
	out, err := c.Decode(src[9:], int(size))
	if err != nil {
		return nil, fmt.Errorf("codec: decode %s block: %w", c.Name(), err)
	}
	if uint64(len(out)) != size {
		return nil, fmt.Errorf("codec: %s block decoded to %d bytes, header says %d", c.Name(), len(out), size)
	}
	return out, nil
}

// None stores tile blocks uncompressed.
type None struct{}

func (None) Encode(src []byte) ([]byte, error) { return src, nil }

func (None) Decode(src []byte, size int) ([]byte, error) { return src, nil }

func (None) Tag() byte    { return TagNone }
func (None) Name() string { return "none" }
