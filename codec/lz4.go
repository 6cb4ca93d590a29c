package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// LZ4 compresses tile blocks with the LZ4 frame format. The frame format is
// self-describing and degrades gracefully on incompressible blocks.
type LZ4 struct{}

func (LZ4) Encode(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(src)/2 + 64)
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (LZ4) Decode(src []byte, size int) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(src))
	dst := make([]byte, size)
	if _, err := io.ReadFull(r, dst); err != nil {
		return nil, err
	}
	// The frame must not carry trailing data beyond the declared size.
	var probe [1]byte
	if n, _ := r.Read(probe[:]); n != 0 {
		return nil, fmt.Errorf("lz4: block larger than declared size %d", size)
	}
	return dst, nil
}

func (LZ4) Tag() byte    { return TagLZ4 }
func (LZ4) Name() string { return "lz4" }
