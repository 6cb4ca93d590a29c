package array

import (
	"encoding/binary"
	"math"
)

// Datatype identifies the primitive type of an attribute cell or coordinate.
type Datatype uint8

const (
	Int8 Datatype = iota
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	// Bytes is an opaque byte element, typically used with VarNum for
	// variable-sized attributes (strings, blobs).
	Bytes
)

// Size returns the size of one element in bytes.
func (d Datatype) Size() int {
	switch d {
	case Int8, Uint8, Bytes:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	default:
		return 8
	}
}

func (d Datatype) String() string {
	switch d {
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Bytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// Fill returns the fill element substituted for cells never written by any
// fragment: minimum value for signed integers, maximum for unsigned, NaN for
// floats and a zero byte for Bytes.
func (d Datatype) Fill() []byte {
	b := make([]byte, d.Size())
	switch d {
	case Int8:
		b[0] = 0x80
	case Int16:
		binary.LittleEndian.PutUint16(b, 0x8000)
	case Int32:
		binary.LittleEndian.PutUint32(b, 0x80000000)
	case Int64:
		binary.LittleEndian.PutUint64(b, 0x8000000000000000)
	case Uint8:
		b[0] = 0xFF
	case Uint16:
		binary.LittleEndian.PutUint16(b, math.MaxUint16)
	case Uint32:
		binary.LittleEndian.PutUint32(b, math.MaxUint32)
	case Uint64:
		binary.LittleEndian.PutUint64(b, math.MaxUint64)
	case Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(math.NaN())))
	case Float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(math.NaN()))
	case Bytes:
		b[0] = 0
	}
	return b
}
