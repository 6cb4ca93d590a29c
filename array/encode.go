package array

import (
	"encoding/binary"
	"fmt"
	"math"
)

// AppendCoord appends the little-endian encoding of one coordinate value.
func AppendCoord[T Coord](dst []byte, v T) []byte {
	switch x := any(v).(type) {
	case int8:
		return append(dst, byte(x))
	case uint8:
		return append(dst, x)
	case int16:
		return binary.LittleEndian.AppendUint16(dst, uint16(x))
	case uint16:
		return binary.LittleEndian.AppendUint16(dst, x)
	case int32:
		return binary.LittleEndian.AppendUint32(dst, uint32(x))
	case uint32:
		return binary.LittleEndian.AppendUint32(dst, x)
	case int64:
		return binary.LittleEndian.AppendUint64(dst, uint64(x))
	case uint64:
		return binary.LittleEndian.AppendUint64(dst, x)
	case float32:
		return binary.LittleEndian.AppendUint32(dst, math.Float32bits(x))
	default:
		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(any(v).(float64)))
	}
}

// AppendCoords appends the little-endian encoding of a coordinate slice.
func AppendCoords[T Coord](dst []byte, p []T) []byte {
	for _, v := range p {
		dst = AppendCoord(dst, v)
	}
	return dst
}

// DecodeCoords decodes a little-endian coordinate slice, the inverse of
// AppendCoords.
func DecodeCoords[T Coord](src []byte) ([]T, error) {
	size := DatatypeOf[T]().Size()
	if len(src)%size != 0 {
		return nil, fmt.Errorf("array: coordinate buffer of %d bytes is not a multiple of the %d-byte element", len(src), size)
	}
	out := make([]T, 0, len(src)/size)
	for len(src) > 0 {
		out = append(out, decodeCoord[T](src[:size]))
		src = src[size:]
	}
	return out, nil
}

func decodeCoord[T Coord](src []byte) T {
	var v T
	switch p := any(&v).(type) {
	case *int8:
		*p = int8(src[0])
	case *uint8:
		*p = src[0]
	case *int16:
		*p = int16(binary.LittleEndian.Uint16(src))
	case *uint16:
		*p = binary.LittleEndian.Uint16(src)
	case *int32:
		*p = int32(binary.LittleEndian.Uint32(src))
	case *uint32:
		*p = binary.LittleEndian.Uint32(src)
	case *int64:
		*p = int64(binary.LittleEndian.Uint64(src))
	case *uint64:
		*p = binary.LittleEndian.Uint64(src)
	case *float32:
		*p = math.Float32frombits(binary.LittleEndian.Uint32(src))
	case *float64:
		*p = math.Float64frombits(binary.LittleEndian.Uint64(src))
	}
	return v
}
