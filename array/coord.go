package array

// Coord is the closed set of coordinate primitive types. The domain type of
// an array is chosen from this set once, at schema creation; every query
// against the schema is instantiated with the same type parameter.
type Coord interface {
	int8 | int16 | int32 | int64 |
		uint8 | uint16 | uint32 | uint64 |
		float32 | float64
}

// DatatypeOf returns the Datatype tag for the coordinate type T.
func DatatypeOf[T Coord]() Datatype {
	var z T
	switch any(z).(type) {
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case float32:
		return Float32
	default:
		return Float64
	}
}

// IsIntegral reports whether T is one of the integer coordinate types.
func IsIntegral[T Coord]() bool {
	switch DatatypeOf[T]() {
	case Float32, Float64:
		return false
	default:
		return true
	}
}
