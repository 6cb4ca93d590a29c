package array

// Layout is the linear order in which multi-dimensional cells are
// serialized or returned.
type Layout uint8

const (
	// RowMajor orders cells lexicographically with the last dimension
	// varying fastest.
	RowMajor Layout = iota
	// ColMajor orders cells lexicographically with the first dimension
	// varying fastest.
	ColMajor
	// GlobalOrder follows the array's physical order: tiles in the schema
	// tile order, cells within a tile in the schema cell order.
	GlobalOrder
	// Unordered makes no ordering promise. It is valid for writes only;
	// read queries must request one of the ordered layouts.
	Unordered
)

func (l Layout) String() string {
	switch l {
	case RowMajor:
		return "row-major"
	case ColMajor:
		return "col-major"
	case GlobalOrder:
		return "global-order"
	case Unordered:
		return "unordered"
	default:
		return "unknown"
	}
}
