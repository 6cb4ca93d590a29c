package array

import "math"

// VarNum marks a variable number of elements per cell.
const VarNum uint32 = math.MaxUint32

// CoordsName is the reserved name of the coordinates pseudo-attribute. It is
// always resolvable on sparse reads even when the caller did not request it,
// because overlap filtering, sorting and deduplication key on it.
const CoordsName = "__coords"

// Attribute describes one value column of the array.
type Attribute struct {
	Name string
	Type Datatype
	// CellValNum is the number of elements per cell, or VarNum for
	// variable-sized cells.
	CellValNum uint32
}

// NewAttribute returns a fixed-size attribute holding one element per cell.
func NewAttribute(name string, t Datatype) Attribute {
	return Attribute{Name: name, Type: t, CellValNum: 1}
}

// NewVarAttribute returns a variable-sized attribute. Cells are addressed
// through a per-cell offsets buffer alongside the values buffer.
func NewVarAttribute(name string, t Datatype) Attribute {
	return Attribute{Name: name, Type: t, CellValNum: VarNum}
}

// Var reports whether the attribute is variable-sized.
func (a Attribute) Var() bool { return a.CellValNum == VarNum }

// CellSize returns the fixed size of one cell in bytes. It panics for
// variable-sized attributes, whose cell size is data-dependent.
func (a Attribute) CellSize() int {
	if a.Var() {
		panic("array: CellSize on var-sized attribute " + a.Name)
	}
	return a.Type.Size() * int(a.CellValNum)
}

// FillCell returns the bytes written for one unwritten cell of this
// attribute. For var-sized attributes this is a single fill element.
func (a Attribute) FillCell() []byte {
	el := a.Type.Fill()
	if a.Var() {
		return el
	}
	cell := make([]byte, 0, a.CellSize())
	for i := uint32(0); i < a.CellValNum; i++ {
		cell = append(cell, el...)
	}
	return cell
}
