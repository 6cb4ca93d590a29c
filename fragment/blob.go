package fragment

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/tilego/array"
	"github.com/hupe1980/tilego/blobstore"
	"github.com/hupe1980/tilego/codec"
	"github.com/hupe1980/tilego/resource"
)

// Fragment blob layout under a name prefix:
//
//	<name>/meta           fragment metadata (magic, tile table)
//	<name>/t<i>/coords    sparse coordinate tile
//	<name>/t<i>/written   dense written-cell bitmap
//	<name>/t<i>/a/<attr>  attribute tile
//
// Every blob is framed with codec.EncodeBlock, so readers decode blobs
// written with any built-in codec.

var metaMagic = [4]byte{'T', 'G', 'F', '1'}

const (
	attrKindFixed byte = 0
	attrKindVar   byte = 1
)

// BlobFragment is a Fragment whose tiles live in a blobstore and are
// fetched and decoded on demand. Safe for concurrent use; tile fetches go
// through the resource controller when one is configured.
type BlobFragment[T array.Coord] struct {
	store  blobstore.BlobStore
	res    *resource.Controller
	schema *array.Schema[T]
	name   string

	index int
	dense bool
	tiles []blobTile[T]
	byPos map[uint64]int
}

type blobTile[T array.Coord] struct {
	cellCount  int
	tileCoords []uint64
	mbr        array.Rect[T]
}

// Write serializes a MemFragment into the store under the given name
// prefix, compressing every blob with c (codec.Default when nil).
func Write[T array.Coord](ctx context.Context, store blobstore.WritableStore, name string, c codec.Codec, f *MemFragment[T]) error {
	put := func(blob string, payload []byte) error {
		block, err := codec.EncodeBlock(c, payload)
		if err != nil {
			return err
		}
		return store.Put(ctx, blob, block)
	}

	meta := encodeMeta(f)
	if err := put(name+"/meta", meta); err != nil {
		return fmt.Errorf("fragment: write meta: %w", err)
	}

	for i, t := range f.tiles {
		if f.dense {
			bits, err := t.written.ToBytes()
			if err != nil {
				return fmt.Errorf("fragment: serialize written bitmap of tile %d: %w", i, err)
			}
			if err := put(fmt.Sprintf("%s/t%d/written", name, i), bits); err != nil {
				return fmt.Errorf("fragment: write tile %d bitmap: %w", i, err)
			}
		} else {
			if err := put(fmt.Sprintf("%s/t%d/coords", name, i), array.AppendCoords(nil, t.coords)); err != nil {
				return fmt.Errorf("fragment: write tile %d coords: %w", i, err)
			}
		}
		for _, attr := range f.schema.Attributes() {
			tile := t.attrs[attr.Name]
			if err := put(fmt.Sprintf("%s/t%d/a/%s", name, i, attr.Name), encodeAttrTile(tile)); err != nil {
				return fmt.Errorf("fragment: write tile %d attribute %q: %w", i, attr.Name, err)
			}
		}
	}
	return nil
}

// Open reads a fragment's metadata from the store and returns a lazily
// reading Fragment. res may be nil for unbounded access.
func Open[T array.Coord](ctx context.Context, store blobstore.BlobStore, name string, s *array.Schema[T], res *resource.Controller) (*BlobFragment[T], error) {
	f := &BlobFragment[T]{store: store, res: res, schema: s, name: name}

	meta, err := f.fetch(ctx, name+"/meta")
	if err != nil {
		return nil, fmt.Errorf("fragment: read meta of %q: %w", name, err)
	}
	if err := f.decodeMeta(meta); err != nil {
		return nil, fmt.Errorf("fragment: decode meta of %q: %w", name, err)
	}
	return f, nil
}

// Index returns the fragment's position in write order.
func (f *BlobFragment[T]) Index() int { return f.index }

// Dense reports whether the fragment was written through the dense path.
func (f *BlobFragment[T]) Dense() bool { return f.dense }

// TileCount returns the number of tiles in the fragment.
func (f *BlobFragment[T]) TileCount() int { return len(f.tiles) }

// CellCount returns the number of cells in a tile.
func (f *BlobFragment[T]) CellCount(tile int) int { return f.tiles[tile].cellCount }

// MBR returns the spatial bounds of a tile's cells.
func (f *BlobFragment[T]) MBR(tile int) array.Rect[T] { return f.tiles[tile].mbr }

// Coords fetches and decodes the coordinate tile of a sparse tile.
func (f *BlobFragment[T]) Coords(ctx context.Context, tile int) ([]T, error) {
	if f.dense {
		return nil, fmt.Errorf("fragment: coordinates requested from dense fragment %d", f.index)
	}
	data, err := f.fetch(ctx, fmt.Sprintf("%s/t%d/coords", f.name, tile))
	if err != nil {
		return nil, err
	}
	return array.DecodeCoords[T](data)
}

// Attr fetches and decodes the tile of one attribute.
func (f *BlobFragment[T]) Attr(ctx context.Context, tile int, name string) (Tile, error) {
	if _, ok := f.schema.Attribute(name); !ok {
		return Tile{}, errUnknownAttribute(name)
	}
	data, err := f.fetch(ctx, fmt.Sprintf("%s/t%d/a/%s", f.name, tile, name))
	if err != nil {
		return Tile{}, err
	}
	return decodeAttrTile(data)
}

// DenseTile maps global tile coordinates to the fragment's local tile index.
func (f *BlobFragment[T]) DenseTile(tc []uint64) (int, bool) {
	if !f.dense {
		return 0, false
	}
	i, ok := f.byPos[f.schema.TilePos(tc)]
	return i, ok
}

// DenseRanges fetches a dense tile's written-cell bitmap and iterates its
// runs.
func (f *BlobFragment[T]) DenseRanges(ctx context.Context, tile int) (RangeIterator, error) {
	if !f.dense {
		return nil, fmt.Errorf("fragment: dense ranges requested from sparse fragment %d", f.index)
	}
	data, err := f.fetch(ctx, fmt.Sprintf("%s/t%d/written", f.name, tile))
	if err != nil {
		return nil, err
	}
	bm := roaring64.New()
	if err := bm.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("fragment: decode written bitmap of tile %d: %w", tile, err)
	}
	return newBitmapRanges(bm), nil
}

// fetch reads and decodes one framed blob under admission control. The
// memory reservation spans the decode only; returned buffers belong to the
// caller.
func (f *BlobFragment[T]) fetch(ctx context.Context, blob string) ([]byte, error) {
	if err := f.res.AcquireFetch(ctx); err != nil {
		return nil, err
	}
	defer f.res.ReleaseFetch()

	raw, err := blobstore.Fetch(ctx, f.store, blob)
	if err != nil {
		return nil, err
	}
	if err := f.res.WaitIO(ctx, len(raw)); err != nil {
		return nil, err
	}

	size, err := codec.BlockSize(raw)
	if err != nil {
		return nil, err
	}
	if err := f.res.AcquireTileMemory(ctx, int64(size)); err != nil {
		return nil, err
	}
	defer f.res.ReleaseTileMemory(int64(size))

	return codec.DecodeBlock(raw)
}

func encodeMeta[T array.Coord](f *MemFragment[T]) []byte {
	dst := append([]byte(nil), metaMagic[:]...)
	dst = append(dst, byte(array.DatatypeOf[T]()))
	if f.dense {
		dst = append(dst, 1)
	} else {
		dst = append(dst, 0)
	}
	dst = binary.LittleEndian.AppendUint32(dst, uint32(f.schema.DimNum()))
	dst = binary.LittleEndian.AppendUint64(dst, uint64(f.index))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(f.tiles)))
	for _, t := range f.tiles {
		dst = binary.LittleEndian.AppendUint64(dst, uint64(t.cellCount))
		if f.dense {
			for _, tc := range t.tileCoords {
				dst = binary.LittleEndian.AppendUint64(dst, tc)
			}
		}
		for _, r := range t.mbr {
			dst = array.AppendCoord(dst, r.Lo)
			dst = array.AppendCoord(dst, r.Hi)
		}
	}
	return dst
}

func (f *BlobFragment[T]) decodeMeta(src []byte) error {
	r := metaReader{src: src}
	var magic [4]byte
	copy(magic[:], r.bytes(4))
	if magic != metaMagic {
		return fmt.Errorf("bad magic %q", magic)
	}
	if dt := array.Datatype(r.byte()); dt != array.DatatypeOf[T]() {
		return fmt.Errorf("coordinate type mismatch: fragment has %s, schema has %s", dt, array.DatatypeOf[T]())
	}
	f.dense = r.byte() == 1
	if dims := int(r.uint32()); dims != f.schema.DimNum() {
		return fmt.Errorf("dimensionality mismatch: fragment has %d, schema has %d", dims, f.schema.DimNum())
	}
	f.index = int(r.uint64())

	dimNum := f.schema.DimNum()
	count := int(r.uint32())
	// every tile record carries at least its 8-byte cell count
	if count > len(r.src)/8 {
		return fmt.Errorf("fragment: truncated metadata")
	}
	f.tiles = make([]blobTile[T], 0, count)
	if f.dense {
		f.byPos = make(map[uint64]int, count)
	}
	for i := 0; i < count; i++ {
		t := blobTile[T]{cellCount: int(r.uint64())}
		if f.dense {
			t.tileCoords = make([]uint64, dimNum)
			for d := range t.tileCoords {
				t.tileCoords[d] = r.uint64()
			}
			f.byPos[f.schema.TilePos(t.tileCoords)] = i
		}
		t.mbr = make(array.Rect[T], dimNum)
		size := array.DatatypeOf[T]().Size()
		for d := range t.mbr {
			lo, err := array.DecodeCoords[T](r.bytes(size))
			if err != nil {
				return err
			}
			hi, err := array.DecodeCoords[T](r.bytes(size))
			if err != nil {
				return err
			}
			t.mbr[d] = array.Range[T]{Lo: lo[0], Hi: hi[0]}
		}
		f.tiles = append(f.tiles, t)
	}
	if r.err != nil {
		return r.err
	}
	return nil
}

func encodeAttrTile(t Tile) []byte {
	if !t.Var() {
		return append([]byte{attrKindFixed}, t.Values...)
	}
	dst := []byte{attrKindVar}
	dst = binary.LittleEndian.AppendUint64(dst, uint64(len(t.Offsets)))
	for _, off := range t.Offsets {
		dst = binary.LittleEndian.AppendUint64(dst, off)
	}
	return append(dst, t.Values...)
}

func decodeAttrTile(src []byte) (Tile, error) {
	if len(src) == 0 {
		return Tile{}, fmt.Errorf("fragment: empty attribute tile")
	}
	kind, src := src[0], src[1:]
	switch kind {
	case attrKindFixed:
		return Tile{Values: src}, nil
	case attrKindVar:
		if len(src) < 8 {
			return Tile{}, fmt.Errorf("fragment: truncated var tile header")
		}
		count := binary.LittleEndian.Uint64(src)
		src = src[8:]
		if count > uint64(len(src))/8 {
			return Tile{}, fmt.Errorf("fragment: truncated var tile offsets")
		}
		offsets := make([]uint64, count)
		for i := range offsets {
			offsets[i] = binary.LittleEndian.Uint64(src[i*8:])
		}
		values := src[count*8:]
		if len(values) == 0 {
			values = nil
		}
		return Tile{Values: values, Offsets: offsets}, nil
	default:
		return Tile{}, fmt.Errorf("fragment: unknown attribute tile kind %d", kind)
	}
}

// metaReader is a cursored little-endian reader that records the first
// out-of-bounds access instead of panicking.
type metaReader struct {
	src []byte
	err error
}

func (r *metaReader) bytes(n int) []byte {
	if r.err != nil || len(r.src) < n {
		r.fail()
		return make([]byte, n)
	}
	out := r.src[:n]
	r.src = r.src[n:]
	return out
}

func (r *metaReader) byte() byte { return r.bytes(1)[0] }

func (r *metaReader) uint32() uint32 { return binary.LittleEndian.Uint32(r.bytes(4)) }

func (r *metaReader) uint64() uint64 { return binary.LittleEndian.Uint64(r.bytes(8)) }

func (r *metaReader) fail() {
	if r.err == nil {
		r.err = fmt.Errorf("fragment: truncated metadata")
	}
}
