/*
	Package pixels defines the region access contract shared by every backing store of
	5d (X, Y, Z, C, T) pixel data, along with the offset arithmetic, typed pixel decoding,
	and the read algorithms (plane regions, columns, hypercubes, digests) the stores
	compose.

	Stores come in two flavors.  A PixelBuffer only reads.  A WritablePixelBuffer also
	writes, and is only produced by stores that can write in place.  Read-only stores
	such as vendor format adapters or in-memory pixel sets do not have setters, and
	Writable() reports dvid.ErrUnsupported for them.
*/
package pixels

import (
	"encoding/binary"
	"io"

	"github.com/janelia-flyem/pixels/dvid"
)

// Sizer gives the derived byte sizes and offsets of a pixel set.  *Calculator
// fulfills it and stores embed one through a Reader.
type Sizer interface {
	Grid() dvid.Grid
	ByteWidth() int

	RowSize() int64
	ColSize() int64
	PlaneSize() int64
	StackSize() int64
	TimepointSize() int64
	TotalSize() int64

	RowOffset(y, z, c, t int) (int64, error)
	PlaneOffset(z, c, t int) (int64, error)
	StackOffset(c, t int) (int64, error)
	TimepointOffset(t int) (int64, error)
	HypercubeSize(offset, size, step []int) (int64, error)

	CheckBounds(coords ...Coord) error
	CheckRegion(size, offset int64) error
}

// PixelBuffer is read access to one pixel set.  All methods check bounds before
// doing any I/O.  A PixelBuffer is not safe for concurrent use; open one per goroutine.
type PixelBuffer interface {
	Sizer
	io.Closer

	// ID returns the pixel set identifier.
	ID() uint64

	// Path returns the file backing the store or "" for in-memory stores.
	Path() string

	// ByteOrder returns the order of multi-byte pixels as stored.
	ByteOrder() binary.ByteOrder

	// GetRegion returns size bytes starting at a byte offset within the pixel set.
	GetRegion(size, offset int64) (*PixelData, error)

	// GetRegionDirect reads len(buf) bytes at offset into buf, which must be size bytes.
	GetRegionDirect(size, offset int64, buf []byte) error

	GetRow(y, z, c, t int) (*PixelData, error)

	// GetCol gathers the sizeY pixels at column x of a plane.
	GetCol(x, z, c, t int) (*PixelData, error)

	// GetPlane returns the plane, or nil with no error if the plane still holds
	// the null plane sentinel.
	GetPlane(z, c, t int) (*PixelData, error)

	// GetPlaneDirect reads the plane into buf without the null plane check.
	GetPlaneDirect(z, c, t int, buf []byte) error

	// GetPlaneRegion returns a rectangle of a plane.  A stride of 0 copies every
	// pixel; a stride s > 0 samples every (s+1)-th pixel along both axes.
	GetPlaneRegion(x, y, width, height, z, c, t, stride int) (*PixelData, error)

	GetStack(c, t int) (*PixelData, error)
	GetTimepoint(t int) (*PixelData, error)

	// GetHypercube returns a strided 5d sub-volume given X, Y, Z, C, T ordered lists.
	GetHypercube(offset, size, step []int) (*PixelData, error)

	// GetTile returns a dense rectangular crop of a plane.
	GetTile(z, c, t, x, y, width, height int) (*PixelData, error)
	GetTileDirect(z, c, t, x, y, width, height int, buf []byte) error

	// TileSize returns the preferred tile width and height for tiled reads.
	TileSize() (width, height int)

	// ResolutionLevels returns the number of resolution levels available.
	ResolutionLevels() int

	// CalculateMessageDigest returns the SHA-1 of all planes in T, C, Z order.
	CalculateMessageDigest() ([]byte, error)
}

// WritablePixelBuffer is a PixelBuffer that can write in place.  Every setter
// requires the exact number of bytes of its region and fails with a
// *dvid.BufferSizeError otherwise.
type WritablePixelBuffer interface {
	PixelBuffer

	SetRegion(size, offset int64, buf []byte) error
	SetRow(y, z, c, t int, buf []byte) error
	SetPlane(z, c, t int, buf []byte) error
	SetStack(c, t int, buf []byte) error
	SetTimepoint(t int, buf []byte) error
	SetTile(z, c, t, x, y, width, height int, buf []byte) error

	// Sync commits written data to stable storage.
	Sync() error
}

// Writable returns the writable interface of a store or dvid.ErrUnsupported if
// the store is read-only.
func Writable(buf PixelBuffer) (WritablePixelBuffer, error) {
	w, ok := buf.(WritablePixelBuffer)
	if !ok {
		return nil, dvid.ErrUnsupported
	}
	return w, nil
}
