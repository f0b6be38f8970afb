/*
	Package inmemory is a read-only pixel store over planes that have already been
	decoded into memory, such as derived or ephemeral pixel sets.  Planes are
	indexed [z][c][t] and hold big-endian pixels.
*/
package inmemory

import (
	"encoding/binary"
	"fmt"

	"github.com/DmitriyVTitov/size"
	"github.com/dustin/go-humanize"

	"github.com/janelia-flyem/pixels/dvid"
	"github.com/janelia-flyem/pixels/pixels"
)

var _ pixels.PixelBuffer = (*Buffer)(nil)

const (
	DefaultTileWidth  = 256
	DefaultTileHeight = 256
)

// Buffer serves the region contract over a [z][c][t] array of big-endian planes.  It is
// safe for concurrent reads as long as the caller does not modify the planes.
type Buffer struct {
	pixels.Reader

	id     uint64
	planes [][][][]byte
	closed bool
}

// New returns a store over planes, which must have sizeZ x sizeC x sizeT entries
// of exactly one plane each.
func New(id uint64, grid dvid.Grid, planes [][][][]byte) (*Buffer, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	calc := pixels.NewCalculator(grid)
	if len(planes) != grid.SizeZ {
		return nil, fmt.Errorf("in-memory pixels %d: have %d z sections, expected %d", id, len(planes), grid.SizeZ)
	}
	for z, byC := range planes {
		if len(byC) != grid.SizeC {
			return nil, fmt.Errorf("in-memory pixels %d: z %d has %d channels, expected %d", id, z, len(byC), grid.SizeC)
		}
		for c, byT := range byC {
			if len(byT) != grid.SizeT {
				return nil, fmt.Errorf("in-memory pixels %d: (z %d, c %d) has %d timepoints, expected %d",
					id, z, c, len(byT), grid.SizeT)
			}
			for t, plane := range byT {
				if int64(len(plane)) != calc.PlaneSize() {
					return nil, fmt.Errorf("in-memory pixels %d: plane (%d,%d,%d): %w",
						id, z, c, t, dvid.CheckBufferSize(calc.PlaneSize(), int64(len(plane))))
				}
			}
		}
	}
	dvid.Debugf("In-memory pixels %d (%s) holds %s\n", id, grid, humanize.Bytes(uint64(size.Of(planes))))
	b := &Buffer{id: id, planes: planes}
	b.Reader = pixels.NewReader(grid, b, binary.BigEndian)
	return b, nil
}

// NewEmpty returns a store with zeroed planes.
func NewEmpty(id uint64, grid dvid.Grid) (*Buffer, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	planeSize := pixels.NewCalculator(grid).PlaneSize()
	planes := make([][][][]byte, grid.SizeZ)
	for z := range planes {
		planes[z] = make([][][]byte, grid.SizeC)
		for c := range planes[z] {
			planes[z][c] = make([][]byte, grid.SizeT)
			for t := range planes[z][c] {
				planes[z][c][t] = make([]byte, planeSize)
			}
		}
	}
	return New(id, grid, planes)
}

func (b *Buffer) String() string {
	return fmt.Sprintf("in-memory pixels %d (%s)", b.id, b.Grid())
}

func (b *Buffer) ID() uint64 { return b.id }

func (b *Buffer) Path() string { return "" }

func (b *Buffer) TileSize() (width, height int) { return DefaultTileWidth, DefaultTileHeight }

func (b *Buffer) ResolutionLevels() int { return 1 }

// Close drops the reference to the planes.
func (b *Buffer) Close() error {
	b.closed = true
	b.planes = nil
	return nil
}

// ReadRegion fulfills pixels.RegionReader, copying across plane boundaries as needed.
func (b *Buffer) ReadRegion(buf []byte, offset int64) error {
	if b.closed {
		return dvid.ErrClosed
	}
	if offset < 0 || offset+int64(len(buf)) > b.TotalSize() {
		return fmt.Errorf("region of %d bytes at offset %d is outside in-memory pixels %d", len(buf), offset, b.id)
	}
	grid := b.Grid()
	planeSize := b.PlaneSize()
	for len(buf) > 0 {
		index := offset / planeSize
		z := int(index % int64(grid.SizeZ))
		c := int(index / int64(grid.SizeZ) % int64(grid.SizeC))
		t := int(index / int64(grid.SizeZ*grid.SizeC))
		n := copy(buf, b.planes[z][c][t][offset%planeSize:])
		buf = buf[n:]
		offset += int64(n)
	}
	return nil
}
