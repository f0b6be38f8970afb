/*
	Package deltavision is a read-only pixel store over DeltaVision-style vendor
	files.  The grid and byte order come from the file's fixed header; planes follow
	the header and any extended header in the same X, Y, Z, C, T order as a canonical
	pixel file.
*/
package deltavision

import (
	"fmt"
	"io"
	"os"

	"github.com/janelia-flyem/pixels/dvid"
	"github.com/janelia-flyem/pixels/pixels"
)

const (
	DefaultTileWidth  = 256
	DefaultTileHeight = 256
)

var _ pixels.PixelBuffer = (*Buffer)(nil)

// Buffer is a read-only vendor file store.  It is not safe for concurrent use.
type Buffer struct {
	pixels.Reader

	id     uint64
	path   string
	header *Header

	tileWidth, tileHeight int

	file   *os.File
	closed bool
}

// Open parses the header of the file at path.  Pixel data is not read until
// the first request.
func Open(id uint64, path string) (*Buffer, error) {
	h, err := ReadHeader(path)
	if err != nil {
		return nil, err
	}
	grid, err := h.Grid()
	if err != nil {
		return nil, &dvid.FormatError{Path: path, Reason: err.Error()}
	}
	dvid.Debugf("Opened vendor pixels %d @ %s: %s\n", id, path, h)
	b := &Buffer{
		id:         id,
		path:       path,
		header:     h,
		tileWidth:  DefaultTileWidth,
		tileHeight: DefaultTileHeight,
	}
	b.Reader = pixels.NewReader(grid, b, h.Order)
	return b, nil
}

func (b *Buffer) String() string {
	return fmt.Sprintf("vendor pixels %d (%s) @ %s", b.id, b.Grid(), b.path)
}

// Header returns the parsed file header.
func (b *Buffer) Header() *Header { return b.header }

// SetTileSize sets the preferred tile size used by tiled reads.
func (b *Buffer) SetTileSize(width, height int) {
	if width > 0 && height > 0 {
		b.tileWidth, b.tileHeight = width, height
	}
}

func (b *Buffer) ID() uint64 { return b.id }

func (b *Buffer) Path() string { return b.path }

func (b *Buffer) TileSize() (width, height int) { return b.tileWidth, b.tileHeight }

func (b *Buffer) ResolutionLevels() int { return 1 }

func (b *Buffer) handle() (*os.File, error) {
	if b.closed {
		return nil, dvid.ErrClosed
	}
	if b.file == nil {
		f, err := os.Open(b.path)
		if err != nil {
			return nil, fmt.Errorf("unable to open vendor pixels %d: %w", b.id, err)
		}
		b.file = f
	}
	return b.file, nil
}

func (b *Buffer) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if b.file == nil {
		return nil
	}
	err := b.file.Close()
	b.file = nil
	return err
}

// ReadRegion fulfills pixels.RegionReader.  Offsets are relative to the first pixel.
func (b *Buffer) ReadRegion(buf []byte, offset int64) error {
	f, err := b.handle()
	if err != nil {
		return err
	}
	n, err := f.ReadAt(buf, b.header.DataOffset()+offset)
	if err == io.EOF && n == len(buf) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("read of %d bytes at offset %d from vendor pixels %d failed after %d bytes: %w",
			len(buf), offset, b.id, n, err)
	}
	return nil
}

// CalculateMessageDigest hashes planes timepoint by timepoint.  Only single channel
// vendor files have been verified against digests computed elsewhere, so files with
// more channels get a warning.
func (b *Buffer) CalculateMessageDigest() ([]byte, error) {
	grid := b.Grid()
	if grid.SizeC > 1 {
		dvid.Warningf("Digest of vendor pixels %d @ %s spans %d channels; multi-channel vendor digests are unverified\n",
			b.id, b.path, grid.SizeC)
	}
	return b.Reader.CalculateMessageDigest()
}
