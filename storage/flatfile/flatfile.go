/*
	Package flatfile implements the canonical on-disk pixel store: one flat, uncompressed,
	big-endian file per pixel set holding every plane row-major in X, Y, Z, C, T order with
	no header.  A file handle is opened on first I/O and all access is by positioned
	reads and writes, so there is no shared seek position.
*/
package flatfile

import (
	"encoding/binary"
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

var _ pixels.WritablePixelBuffer = (*Buffer)(nil)

// Options control how a flat file store is opened.
type Options struct {
	// PermitModification must be set for any setter to succeed.
	PermitModification bool

	// TileWidth and TileHeight are the preferred tile size; 0 uses the defaults.
	TileWidth  int
	TileHeight int
}

// Buffer is a flat file pixel store of big-endian pixels.  It is not safe for
// concurrent use.
type Buffer struct {
	pixels.Reader

	id   uint64
	path string
	opts Options

	file   *os.File
	closed bool
}

// Open returns a store for the pixel set at path.  The file is not opened until
// the first read or write.
func Open(id uint64, path string, grid dvid.Grid, opts Options) (*Buffer, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if opts.TileWidth <= 0 || opts.TileHeight <= 0 {
		opts.TileWidth, opts.TileHeight = DefaultTileWidth, DefaultTileHeight
	}
	b := &Buffer{
		id:   id,
		path: path,
		opts: opts,
	}
	b.Reader = pixels.NewReader(grid, b, binary.BigEndian)
	return b, nil
}

func (b *Buffer) String() string {
	return fmt.Sprintf("flat file pixels %d (%s) @ %s", b.id, b.Grid(), b.path)
}

func (b *Buffer) ID() uint64 { return b.id }

func (b *Buffer) Path() string { return b.path }

// PermitModification returns true if setters are allowed.
func (b *Buffer) PermitModification() bool { return b.opts.PermitModification }

func (b *Buffer) TileSize() (width, height int) {
	return b.opts.TileWidth, b.opts.TileHeight
}

func (b *Buffer) ResolutionLevels() int { return 1 }

func (b *Buffer) handle() (*os.File, error) {
	if b.closed {
		return nil, dvid.ErrClosed
	}
	if b.file != nil {
		return b.file, nil
	}
	flag := os.O_RDONLY
	if b.opts.PermitModification {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(b.path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("unable to open pixels %d: %w", b.id, err)
	}
	dvid.Debugf("Opened pixels %d @ %s (writable %t)\n", b.id, b.path, b.opts.PermitModification)
	b.file = f
	return f, nil
}

// Close releases the file handle.  Closing more than once is a no-op.
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

// ReadRegion fulfills pixels.RegionReader with a positioned read.
func (b *Buffer) ReadRegion(buf []byte, offset int64) error {
	f, err := b.handle()
	if err != nil {
		return err
	}
	n, err := f.ReadAt(buf, offset)
	if err == io.EOF && n == len(buf) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("read of %d bytes at offset %d from pixels %d failed after %d bytes: %w",
			len(buf), offset, b.id, n, err)
	}
	return nil
}

// WriteRegion fulfills pixels.RegionWriter with a positioned write.
func (b *Buffer) WriteRegion(buf []byte, offset int64) error {
	if !b.opts.PermitModification {
		return dvid.ErrNotWritable
	}
	f, err := b.handle()
	if err != nil {
		return err
	}
	if _, err := f.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("write of %d bytes at offset %d to pixels %d: %w", len(buf), offset, b.id, err)
	}
	return nil
}

// ---- pixels.WritablePixelBuffer interface ------

func (b *Buffer) SetRegion(size, offset int64, buf []byte) error {
	if !b.opts.PermitModification {
		return dvid.ErrNotWritable
	}
	return pixels.WriteRegion(b, b.Calculator, size, offset, buf)
}

func (b *Buffer) SetRow(y, z, c, t int, buf []byte) error {
	if !b.opts.PermitModification {
		return dvid.ErrNotWritable
	}
	offset, err := b.RowOffset(y, z, c, t)
	if err != nil {
		return err
	}
	return b.SetRegion(b.RowSize(), offset, buf)
}

func (b *Buffer) SetPlane(z, c, t int, buf []byte) error {
	if !b.opts.PermitModification {
		return dvid.ErrNotWritable
	}
	offset, err := b.PlaneOffset(z, c, t)
	if err != nil {
		return err
	}
	return b.SetRegion(b.PlaneSize(), offset, buf)
}

func (b *Buffer) SetStack(c, t int, buf []byte) error {
	if !b.opts.PermitModification {
		return dvid.ErrNotWritable
	}
	offset, err := b.StackOffset(c, t)
	if err != nil {
		return err
	}
	return b.SetRegion(b.StackSize(), offset, buf)
}

func (b *Buffer) SetTimepoint(t int, buf []byte) error {
	if !b.opts.PermitModification {
		return dvid.ErrNotWritable
	}
	offset, err := b.TimepointOffset(t)
	if err != nil {
		return err
	}
	return b.SetRegion(b.TimepointSize(), offset, buf)
}

func (b *Buffer) SetTile(z, c, t, x, y, width, height int, buf []byte) error {
	if !b.opts.PermitModification {
		return dvid.ErrNotWritable
	}
	return pixels.WritePlaneRegion(b, b.Calculator, x, y, width, height, z, c, t, buf)
}

// Sync commits the file's contents to stable storage.
func (b *Buffer) Sync() error {
	if !b.opts.PermitModification {
		return dvid.ErrNotWritable
	}
	if b.file == nil {
		return nil
	}
	return b.file.Sync()
}
