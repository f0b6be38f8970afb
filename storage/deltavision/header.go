package deltavision

import (
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/janelia-flyem/pixels/dvid"
)

// HeaderSize is the size of the fixed header that precedes any extended header.
const HeaderSize = 1024

// Byte offsets of header fields.
const (
	offSizeX      = 0
	offSizeY      = 4
	offImageCount = 8
	offPixelType  = 12
	offExtHeader  = 92
	offMagic      = 96
	offImageType  = 160
	offSizeT      = 180
	offSequence   = 182
	offSizeC      = 196
)

// Byte order magic as it appears on disk at offset 96.
var (
	magicLittle = [2]byte{0xA0, 0xC0}
	magicBig    = [2]byte{0xC0, 0xA0}
)

// Header holds the fields of a vendor file header needed to address its pixels.
type Header struct {
	SizeX              int32
	SizeY              int32
	ImageCount         uint16
	PixelTypeCode      int32
	ExtendedHeaderSize int32
	ImageType          int16
	SizeT              uint16
	Sequence           int32
	SizeC              uint16

	// Order is the byte order of the file, detected from the magic.
	Order binary.ByteOrder
}

// PixelType maps the header's pixel type code to a pixel type.  Unknown codes
// are treated as single byte pixels.
func (h *Header) PixelType() dvid.PixelType {
	switch h.PixelTypeCode {
	case 0:
		return dvid.T_uint8
	case 1:
		return dvid.T_int16
	case 2:
		return dvid.T_float
	case 3:
		return dvid.T_int32
	case 4:
		return dvid.T_double
	case 6:
		return dvid.T_uint16
	default:
		return dvid.T_uint8
	}
}

// DataOffset returns the byte offset of the first pixel.
func (h *Header) DataOffset() int64 {
	return HeaderSize + int64(h.ExtendedHeaderSize)
}

// Grid derives the grid descriptor.  The number of Z sections is not stored and is
// computed from the image count.
func (h *Header) Grid() (dvid.Grid, error) {
	sizeC, sizeT := int(h.SizeC), int(h.SizeT)
	if sizeC < 1 || sizeT < 1 {
		return dvid.Grid{}, fmt.Errorf("header has %d channels and %d timepoints", sizeC, sizeT)
	}
	grid := dvid.Grid{
		SizeX:     int(h.SizeX),
		SizeY:     int(h.SizeY),
		SizeZ:     int(h.ImageCount) / (sizeC * sizeT),
		SizeC:     sizeC,
		SizeT:     sizeT,
		PixelType: h.PixelType(),
	}
	if err := grid.Validate(); err != nil {
		return dvid.Grid{}, err
	}
	return grid, nil
}

func (h *Header) String() string {
	return fmt.Sprintf("%dx%d, %d images, %d channels, %d timepoints, pixel code %d, %s",
		h.SizeX, h.SizeY, h.ImageCount, h.SizeC, h.SizeT, h.PixelTypeCode, h.Order)
}

// ParseHeader decodes a fixed header.  The byte order magic must be recognized;
// there is no attempt to read a file with an unknown magic.
func ParseHeader(b []byte) (*Header, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("header is %d bytes, expected %d", len(b), HeaderSize)
	}
	h := new(Header)
	switch [2]byte{b[offMagic], b[offMagic+1]} {
	case magicLittle:
		h.Order = binary.LittleEndian
	case magicBig:
		h.Order = binary.BigEndian
	default:
		return nil, fmt.Errorf("unknown byte order magic %#02x%02x", b[offMagic], b[offMagic+1])
	}
	o := h.Order
	h.SizeX = int32(o.Uint32(b[offSizeX:]))
	h.SizeY = int32(o.Uint32(b[offSizeY:]))
	h.ImageCount = o.Uint16(b[offImageCount:])
	h.PixelTypeCode = int32(o.Uint32(b[offPixelType:]))
	h.ExtendedHeaderSize = int32(o.Uint32(b[offExtHeader:]))
	h.ImageType = int16(o.Uint16(b[offImageType:]))
	h.SizeT = o.Uint16(b[offSizeT:])
	h.Sequence = int32(o.Uint32(b[offSequence:]))
	h.SizeC = o.Uint16(b[offSizeC:])
	if h.ExtendedHeaderSize < 0 {
		return nil, fmt.Errorf("negative extended header size %d", h.ExtendedHeaderSize)
	}
	return h, nil
}

// ReadHeader memory maps the fixed header of the file at path and parses it.
// Any failure to recognize the file is returned as a *dvid.FormatError.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() < HeaderSize {
		return nil, &dvid.FormatError{Path: path, Reason: fmt.Sprintf("file of %d bytes is smaller than header", fi.Size())}
	}
	data, err := unix.Mmap(int(f.Fd()), 0, HeaderSize, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("unable to map header of %s: %w", path, err)
	}
	h, parseErr := ParseHeader(data)
	if err := unix.Munmap(data); err != nil {
		dvid.Errorf("unable to unmap header of %s: %v\n", path, err)
	}
	if parseErr != nil {
		return nil, &dvid.FormatError{Path: path, Reason: parseErr.Error()}
	}
	return h, nil
}
