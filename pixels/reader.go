package pixels

import (
	"encoding/binary"

	"github.com/janelia-flyem/pixels/dvid"
)

// Reader implements every PixelBuffer getter over a RegionReader.  A store embeds
// a Reader built over itself and supplies identity, tile size and Close.
type Reader struct {
	*Calculator

	src   RegionReader
	order binary.ByteOrder
}

// NewReader returns getters for a pixel set of the given grid whose bytes come
// from src and whose multi-byte pixels are stored in order.
func NewReader(grid dvid.Grid, src RegionReader, order binary.ByteOrder) Reader {
	return Reader{Calculator: NewCalculator(grid), src: src, order: order}
}

// ByteOrder returns the order of multi-byte pixels as stored.
func (r Reader) ByteOrder() binary.ByteOrder { return r.order }

// Wrap returns a typed view of raw pixel bytes in the store's byte order.
func (r Reader) Wrap(data []byte) *PixelData {
	pd := NewPixelData(r.Grid().PixelType, data)
	pd.SetOrder(r.order)
	return pd
}

func (r Reader) GetRegion(size, offset int64) (*PixelData, error) {
	data, err := ReadRegion(r.src, r.Calculator, size, offset)
	if err != nil {
		return nil, err
	}
	return r.Wrap(data), nil
}

func (r Reader) GetRegionDirect(size, offset int64, buf []byte) error {
	return ReadRegionDirect(r.src, r.Calculator, size, offset, buf)
}

func (r Reader) GetRow(y, z, c, t int) (*PixelData, error) {
	offset, err := r.RowOffset(y, z, c, t)
	if err != nil {
		return nil, err
	}
	return r.GetRegion(r.RowSize(), offset)
}

func (r Reader) GetCol(x, z, c, t int) (*PixelData, error) {
	data, err := ReadCol(r.src, r.Calculator, x, z, c, t)
	if err != nil {
		return nil, err
	}
	return r.Wrap(data), nil
}

func (r Reader) GetPlane(z, c, t int) (*PixelData, error) {
	data, err := ReadPlane(r.src, r.Calculator, z, c, t)
	if err != nil || data == nil {
		return nil, err
	}
	return r.Wrap(data), nil
}

func (r Reader) GetPlaneDirect(z, c, t int, buf []byte) error {
	offset, err := r.PlaneOffset(z, c, t)
	if err != nil {
		return err
	}
	return r.GetRegionDirect(r.PlaneSize(), offset, buf)
}

func (r Reader) GetPlaneRegion(x, y, width, height, z, c, t, stride int) (*PixelData, error) {
	data, err := ReadPlaneRegion(r.src, r.Calculator, x, y, width, height, z, c, t, stride)
	if err != nil {
		return nil, err
	}
	return r.Wrap(data), nil
}

func (r Reader) GetStack(c, t int) (*PixelData, error) {
	offset, err := r.StackOffset(c, t)
	if err != nil {
		return nil, err
	}
	return r.GetRegion(r.StackSize(), offset)
}

func (r Reader) GetTimepoint(t int) (*PixelData, error) {
	offset, err := r.TimepointOffset(t)
	if err != nil {
		return nil, err
	}
	return r.GetRegion(r.TimepointSize(), offset)
}

func (r Reader) GetHypercube(offset, size, step []int) (*PixelData, error) {
	data, err := ReadHypercube(r.src, r.Calculator, offset, size, step)
	if err != nil {
		return nil, err
	}
	return r.Wrap(data), nil
}

func (r Reader) GetTile(z, c, t, x, y, width, height int) (*PixelData, error) {
	return r.GetPlaneRegion(x, y, width, height, z, c, t, 0)
}

func (r Reader) GetTileDirect(z, c, t, x, y, width, height int, buf []byte) error {
	data, err := ReadPlaneRegion(r.src, r.Calculator, x, y, width, height, z, c, t, 0)
	if err != nil {
		return err
	}
	if err := dvid.CheckBufferSize(int64(len(data)), int64(len(buf))); err != nil {
		return err
	}
	copy(buf, data)
	return nil
}

func (r Reader) CalculateMessageDigest() ([]byte, error) {
	return MessageDigest(r.src, r.Calculator)
}

// ReadOnly returns a view of buf that hides any setters, so Writable fails on it
// with dvid.ErrUnsupported.
func ReadOnly(buf PixelBuffer) PixelBuffer {
	if _, ok := buf.(WritablePixelBuffer); !ok {
		return buf
	}
	return readOnly{buf}
}

type readOnly struct {
	PixelBuffer
}

func (r readOnly) String() string {
	if s, ok := r.PixelBuffer.(interface{ String() string }); ok {
		return "read-only " + s.String()
	}
	return "read-only pixels"
}
