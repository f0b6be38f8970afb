package pixels

import (
	"encoding/binary"
	"math"

	"github.com/janelia-flyem/pixels/dvid"
)

// PixelData is a typed view over a region of raw pixel bytes.  Offsets passed to
// Value and SetValue are pixel indices, not byte offsets.  The view borrows the
// byte slice; callers that need to keep data past a write should copy Bytes().
type PixelData struct {
	pixelType dvid.PixelType
	bpp       int
	data      []byte
	order     binary.ByteOrder
}

// NewPixelData returns a big-endian view of data as pixels of the given type.
func NewPixelData(pixelType dvid.PixelType, data []byte) *PixelData {
	return &PixelData{
		pixelType: pixelType,
		bpp:       pixelType.Bytes(),
		data:      data,
		order:     binary.BigEndian,
	}
}

// SetOrder changes the byte order used to decode and encode values.
func (p *PixelData) SetOrder(order binary.ByteOrder) {
	p.order = order
}

func (p *PixelData) Order() binary.ByteOrder { return p.order }

func (p *PixelData) PixelType() dvid.PixelType { return p.pixelType }

func (p *PixelData) BytesPerPixel() int { return p.bpp }

// Bytes returns the underlying byte region.
func (p *PixelData) Bytes() []byte { return p.data }

// Len returns the number of whole pixels in the view.
func (p *PixelData) Len() int {
	if p.bpp == 0 {
		return 0
	}
	return len(p.data) / p.bpp
}

// Value returns the intensity of the i-th pixel.  Unsigned types are read at their
// signed width and then masked into the unsigned range.  Indexing past Len() panics
// as a slice index would.
func (p *PixelData) Value(i int) float64 {
	b := p.data[i*p.bpp : (i+1)*p.bpp]
	switch p.pixelType {
	case dvid.T_int8:
		return float64(int8(b[0]))
	case dvid.T_uint8:
		return float64(int64(int8(b[0])) & 0xff)
	case dvid.T_int16:
		return float64(int16(p.order.Uint16(b)))
	case dvid.T_uint16:
		return float64(int64(int16(p.order.Uint16(b))) & 0xffff)
	case dvid.T_int32:
		return float64(int32(p.order.Uint32(b)))
	case dvid.T_uint32:
		return float64(int64(int32(p.order.Uint32(b))) & 0xffffffff)
	case dvid.T_float:
		return float64(math.Float32frombits(p.order.Uint32(b)))
	case dvid.T_double:
		return math.Float64frombits(p.order.Uint64(b))
	}
	return 0
}

// SetValue stores v as the i-th pixel, truncating toward zero for integer types.
func (p *PixelData) SetValue(i int, v float64) {
	b := p.data[i*p.bpp : (i+1)*p.bpp]
	switch p.pixelType {
	case dvid.T_int8, dvid.T_uint8:
		b[0] = byte(int64(v))
	case dvid.T_int16, dvid.T_uint16:
		p.order.PutUint16(b, uint16(int64(v)))
	case dvid.T_int32, dvid.T_uint32:
		p.order.PutUint32(b, uint32(int64(v)))
	case dvid.T_float:
		p.order.PutUint32(b, math.Float32bits(float32(v)))
	case dvid.T_double:
		p.order.PutUint64(b, math.Float64bits(v))
	}
}

// Values decodes every pixel in the view.
func (p *PixelData) Values() []float64 {
	values := make([]float64, p.Len())
	for i := range values {
		values[i] = p.Value(i)
	}
	return values
}
