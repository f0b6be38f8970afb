package pixels

import (
	"crypto/sha1"

	"github.com/janelia-flyem/pixels/dvid"
)

// RegionReader fills buf with the bytes at a byte offset of the pixel set, where
// offset 0 is the first byte of the first plane.  The read must be complete.
type RegionReader interface {
	ReadRegion(buf []byte, offset int64) error
}

// RegionWriter writes buf at a byte offset of the pixel set.
type RegionWriter interface {
	WriteRegion(buf []byte, offset int64) error
}

// ReadRegion checks a region and reads it into a new buffer.
func ReadRegion(r RegionReader, calc *Calculator, size, offset int64) ([]byte, error) {
	if err := calc.CheckRegion(size, offset); err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	if err := r.ReadRegion(buf, offset); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadRegionDirect checks a region and the supplied buffer, then reads into buf.
func ReadRegionDirect(r RegionReader, calc *Calculator, size, offset int64, buf []byte) error {
	if err := calc.CheckRegion(size, offset); err != nil {
		return err
	}
	if err := dvid.CheckBufferSize(size, int64(len(buf))); err != nil {
		return err
	}
	return r.ReadRegion(buf, offset)
}

// WriteRegion checks a region and the supplied buffer, then writes buf.
func WriteRegion(w RegionWriter, calc *Calculator, size, offset int64, buf []byte) error {
	if err := calc.CheckRegion(size, offset); err != nil {
		return err
	}
	if err := dvid.CheckBufferSize(size, int64(len(buf))); err != nil {
		return err
	}
	return w.WriteRegion(buf, offset)
}

// ReadPlane reads plane (z, c, t), returning nil if it holds the null plane sentinel.
func ReadPlane(r RegionReader, calc *Calculator, z, c, t int) ([]byte, error) {
	offset, err := calc.PlaneOffset(z, c, t)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, calc.PlaneSize())
	if err := r.ReadRegion(buf, offset); err != nil {
		return nil, err
	}
	if IsNullPlane(buf) {
		return nil, nil
	}
	return buf, nil
}

// ReadCol reads the plane and gathers the sizeY pixels of column x.
func ReadCol(r RegionReader, calc *Calculator, x, z, c, t int) ([]byte, error) {
	if err := calc.CheckBounds(X(x), Z(z), C(c), T(t)); err != nil {
		return nil, err
	}
	plane := make([]byte, calc.PlaneSize())
	if err := r.ReadRegion(plane, calc.planeOffset(z, c, t)); err != nil {
		return nil, err
	}
	bpp := calc.ByteWidth()
	sizeX, sizeY := calc.grid.SizeX, calc.grid.SizeY
	col := make([]byte, calc.ColSize())
	for y := 0; y < sizeY; y++ {
		src := (y*sizeX + x) * bpp
		copy(col[y*bpp:(y+1)*bpp], plane[src:src+bpp])
	}
	return col, nil
}

// ReadPlaneRegion reads a rectangle of plane (z, c, t), optionally decimated.
// With stride s > 0 the result is floor(width/(s+1)) x floor(height/(s+1)) pixels
// sampled at (x + i*(s+1), y + j*(s+1)).
func ReadPlaneRegion(r RegionReader, calc *Calculator, x, y, width, height, z, c, t, stride int) ([]byte, error) {
	if err := calc.CheckPlaneRegion(x, y, width, height, z, c, t); err != nil {
		return nil, err
	}
	if stride < 0 {
		return nil, &dvid.OutOfBoundsError{Reason: "plane region stride must be >= 0"}
	}
	bpp := calc.ByteWidth()
	rowBytes := width * bpp
	planeOffset := calc.planeOffset(z, c, t)
	rowStart := func(row int) int64 {
		return planeOffset + calc.RowSize()*int64(row) + int64(x*bpp)
	}

	if stride == 0 {
		out := make([]byte, rowBytes*height)
		for j := 0; j < height; j++ {
			if err := r.ReadRegion(out[j*rowBytes:(j+1)*rowBytes], rowStart(y+j)); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	step := stride + 1
	outW, outH := width/step, height/step
	out := make([]byte, outW*outH*bpp)
	if outW == 0 || outH == 0 {
		return out, nil
	}
	row := make([]byte, rowBytes)
	var dst int
	for j := 0; j < outH; j++ {
		if err := r.ReadRegion(row, rowStart(y+j*step)); err != nil {
			return nil, err
		}
		for i := 0; i < outW; i++ {
			src := i * step * bpp
			copy(out[dst:dst+bpp], row[src:src+bpp])
			dst += bpp
		}
	}
	return out, nil
}

// WritePlaneRegion writes a dense width x height rectangle of plane (z, c, t).
func WritePlaneRegion(w RegionWriter, calc *Calculator, x, y, width, height, z, c, t int, buf []byte) error {
	if err := calc.CheckPlaneRegion(x, y, width, height, z, c, t); err != nil {
		return err
	}
	bpp := calc.ByteWidth()
	rowBytes := width * bpp
	if err := dvid.CheckBufferSize(int64(rowBytes*height), int64(len(buf))); err != nil {
		return err
	}
	planeOffset := calc.planeOffset(z, c, t)
	for j := 0; j < height; j++ {
		offset := planeOffset + calc.RowSize()*int64(y+j) + int64(x*bpp)
		if err := w.WriteRegion(buf[j*rowBytes:(j+1)*rowBytes], offset); err != nil {
			return err
		}
	}
	return nil
}

// ReadHypercube assembles a strided 5d sub-volume.  Contiguous X runs are read in
// bulk; with an X step > 1 each run is read and then sampled a pixel at a time.
func ReadHypercube(r RegionReader, calc *Calculator, offset, size, step []int) ([]byte, error) {
	total, err := calc.HypercubeSize(offset, size, step)
	if err != nil {
		return nil, err
	}
	bpp := calc.ByteWidth()
	out := make([]byte, total)
	runBytes := size[0] * bpp
	var run []byte
	if step[0] != 1 {
		run = make([]byte, runBytes)
	}
	xOffset := int64(offset[0] * bpp)

	var dst int
	for t := offset[4]; t < offset[4]+size[4]; t += step[4] {
		for c := offset[3]; c < offset[3]+size[3]; c += step[3] {
			for z := offset[2]; z < offset[2]+size[2]; z += step[2] {
				for y := offset[1]; y < offset[1]+size[1]; y += step[1] {
					src := calc.rowOffset(y, z, c, t) + xOffset
					if step[0] == 1 {
						if err := r.ReadRegion(out[dst:dst+runBytes], src); err != nil {
							return nil, err
						}
						dst += runBytes
						continue
					}
					if err := r.ReadRegion(run, src); err != nil {
						return nil, err
					}
					for x := 0; x < size[0]; x += step[0] {
						copy(out[dst:dst+bpp], run[x*bpp:(x+1)*bpp])
						dst += bpp
					}
				}
			}
		}
	}
	return out, nil
}

// MessageDigest returns the SHA-1 of every plane read in T, C, Z order, which is
// also the order planes lie on disk.
func MessageDigest(r RegionReader, calc *Calculator) ([]byte, error) {
	grid := calc.Grid()
	h := sha1.New()
	plane := make([]byte, calc.PlaneSize())
	for t := 0; t < grid.SizeT; t++ {
		for c := 0; c < grid.SizeC; c++ {
			for z := 0; z < grid.SizeZ; z++ {
				if err := r.ReadRegion(plane, calc.planeOffset(z, c, t)); err != nil {
					return nil, err
				}
				h.Write(plane)
			}
		}
	}
	return h.Sum(nil), nil
}
