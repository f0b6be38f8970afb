package inmemory

import (
	"bytes"
	"crypto/sha1"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/janelia-flyem/pixels/dvid"
	"github.com/janelia-flyem/pixels/pixels"
	"github.com/janelia-flyem/pixels/storage/flatfile"
)

var testGrid = dvid.Grid{SizeX: 5, SizeY: 4, SizeZ: 3, SizeC: 2, SizeT: 2, PixelType: dvid.T_uint8}

// makePlanes fills every plane with its (z, c, t) coordinates and the pixel index.
func makePlanes() ([][][][]byte, []byte) {
	planeSize := testGrid.SizeX * testGrid.SizeY
	planes := make([][][][]byte, testGrid.SizeZ)
	for z := range planes {
		planes[z] = make([][][]byte, testGrid.SizeC)
		for c := range planes[z] {
			planes[z][c] = make([][]byte, testGrid.SizeT)
			for t := range planes[z][c] {
				plane := make([]byte, planeSize)
				for i := range plane {
					plane[i] = byte(z*100 + c*30 + t*10 + i)
				}
				planes[z][c][t] = plane
			}
		}
	}
	var flat []byte
	for t := 0; t < testGrid.SizeT; t++ {
		for c := 0; c < testGrid.SizeC; c++ {
			for z := 0; z < testGrid.SizeZ; z++ {
				flat = append(flat, planes[z][c][t]...)
			}
		}
	}
	return planes, flat
}

func TestNewValidates(t *testing.T) {
	planes, _ := makePlanes()
	if _, err := New(1, testGrid, planes[:2]); err == nil {
		t.Errorf("expected missing z section to fail")
	}
	planes[1][1][0] = planes[1][1][0][:3]
	_, err := New(1, testGrid, planes)
	if !errors.Is(err, dvid.ErrBufferUnderflow) {
		t.Errorf("expected underflow for short plane, got %v", err)
	}
}

func TestMatchesFlatFile(t *testing.T) {
	planes, flat := makePlanes()
	mem, err := New(3, testGrid, planes)
	if err != nil {
		t.Fatal(err)
	}
	defer mem.Close()

	ff, err := flatfile.Create(3, filepath.Join(t.TempDir(), "3"), testGrid, flatfile.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer ff.Close()
	if err := ff.SetRegion(int64(len(flat)), 0, flat); err != nil {
		t.Fatal(err)
	}

	// Regions that span plane and stack boundaries.
	for _, r := range [][2]int64{{0, 20}, {15, 30}, {59, 2}, {0, int64(len(flat))}, {100, 20}} {
		a, err := mem.GetRegion(r[1], r[0])
		if err != nil {
			t.Fatal(err)
		}
		b, err := ff.GetRegion(r[1], r[0])
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(a.Bytes(), b.Bytes()) {
			t.Errorf("region %v differs", r)
		}
		if !bytes.Equal(a.Bytes(), flat[r[0]:r[0]+r[1]]) {
			t.Errorf("region %v differs from source", r)
		}
	}

	offset, size, step := []int{1, 0, 0, 0, 0}, []int{4, 4, 3, 2, 2}, []int{2, 3, 2, 1, 1}
	a, err := mem.GetHypercube(offset, size, step)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ff.GetHypercube(offset, size, step)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Errorf("hypercube differs")
	}

	col, err := mem.GetCol(2, 1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < testGrid.SizeY; y++ {
		exp := float64(byte(100 + 30 + 10 + y*testGrid.SizeX + 2))
		if v := col.Value(y); v != exp {
			t.Errorf("col pixel %d: expected %v, got %v", y, exp, v)
		}
	}

	d1, err := mem.CalculateMessageDigest()
	if err != nil {
		t.Fatal(err)
	}
	d2, err := ff.CalculateMessageDigest()
	if err != nil {
		t.Fatal(err)
	}
	exp := sha1.Sum(flat)
	if !bytes.Equal(d1, exp[:]) || !bytes.Equal(d2, exp[:]) {
		t.Errorf("digests differ: %x %x, expected %x", d1, d2, exp)
	}
}

func TestNullPlaneAndReadOnly(t *testing.T) {
	mem, err := NewEmpty(4, testGrid)
	if err != nil {
		t.Fatal(err)
	}
	pixels.InitNullPlane(mem.planes[2][0][1])
	plane, err := mem.GetPlane(2, 0, 1)
	if err != nil || plane != nil {
		t.Errorf("expected null plane, got %v, %v", plane, err)
	}
	plane, err = mem.GetPlane(0, 0, 0)
	if err != nil || plane == nil {
		t.Errorf("expected zeroed plane, got %v, %v", plane, err)
	}
	if _, err := pixels.Writable(mem); !errors.Is(err, dvid.ErrUnsupported) {
		t.Errorf("expected unsupported, got %v", err)
	}
	if _, err := mem.GetPlane(0, 2, 0); err == nil {
		t.Errorf("expected out of bounds channel")
	}
	mem.Close()
	if _, err := mem.GetRow(0, 0, 0, 0); !errors.Is(err, dvid.ErrClosed) {
		t.Errorf("expected closed error, got %v", err)
	}
}

func TestHugeRegionsRejected(t *testing.T) {
	grid := dvid.Grid{SizeX: 2, SizeY: 2, SizeZ: 1, SizeC: 1, SizeT: 1, PixelType: dvid.T_uint8}
	b, err := NewEmpty(1, grid)
	if err != nil {
		t.Fatal(err)
	}
	var oob *dvid.OutOfBoundsError
	if _, err := b.GetRegion(math.MaxInt64, 2); !errors.As(err, &oob) {
		t.Errorf("expected out of bounds region, got %v", err)
	}
	if err := b.GetRegionDirect(math.MaxInt64, 1, make([]byte, 4)); !errors.As(err, &oob) {
		t.Errorf("expected out of bounds direct region, got %v", err)
	}
	if _, err := b.GetTile(0, 0, 0, 1, 0, math.MaxInt, 1); !errors.As(err, &oob) {
		t.Errorf("expected out of bounds tile, got %v", err)
	}
	if _, err := b.GetHypercube([]int{1, 0, 0, 0, 0}, []int{math.MaxInt, 1, 1, 1, 1}, []int{1, 1, 1, 1, 1}); !errors.As(err, &oob) {
		t.Errorf("expected out of bounds hypercube, got %v", err)
	}
}
