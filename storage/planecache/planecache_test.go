package planecache

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/janelia-flyem/pixels/dvid"
	"github.com/janelia-flyem/pixels/pixels"
	"github.com/janelia-flyem/pixels/storage/flatfile"
	"github.com/janelia-flyem/pixels/storage/inmemory"
)

func testStore(t *testing.T, id uint64) *inmemory.Buffer {
	t.Helper()
	grid := dvid.Grid{SizeX: 8, SizeY: 4, SizeZ: 2, SizeC: 1, SizeT: 1, PixelType: dvid.T_uint16}
	planes := make([][][][]byte, grid.SizeZ)
	for z := range planes {
		plane := make([]byte, grid.SizeX*grid.SizeY*2)
		for i := range plane {
			plane[i] = byte(int(id) + z*50 + i)
		}
		planes[z] = [][][]byte{{plane}}
	}
	pixels.InitNullPlane(planes[1][0][0])
	buf, err := inmemory.New(id, grid, planes)
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestReadThrough(t *testing.T) {
	cache := New(dvid.Mega)
	store := testStore(t, 1)
	buf := cache.Wrap(store)

	direct, err := store.GetPlane(0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		pd, err := buf.GetPlane(0, 0, 0)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(pd.Bytes(), direct.Bytes()) {
			t.Fatalf("request %d: cached plane differs", i)
		}
		if pd.Value(3) != direct.Value(3) {
			t.Errorf("request %d: decoded pixel differs", i)
		}
	}
	attempts, hits := cache.Stats()
	if attempts != 3 || hits != 2 {
		t.Errorf("expected 3 attempts and 2 hits, got %d and %d", attempts, hits)
	}

	// Other requests pass through.
	row, err := buf.GetRow(1, 0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(row.Bytes(), direct.Bytes()[16:32]) {
		t.Errorf("row mismatch")
	}
}

func TestNullPlanesNotCached(t *testing.T) {
	cache := New(dvid.Mega)
	buf := cache.Wrap(testStore(t, 2))
	for i := 0; i < 2; i++ {
		pd, err := buf.GetPlane(1, 0, 0)
		if err != nil || pd != nil {
			t.Fatalf("expected null plane, got %v, %v", pd, err)
		}
	}
	if _, hits := cache.Stats(); hits != 0 {
		t.Errorf("null planes should not be served from cache, got %d hits", hits)
	}
}

func TestSharedAcrossStores(t *testing.T) {
	cache := New(dvid.Mega)
	a := cache.Wrap(testStore(t, 3))
	b := cache.Wrap(testStore(t, 4))
	pa, err := a.GetPlane(0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	pb, err := b.GetPlane(0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(pa.Bytes(), pb.Bytes()) {
		t.Errorf("planes of different pixel sets should not collide")
	}
	cache.Invalidate(3, 0, 0, 0)
	if _, err := a.GetPlane(0, 0, 0); err != nil {
		t.Fatal(err)
	}
	if _, hits := cache.Stats(); hits != 0 {
		t.Errorf("expected no hits after invalidation, got %d", hits)
	}
}

func TestBoundsAndReadOnly(t *testing.T) {
	cache := New(dvid.Mega)
	buf := cache.Wrap(testStore(t, 5))
	var oob *dvid.OutOfBoundsError
	if _, err := buf.GetPlane(2, 0, 0); !errors.As(err, &oob) {
		t.Errorf("expected out of bounds z, got %v", err)
	}
	if _, err := pixels.Writable(buf); !errors.Is(err, dvid.ErrUnsupported) {
		t.Errorf("expected wrapped store to be read-only, got %v", err)
	}
}

func TestWritesInvalidate(t *testing.T) {
	cache := New(dvid.Mega)
	grid := dvid.Grid{SizeX: 4, SizeY: 4, SizeZ: 3, SizeC: 1, SizeT: 1, PixelType: dvid.T_uint8}
	path := filepath.Join(t.TempDir(), "7")
	created, err := flatfile.Create(7, path, grid, flatfile.Options{})
	if err != nil {
		t.Fatal(err)
	}
	for z := 0; z < 3; z++ {
		if err := created.SetPlane(z, 0, 0, bytes.Repeat([]byte{1}, 16)); err != nil {
			t.Fatal(err)
		}
	}
	created.Close()

	ro, err := flatfile.Open(7, path, grid, flatfile.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer ro.Close()
	cached := cache.Wrap(ro)
	for z := 0; z < 3; z++ {
		if _, err := cached.GetPlane(z, 0, 0); err != nil {
			t.Fatal(err)
		}
	}

	rw, err := flatfile.Open(7, path, grid, flatfile.Options{PermitModification: true})
	if err != nil {
		t.Fatal(err)
	}
	defer rw.Close()
	w := cache.WrapWritable(rw)
	if err := w.SetRow(2, 1, 0, 0, bytes.Repeat([]byte{5}, 4)); err != nil {
		t.Fatal(err)
	}
	if err := w.SetPlane(0, 0, 0, []byte{1}); !errors.Is(err, dvid.ErrBufferUnderflow) {
		t.Errorf("expected short buffer to be rejected, got %v", err)
	}

	_, hitsBefore := cache.Stats()
	pd, err := cached.GetPlane(1, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v := pd.Value(8); v != 5 {
		t.Errorf("expected rewritten row to read 5, got %v", v)
	}
	if _, err := cached.GetPlane(2, 0, 0); err != nil {
		t.Fatal(err)
	}
	if _, hits := cache.Stats(); hits != hitsBefore+1 {
		t.Errorf("untouched plane 2 should still be cached: %d hits before, %d after", hitsBefore, hits)
	}
}
