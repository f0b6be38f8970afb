package service

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/janelia-flyem/pixels/dvid"
	"github.com/janelia-flyem/pixels/pixels"
	"github.com/janelia-flyem/pixels/pyramid"
	"github.com/janelia-flyem/pixels/storage/flatfile"
)

var testGrid = dvid.Grid{SizeX: 600, SizeY: 300, SizeZ: 2, SizeC: 1, SizeT: 2, PixelType: dvid.T_uint8}

func newTestService(t *testing.T, planesMB int) *Service {
	t.Helper()
	config := DefaultConfig(t.TempDir())
	config.Cache.PlanesMB = planesMB
	s, err := New(config, WithBackOff(pyramid.FixedBackOff{PerTile: time.Second}))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// writeVendorFile writes a little-endian single byte vendor file whose pixels
// all hold value.
func writeVendorFile(t *testing.T, value byte) (string, []byte) {
	t.Helper()
	h := make([]byte, 1024)
	le := binary.LittleEndian
	le.PutUint32(h[0:], 8)
	le.PutUint32(h[4:], 4)
	le.PutUint16(h[8:], 3)
	le.PutUint32(h[12:], 0)
	le.PutUint32(h[92:], 0)
	h[96], h[97] = 0xA0, 0xC0
	le.PutUint16(h[180:], 1)
	le.PutUint16(h[196:], 1)
	data := bytes.Repeat([]byte{value}, 8*4*3)
	path := filepath.Join(t.TempDir(), "vendor.dv")
	if err := os.WriteFile(path, append(h, data...), 0644); err != nil {
		t.Fatal(err)
	}
	return path, data
}

func TestCreateOpen(t *testing.T) {
	s := newTestService(t, 0)
	buf, err := s.Create(12345, testGrid)
	if err != nil {
		t.Fatal(err)
	}
	expPath := filepath.Join(s.Paths().Root(), "Pixels", "Dir-012", "12345")
	if buf.Path() != expPath {
		t.Errorf("expected path %s, got %s", expPath, buf.Path())
	}
	plane := bytes.Repeat([]byte{7}, int(buf.PlaneSize()))
	if err := buf.SetPlane(1, 0, 1, plane); err != nil {
		t.Fatal(err)
	}
	if err := buf.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(12345, testGrid); err == nil {
		t.Errorf("expected second create to fail")
	}

	ro, err := s.Open(12345, false)
	if err != nil {
		t.Fatal(err)
	}
	defer ro.Close()
	if _, err := pixels.Writable(ro); !errors.Is(err, dvid.ErrUnsupported) {
		t.Errorf("read-only open should not expose setters, got %v", err)
	}
	pd, err := ro.GetPlane(1, 0, 1)
	if err != nil || pd == nil {
		t.Fatalf("expected acquired plane, got %v, %v", pd, err)
	}
	if pd.Value(100) != 7 {
		t.Errorf("expected 7, got %v", pd.Value(100))
	}
	pd, err = ro.GetPlane(0, 0, 0)
	if err != nil || pd != nil {
		t.Errorf("expected unacquired plane, got %v, %v", pd, err)
	}

	rw, err := s.Open(12345, true)
	if err != nil {
		t.Fatal(err)
	}
	defer rw.Close()
	w, err := pixels.Writable(rw)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.SetRow(0, 0, 0, 0, make([]byte, 600)); err != nil {
		t.Errorf("unable to write row: %v", err)
	}

	if _, err := s.Open(99, false); err == nil {
		t.Errorf("expected unregistered id to fail")
	}
}

func TestCachedOpen(t *testing.T) {
	s := newTestService(t, 1)
	small := dvid.Grid{SizeX: 16, SizeY: 16, SizeZ: 1, SizeC: 1, SizeT: 1, PixelType: dvid.T_uint8}
	buf, err := s.Create(3, small)
	if err != nil {
		t.Fatal(err)
	}
	if err := buf.SetPlane(0, 0, 0, bytes.Repeat([]byte{1}, int(buf.PlaneSize()))); err != nil {
		t.Fatal(err)
	}
	buf.Close()

	for i := 0; i < 2; i++ {
		ro, err := s.Open(3, false)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := ro.GetPlane(0, 0, 0); err != nil {
			t.Fatal(err)
		}
		ro.Close()
	}
	attempts, hits := s.Cache().Stats()
	if attempts != 2 || hits != 1 {
		t.Errorf("expected 2 attempts and 1 hit, got %d and %d", attempts, hits)
	}

	ro, err := s.Open(3, false)
	if err != nil {
		t.Fatal(err)
	}
	defer ro.Close()
	if _, err := pixels.Writable(ro); !errors.Is(err, dvid.ErrUnsupported) {
		t.Errorf("cached read-only open should not expose setters, got %v", err)
	}
}

// readPlaneValue reads plane (z, c, t) of id through a read-only open and returns
// its first pixel.
func readPlaneValue(t *testing.T, s *Service, id uint64, z, c, ti int) float64 {
	t.Helper()
	ro, err := s.Open(id, false)
	if err != nil {
		t.Fatal(err)
	}
	defer ro.Close()
	pd, err := ro.GetPlane(z, c, ti)
	if err != nil || pd == nil {
		t.Fatalf("expected plane (%d,%d,%d), got %v, %v", z, c, ti, pd, err)
	}
	return pd.Value(0)
}

func TestCachedPlanesFollowWrites(t *testing.T) {
	s := newTestService(t, 1)
	grid := dvid.Grid{SizeX: 16, SizeY: 16, SizeZ: 2, SizeC: 2, SizeT: 2, PixelType: dvid.T_uint8}
	buf, err := s.Create(3, grid)
	if err != nil {
		t.Fatal(err)
	}
	planeSize := int(buf.PlaneSize())
	for z := 0; z < 2; z++ {
		for c := 0; c < 2; c++ {
			for ti := 0; ti < 2; ti++ {
				if err := buf.SetPlane(z, c, ti, bytes.Repeat([]byte{1}, planeSize)); err != nil {
					t.Fatal(err)
				}
			}
		}
	}
	buf.Close()

	writes := []struct {
		name  string
		value byte
		write func(w pixels.WritablePixelBuffer, v byte) error
		z, c  int
		ti    int
	}{
		{"plane", 9, func(w pixels.WritablePixelBuffer, v byte) error {
			return w.SetPlane(0, 0, 0, bytes.Repeat([]byte{v}, planeSize))
		}, 0, 0, 0},
		{"row", 8, func(w pixels.WritablePixelBuffer, v byte) error {
			return w.SetRow(0, 1, 0, 0, bytes.Repeat([]byte{v}, 16))
		}, 1, 0, 0},
		{"tile", 7, func(w pixels.WritablePixelBuffer, v byte) error {
			return w.SetTile(0, 1, 0, 0, 0, 2, 2, bytes.Repeat([]byte{v}, 4))
		}, 0, 1, 0},
		{"region spanning planes", 6, func(w pixels.WritablePixelBuffer, v byte) error {
			// Last byte of plane (0,1,1) through the first byte of plane (1,1,1).
			offset, err := w.PlaneOffset(1, 1, 1)
			if err != nil {
				return err
			}
			return w.SetRegion(2, offset-1, []byte{v, v})
		}, 1, 1, 1},
		{"stack", 5, func(w pixels.WritablePixelBuffer, v byte) error {
			return w.SetStack(0, 1, bytes.Repeat([]byte{v}, 2*planeSize))
		}, 1, 0, 1},
		{"timepoint", 4, func(w pixels.WritablePixelBuffer, v byte) error {
			return w.SetTimepoint(1, bytes.Repeat([]byte{v}, 4*planeSize))
		}, 0, 1, 1},
	}
	for _, tc := range writes {
		// Cache the old contents first.
		readPlaneValue(t, s, 3, tc.z, tc.c, tc.ti)

		rw, err := s.Open(3, true)
		if err != nil {
			t.Fatal(err)
		}
		w, err := pixels.Writable(rw)
		if err != nil {
			t.Fatal(err)
		}
		if err := tc.write(w, tc.value); err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		rw.Close()

		if v := readPlaneValue(t, s, 3, tc.z, tc.c, tc.ti); v != float64(tc.value) {
			t.Errorf("%s: after rewrite to %d, read-only plane (%d,%d,%d) gave %v",
				tc.name, tc.value, tc.z, tc.c, tc.ti, v)
		}
	}
}

func TestOpenLevel(t *testing.T) {
	s := newTestService(t, 0)
	buf, err := s.Create(8, testGrid)
	if err != nil {
		t.Fatal(err)
	}
	buf.Close()

	_, err = s.OpenLevel(8, 1)
	var missing *pyramid.MissingPyramidError
	if !errors.As(err, &missing) {
		t.Fatalf("expected missing pyramid, got %v", err)
	}
	// Level 1 is 300x150 over 4 planes: 2x1 tiles each.
	if missing.PixelsID != 8 || missing.RetryAfter() != 8*time.Second {
		t.Errorf("unexpected missing pyramid error %+v", missing)
	}

	path, err := s.Paths().LevelPath(8, 1)
	if err != nil {
		t.Fatal(err)
	}
	level, err := flatfile.Create(8, path, pyramid.LevelGrid(testGrid, 1), flatfile.Options{})
	if err != nil {
		t.Fatal(err)
	}
	level.Close()
	lb, err := s.OpenLevel(8, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer lb.Close()
	if lb.Grid().SizeX != 300 || lb.Grid().SizeY != 150 {
		t.Errorf("bad level grid %s", lb.Grid())
	}
	if err := lb.(*flatfile.Buffer).SetRow(0, 0, 0, 0, make([]byte, 300)); !errors.Is(err, dvid.ErrNotWritable) {
		t.Errorf("expected level to be opened without modification permission, got %v", err)
	}

	full, err := s.OpenLevel(8, 0)
	if err != nil {
		t.Fatal(err)
	}
	full.Close()
}

func TestVendorFilesAndDuplicates(t *testing.T) {
	s := newTestService(t, 0)
	pathA, data := writeVendorFile(t, 5)
	pathB, _ := writeVendorFile(t, 5)
	pathC, _ := writeVendorFile(t, 6)

	rec, err := s.RegisterVendorFile(1, pathA)
	if err != nil {
		t.Fatal(err)
	}
	exp := sha1.Sum(data)
	if !bytes.Equal(rec.Digest, exp[:]) {
		t.Errorf("expected digest %x, got %x", exp, rec.Digest)
	}
	if rec.Grid.SizeZ != 3 || rec.Grid.SizeX != 8 {
		t.Errorf("bad vendor grid %s", rec.Grid)
	}
	if _, err := s.RegisterVendorFile(2, pathB); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RegisterVendorFile(3, pathC); err != nil {
		t.Fatal(err)
	}

	buf, err := s.Open(1, false)
	if err != nil {
		t.Fatal(err)
	}
	row, err := buf.GetRow(2, 1, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if row.Value(0) != 5 {
		t.Errorf("expected 5, got %v", row.Value(0))
	}
	buf.Close()
	if _, err := s.Open(1, true); !errors.Is(err, dvid.ErrUnsupported) {
		t.Errorf("expected vendor file to be read-only, got %v", err)
	}

	dups, err := s.Registry().Duplicates()
	if err != nil {
		t.Fatal(err)
	}
	if len(dups) != 1 || len(dups[0].IDs) != 2 || dups[0].IDs[0] != 1 || dups[0].IDs[1] != 2 {
		t.Errorf("expected pixels 1 and 2 to be duplicates, got %v", dups)
	}
}

func TestUpdateDigest(t *testing.T) {
	s := newTestService(t, 0)
	buf, err := s.Create(4, testGrid)
	if err != nil {
		t.Fatal(err)
	}
	buf.Close()
	rec, err := s.Registry().Get(4)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Digest != nil {
		t.Errorf("new pixels should have no digest")
	}
	digest, err := s.UpdateDigest(4)
	if err != nil {
		t.Fatal(err)
	}
	rec, err = s.Registry().Get(4)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(rec.Digest, digest) || len(digest) != sha1.Size {
		t.Errorf("digest not stored: %x vs %x", rec.Digest, digest)
	}
	ids, err := s.Registry().FindByDigest(digest)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != 4 {
		t.Errorf("expected [4], got %v", ids)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "config.toml")
	contents := `
[store]
root = "data"
readonly = true

[tiles]
width = 512

[backoff]
codec = "snappy"
iterations = 20

[cache]
planes_mb = 64

[logging]
logfile = "logs/pixels.log"
max_log_size = 10
`
	if err := os.WriteFile(filename, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(filename)
	if err != nil {
		t.Fatal(err)
	}
	if c.Store.Root != filepath.Join(dir, "data") || !c.Store.ReadOnly {
		t.Errorf("bad store config %+v", c.Store)
	}
	if c.Registry.Path != filepath.Join(dir, "data", "Registry") {
		t.Errorf("bad default registry path %q", c.Registry.Path)
	}
	if c.Tiles.Width != 512 || c.Tiles.Height != 256 {
		t.Errorf("bad tiles config %+v", c.Tiles)
	}
	if c.Backoff.Codec != pyramid.CodecSnappy || c.Backoff.Iterations != 20 || c.Backoff.Warmup != pyramid.DefaultWarmup {
		t.Errorf("bad backoff config %+v", c.Backoff)
	}
	if c.Cache.PlanesMB != 64 {
		t.Errorf("bad cache config %+v", c.Cache)
	}
	if c.Logging.Logfile != filepath.Join(dir, "logs", "pixels.log") || c.Logging.MaxSize != 10 {
		t.Errorf("bad logging config %+v", c.Logging)
	}

	if err := os.WriteFile(filename, []byte("[tiles]\nwidth = 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(filename); err == nil {
		t.Errorf("expected missing root to fail")
	}
}
