/*
	Package planecache provides a read-through cache of whole planes shared by any
	number of read-only pixel stores.
*/
package planecache

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/coocood/freecache"
	"github.com/dustin/go-humanize"

	"github.com/janelia-flyem/pixels/dvid"
	"github.com/janelia-flyem/pixels/pixels"
)

// Cache holds planes keyed by pixel set id and plane coordinate.  It is safe for
// concurrent use even though the stores it wraps are not.
type Cache struct {
	planes *freecache.Cache

	attempts uint64
	hits     uint64
}

// New returns a cache of about numBytes.  Planes larger than 1/1024 of the cache
// size are never cached.
func New(numBytes int) *Cache {
	c := &Cache{planes: freecache.NewCache(numBytes)}
	dvid.Infof("Created plane cache of ~ %s.\n", humanize.IBytes(uint64(numBytes)))
	return c
}

// Stats returns the number of plane requests and how many were served from cache.
func (c *Cache) Stats() (attempts, hits uint64) {
	return atomic.LoadUint64(&c.attempts), atomic.LoadUint64(&c.hits)
}

// Clear drops every cached plane.
func (c *Cache) Clear() {
	c.planes.Clear()
}

// Invalidate drops the cached plane (z, c, t) of a pixel set.
func (c *Cache) Invalidate(id uint64, z, ch, t int) {
	c.planes.Del(planeKey(id, z, ch, t))
}

func planeKey(id uint64, z, c, t int) []byte {
	b := make([]byte, 20)
	binary.BigEndian.PutUint64(b[0:8], id)
	binary.BigEndian.PutUint32(b[8:12], uint32(z))
	binary.BigEndian.PutUint32(b[12:16], uint32(c))
	binary.BigEndian.PutUint32(b[16:20], uint32(t))
	return b
}

// Wrap returns a read-only store that serves GetPlane through the cache.  Every
// other request goes straight to buf.
func (c *Cache) Wrap(buf pixels.PixelBuffer) pixels.PixelBuffer {
	return &cachedBuffer{PixelBuffer: buf, cache: c}
}

type cachedBuffer struct {
	pixels.PixelBuffer
	cache *Cache
}

func (b *cachedBuffer) String() string {
	return fmt.Sprintf("cached %v", b.PixelBuffer)
}

// GetPlane returns a cached plane if available.  Null planes are not cached.
func (b *cachedBuffer) GetPlane(z, c, t int) (*pixels.PixelData, error) {
	if err := b.CheckBounds(pixels.Z(z), pixels.C(c), pixels.T(t)); err != nil {
		return nil, err
	}
	atomic.AddUint64(&b.cache.attempts, 1)
	key := planeKey(b.ID(), z, c, t)
	data, err := b.cache.planes.Get(key)
	if err != nil && err != freecache.ErrNotFound {
		return nil, err
	}
	if data != nil {
		atomic.AddUint64(&b.cache.hits, 1)
		return b.wrap(data), nil
	}
	pd, err := b.PixelBuffer.GetPlane(z, c, t)
	if err != nil || pd == nil {
		return pd, err
	}
	if err := b.cache.planes.Set(key, pd.Bytes(), 0); err != nil {
		dvid.Debugf("unable to cache plane (%d,%d,%d) of pixels %d: %v\n", z, c, t, b.ID(), err)
	}
	return pd, nil
}

// wrap decodes cached bytes with the byte order the store itself returns.
func (b *cachedBuffer) wrap(data []byte) *pixels.PixelData {
	pd := pixels.NewPixelData(b.Grid().PixelType, data)
	pd.SetOrder(b.ByteOrder())
	return pd
}

// WrapWritable returns a writable store whose setters drop every cached plane
// their bytes touch once the write is done, so later reads through Wrap see the
// new contents.  Reads through the returned store bypass the cache.
func (c *Cache) WrapWritable(buf pixels.WritablePixelBuffer) pixels.WritablePixelBuffer {
	return &invalidatingBuffer{WritablePixelBuffer: buf, cache: c}
}

type invalidatingBuffer struct {
	pixels.WritablePixelBuffer
	cache *Cache
}

func (b *invalidatingBuffer) String() string {
	return fmt.Sprintf("cache invalidating %v", b.WritablePixelBuffer)
}

// invalidate drops planes first through last, given as indices in T, C, Z order.
func (b *invalidatingBuffer) invalidate(first, last int64) {
	grid := b.Grid()
	sizeZ, sizeC := int64(grid.SizeZ), int64(grid.SizeC)
	for index := first; index <= last; index++ {
		z := int(index % sizeZ)
		c := int(index / sizeZ % sizeC)
		t := int(index / (sizeZ * sizeC))
		b.cache.Invalidate(b.ID(), z, c, t)
	}
}

func (b *invalidatingBuffer) planeIndex(z, c, t int) int64 {
	grid := b.Grid()
	return (int64(t)*int64(grid.SizeC)+int64(c))*int64(grid.SizeZ) + int64(z)
}

func (b *invalidatingBuffer) SetRegion(size, offset int64, buf []byte) error {
	err := b.WritablePixelBuffer.SetRegion(size, offset, buf)
	if size > 0 && b.CheckRegion(size, offset) == nil {
		b.invalidate(offset/b.PlaneSize(), (offset+size-1)/b.PlaneSize())
	}
	return err
}

func (b *invalidatingBuffer) SetRow(y, z, c, t int, buf []byte) error {
	err := b.WritablePixelBuffer.SetRow(y, z, c, t, buf)
	if b.CheckBounds(pixels.Z(z), pixels.C(c), pixels.T(t)) == nil {
		index := b.planeIndex(z, c, t)
		b.invalidate(index, index)
	}
	return err
}

func (b *invalidatingBuffer) SetPlane(z, c, t int, buf []byte) error {
	err := b.WritablePixelBuffer.SetPlane(z, c, t, buf)
	if b.CheckBounds(pixels.Z(z), pixels.C(c), pixels.T(t)) == nil {
		index := b.planeIndex(z, c, t)
		b.invalidate(index, index)
	}
	return err
}

func (b *invalidatingBuffer) SetStack(c, t int, buf []byte) error {
	err := b.WritablePixelBuffer.SetStack(c, t, buf)
	if b.CheckBounds(pixels.C(c), pixels.T(t)) == nil {
		b.invalidate(b.planeIndex(0, c, t), b.planeIndex(b.Grid().SizeZ-1, c, t))
	}
	return err
}

func (b *invalidatingBuffer) SetTimepoint(t int, buf []byte) error {
	err := b.WritablePixelBuffer.SetTimepoint(t, buf)
	if b.CheckBounds(pixels.T(t)) == nil {
		grid := b.Grid()
		b.invalidate(b.planeIndex(0, 0, t), b.planeIndex(grid.SizeZ-1, grid.SizeC-1, t))
	}
	return err
}

func (b *invalidatingBuffer) SetTile(z, c, t, x, y, width, height int, buf []byte) error {
	err := b.WritablePixelBuffer.SetTile(z, c, t, x, y, width, height, buf)
	if b.CheckBounds(pixels.Z(z), pixels.C(c), pixels.T(t)) == nil {
		index := b.planeIndex(z, c, t)
		b.invalidate(index, index)
	}
	return err
}
