/*
	Package tiles enumerates the rectangular tiles that cover every plane of a 5d pixel
	set.  It only generates coordinates; callers read or write the tiles themselves.
*/
package tiles

import (
	"errors"
	"fmt"
)

// ErrAbort may be returned by a TileFunc to stop iteration without error.
var ErrAbort = errors.New("tile iteration aborted")

// Tile describes one tile of one plane.  Index is the sequential position of the
// tile in iteration order, starting at 0.
type Tile struct {
	Z, C, T       int
	X, Y          int
	Width, Height int
	Index         int
}

func (t Tile) String() string {
	return fmt.Sprintf("tile %d (z %d, c %d, t %d) @ (%d,%d) %dx%d", t.Index, t.Z, t.C, t.T, t.X, t.Y, t.Width, t.Height)
}

// TileFunc is called for each tile.
type TileFunc func(tile Tile) error

// Count returns ceil(size / tileSize), the number of tiles along one axis.
func Count(size, tileSize int) int {
	n := size / tileSize
	if size%tileSize != 0 {
		n++
	}
	return n
}

// Total returns the number of tiles covering all planes of the given extents.
func Total(sizeX, sizeY, sizeZ, sizeC, sizeT, tileWidth, tileHeight int) int {
	if tileWidth < 1 || tileHeight < 1 {
		return 0
	}
	return sizeZ * sizeC * sizeT * Count(sizeX, tileWidth) * Count(sizeY, tileHeight)
}

// ForEach calls fn for every tile in T, C, Z, tile row, tile column order.  Tiles
// on the right and bottom edges are clipped to the plane.  The number of tiles for
// which fn returned nil is returned.  If fn returns ErrAbort, iteration stops and
// the count so far is returned with a nil error; any other error stops iteration
// and is returned along with the count.
func ForEach(sizeX, sizeY, sizeZ, sizeC, sizeT, tileWidth, tileHeight int, fn TileFunc) (int, error) {
	if tileWidth < 1 || tileHeight < 1 {
		return 0, fmt.Errorf("tile size %dx%d must be at least 1x1", tileWidth, tileHeight)
	}
	if sizeX < 1 || sizeY < 1 || sizeZ < 1 || sizeC < 1 || sizeT < 1 {
		return 0, fmt.Errorf("cannot tile extents %dx%dx%dx%dx%d", sizeX, sizeY, sizeZ, sizeC, sizeT)
	}
	tileRows := Count(sizeY, tileHeight)
	tileCols := Count(sizeX, tileWidth)

	var index int
	for t := 0; t < sizeT; t++ {
		for c := 0; c < sizeC; c++ {
			for z := 0; z < sizeZ; z++ {
				for row := 0; row < tileRows; row++ {
					for col := 0; col < tileCols; col++ {
						tile := Tile{
							Z: z, C: c, T: t,
							X:      col * tileWidth,
							Y:      row * tileHeight,
							Width:  tileWidth,
							Height: tileHeight,
							Index:  index,
						}
						if tile.X+tile.Width > sizeX {
							tile.Width = sizeX - tile.X
						}
						if tile.Y+tile.Height > sizeY {
							tile.Height = sizeY - tile.Y
						}
						if err := fn(tile); err != nil {
							if errors.Is(err, ErrAbort) {
								return index, nil
							}
							return index, err
						}
						index++
					}
				}
			}
		}
	}
	return index, nil
}
