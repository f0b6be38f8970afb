/*
	Package pyramid signals that a resolution level of a pixel set has not been built
	yet.  A BackOff estimates how long building the level will take so callers can
	retry later instead of failing.
*/
package pyramid

import (
	"fmt"
	"time"

	"github.com/janelia-flyem/pixels/dvid"
	"github.com/janelia-flyem/pixels/tiles"
)

// DefaultTileSize is the width and height of the tiles counted for an estimate.
const DefaultTileSize = 256

// MissingPyramidError is returned when a resolution level is requested before the
// pyramid holding it exists.  It is retryable once Wait has elapsed.
type MissingPyramidError struct {
	PixelsID uint64
	Wait     time.Duration
}

func (e *MissingPyramidError) Error() string {
	return fmt.Sprintf("pyramid for pixels %d not yet available, retry in %s", e.PixelsID, e.Wait)
}

// RetryAfter returns the estimated time until the pyramid is available.
func (e *MissingPyramidError) RetryAfter() time.Duration {
	return e.Wait
}

// BackOff estimates the time needed to produce every tile of a resolution level.
type BackOff interface {
	// ScalingFactor is the estimated cost of producing one tile.
	ScalingFactor() time.Duration

	// Estimate returns the expected wait for all tiles covering grid.
	Estimate(grid dvid.Grid) (time.Duration, error)
}

// CountTiles returns the number of tileSize x tileSize tiles that cover grid.
func CountTiles(grid dvid.Grid, tileSize int) (int, error) {
	return tiles.ForEach(grid.SizeX, grid.SizeY, grid.SizeZ, grid.SizeC, grid.SizeT, tileSize, tileSize,
		func(tiles.Tile) error { return nil })
}

// Missing returns the error a caller should return for a pyramid level that
// hasn't been built for pixel set id.  grid is the requested level's grid.
func Missing(b BackOff, id uint64, grid dvid.Grid) error {
	wait, err := b.Estimate(grid)
	if err != nil {
		return fmt.Errorf("unable to estimate pyramid wait for pixels %d: %w", id, err)
	}
	dvid.Infof("Pyramid for pixels %d (%s) is missing, estimated wait %s\n", id, grid, wait)
	return &MissingPyramidError{PixelsID: id, Wait: wait}
}

// LevelGrid returns the grid of resolution level, where level 0 is full
// resolution and each level halves X and Y, rounding up.
func LevelGrid(grid dvid.Grid, level int) dvid.Grid {
	for i := 0; i < level; i++ {
		grid.SizeX = (grid.SizeX + 1) / 2
		grid.SizeY = (grid.SizeY + 1) / 2
	}
	return grid
}

// FixedBackOff uses a fixed per-tile cost.
type FixedBackOff struct {
	PerTile  time.Duration
	TileSize int
}

func (b FixedBackOff) ScalingFactor() time.Duration { return b.PerTile }

func (b FixedBackOff) Estimate(grid dvid.Grid) (time.Duration, error) {
	tileSize := b.TileSize
	if tileSize == 0 {
		tileSize = DefaultTileSize
	}
	n, err := CountTiles(grid, tileSize)
	if err != nil {
		return 0, err
	}
	return b.PerTile * time.Duration(n), nil
}
