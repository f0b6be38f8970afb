package pixels

import (
	"github.com/janelia-flyem/pixels/tiles"
)

// TileReader is called with each tile's coordinates and its dense pixel data.
type TileReader func(tile tiles.Tile, data *PixelData) error

// ReadTiles walks every tile of a store using the given tile size, or the store's
// preferred tile size if width or height is 0, and reads each one with GetTile.
// It returns the number of tiles handed to fn without error.
func ReadTiles(buf PixelBuffer, width, height int, fn TileReader) (int, error) {
	if width == 0 || height == 0 {
		width, height = buf.TileSize()
	}
	g := buf.Grid()
	return tiles.ForEach(g.SizeX, g.SizeY, g.SizeZ, g.SizeC, g.SizeT, width, height,
		func(tile tiles.Tile) error {
			data, err := buf.GetTile(tile.Z, tile.C, tile.T, tile.X, tile.Y, tile.Width, tile.Height)
			if err != nil {
				return err
			}
			return fn(tile, data)
		})
}
