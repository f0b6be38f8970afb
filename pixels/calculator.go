package pixels

import (
	"fmt"
	"sync"

	"github.com/janelia-flyem/pixels/dvid"
)

// Coord is a single axis value to be bounds checked.  Axes that aren't passed
// to CheckBounds aren't checked.
type Coord struct {
	Axis  dvid.Axis
	Value int
}

func X(v int) Coord { return Coord{dvid.AxisX, v} }
func Y(v int) Coord { return Coord{dvid.AxisY, v} }
func Z(v int) Coord { return Coord{dvid.AxisZ, v} }
func C(v int) Coord { return Coord{dvid.AxisC, v} }
func T(v int) Coord { return Coord{dvid.AxisT, v} }

// Calculator computes byte sizes and offsets of rows, planes, stacks and timepoints
// within a row-major X, Y, Z, C, T layout.  Derived sizes are computed on first
// use and then memoized for the life of the Calculator.
type Calculator struct {
	grid dvid.Grid

	once          sync.Once
	bpp           int64
	rowSize       int64
	colSize       int64
	planeSize     int64
	stackSize     int64
	timepointSize int64
	totalSize     int64
}

// NewCalculator returns a Calculator for a grid descriptor.
func NewCalculator(grid dvid.Grid) *Calculator {
	return &Calculator{grid: grid}
}

func (c *Calculator) sizes() {
	c.once.Do(func() {
		c.bpp = int64(c.grid.PixelType.Bytes())
		c.rowSize = int64(c.grid.SizeX) * c.bpp
		c.colSize = int64(c.grid.SizeY) * c.bpp
		c.planeSize = int64(c.grid.SizeX) * int64(c.grid.SizeY) * c.bpp
		c.stackSize = c.planeSize * int64(c.grid.SizeZ)
		c.timepointSize = c.stackSize * int64(c.grid.SizeC)
		c.totalSize = c.timepointSize * int64(c.grid.SizeT)
	})
}

// Grid returns the grid descriptor.
func (c *Calculator) Grid() dvid.Grid { return c.grid }

// ByteWidth returns the number of bytes per pixel.
func (c *Calculator) ByteWidth() int {
	c.sizes()
	return int(c.bpp)
}

func (c *Calculator) RowSize() int64 {
	c.sizes()
	return c.rowSize
}

func (c *Calculator) ColSize() int64 {
	c.sizes()
	return c.colSize
}

func (c *Calculator) PlaneSize() int64 {
	c.sizes()
	return c.planeSize
}

func (c *Calculator) StackSize() int64 {
	c.sizes()
	return c.stackSize
}

func (c *Calculator) TimepointSize() int64 {
	c.sizes()
	return c.timepointSize
}

func (c *Calculator) TotalSize() int64 {
	c.sizes()
	return c.totalSize
}

// CheckBounds returns an *dvid.OutOfBoundsError for the first coordinate
// outside [0, extent-1] of its axis.
func (c *Calculator) CheckBounds(coords ...Coord) error {
	for _, coord := range coords {
		extent := c.grid.Size(coord.Axis)
		if coord.Value < 0 || coord.Value >= extent {
			return &dvid.OutOfBoundsError{Axis: coord.Axis, Value: coord.Value, Extent: extent}
		}
	}
	return nil
}

func (c *Calculator) rowOffset(y, z, ch, t int) int64 {
	c.sizes()
	return c.rowSize*int64(y) + c.timepointSize*int64(t) + c.stackSize*int64(ch) + c.planeSize*int64(z)
}

func (c *Calculator) planeOffset(z, ch, t int) int64 {
	c.sizes()
	return c.timepointSize*int64(t) + c.stackSize*int64(ch) + c.planeSize*int64(z)
}

func (c *Calculator) stackOffset(ch, t int) int64 {
	c.sizes()
	return c.timepointSize*int64(t) + c.stackSize*int64(ch)
}

func (c *Calculator) timepointOffset(t int) int64 {
	c.sizes()
	return c.timepointSize * int64(t)
}

func (c *Calculator) RowOffset(y, z, ch, t int) (int64, error) {
	if err := c.CheckBounds(Y(y), Z(z), C(ch), T(t)); err != nil {
		return 0, err
	}
	return c.rowOffset(y, z, ch, t), nil
}

func (c *Calculator) PlaneOffset(z, ch, t int) (int64, error) {
	if err := c.CheckBounds(Z(z), C(ch), T(t)); err != nil {
		return 0, err
	}
	return c.planeOffset(z, ch, t), nil
}

func (c *Calculator) StackOffset(ch, t int) (int64, error) {
	if err := c.CheckBounds(C(ch), T(t)); err != nil {
		return 0, err
	}
	return c.stackOffset(ch, t), nil
}

func (c *Calculator) TimepointOffset(t int) (int64, error) {
	if err := c.CheckBounds(T(t)); err != nil {
		return 0, err
	}
	return c.timepointOffset(t), nil
}

// CheckRegion makes sure a flat byte region lies within the pixel set.
func (c *Calculator) CheckRegion(size, offset int64) error {
	c.sizes()
	if size < 0 || offset < 0 || size > c.totalSize || offset > c.totalSize-size {
		return &dvid.OutOfBoundsError{
			Reason: fmt.Sprintf("region of %d bytes at offset %d outside pixel set of %d bytes", size, offset, c.totalSize),
		}
	}
	return nil
}

// CheckHypercube validates X, Y, Z, C, T ordered offset, size and step lists.
// Each list needs five elements, every step must be >= 1, and the inclusive end
// of each axis range must lie within the grid.
func (c *Calculator) CheckHypercube(offset, size, step []int) error {
	if len(offset) != dvid.NumAxes {
		return &dvid.OutOfBoundsError{Reason: fmt.Sprintf("hypercube offset list has %d elements, need %d", len(offset), dvid.NumAxes)}
	}
	if len(size) != dvid.NumAxes {
		return &dvid.OutOfBoundsError{Reason: fmt.Sprintf("hypercube size list has %d elements, need %d", len(size), dvid.NumAxes)}
	}
	if len(step) != dvid.NumAxes {
		return &dvid.OutOfBoundsError{Reason: fmt.Sprintf("hypercube step list has %d elements, need %d", len(step), dvid.NumAxes)}
	}
	for i := 0; i < dvid.NumAxes; i++ {
		axis := dvid.Axis(i)
		if step[i] < 1 {
			return &dvid.OutOfBoundsError{Reason: fmt.Sprintf("hypercube step for %s must be >= 1, got %d", axis, step[i])}
		}
		if size[i] < 1 {
			return &dvid.OutOfBoundsError{Reason: fmt.Sprintf("hypercube size for %s must be >= 1, got %d", axis, size[i])}
		}
		if err := c.CheckBounds(Coord{axis, offset[i]}); err != nil {
			return err
		}
		if extent := c.grid.Size(axis); size[i] > extent-offset[i] {
			return &dvid.OutOfBoundsError{
				Reason: fmt.Sprintf("hypercube %s range of %d at %d exceeds extent %d", axis, size[i], offset[i], extent),
			}
		}
	}
	return nil
}

// HypercubeSize returns the number of bytes in a strided hypercube, i.e., the
// byte width times the product over axes of ceil(size/step).
func (c *Calculator) HypercubeSize(offset, size, step []int) (int64, error) {
	if err := c.CheckHypercube(offset, size, step); err != nil {
		return 0, err
	}
	n := int64(c.ByteWidth())
	for i := 0; i < dvid.NumAxes; i++ {
		n *= int64((size[i] + step[i] - 1) / step[i])
	}
	return n, nil
}

// CheckPlaneRegion validates a width x height rectangle at (x, y) on plane (z, c, t).
func (c *Calculator) CheckPlaneRegion(x, y, width, height, z, ch, t int) error {
	if width < 1 || height < 1 {
		return &dvid.OutOfBoundsError{Reason: fmt.Sprintf("plane region %dx%d must be at least 1x1", width, height)}
	}
	if err := c.CheckBounds(X(x), Y(y), Z(z), C(ch), T(t)); err != nil {
		return err
	}
	if width > c.grid.SizeX-x || height > c.grid.SizeY-y {
		return &dvid.OutOfBoundsError{
			Reason: fmt.Sprintf("plane region %dx%d at (%d, %d) exceeds plane %dx%d", width, height, x, y, c.grid.SizeX, c.grid.SizeY),
		}
	}
	return nil
}
