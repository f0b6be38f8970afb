package dvid

import (
	"fmt"
	"strconv"
	"strings"
)

// Axis identifies one of the five grid axes.  The numeric order is the storage order,
// X varying fastest and T slowest.
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
	AxisC
	AxisT
)

// NumAxes is the dimensionality of every pixel set.
const NumAxes = 5

var axisNames = [NumAxes]string{"x", "y", "z", "c", "t"}

func (a Axis) String() string {
	if int(a) < NumAxes {
		return axisNames[a]
	}
	return fmt.Sprintf("axis(%d)", uint8(a))
}

// Grid is the immutable grid descriptor of a pixel set: five axis extents and the
// numeric type of each pixel.
type Grid struct {
	SizeX int
	SizeY int
	SizeZ int
	SizeC int
	SizeT int

	PixelType PixelType
}

// Size returns the extent along the given axis.
func (g Grid) Size(a Axis) int {
	switch a {
	case AxisX:
		return g.SizeX
	case AxisY:
		return g.SizeY
	case AxisZ:
		return g.SizeZ
	case AxisC:
		return g.SizeC
	case AxisT:
		return g.SizeT
	}
	return 0
}

// Sizes returns the five extents in X, Y, Z, C, T order.
func (g Grid) Sizes() [NumAxes]int {
	return [NumAxes]int{g.SizeX, g.SizeY, g.SizeZ, g.SizeC, g.SizeT}
}

// NumPlanes returns the number of (Z,C,T) planes.
func (g Grid) NumPlanes() int {
	return g.SizeZ * g.SizeC * g.SizeT
}

// Validate returns an error if any extent is < 1 or the pixel type is unknown.
func (g Grid) Validate() error {
	for a, size := range g.Sizes() {
		if size < 1 {
			return fmt.Errorf("grid size%s must be >= 1, got %d", strings.ToUpper(Axis(a).String()), size)
		}
	}
	if !g.PixelType.Valid() {
		return fmt.Errorf("grid has unknown pixel type %d", uint8(g.PixelType))
	}
	return nil
}

func (g Grid) String() string {
	return fmt.Sprintf("%dx%dx%dx%dx%d %s", g.SizeX, g.SizeY, g.SizeZ, g.SizeC, g.SizeT, g.PixelType)
}

// ParseGrid parses a grid given as "XxYxZxCxT" extents and a pixel type name,
// e.g., ParseGrid("512x512x30x3x10", "uint16").
func ParseGrid(extents, pixelType string) (Grid, error) {
	parts := strings.Split(extents, "x")
	if len(parts) != NumAxes {
		return Grid{}, fmt.Errorf("grid extents %q must have %d values separated by 'x'", extents, NumAxes)
	}
	var sizes [NumAxes]int
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Grid{}, fmt.Errorf("bad %s extent in %q: %v", Axis(i), extents, err)
		}
		sizes[i] = v
	}
	pt, err := ParsePixelType(pixelType)
	if err != nil {
		return Grid{}, err
	}
	g := Grid{sizes[0], sizes[1], sizes[2], sizes[3], sizes[4], pt}
	if err := g.Validate(); err != nil {
		return Grid{}, err
	}
	return g, nil
}
