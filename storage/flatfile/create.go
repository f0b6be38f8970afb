package flatfile

import (
	"bufio"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/twinj/uuid"

	"github.com/janelia-flyem/pixels/dvid"
	"github.com/janelia-flyem/pixels/pixels"
	"github.com/janelia-flyem/pixels/storage/paths"
)

var _ pixels.WritablePixelBuffer = (*Buffer)(nil)

// Create writes a new pixel file at path in which every plane is marked as never
// acquired: the null plane sentinel followed by zeros.  The file is built under a
// temporary name and renamed into place, so a partially initialized file is never
// visible at path.  The returned store is writable.
func Create(id uint64, path string, grid dvid.Grid, opts Options) (*Buffer, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("pixels %d already exists @ %s: %w", id, path, os.ErrExist)
	}
	if err := paths.CreateSubpath(path); err != nil {
		return nil, err
	}

	timedLog := dvid.NewTimeLog()
	calc := pixels.NewCalculator(grid)
	tmpPath := fmt.Sprintf("%s.%x.tmp", path, uuid.NewV4().Bytes())
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("unable to create pixels %d: %w", id, err)
	}
	if err := writeNullPlanes(f, calc); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("unable to initialize pixels %d: %w", id, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return nil, err
	}
	timedLog.Infof("Created pixels %d (%s, %s) @ %s", id, grid, humanize.Bytes(uint64(calc.TotalSize())), path)

	opts.PermitModification = true
	return Open(id, path, grid, opts)
}

// writeNullPlanes writes one sentinel-initialized plane per (z, c, t).  Every plane
// is identical so the Z, C, T loop only has to produce the right count.
func writeNullPlanes(f *os.File, calc *pixels.Calculator) error {
	plane := make([]byte, calc.PlaneSize())
	pixels.InitNullPlane(plane)
	w := bufio.NewWriterSize(f, 4*dvid.Mega)
	grid := calc.Grid()
	for z := 0; z < grid.SizeZ; z++ {
		for c := 0; c < grid.SizeC; c++ {
			for t := 0; t < grid.SizeT; t++ {
				if _, err := w.Write(plane); err != nil {
					return err
				}
			}
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}
