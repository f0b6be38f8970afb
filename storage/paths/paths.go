/*
	Package paths maps numeric identifiers onto a sharded directory tree so that no
	single directory holds more than about a thousand pixel set files.

	For an identifier of 1,234,567 in the Pixels category under root /data, the path is

		/data/Pixels/Dir-001/Dir-234/1234567

	Identifiers below 1000 live directly in the category directory.
*/
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/janelia-flyem/pixels/dvid"
)

// Category is a top-level directory under the root.
type Category string

const (
	Pixels     Category = "Pixels"
	Files      Category = "Files"
	Thumbnails Category = "Thumbnails"
)

// PyramidSuffix is appended to a pixel set path to name its multi-resolution pyramid.
const PyramidSuffix = "_pyramid"

// Service resolves identifiers to paths below a root directory.
type Service struct {
	root string
}

// New returns a path service rooted at dir.
func New(root string) *Service {
	return &Service{root: filepath.Clean(root)}
}

func (s *Service) Root() string { return s.root }

func (s *Service) String() string {
	return fmt.Sprintf("path service @ %s", s.root)
}

// Shard returns the Dir-DDD directory segments for an identifier, most significant first.
func Shard(id int64) ([]string, error) {
	if id < 0 {
		return nil, fmt.Errorf("%w: %d", dvid.ErrInvalidID, id)
	}
	var dirs []string
	for remaining := id; remaining > 999; {
		remaining /= 1000
		if remaining > 0 {
			dirs = append([]string{fmt.Sprintf("Dir-%03d", remaining%1000)}, dirs...)
		}
	}
	return dirs, nil
}

// Path returns the full sharded path of an identifier in a category.
func (s *Service) Path(category Category, id int64) (string, error) {
	dirs, err := Shard(id)
	if err != nil {
		return "", err
	}
	elems := make([]string, 0, len(dirs)+3)
	elems = append(elems, s.root, string(category))
	elems = append(elems, dirs...)
	elems = append(elems, strconv.FormatInt(id, 10))
	return filepath.Join(elems...), nil
}

// PixelsPath returns the canonical flat file path for a pixel set.
func (s *Service) PixelsPath(id uint64) (string, error) {
	if id > 1<<63-1 {
		return "", fmt.Errorf("%w: %d", dvid.ErrInvalidID, id)
	}
	return s.Path(Pixels, int64(id))
}

// PyramidPath returns the path of a pixel set's pyramid directory.
func (s *Service) PyramidPath(id uint64) (string, error) {
	p, err := s.PixelsPath(id)
	if err != nil {
		return "", err
	}
	return p + PyramidSuffix, nil
}

// LevelPath returns the flat file holding one pyramid resolution level.  Level 0
// is the full resolution pixels file itself.
func (s *Service) LevelPath(id uint64, level int) (string, error) {
	if level < 0 {
		return "", fmt.Errorf("invalid resolution level %d", level)
	}
	if level == 0 {
		return s.PixelsPath(id)
	}
	p, err := s.PyramidPath(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(p, strconv.Itoa(level)), nil
}

// CreateSubpath makes sure the parent directories of path exist.
func CreateSubpath(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		dvid.Debugf("Creating pixels directory %s\n", dir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("can't make directory %s: %w", dir, err)
		}
	}
	return nil
}

// Exists returns true if a regular file exists at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
