package dvid

import (
	"os"
	"path/filepath"
)

// ConvertToAbsolute returns path made absolute relative to dir.  Absolute paths
// are returned unchanged.
func ConvertToAbsolute(path, dir string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	if !filepath.IsAbs(dir) {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(wd, dir)
	}
	return filepath.Clean(filepath.Join(dir, path)), nil
}
