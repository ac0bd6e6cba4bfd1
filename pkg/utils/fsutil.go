package utils

import (
	"fmt"
	"os"
)

// EnsureDir makes sure path exists as a directory. If a regular file
// already occupies the path, it is renamed aside with a _file_conflict
// suffix so the directory can be created.
func EnsureDir(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return nil
		}
		conflict := path + "_file_conflict"
		if err := os.Rename(path, conflict); err != nil {
			return fmt.Errorf("failed to rename conflicting file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
