// Package imagefs lists, renames and watches image files on disk.
package imagefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var ErrNotADirectory = errors.New("not a directory")

// Extensions is the set of file types treated as images (lowercase, with dot).
var Extensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".webp"}

var extSet = func() map[string]bool {
	m := make(map[string]bool, len(Extensions))
	for _, e := range Extensions {
		m[e] = true
	}
	return m
}()

func IsImage(path string) bool {
	return extSet[strings.ToLower(filepath.Ext(path))]
}

// ListImageFiles walks dir recursively and returns the image files sorted
// by path. Subdirectories that cannot be read are skipped.
func ListImageFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("folder %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("folder %q: %w", dir, ErrNotADirectory)
	}

	var files []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if strings.TrimSpace(d.Name()) == "" {
			return nil
		}
		if IsImage(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read folder %q: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}
