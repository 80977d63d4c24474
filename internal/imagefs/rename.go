package imagefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	ErrNotAFile      = errors.New("not a regular file")
	ErrTargetExists  = errors.New("target already exists")
	ErrInvalidTarget = errors.New("invalid target name")
)

// OS renames on the local filesystem.
type OS struct{}

// RenameFile renames oldPath to newName inside the same directory and
// returns the new path. An existing target is never overwritten.
func (OS) RenameFile(oldPath, newName string) (string, error) {
	info, err := os.Stat(oldPath)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s: %w", filepath.Base(oldPath), ErrNotAFile)
	}
	return rename(oldPath, newName)
}

// RenameDir is RenameFile for directories.
func (OS) RenameDir(oldPath, newName string) (string, error) {
	info, err := os.Stat(oldPath)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: %w", filepath.Base(oldPath), ErrNotADirectory)
	}
	return rename(oldPath, newName)
}

func rename(oldPath, newName string) (string, error) {
	if newName == "" || newName == "." || newName == ".." || filepath.Base(newName) != newName {
		return "", fmt.Errorf("%q: %w", newName, ErrInvalidTarget)
	}
	newPath := filepath.Join(filepath.Dir(oldPath), newName)
	if newPath == filepath.Clean(oldPath) {
		return newPath, nil
	}
	if _, err := os.Lstat(newPath); err == nil {
		return "", fmt.Errorf("%s: %w", newName, ErrTargetExists)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return "", err
	}
	return newPath, nil
}
